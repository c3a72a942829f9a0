package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newArray() *PrioArray {
	a := &PrioArray{}
	a.init()
	return a
}

func TestPrioArray_Empty(t *testing.T) {
	a := newArray()

	_, ok := a.HighestReadyLevel()
	assert.False(t, ok)
	assert.True(t, a.IsSet(MaxRTPrio), "delimiter bit must be set")

	n, err := a.CheckInvariants()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPrioArray_HighestReadyLevel(t *testing.T) {
	a := newArray()
	var x, y, z Entity

	a.Insert(&x, 70, false)
	level, ok := a.HighestReadyLevel()
	require.True(t, ok)
	assert.Equal(t, 70, level)

	a.Insert(&y, 64, false)
	a.Insert(&z, 3, false)
	level, _ = a.HighestReadyLevel()
	assert.Equal(t, 3, level)

	a.Remove(&z)
	level, _ = a.HighestReadyLevel()
	assert.Equal(t, 64, level)

	a.Remove(&y)
	a.Remove(&x)
	_, ok = a.HighestReadyLevel()
	assert.False(t, ok)

	_, err := a.CheckInvariants()
	assert.NoError(t, err)
}

func TestPrioArray_BitClearedOnlyWhenLevelEmpty(t *testing.T) {
	a := newArray()
	var x, y Entity

	a.Insert(&x, 10, false)
	a.Insert(&y, 10, false)
	a.Remove(&x)
	assert.True(t, a.IsSet(10))
	assert.False(t, x.Queued())

	a.Remove(&y)
	assert.False(t, a.IsSet(10))
	assert.True(t, a.IsSet(MaxRTPrio))
}

func TestPrioArray_HeadAndTail(t *testing.T) {
	a := newArray()
	var x, y, z Entity

	a.Insert(&x, 42, false)
	a.Insert(&y, 42, false)
	a.Insert(&z, 42, true)
	assert.Equal(t, []*Entity{&z, &x, &y}, a.Entities(42))
	assert.Same(t, &z, a.Front(42))

	a.Move(&z, false)
	assert.Equal(t, []*Entity{&x, &y, &z}, a.Entities(42))

	a.Move(&y, true)
	assert.Equal(t, []*Entity{&y, &x, &z}, a.Entities(42))
	assert.Equal(t, 3, a.Len(42))
	assert.Nil(t, a.Front(41))
}
