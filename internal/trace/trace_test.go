package trace

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wrrsched/internal/logging"
	"wrrsched/internal/sched"
)

func events() []sched.StatusEvent {
	return []sched.StatusEvent{
		{Clock: 0, Kind: sched.StatusEnqueue, TaskID: 1, Policy: sched.PolicyWRR, Level: 99, TimeSlice: 100, Weight: 10},
		{Clock: 0, Kind: sched.StatusDispatch, TaskID: 1, Policy: sched.PolicyWRR, Level: 99, TimeSlice: 100, Weight: 10},
		{Clock: time.Millisecond, Kind: sched.StatusTick, TaskID: 1, Policy: sched.PolicyWRR, Level: 99, TimeSlice: 99, Weight: 10, Runtime: uint64(time.Millisecond)},
		{Clock: 2 * time.Millisecond, Kind: sched.StatusTick, TaskID: 1, Policy: sched.PolicyWRR, Level: 99, TimeSlice: 98, Weight: 10, Runtime: uint64(2 * time.Millisecond)},
		{Clock: 2 * time.Millisecond, Kind: sched.StatusFinish, TaskID: 1, Policy: sched.PolicyWRR, Level: 99, TimeSlice: 98, Weight: 10, Runtime: uint64(2 * time.Millisecond)},
	}
}

func TestConsole_SkipsTicks(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	for _, ev := range events() {
		require.NoError(t, c.Write(ev))
	}
	require.NoError(t, c.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Enqueued")
	assert.Contains(t, lines[1], "Dispatch")
	assert.Contains(t, lines[2], "Finish")
	assert.Contains(t, lines[2], "ran=000002")
	assert.Contains(t, lines[2], "runtime=2ms")
	assert.Contains(t, lines[2], "SCHED_WRR")
}

func TestConsole_ShowTicks(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	c.ShowTicks = true
	for _, ev := range events() {
		require.NoError(t, c.Write(ev))
	}
	assert.Equal(t, 5, strings.Count(buf.String(), "\n"))
}

func TestCenter(t *testing.T) {
	assert.Equal(t, "  ab  ", center("ab", 6))
	assert.Equal(t, " ab  ", center("ab", 5))
	assert.Equal(t, "toolong", center("toolong", 3))
}

func TestCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.csv")
	c, err := NewCSV(path)
	require.NoError(t, err)
	for _, ev := range events() {
		require.NoError(t, c.Write(ev))
	}
	require.NoError(t, c.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 6)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"1000000", "0", "Tick", "1", "SCHED_WRR", "99", "99", "10", "1000000", "0.0000"}, rows[3])
}

func TestCSV_CreateError(t *testing.T) {
	_, err := NewCSV(filepath.Join(t.TempDir(), "missing", "trace.csv"))
	assert.Error(t, err)
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "trace.db")

	s, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	runID := s.RunID()
	assert.True(t, strings.HasPrefix(runID, "run_"))
	for _, ev := range events() {
		require.NoError(t, s.Write(ev))
	}
	require.NoError(t, s.Close())

	n, err := CountEvents(ctx, path, runID, "")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = CountEvents(ctx, path, runID, sched.StatusTick.String())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// A second run appends to the same database.
	s2, err := NewSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s2.Write(events()[0]))
	require.NoError(t, s2.Close())
	assert.NotEqual(t, runID, s2.RunID())

	n, err = CountEvents(ctx, path, s2.RunID(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = CountEvents(ctx, path, runID, "")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = CountEvents(ctx, path, "", "")
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

type memSink struct {
	got      []sched.StatusEvent
	writeErr error
	closeErr error
}

func (m *memSink) Write(ev sched.StatusEvent) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.got = append(m.got, ev)
	return nil
}

func (m *memSink) Close() error { return m.closeErr }

func TestRecorder_DeliversInOrder(t *testing.T) {
	a, b := &memSink{}, &memSink{}
	r := NewRecorder(logging.Discard(), a, b)
	for i := 0; i < 1000; i++ {
		r.Observe(sched.StatusEvent{TaskID: sched.TaskID(i), Kind: sched.StatusTick})
	}
	require.NoError(t, r.Close())

	require.Len(t, a.got, 1000)
	require.Len(t, b.got, 1000)
	for i, ev := range a.got {
		assert.Equal(t, sched.TaskID(i), ev.TaskID)
	}
}

func TestRecorder_AggregatesCloseErrors(t *testing.T) {
	errA := errors.New("close a")
	errB := errors.New("close b")
	failing := &memSink{writeErr: errors.New("disk full"), closeErr: errA}
	ok := &memSink{}
	r := NewRecorder(logging.Discard(), failing, ok, &memSink{closeErr: errB})

	r.Observe(sched.StatusEvent{Kind: sched.StatusDispatch})
	err := r.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Len(t, ok.got, 1)
	assert.Equal(t, 1, r.failed)
	assert.Equal(t, 2, r.written)
}
