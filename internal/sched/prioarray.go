package sched

import (
	"container/list"
	"fmt"
	"math/bits"
)

const bitmapWords = (MaxRTPrio + 1 + 63) / 64

// PrioArray is a set of FIFO queues indexed by priority level plus a bitmap
// with one bit per non-empty level. Bit MaxRTPrio is always set and stops the
// first-bit search.
//
// PrioArray does no locking; it lives inside a WRRRq and is only touched with
// the owning run queue locked.
type PrioArray struct {
	bitmap [bitmapWords]uint64
	queues [MaxRTPrio]list.List
}

func (a *PrioArray) init() {
	for i := range a.queues {
		a.queues[i].Init()
	}
	a.bitmap = [bitmapWords]uint64{}
	a.setBit(MaxRTPrio)
}

func (a *PrioArray) setBit(level int)   { a.bitmap[level/64] |= 1 << (uint(level) % 64) }
func (a *PrioArray) clearBit(level int) { a.bitmap[level/64] &^= 1 << (uint(level) % 64) }

// IsSet reports whether level is marked non-empty.
func (a *PrioArray) IsSet(level int) bool {
	return a.bitmap[level/64]&(1<<(uint(level)%64)) != 0
}

// Insert links se into the queue of level, at the front when head is set.
func (a *PrioArray) Insert(se *Entity, level int, head bool) {
	q := &a.queues[level]
	if head {
		se.elem = q.PushFront(se)
	} else {
		se.elem = q.PushBack(se)
	}
	se.level = level
	a.setBit(level)
}

// Remove unlinks se from its queue and clears the level bit once the queue
// is empty.
func (a *PrioArray) Remove(se *Entity) {
	q := &a.queues[se.level]
	q.Remove(se.elem)
	se.elem = nil
	if q.Len() == 0 {
		a.clearBit(se.level)
	}
}

// Move rotates se to the front or back of its current level.
func (a *PrioArray) Move(se *Entity, head bool) {
	q := &a.queues[se.level]
	if head {
		q.MoveToFront(se.elem)
	} else {
		q.MoveToBack(se.elem)
	}
}

// HighestReadyLevel returns the lowest-numbered non-empty level.
func (a *PrioArray) HighestReadyLevel() (int, bool) {
	for w, word := range a.bitmap {
		if word != 0 {
			level := w*64 + bits.TrailingZeros64(word)
			if level >= MaxRTPrio {
				return 0, false
			}
			return level, true
		}
	}
	return 0, false
}

// Front returns the first entity queued at level, or nil.
func (a *PrioArray) Front(level int) *Entity {
	e := a.queues[level].Front()
	if e == nil {
		return nil
	}
	return e.Value.(*Entity)
}

// Len returns the number of entities queued at level.
func (a *PrioArray) Len(level int) int {
	return a.queues[level].Len()
}

// Entities returns the queue at level in service order.
func (a *PrioArray) Entities(level int) []*Entity {
	out := make([]*Entity, 0, a.queues[level].Len())
	for e := a.queues[level].Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*Entity))
	}
	return out
}

// CheckInvariants verifies the bitmap against the queues and that no entity
// is linked twice. It returns the total number of queued entities.
func (a *PrioArray) CheckInvariants() (int, error) {
	if !a.IsSet(MaxRTPrio) {
		return 0, fmt.Errorf("delimiter bit %d cleared", MaxRTPrio)
	}
	seen := make(map[*Entity]int)
	total := 0
	for level := range a.queues {
		n := a.queues[level].Len()
		if a.IsSet(level) != (n > 0) {
			return 0, fmt.Errorf("level %d: bit=%v but %d queued", level, a.IsSet(level), n)
		}
		for e := a.queues[level].Front(); e != nil; e = e.Next() {
			se := e.Value.(*Entity)
			if prev, dup := seen[se]; dup {
				return 0, fmt.Errorf("entity queued at levels %d and %d", prev, level)
			}
			seen[se] = level
			if se.elem != e || se.level != level {
				return 0, fmt.Errorf("entity at level %d has stale linkage", level)
			}
		}
		total += n
	}
	return total, nil
}
