package sched

import (
	"fmt"
	"sync"
)

// BandwidthLimiter is the hook for future WRR bandwidth throttling. No
// algorithm here depends on it being anything but the no-op default.
type BandwidthLimiter interface {
	Throttled() bool
	Account(delta uint64)
}

// reservedBandwidth keeps the throttling state under its own lock. Nothing
// writes it yet.
type reservedBandwidth struct {
	mu        sync.Mutex
	throttled bool
	time      uint64
	runtime   uint64
}

func (b *reservedBandwidth) Throttled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.throttled
}

func (b *reservedBandwidth) Account(uint64) {}

// WRRRq is the weighted round-robin run queue of one CPU.
type WRRRq struct {
	active    PrioArray
	nrRunning uint
	quantum   Quantum
	bandwidth BandwidthLimiter
}

// NewWRRRq creates an empty run queue. A nil limiter means no throttling.
func NewWRRRq(quantum Quantum, bw BandwidthLimiter) *WRRRq {
	if quantum.Weights == nil {
		quantum.Weights = DefaultClassifier()
	}
	if bw == nil {
		bw = &reservedBandwidth{}
	}
	w := &WRRRq{quantum: quantum, bandwidth: bw}
	w.active.init()
	return w
}

// Quantum returns the weight/time-slice rule of this run queue.
func (w *WRRRq) Quantum() Quantum { return w.quantum }

// Bandwidth returns the throttling hook.
func (w *WRRRq) Bandwidth() BandwidthLimiter { return w.bandwidth }

// Array exposes the priority array for inspection.
func (w *WRRRq) Array() *PrioArray { return &w.active }

// NrRunning is the number of queued entities.
func (w *WRRRq) NrRunning() uint { return w.nrRunning }

// Enqueue queues se at its task's priority level. The first time an entity
// is queued its weight and time slice are resolved from the task's group.
// An entity that is already queued is unlinked first so it is never on two
// queues.
func (w *WRRRq) Enqueue(l *Locked, se *Entity, head bool) {
	l.held()
	if se.Queued() {
		w.Dequeue(l, se)
	}
	if se.TimeSlice == 0 {
		se.Weight, se.TimeSlice = w.quantum.For(se.task.GroupPath())
	}
	w.active.Insert(se, se.task.Prio, head)
	w.nrRunning++
}

// Dequeue unlinks se. Dequeueing an entity that is not queued does nothing.
func (w *WRRRq) Dequeue(l *Locked, se *Entity) {
	l.held()
	if !se.Queued() {
		return
	}
	w.active.Remove(se)
	w.nrRunning--
}

// PickNext returns the front entity of the highest ready level without
// unlinking it.
func (w *WRRRq) PickNext(l *Locked) *Entity {
	l.held()
	if w.nrRunning == 0 {
		return nil
	}
	level, ok := w.active.HighestReadyLevel()
	if !ok {
		return nil
	}
	return w.active.Front(level)
}

// Requeue moves se to the front or back of its own level. The level never
// changes. Entities that are not queued are left alone.
func (w *WRRRq) Requeue(l *Locked, se *Entity, head bool) {
	l.held()
	if !se.Queued() {
		return
	}
	w.active.Move(se, head)
}

// Refill re-resolves the weight of se and gives it a full time slice.
func (w *WRRRq) Refill(l *Locked, se *Entity) {
	l.held()
	se.Weight, se.TimeSlice = w.quantum.For(se.task.GroupPath())
}

// CheckInvariants verifies the bitmap, single membership and the running
// count.
func (w *WRRRq) CheckInvariants() error {
	total, err := w.active.CheckInvariants()
	if err != nil {
		return err
	}
	if uint(total) != w.nrRunning {
		return fmt.Errorf("nr_running=%d but %d entities queued", w.nrRunning, total)
	}
	return nil
}
