package sched

import (
	"sync"
	"time"
)

// Rq is the run queue of one CPU. It is owned by the host core; scheduling
// classes only see it through a Locked token.
type Rq struct {
	mu sync.Mutex

	cpu       int
	clock     uint64 // task clock, ns
	curr      *Task
	idle      *Task
	nrRunning int

	wrr      *WRRRq
	fair     *FairRq
	observer Observer
}

// NewRq creates the run queue of cpu. The idle task is current until the
// first schedule.
func NewRq(cpu int, wrr *WRRRq, fair *FairRq, obs Observer) *Rq {
	if obs == nil {
		obs = nopObserver{}
	}
	idle := NewTask(IdleTaskID, "idle", PolicyIdle, 0, 0, nil)
	idle.Prio = MaxPrio
	idle.CPU = cpu
	idle.OnRq = true
	idle.Class = Idle

	return &Rq{
		cpu:      cpu,
		curr:     idle,
		idle:     idle,
		wrr:      wrr,
		fair:     fair,
		observer: obs,
	}
}

// CPU returns the id of the CPU the run queue belongs to.
func (rq *Rq) CPU() int { return rq.cpu }

// Lock acquires the run queue lock. The returned token is the proof of
// exclusive access every class callback requires.
func (rq *Rq) Lock() *Locked {
	rq.mu.Lock()
	return &Locked{rq: rq}
}

// Locked is held between Rq.Lock and Unlock.
type Locked struct {
	rq *Rq
}

// Unlock releases the run queue and invalidates the token.
func (l *Locked) Unlock() {
	rq := l.held()
	l.rq = nil
	rq.mu.Unlock()
}

func (l *Locked) held() *Rq {
	if l == nil || l.rq == nil {
		panic("sched: run queue accessed without holding its lock")
	}
	return l.rq
}

func (l *Locked) CPU() int { return l.held().cpu }

// Clock returns the task clock in nanoseconds.
func (l *Locked) Clock() uint64 { return l.held().clock }

// AdvanceClock moves the task clock forward by d nanoseconds.
func (l *Locked) AdvanceClock(d uint64) { l.held().clock += d }

// SetClock sets the task clock. It may move backwards.
func (l *Locked) SetClock(now uint64) { l.held().clock = now }

func (l *Locked) Curr() *Task { return l.held().curr }

// SetCurr records next as the running task.
func (l *Locked) SetCurr(next *Task) { l.held().curr = next }

func (l *Locked) Idle() *Task { return l.held().idle }

func (l *Locked) WRR() *WRRRq { return l.held().wrr }

func (l *Locked) Fair() *FairRq { return l.held().fair }

// NrRunning is the number of runnable tasks over all classes.
func (l *Locked) NrRunning() int { return l.held().nrRunning }

func (l *Locked) IncNrRunning() { l.held().nrRunning++ }

func (l *Locked) DecNrRunning() { l.held().nrRunning-- }

// Resched asks the host core to pick again on this CPU.
func (l *Locked) Resched() {
	rq := l.held()
	if rq.curr == nil || rq.curr.NeedResched {
		return
	}
	rq.curr.NeedResched = true
	l.Emit(StatusPreempt, rq.curr)
}

// Emit reports an event about p to the observer.
func (l *Locked) Emit(kind StatusKind, p *Task) {
	rq := l.held()
	ev := StatusEvent{
		Clock: time.Duration(rq.clock),
		CPU:   rq.cpu,
		Kind:  kind,
	}
	if p != nil {
		ev.TaskID = p.ID
		ev.Policy = p.Policy
		ev.Level = p.Prio
		ev.TimeSlice = p.WRR.TimeSlice
		ev.Weight = p.WRR.Weight
		ev.Runtime = p.Exec.SumRuntime
		ev.Vruntime = p.Fair.Vruntime
	}
	rq.observer.Observe(ev)
}

// updateExec charges the time since curr's last accounting point and returns
// it. A clock that appears to have gone backwards charges nothing.
func updateExec(l *Locked, curr *Task) uint64 {
	now := l.Clock()
	var delta uint64
	if int64(now-curr.Exec.Start) > 0 {
		delta = now - curr.Exec.Start
	}
	if delta > curr.Exec.Max {
		curr.Exec.Max = delta
	}
	curr.Exec.SumRuntime += delta
	curr.Exec.Start = now
	return delta
}
