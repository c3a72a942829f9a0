package sched

import "log/slog"

// WRR is the weighted round-robin scheduling class (SCHED_WRR). Tasks of a
// level are served FIFO; a task whose time slice runs out gets a refill of
// base quantum * weight and goes to the tail of its level.
//
// A WRR wakeup or spawn never preempts a running WRR task, even one at a less
// urgent level: the newcomer waits until the current task blocks, yields or
// rotates behind a peer. Only SwitchedTo compares levels.
type WRR struct {
	logger *slog.Logger
}

// NewWRR creates the class. It keeps no per-CPU state of its own.
func NewWRR(logger *slog.Logger) *WRR {
	if logger == nil {
		logger = slog.Default()
	}
	return &WRR{logger: logger.With("component", "wrr")}
}

func (c *WRR) Name() string { return "wrr" }

func (c *WRR) HandlesPolicy(p Policy) bool { return p == PolicyWRR }

// updateCurr charges the running task for the time since its last
// accounting point. Tasks of other classes are skipped.
func (c *WRR) updateCurr(l *Locked) {
	curr := l.Curr()
	if curr == nil || curr.Class != Class(c) {
		return
	}
	delta := updateExec(l, curr)
	l.WRR().Bandwidth().Account(delta)
}

func (c *WRR) EnqueueTask(l *Locked, p *Task, flags EnqueueFlags) {
	l.WRR().Enqueue(l, &p.WRR, flags&EnqueueHead != 0)
	l.IncNrRunning()
}

func (c *WRR) DequeueTask(l *Locked, p *Task, _ DequeueFlags) {
	c.updateCurr(l)
	l.WRR().Dequeue(l, &p.WRR)
	l.DecNrRunning()
}

func (c *WRR) requeueTask(l *Locked, p *Task, head bool) {
	l.WRR().Requeue(l, &p.WRR, head)
}

// YieldTask sends the running task to the tail of its level. Its time slice
// is left as it is.
func (c *WRR) YieldTask(l *Locked) {
	c.requeueTask(l, l.Curr(), false)
}

// CheckPreemptCurr does nothing; see the type comment.
func (c *WRR) CheckPreemptCurr(*Locked, *Task, EnqueueFlags) {}

func (c *WRR) PickNextTask(l *Locked) *Task {
	se := l.WRR().PickNext(l)
	if se == nil {
		return nil
	}
	p := se.Task()
	p.Exec.Start = l.Clock()
	return p
}

func (c *WRR) PutPrevTask(l *Locked, _ *Task) {
	c.updateCurr(l)
}

func (c *WRR) SetCurrTask(l *Locked) {
	l.Curr().Exec.Start = l.Clock()
}

// TaskTick runs once per tick while p is current.
func (c *WRR) TaskTick(l *Locked, p *Task, _ bool) {
	c.updateCurr(l)

	if p.Policy != PolicyWRR {
		return
	}

	se := &p.WRR
	if se.TimeSlice > 0 {
		se.TimeSlice--
	}
	if se.TimeSlice > 0 {
		return
	}

	wrq := l.WRR()
	wrq.Refill(l, se)
	l.Emit(StatusRefill, p)

	// Only rotate when someone else shares the level; a sole occupant would
	// land where it already is.
	if se.Queued() && wrq.Array().Len(se.Level()) > 1 {
		c.requeueTask(l, p, false)
		l.Resched()
		return
	}
	c.logger.Debug("timeslice refilled", "task_id", p.ID, "time_slice", se.TimeSlice)
}

// SwitchedTo preempts the current task when p just became WRR, is waiting and
// outranks what is running.
func (c *WRR) SwitchedTo(l *Locked, p *Task) {
	curr := l.Curr()
	if p.OnRq && curr != p && curr != nil {
		if p.Prio < curr.Prio {
			l.Resched()
		}
	}
}

// GetRRInterval resolves the weight exactly as a first enqueue would, without
// touching p.
func (c *WRR) GetRRInterval(l *Locked, p *Task) uint {
	_, slice := l.WRR().Quantum().For(p.GroupPath())
	return slice
}

func (c *WRR) TaskFork(*Task) {}

func (c *WRR) SwitchedFrom(*Locked, *Task) {}

func (c *WRR) PrioChanged(*Locked, *Task, int) {}

// Multi-processor hooks. WRR tasks never migrate.

func (c *WRR) SelectTaskRq(_ *Task, prevCPU int, _ EnqueueFlags) int { return prevCPU }

func (c *WRR) SetCPUsAllowed(*Task, uint64) {}

func (c *WRR) RqOnline(*Locked) {}

func (c *WRR) RqOffline(*Locked) {}

func (c *WRR) PreSchedule(*Locked, *Task) {}

func (c *WRR) PostSchedule(*Locked) {}

func (c *WRR) TaskWoken(*Locked, *Task) {}

var (
	_ Class    = (*WRR)(nil)
	_ SMPClass = (*WRR)(nil)
)
