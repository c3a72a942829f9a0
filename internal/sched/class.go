package sched

// EnqueueFlags modify EnqueueTask.
type EnqueueFlags int

const (
	// EnqueueHead puts the task in front of its level, e.g. when it must run
	// right after a wakeup.
	EnqueueHead EnqueueFlags = 1 << iota
	EnqueueWakeup
)

// DequeueFlags modify DequeueTask.
type DequeueFlags int

const (
	DequeueSleep DequeueFlags = 1 << iota
)

// Class is a scheduling class. The host core consults classes in priority
// order; a class only decides what to do once it is asked. Every callback
// runs with the run queue locked and must not block.
type Class interface {
	Name() string
	HandlesPolicy(p Policy) bool

	EnqueueTask(l *Locked, p *Task, flags EnqueueFlags)
	DequeueTask(l *Locked, p *Task, flags DequeueFlags)
	YieldTask(l *Locked)
	CheckPreemptCurr(l *Locked, p *Task, flags EnqueueFlags)

	PickNextTask(l *Locked) *Task
	PutPrevTask(l *Locked, p *Task)
	SetCurrTask(l *Locked)
	TaskTick(l *Locked, p *Task, queued bool)
	TaskFork(p *Task)

	SwitchedFrom(l *Locked, p *Task)
	SwitchedTo(l *Locked, p *Task)
	PrioChanged(l *Locked, p *Task, oldPrio int)

	// GetRRInterval returns the quantum of p in ticks.
	GetRRInterval(l *Locked, p *Task) uint
}

// SMPClass carries the multi-processor hooks. The core calls them when a
// class provides them.
type SMPClass interface {
	SelectTaskRq(p *Task, prevCPU int, flags EnqueueFlags) int
	SetCPUsAllowed(p *Task, mask uint64)
	RqOnline(l *Locked)
	RqOffline(l *Locked)
	PreSchedule(l *Locked, prev *Task)
	PostSchedule(l *Locked)
	TaskWoken(l *Locked, p *Task)
}

// Idle is the class of last resort: it always has the idle task to offer.
var Idle Class = idleClass{}

type idleClass struct{}

func (idleClass) Name() string { return "idle" }
func (idleClass) HandlesPolicy(Policy) bool { return false }
func (idleClass) EnqueueTask(*Locked, *Task, EnqueueFlags) {}
func (idleClass) DequeueTask(*Locked, *Task, DequeueFlags) {}
func (idleClass) YieldTask(*Locked) {}
func (idleClass) CheckPreemptCurr(l *Locked, _ *Task, _ EnqueueFlags) { l.Resched() }
func (idleClass) PickNextTask(l *Locked) *Task { return l.Idle() }
func (idleClass) PutPrevTask(*Locked, *Task) {}
func (idleClass) SetCurrTask(*Locked) {}
func (idleClass) TaskTick(*Locked, *Task, bool) {}
func (idleClass) TaskFork(*Task) {}
func (idleClass) SwitchedFrom(*Locked, *Task) {}
func (idleClass) SwitchedTo(*Locked, *Task) {}
func (idleClass) PrioChanged(*Locked, *Task, int) {}
func (idleClass) GetRRInterval(*Locked, *Task) uint { return 0 }
