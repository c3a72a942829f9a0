// internal/sched/events.go

package sched

import (
	"time"
)

// StatusKind represents the type of scheduler event
type StatusKind int

const (
	StatusIdle StatusKind = iota
	StatusEnqueue
	StatusDequeue
	StatusDispatch
	StatusPreempt
	StatusFinish
	StatusTick
	StatusYield
	StatusRefill
	StatusBlock
	StatusWake
	StatusPolicyChange
)

// StatusEvent is emitted every tick or on key actions
type StatusEvent struct {
	Clock     time.Duration // run queue clock when the event happened
	CPU       int
	Kind      StatusKind
	TaskID    TaskID
	Policy    Policy
	Level     int
	TimeSlice uint
	Weight    Weight
	Runtime   uint64
	Vruntime  float64
}

func (sk StatusKind) String() string {
	switch sk {
	case StatusIdle:
		return "Idle"
	case StatusEnqueue:
		return "Enqueued"
	case StatusDequeue:
		return "Dequeued"
	case StatusDispatch:
		return "Dispatch"
	case StatusPreempt:
		return "Preempt"
	case StatusFinish:
		return "Finish"
	case StatusTick:
		return "Tick"
	case StatusYield:
		return "Yield"
	case StatusRefill:
		return "Refill"
	case StatusBlock:
		return "Block"
	case StatusWake:
		return "Wake"
	case StatusPolicyChange:
		return "PolicyChange"
	default:
		return "Unknown"
	}
}

// Observer receives status events. Observe is called with the run queue
// locked and must not call back into the scheduler.
type Observer interface {
	Observe(ev StatusEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev StatusEvent)

func (f ObserverFunc) Observe(ev StatusEvent) { f(ev) }

type nopObserver struct{}

func (nopObserver) Observe(StatusEvent) {}
