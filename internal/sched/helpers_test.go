package sched

import (
	"fmt"
	"testing"
	"time"

	"wrrsched/internal/logging"
)

const (
	testBase   = 100
	tickNs     = uint64(time.Millisecond)
	bgGroup    = "/bg_non_interactive"
	rootGroup  = "/"
	fairSlices = 4
)

func newTestRq(t *testing.T) (*Rq, *WRR, *Fair) {
	t.Helper()
	wrq := NewWRRRq(Quantum{Base: testBase, Weights: DefaultClassifier()}, nil)
	rq := NewRq(0, wrq, NewFairRq(fairSlices, tickNs), nil)
	return rq, NewWRR(logging.Discard()), NewFair(logging.Discard())
}

func wrrTask(id TaskID, level int, group string, class Class) *Task {
	p := NewTask(id, fmt.Sprintf("t%d", id), PolicyWRR, 0, 0, NewTaskGroup(group))
	p.Prio = level
	p.Class = class
	return p
}

// activate mirrors what the host core does around EnqueueTask.
func activate(l *Locked, p *Task, flags EnqueueFlags) {
	p.Class.EnqueueTask(l, p, flags)
	p.OnRq = true
}

// run makes the class pick and records the result as current.
func run(l *Locked, c Class) *Task {
	p := c.PickNextTask(l)
	if p != nil {
		l.SetCurr(p)
	}
	return p
}

func ids(entities []*Entity) []TaskID {
	out := make([]TaskID, 0, len(entities))
	for _, se := range entities {
		out = append(out, se.Task().ID)
	}
	return out
}
