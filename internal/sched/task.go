package sched

import "fmt"

// TaskID uniquely identifies a task in the scheduler.
type TaskID uint64

// IdleTaskID is reserved for the per-CPU idle task.
const IdleTaskID TaskID = 0

// Policy is the scheduling policy number a task runs under.
type Policy int

const (
	PolicyNormal Policy = 0
	PolicyFIFO   Policy = 1
	PolicyRR     Policy = 2
	PolicyBatch  Policy = 3
	PolicyIdle   Policy = 5
	PolicyWRR    Policy = 6
)

func (p Policy) String() string {
	switch p {
	case PolicyNormal:
		return "SCHED_NORMAL"
	case PolicyFIFO:
		return "SCHED_FIFO"
	case PolicyRR:
		return "SCHED_RR"
	case PolicyBatch:
		return "SCHED_BATCH"
	case PolicyIdle:
		return "SCHED_IDLE"
	case PolicyWRR:
		return "SCHED_WRR"
	default:
		return fmt.Sprintf("SCHED_%d", int(p))
	}
}

// ParsePolicy accepts "wrr", "SCHED_WRR", "normal", ... or a policy number.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "normal", "other", "SCHED_NORMAL", "SCHED_OTHER", "0":
		return PolicyNormal, nil
	case "fifo", "SCHED_FIFO", "1":
		return PolicyFIFO, nil
	case "rr", "SCHED_RR", "2":
		return PolicyRR, nil
	case "batch", "SCHED_BATCH", "3":
		return PolicyBatch, nil
	case "idle", "SCHED_IDLE", "5":
		return PolicyIdle, nil
	case "wrr", "SCHED_WRR", "6":
		return PolicyWRR, nil
	}
	return 0, fmt.Errorf("unknown scheduling policy %q", s)
}

// Priority ranges. Levels below MaxRTPrio are the ones a WRR task can occupy,
// lower value is served first.
const (
	MaxRTPrio   = 100
	MaxPrio     = MaxRTPrio + 40
	DefaultPrio = MaxRTPrio + 20

	MinNice = -20
	MaxNice = 19
)

// RealtimeStyle reports whether the policy takes a 0..99 rt priority.
func (p Policy) RealtimeStyle() bool {
	return p == PolicyFIFO || p == PolicyRR || p == PolicyWRR
}

// NormalPrio computes the effective priority for a policy/param pair.
func NormalPrio(policy Policy, rtPriority, nice int) int {
	if policy.RealtimeStyle() {
		return MaxRTPrio - 1 - rtPriority
	}
	return DefaultPrio + nice
}

// TaskGroup is the group a task belongs to. Only its path is ever read here.
type TaskGroup struct {
	path string
}

// NewTaskGroup creates a group identified by path, e.g. "/bg_non_interactive".
func NewTaskGroup(path string) *TaskGroup {
	return &TaskGroup{path: path}
}

// Path returns the printable group identifier; the root group is "/".
func (g *TaskGroup) Path() string {
	if g == nil || g.path == "" {
		return "/"
	}
	return g.path
}

// ExecStats is the execution-time accounting shared by all classes.
type ExecStats struct {
	Start      uint64 // clock value of the last accounting point
	SumRuntime uint64
	Max        uint64 // longest single accounting delta
	Switches   uint64
}

// Task represents one schedulable task unit.
type Task struct {
	ID         TaskID
	Name       string
	Policy     Policy
	RTPriority int // 0 - 99, only meaningful for realtime-style policies
	Nice       int
	Prio       int // effective priority, 0 is the highest
	Group      *TaskGroup
	CPU        int

	OnRq        bool
	NeedResched bool
	Class       Class

	WRR  Entity
	Fair FairEntity
	Exec ExecStats
}

// NewTask creates a task with its effective priority derived from policy.
// NOTE: the WRR time slice stays zero until the task is first enqueued.
func NewTask(id TaskID, name string, policy Policy, rtPriority, nice int, group *TaskGroup) *Task {
	// clamp within the legal region.
	if rtPriority < 0 {
		rtPriority = 0
	} else if rtPriority > MaxRTPrio-1 {
		rtPriority = MaxRTPrio - 1
	}
	if nice < MinNice {
		nice = MinNice
	} else if nice > MaxNice {
		nice = MaxNice
	}

	t := &Task{
		ID:         id,
		Name:       name,
		Policy:     policy,
		RTPriority: rtPriority,
		Nice:       nice,
		Prio:       NormalPrio(policy, rtPriority, nice),
		Group:      group,
	}
	t.WRR.task = t
	return t
}

// GroupPath returns the path of the task's group.
func (t *Task) GroupPath() string {
	return t.Group.Path()
}

func (t *Task) String() string {
	return fmt.Sprintf("%s[%d]", t.Name, t.ID)
}
