// internal/sched/fair.go

package sched

import (
	"log/slog"

	"github.com/emirpasic/gods/trees/redblacktree"
)

// nice0Weight is the weight of a nice 0 task.
const nice0Weight = 20.0

// niceWeight maps nice -20..19 to weight 40..1.
func niceWeight(nice int) float64 {
	return float64(40 - (nice - MinNice))
}

// FairEntity is the fair-class part of a task.
type FairEntity struct {
	Vruntime   float64
	Weight     float64
	onTree     bool
	sliceStart uint64 // SumRuntime when the task was last picked
}

// FairRq is the vruntime-ordered run queue of one CPU. The running task is
// kept out of the tree.
type FairRq struct {
	rbt         *redblacktree.Tree // red-black tree ordered by vruntime and task ID
	minVruntime float64            // minimum vruntime of all tasks in the run queue
	curr        *Task
	nrRunning   int
	sliceTicks  uint
	slice       uint64 // ns of runtime guaranteed before a tick may preempt
}

// NewFairRq creates a run queue that lets a task run sliceTicks ticks of
// tickNs nanoseconds before preempting it for a waiting peer.
func NewFairRq(sliceTicks uint, tickNs uint64) *FairRq {
	return &FairRq{
		rbt:        redblacktree.NewWith(cmp),
		sliceTicks: sliceTicks,
		slice:      uint64(sliceTicks) * tickNs,
	}
}

// NrRunning includes the running fair task.
func (f *FairRq) NrRunning() int { return f.nrRunning }

// MinVruntime is the floor new tasks start from.
func (f *FairRq) MinVruntime() float64 { return f.minVruntime }

func (f *FairRq) put(p *Task) {
	f.rbt.Put(nodeKey{p.Fair.Vruntime, p.ID}, p)
	p.Fair.onTree = true
}

func (f *FairRq) remove(p *Task) {
	if !p.Fair.onTree {
		return
	}
	f.rbt.Remove(nodeKey{p.Fair.Vruntime, p.ID})
	p.Fair.onTree = false
}

// updateMinVruntime keeps minVruntime monotonic while following the smallest
// vruntime among the current task and the tree.
func (f *FairRq) updateMinVruntime() {
	v := f.minVruntime
	have := false
	if f.curr != nil {
		v, have = f.curr.Fair.Vruntime, true
	}
	if first := f.rbt.Left(); first != nil {
		left := first.Key.(nodeKey).vruntime
		if !have || left < v {
			v = left
		}
		have = true
	}
	if have && v > f.minVruntime {
		f.minVruntime = v
	}
}

// Fair is a CFS-like class for SCHED_NORMAL, SCHED_BATCH and SCHED_IDLE. It
// is what the WRR class falls back to when no WRR task is runnable.
type Fair struct {
	logger *slog.Logger
}

func NewFair(logger *slog.Logger) *Fair {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fair{logger: logger.With("component", "fair")}
}

func (c *Fair) Name() string { return "fair" }

func (c *Fair) HandlesPolicy(p Policy) bool {
	return p == PolicyNormal || p == PolicyBatch || p == PolicyIdle
}

func (c *Fair) updateCurr(l *Locked) {
	curr := l.Curr()
	if curr == nil || curr.Class != Class(c) {
		return
	}
	delta := updateExec(l, curr)
	if curr.Fair.Weight == 0 {
		curr.Fair.Weight = niceWeight(curr.Nice)
	}
	curr.Fair.Vruntime += float64(delta) * nice0Weight / curr.Fair.Weight
	l.Fair().updateMinVruntime()
}

func (c *Fair) EnqueueTask(l *Locked, p *Task, _ EnqueueFlags) {
	f := l.Fair()
	c.updateCurr(l)
	if p.Fair.Weight == 0 {
		p.Fair.Weight = niceWeight(p.Nice)
	}
	if p.Fair.Vruntime < f.minVruntime {
		p.Fair.Vruntime = f.minVruntime
	}
	if f.curr != p {
		f.put(p)
	}
	f.nrRunning++
	l.IncNrRunning()
}

func (c *Fair) DequeueTask(l *Locked, p *Task, _ DequeueFlags) {
	f := l.Fair()
	c.updateCurr(l)
	if f.curr == p {
		f.curr = nil
	} else {
		f.remove(p)
	}
	f.nrRunning--
	l.DecNrRunning()
	f.updateMinVruntime()
}

// YieldTask places the running task behind the rightmost waiter.
func (c *Fair) YieldTask(l *Locked) {
	f := l.Fair()
	curr := l.Curr()
	c.updateCurr(l)
	if last := f.rbt.Right(); last != nil {
		if v := last.Key.(nodeKey).vruntime; v >= curr.Fair.Vruntime {
			curr.Fair.Vruntime = v + 1
		}
	}
}

// CheckPreemptCurr preempts when p is behind the current task by more than
// half a slice of weighted runtime.
func (c *Fair) CheckPreemptCurr(l *Locked, p *Task, _ EnqueueFlags) {
	curr := l.Curr()
	if curr == nil || curr.Class != Class(c) {
		return
	}
	c.updateCurr(l)
	gran := float64(l.Fair().slice) / 2
	if p.Fair.Vruntime+gran < curr.Fair.Vruntime {
		l.Resched()
	}
}

func (c *Fair) setNext(l *Locked, p *Task) {
	f := l.Fair()
	f.remove(p)
	f.curr = p
	p.Exec.Start = l.Clock()
	p.Fair.sliceStart = p.Exec.SumRuntime
}

func (c *Fair) PickNextTask(l *Locked) *Task {
	f := l.Fair()
	node := f.rbt.Left()
	if node == nil {
		return nil
	}
	p := node.Value.(*Task)
	c.setNext(l, p)
	f.updateMinVruntime()
	return p
}

func (c *Fair) PutPrevTask(l *Locked, p *Task) {
	f := l.Fair()
	c.updateCurr(l)
	if f.curr != p {
		return
	}
	f.curr = nil
	if p.OnRq {
		f.put(p)
	}
}

func (c *Fair) SetCurrTask(l *Locked) {
	c.setNext(l, l.Curr())
}

// TaskTick preempts once the current task used its slice and someone waits.
func (c *Fair) TaskTick(l *Locked, p *Task, _ bool) {
	f := l.Fair()
	c.updateCurr(l)
	if f.rbt.Empty() {
		return
	}
	if p.Exec.SumRuntime-p.Fair.sliceStart >= f.slice {
		l.Resched()
	}
}

func (c *Fair) TaskFork(p *Task) {
	p.Fair = FairEntity{Weight: niceWeight(p.Nice)}
}

func (c *Fair) SwitchedFrom(*Locked, *Task) {}

func (c *Fair) SwitchedTo(l *Locked, p *Task) {
	if !p.OnRq {
		return
	}
	if l.Curr() == p {
		l.Resched()
		return
	}
	c.CheckPreemptCurr(l, p, 0)
}

func (c *Fair) PrioChanged(l *Locked, p *Task, _ int) {
	p.Fair.Weight = niceWeight(p.Nice)
}

func (c *Fair) GetRRInterval(l *Locked, _ *Task) uint {
	return l.Fair().sliceTicks
}

var _ Class = (*Fair)(nil)

// nodeKey is used as a key in the red-black tree.
type nodeKey struct {
	vruntime float64
	id       TaskID
}

// cmp orders nodeKeys by vruntime, then task ID.
func cmp(a, b any) int {
	ka, kb := a.(nodeKey), b.(nodeKey)
	switch {
	case ka.vruntime < kb.vruntime:
		return -1
	case ka.vruntime > kb.vruntime:
		return 1
	case ka.id < kb.id:
		return -1
	case ka.id > kb.id:
		return 1
	default:
		return 0
	}
}
