// Package core is the host side of the scheduler: it owns the per-CPU run
// queues, the ordered chain of scheduling classes and the task table, and
// drives the classes through their callbacks.
package core

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"wrrsched/internal/sched"
)

var (
	ErrNoSuchTask      = errors.New("no such task")
	ErrInvalidPolicy   = errors.New("invalid scheduling policy")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidCPU      = errors.New("invalid cpu")
)

// TaskSpec describes a task to spawn.
type TaskSpec struct {
	Name     string
	Policy   sched.Policy
	Priority int // rt priority for realtime-style policies
	Nice     int
	Group    string
	CPU      int
}

// Core is the host scheduler core.
type Core struct {
	cfg     sched.Config
	tick    time.Duration
	classes []sched.Class // highest priority first
	rqs     []*sched.Rq
	logger  *slog.Logger

	mu     sync.Mutex // protects tasks, groups and nextID
	tasks  map[sched.TaskID]*sched.Task
	groups map[string]*sched.TaskGroup
	nextID sched.TaskID
}

// New creates a core with the class chain WRR -> fair -> idle and one run
// queue per configured CPU. Unset config fields take their defaults; obs may
// be nil.
func New(cfg sched.Config, logger *slog.Logger, obs sched.Observer) *Core {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.Normalized()
	c := &Core{
		cfg:  cfg,
		tick: cfg.Tick(),
		classes: []sched.Class{
			sched.NewWRR(logger),
			sched.NewFair(logger),
			sched.Idle,
		},
		logger: logger.With("component", "core"),
		tasks:  make(map[sched.TaskID]*sched.Task),
		groups: make(map[string]*sched.TaskGroup),
		nextID: sched.IdleTaskID + 1,
	}

	tickNs := uint64(c.tick)
	for cpu := 0; cpu < cfg.CPUs; cpu++ {
		rq := sched.NewRq(cpu,
			sched.NewWRRRq(cfg.Quantum(), nil),
			sched.NewFairRq(uint(cfg.SliceTicks), tickNs),
			obs)
		l := rq.Lock()
		c.eachSMP(func(s sched.SMPClass) { s.RqOnline(l) })
		l.Unlock()
		c.rqs = append(c.rqs, rq)
	}
	return c
}

// Classes returns the class chain in priority order.
func (c *Core) Classes() []sched.Class { return c.classes }

// NumCPU is the number of run queues.
func (c *Core) NumCPU() int { return len(c.rqs) }

// TickLength is the duration of one tick.
func (c *Core) TickLength() time.Duration { return c.tick }

func (c *Core) eachSMP(fn func(sched.SMPClass)) {
	for _, class := range c.classes {
		if s, ok := class.(sched.SMPClass); ok {
			fn(s)
		}
	}
}

func (c *Core) classFor(p sched.Policy) (sched.Class, error) {
	for _, class := range c.classes {
		if class.HandlesPolicy(p) {
			return class, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrInvalidPolicy, p)
}

func (c *Core) rank(class sched.Class) int {
	for i, cl := range c.classes {
		if cl == class {
			return i
		}
	}
	return len(c.classes)
}

func (c *Core) group(path string) *sched.TaskGroup {
	if path == "" {
		path = "/"
	}
	g, ok := c.groups[path]
	if !ok {
		g = sched.NewTaskGroup(path)
		c.groups[path] = g
	}
	return g
}

func (c *Core) lookup(id sched.TaskID) (*sched.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %d: %w", id, ErrNoSuchTask)
	}
	return p, nil
}

func validParam(policy sched.Policy, prio int) error {
	if policy.RealtimeStyle() {
		if prio < 0 || prio > sched.MaxRTPrio-1 {
			return fmt.Errorf("%w: %d not in [0,%d] for %s", ErrInvalidPriority, prio, sched.MaxRTPrio-1, policy)
		}
		return nil
	}
	if prio != 0 {
		return fmt.Errorf("%w: %s takes priority 0, got %d", ErrInvalidPriority, policy, prio)
	}
	return nil
}

// Spawn creates a task and makes it runnable on its CPU.
func (c *Core) Spawn(spec TaskSpec) (*sched.Task, error) {
	class, err := c.classFor(spec.Policy)
	if err != nil {
		return nil, err
	}
	if err := validParam(spec.Policy, spec.Priority); err != nil {
		return nil, err
	}
	if spec.CPU < 0 || spec.CPU >= len(c.rqs) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCPU, spec.CPU)
	}

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	name := spec.Name
	if name == "" {
		name = fmt.Sprintf("task-%d", id)
	}
	p := sched.NewTask(id, name, spec.Policy, spec.Priority, spec.Nice, c.group(spec.Group))
	c.tasks[id] = p
	c.mu.Unlock()

	p.Class = class
	class.TaskFork(p)
	p.CPU = spec.CPU
	if s, ok := class.(sched.SMPClass); ok {
		p.CPU = s.SelectTaskRq(p, spec.CPU, 0)
	}

	l := c.rqs[p.CPU].Lock()
	defer l.Unlock()
	c.activate(l, p, 0)
	c.checkPreemptCurr(l, p, 0)
	c.maybeSchedule(l)

	c.logger.Debug("spawned", "task_id", p.ID, "name", p.Name, "policy", p.Policy, "prio", p.Prio, "group", p.GroupPath())
	return p, nil
}

func (c *Core) activate(l *sched.Locked, p *sched.Task, flags sched.EnqueueFlags) {
	p.Class.EnqueueTask(l, p, flags)
	p.OnRq = true
	l.Emit(sched.StatusEnqueue, p)
}

func (c *Core) deactivate(l *sched.Locked, p *sched.Task, flags sched.DequeueFlags) {
	p.Class.DequeueTask(l, p, flags)
	p.OnRq = false
	l.Emit(sched.StatusDequeue, p)
}

// checkPreemptCurr lets the class decide between peers; a task of a higher
// class always preempts.
func (c *Core) checkPreemptCurr(l *sched.Locked, p *sched.Task, flags sched.EnqueueFlags) {
	curr := l.Curr()
	if curr == p {
		return
	}
	if p.Class == curr.Class {
		p.Class.CheckPreemptCurr(l, p, flags)
	} else if c.rank(p.Class) < c.rank(curr.Class) {
		l.Resched()
	}
}

func (c *Core) maybeSchedule(l *sched.Locked) {
	curr := l.Curr()
	if curr.NeedResched || !curr.OnRq {
		c.schedule(l)
	}
}

// schedule puts the current task back and picks the first task offered by
// the class chain.
func (c *Core) schedule(l *sched.Locked) *sched.Task {
	prev := l.Curr()
	c.eachSMP(func(s sched.SMPClass) { s.PreSchedule(l, prev) })

	prev.Class.PutPrevTask(l, prev)

	var next *sched.Task
	for _, class := range c.classes {
		if next = class.PickNextTask(l); next != nil {
			break
		}
	}
	prev.NeedResched = false

	if next != prev {
		l.SetCurr(next)
		next.Exec.Switches++
		if next.ID == sched.IdleTaskID {
			l.Emit(sched.StatusIdle, next)
		} else {
			l.Emit(sched.StatusDispatch, next)
		}
	}

	c.eachSMP(func(s sched.SMPClass) { s.PostSchedule(l) })
	return next
}

func (c *Core) rq(cpu int) (*sched.Rq, error) {
	if cpu < 0 || cpu >= len(c.rqs) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCPU, cpu)
	}
	return c.rqs[cpu], nil
}

// Schedule forces a scheduling decision on cpu and returns the task now
// running there.
func (c *Core) Schedule(cpu int) (*sched.Task, error) {
	rq, err := c.rq(cpu)
	if err != nil {
		return nil, err
	}
	l := rq.Lock()
	defer l.Unlock()
	return c.schedule(l), nil
}

// Current returns the task running on cpu.
func (c *Core) Current(cpu int) (*sched.Task, error) {
	rq, err := c.rq(cpu)
	if err != nil {
		return nil, err
	}
	l := rq.Lock()
	defer l.Unlock()
	return l.Curr(), nil
}

// Tick advances the clock of cpu by one tick, lets the current task's class
// account for it and reschedules if asked to.
func (c *Core) Tick(cpu int) error {
	rq, err := c.rq(cpu)
	if err != nil {
		return err
	}
	l := rq.Lock()
	defer l.Unlock()

	l.AdvanceClock(uint64(c.tick))
	curr := l.Curr()
	curr.Class.TaskTick(l, curr, false)
	l.Emit(sched.StatusTick, curr)
	if curr.NeedResched {
		c.schedule(l)
	}
	return nil
}

// Yield gives up the CPU on behalf of the task running on cpu.
func (c *Core) Yield(cpu int) error {
	rq, err := c.rq(cpu)
	if err != nil {
		return err
	}
	l := rq.Lock()
	defer l.Unlock()

	curr := l.Curr()
	curr.Class.YieldTask(l)
	l.Emit(sched.StatusYield, curr)
	c.schedule(l)
	return nil
}

// Wake makes a blocked task runnable again. With head set a WRR task goes
// in front of its level.
func (c *Core) Wake(id sched.TaskID, head bool) error {
	p, err := c.lookup(id)
	if err != nil {
		return err
	}
	l := c.rqs[p.CPU].Lock()
	defer l.Unlock()

	if p.OnRq {
		return nil
	}
	flags := sched.EnqueueWakeup
	if head {
		flags |= sched.EnqueueHead
	}
	c.activate(l, p, flags)
	l.Emit(sched.StatusWake, p)
	if s, ok := p.Class.(sched.SMPClass); ok {
		s.TaskWoken(l, p)
	}
	c.checkPreemptCurr(l, p, flags)
	c.maybeSchedule(l)
	return nil
}

// Block takes a task off its run queue, as when it waits for something.
func (c *Core) Block(id sched.TaskID) error {
	p, err := c.lookup(id)
	if err != nil {
		return err
	}
	l := c.rqs[p.CPU].Lock()
	defer l.Unlock()

	if !p.OnRq {
		return nil
	}
	c.deactivate(l, p, sched.DequeueSleep)
	l.Emit(sched.StatusBlock, p)
	c.maybeSchedule(l)
	return nil
}

// Exit removes a task for good.
func (c *Core) Exit(id sched.TaskID) error {
	p, err := c.lookup(id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.tasks, id)
	c.mu.Unlock()

	l := c.rqs[p.CPU].Lock()
	defer l.Unlock()

	if p.OnRq {
		c.deactivate(l, p, 0)
	}
	l.Emit(sched.StatusFinish, p)
	c.maybeSchedule(l)
	return nil
}

// SetScheduler changes the policy and priority of a task, moving it between
// classes when needed.
func (c *Core) SetScheduler(id sched.TaskID, policy sched.Policy, prio int) error {
	p, err := c.lookup(id)
	if err != nil {
		return err
	}
	class, err := c.classFor(policy)
	if err != nil {
		return err
	}
	if err := validParam(policy, prio); err != nil {
		return err
	}

	l := c.rqs[p.CPU].Lock()
	defer l.Unlock()

	onRq := p.OnRq
	running := l.Curr() == p
	if onRq {
		p.Class.DequeueTask(l, p, 0)
	}
	if running {
		p.Class.PutPrevTask(l, p)
	}

	prevClass, oldPrio := p.Class, p.Prio
	p.Policy = policy
	if policy.RealtimeStyle() {
		p.RTPriority = prio
	}
	p.Prio = sched.NormalPrio(policy, p.RTPriority, p.Nice)
	p.Class = class

	if running {
		class.SetCurrTask(l)
	}
	if onRq {
		class.EnqueueTask(l, p, 0)
	}

	if prevClass != class {
		prevClass.SwitchedFrom(l, p)
		class.SwitchedTo(l, p)
	} else if oldPrio != p.Prio {
		class.PrioChanged(l, p, oldPrio)
	}
	l.Emit(sched.StatusPolicyChange, p)
	c.logger.Debug("policy changed", "task_id", p.ID, "policy", p.Policy, "prio", p.Prio, "from", prevClass.Name(), "to", class.Name())

	c.maybeSchedule(l)
	return nil
}

// GetScheduler returns the policy of a task.
func (c *Core) GetScheduler(id sched.TaskID) (sched.Policy, error) {
	p, err := c.lookup(id)
	if err != nil {
		return 0, err
	}
	l := c.rqs[p.CPU].Lock()
	defer l.Unlock()
	return p.Policy, nil
}

// RRInterval returns the quantum of a task.
func (c *Core) RRInterval(id sched.TaskID) (time.Duration, error) {
	p, err := c.lookup(id)
	if err != nil {
		return 0, err
	}
	l := c.rqs[p.CPU].Lock()
	defer l.Unlock()
	return time.Duration(p.Class.GetRRInterval(l, p)) * c.tick, nil
}

// Task returns a task by id.
func (c *Core) Task(id sched.TaskID) (*sched.Task, error) {
	return c.lookup(id)
}

// Tasks returns every live task.
func (c *Core) Tasks() []*sched.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*sched.Task, 0, len(c.tasks))
	for _, p := range c.tasks {
		out = append(out, p)
	}
	return out
}

// Inspect runs fn with the run queue of cpu locked.
func (c *Core) Inspect(cpu int, fn func(l *sched.Locked)) error {
	rq, err := c.rq(cpu)
	if err != nil {
		return err
	}
	l := rq.Lock()
	defer l.Unlock()
	fn(l)
	return nil
}
