// Package sim feeds a workload through the host core one tick at a time.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"wrrsched/internal/core"
	"wrrsched/internal/job"
	"wrrsched/internal/sched"
)

// TaskReport summarizes one task after a run.
type TaskReport struct {
	ID         sched.TaskID
	Name       string
	Policy     sched.Policy
	Group      string
	Weight     sched.Weight
	RanTicks   int64
	Runtime    uint64
	Switches   uint64
	Bursts     int
	Finished   bool
	FinishTick int64
}

type tracked struct {
	task     *sched.Task
	work     *job.Work
	wakeAt   int64 // tick to wake at, -1 when not sleeping
	report   TaskReport
	finished bool
}

// Simulator steps a core through a workload.
type Simulator struct {
	core       *core.Core
	logger     *slog.Logger
	wakeAtHead bool

	pending []job.Spec
	tracked map[sched.TaskID]*tracked
	order   []sched.TaskID
	tick    int64
}

// New prepares a simulation of wl on c.
func New(c *core.Core, wl job.Workload, wakeAtHead bool, logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	pending := make([]job.Spec, len(wl.Tasks))
	copy(pending, wl.Tasks)
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].StartTick < pending[j].StartTick })

	return &Simulator{
		core:       c,
		logger:     logger.With("component", "sim"),
		wakeAtHead: wakeAtHead,
		pending:    pending,
		tracked:    make(map[sched.TaskID]*tracked),
	}
}

// Tick is the number of completed steps.
func (s *Simulator) Tick() int64 { return s.tick }

// Done reports whether every task has started and finished.
func (s *Simulator) Done() bool {
	if len(s.pending) > 0 {
		return false
	}
	for _, t := range s.tracked {
		if !t.finished {
			return false
		}
	}
	return true
}

func (s *Simulator) spawnDue() error {
	for len(s.pending) > 0 && s.pending[0].StartTick <= s.tick {
		spec := s.pending[0]
		s.pending = s.pending[1:]

		policy, err := spec.SchedPolicy()
		if err != nil {
			return err
		}
		p, err := s.core.Spawn(core.TaskSpec{
			Name:     spec.Name,
			Policy:   policy,
			Priority: spec.Priority,
			Nice:     spec.Nice,
			Group:    spec.Group,
			CPU:      spec.CPU,
		})
		if err != nil {
			return fmt.Errorf("spawn %s: %w", spec.Name, err)
		}
		s.tracked[p.ID] = &tracked{
			task:   p,
			work:   spec.Work(),
			wakeAt: -1,
			report: TaskReport{ID: p.ID, Name: p.Name, Group: p.GroupPath()},
		}
		s.order = append(s.order, p.ID)
	}
	return nil
}

func (s *Simulator) wakeDue() error {
	for _, id := range s.order {
		t := s.tracked[id]
		if t.finished || t.wakeAt < 0 || t.wakeAt > s.tick {
			continue
		}
		t.wakeAt = -1
		if err := s.core.Wake(id, s.wakeAtHead); err != nil {
			return err
		}
	}
	return nil
}

// Step advances the simulation by one tick on every CPU.
func (s *Simulator) Step() error {
	if err := s.spawnDue(); err != nil {
		return err
	}
	if err := s.wakeDue(); err != nil {
		return err
	}

	for cpu := 0; cpu < s.core.NumCPU(); cpu++ {
		curr, err := s.core.Current(cpu)
		if err != nil {
			return err
		}
		if err := s.core.Tick(cpu); err != nil {
			return err
		}
		t, ok := s.tracked[curr.ID]
		if !ok || t.finished {
			continue
		}
		t.report.RanTicks++

		switch t.work.Consume(1) {
		case job.PhaseDone:
			t.finished = true
			t.report.Finished = true
			t.report.FinishTick = s.tick + 1
			s.snapshot(t)
			if err := s.core.Exit(curr.ID); err != nil {
				return err
			}
			s.logger.Debug("task finished", "task_id", curr.ID, "tick", s.tick+1)
		case job.PhaseSleep:
			t.wakeAt = s.tick + 1 + t.work.SleepTicks
			if err := s.core.Block(curr.ID); err != nil {
				return err
			}
		}
	}

	s.tick++
	return nil
}

// Run steps until ticks steps have run, the workload is done or ctx ends.
// ticks <= 0 runs until the workload is done.
func (s *Simulator) Run(ctx context.Context, ticks int64) error {
	s.logger.Info("simulation started", "tasks", len(s.pending), "cpus", s.core.NumCPU())
	for ticks <= 0 || s.tick < ticks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.Done() {
			break
		}
		if err := s.Step(); err != nil {
			return err
		}
	}
	s.logger.Info("simulation stopped", "ticks", s.tick)
	return nil
}

// RunRealtime is Run paced by a TickClock at the core's tick length.
func (s *Simulator) RunRealtime(ctx context.Context, ticks int64) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	clock := NewTickClock(16)
	clock.Start(ctx, s.core.TickLength())

	s.logger.Info("simulation started", "tasks", len(s.pending), "cpus", s.core.NumCPU(), "realtime", true)
	for ticks <= 0 || s.tick < ticks {
		if s.Done() {
			break
		}
		if _, ok := <-clock.Ch; !ok {
			return ctx.Err()
		}
		if err := s.Step(); err != nil {
			return err
		}
	}
	s.logger.Info("simulation stopped", "ticks", s.tick, "clock_ticks", clock.Count())
	return nil
}

func (s *Simulator) snapshot(t *tracked) {
	p := t.task
	t.report.Policy = p.Policy
	t.report.Weight = p.WRR.Weight
	t.report.Runtime = p.Exec.SumRuntime
	t.report.Switches = p.Exec.Switches
	t.report.Bursts = t.work.Completed()
}

// Report returns per-task statistics in spawn order.
func (s *Simulator) Report() []TaskReport {
	out := make([]TaskReport, 0, len(s.order))
	for _, id := range s.order {
		t := s.tracked[id]
		if !t.finished {
			_ = s.core.Inspect(t.task.CPU, func(*sched.Locked) { s.snapshot(t) })
		}
		out = append(out, t.report)
	}
	return out
}
