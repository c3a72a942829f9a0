package sim

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wrrsched/internal/core"
	"wrrsched/internal/job"
	"wrrsched/internal/logging"
	"wrrsched/internal/sched"
)

// newCore gives 20-tick slices to "/" and 2-tick slices to the background
// group.
func newCore(t *testing.T) *core.Core {
	t.Helper()
	cfg := sched.DefaultConfig()
	cfg.WRR.Timeslice = 2
	return core.New(cfg, logging.Discard(), nil)
}

func byName(reports []TaskReport) map[string]TaskReport {
	out := make(map[string]TaskReport, len(reports))
	for _, r := range reports {
		out[r.Name] = r
	}
	return out
}

func TestSimulator_WeightedShareAndFallback(t *testing.T) {
	wl := job.Workload{Tasks: []job.Spec{
		{Name: "fg", Group: "/", RunTicks: 40},
		{Name: "bg", Group: "/bg_non_interactive", RunTicks: 40},
		{Name: "normal", Policy: "normal", RunTicks: 5},
	}}
	s := New(newCore(t), wl, false, logging.Discard())

	require.NoError(t, s.Run(context.Background(), 0))
	assert.True(t, s.Done())
	assert.Equal(t, int64(85), s.Tick())

	reports := s.Report()
	require.Len(t, reports, 3)
	assert.Equal(t, "fg", reports[0].Name)

	r := byName(reports)
	assert.Equal(t, int64(42), r["fg"].FinishTick)
	assert.Equal(t, int64(80), r["bg"].FinishTick)
	assert.Equal(t, int64(85), r["normal"].FinishTick)

	assert.Equal(t, int64(40), r["fg"].RanTicks)
	assert.Equal(t, int64(40), r["bg"].RanTicks)
	assert.Equal(t, int64(5), r["normal"].RanTicks)

	assert.Equal(t, sched.Weight(10), r["fg"].Weight)
	assert.Equal(t, sched.Weight(1), r["bg"].Weight)
	assert.Equal(t, sched.PolicyNormal, r["normal"].Policy)
	for _, rep := range reports {
		assert.True(t, rep.Finished, rep.Name)
	}
}

func TestSimulator_OmittedCyclesFinish(t *testing.T) {
	wl, err := job.Parse([]byte("tasks:\n  - name: fg\n    group: /\n    run_ticks: 40\n"))
	require.NoError(t, err)
	s := New(newCore(t), wl, false, logging.Discard())

	require.NoError(t, s.Run(context.Background(), 10000))
	assert.True(t, s.Done())
	assert.Equal(t, int64(40), s.Tick())

	r := s.Report()[0]
	assert.True(t, r.Finished)
	assert.Equal(t, int64(40), r.FinishTick)
	assert.Equal(t, 1, r.Bursts)
}

func TestSimulator_SleepAndWake(t *testing.T) {
	wl := job.Workload{Tasks: []job.Spec{
		{Name: "sleeper", RunTicks: 3, SleepTicks: 5, Cycles: 2},
	}}
	s := New(newCore(t), wl, false, logging.Discard())

	require.NoError(t, s.Run(context.Background(), 0))

	r := s.Report()[0]
	assert.True(t, r.Finished)
	assert.Equal(t, int64(11), r.FinishTick)
	assert.Equal(t, int64(6), r.RanTicks)
	assert.Equal(t, 2, r.Bursts)
	assert.Equal(t, uint64(2), r.Switches)
	assert.Equal(t, uint64(6*time.Millisecond), r.Runtime)
}

func TestSimulator_StopsAtTickLimit(t *testing.T) {
	wl := job.Workload{Tasks: []job.Spec{
		{Name: "spinner", RunTicks: 10, Cycles: -1},
		{Name: "late", RunTicks: 1, StartTick: 100},
	}}
	s := New(newCore(t), wl, false, logging.Discard())

	require.NoError(t, s.Run(context.Background(), 50))
	assert.False(t, s.Done())
	assert.Equal(t, int64(50), s.Tick())

	reports := s.Report()
	require.Len(t, reports, 1, "late has not started yet")
	assert.False(t, reports[0].Finished)
	assert.Equal(t, int64(50), reports[0].RanTicks)
	assert.Equal(t, 5, reports[0].Bursts)
}

func TestSimulator_SpawnError(t *testing.T) {
	wl := job.Workload{Tasks: []job.Spec{
		{Name: "fifo", Policy: "fifo", RunTicks: 1},
	}}
	s := New(newCore(t), wl, false, logging.Discard())

	err := s.Run(context.Background(), 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidPolicy)
}

func TestSimulator_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	wl := job.Workload{Tasks: []job.Spec{{Name: "a", RunTicks: 1}}}
	s := New(newCore(t), wl, false, logging.Discard())
	assert.ErrorIs(t, s.Run(ctx, 0), context.Canceled)
}

func TestSimulator_RunRealtime(t *testing.T) {
	wl := job.Workload{Tasks: []job.Spec{{Name: "spinner", RunTicks: 5, Cycles: -1}}}
	s := New(newCore(t), wl, false, logging.Discard())

	require.NoError(t, s.RunRealtime(context.Background(), 3))
	assert.Equal(t, int64(3), s.Tick())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	s = New(newCore(t), wl, false, logging.Discard())
	assert.ErrorIs(t, s.RunRealtime(ctx, 0), context.DeadlineExceeded)
}

func TestTickClock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := NewTickClock(4)
	c.Start(ctx, time.Millisecond)

	assert.Equal(t, int64(1), <-c.Ch)
	assert.Equal(t, int64(2), <-c.Ch)
	cancel()

	for range c.Ch {
	}
	assert.GreaterOrEqual(t, c.Count(), int64(2))
}

func TestWriteReport(t *testing.T) {
	reports := []TaskReport{
		{ID: 1, Name: "fg", Policy: sched.PolicyWRR, Group: "/", Weight: 10, RanTicks: 1200, Runtime: uint64(1200 * time.Millisecond), Switches: 3, Bursts: 1, Finished: true, FinishTick: 1500},
		{ID: 2, Name: "bg", Policy: sched.PolicyWRR, Group: "/bg_non_interactive", Weight: 1, RanTicks: 300},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, reports, 1500))

	out := buf.String()
	assert.Contains(t, out, "SHARE")
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "80.0%")
	assert.Contains(t, out, "20.0%")
	assert.Contains(t, out, "finished@1,500")
	assert.Contains(t, out, "1.2s")
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "SCHED_WRR")
}
