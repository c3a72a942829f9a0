package job

// Phase is what a task does after consuming some ticks.
type Phase int

const (
	PhaseRunning Phase = iota // still inside its run burst
	PhaseSleep                // burst over, the task blocks for SleepTicks
	PhaseDone                 // last burst over, the task exits
)

func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhaseSleep:
		return "sleep"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// Work is a synthetic CPU-bound task: Cycles bursts of RunTicks separated by
// SleepTicks of blocking. Cycles < 0 repeats forever; 0 means one burst.
type Work struct {
	RunTicks   int64
	SleepTicks int64
	Cycles     int

	remaining int64 // ticks left in the current burst
	completed int   // bursts finished
}

// Burst returns a work item that starts at the beginning of its first burst.
func Burst(runTicks, sleepTicks int64, cycles int) *Work {
	if runTicks <= 0 {
		runTicks = 1
	}
	if sleepTicks < 0 {
		sleepTicks = 0
	}
	if cycles == 0 {
		cycles = 1
	}
	return &Work{
		RunTicks:   runTicks,
		SleepTicks: sleepTicks,
		Cycles:     cycles,
		remaining:  runTicks,
	}
}

// Consume charges ticks of CPU time to the current burst.
func (w *Work) Consume(ticks int64) Phase {
	if w.Done() {
		return PhaseDone
	}
	w.remaining -= ticks
	if w.remaining > 0 {
		return PhaseRunning
	}

	w.completed++
	w.remaining = w.RunTicks
	if w.Done() {
		return PhaseDone
	}
	if w.SleepTicks == 0 {
		return PhaseRunning
	}
	return PhaseSleep
}

// Done reports whether every burst has run.
func (w *Work) Done() bool {
	return w.Cycles >= 0 && w.completed >= max(w.Cycles, 1)
}

// Completed is the number of finished bursts.
func (w *Work) Completed() int { return w.completed }

// Remaining is the number of ticks left in the current burst.
func (w *Work) Remaining() int64 { return w.remaining }
