package trace

import (
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"wrrsched/internal/sched"
)

// Recorder is a sched.Observer that streams events through a buffered
// channel to its sinks on a separate goroutine.
type Recorder struct {
	events chan sched.StatusEvent
	done   chan struct{}
	sinks  []Sink
	logger *slog.Logger

	written int
	failed  int
}

// NewRecorder starts the consumer goroutine. Observe must not be called
// after Close.
func NewRecorder(logger *slog.Logger, sinks ...Sink) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		events: make(chan sched.StatusEvent, 256), // buffered channel for status events
		done:   make(chan struct{}),
		sinks:  sinks,
		logger: logger.With("component", "trace"),
	}
	go r.run()
	return r
}

func (r *Recorder) Observe(ev sched.StatusEvent) {
	r.events <- ev
}

func (r *Recorder) run() {
	defer close(r.done)
	for ev := range r.events {
		for _, s := range r.sinks {
			if err := s.Write(ev); err != nil {
				r.failed++
				r.logger.Warn("sink write failed", "event", ev.Kind, "task_id", ev.TaskID, "err", err)
				continue
			}
			r.written++
		}
	}
}

// Close drains pending events and closes every sink.
func (r *Recorder) Close() error {
	close(r.events)
	<-r.done

	var result *multierror.Error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if r.failed > 0 {
		r.logger.Warn("trace incomplete", "written", r.written, "failed", r.failed)
	}
	return result.ErrorOrNil()
}
