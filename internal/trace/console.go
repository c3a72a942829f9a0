package trace

import (
	"fmt"
	"io"
	"strings"
	"time"

	"wrrsched/internal/sched"
)

// Console prints one line per event. Tick events are skipped unless
// ShowTicks is set.
type Console struct {
	w         io.Writer
	ShowTicks bool
	ran       map[sched.TaskID]uint64
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w, ran: make(map[sched.TaskID]uint64)}
}

// center pads str on both sides to width.
func center(str string, width int) string {
	if len(str) >= width {
		return str
	}
	spaces := (width - len(str)) / 2
	return strings.Repeat(" ", spaces) + str + strings.Repeat(" ", width-(spaces+len(str)))
}

func (c *Console) Write(ev sched.StatusEvent) error {
	if ev.Kind == sched.StatusTick {
		c.ran[ev.TaskID]++
		if !c.ShowTicks {
			return nil
		}
	}

	_, err := fmt.Fprintf(c.w, "%12s cpu%d [%s] => Task: %04d %-11s level=%03d slice=%05d weight=%02d ran=%06d runtime=%s\n",
		ev.Clock.Truncate(time.Microsecond),
		ev.CPU,
		center(ev.Kind.String(), 14),
		ev.TaskID,
		ev.Policy,
		ev.Level,
		ev.TimeSlice,
		ev.Weight,
		c.ran[ev.TaskID],
		time.Duration(ev.Runtime),
	)
	return err
}

func (c *Console) Close() error { return nil }
