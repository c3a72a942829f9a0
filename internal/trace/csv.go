package trace

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"wrrsched/internal/sched"
)

var csvHeader = []string{"clock_ns", "cpu", "event", "task_id", "policy", "level", "time_slice", "weight", "runtime_ns", "vruntime"}

// CSV writes events to a CSV file, one row per event.
type CSV struct {
	f *os.File
	w *csv.Writer
}

// NewCSV creates path and writes the header.
func NewCSV(path string) (*CSV, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create csv %s: %w", path, err)
	}
	w := csv.NewWriter(f)

	// write header
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return nil, err
	}
	w.Flush()
	return &CSV{f: f, w: w}, nil
}

func (c *CSV) Write(ev sched.StatusEvent) error {
	return c.w.Write([]string{
		strconv.FormatInt(int64(ev.Clock), 10),
		strconv.Itoa(ev.CPU),
		ev.Kind.String(),
		strconv.FormatUint(uint64(ev.TaskID), 10),
		ev.Policy.String(),
		strconv.Itoa(ev.Level),
		strconv.FormatUint(uint64(ev.TimeSlice), 10),
		strconv.FormatUint(uint64(ev.Weight), 10),
		strconv.FormatUint(ev.Runtime, 10),
		fmt.Sprintf("%.4f", ev.Vruntime),
	})
}

func (c *CSV) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.f.Close()
		return err
	}
	return c.f.Close()
}
