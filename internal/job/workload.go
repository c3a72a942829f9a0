package job

import (
	"fmt"
	"os"
	"sort"

	yaml "github.com/goccy/go-yaml"

	"wrrsched/internal/sched"
)

// Spec is one task of a workload file.
type Spec struct {
	Name       string `yaml:"name"`
	Policy     string `yaml:"policy"`   // wrr, normal, batch, idle
	Priority   int    `yaml:"priority"` // rt priority for wrr
	Nice       int    `yaml:"nice"`
	Group      string `yaml:"group"` // e.g. "/" or "/bg_non_interactive"
	CPU        int    `yaml:"cpu"`
	StartTick  int64  `yaml:"start_tick"`
	RunTicks   int64  `yaml:"run_ticks"`
	SleepTicks int64  `yaml:"sleep_ticks"`
	Cycles     int    `yaml:"cycles"` // bursts; omitted = 1, negative = forever
}

// Workload mirrors a workload YAML file.
type Workload struct {
	Tasks []Spec `yaml:"tasks"`
}

// SchedPolicy parses the policy name; an empty name means wrr.
func (s Spec) SchedPolicy() (sched.Policy, error) {
	if s.Policy == "" {
		return sched.PolicyWRR, nil
	}
	return sched.ParsePolicy(s.Policy)
}

// Work builds the synthetic work item for the spec.
func (s Spec) Work() *Work {
	return Burst(s.RunTicks, s.SleepTicks, s.Cycles)
}

// Parse decodes a workload and orders its tasks by start tick.
func Parse(data []byte) (Workload, error) {
	var wl Workload
	if err := yaml.Unmarshal(data, &wl); err != nil {
		return Workload{}, fmt.Errorf("parse workload: %w", err)
	}
	for i, s := range wl.Tasks {
		if _, err := s.SchedPolicy(); err != nil {
			return Workload{}, fmt.Errorf("task %d (%s): %w", i, s.Name, err)
		}
		if s.RunTicks <= 0 {
			return Workload{}, fmt.Errorf("task %d (%s): run_ticks must be positive", i, s.Name)
		}
		if s.StartTick < 0 {
			return Workload{}, fmt.Errorf("task %d (%s): start_tick must not be negative", i, s.Name)
		}
	}
	sort.SliceStable(wl.Tasks, func(i, j int) bool {
		return wl.Tasks[i].StartTick < wl.Tasks[j].StartTick
	})
	return wl, nil
}

// Load reads a workload file.
func Load(path string) (Workload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Workload{}, fmt.Errorf("read workload %s: %w", path, err)
	}
	return Parse(data)
}
