package job

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wrrsched/internal/sched"
)

const sampleWorkload = `
tasks:
  - name: late
    policy: normal
    nice: 5
    start_tick: 10
    run_ticks: 100
  - name: fg
    group: /
    run_ticks: 300
    sleep_ticks: 50
    cycles: 2
  - name: bg
    policy: wrr
    priority: 3
    group: /bg_non_interactive
    run_ticks: 200
`

func TestParse(t *testing.T) {
	wl, err := Parse([]byte(sampleWorkload))
	require.NoError(t, err)
	require.Len(t, wl.Tasks, 3)

	names := []string{wl.Tasks[0].Name, wl.Tasks[1].Name, wl.Tasks[2].Name}
	assert.Equal(t, []string{"fg", "bg", "late"}, names, "stable order by start tick")

	fg := wl.Tasks[0]
	policy, err := fg.SchedPolicy()
	require.NoError(t, err)
	assert.Equal(t, sched.PolicyWRR, policy)
	w := fg.Work()
	assert.Equal(t, int64(300), w.RunTicks)
	assert.Equal(t, int64(50), w.SleepTicks)
	assert.Equal(t, 2, w.Cycles)

	bg := wl.Tasks[1]
	assert.Equal(t, 0, bg.Cycles)
	assert.Equal(t, 1, bg.Work().Cycles, "omitted cycles run one burst")
	assert.Equal(t, 3, bg.Priority)
	assert.Equal(t, "/bg_non_interactive", bg.Group)

	late := wl.Tasks[2]
	policy, err = late.SchedPolicy()
	require.NoError(t, err)
	assert.Equal(t, sched.PolicyNormal, policy)
	assert.Equal(t, 5, late.Nice)
	assert.Equal(t, int64(10), late.StartTick)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"policy", "tasks:\n  - name: x\n    policy: deadline\n    run_ticks: 1\n", "unknown scheduling policy"},
		{"run ticks", "tasks:\n  - name: x\n    run_ticks: 0\n", "run_ticks must be positive"},
		{"start tick", "tasks:\n  - name: x\n    run_ticks: 1\n    start_tick: -1\n", "start_tick must not be negative"},
		{"yaml", "tasks: [", "parse workload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workload.yml")
	require.NoError(t, os.WriteFile(path, []byte(sampleWorkload), 0o644))

	wl, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, wl.Tasks, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
