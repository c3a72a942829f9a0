package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"wrrsched/internal/core"
	"wrrsched/internal/sched"
)

func newIntervalCmd() *cobra.Command {
	var (
		group    string
		priority int
	)

	cmd := &cobra.Command{
		Use:   "interval",
		Short: "Print the SCHED_WRR quantum of a task in a group",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			c := core.New(cfg, logger, nil)
			p, err := c.Spawn(core.TaskSpec{
				Name:     "probe",
				Policy:   sched.PolicyWRR,
				Priority: priority,
				Group:    group,
			})
			if err != nil {
				return err
			}
			d, err := c.RRInterval(p.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "group=%s weight=%d timeslice=%d ticks interval=%s\n",
				p.GroupPath(), p.WRR.Weight, p.WRR.TimeSlice, d)
			return nil
		},
	}

	cmd.Flags().StringVarP(&group, "group", "g", "/", "Task group path")
	cmd.Flags().IntVarP(&priority, "priority", "p", 0, "SCHED_WRR priority (0-99)")
	return cmd
}
