package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"wrrsched/internal/core"
	"wrrsched/internal/job"
	"wrrsched/internal/sim"
	"wrrsched/internal/trace"
)

func newRunCmd() *cobra.Command {
	var (
		workload string
		ticks    int64
		csvPath  string
		dbPath   string
		realtime bool
		quiet    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate a workload file",
		Example: `  wrrsched run --workload workload.yml --ticks 5000
  wrrsched run --workload workload.yml --csv trace.csv --db trace.db --quiet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			wl, err := job.Load(workload)
			if err != nil {
				return err
			}

			var sinks []trace.Sink
			fail := func(err error) error {
				for _, s := range sinks {
					s.Close()
				}
				return err
			}
			if !quiet {
				sinks = append(sinks, trace.NewConsole(cmd.OutOrStdout()))
			}
			if csvPath != "" {
				s, err := trace.NewCSV(csvPath)
				if err != nil {
					return fail(err)
				}
				sinks = append(sinks, s)
			}
			if dbPath != "" {
				s, err := trace.NewSQLite(cmd.Context(), dbPath)
				if err != nil {
					return fail(err)
				}
				logger.Info("recording trace", "db", dbPath, "run_id", s.RunID())
				sinks = append(sinks, s)
			}
			rec := trace.NewRecorder(logger, sinks...)

			c := core.New(cfg, logger, rec)
			s := sim.New(c, wl, cfg.WRR.WakeAtHead, logger)
			if realtime {
				err = s.RunRealtime(cmd.Context(), ticks)
			} else {
				err = s.Run(cmd.Context(), ticks)
			}
			if cerr := rec.Close(); cerr != nil && err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout())
			return sim.WriteReport(cmd.OutOrStdout(), s.Report(), s.Tick())
		},
	}

	cmd.Flags().StringVarP(&workload, "workload", "w", "", "Workload YAML file (required)")
	cmd.Flags().Int64Var(&ticks, "ticks", 0, "Stop after this many ticks (0 = until the workload finishes)")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Write the event trace to this CSV file")
	cmd.Flags().StringVar(&dbPath, "db", "", "Append the event trace to this SQLite database")
	cmd.Flags().BoolVar(&realtime, "realtime", false, "Pace ticks with the wall clock")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print events")
	_ = cmd.MarkFlagRequired("workload")

	return cmd
}
