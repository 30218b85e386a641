package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dataclean/internal/logging"
	"dataclean/internal/runner"
)

func newRunCmd(g *globalFlags) *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a cleaning job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			job, env, err := loadJob(cmd, cfgPath)
			if err != nil {
				return err
			}

			log := g.logger(job.Logging)
			ctx := cmd.Context()
			closeMetrics := g.setupMetrics(ctx, job.Job, env, log)
			defer closeMetrics()

			runLog, _ := logging.ForRun(log, job.Job)
			runLog.Info("run started", "config", cfgPath, "input", job.Input.Path)

			res, err := runner.NewDefaultRunner().Run(ctx, *job, runLog)
			if err != nil {
				runLog.Error("run failed", "stage", runner.FailedStage(err), "err", err)
				return err
			}
			runLog.Info("run completed",
				"rows", res.Rows,
				"cols", res.Cols,
				"duration", res.Duration.Truncate(time.Millisecond))

			fmt.Fprintf(cmd.OutOrStdout(), "rows=%d cols=%d duplicates=%d filtered=%d output=%q stored=%d\n",
				res.Rows, res.Cols, res.Clean.DuplicateRows, res.FilteredRows, res.OutputPath, res.StoredRows)
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "configs/jobs/weather.yaml", "job config YAML path")
	return cmd
}
