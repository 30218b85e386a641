package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"dataclean/internal/config"
	"dataclean/internal/logging"
	"dataclean/internal/metrics"
	"dataclean/internal/metrics/datadog"
	"dataclean/internal/metrics/prompush"
)

type globalFlags struct {
	logLevel       string
	logFormat      string
	metricsBackend string
	pushGatewayURL string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "dataclean",
		Short:         "Clean weather and price datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return config.LoadDotEnv()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error (overrides env DATACLEAN_LOG_LEVEL)")
	pf.StringVar(&g.logFormat, "log-format", "", "text or json (overrides env DATACLEAN_LOG_FORMAT)")
	pf.StringVar(&g.metricsBackend, "metrics-backend", "", "metrics backend: none, datadog or pushgateway (overrides env DATACLEAN_METRICS_BACKEND)")
	pf.StringVar(&g.pushGatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides env DATACLEAN_PUSHGATEWAY_URL)")

	root.AddCommand(newRunCmd(g), newAuditCmd(g), newValidateCmd(), newProbeCmd(g))
	return root
}

// logger builds the process logger: flag, then job/env value, then default.
func (g *globalFlags) logger(l config.Logging) *slog.Logger {
	level, format := g.logLevel, g.logFormat
	if level == "" {
		level = l.Level
	}
	if format == "" {
		format = l.Format
	}
	return logging.Setup(level, format)
}

// setupMetrics installs the selected backend and returns a function that
// flushes and releases it. Init failures fall back to the nop backend.
func (g *globalFlags) setupMetrics(ctx context.Context, job string, env config.Env, log *slog.Logger) func() {
	// Decide metrics backend: flag → env → default.
	backendName := g.metricsBackend
	if backendName == "" {
		backendName = env.MetricsBackend
	}
	if job == "" {
		job = "dataclean"
	}

	switch backendName {
	case "pushgateway":
		gwURL := g.pushGatewayURL
		if gwURL == "" {
			gwURL = env.PushgatewayURL
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}

		b, err := prompush.NewBackend(job, gwURL)
		if err != nil {
			log.Warn("metrics: failed to init pushgateway backend; using nop", "err", err)
			return func() {}
		}
		log.Info("metrics enabled", "backend", backendName, "url", gwURL, "job", job)
		metrics.SetBackend(b)
		return func() {
			if err := metrics.Flush(); err != nil {
				log.Warn("metrics: flush error", "err", err)
			}
			metrics.SetBackend(nil)
		}

	case "datadog":
		tags := datadog.ParseTagsCSV(env.MetricsTags)
		b, err := datadog.NewBackend(ctx, datadog.Options{
			JobName:    job,
			Tags:       tags,
			FlushEvery: 60 * time.Second,
		})
		if err != nil {
			log.Warn("metrics: failed to init datadog backend; using nop", "err", err)
			return func() {}
		}
		log.Info("metrics enabled", "backend", backendName, "job", job, "tags", tags)
		metrics.SetBackend(b)
		// Close stops the periodic flush loop and then performs a final Flush.
		return func() {
			if err := b.Close(); err != nil {
				log.Warn("metrics: datadog close/flush error", "err", err)
			}
			metrics.SetBackend(nil)
		}

	case "", "none":
		log.Debug("metrics disabled")
	default:
		log.Warn("metrics: unknown backend; metrics disabled", "backend", backendName)
	}
	return func() {}
}

// loadJob loads and validates the job file, printing every issue to stderr.
func loadJob(cmd *cobra.Command, path string) (*config.Job, config.Env, error) {
	job, env, err := config.Load(path)
	if err != nil {
		return nil, config.Env{}, err
	}
	issues := config.ValidateJob(*job)
	for _, iss := range issues {
		fmt.Fprintln(cmd.ErrOrStderr(), iss)
	}
	if config.HasErrors(issues) {
		return nil, config.Env{}, fmt.Errorf("configuration is invalid: %s", path)
	}
	return job, env, nil
}
