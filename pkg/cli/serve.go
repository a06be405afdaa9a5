// Copyright (c) 2026, Alpine Metrics Authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/alpinemetrics/apkmon/pkg/agent"
	"github.com/alpinemetrics/apkmon/pkg/apk"
	"github.com/alpinemetrics/apkmon/pkg/checker"
	"github.com/alpinemetrics/apkmon/pkg/defaults"
	"github.com/alpinemetrics/apkmon/pkg/history"
	"github.com/alpinemetrics/apkmon/pkg/metric"
	"github.com/alpinemetrics/apkmon/pkg/server"
	"github.com/alpinemetrics/apkmon/pkg/version"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:                  "serve",
		EnableShellCompletion: true,
		Usage:                 "Run as a monitoring agent",
		Description: `Run upgrade checks on a schedule and expose the results over HTTP:

  /metrics    - Prometheus metrics (gauge + OS identity info)
  /v1/report  - latest full report with the package change list
  /v1/history - recent cycles (requires --history-db)
  /health     - liveness probe
  /ready      - readiness probe (ready after the first cycle)

The installed package database is watched for changes so an apk
transaction triggers an immediate re-check. Samples can additionally
be published to NATS JetStream for fleet-level aggregation.

# Examples

Run with defaults (check every hour, serve on :9101):
  apkmon serve

Check every 10 minutes, record history:
  apkmon serve --interval 10m --history-db /var/lib/apkmon/history.db

Publish samples to NATS:
  apkmon serve --nats-url nats://mq:4222 --nats-subject fleet.apk`,
		Flags: []cli.Flag{
			installedFlag,
			worldFlag,
			&cli.DurationFlag{
				Name:    "interval",
				Usage:   "Interval between scheduled upgrade checks",
				Sources: cli.EnvVars("APKMON_INTERVAL"),
				Value:   defaults.CheckInterval,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Timeout for the upgrade solver",
				Value: defaults.SolverTimeout,
			},
			&cli.BoolFlag{
				Name:  "no-watch",
				Usage: "Disable re-checking when the package database changes",
			},
			&cli.IntFlag{
				Name:    "port",
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
				Value:   9101,
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "NATS server URL for publishing samples (disabled when empty)",
				Sources: cli.EnvVars("APKMON_NATS_URL"),
			},
			&cli.StringFlag{
				Name:    "nats-subject",
				Usage:   "NATS subject for published samples",
				Sources: cli.EnvVars("APKMON_NATS_SUBJECT"),
				Value:   metric.DefaultNATSSubject,
			},
			&cli.StringFlag{
				Name:    "history-db",
				Usage:   "SQLite database path for cycle history (disabled when empty)",
				Sources: cli.EnvVars("APKMON_HISTORY_DB"),
			},
			&cli.BoolFlag{
				Name:  "systemd-notify",
				Usage: "Send sd_notify READY=1 after the first successful cycle",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			// Dispatchers: Prometheus always, NATS when configured.
			sinks := []metric.Dispatcher{
				metric.NewPrometheusDispatcher(prometheus.DefaultRegisterer),
			}

			if natsURL := cmd.String("nats-url"); natsURL != "" {
				nd, err := metric.NewNATSDispatcher(natsURL, cmd.String("nats-subject"))
				if err != nil {
					return fmt.Errorf("unable to connect NATS dispatcher: %w", err)
				}
				defer nd.Close()
				sinks = append(sinks, nd)
			}

			solver := apk.NewExecSolver()
			solver.Timeout = cmd.Duration("timeout")

			chk := checker.New(checker.Options{
				Database: apk.DatabaseOptions{
					InstalledPath: cmd.String("installed-db"),
					WorldPath:     cmd.String("world"),
				},
				Solver:     solver,
				Dispatcher: metric.NewMultiDispatcher(sinks...),
				Version:    version.Version,
			})

			var hist *history.Store
			if histPath := cmd.String("history-db"); histPath != "" {
				var err error
				hist, err = history.Open(histPath)
				if err != nil {
					return fmt.Errorf("unable to open history database: %w", err)
				}
				defer func() {
					if err := hist.Close(); err != nil {
						slog.Warn("failed to close history database", "error", err)
					}
				}()
			}

			cfg := server.NewConfig()
			cfg.Version = version.Version
			cfg.Port = int(cmd.Int("port"))

			srv := server.New(cfg, hist)

			watchPath := cmd.String("installed-db")
			if cmd.Bool("no-watch") {
				watchPath = ""
			}

			ag, err := agent.New(agent.Options{
				Checker:       chk,
				Interval:      cmd.Duration("interval"),
				WatchPath:     watchPath,
				NotifySystemd: cmd.Bool("systemd-notify"),
				OnReport: func(ctx context.Context, report *checker.Report) {
					srv.SetReport(report)
					if hist != nil {
						if err := hist.Record(ctx, report); err != nil {
							slog.Warn("failed to record cycle history", "error", err)
						}
					}
				},
			})
			if err != nil {
				return fmt.Errorf("unable to create agent: %w", err)
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Start(gctx) })
			g.Go(func() error { return ag.Run(gctx) })

			return g.Wait()
		},
	}
}
