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
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/alpinemetrics/apkmon/pkg/apk"
	"github.com/alpinemetrics/apkmon/pkg/checker"
	"github.com/alpinemetrics/apkmon/pkg/defaults"
	"github.com/alpinemetrics/apkmon/pkg/metric"
	"github.com/alpinemetrics/apkmon/pkg/serializer"
	"github.com/alpinemetrics/apkmon/pkg/version"
)

func checkCmd() *cli.Command {
	return &cli.Command{
		Name:                  "check",
		EnableShellCompletion: true,
		Usage:                 "Run one upgrade check and print the report",
		Description: `Run a single read cycle: open the package database read-only,
simulate a full-system upgrade, and report the packages the upgrade
would change together with the host's OS identity.

The report can be output in JSON, YAML, or table format, to stdout,
a file, or a Kubernetes ConfigMap (cm://namespace/name).

# Examples

Print the report as JSON:
  apkmon check

Write a YAML report to a file:
  apkmon check --format yaml --output /tmp/report.yaml

Publish the report to a ConfigMap:
  apkmon check --output cm://monitoring/apkmon-report`,
		Flags: []cli.Flag{
			installedFlag,
			worldFlag,
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Timeout for the upgrade solver",
				Value: defaults.SolverTimeout,
			},
			&cli.BoolFlag{
				Name:  "emit-sample",
				Usage: "Also write the dispatched metric sample as a JSON line to stdout",
			},
			outputFlag,
			formatFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat := serializer.Format(cmd.String("format"))
			if outFormat.IsUnknown() {
				return fmt.Errorf("unknown output format: %q", outFormat)
			}

			// One-shot runs serialize the full report; the sample line is
			// opt-in so the two outputs do not interleave by default.
			var sampleOut io.Writer = io.Discard
			if cmd.Bool("emit-sample") {
				sampleOut = os.Stdout
			}

			solver := apk.NewExecSolver()
			solver.Timeout = cmd.Duration("timeout")

			chk := checker.New(checker.Options{
				Database: apk.DatabaseOptions{
					InstalledPath: cmd.String("installed-db"),
					WorldPath:     cmd.String("world"),
				},
				Solver:     solver,
				Dispatcher: metric.NewWriterDispatcher(sampleOut),
				Version:    version.Version,
			})

			start := time.Now()
			report, err := chk.Check(ctx)
			if err != nil {
				return fmt.Errorf("upgrade check failed: %w", err)
			}
			slog.Debug("check complete", "duration", time.Since(start).String())

			ser := serializer.NewFileWriterOrStdout(outFormat, cmd.String("output"))
			defer func() {
				if closer, ok := ser.(interface{ Close() error }); ok {
					if err := closer.Close(); err != nil {
						slog.Warn("failed to close serializer", "error", err)
					}
				}
			}()

			return ser.Serialize(ctx, report)
		},
	}
}
