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

// Package cli implements the apkmon command line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/alpinemetrics/apkmon/pkg/defaults"
	"github.com/alpinemetrics/apkmon/pkg/logging"
	"github.com/alpinemetrics/apkmon/pkg/serializer"
	"github.com/alpinemetrics/apkmon/pkg/version"
)

const name = "apkmon"

// Shared flags across subcommands.
var (
	installedFlag = &cli.StringFlag{
		Name:    "installed-db",
		Usage:   "Path to the installed package database",
		Sources: cli.EnvVars("APKMON_INSTALLED_DB"),
		Value:   defaults.InstalledDBPath,
	}

	worldFlag = &cli.StringFlag{
		Name:    "world",
		Usage:   "Path to the world file (explicitly requested packages)",
		Sources: cli.EnvVars("APKMON_WORLD"),
		Value:   defaults.WorldPath,
	}

	outputFlag = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Output destination: file path or ConfigMap URI (cm://namespace/name). Defaults to stdout",
	}

	formatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"t"},
		Usage:   fmt.Sprintf("Output format (supported values: %s)", serializer.SupportedFormats()),
		Value:   string(serializer.FormatJSON),
	}
)

func rootCmd() *cli.Command {
	return &cli.Command{
		Name:    name,
		Usage:   "Alpine package upgrade monitor",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.Date),
		Description: `Reports how many installed Alpine packages a full-system upgrade
would change, with the change list and OS identity attached as
metric metadata.

check - run one read cycle and print the report
serve - run as a monitoring agent with a Prometheus endpoint`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from this file before running",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if envFile := cmd.String("env-file"); envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return ctx, fmt.Errorf("unable to load env file %q: %w", envFile, err)
				}
			}

			logging.SetDefaultStructuredLogger(name, version.Version, cmd.String("log-level"))
			slog.Debug("starting",
				"name", name,
				"version", version.Version,
				"commit", version.Commit,
				"date", version.Date)
			return ctx, nil
		},
		Commands: []*cli.Command{
			checkCmd(),
			serveCmd(),
		},
	}
}

// Execute runs the CLI. It is called by main and handles signal-driven
// cancellation itself.
func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down gracefully...")
		cancel()
	}()

	if err := rootCmd().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
