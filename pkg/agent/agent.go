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

// Package agent schedules upgrade-check read cycles: a fixed interval
// plus an immediate re-check whenever the installed package database
// changes on disk. Cycles never overlap; a mutex serializes them.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"github.com/alpinemetrics/apkmon/pkg/checker"
	"github.com/alpinemetrics/apkmon/pkg/defaults"
)

// debounceDelay coalesces the burst of filesystem events apk emits
// while rewriting the installed database.
const debounceDelay = 2 * time.Second

// Options configures an Agent.
type Options struct {
	// Checker runs the read cycle.
	Checker *checker.Checker

	// Interval between scheduled cycles. Defaults to one hour.
	Interval time.Duration

	// WatchPath is the installed database file whose parent directory
	// is watched for changes. Empty disables watching.
	WatchPath string

	// OnReport is called after every successful cycle with the report.
	// Optional.
	OnReport func(ctx context.Context, report *checker.Report)

	// NotifySystemd sends sd_notify READY=1 after the first successful
	// cycle when running under systemd with Type=notify.
	NotifySystemd bool
}

// Agent drives periodic and change-triggered read cycles.
type Agent struct {
	opts Options

	// runMu serializes cycles across the scheduler and the watcher.
	runMu sync.Mutex

	notifyOnce sync.Once
}

// New creates an Agent. The checker is required.
func New(opts Options) (*Agent, error) {
	if opts.Checker == nil {
		return nil, fmt.Errorf("checker is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = defaults.CheckInterval
	}
	return &Agent{opts: opts}, nil
}

// runCycle executes one serialized read cycle. Errors are logged by
// the checker; the agent keeps running.
func (a *Agent) runCycle(ctx context.Context, trigger string) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	if ctx.Err() != nil {
		return
	}

	slog.Info("starting read cycle", "trigger", trigger)

	report, err := a.opts.Checker.Check(ctx)
	if err != nil {
		return
	}

	if a.opts.OnReport != nil {
		a.opts.OnReport(ctx, report)
	}

	if a.opts.NotifySystemd {
		a.notifyOnce.Do(func() {
			if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
				slog.Warn("unable to notify systemd", "error", err)
			}
		})
	}
}

// Run blocks until the context is cancelled, driving scheduled cycles
// and, when a watch path is configured, change-triggered cycles. The
// first cycle runs immediately.
func (a *Agent) Run(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("unable to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(a.opts.Interval),
		gocron.NewTask(func() {
			a.runCycle(ctx, "interval")
		}),
		gocron.WithName("upgrade-check"),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("unable to schedule check job: %w", err)
	}

	scheduler.Start()
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			slog.Warn("scheduler shutdown failed", "error", err)
		}
	}()

	if a.opts.WatchPath != "" {
		if err := a.watch(ctx); err != nil {
			return err
		}
	} else {
		<-ctx.Done()
	}

	slog.Info("agent stopping")
	return nil
}

// watch blocks on filesystem events for the installed database,
// triggering a debounced cycle on every relevant write.
func (a *Agent) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: apk replaces the database via
	// rename, which drops a watch on the file itself.
	dir := filepath.Dir(a.opts.WatchPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("unable to watch %s: %w", dir, err)
	}

	slog.Info("watching package database", "dir", dir)

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	target := filepath.Clean(a.opts.WatchPath)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			slog.Debug("package database changed", "event", event.Op.String())

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, func() {
				a.runCycle(ctx, "change")
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", "error", err)
		}
	}
}
