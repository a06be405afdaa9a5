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

// Package checker implements the upgrade-check read cycle: open the
// package database read-only, run the solver in simulate mode, diff the
// result against the installed set, and dispatch one gauge sample with
// the JSON change list and OS identity as metadata.
package checker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alpinemetrics/apkmon/pkg/apk"
	"github.com/alpinemetrics/apkmon/pkg/errors"
	"github.com/alpinemetrics/apkmon/pkg/header"
	"github.com/alpinemetrics/apkmon/pkg/metric"
	"github.com/alpinemetrics/apkmon/pkg/osrelease"
)

// Sample identity constants. One gauge sample is dispatched per cycle.
const (
	pluginName     = "apk"
	pluginInstance = "upgradable"
	sampleType     = "count"
)

// Options configures a Checker.
type Options struct {
	// Database configures where the installed DB and world file live.
	Database apk.DatabaseOptions

	// Solver computes the upgrade plan. Defaults to the exec-based apk
	// solver in simulate-only, no-cache mode.
	Solver apk.Solver

	// Dispatcher receives the per-cycle sample. Defaults to a stdout
	// JSON writer.
	Dispatcher metric.Dispatcher

	// OSReleasePaths overrides the os-release lookup paths (tests).
	OSReleasePaths []string

	// Version stamps report headers.
	Version string
}

// Checker performs upgrade-check read cycles. It owns no state across
// cycles; every invocation opens and releases its own resources. Calls
// are synchronous and non-reentrant; callers serialize invocations.
type Checker struct {
	opts Options

	// open is swapped in tests.
	open func(apk.DatabaseOptions) (*apk.Database, error)
}

// New creates a Checker with defaults filled in.
func New(opts Options) *Checker {
	if opts.Solver == nil {
		opts.Solver = apk.NewExecSolver()
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = metric.NewWriterDispatcher(nil)
	}
	return &Checker{
		opts: opts,
		open: apk.OpenDatabase,
	}
}

// Check performs one read cycle and returns the resulting report.
// Database-open failure, solver failure, and metadata/dispatch failure
// are fatal to the cycle: an error-level log, no dispatched sample, and
// full resource cleanup. OS identity problems are tolerated with a
// warning and empty fields.
func (c *Checker) Check(ctx context.Context) (*Report, error) {
	start := time.Now()

	report, err := c.check(ctx)
	status := "success"
	if err != nil {
		status = "error"
		slog.Error("upgrade check failed", "error", err)
	}
	checkCyclesTotal.WithLabelValues(status).Inc()
	checkDuration.Observe(time.Since(start).Seconds())

	return report, err
}

func (c *Checker) check(ctx context.Context) (*Report, error) {
	db, err := c.open(c.opts.Database)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	installedGauge.Set(float64(db.Count()))

	cs, err := c.opts.Solver.Solve(ctx, db)
	if err != nil {
		return nil, err
	}

	records := diffChangeset(cs)

	payload, err := json.Marshal(records)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMetadata, "unable to encode change list", err)
	}
	slog.Debug("computed upgrade plan", "count", len(records), "packages", string(payload))

	ident := osrelease.Read(c.opts.OSReleasePaths...)

	sample := &metric.Sample{
		Time:           time.Now().UTC(),
		Plugin:         pluginName,
		PluginInstance: pluginInstance,
		Type:           sampleType,
		Value:          float64(len(records)),
		Meta: map[string]string{
			metric.MetaPackages:    string(payload),
			metric.MetaOSID:        ident.ID,
			metric.MetaOSVersionID: ident.VersionID,
		},
	}

	// Ownership of the sample and its metadata passes here; it must not
	// be used after the dispatch call.
	if err := c.opts.Dispatcher.Dispatch(ctx, sample); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDispatch, "unable to dispatch sample", err)
	}

	report := &Report{
		OS:       ident,
		Count:    len(records),
		Packages: records,
	}
	report.Init(header.KindReport, APIVersion, c.opts.Version)
	report.Metadata["report-id"] = uuid.New().String()

	slog.Info("upgrade check complete",
		"count", report.Count,
		"os_id", ident.ID,
		"os_version_id", ident.VersionID)

	return report, nil
}
