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

package apk

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/alpinemetrics/apkmon/pkg/defaults"
	"github.com/alpinemetrics/apkmon/pkg/errors"
)

// Solver computes the package set reachable by a full-system upgrade of
// the given database's world constraint set, without mutating any
// installed state.
type Solver interface {
	Solve(ctx context.Context, db *Database) (*Changeset, error)
}

// ExecSolver drives apk(8) as the upgrade solver. The simulate and
// no-cache behaviors of the original one-time global flags are explicit
// per-solver configuration here; Solve refuses to run a mutating plan.
type ExecSolver struct {
	// Binary is the apk executable. Defaults to "apk" on PATH.
	Binary string
	// Timeout bounds one solve. Defaults to defaults.SolverTimeout.
	Timeout time.Duration
	// Simulate must be true: the solver computes the plan without
	// writing any changes to the installed system.
	Simulate bool
	// NoCache forces fresh index retrieval instead of trusting on-disk
	// APKINDEX copies, which may be outdated and which we lack the
	// privileges to update.
	NoCache bool
}

// NewExecSolver returns a solver locked to simulate-only, no-cache mode.
func NewExecSolver() *ExecSolver {
	return &ExecSolver{
		Simulate: true,
		NoCache:  true,
	}
}

// planLine matches one entry of the apk upgrade plan, e.g.
//
//	(1/5) Upgrading musl (1.2.4-r0 -> 1.2.4-r1)
//	(2/5) Installing tzdata (2024a-r0)
//	(3/5) Purging oldpkg (0.9-r2)
var planLine = regexp.MustCompile(`^\(\d+/\d+\)\s+(\S+)\s+(\S+)\s+\((.+)\)$`)

// Solve runs the upgrade simulation and returns the resulting change
// list in the solver's emission order. Old identities are resolved from
// the open database; pairs the plan enumerates without an identity
// change are preserved so callers can filter them.
func (s *ExecSolver) Solve(ctx context.Context, db *Database) (*Changeset, error) {
	if db == nil || !db.IsOpen() {
		return nil, errors.New(errors.ErrCodeSolver, "solve requires an open database")
	}
	if !s.Simulate {
		return nil, errors.New(errors.ErrCodeSolver, "refusing to solve without simulate mode")
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaults.SolverTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	binary := s.Binary
	if binary == "" {
		binary = "apk"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSolver, "apk not found in PATH", err)
	}

	args := []string{"upgrade", "--simulate"}
	if s.NoCache {
		args = append(args, "--no-cache")
	}

	cmd := exec.CommandContext(ctx, path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	// apk owns its own log output; feed it back through ours with the
	// level its prefixes indicate.
	redirectSolverOutput(stderr.String())

	if runErr != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.ErrCodeTimeout, "apk solver timed out", ctx.Err())
		}
		return nil, errors.WrapWithContext(errors.ErrCodeSolver, "apk solver returned errors", runErr,
			map[string]any{"stderr": strings.TrimSpace(stderr.String())})
	}

	return parsePlan(stdout.String(), db)
}

// parsePlan converts the textual upgrade plan into a changeset, pairing
// each plan entry with the installed identity of the same name.
func parsePlan(out string, db *Database) (*Changeset, error) {
	cs := &Changeset{}

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		m := planLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		verb, name, detail := m[1], m[2], m[3]

		old := db.Installed(name)

		switch verb {
		case "Upgrading", "Downgrading", "Updating":
			newVer := newVersionFromDetail(detail)
			if newVer == "" {
				return nil, errors.New(errors.ErrCodeSolver,
					fmt.Sprintf("unparseable plan entry %q", line))
			}
			cs.Changes = append(cs.Changes, Change{
				Old: old,
				New: &Package{Name: name, Origin: originOf(old, name), Version: newVer},
			})
		case "Installing":
			cs.Changes = append(cs.Changes, Change{
				Old: old,
				New: &Package{Name: name, Origin: originOf(old, name), Version: detail},
			})
		case "Purging":
			cs.Changes = append(cs.Changes, Change{Old: old, New: nil})
		case "Re-installing":
			// Same identity on both sides; enumerated but not a real change.
			cs.Changes = append(cs.Changes, Change{Old: old, New: old})
		}
	}

	return cs, nil
}

// newVersionFromDetail extracts the target version from an
// "old -> new" plan detail.
func newVersionFromDetail(detail string) string {
	_, newVer, found := strings.Cut(detail, "->")
	if !found {
		return ""
	}
	return strings.TrimSpace(newVer)
}

func originOf(p *Package, fallback string) string {
	if p != nil && p.Origin != "" {
		return p.Origin
	}
	return fallback
}
