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

// Package apk provides a read-only binding to the apk package manager:
// the installed-package database, the world constraint set, and an
// upgrade solver driven in simulate-only mode.
package apk

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/alpinemetrics/apkmon/pkg/defaults"
	"github.com/alpinemetrics/apkmon/pkg/errors"
)

// DatabaseOptions configures how the database is opened.
type DatabaseOptions struct {
	// InstalledPath is the installed-package database file.
	// Defaults to /lib/apk/db/installed.
	InstalledPath string
	// WorldPath is the world constraint file. Defaults to /etc/apk/world.
	WorldPath string
}

// Database is a read-only view of the installed-package set and the world
// constraint set. It owns no durable state: close it at the end of the
// read cycle that opened it.
type Database struct {
	installed map[string]*Package
	world     []string
	open      bool
}

// maxDatabaseSize bounds the installed DB read (the file is a few MB on
// a full system; anything past this indicates corruption).
const maxDatabaseSize = 64 << 20

// OpenDatabase opens the installed-package database and the world file
// read-only. A missing or unparseable database is an error; the caller
// must treat it as fatal to the read cycle.
func OpenDatabase(opts DatabaseOptions) (*Database, error) {
	if opts.InstalledPath == "" {
		opts.InstalledPath = defaults.InstalledDBPath
	}
	if opts.WorldPath == "" {
		opts.WorldPath = defaults.WorldPath
	}

	installed, err := parseInstalled(opts.InstalledPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabase, "failed to open apk database", err)
	}

	world, err := parseWorld(opts.WorldPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDatabase, "failed to read world file", err)
	}

	return &Database{
		installed: installed,
		world:     world,
		open:      true,
	}, nil
}

// Installed returns the installed identity for name, or nil if the
// package is not installed.
func (db *Database) Installed(name string) *Package {
	return db.installed[name]
}

// Count returns the number of installed packages.
func (db *Database) Count() int {
	return len(db.installed)
}

// World returns the top-level constraint set the solver must satisfy.
func (db *Database) World() []string {
	return db.world
}

// IsOpen reports whether the database handle is still live.
func (db *Database) IsOpen() bool {
	return db.open
}

// Close releases the database view. Safe to call more than once.
func (db *Database) Close() {
	db.installed = nil
	db.world = nil
	db.open = false
}

// parseInstalled reads the apk v2 installed database: blank-line separated
// records of single-letter fields. Only P (name), V (version), and
// o (origin) are consumed. Origin defaults to the package name when the
// record carries no o field.
func parseInstalled(path string) (map[string]*Package, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() > maxDatabaseSize {
		return nil, fmt.Errorf("database %q exceeds maximum size of %d bytes", path, maxDatabaseSize)
	}

	installed := make(map[string]*Package, 256)

	var cur Package
	flush := func() error {
		if cur == (Package{}) {
			return nil
		}
		if cur.Name == "" || cur.Version == "" {
			return fmt.Errorf("database %q contains a record without name or version", path)
		}
		if cur.Origin == "" {
			cur.Origin = cur.Name
		}
		p := cur
		installed[p.Name] = &p
		cur = Package{}
		return nil
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		if !utf8.ValidString(line) {
			return nil, fmt.Errorf("database %q contains invalid UTF-8", path)
		}

		key, value, found := strings.Cut(line, ":")
		if !found || len(key) != 1 {
			return nil, fmt.Errorf("database %q contains malformed line %q", path, line)
		}

		switch key {
		case "P":
			cur.Name = value
		case "V":
			cur.Version = value
		case "o":
			cur.Origin = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return installed, nil
}

// parseWorld reads the world file: one constraint per line, comments and
// blank lines skipped.
func parseWorld(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		// A system without a world file has an empty constraint set.
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	lines := strings.Split(string(b), "\n")
	world := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		world = append(world, line)
	}
	return world, nil
}
