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

// Package history provides an optional SQLite-backed record of past
// read cycles for trend queries. The checker itself owns no cross-cycle
// state; history is a sink fed after a cycle completes.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alpinemetrics/apkmon/pkg/checker"
)

const schema = `
CREATE TABLE IF NOT EXISTS cycles (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	report_id  TEXT NOT NULL,
	ts         TEXT NOT NULL,
	count      INTEGER NOT NULL,
	os_id      TEXT NOT NULL,
	os_version TEXT NOT NULL,
	report     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cycles_ts ON cycles(ts);
`

// Entry is one recorded cycle.
type Entry struct {
	ID        int64     `json:"id"`
	ReportID  string    `json:"report_id"`
	Timestamp time.Time `json:"timestamp"`
	Count     int       `json:"count"`
	OSID      string    `json:"os_id"`
	OSVersion string    `json:"os_version"`
}

// Store records upgrade reports in SQLite.
type Store struct {
	db *sql.DB
}

// Open creates a Store at the given database path. Use ":memory:" for
// in-memory databases (useful for testing).
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite only allows one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record appends one report to the history.
func (s *Store) Record(ctx context.Context, report *checker.Report) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cycles (report_id, ts, count, os_id, os_version, report) VALUES (?, ?, ?, ?, ?, ?)`,
		report.Metadata["report-id"],
		report.Metadata["timestamp"],
		report.Count,
		report.OS.ID,
		report.OS.VersionID,
		string(raw),
	)
	if err != nil {
		return fmt.Errorf("failed to record cycle: %w", err)
	}
	return nil
}

// Recent returns the most recent entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, report_id, ts, count, os_id, os_version FROM cycles ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		var ts string
		if err := rows.Scan(&e.ID, &e.ReportID, &ts, &e.Count, &e.OSID, &e.OSVersion); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			e.Timestamp = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
