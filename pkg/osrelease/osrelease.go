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

// Package osrelease reads OS identity fields from os-release files.
//
// The parser is deliberately simple and bounded: quoted values run to the
// next matching quote with no escape support, unquoted values end at the
// first whitespace or semicolon, and overlong fields are silently
// truncated. It is not a POSIX shell parser.
package osrelease

import (
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/alpinemetrics/apkmon/pkg/defaults"
)

const (
	// MaxKeyLen bounds the KEY token of a line.
	MaxKeyLen = 64
	// MaxValueLen is the capacity values are truncated to.
	MaxValueLen = 256

	maxFileSize = 1 << 20
)

// Identity holds the two os-release fields the agent reports.
// Fields are empty strings when the file is missing or unparseable.
type Identity struct {
	ID        string `json:"id" yaml:"id"`
	VersionID string `json:"version_id" yaml:"version_id"`
}

// Read returns the OS identity from the first readable path, trying
// /etc/os-release then /usr/lib/os-release when no paths are given.
// Failures are tolerated: a warning is logged and empty fields returned.
func Read(paths ...string) Identity {
	if len(paths) == 0 {
		paths = []string{defaults.OSReleasePath, defaults.OSReleaseFallbackPath}
	}

	var lastErr error
	for _, path := range paths {
		b, err := os.ReadFile(path)
		if err != nil {
			lastErr = err
			continue
		}
		if len(b) > maxFileSize || !utf8.Valid(b) {
			slog.Warn("os-release file is not parseable, using empty OS identity", "path", path)
			return Identity{}
		}

		fields := Parse(string(b))
		return Identity{
			ID:        fields["ID"],
			VersionID: fields["VERSION_ID"],
		}
	}

	slog.Warn("unable to read os-release, using empty OS identity", "error", lastErr)
	return Identity{}
}

// Parse extracts KEY=value pairs from os-release content. Lines that do
// not match the KEY=... form, or whose value fails to parse, are skipped.
func Parse(content string) map[string]string {
	fields := make(map[string]string)

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, rest, found := strings.Cut(line, "=")
		if !found || !validKey(key) {
			continue
		}

		value, ok := parseValue(rest)
		if !ok {
			slog.Warn("skipping unparseable os-release line", "key", key)
			continue
		}
		fields[key] = value
	}

	return fields
}

// validKey reports whether key is a bounded alphanumeric/underscore token.
func validKey(key string) bool {
	if key == "" || len(key) > MaxKeyLen {
		return false
	}
	for _, r := range key {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}

// parseValue extracts the value portion of a KEY=value line. A value
// delimited by a single or double quote runs to the next matching quote;
// there is no escape-sequence or doubled-quote support. An unterminated
// quote is a parse failure. Unquoted values run to the first whitespace
// or semicolon. Values are truncated to MaxValueLen, never rejected for
// length.
func parseValue(rest string) (string, bool) {
	if rest == "" {
		return "", true
	}

	if q := rest[0]; q == '"' || q == '\'' {
		end := strings.IndexByte(rest[1:], q)
		if end < 0 {
			return "", false
		}
		return truncate(rest[1 : 1+end]), true
	}

	end := strings.IndexFunc(rest, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ';'
	})
	if end >= 0 {
		rest = rest[:end]
	}
	return truncate(rest), true
}

func truncate(v string) string {
	if len(v) > MaxValueLen {
		return v[:MaxValueLen]
	}
	return v
}
