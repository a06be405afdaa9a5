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

// Package defaults centralizes default paths, intervals, and timeouts
// shared across apkmon components.
package defaults

import "time"

// Well-known apk paths on Alpine-family systems.
const (
	// InstalledDBPath is the installed-package database.
	InstalledDBPath = "/lib/apk/db/installed"
	// WorldPath holds the top-level world constraint set.
	WorldPath = "/etc/apk/world"
)

// os-release locations per freedesktop.org.
const (
	OSReleasePath         = "/etc/os-release"
	OSReleaseFallbackPath = "/usr/lib/os-release"
)

// Check cycle defaults.
const (
	CheckInterval = 1 * time.Hour
	SolverTimeout = 5 * time.Minute
)

// Server timeouts.
const (
	ServerReadTimeout     = 10 * time.Second
	ServerWriteTimeout    = 30 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Kubernetes API timeouts.
const (
	ConfigMapWriteTimeout = 60 * time.Second
)
