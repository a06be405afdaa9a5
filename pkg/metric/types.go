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

// Package metric defines the gauge sample emitted by a read cycle and
// the dispatcher sinks that deliver it.
package metric

import (
	"context"
	"time"
)

// Metadata keys attached to dispatched samples.
const (
	// MetaPackages is the compact JSON change list.
	MetaPackages = "packages"
	// MetaOSID is the os-release ID field.
	MetaOSID = "os_id"
	// MetaOSVersionID is the os-release VERSION_ID field.
	MetaOSVersionID = "os_version_id"
)

// Sample is one gauge measurement with string metadata. It is
// constructed by a read cycle, handed to a Dispatcher, and not retained
// afterward: ownership of Meta passes with the dispatch call.
type Sample struct {
	Time           time.Time         `json:"time"`
	Plugin         string            `json:"plugin"`
	PluginInstance string            `json:"plugin_instance"`
	Type           string            `json:"type"`
	Value          float64           `json:"value"`
	Meta           map[string]string `json:"meta,omitempty"`
}

// Dispatcher delivers one sample to a sink. Implementations must not
// retain the sample or its metadata past the call.
type Dispatcher interface {
	Dispatch(ctx context.Context, s *Sample) error
}
