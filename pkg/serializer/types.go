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

// Package serializer provides utilities for serializing report data to
// various formats and destinations.
//
// Supported formats are JSON, YAML, and a flattened table. Destinations
// are stdout, a file path, or a Kubernetes ConfigMap addressed as
// cm://namespace/name.
package serializer

import "context"

// Serializer is an interface for serializing report data.
//
// The context parameter is used for cancellation and timeouts,
// particularly for implementations that perform I/O against remote APIs.
type Serializer interface {
	Serialize(ctx context.Context, report any) error
}

// Closer is an optional interface Serializers implement when they need
// to release resources (e.g. close file handles).
type Closer interface {
	Close() error
}
