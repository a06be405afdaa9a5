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

package metric

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// DefaultNATSSubject is the subject samples are published to when none
// is configured.
const DefaultNATSSubject = "apkmon.samples"

// NATSDispatcher publishes samples to a NATS JetStream subject so
// fleet-level consumers can aggregate upgrade posture across hosts.
type NATSDispatcher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewNATSDispatcher connects to the NATS server at url and prepares a
// JetStream publisher on subject. Close must be called when done.
func NewNATSDispatcher(url, subject string) (*NATSDispatcher, error) {
	if subject == "" {
		subject = DefaultNATSSubject
	}

	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	slog.Info("NATS dispatcher initialized", "url", url, "subject", subject)

	return &NATSDispatcher{
		conn:    conn,
		js:      js,
		subject: subject,
	}, nil
}

// Dispatch publishes the sample as JSON.
func (d *NATSDispatcher) Dispatch(ctx context.Context, s *Sample) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal sample: %w", err)
	}

	if _, err := d.js.Publish(ctx, d.subject, data); err != nil {
		return fmt.Errorf("failed to publish sample: %w", err)
	}

	slog.Debug("published sample",
		"subject", d.subject,
		"plugin_instance", s.PluginInstance,
		"value", s.Value)
	return nil
}

// Close drains the NATS connection.
func (d *NATSDispatcher) Close() {
	if d.conn != nil {
		d.conn.Close()
	}
}
