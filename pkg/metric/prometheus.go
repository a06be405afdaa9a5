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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusDispatcher exposes dispatched samples as Prometheus gauges:
// the numeric value on apk_upgradable_packages and the OS identity
// metadata as labels on apk_upgradable_info. The JSON package list is
// not exported as a label (unbounded cardinality); it is served by the
// report endpoint instead.
type PrometheusDispatcher struct {
	value *prometheus.GaugeVec
	info  *prometheus.GaugeVec
}

// NewPrometheusDispatcher registers the dispatcher's gauges with reg.
// Pass prometheus.DefaultRegisterer for the process-wide registry.
func NewPrometheusDispatcher(reg prometheus.Registerer) *PrometheusDispatcher {
	factory := promauto.With(reg)
	return &PrometheusDispatcher{
		value: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "apk_upgradable_packages",
				Help: "Number of packages a full-system upgrade would change",
			},
			[]string{"plugin", "plugin_instance"},
		),
		info: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "apk_upgradable_info",
				Help: "OS identity of the host the upgradable-package count refers to",
			},
			[]string{"os_id", "os_version_id"},
		),
	}
}

// Dispatch publishes the sample. The info gauge is reset first so stale
// identity label sets from earlier cycles do not linger.
func (d *PrometheusDispatcher) Dispatch(_ context.Context, s *Sample) error {
	d.value.WithLabelValues(s.Plugin, s.PluginInstance).Set(s.Value)

	d.info.Reset()
	d.info.WithLabelValues(s.Meta[MetaOSID], s.Meta[MetaOSVersionID]).Set(1)
	return nil
}
