package checker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apkmon_check_cycles_total",
			Help: "Total number of upgrade-check read cycles",
		},
		[]string{"status"}, // success or error
	)

	checkDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "apkmon_check_duration_seconds",
			Help:    "Time taken by one upgrade-check read cycle",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
	)

	installedGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "apkmon_installed_packages",
			Help: "Number of packages in the installed database at last check",
		},
	)
)
