package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	registry *prometheus.Registry

	wakeAttempts    *prometheus.CounterVec
	proxyRequests   *prometheus.CounterVec
	shutdownSignals *prometheus.CounterVec
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &metrics{
		registry: reg,
		wakeAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wakegate",
			Name:      "wake_attempts_total",
			Help:      "Wake-on-LAN actuations by domain and result.",
		}, []string{"domain", "result"}),
		proxyRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wakegate",
			Name:      "proxy_requests_total",
			Help:      "Testing proxy requests by project and outcome.",
		}, []string{"project", "outcome"}),
		shutdownSignals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wakegate",
			Name:      "shutdown_signals_total",
			Help:      "Idle shutdown signals by domain and result.",
		}, []string{"domain", "result"}),
	}
}
