// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for an agent. A nil *Metrics
// is valid and records nothing, so the connection path does not branch
// on whether metrics are enabled.
type Metrics struct {
	requests          *prometheus.CounterVec
	connectionsTotal  prometheus.Counter
	connectionsActive prometheus.Gauge
}

// NewMetrics creates the agent collectors and registers them with
// registry. Pass prometheus.NewRegistry() in tests to keep them isolated.
func NewMetrics(registry prometheus.Registerer) (*Metrics, error) {
	metrics := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "keyagent",
			Name:      "requests_total",
			Help:      "Agent protocol requests by request opcode and response opcode.",
		}, []string{"request", "response"}),
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "keyagent",
			Name:      "connections_total",
			Help:      "Client connections accepted.",
		}),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "keyagent",
			Name:      "connections_active",
			Help:      "Client connections currently being served.",
		}),
	}

	for _, collector := range []prometheus.Collector{
		metrics.requests,
		metrics.connectionsTotal,
		metrics.connectionsActive,
	} {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("registering agent metrics: %w", err)
		}
	}
	return metrics, nil
}

func (m *Metrics) connectionOpened() {
	if m == nil {
		return
	}
	m.connectionsTotal.Inc()
	m.connectionsActive.Inc()
}

func (m *Metrics) connectionClosed() {
	if m == nil {
		return
	}
	m.connectionsActive.Dec()
}

func (m *Metrics) observeRequest(request, response []byte) {
	if m == nil {
		return
	}
	requestName := "empty"
	if len(request) > 0 {
		requestName = Opcode(request[0]).String()
	}
	m.requests.WithLabelValues(requestName, describeResponse(response)).Inc()
}
