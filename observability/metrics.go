// Copyright 2023 The hoxy Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package observability Prometheus metrics and OpenTelemetry tracing
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics Prometheus collectors of the proximity service
//
// A nil *Metrics is valid and records nothing, so components can be built without metrics.
type Metrics struct {
	// LiveConnections current number of registered live event streams
	LiveConnections prometheus.Gauge

	// ConnectionEvents connection registry transitions.
	// Labels: event (register|replace|remove|idle_close|close)
	ConnectionEvents *prometheus.CounterVec

	// LiveDeliveries events written to live connections.
	// Labels: status (sent|not_connected|failed)
	LiveDeliveries *prometheus.CounterVec

	// PushResults push notification outcomes per recipient.
	// Labels: result (sent|throttled|failed|skipped)
	PushResults *prometheus.CounterVec

	// ProximityEvents proximity events processed.
	// Labels: kind (location|status), result (handled|dropped)
	ProximityEvents *prometheus.CounterVec

	// ProximityDuration time spent handling one proximity event.
	// Labels: kind
	ProximityDuration *prometheus.HistogramVec
}

// NewMetrics define and register the metrics with reg
//
// Pass prometheus.DefaultRegisterer in production and a fresh prometheus.NewRegistry() in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LiveConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "hoxy_live_connections",
				Help: "Current number of live member event streams",
			},
		),

		ConnectionEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hoxy_connection_events_total",
				Help: "Connection registry transitions by event",
			},
			[]string{"event"},
		),

		LiveDeliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hoxy_live_deliveries_total",
				Help: "Events written to live member streams by status",
			},
			[]string{"status"},
		),

		PushResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hoxy_push_results_total",
				Help: "Push notification outcomes by result",
			},
			[]string{"result"},
		),

		ProximityEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hoxy_proximity_events_total",
				Help: "Proximity events processed by kind and result",
			},
			[]string{"kind", "result"},
		),

		ProximityDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hoxy_proximity_event_duration_seconds",
				Help:    "Duration of proximity event handling in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"kind"},
		),
	}
}

// ConnectionEvent record a registry transition and the resulting live connection count
func (m *Metrics) ConnectionEvent(event string, live int) {
	if m == nil {
		return
	}
	m.ConnectionEvents.WithLabelValues(event).Inc()
	m.LiveConnections.Set(float64(live))
}

// LiveDelivery record the outcome of one live event write
func (m *Metrics) LiveDelivery(status string) {
	if m == nil {
		return
	}
	m.LiveDeliveries.WithLabelValues(status).Inc()
}

// PushResult record the outcome of one push attempt
func (m *Metrics) PushResult(result string) {
	if m == nil {
		return
	}
	m.PushResults.WithLabelValues(result).Inc()
}

// ProximityEvent record one processed proximity event
func (m *Metrics) ProximityEvent(kind, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ProximityEvents.WithLabelValues(kind, result).Inc()
	m.ProximityDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}
