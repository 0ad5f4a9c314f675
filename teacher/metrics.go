// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package teacher

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "classvote"

// Metrics are the server's Prometheus collectors.
type Metrics struct {
	votes             *prometheus.CounterVec
	droppedFrames     prometheus.Counter
	sessions          prometheus.Gauge
	broadcasts        *prometheus.CounterVec
	broadcastFailures prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Vote frames handled, by outcome.",
		}, []string{"status"}),
		droppedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_frames_total",
			Help:      "Inbound frames discarded as malformed or unexpected.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Currently connected student sessions.",
		}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Frames broadcast to all sessions, by frame kind.",
		}, []string{"kind"}),
		broadcastFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_write_failures_total",
			Help:      "Per-session writes that failed and dropped the session.",
		}),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{
		m.votes, m.droppedFrames, m.sessions, m.broadcasts, m.broadcastFailures,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
