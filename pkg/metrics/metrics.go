// Package metrics exposes the protocol's Prometheus counters and gauges:
// gossip message outcomes, peer population, and validator verdicts.
// Only the gossip collectors are updated within this module (by the gossip
// engine); the validator verdict counter and the request-duration
// histograms are registered but no package here records to them.
// Registered against a single package-level registry so a host process can
// expose them on its own /metrics endpoint via promhttp.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the process-wide registry all of this package's collectors
// are registered against.
var Registry = prometheus.NewRegistry()

var (
	// GossipMessagesReceived counts Receive() outcomes by label (accepted,
	// duplicate, rejected_timestamp, rejected_witness, rejected_ownership,
	// rejected_structural, dropped_rate_limit).
	GossipMessagesReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scarcity_gossip_messages_received_total",
		Help: "Nullifier gossip messages received, by pipeline outcome.",
	}, []string{"outcome"})

	// GossipRecordsExpired counts nullifier records dropped by the
	// periodic sweep.
	GossipRecordsExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scarcity_gossip_records_expired_total",
		Help: "Nullifier records removed by the periodic validity-window sweep.",
	})

	// GossipPeerCount tracks the current size of the peer table.
	GossipPeerCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scarcity_gossip_peer_count",
		Help: "Number of peers currently tracked by the gossip engine.",
	})

	// ValidatorVerdicts counts TransferValidator outcomes by verdict label
	// (valid, expired, double_spend_gossip, double_spend_witness,
	// invalid_attestation, low_confidence, cancelled). The validator
	// package does not increment it.
	ValidatorVerdicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scarcity_validator_verdicts_total",
		Help: "Transfer validation outcomes, by verdict.",
	}, []string{"verdict"})

	// WitnessRequestDuration observes external witness-federation call
	// latency, by operation (timestamp, verify, check_nullifier). The
	// witness client does not observe into it.
	WitnessRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scarcity_witness_request_duration_seconds",
		Help:    "Latency of witness-federation HTTP calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// FreebirdRequestDuration observes Freebird issuance-endpoint latency.
	// The freebird client does not observe into it.
	FreebirdRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scarcity_freebird_request_duration_seconds",
		Help:    "Latency of Freebird issuance HTTP calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

func init() {
	Registry.MustRegister(
		GossipMessagesReceived,
		GossipRecordsExpired,
		GossipPeerCount,
		ValidatorVerdicts,
		WitnessRequestDuration,
		FreebirdRequestDuration,
	)
}

// Handler returns the http.Handler serving this package's metrics in the
// Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
