package validator

import "time"

// Config tunes the transfer validator.
type Config struct {
	// MaxTokenAgeMs bounds how old a transfer package's witness timestamp
	// may be before it is rejected as Expired. Per the Design Notes'
	// validity-window coupling, this must not exceed the gossip engine's
	// MaxNullifierAgeMs; New enforces that at construction.
	MaxTokenAgeMs int64
	// WaitTimeMs is how long FastValidate skips and Validate sleeps during
	// the propagation wait, default 5000. DeepValidate sleeps for its own
	// waitMs argument instead.
	WaitTimeMs int64
	// MinConfidence is the minimum acceptable confidence score in [0, 1].
	MinConfidence float64
	// WitnessFederationDepth estimates how many independent witness
	// gateways corroborate an attestation; feeds witness_score.
	WitnessFederationDepth int
	// GossipDoubleSpendThreshold is the gossip fast-path cutoff above which
	// a nullifier is treated as already spent (default 0.5).
	GossipDoubleSpendThreshold float32
}

// DefaultConfig returns the protocol's default tuning.
func DefaultConfig() Config {
	return Config{
		MaxTokenAgeMs:              24 * 24 * 24 * 3600 * 1000,
		WaitTimeMs:                 5000,
		MinConfidence:              0.5,
		WitnessFederationDepth:     3,
		GossipDoubleSpendThreshold: 0.5,
	}
}

func msToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
