package gossip

// Config holds the gossip engine's tunable policy. Defaults mirror the
// reference values discussed for the nullifier gossip protocol.
type Config struct {
	// PeerScoreThreshold is the score below which a peer is disconnected
	// and evicted from the peer table.
	PeerScoreThreshold int32
	// MaxTimestampFutureSec bounds how far into the future a message's
	// own timestamp (GossipMessage.TimestampMs) may claim to be. The
	// timestamp inside the attached proof is not checked by this gate.
	MaxTimestampFutureSec int64
	// MaxNullifierAgeMs is the rolling validity window: both the oldest
	// age a message's own timestamp (GossipMessage.TimestampMs) may carry,
	// and the sweep retention period for stored records. This doubles as
	// the lazy-demurrage window.
	MaxNullifierAgeMs int64
	// RequireOwnershipProof gates received nullifier messages on a valid
	// ownership proof bound to the nullifier.
	RequireOwnershipProof bool
	// RateLimitBurst and RateLimitRefillPerSec parameterize the per-peer
	// leaky bucket.
	RateLimitBurst        float64
	RateLimitRefillPerSec float64
	// QuorumEstimate is the small constant CheckNullifier divides observed
	// count by to produce a fast local confidence estimate.
	QuorumEstimate uint32
	// SubnetWarnFraction is the Sybil heuristic threshold: if any single
	// subnet's peer share exceeds this fraction, AddPeer logs a warning.
	SubnetWarnFraction float64
	// ScoreMin and ScoreMax clamp a peer's score.
	ScoreMin int32
	ScoreMax int32

	// Score deltas applied by the receive-path gates.
	ScoreDeltaTimestampFail      int32
	ScoreDeltaOwnershipFail      int32
	ScoreDeltaWitnessFail        int32
	ScoreDeltaDuplicate          int32
	ScoreDeltaAccept             int32
}

// DefaultConfig returns the protocol's reference defaults.
func DefaultConfig() Config {
	const day = 24 * 60 * 60 * 1000
	return Config{
		PeerScoreThreshold:      -50,
		MaxTimestampFutureSec:   5,
		MaxNullifierAgeMs:       24 * 24 * day, // ~576 days
		RequireOwnershipProof:   false,
		RateLimitBurst:          20,
		RateLimitRefillPerSec:   10,
		QuorumEstimate:          3,
		SubnetWarnFraction:      0.33,
		ScoreMin:                -100,
		ScoreMax:                100,
		ScoreDeltaTimestampFail: -10,
		ScoreDeltaOwnershipFail: -10,
		ScoreDeltaWitnessFail:   -10,
		ScoreDeltaDuplicate:     -1,
		ScoreDeltaAccept:        1,
	}
}
