// Package witness implements the client side of the witness timestamping
// federation: submitting a hash for a quorum-signed attestation, verifying
// an attestation either remotely or (as a fallback) locally against cached
// BLS public keys, and checking whether a nullifier has already been
// witnessed elsewhere.
package witness

import "encoding/json"

// Attestation is a witness-federation-signed record binding a hash to a
// timestamp, carried on every package.
type Attestation struct {
	Hash        string          `json:"hash"`
	TimestampMs uint64          `json:"timestamp_ms"`
	Signatures  []string        `json:"signatures"`
	WitnessIDs  []string        `json:"witness_ids"`
	Raw         json.RawMessage `json:"raw,omitempty"`
}

// Valid checks the structural invariant len(signatures) == len(witness_ids).
func (a Attestation) Valid() bool {
	return len(a.Signatures) == len(a.WitnessIDs)
}
