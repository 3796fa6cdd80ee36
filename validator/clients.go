package validator

import (
	"context"

	"github.com/flammafex/scarcity/crypto"
	"github.com/flammafex/scarcity/witness"
)

// GossipChecker is the fast local double-spend check the validator
// consults before and after the propagation wait. Satisfied by
// *gossip.Engine.
type GossipChecker interface {
	CheckNullifier(nullifier crypto.Hash32) float32
	PeerDirectionCounts() (outbound, inbound, unknown int)
}

// WitnessChecker is the federated double-spend and attestation check.
// Satisfied by *witness.Client.
type WitnessChecker interface {
	CheckNullifier(ctx context.Context, nullifierHex string) float32
	Verify(ctx context.Context, att witness.Attestation) (bool, error)
}

// Clients bundles the collaborators a Validator consults.
type Clients struct {
	Gossip  GossipChecker
	Witness WitnessChecker
}
