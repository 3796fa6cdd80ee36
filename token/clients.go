package token

import (
	"context"

	"github.com/flammafex/scarcity/crypto"
	"github.com/flammafex/scarcity/freebird"
	"github.com/flammafex/scarcity/witness"
)

// FreebirdClient is the subset of freebird.Client a token needs: obtaining
// issued secrets and producing unlinkable commitments to a public key.
// Defined here, at the point of use, so tests can supply an in-memory
// double instead of a real issuance federation.
type FreebirdClient interface {
	Blind(pubKeyFingerprint, issuanceCtx []byte) (crypto.Point33, error)
	IssueToken(ctx context.Context, pubKeyFingerprint, issuanceCtx []byte) (freebird.IssuedToken, error)
}

// WitnessClient is the subset of witness.Client a token needs.
type WitnessClient interface {
	Timestamp(ctx context.Context, hashHex string) (witness.Attestation, error)
	Verify(ctx context.Context, att witness.Attestation) (bool, error)
	CheckNullifier(ctx context.Context, nullifierHex string) float32
}

// GossipEngine is the subset of gossip.Engine a token needs.
type GossipEngine interface {
	Publish(nullifier crypto.Hash32, proof witness.Attestation) error
	CheckNullifier(nullifier crypto.Hash32) float32
}

// Clients bundles the three external-service handles a token operation
// needs. Per the borrowed-reference design, a Clients value is
// owned by an infrastructure container with a lifetime outliving every
// token it services; tokens hold a non-owning pointer to it.
type Clients struct {
	Freebird FreebirdClient
	Witness  WitnessClient
	Gossip   GossipEngine
}
