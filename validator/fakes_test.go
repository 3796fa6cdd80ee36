package validator

import (
	"context"

	"github.com/flammafex/scarcity/crypto"
	"github.com/flammafex/scarcity/witness"
)

type fakeGossipChecker struct {
	nullifierScore          float32
	outbound, inbound, rest int
}

func (f fakeGossipChecker) CheckNullifier(nullifier crypto.Hash32) float32 {
	return f.nullifierScore
}

func (f fakeGossipChecker) PeerDirectionCounts() (int, int, int) {
	return f.outbound, f.inbound, f.rest
}

type fakeWitnessChecker struct {
	nullifierScore float32
	verifyResult   bool
	verifyErr      error
}

func (f fakeWitnessChecker) CheckNullifier(ctx context.Context, nullifierHex string) float32 {
	return f.nullifierScore
}

func (f fakeWitnessChecker) Verify(ctx context.Context, att witness.Attestation) (bool, error) {
	return f.verifyResult, f.verifyErr
}
