package token

import (
	"context"
	"sync"

	"github.com/flammafex/scarcity/crypto"
	"github.com/flammafex/scarcity/freebird"
	"github.com/flammafex/scarcity/witness"
)

// fakeFreebird issues deterministic secrets derived from the requested
// fingerprint and blinds by returning a fixed-size placeholder point — no
// real VOPRF math is needed to exercise the token state machine's wiring,
// since crypto/voprf_test.go already covers the VOPRF math itself.
type fakeFreebird struct{}

func (fakeFreebird) Blind(pubKeyFingerprint, issuanceCtx []byte) (crypto.Point33, error) {
	h := crypto.Hash([]byte("fake-blind"), pubKeyFingerprint, issuanceCtx)
	return crypto.Point33(h.Bytes()), nil
}

func (fakeFreebird) IssueToken(ctx context.Context, pubKeyFingerprint, issuanceCtx []byte) (freebird.IssuedToken, error) {
	secret := crypto.Hash([]byte("fake-issue"), pubKeyFingerprint, issuanceCtx)
	return freebird.IssuedToken{Secret: secret, IssuerID: "fake-issuer"}, nil
}

// fakeWitness always timestamps successfully; Verify returns verifyResult
// (true from newFakeWitness) whatever attestation it is given.
type fakeWitness struct {
	verifyResult   bool
	checkNullifier map[string]float32
	mu             sync.Mutex
	seqCtr         uint64
}

func newFakeWitness() *fakeWitness {
	return &fakeWitness{verifyResult: true, checkNullifier: map[string]float32{}}
}

func (w *fakeWitness) Timestamp(ctx context.Context, hashHex string) (witness.Attestation, error) {
	w.mu.Lock()
	w.seqCtr++
	w.mu.Unlock()
	return witness.Attestation{
		Hash:        hashHex,
		TimestampMs: 1000,
		Signatures:  []string{"fakesig"},
		WitnessIDs:  []string{"w1"},
	}, nil
}

func (w *fakeWitness) Verify(ctx context.Context, att witness.Attestation) (bool, error) {
	return w.verifyResult, nil
}

func (w *fakeWitness) CheckNullifier(ctx context.Context, nullifierHex string) float32 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.checkNullifier[nullifierHex]
}

// fakeGossip records published nullifiers and rejects republishing one
// already seen, mirroring the real engine's double-spend check.
type fakeGossip struct {
	mu        sync.Mutex
	published map[crypto.Hash32]bool
}

func newFakeGossip() *fakeGossip {
	return &fakeGossip{published: map[crypto.Hash32]bool{}}
}

func (g *fakeGossip) Publish(nullifier crypto.Hash32, proof witness.Attestation) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.published[nullifier] {
		return errDoubleSpendLocalFake
	}
	g.published[nullifier] = true
	return nil
}

func (g *fakeGossip) CheckNullifier(nullifier crypto.Hash32) float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.published[nullifier] {
		return 1.0
	}
	return 0
}

var errDoubleSpendLocalFake = &fakeErr{"fake gossip: double-spend"}

type fakeErr struct{ msg string }

func (e *fakeErr) Error() string { return e.msg }

func newTestClients() *Clients {
	return &Clients{
		Freebird: fakeFreebird{},
		Witness:  newFakeWitness(),
		Gossip:   newFakeGossip(),
	}
}
