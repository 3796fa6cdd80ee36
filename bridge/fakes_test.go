package bridge

import (
	"context"
	"sync"

	"github.com/flammafex/scarcity/crypto"
	"github.com/flammafex/scarcity/freebird"
	"github.com/flammafex/scarcity/token"
	"github.com/flammafex/scarcity/witness"
)

type fakeFreebird struct{}

func (fakeFreebird) Blind(pubKeyFingerprint, issuanceCtx []byte) (crypto.Point33, error) {
	h := crypto.Hash([]byte("fake-blind"), pubKeyFingerprint, issuanceCtx)
	return crypto.Point33(h.Bytes()), nil
}

func (fakeFreebird) IssueToken(ctx context.Context, pubKeyFingerprint, issuanceCtx []byte) (freebird.IssuedToken, error) {
	secret := crypto.Hash([]byte("fake-issue"), pubKeyFingerprint, issuanceCtx)
	return freebird.IssuedToken{Secret: secret, IssuerID: "fake-issuer"}, nil
}

// fakeWitness always verifies successfully and reports every nullifier as
// observed, which is sufficient to exercise the bridge's lock-observable
// check without reimplementing the witness federation's internals.
type fakeWitness struct {
	mu     sync.Mutex
	seqCtr uint64
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
	return true, nil
}

func (w *fakeWitness) CheckNullifier(ctx context.Context, nullifierHex string) float32 {
	return 1.0
}

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

func newTestClients() *token.Clients {
	return &token.Clients{
		Freebird: fakeFreebird{},
		Witness:  &fakeWitness{},
		Gossip:   newFakeGossip(),
	}
}
