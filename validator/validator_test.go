package validator

import (
	"context"
	"testing"

	"github.com/flammafex/scarcity/token"
	"github.com/flammafex/scarcity/witness"
)

func testPackage(timestampMs uint64) token.TransferPackage {
	return token.TransferPackage{
		TokenID:    "deadbeef",
		Amount:     10,
		Commitment: "aa",
		Nullifier:  "bb00000000000000000000000000000000000000000000000000000000000000",
		Proof: witness.Attestation{
			Hash:        "bb",
			TimestampMs: timestampMs,
			Signatures:  []string{"sig"},
			WitnessIDs:  []string{"w1"},
		},
	}
}

func newTestValidator(t *testing.T, cfg Config, gossip fakeGossipChecker, wit fakeWitnessChecker, now int64) *Validator {
	t.Helper()
	v, err := New(cfg, Clients{Gossip: gossip, Witness: wit}, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	v.nowFunc = func() int64 { return now }
	return v
}

func TestValidateAgeGateRejectsExpired(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTokenAgeMs = 1000
	v := newTestValidator(t, cfg, fakeGossipChecker{}, fakeWitnessChecker{verifyResult: true}, 5000)
	pkg := testPackage(1000) // age = 4000 > 1000
	if _, err := v.FastValidate(context.Background(), pkg); err != ErrExpired {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestValidateGossipDoubleSpend(t *testing.T) {
	cfg := DefaultConfig()
	v := newTestValidator(t, cfg, fakeGossipChecker{nullifierScore: 0.9}, fakeWitnessChecker{verifyResult: true}, 2000)
	pkg := testPackage(1000)
	if _, err := v.FastValidate(context.Background(), pkg); err != ErrDoubleSpendGossip {
		t.Fatalf("expected ErrDoubleSpendGossip, got %v", err)
	}
}

func TestValidateWitnessDoubleSpend(t *testing.T) {
	cfg := DefaultConfig()
	v := newTestValidator(t, cfg, fakeGossipChecker{nullifierScore: 0}, fakeWitnessChecker{nullifierScore: 1, verifyResult: true}, 2000)
	pkg := testPackage(1000)
	if _, err := v.FastValidate(context.Background(), pkg); err != ErrDoubleSpendWitness {
		t.Fatalf("expected ErrDoubleSpendWitness, got %v", err)
	}
}

func TestValidateInvalidAttestation(t *testing.T) {
	cfg := DefaultConfig()
	v := newTestValidator(t, cfg, fakeGossipChecker{}, fakeWitnessChecker{verifyResult: false}, 2000)
	pkg := testPackage(1000)
	if _, err := v.FastValidate(context.Background(), pkg); err != ErrInvalidAttestation {
		t.Fatalf("expected ErrInvalidAttestation, got %v", err)
	}
}

func TestValidateLowConfidenceWithNoPeers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinConfidence = 0.5
	v := newTestValidator(t, cfg, fakeGossipChecker{}, fakeWitnessChecker{verifyResult: true}, 2000)
	pkg := testPackage(1000)
	// No peers, no wait (FastValidate) => peer_score=0, witness_score=min(3/3,0.3)=0.3, time_score=0 => c=0.3 < 0.5
	if _, err := v.FastValidate(context.Background(), pkg); err != ErrLowConfidence {
		t.Fatalf("expected ErrLowConfidence, got %v", err)
	}
}

func TestFastValidateSucceedsWithSufficientPeers(t *testing.T) {
	cfg := DefaultConfig()
	// outbound=2 => effective_peers=6 => peer_score=0.5; witness_score=0.3; time_score=0 (fast path skips wait)
	// c = 0.8 >= 0.5
	v := newTestValidator(t, cfg, fakeGossipChecker{outbound: 2}, fakeWitnessChecker{verifyResult: true}, 2000)
	pkg := testPackage(1000)
	res, err := v.FastValidate(context.Background(), pkg)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if !res.Valid {
		t.Fatal("expected Valid = true")
	}
	if res.Confidence < cfg.MinConfidence {
		t.Fatalf("expected confidence >= %v, got %v", cfg.MinConfidence, res.Confidence)
	}
}

func TestValidateFullPathWithPropagationWait(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WaitTimeMs = 5 // keep the test fast; still exercises the wait + recheck path
	v := newTestValidator(t, cfg, fakeGossipChecker{outbound: 1}, fakeWitnessChecker{verifyResult: true}, 2000)
	pkg := testPackage(1000)
	res, err := v.Validate(context.Background(), pkg)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if !res.Valid {
		t.Fatal("expected Valid = true")
	}
}

func TestValidateCancellationDuringWait(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WaitTimeMs = 60_000
	v := newTestValidator(t, cfg, fakeGossipChecker{}, fakeWitnessChecker{verifyResult: true}, 2000)
	pkg := testPackage(1000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := v.Validate(ctx, pkg); err != ErrCancelled {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestNewRejectsWindowWiderThanGossip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTokenAgeMs = 10_000
	if _, err := New(cfg, Clients{Gossip: fakeGossipChecker{}, Witness: fakeWitnessChecker{}}, 5_000); err != ErrWindowMismatch {
		t.Fatalf("expected ErrWindowMismatch, got %v", err)
	}
}
