package bridge

import (
	"context"
	"testing"

	"github.com/flammafex/scarcity/crypto"
	"github.com/flammafex/scarcity/token"
)

// Scenario 6: bridge round-trip.
func TestBridgeRoundTrip(t *testing.T) {
	ctx := context.Background()
	sourceClients := newTestClients()
	targetClients := newTestClients()

	source := Federation{ID: "F1", Clients: sourceClients}
	target := Federation{ID: "F2", Clients: targetClients}

	src, err := token.Mint(ctx, 75, sourceClients)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	recipientSecret, _ := crypto.RandomBytes(32)
	recipientPub := crypto.DerivePublicKey(recipientSecret)

	pkg, err := Lock(ctx, src, recipientPub, source, target)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if !src.Spent {
		t.Fatal("expected source token marked spent after lock")
	}
	if pkg.TargetProof == nil {
		t.Fatal("expected a target-side attestation")
	}

	ok, err := VerifyBridge(ctx, pkg, source, target)
	if err != nil {
		t.Fatalf("verify_bridge: %v", err)
	}
	if !ok {
		t.Fatal("expected verify_bridge to return true")
	}

	recv, err := ReceiveBridged(ctx, pkg, "F2", targetClients, recipientSecret)
	if err != nil {
		t.Fatalf("receive_bridged: %v", err)
	}
	if recv.Amount != 75 {
		t.Fatalf("expected bridged amount 75, got %d", recv.Amount)
	}
	wantID := crypto.Hash(pkg.SourceTokenID, "F2", "bridge-v1").Hex()
	if recv.ID != wantID {
		t.Fatalf("expected target-derived id %s, got %s", wantID, recv.ID)
	}

	if _, err := ReceiveBridged(ctx, pkg, "F3", targetClients, recipientSecret); err != token.ErrFederationMismatch {
		t.Fatalf("expected ErrFederationMismatch for a non-matching federation, got %v", err)
	}
}
