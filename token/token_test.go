package token

import (
	"context"
	"testing"

	"github.com/flammafex/scarcity/crypto"
)

// Scenario 1: mint-transfer-receive.
func TestMintTransferReceive(t *testing.T) {
	ctx := context.Background()
	clients := newTestClients()

	a, err := Mint(ctx, 100, clients)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	bSecret, _ := crypto.RandomBytes(32)
	bPub := crypto.DerivePublicKey(bSecret)

	pkg, err := a.Transfer(ctx, bPub)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if len(pkg.Nullifier) != 64 {
		t.Fatalf("expected 64-hex nullifier, got %d chars", len(pkg.Nullifier))
	}
	if !a.Spent {
		t.Fatal("expected source token marked spent")
	}

	recv, err := ReceiveTransfer(ctx, pkg, clients, bSecret)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if recv.Amount != 100 {
		t.Fatalf("expected amount 100, got %d", recv.Amount)
	}
	if recv.ID != pkg.TokenID {
		t.Fatalf("expected received id to match package token id")
	}
	if recv.Spent {
		t.Fatal("expected received token to be unspent")
	}
}

// Scenario 2: double-spend rejection.
func TestDoubleSpendRejection(t *testing.T) {
	ctx := context.Background()
	clients := newTestClients()

	a, err := Mint(ctx, 100, clients)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	bPub := crypto.DerivePublicKey([]byte("recipient-b-seed-000000000000000"))
	cPub := crypto.DerivePublicKey([]byte("recipient-c-seed-000000000000000"))

	pkg, err := a.Transfer(ctx, bPub)
	if err != nil {
		t.Fatalf("first transfer: %v", err)
	}

	if _, err := a.Transfer(ctx, cPub); err != ErrTokenAlreadySpent {
		t.Fatalf("expected ErrTokenAlreadySpent on second transfer, got %v", err)
	}

	nullifier, err := crypto.Hash32FromHex(pkg.Nullifier)
	if err != nil {
		t.Fatalf("parse nullifier: %v", err)
	}
	if err := clients.Gossip.Publish(nullifier, pkg.Proof); err == nil {
		t.Fatal("expected second publish of the same nullifier to fail")
	}
}

func TestMintReturnsUnspentTokenWithHexID(t *testing.T) {
	ctx := context.Background()
	clients := newTestClients()
	a, err := Mint(ctx, 10, clients)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if a.Spent {
		t.Fatal("freshly minted token must not be spent")
	}
	if len(a.ID) != 64 {
		t.Fatalf("expected 64-hex token id, got %d chars", len(a.ID))
	}
}
