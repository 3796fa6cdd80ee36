package token

import (
	"context"
	"testing"

	"github.com/flammafex/scarcity/crypto"
)

// Scenario 3: split correctness.
func TestSplitCorrectness(t *testing.T) {
	ctx := context.Background()
	clients := newTestClients()

	src, err := Mint(ctx, 100, clients)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	recipients := []SplitRecipient{
		{Amount: 30, PublicKey: crypto.DerivePublicKey([]byte("r1-000000000000000000000000000"))},
		{Amount: 40, PublicKey: crypto.DerivePublicKey([]byte("r2-000000000000000000000000000"))},
		{Amount: 30, PublicKey: crypto.DerivePublicKey([]byte("r3-000000000000000000000000000"))},
	}

	pkg, err := src.Split(ctx, recipients)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if !src.Spent {
		t.Fatal("expected source token marked spent")
	}
	if len(pkg.Splits) != 3 {
		t.Fatalf("expected 3 split entries, got %d", len(pkg.Splits))
	}

	seen := map[string]bool{}
	var sum uint64
	for _, s := range pkg.Splits {
		if len(s.TokenID) != 64 {
			t.Fatalf("expected 64-hex split token id, got %d chars", len(s.TokenID))
		}
		if seen[s.TokenID] {
			t.Fatalf("expected distinct split token ids, got duplicate %s", s.TokenID)
		}
		seen[s.TokenID] = true
		sum += s.Amount
	}
	if sum != 100 {
		t.Fatalf("expected split amounts to sum to 100, got %d", sum)
	}
}

func TestSplitRejectsMismatchedSum(t *testing.T) {
	ctx := context.Background()
	clients := newTestClients()
	src, err := Mint(ctx, 100, clients)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	recipients := []SplitRecipient{
		{Amount: 30, PublicKey: crypto.DerivePublicKey([]byte("r1"))},
		{Amount: 40, PublicKey: crypto.DerivePublicKey([]byte("r2"))},
	}
	if _, err := src.Split(ctx, recipients); err != ErrInvalidSplit {
		t.Fatalf("expected ErrInvalidSplit, got %v", err)
	}
}

func TestSplitRejectsZeroAmount(t *testing.T) {
	ctx := context.Background()
	clients := newTestClients()
	src, err := Mint(ctx, 100, clients)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	recipients := []SplitRecipient{
		{Amount: 100, PublicKey: crypto.DerivePublicKey([]byte("r1"))},
		{Amount: 0, PublicKey: crypto.DerivePublicKey([]byte("r2"))},
	}
	if _, err := src.Split(ctx, recipients); err != ErrInvalidSplit {
		t.Fatalf("expected ErrInvalidSplit for a zero-amount recipient, got %v", err)
	}
}

func TestMergeCombinesSourcesAndMarksSpent(t *testing.T) {
	ctx := context.Background()
	clients := newTestClients()

	a, err := Mint(ctx, 20, clients)
	if err != nil {
		t.Fatalf("mint a: %v", err)
	}
	b, err := Mint(ctx, 30, clients)
	if err != nil {
		t.Fatalf("mint b: %v", err)
	}

	target := crypto.DerivePublicKey([]byte("merge-target-seed-00000000000000"))
	pkg, err := Merge(ctx, []*Token{a, b}, target)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if pkg.TargetAmount != 50 {
		t.Fatalf("expected merged amount 50, got %d", pkg.TargetAmount)
	}
	if !a.Spent || !b.Spent {
		t.Fatal("expected both merge inputs marked spent")
	}
	if len(pkg.Sources) != 2 || len(pkg.OwnershipProofs) != 2 {
		t.Fatalf("expected 2 sources and 2 ownership proofs, got %d/%d", len(pkg.Sources), len(pkg.OwnershipProofs))
	}
}

func TestMultiPartyRejectsEmptyRecipients(t *testing.T) {
	ctx := context.Background()
	clients := newTestClients()
	src, err := Mint(ctx, 10, clients)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := src.MultiParty(ctx, nil); err != ErrEmptyRecipients {
		t.Fatalf("expected ErrEmptyRecipients, got %v", err)
	}
}

func TestMultiPartyRoundTrip(t *testing.T) {
	ctx := context.Background()
	clients := newTestClients()
	src, err := Mint(ctx, 60, clients)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	recipients := []SplitRecipient{
		{Amount: 25, PublicKey: crypto.DerivePublicKey([]byte("mp-r1"))},
		{Amount: 35, PublicKey: crypto.DerivePublicKey([]byte("mp-r2"))},
	}
	pkg, err := src.MultiParty(ctx, recipients)
	if err != nil {
		t.Fatalf("multiparty: %v", err)
	}

	recipientSecret, _ := crypto.RandomBytes(32)
	recv, err := ReceiveMultiParty(ctx, pkg, 1, clients, recipientSecret)
	if err != nil {
		t.Fatalf("receive multiparty: %v", err)
	}
	if recv.Amount != 35 {
		t.Fatalf("expected slot 1 amount 35, got %d", recv.Amount)
	}
}
