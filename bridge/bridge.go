// Package bridge implements the two-phase federation bridge: lock a token
// in its source federation, mint its mirror in
// a target federation, and let either half be independently observed via
// the existing witness/gossip primitives. Correctness hinges entirely on
// the target-id derivation rule that keeps the two federations' nullifier
// spaces from colliding.
package bridge

import (
	"context"
	"encoding/hex"

	"github.com/flammafex/scarcity/crypto"
	"github.com/flammafex/scarcity/freebird"
	"github.com/flammafex/scarcity/token"
	"github.com/flammafex/scarcity/witness"
)

// Package is the bearer blob for a completed (or in-flight) bridge: the
// lock-package core, its source-side attestation, its optional target-side
// attestation, and the ownership proof binding it to the source secret.
type Package struct {
	SourceTokenID    string              `json:"source_token_id"`
	SourceFederation string              `json:"source_federation"`
	TargetFederation string              `json:"target_federation"`
	Amount           uint64              `json:"amount"`
	Commitment       string              `json:"commitment"`
	Nullifier        string              `json:"nullifier"`
	SourceProof      witness.Attestation `json:"source_proof"`
	TargetProof      *witness.Attestation `json:"target_proof,omitempty"`
	OwnershipProof   string              `json:"ownership_proof"`
}

// Federation bundles one side's service clients plus its federation id.
type Federation struct {
	ID      string
	Clients *token.Clients
}

// Lock implements bridge_token: locks t in source.ID,
// timestamps the lock in both the source and target witness federations,
// publishes the nullifier only in source, and marks t spent.
func Lock(ctx context.Context, t *token.Token, recipientPubKey crypto.Hash32, source, target Federation) (Package, error) {
	if t.Spent {
		return Package{}, token.ErrTokenAlreadySpent
	}

	nullifier := crypto.DeriveNullifier(t.Secret, t.ID)
	commitment, err := source.Clients.Freebird.Blind(recipientPubKey.Bytes(), nullifier.Bytes())
	if err != nil {
		return Package{}, err
	}
	ownershipProof, err := freebird.CreateOwnershipProof(t.Secret, nullifier.Bytes())
	if err != nil {
		return Package{}, err
	}

	core := token.BridgeCore{
		SourceTokenID:    t.ID,
		SourceFederation: source.ID,
		TargetFederation: target.ID,
		Amount:           t.Amount,
		Commitment:       hex.EncodeToString(commitment),
		Nullifier:        nullifier.Hex(),
	}
	lockHash, err := token.HashBridgeCore(core)
	if err != nil {
		return Package{}, err
	}

	sourceProof, err := source.Clients.Witness.Timestamp(ctx, lockHash.Hex())
	if err != nil {
		return Package{}, err
	}
	if err := source.Clients.Gossip.Publish(nullifier, sourceProof); err != nil {
		return Package{}, err
	}

	// Mint-package core is the lock-package plus its source attestation;
	// the target federation timestamps that combined record, but no
	// nullifier is published there — it is published only when the
	// bridged token is later spent within the target federation.
	mintHash := crypto.Hash([]byte("BRIDGE-MINT-v1"), lockHash.Bytes(), sourceProof.Hash)
	targetProof, err := target.Clients.Witness.Timestamp(ctx, mintHash.Hex())
	if err != nil {
		return Package{}, err
	}

	t.Spent = true

	return Package{
		SourceTokenID:    core.SourceTokenID,
		SourceFederation: core.SourceFederation,
		TargetFederation: core.TargetFederation,
		Amount:           core.Amount,
		Commitment:       core.Commitment,
		Nullifier:        core.Nullifier,
		SourceProof:      sourceProof,
		TargetProof:      &targetProof,
		OwnershipProof:   hex.EncodeToString(ownershipProof),
	}, nil
}

// TargetTokenID derives the collision-free token id a bridged value takes
// on in targetFederation: hex(hash(source_token_id, target_federation,
// "bridge-v1")).
func TargetTokenID(sourceTokenID, targetFederation string) string {
	return crypto.Hash(sourceTokenID, targetFederation, "bridge-v1").Hex()
}

// ReceiveBridged implements receive_bridged: verify both
// attestations and the ownership proof, require the package's target
// federation to match self, and construct the target-federation token
// under the collision-free derived id.
func ReceiveBridged(ctx context.Context, pkg Package, selfFederationID string, targetClients *token.Clients, recipientSecret []byte) (*token.Token, error) {
	if pkg.TargetFederation != selfFederationID {
		return nil, token.ErrFederationMismatch
	}
	if ok, err := targetClients.Witness.Verify(ctx, pkg.SourceProof); err != nil {
		return nil, err
	} else if !ok {
		return nil, token.ErrInvalidProof
	}
	if pkg.TargetProof != nil {
		if ok, err := targetClients.Witness.Verify(ctx, *pkg.TargetProof); err != nil {
			return nil, err
		} else if !ok {
			return nil, token.ErrInvalidProof
		}
	}
	proofBytes, err := hex.DecodeString(pkg.OwnershipProof)
	if err != nil {
		return nil, err
	}
	nullifierBytes, err := hex.DecodeString(pkg.Nullifier)
	if err != nil {
		return nil, err
	}
	if !freebird.VerifyOwnershipProof(proofBytes, nullifierBytes) {
		return nil, token.ErrInvalidProof
	}

	targetID := TargetTokenID(pkg.SourceTokenID, pkg.TargetFederation)
	return token.NewHeld(targetID, pkg.Amount, recipientSecret, targetClients), nil
}

// VerifyBridge implements verify_bridge: the source-side
// lock must be independently observable via the source witness's
// check_nullifier, and both attestations (target only if present) must
// verify.
func VerifyBridge(ctx context.Context, pkg Package, source, target Federation) (bool, error) {
	if source.Clients.Witness.CheckNullifier(ctx, pkg.Nullifier) <= 0 {
		return false, nil
	}
	ok, err := source.Clients.Witness.Verify(ctx, pkg.SourceProof)
	if err != nil || !ok {
		return false, err
	}
	if pkg.TargetProof != nil {
		ok, err := target.Clients.Witness.Verify(ctx, *pkg.TargetProof)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}
