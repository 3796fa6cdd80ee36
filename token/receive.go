package token

import (
	"context"

	"github.com/flammafex/scarcity/freebird"
	"github.com/flammafex/scarcity/witness"
)

// verifyWitnessProof implements the common first step of every receive
// path: the package's attestation must verify.
func verifyWitnessProof(ctx context.Context, witnessC WitnessClient, proof witness.Attestation) error {
	ok, err := witnessC.Verify(ctx, proof)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidProof
	}
	return nil
}

// verifyOwnershipProofHex verifies an optional hex-encoded ownership proof
// against a hex-encoded binding (typically the package's nullifier). An
// absent proof is not an error — require_ownership_proof is a gossip-gate
// policy, not a universal receive requirement.
func verifyOwnershipProofHex(ownershipProofHex, bindingHex string) error {
	if ownershipProofHex == "" {
		return nil
	}
	proofBytes, err := parseHex(ownershipProofHex, 98)
	if err != nil {
		return err
	}
	bindingBytes, err := parseHex(bindingHex, 32)
	if err != nil {
		return err
	}
	if !freebird.VerifyOwnershipProof(proofBytes, bindingBytes) {
		return ErrInvalidProof
	}
	return nil
}

// ReceiveTransfer reconstructs a held token from a TransferPackage.
func ReceiveTransfer(ctx context.Context, pkg TransferPackage, clients *Clients, recipientSecret []byte) (*Token, error) {
	if err := verifyWitnessProof(ctx, clients.Witness, pkg.Proof); err != nil {
		return nil, err
	}
	if err := verifyOwnershipProofHex(pkg.OwnershipProof, pkg.Nullifier); err != nil {
		return nil, err
	}
	return &Token{ID: pkg.TokenID, Amount: pkg.Amount, Secret: recipientSecret, clients: clients}, nil
}

// ReceiveSplit reconstructs the recipient's token for slot index of a
// SplitPackage.
func ReceiveSplit(ctx context.Context, pkg SplitPackage, index int, clients *Clients, recipientSecret []byte) (*Token, error) {
	if index < 0 || index >= len(pkg.Splits) {
		return nil, ErrInvalidProof
	}
	if err := verifyWitnessProof(ctx, clients.Witness, pkg.Proof); err != nil {
		return nil, err
	}
	if err := verifyOwnershipProofHex(pkg.OwnershipProof, pkg.Nullifier); err != nil {
		return nil, err
	}
	slot := pkg.Splits[index]
	return &Token{ID: slot.TokenID, Amount: slot.Amount, Secret: recipientSecret, clients: clients}, nil
}

// ReceiveMultiParty reconstructs the recipient's token for slot index of a
// MultiPartyTransfer.
func ReceiveMultiParty(ctx context.Context, pkg MultiPartyTransfer, index int, clients *Clients, recipientSecret []byte) (*Token, error) {
	if index < 0 || index >= len(pkg.Recipients) {
		return nil, ErrInvalidProof
	}
	if err := verifyWitnessProof(ctx, clients.Witness, pkg.Proof); err != nil {
		return nil, err
	}
	if err := verifyOwnershipProofHex(pkg.OwnershipProof, pkg.Nullifier); err != nil {
		return nil, err
	}
	slot := pkg.Recipients[index]
	return &Token{ID: slot.TokenID, Amount: slot.Amount, Secret: recipientSecret, clients: clients}, nil
}

// ReceiveMerge reconstructs the recipient's target token from a
// MergePackage, verifying the package attestation plus each source's
// per-nullifier ownership proof when provided.
func ReceiveMerge(ctx context.Context, pkg MergePackage, clients *Clients, recipientSecret []byte) (*Token, error) {
	if err := verifyWitnessProof(ctx, clients.Witness, pkg.Proof); err != nil {
		return nil, err
	}
	for i, src := range pkg.Sources {
		if i >= len(pkg.OwnershipProofs) {
			break
		}
		if err := verifyOwnershipProofHex(pkg.OwnershipProofs[i], src.Nullifier); err != nil {
			return nil, err
		}
	}
	return &Token{ID: pkg.TargetTokenID, Amount: pkg.TargetAmount, Secret: recipientSecret, clients: clients}, nil
}
