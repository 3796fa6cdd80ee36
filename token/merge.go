package token

import (
	"context"
	"encoding/hex"

	"github.com/flammafex/scarcity/crypto"
	"github.com/flammafex/scarcity/freebird"
)

// Merge implements the many-to-1 merge operation: every
// input token must be unspent and share the same service clients. Produces
// one aggregated commitment to the recipient, one fresh target token id,
// one source entry and ownership proof per input (each bound to its own
// nullifier), and a single witness timestamp over the whole package. Every
// source nullifier is published; all inputs are marked spent on success.
func Merge(ctx context.Context, tokens []*Token, recipientPubKey crypto.Hash32) (MergePackage, error) {
	if len(tokens) == 0 {
		return MergePackage{}, ErrEmptyRecipients
	}
	for _, tk := range tokens {
		if tk.Spent {
			return MergePackage{}, ErrTokenAlreadySpent
		}
	}
	clients := tokens[0].clients

	var targetAmount uint64
	sources := make([]MergeSource, len(tokens))
	nullifiers := make([]crypto.Hash32, len(tokens))
	ownershipProofs := make([]string, len(tokens))
	for i, tk := range tokens {
		targetAmount += tk.Amount
		n := tk.nullifier()
		nullifiers[i] = n
		sources[i] = MergeSource{TokenID: tk.ID, Amount: tk.Amount, Nullifier: n.Hex()}
		proof, err := freebird.CreateOwnershipProof(tk.Secret, n.Bytes())
		if err != nil {
			return MergePackage{}, err
		}
		ownershipProofs[i] = hex.EncodeToString(proof)
	}

	targetID, err := randomTokenID()
	if err != nil {
		return MergePackage{}, err
	}
	commitment, err := clients.Freebird.Blind(recipientPubKey.Bytes(), nullifiers[0].Bytes())
	if err != nil {
		return MergePackage{}, err
	}

	core := mergeCore{
		TargetTokenID: targetID,
		TargetAmount:  targetAmount,
		Commitment:    hex.EncodeToString(commitment),
		Sources:       sources,
	}
	pkgHash, err := hashMergeCore(core)
	if err != nil {
		return MergePackage{}, err
	}
	proof, err := clients.Witness.Timestamp(ctx, pkgHash.Hex())
	if err != nil {
		return MergePackage{}, err
	}
	for _, n := range nullifiers {
		if err := clients.Gossip.Publish(n, proof); err != nil {
			return MergePackage{}, err
		}
	}

	for _, tk := range tokens {
		tk.Spent = true
	}

	return MergePackage{
		TargetTokenID:   core.TargetTokenID,
		TargetAmount:    core.TargetAmount,
		Commitment:      core.Commitment,
		Sources:         core.Sources,
		Proof:           proof,
		OwnershipProofs: ownershipProofs,
	}, nil
}
