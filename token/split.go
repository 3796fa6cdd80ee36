package token

import (
	"context"
	"encoding/hex"

	"github.com/flammafex/scarcity/crypto"
	"github.com/flammafex/scarcity/freebird"
)

// SplitRecipient is one requested output slot for Split: how much value
// goes to which public key.
type SplitRecipient struct {
	Amount    uint64
	PublicKey crypto.Hash32
}

// Split implements the 1-to-many split operation. Amounts
// must all be positive and sum exactly to the source token's amount,
// otherwise ErrInvalidSplit. A single nullifier and ownership proof bind
// the whole operation; the package hash uses canonical-JSON framing since
// a split's core is not the fixed four-field transfer shape.
func (t *Token) Split(ctx context.Context, recipients []SplitRecipient) (SplitPackage, error) {
	if t.Spent {
		return SplitPackage{}, ErrTokenAlreadySpent
	}
	if len(recipients) == 0 {
		return SplitPackage{}, ErrEmptyRecipients
	}
	var sum uint64
	for _, r := range recipients {
		if r.Amount == 0 {
			return SplitPackage{}, ErrInvalidSplit
		}
		sum += r.Amount
	}
	if sum != t.Amount {
		return SplitPackage{}, ErrInvalidSplit
	}

	nullifier := t.nullifier()

	entries := make([]SplitEntry, len(recipients))
	for i, r := range recipients {
		id, err := randomTokenID()
		if err != nil {
			return SplitPackage{}, err
		}
		commitment, err := t.clients.Freebird.Blind(r.PublicKey.Bytes(), nullifier.Bytes())
		if err != nil {
			return SplitPackage{}, err
		}
		entries[i] = SplitEntry{
			TokenID:    id,
			Amount:     r.Amount,
			Commitment: hex.EncodeToString(commitment),
		}
	}

	ownershipProof, err := freebird.CreateOwnershipProof(t.Secret, nullifier.Bytes())
	if err != nil {
		return SplitPackage{}, err
	}

	core := splitCore{
		SourceTokenID: t.ID,
		SourceAmount:  t.Amount,
		Splits:        entries,
		Nullifier:     nullifier.Hex(),
	}
	pkgHash, err := hashSplitCore(core)
	if err != nil {
		return SplitPackage{}, err
	}
	proof, err := t.clients.Witness.Timestamp(ctx, pkgHash.Hex())
	if err != nil {
		return SplitPackage{}, err
	}
	if err := t.clients.Gossip.Publish(nullifier, proof); err != nil {
		return SplitPackage{}, err
	}

	t.Spent = true

	return SplitPackage{
		SourceTokenID:  core.SourceTokenID,
		SourceAmount:   core.SourceAmount,
		Splits:         core.Splits,
		Nullifier:      core.Nullifier,
		Proof:          proof,
		OwnershipProof: hex.EncodeToString(ownershipProof),
	}, nil
}
