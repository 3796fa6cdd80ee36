package token

import (
	"context"
	"encoding/hex"

	"github.com/flammafex/scarcity/crypto"
	"github.com/flammafex/scarcity/freebird"
)

// MultiParty implements the 1-to-many bound-in-one-package operation (spec
// §4.C.4): like Split, but every recipient slot also carries its public
// key so the receiver can identify which slot is theirs. Single nullifier,
// single ownership proof.
func (t *Token) MultiParty(ctx context.Context, recipients []SplitRecipient) (MultiPartyTransfer, error) {
	if t.Spent {
		return MultiPartyTransfer{}, ErrTokenAlreadySpent
	}
	if len(recipients) == 0 {
		return MultiPartyTransfer{}, ErrEmptyRecipients
	}
	var sum uint64
	for _, r := range recipients {
		if r.Amount == 0 {
			return MultiPartyTransfer{}, ErrInvalidSplit
		}
		sum += r.Amount
	}
	if sum != t.Amount {
		return MultiPartyTransfer{}, ErrInvalidSplit
	}

	nullifier := t.nullifier()

	slots := make([]MultiPartyRecipient, len(recipients))
	for i, r := range recipients {
		id, err := randomTokenID()
		if err != nil {
			return MultiPartyTransfer{}, err
		}
		commitment, err := t.clients.Freebird.Blind(r.PublicKey.Bytes(), nullifier.Bytes())
		if err != nil {
			return MultiPartyTransfer{}, err
		}
		slots[i] = MultiPartyRecipient{
			PublicKey:  r.PublicKey.Hex(),
			Amount:     r.Amount,
			Commitment: hex.EncodeToString(commitment),
			TokenID:    id,
		}
	}

	ownershipProof, err := freebird.CreateOwnershipProof(t.Secret, nullifier.Bytes())
	if err != nil {
		return MultiPartyTransfer{}, err
	}

	core := multiPartyCore{
		SourceTokenID: t.ID,
		SourceAmount:  t.Amount,
		Recipients:    slots,
		Nullifier:     nullifier.Hex(),
	}
	pkgHash, err := hashMultiPartyCore(core)
	if err != nil {
		return MultiPartyTransfer{}, err
	}
	proof, err := t.clients.Witness.Timestamp(ctx, pkgHash.Hex())
	if err != nil {
		return MultiPartyTransfer{}, err
	}
	if err := t.clients.Gossip.Publish(nullifier, proof); err != nil {
		return MultiPartyTransfer{}, err
	}

	t.Spent = true

	return MultiPartyTransfer{
		SourceTokenID:  core.SourceTokenID,
		SourceAmount:   core.SourceAmount,
		Recipients:     core.Recipients,
		Nullifier:      core.Nullifier,
		Proof:          proof,
		OwnershipProof: hex.EncodeToString(ownershipProof),
	}, nil
}
