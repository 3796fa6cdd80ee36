package token

import (
	"context"
	"encoding/hex"

	"github.com/flammafex/scarcity/crypto"
	"github.com/flammafex/scarcity/freebird"
)

// NewHashCondition builds a hash-locked HTLC condition: the holder of
// preimage whose SHA-256(UTF-8(hex(preimage))) equals hashlock may claim.
func NewHashCondition(hashlock crypto.Hash32) Condition {
	return Condition{Type: ConditionHash, Hashlock: hashlock.Hex()}
}

// NewTimeCondition builds a time-locked HTLC condition: before timelockMs
// the recipient may claim; at or after it, only the refund path applies.
func NewTimeCondition(timelockMs uint64) Condition {
	return Condition{Type: ConditionTime, TimelockMs: timelockMs}
}

func validateHTLCCondition(c Condition, refundPubKey *crypto.Hash32, nowMs int64) error {
	switch c.Type {
	case ConditionHash:
		if c.Hashlock == "" {
			return ErrHTLCConditionInvalid
		}
	case ConditionTime:
		if int64(c.TimelockMs) <= nowMs {
			return ErrHTLCConditionInvalid
		}
		if refundPubKey == nil {
			return ErrHTLCConditionInvalid
		}
	default:
		return ErrHTLCConditionInvalid
	}
	return nil
}

// TransferHTLC implements the hash/time-locked transfer operation: same
// shape as Transfer, plus a validated claim condition.
func (t *Token) TransferHTLC(ctx context.Context, recipientPubKey crypto.Hash32, condition Condition, refundPubKey *crypto.Hash32, nowMs int64) (HTLCPackage, error) {
	if t.Spent {
		return HTLCPackage{}, ErrTokenAlreadySpent
	}
	if err := validateHTLCCondition(condition, refundPubKey, nowMs); err != nil {
		return HTLCPackage{}, err
	}

	nullifier := t.nullifier()
	commitment, err := t.clients.Freebird.Blind(recipientPubKey.Bytes(), nullifier.Bytes())
	if err != nil {
		return HTLCPackage{}, err
	}
	ownershipProof, err := freebird.CreateOwnershipProof(t.Secret, nullifier.Bytes())
	if err != nil {
		return HTLCPackage{}, err
	}

	var refundHex string
	if refundPubKey != nil {
		refundHex = refundPubKey.Hex()
	}
	core := htlcCore{
		TokenID:         t.ID,
		Amount:          t.Amount,
		Commitment:      hex.EncodeToString(commitment),
		Nullifier:       nullifier.Hex(),
		Condition:       condition,
		RefundPublicKey: refundHex,
	}
	pkgHash, err := hashHTLCCore(core)
	if err != nil {
		return HTLCPackage{}, err
	}
	proof, err := t.clients.Witness.Timestamp(ctx, pkgHash.Hex())
	if err != nil {
		return HTLCPackage{}, err
	}
	if err := t.clients.Gossip.Publish(nullifier, proof); err != nil {
		return HTLCPackage{}, err
	}

	t.Spent = true

	return HTLCPackage{
		TokenID:         core.TokenID,
		Amount:          core.Amount,
		Commitment:      core.Commitment,
		Nullifier:       core.Nullifier,
		Condition:       core.Condition,
		RefundPublicKey: core.RefundPublicKey,
		Proof:           proof,
		OwnershipProof:  hex.EncodeToString(ownershipProof),
	}, nil
}

// ReceiveHTLC implements the claim path: verify the witness
// and ownership proofs, then satisfy the condition. For a hash condition,
// preimage must hash to the hashlock. For a time condition, nowMs must be
// strictly before the timelock (at or after it, only refund applies).
func ReceiveHTLC(ctx context.Context, pkg HTLCPackage, clients *Clients, recipientSecret []byte, preimage []byte, nowMs int64) (*Token, error) {
	witnessC := clients.Witness
	ok, err := witnessC.Verify(ctx, pkg.Proof)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidProof
	}
	if pkg.OwnershipProof != "" {
		proofBytes, err := parseHex(pkg.OwnershipProof, 98)
		if err != nil {
			return nil, err
		}
		nullifierBytes, err := parseHex(pkg.Nullifier, 32)
		if err != nil {
			return nil, err
		}
		if !freebird.VerifyOwnershipProof(proofBytes, nullifierBytes) {
			return nil, ErrInvalidProof
		}
	}

	switch pkg.Condition.Type {
	case ConditionHash:
		if len(preimage) == 0 {
			return nil, ErrInvalidPreimage
		}
		if crypto.HashPreimageHex(preimage).Hex() != pkg.Condition.Hashlock {
			return nil, ErrInvalidPreimage
		}
	case ConditionTime:
		if nowMs >= int64(pkg.Condition.TimelockMs) {
			return nil, ErrTimelockExpired
		}
	default:
		return nil, ErrHTLCConditionInvalid
	}

	return &Token{ID: pkg.TokenID, Amount: pkg.Amount, Secret: recipientSecret, clients: clients}, nil
}

// RefundHTLC implements the refund path: only valid for a
// time condition, only once the timelock has passed, and only for the
// holder of the secret whose public key matches the package's
// refund_public_key.
func RefundHTLC(pkg HTLCPackage, clients *Clients, refundSecret []byte, nowMs int64) (*Token, error) {
	if pkg.Condition.Type != ConditionTime {
		return nil, ErrHTLCConditionInvalid
	}
	if nowMs < int64(pkg.Condition.TimelockMs) {
		return nil, ErrTimelockNotExpired
	}
	if pkg.RefundPublicKey == "" {
		return nil, ErrHTLCConditionInvalid
	}
	want, err := parseHex(pkg.RefundPublicKey, 32)
	if err != nil {
		return nil, err
	}
	got := crypto.DerivePublicKey(refundSecret)
	if !crypto.ConstantTimeEqual(got.Bytes(), want) {
		return nil, ErrRefundSecretMismatch
	}
	return &Token{ID: pkg.TokenID, Amount: pkg.Amount, Secret: refundSecret, clients: clients}, nil
}
