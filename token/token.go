package token

import (
	"context"
	"encoding/hex"

	"github.com/flammafex/scarcity/crypto"
	"github.com/flammafex/scarcity/freebird"
)

// Token is a held bearer obligation: a secret, an id, an amount, and the
// spend flag that may transition false→true exactly once. A Token does not
// own its service clients; it holds a non-owning reference to a Clients
// value supplied at mint or receive time.
type Token struct {
	ID     string
	Amount uint64
	Secret []byte // 32 opaque bytes
	Spent  bool

	clients *Clients
}

// PublicKey returns this token's secret's recipient-identifier fingerprint:
// SHA-256("PUBLIC_KEY" || secret). Shared with whoever should receive a
// future transfer of this token's value.
func (t *Token) PublicKey() crypto.Hash32 {
	return crypto.DerivePublicKey(t.Secret)
}

func (t *Token) nullifier() crypto.Hash32 {
	return crypto.DeriveNullifier(t.Secret, t.ID)
}

// NewHeld constructs a token directly from known fields, for callers
// outside this package that reconstruct a token by some means other than
// the standard receive paths (e.g. the bridge package, after its own
// cross-federation verification).
func NewHeld(id string, amount uint64, secret []byte, clients *Clients) *Token {
	return &Token{ID: id, Amount: amount, Secret: secret, clients: clients}
}

func randomTokenID() (string, error) {
	b, err := crypto.RandomBytes(32)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Mint creates a new token of the given amount, held by whoever controls
// the returned token's secret. The secret is obtained from the issuance
// federation via a VOPRF round trip bound to a freshly generated
// recipient-identifier fingerprint, so the resulting token is backed by an
// issuer's unforgeable signature over its (blinded) identity rather than
// being locally fabricated.
func Mint(ctx context.Context, amount uint64, clients *Clients) (*Token, error) {
	id, err := randomTokenID()
	if err != nil {
		return nil, err
	}
	seed, err := crypto.RandomBytes(32)
	if err != nil {
		return nil, err
	}
	fingerprint := crypto.DerivePublicKey(seed)
	issued, err := clients.Freebird.IssueToken(ctx, fingerprint.Bytes(), []byte(id))
	if err != nil {
		return nil, err
	}
	return &Token{
		ID:      id,
		Amount:  amount,
		Secret:  issued.Secret.Bytes(),
		Spent:   false,
		clients: clients,
	}, nil
}

// Transfer implements the 1-to-1 transfer operation: bind a
// fresh nullifier, obtain an unlinkable commitment to the recipient's
// public key, prove ownership of the nullifier, timestamp the package with
// the witness federation, publish the nullifier, and mark this token spent.
func (t *Token) Transfer(ctx context.Context, recipientPubKey crypto.Hash32) (TransferPackage, error) {
	if t.Spent {
		return TransferPackage{}, ErrTokenAlreadySpent
	}

	nullifier := t.nullifier()
	commitment, err := t.clients.Freebird.Blind(recipientPubKey.Bytes(), nullifier.Bytes())
	if err != nil {
		return TransferPackage{}, err
	}
	ownershipProof, err := freebird.CreateOwnershipProof(t.Secret, nullifier.Bytes())
	if err != nil {
		return TransferPackage{}, err
	}

	pkgHash := crypto.HashTransferPackage(t.ID, t.Amount, commitment, nullifier)
	proof, err := t.clients.Witness.Timestamp(ctx, pkgHash)
	if err != nil {
		return TransferPackage{}, err
	}
	if err := t.clients.Gossip.Publish(nullifier, proof); err != nil {
		return TransferPackage{}, err
	}

	t.Spent = true

	return TransferPackage{
		TokenID:        t.ID,
		Amount:         t.Amount,
		Commitment:     hex.EncodeToString(commitment),
		Nullifier:      nullifier.Hex(),
		Proof:          proof,
		OwnershipProof: hex.EncodeToString(ownershipProof),
	}, nil
}
