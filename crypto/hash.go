// Package crypto implements the protocol's cryptographic primitives: keyed
// hashing, P-256 VOPRF blinding with DLEQ-proof verification, a Schnorr
// ownership proof over P-256, BLS12-381 aggregate-signature verification for
// witness attestations, and proof-of-work for witness rate control.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"errors"
)

// Hash32 is a 32-byte SHA-256 digest.
type Hash32 [32]byte

// Scalar32 is a 32-byte big-endian scalar, reduced mod the curve order where
// relevant.
type Scalar32 [32]byte

// Bytes is an opaque byte string.
type Bytes []byte

func (h Hash32) Hex() string { return hex.EncodeToString(h[:]) }

func (h Hash32) Bytes() []byte { return h[:] }

// Hash32FromHex decodes a 64-character lowercase hex string into a Hash32.
func Hash32FromHex(s string) (Hash32, error) {
	var h Hash32
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(b) != 32 {
		return h, errors.New("crypto: hash must be 32 bytes")
	}
	copy(h[:], b)
	return h, nil
}

// Hash concatenates parts (bytes as-is, strings as UTF-8, and integers as
// 8-byte big-endian) and returns their SHA-256 digest. Concatenation order
// is significant.
func Hash(parts ...interface{}) Hash32 {
	h := sha256.New()
	for _, p := range parts {
		h.Write(encodePart(p))
	}
	var out Hash32
	copy(out[:], h.Sum(nil))
	return out
}

func encodePart(p interface{}) []byte {
	switch v := p.(type) {
	case []byte:
		return v
	case Bytes:
		return v
	case string:
		return []byte(v)
	case Hash32:
		return v[:]
	case Scalar32:
		return v[:]
	case int:
		return uint64Bytes(uint64(v))
	case uint64:
		return uint64Bytes(v)
	case uint32:
		return uint64Bytes(uint64(v))
	default:
		panic("crypto: hash: unsupported part type")
	}
}

func uint64Bytes(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

// HashTransferPackage computes the hex-encoded package hash used for witness
// timestamping of a 1-to-1 transfer: hash(token_id, amount, commitment, nullifier).
func HashTransferPackage(tokenID string, amount uint64, commitment []byte, nullifier Hash32) string {
	return Hash(tokenID, amount, commitment, nullifier).Hex()
}

// DeriveNullifier computes a token's single-use spend marker:
// SHA-256(secret || token_id). Deterministic and, given the 32 bytes of
// randomness in a minted token id, globally unique with overwhelming
// probability — two mints would only collide on an identical (secret, id)
// pair.
func DeriveNullifier(secret []byte, tokenID string) Hash32 {
	return Hash(secret, tokenID)
}

// HashCanonicalJSON hashes the UTF-8 bytes of an already-canonicalized JSON
// document. Used for package kinds other than a plain 1-to-1 transfer (split,
// merge, multi-party, HTLC, bridge); see the canonical-json package framing.
func HashCanonicalJSON(canonical []byte) Hash32 {
	return sha256.Sum256(canonical)
}

// RandomBytes fills n bytes from a cryptographically secure RNG.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// ConstantTimeEqual reports whether a and b are equal. It folds the length
// check into the same accumulator as the byte comparison so there is no
// early return on a length mismatch.
func ConstantTimeEqual(a, b []byte) bool {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	var diff byte
	diff |= byte(1 ^ subtle.ConstantTimeEq(int32(len(a)), int32(len(b))))
	for i := 0; i < n; i++ {
		var ba, bb byte
		if i < len(a) {
			ba = a[i]
		}
		if i < len(b) {
			bb = b[i]
		}
		diff |= ba ^ bb
	}
	return subtle.ConstantTimeByteEq(diff, 0) == 1
}

// DerivePublicKey computes the recipient-identifier fingerprint for a secret:
// SHA-256("PUBLIC_KEY" || secret). This is a hash fingerprint, not an
// elliptic-curve point — see the ownership-proof scalar in schnorr.go for the
// actual EC key material bound to a secret.
func DerivePublicKey(secret []byte) Hash32 {
	return Hash([]byte("PUBLIC_KEY"), secret)
}

// HashPreimageHex hashes the UTF-8 bytes of a hex-encoded preimage, as used
// by HTLC hashlocks: SHA-256(UTF-8(hex(preimage))).
func HashPreimageHex(preimage []byte) Hash32 {
	return Hash(hex.EncodeToString(preimage))
}
