package crypto

import (
	"errors"
	"math/big"
)

// OwnershipProofLen is the wire length of a Schnorr ownership proof: P (33) | R (33) | s (32).
const OwnershipProofLen = 33 + 33 + 32

var ErrInvalidOwnershipProof = errors.New("crypto: invalid ownership proof")

// ownershipScalar derives the ownership scalar x = SHA-256("OWNERSHIP_SCALAR" || secret) mod n,
// rejecting the zero scalar.
func ownershipScalar(secret []byte) (*big.Int, error) {
	h := Hash([]byte("OWNERSHIP_SCALAR"), secret)
	x := ScalarMod(h[:])
	if x.Sign() == 0 {
		return nil, ErrZeroScalar
	}
	return x, nil
}

// schnorrNonce deterministically derives k = SHA-256("SCHNORR_NONCE" || SHA-256(x) || binding) mod n.
func schnorrNonce(x *big.Int, binding []byte) (*big.Int, error) {
	xHash := Hash(scalarBytes32(x))
	k := ScalarMod(Hash([]byte("SCHNORR_NONCE"), xHash[:], binding)[:])
	if k.Sign() == 0 {
		return nil, ErrZeroScalar
	}
	return k, nil
}

// CreateOwnershipProof produces a 98-byte Schnorr proof (P || R || s) that
// the caller knows secret, bound to binding so the proof cannot be replayed
// in a different context.
func CreateOwnershipProof(secret, binding []byte) ([]byte, error) {
	x, err := ownershipScalar(secret)
	if err != nil {
		return nil, err
	}
	p := ScalarBaseMult(scalarBytes32(x))

	k, err := schnorrNonce(x, binding)
	if err != nil {
		return nil, err
	}
	r := ScalarBaseMult(scalarBytes32(k))

	c := schnorrChallenge(r, p, binding)
	s := new(big.Int).Mul(c, x)
	s.Add(s, k)
	s.Mod(s, order())

	out := make([]byte, 0, OwnershipProofLen)
	out = append(out, p...)
	out = append(out, r...)
	out = append(out, scalarBytes32(s)...)
	return out, nil
}

// VerifyOwnershipProof checks a proof produced by CreateOwnershipProof
// against the same binding. Any decode error is treated as rejection.
func VerifyOwnershipProof(proof, binding []byte) bool {
	if len(proof) != OwnershipProofLen {
		return false
	}
	p := Point33(proof[:33])
	r := Point33(proof[33:66])
	s := new(big.Int).SetBytes(proof[66:98])

	n := order()
	if s.Sign() <= 0 || s.Cmp(n) >= 0 {
		return false
	}
	if _, _, err := DecodePoint(p); err != nil {
		return false
	}
	if _, _, err := DecodePoint(r); err != nil {
		return false
	}

	c := schnorrChallenge(r, p, binding)

	sg := ScalarBaseMult(scalarBytes32(s))
	cp, err := ScalarMult(p, scalarBytes32(c))
	if err != nil {
		return false
	}
	rhs, err := PointAdd(r, cp)
	if err != nil {
		return false
	}
	return ConstantTimeEqual(sg, rhs)
}

// schnorrChallenge computes c = SHA-256("SCHNORR_OWNERSHIP" || R || P || binding) mod n.
func schnorrChallenge(r, p Point33, binding []byte) *big.Int {
	h := Hash([]byte("SCHNORR_OWNERSHIP"), []byte(r), []byte(p), binding)
	return ScalarMod(h[:])
}
