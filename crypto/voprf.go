package crypto

import (
	"encoding/binary"
	"errors"
	"math/big"
)

// VOPRF token wire layout: A (33) | B (33) | proof (64), proof = c (32) | s (32).
const (
	IssuedTokenLen = 33 + 33 + 64
	dleqProofLen   = 64
)

var (
	ErrInvalidDLEQProof = errors.New("crypto: invalid DLEQ proof")
	ErrBadTokenLength   = errors.New("crypto: issued token has wrong length")
)

// BlindState is the client-held randomness from a VOPRF blind operation,
// keyed by the blinded element it produced.
type BlindState struct {
	Input   []byte
	Context []byte
	R       *big.Int
	A       Point33
}

// Blind implements the client side of VOPRF blinding: it maps x
// into the curve via HashToCurve, blinds it with a fresh random scalar, and
// returns the blinded element together with the state needed to unblind
// later (retained by the caller, keyed on the returned bytes).
func Blind(x, ctx []byte) (blinded Point33, state *BlindState, err error) {
	a := HashToCurve(x, ctx)
	r, err := RandomScalar()
	if err != nil {
		return nil, nil, err
	}
	b, err := ScalarMult(a, scalarBytes32(r))
	if err != nil {
		return nil, nil, err
	}
	return b, &BlindState{Input: x, Context: ctx, R: r, A: a}, nil
}

// VerifyIssuedToken validates an issued VOPRF token's Chaum-Pedersen DLEQ
// proof against the issuer's published public key Q.
func VerifyIssuedToken(token []byte, issuerPub Point33) (A, B Point33, ok bool, err error) {
	if len(token) != IssuedTokenLen {
		return nil, nil, false, ErrBadTokenLength
	}
	A = Point33(append([]byte(nil), token[:33]...))
	B = Point33(append([]byte(nil), token[33:66]...))
	proof := token[66:]

	if _, _, err := DecodePoint(A); err != nil {
		return nil, nil, false, err
	}
	if _, _, err := DecodePoint(B); err != nil {
		return nil, nil, false, err
	}

	n := order()
	c := new(big.Int).SetBytes(proof[:32])
	s := new(big.Int).SetBytes(proof[32:64])
	if c.Cmp(n) >= 0 || s.Cmp(n) >= 0 {
		return A, B, false, nil
	}

	ok, verr := verifyDLEQ(BasePoint(), issuerPub, A, B, c, s)
	if verr != nil {
		return A, B, false, verr
	}
	return A, B, ok, nil
}

// verifyDLEQ checks the Chaum-Pedersen proof (c, s) over (G, Q, A, B):
// t1 = s·G − c·Q, t2 = s·A − c·B, accept iff SHA-256(transcript) mod n == c.
func verifyDLEQ(g, q, a, b Point33, c, s *big.Int) (bool, error) {
	sg, err := ScalarMult(g, scalarBytes32(s))
	if err != nil {
		return false, err
	}
	cq, err := ScalarMult(q, scalarBytes32(c))
	if err != nil {
		return false, err
	}
	t1, err := PointSub(sg, cq)
	if err != nil {
		return false, err
	}

	sa, err := ScalarMult(a, scalarBytes32(s))
	if err != nil {
		return false, err
	}
	cb, err := ScalarMult(b, scalarBytes32(c))
	if err != nil {
		return false, err
	}
	t2, err := PointSub(sa, cb)
	if err != nil {
		return false, err
	}

	got := dleqChallenge(nil, g, q, a, b, t1, t2)
	return got.Cmp(c) == 0, nil
}

// dleqChallenge builds the DLEQ transcript
// LEN(dst) || dst || G || Q || A || B || t1 || t2 (dst = "DLEQ-P256-v1" || ctx)
// and returns SHA-256(transcript) mod n.
func dleqChallenge(ctx []byte, g, q, a, b, t1, t2 Point33) *big.Int {
	dst := append([]byte("DLEQ-P256-v1"), ctx...)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(dst)))
	digest := Hash(lenBuf[:], dst, []byte(g), []byte(q), []byte(a), []byte(b), []byte(t1), []byte(t2))
	return ScalarMod(digest[:])
}

// ProveDLEQ produces a Chaum-Pedersen proof that log_G(Q) == log_A(B), given
// the issuer secret key y (Q = y·G) and the evaluation B = y·A. Used by test
// fakes that stand in for a Freebird issuer.
func ProveDLEQ(g, q, a, b Point33, y *big.Int, nonce *big.Int) (c, s *big.Int, err error) {
	if nonce == nil {
		var nerr error
		nonce, nerr = RandomScalar()
		if nerr != nil {
			return nil, nil, nerr
		}
	}
	t1 := ScalarBaseMult(scalarBytes32(nonce))
	t2, err := ScalarMult(a, scalarBytes32(nonce))
	if err != nil {
		return nil, nil, err
	}
	c = dleqChallenge(nil, g, q, a, b, t1, t2)
	s = new(big.Int).Mul(c, y)
	s.Add(s, nonce)
	s.Mod(s, order())
	return c, s, nil
}

// Unblind removes the blinding factor from an issuer's evaluated point B,
// recovering y·A, and derives the final VOPRF output as a hash fingerprint
// of that point together with the original input and context. This is the
// value a Freebird client treats as unforgeable token secret material.
func Unblind(state *BlindState, b Point33) (Hash32, error) {
	rInv := new(big.Int).ModInverse(state.R, order())
	if rInv == nil {
		return Hash32{}, errors.New("crypto: blinding scalar not invertible")
	}
	unblinded, err := ScalarMult(b, scalarBytes32(rInv))
	if err != nil {
		return Hash32{}, err
	}
	return Hash([]byte("VOPRF-OUTPUT-v1"), state.Input, state.Context, unblinded), nil
}

// EncodeIssuedToken assembles the 130-byte wire token A | B | c | s.
func EncodeIssuedToken(a, b Point33, c, s *big.Int) []byte {
	out := make([]byte, 0, IssuedTokenLen)
	out = append(out, a...)
	out = append(out, b...)
	out = append(out, scalarBytes32(c)...)
	out = append(out, scalarBytes32(s)...)
	return out
}
