package crypto

import (
	"crypto/elliptic"
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math/big"
)

// Point33 is a compressed P-256 point: a 0x02/0x03 prefix byte followed by
// the 32-byte big-endian X coordinate.
type Point33 []byte

var (
	ErrMalformedPoint = errors.New("crypto: malformed compressed point")
	ErrZeroScalar     = errors.New("crypto: zero scalar")
	ErrIdentityPoint  = errors.New("crypto: identity point")
)

func curve() elliptic.Curve { return elliptic.P256() }

// order returns the P-256 group order n.
func order() *big.Int { return curve().Params().N }

// EncodePoint compresses a P-256 point to 33 bytes.
func EncodePoint(x, y *big.Int) Point33 {
	out := make([]byte, 33)
	if y.Bit(0) == 0 {
		out[0] = 0x02
	} else {
		out[0] = 0x03
	}
	xb := x.Bytes()
	copy(out[33-len(xb):], xb)
	return out
}

// DecodePoint decompresses a 33-byte compressed P-256 point, rejecting
// malformed encodings and the identity point.
func DecodePoint(data []byte) (x, y *big.Int, err error) {
	if len(data) != 33 || (data[0] != 0x02 && data[0] != 0x03) {
		return nil, nil, ErrMalformedPoint
	}
	c := curve().Params()
	x = new(big.Int).SetBytes(data[1:])
	if x.Sign() == 0 || x.Cmp(c.P) >= 0 {
		return nil, nil, ErrMalformedPoint
	}
	// y^2 = x^3 - 3x + b (mod p)
	y2 := new(big.Int).Exp(x, big.NewInt(3), c.P)
	threeX := new(big.Int).Mul(x, big.NewInt(3))
	y2.Sub(y2, threeX)
	y2.Add(y2, c.B)
	y2.Mod(y2, c.P)

	y = sqrtModP(y2, c.P)
	if y == nil || new(big.Int).Exp(y, big.NewInt(2), c.P).Cmp(y2) != 0 {
		return nil, nil, ErrMalformedPoint
	}
	wantOdd := data[0] == 0x03
	if y.Bit(0) == 1 != wantOdd {
		y = new(big.Int).Sub(c.P, y)
	}
	if !curve().IsOnCurve(x, y) {
		return nil, nil, ErrMalformedPoint
	}
	if x.Sign() == 0 && y.Sign() == 0 {
		return nil, nil, ErrIdentityPoint
	}
	return x, y, nil
}

// sqrtModP computes a square root of a mod p for P-256's prime, which
// satisfies p ≡ 3 (mod 4), so sqrt(a) = a^((p+1)/4) mod p.
func sqrtModP(a, p *big.Int) *big.Int {
	e := new(big.Int).Add(p, big.NewInt(1))
	e.Rsh(e, 2)
	return new(big.Int).Exp(a, e, p)
}

// ScalarMult multiplies a compressed point by a scalar.
func ScalarMult(point Point33, scalar []byte) (Point33, error) {
	x, y, err := DecodePoint(point)
	if err != nil {
		return nil, err
	}
	rx, ry := curve().ScalarMult(x, y, scalar)
	if rx.Sign() == 0 && ry.Sign() == 0 {
		return nil, ErrIdentityPoint
	}
	return EncodePoint(rx, ry), nil
}

// ScalarBaseMult multiplies the P-256 base point G by a scalar.
func ScalarBaseMult(scalar []byte) Point33 {
	x, y := curve().ScalarBaseMult(scalar)
	return EncodePoint(x, y)
}

// BasePoint returns the P-256 generator G in compressed form.
func BasePoint() Point33 {
	c := curve().Params()
	return EncodePoint(c.Gx, c.Gy)
}

// PointAdd adds two compressed points.
func PointAdd(a, b Point33) (Point33, error) {
	ax, ay, err := DecodePoint(a)
	if err != nil {
		return nil, err
	}
	bx, by, err := DecodePoint(b)
	if err != nil {
		return nil, err
	}
	rx, ry := curve().Add(ax, ay, bx, by)
	if rx.Sign() == 0 && ry.Sign() == 0 {
		return nil, ErrIdentityPoint
	}
	return EncodePoint(rx, ry), nil
}

// PointSub subtracts b from a (a + (-b)).
func PointSub(a, b Point33) (Point33, error) {
	bx, by, err := DecodePoint(b)
	if err != nil {
		return nil, err
	}
	negY := new(big.Int).Sub(curve().Params().P, by)
	neg := EncodePoint(bx, negY)
	return PointAdd(a, neg)
}

// ScalarMod reduces a big-endian scalar modulo the P-256 group order n.
func ScalarMod(b []byte) *big.Int {
	s := new(big.Int).SetBytes(b)
	return s.Mod(s, order())
}

// RandomScalar samples a uniform scalar in [1, n).
func RandomScalar() (*big.Int, error) {
	n := order()
	nMinus1 := new(big.Int).Sub(n, big.NewInt(1))
	for {
		buf := make([]byte, 32)
		if _, err := crand.Read(buf); err != nil {
			return nil, err
		}
		k := new(big.Int).SetBytes(buf)
		k.Mod(k, nMinus1)
		k.Add(k, big.NewInt(1))
		if k.Sign() != 0 {
			return k, nil
		}
	}
}

// HashToCurve maps arbitrary input bytes to a P-256 point, domain-separated
// by ctx, using try-and-increment: candidate X coordinates are derived from
// SHA-256(dst || ctx || x || counter) until one lies on the curve.
func HashToCurve(x, ctx []byte) Point33 {
	dst := []byte("freebird:v1")
	c := curve().Params()
	for counter := uint32(0); ; counter++ {
		h := sha256.New()
		h.Write(dst)
		h.Write(ctx)
		h.Write(x)
		var cb [4]byte
		binary.BigEndian.PutUint32(cb[:], counter)
		h.Write(cb[:])
		cand := new(big.Int).SetBytes(h.Sum(nil))
		cand.Mod(cand, c.P)
		if cand.Sign() == 0 {
			continue
		}
		y2 := new(big.Int).Exp(cand, big.NewInt(3), c.P)
		threeX := new(big.Int).Mul(cand, big.NewInt(3))
		y2.Sub(y2, threeX)
		y2.Add(y2, c.B)
		y2.Mod(y2, c.P)
		y := sqrtModP(y2, c.P)
		if y == nil || new(big.Int).Exp(y, big.NewInt(2), c.P).Cmp(y2) != 0 {
			continue
		}
		if !curve().IsOnCurve(cand, y) {
			continue
		}
		return EncodePoint(cand, y)
	}
}

// scalarBytes32 left-pads a scalar to 32 bytes, big-endian.
func scalarBytes32(s *big.Int) []byte {
	b := s.Bytes()
	if len(b) >= 32 {
		return b[len(b)-32:]
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}
