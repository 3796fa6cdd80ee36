package crypto

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	bls "github.com/herumi/bls-eth-go-binary/bls"
)

var blsInitOnce sync.Once
var blsInitErr error

// initBLS lazily initializes the herumi BLS12-381 backend in the
// minimal-signature-size (signatures in G2, public keys in G1) variant, as
// the witness federation uses for aggregated attestations.
func initBLS() error {
	blsInitOnce.Do(func() {
		blsInitErr = bls.Init(bls.BLS12_381)
	})
	return blsInitErr
}

var (
	ErrBLSVerificationFailed = errors.New("crypto: BLS verification failed")
	ErrBLSBadKeyOrSig        = errors.New("crypto: malformed BLS key or signature")
)

// AttestationMessage builds the bit-exact message framing witness nodes sign
// for an aggregated attestation: hash_bytes || timestamp_u64_le ||
// network_id_utf8 || sequence_u64_le.
func AttestationMessage(hash []byte, timestampMs uint64, networkID string, sequence uint64) []byte {
	buf := make([]byte, 0, len(hash)+8+len(networkID)+8)
	buf = append(buf, hash...)

	var tsBuf [8]byte
	binary.LittleEndian.PutUint64(tsBuf[:], timestampMs)
	buf = append(buf, tsBuf[:]...)

	buf = append(buf, []byte(networkID)...)

	var seqBuf [8]byte
	binary.LittleEndian.PutUint64(seqBuf[:], sequence)
	buf = append(buf, seqBuf[:]...)

	return buf
}

// AggregatePublicKeys sums compressed BLS12-381 G1 public keys (48 bytes
// each) for verification against a single shared message.
func AggregatePublicKeys(pubKeys [][]byte) ([]byte, error) {
	if err := initBLS(); err != nil {
		return nil, err
	}
	if len(pubKeys) == 0 {
		return nil, errors.New("crypto: no public keys to aggregate")
	}
	var agg bls.PublicKey
	for i, raw := range pubKeys {
		var pk bls.PublicKey
		if err := pk.Deserialize(raw); err != nil {
			return nil, fmt.Errorf("crypto: pubkey %d: %w", i, ErrBLSBadKeyOrSig)
		}
		if i == 0 {
			agg = pk
		} else {
			agg.Add(&pk)
		}
	}
	return agg.Serialize(), nil
}

// AggregateSignatures sums compressed BLS12-381 G2 signatures (96 bytes each).
func AggregateSignatures(sigs [][]byte) ([]byte, error) {
	if err := initBLS(); err != nil {
		return nil, err
	}
	if len(sigs) == 0 {
		return nil, errors.New("crypto: no signatures to aggregate")
	}
	var agg bls.Sign
	for i, raw := range sigs {
		var s bls.Sign
		if err := s.Deserialize(raw); err != nil {
			return nil, fmt.Errorf("crypto: signature %d: %w", i, ErrBLSBadKeyOrSig)
		}
		if i == 0 {
			agg = s
		} else {
			agg.Add(&s)
		}
	}
	return agg.Serialize(), nil
}

// VerifyAggregatedBLS verifies an aggregated signature over a single shared
// message, given the already-aggregated public key.
func VerifyAggregatedBLS(aggSig, aggPub, msg []byte) (bool, error) {
	if err := initBLS(); err != nil {
		return false, err
	}
	var pk bls.PublicKey
	if err := pk.Deserialize(aggPub); err != nil {
		return false, ErrBLSBadKeyOrSig
	}
	var sig bls.Sign
	if err := sig.Deserialize(aggSig); err != nil {
		return false, ErrBLSBadKeyOrSig
	}
	return sig.VerifyByte(&pk, msg), nil
}

// VerifyWitnessSigners aggregates the per-witness public keys registered for
// the given witness_ids and verifies the aggregated signature against the
// attestation message. lookup resolves a witness_id to its compressed G1
// public key; a missing witness_id fails verification.
func VerifyWitnessSigners(aggSig []byte, witnessIDs []string, lookup func(id string) ([]byte, bool), msg []byte) (bool, error) {
	pubs := make([][]byte, 0, len(witnessIDs))
	for _, id := range witnessIDs {
		pk, ok := lookup(id)
		if !ok {
			return false, fmt.Errorf("crypto: unknown witness id %q", id)
		}
		pubs = append(pubs, pk)
	}
	aggPub, err := AggregatePublicKeys(pubs)
	if err != nil {
		return false, err
	}
	return VerifyAggregatedBLS(aggSig, aggPub, msg)
}

// GenerateBLSKeyPair creates a fresh BLS12-381 secret/public key pair. Used
// by tests that stand in for witness nodes.
func GenerateBLSKeyPair() (sk *bls.SecretKey, pk *bls.PublicKey, err error) {
	if err := initBLS(); err != nil {
		return nil, nil, err
	}
	var secret bls.SecretKey
	secret.SetByCSPRNG()
	return &secret, secret.GetPublicKey(), nil
}

// SignBLS signs msg with sk, returning the compressed 96-byte signature.
func SignBLS(sk *bls.SecretKey, msg []byte) []byte {
	return sk.SignByte(msg).Serialize()
}
