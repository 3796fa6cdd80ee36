package crypto

import "testing"

func TestBLSAggregateVerify(t *testing.T) {
	const n = 3
	msg := AttestationMessage([]byte("0123456789abcdef0123456789abcdef"), 1_700_000_000_000, "freebird-main", 7)

	pubs := make([][]byte, n)
	sigs := make([][]byte, n)
	for i := 0; i < n; i++ {
		sk, pk, err := GenerateBLSKeyPair()
		if err != nil {
			t.Fatalf("keygen %d: %v", i, err)
		}
		pubs[i] = pk.Serialize()
		sigs[i] = SignBLS(sk, msg)
	}

	aggSig, err := AggregateSignatures(sigs)
	if err != nil {
		t.Fatalf("aggregate sigs: %v", err)
	}
	aggPub, err := AggregatePublicKeys(pubs)
	if err != nil {
		t.Fatalf("aggregate pubs: %v", err)
	}

	ok, err := VerifyAggregatedBLS(aggSig, aggPub, msg)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("expected aggregated signature to verify")
	}
}

func TestBLSAggregateRejectsWrongMessage(t *testing.T) {
	sk, pk, err := GenerateBLSKeyPair()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	msg := AttestationMessage([]byte("hash-bytes-here"), 1, "net", 1)
	sig := SignBLS(sk, msg)

	ok, err := VerifyAggregatedBLS(sig, pk.Serialize(), []byte("different message"))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatal("expected verification against wrong message to fail")
	}
}

func TestVerifyWitnessSigners(t *testing.T) {
	msg := AttestationMessage([]byte("h"), 5, "net", 2)
	ids := []string{"w1", "w2"}
	keys := map[string][]byte{}
	sigs := make([][]byte, 0, len(ids))
	for _, id := range ids {
		sk, pk, err := GenerateBLSKeyPair()
		if err != nil {
			t.Fatalf("keygen: %v", err)
		}
		keys[id] = pk.Serialize()
		sigs = append(sigs, SignBLS(sk, msg))
	}
	aggSig, err := AggregateSignatures(sigs)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	ok, err := VerifyWitnessSigners(aggSig, ids, func(id string) ([]byte, bool) {
		pk, ok := keys[id]
		return pk, ok
	}, msg)
	if err != nil {
		t.Fatalf("verify witness signers: %v", err)
	}
	if !ok {
		t.Fatal("expected witness signer verification to succeed")
	}
}
