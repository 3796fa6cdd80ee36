package crypto

import "testing"

func TestOwnershipProofRoundTrip(t *testing.T) {
	secret := []byte("holder-secret-material-32-bytes")
	binding := []byte("nullifier-or-context")

	proof, err := CreateOwnershipProof(secret, binding)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(proof) != OwnershipProofLen {
		t.Fatalf("expected %d byte proof, got %d", OwnershipProofLen, len(proof))
	}
	if !VerifyOwnershipProof(proof, binding) {
		t.Fatal("expected proof to verify against its own binding")
	}
	if VerifyOwnershipProof(proof, []byte("different-binding")) {
		t.Fatal("expected proof to fail against a different binding")
	}
}

func TestOwnershipProofDeterministic(t *testing.T) {
	secret := []byte("same-secret-every-time-32-bytes")
	binding := []byte("fixed-binding")

	p1, err := CreateOwnershipProof(secret, binding)
	if err != nil {
		t.Fatalf("create 1: %v", err)
	}
	p2, err := CreateOwnershipProof(secret, binding)
	if err != nil {
		t.Fatalf("create 2: %v", err)
	}
	if string(p1) != string(p2) {
		t.Fatal("expected deterministic nonce to produce identical proofs")
	}
}

func TestOwnershipProofRejectsCorruption(t *testing.T) {
	secret := []byte("holder-secret-material-32-bytes")
	binding := []byte("binding")
	proof, err := CreateOwnershipProof(secret, binding)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	corrupt := append([]byte(nil), proof...)
	corrupt[0] ^= 0xFF
	if VerifyOwnershipProof(corrupt, binding) {
		t.Fatal("expected corrupted proof to fail")
	}
}
