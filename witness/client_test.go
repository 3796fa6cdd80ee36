package witness

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	protocrypto "github.com/flammafex/scarcity/crypto"
)


// fakeGateway runs an in-process HTTP server that signs timestamp requests
// with a single BLS key, standing in for one witness federation node.
type fakeGateway struct {
	id     string
	pk     []byte
	srv    *httptest.Server
	seen   map[string]bool
	netID  string
	seqCtr uint64
}

func newFakeGateway(t *testing.T, id, netID string) *fakeGateway {
	t.Helper()
	sk, pk, err := protocrypto.GenerateBLSKeyPair()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	gw := &fakeGateway{id: id, pk: pk.Serialize(), seen: map[string]bool{}, netID: netID}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/timestamp", func(w http.ResponseWriter, r *http.Request) {
		var req timestampRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		gw.seen[req.Hash] = true
		gw.seqCtr++
		hashBytes, err := protocrypto.Hash32FromHex(req.Hash)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		const ts = int64(1_700_000_000)
		msg := protocrypto.AttestationMessage(hashBytes[:], uint64(ts), gw.netID, gw.seqCtr)
		sig := protocrypto.SignBLS(sk, msg)
		resp := timestampResponse{Attestation: wireAttestation{
			Hash:      req.Hash,
			Timestamp: ts,
			NetworkID: gw.netID,
			Sequence:  gw.seqCtr,
			Signature: hexEncode(sig),
			Signers:   []string{gw.id},
		}}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/v1/verify", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(verifyResponse{Valid: true})
	})

	gw.srv = httptest.NewServer(mux)
	return gw
}

func hexEncode(b []byte) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hextable[c>>4]
		out[i*2+1] = hextable[c&0x0f]
	}
	return string(out)
}

func TestClientTimestampAndVerify(t *testing.T) {
	gw := newFakeGateway(t, "w1", "test-net")
	defer gw.srv.Close()

	c, err := NewClient(Config{
		Gateways: []Gateway{{ID: gw.id, Endpoint: gw.srv.URL, PubKey: gw.pk}},
		Quorum:   1,
		NetworkID: "test-net",
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	hashHex := protocrypto.Hash([]byte("some package bytes")).Hex()
	att, err := c.Timestamp(context.Background(), hashHex)
	if err != nil {
		t.Fatalf("timestamp: %v", err)
	}
	if !att.Valid() {
		t.Fatal("expected structurally valid attestation")
	}

	ok, err := c.Verify(context.Background(), att)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("expected gateway verify to report valid")
	}
}

func TestClientVerifyFallsBackToLocalBLS(t *testing.T) {
	gw := newFakeGateway(t, "w1", "test-net")

	c, err := NewClient(Config{
		Gateways: []Gateway{{ID: gw.id, Endpoint: gw.srv.URL, PubKey: gw.pk}},
		Quorum:   1,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	hashHex := protocrypto.Hash([]byte("package for fallback test")).Hex()
	att, err := c.Timestamp(context.Background(), hashHex)
	if err != nil {
		t.Fatalf("timestamp: %v", err)
	}

	gw.srv.Close() // gateway now unreachable; Verify must fall back to local BLS

	ok, err := c.Verify(context.Background(), att)
	if err != nil {
		t.Fatalf("verify (local fallback): %v", err)
	}
	if !ok {
		t.Fatal("expected local BLS fallback verification to succeed")
	}
}

func TestClientCheckNullifierQuorum(t *testing.T) {
	gwA := newFakeGateway(t, "a", "net")
	gwB := newFakeGateway(t, "b", "net")
	defer gwA.srv.Close()
	defer gwB.srv.Close()

	nullifierHex := protocrypto.Hash([]byte("nullifier")).Hex()
	// Neither gateway has seen it yet.
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/timestamp/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	notSeenSrv := httptest.NewServer(mux)
	defer notSeenSrv.Close()

	c, err := NewClient(Config{
		Gateways: []Gateway{
			{ID: "a", Endpoint: notSeenSrv.URL},
			{ID: "b", Endpoint: notSeenSrv.URL},
		},
		Quorum: 2,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	score := c.CheckNullifier(context.Background(), nullifierHex)
	if score != 0.0 {
		t.Fatalf("expected 0.0 when quorum agrees not-seen, got %f", score)
	}
}

func TestClientCheckNullifierAllGatewaysFail(t *testing.T) {
	c, err := NewClient(Config{
		Gateways: []Gateway{{ID: "dead", Endpoint: "http://127.0.0.1:1"}},
		Quorum:   1,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	score := c.CheckNullifier(context.Background(), "deadbeef")
	if score != 0.0 {
		t.Fatalf("expected 0.0 when all gateways unreachable, got %f", score)
	}
}
