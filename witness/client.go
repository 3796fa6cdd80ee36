package witness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	protocrypto "github.com/flammafex/scarcity/crypto"
)

var log = logrus.WithField("component", "witness")

var (
	ErrNoGatewaysConfigured = errors.New("witness: no gateways configured")
	ErrAllGatewaysFailed    = errors.New("witness: all gateways failed")
	ErrVerificationFailed   = errors.New("witness: attestation failed verification")
)

// Gateway describes one witness federation endpoint this client trusts.
type Gateway struct {
	ID       string
	Endpoint string
	// PubKey is the gateway's compressed BLS12-381 G1 public key (48 bytes),
	// used for local verification when every gateway is unreachable.
	PubKey []byte
}

// Config configures a witness Client.
type Config struct {
	Gateways []Gateway
	// Quorum is the minimum number of agreeing gateways required for a
	// check_nullifier verdict. Zero means ceil(N/2).
	Quorum int
	// PowDifficulty, if > 0, requires solving proof-of-work before timestamp
	// requests.
	PowDifficulty int
	NetworkID     string
	HTTPTimeout   time.Duration
}

func (c Config) quorum() int {
	if c.Quorum > 0 {
		return c.Quorum
	}
	return (len(c.Gateways) + 1) / 2
}

// Client is the witness federation client.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient constructs a witness Client. It performs no network I/O.
func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Gateways) == 0 {
		return nil, ErrNoGatewaysConfigured
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 5 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.HTTPTimeout}}, nil
}

type timestampRequest struct {
	Hash       string `json:"hash"`
	Nonce      uint64 `json:"nonce,omitempty"`
	Difficulty int    `json:"difficulty,omitempty"`
	// RequestID correlates the fan-out of this single logical request
	// across every gateway it is concurrently sent to, so a gateway's
	// access log can be matched back against the client call that
	// produced it.
	RequestID string `json:"request_id"`
}

type signatureEntry struct {
	WitnessID string `json:"witness_id"`
	Signature string `json:"signature"`
}

// wireAttestation mirrors the gateway's SignedAttestation shape,
// supporting both the per-witness multi-sig variant and the aggregated
// variant.
type wireAttestation struct {
	Hash       string            `json:"hash"`
	Timestamp  int64             `json:"timestamp"` // seconds on the wire
	NetworkID  string            `json:"network_id"`
	Sequence   uint64            `json:"sequence"`
	Signatures []signatureEntry  `json:"signatures,omitempty"`
	Signature  string            `json:"signature,omitempty"`
	Signers    []string          `json:"signers,omitempty"`
	Extra      map[string]string `json:"-"`
}

func (w wireAttestation) normalize() (Attestation, error) {
	raw, err := json.Marshal(w)
	if err != nil {
		return Attestation{}, err
	}
	var sigs []string
	var ids []string
	if len(w.Signatures) > 0 {
		for _, s := range w.Signatures {
			sigs = append(sigs, s.Signature)
			ids = append(ids, s.WitnessID)
		}
	} else {
		sigs = append(sigs, w.Signature)
		ids = append(ids, w.Signers...)
	}
	return Attestation{
		Hash:        w.Hash,
		TimestampMs: uint64(w.Timestamp) * 1000,
		Signatures:  sigs,
		WitnessIDs:  ids,
		Raw:         raw,
	}, nil
}

type timestampResponse struct {
	Attestation wireAttestation `json:"attestation"`
}

// Timestamp submits hashHex for federation timestamping and returns the
// first successful, normalized attestation.
func (c *Client) Timestamp(ctx context.Context, hashHex string) (Attestation, error) {
	req := timestampRequest{Hash: hashHex, RequestID: uuid.NewString()}
	if c.cfg.PowDifficulty > 0 {
		nonce := protocrypto.SolveProofOfWork(hashHex, c.cfg.PowDifficulty)
		req.Nonce = nonce
		req.Difficulty = c.cfg.PowDifficulty
	}
	body, err := json.Marshal(req)
	if err != nil {
		return Attestation{}, err
	}

	type result struct {
		att Attestation
		err error
	}
	results := make(chan result, len(c.cfg.Gateways))
	for _, gw := range c.cfg.Gateways {
		gw := gw
		go func() {
			att, err := c.postTimestamp(ctx, gw, body)
			results <- result{att, err}
		}()
	}

	var lastErr error
	for range c.cfg.Gateways {
		r := <-results
		if r.err == nil {
			return r.att, nil
		}
		lastErr = r.err
		log.WithError(r.err).Warn("gateway timestamp failed")
	}
	return Attestation{}, fmt.Errorf("%w: %v", ErrAllGatewaysFailed, lastErr)
}

func (c *Client) postTimestamp(ctx context.Context, gw Gateway, body []byte) (Attestation, error) {
	url := gw.Endpoint + "/v1/timestamp"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Attestation{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Attestation{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Attestation{}, fmt.Errorf("witness: gateway %s returned %d", gw.ID, resp.StatusCode)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Attestation{}, err
	}
	var tr timestampResponse
	if err := json.Unmarshal(payload, &tr); err != nil {
		return Attestation{}, fmt.Errorf("witness: malformed response from %s: %w", gw.ID, err)
	}
	return tr.Attestation.normalize()
}

type verifyRequest struct {
	Attestation Attestation `json:"attestation"`
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

// Verify checks an attestation against each gateway in turn; if every
// gateway is unreachable it falls back to local BLS verification using
// att.Raw and the configured gateway public keys.
func (c *Client) Verify(ctx context.Context, att Attestation) (bool, error) {
	if !att.Valid() {
		return false, nil
	}
	body, err := json.Marshal(verifyRequest{Attestation: att})
	if err != nil {
		return false, err
	}

	var lastErr error
	for _, gw := range c.cfg.Gateways {
		ok, err := c.postVerify(ctx, gw, body)
		if err == nil {
			return ok, nil
		}
		lastErr = err
		log.WithError(err).Warn("gateway verify failed")
	}

	ok, err := c.verifyLocalBLS(att)
	if err == nil {
		return ok, nil
	}
	return false, fmt.Errorf("%w: remote=%v local=%v", ErrAllGatewaysFailed, lastErr, err)
}

func (c *Client) postVerify(ctx context.Context, gw Gateway, body []byte) (bool, error) {
	url := gw.Endpoint + "/v1/verify"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("witness: gateway %s returned %d", gw.ID, resp.StatusCode)
	}
	var vr verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return false, err
	}
	return vr.Valid, nil
}

func (c *Client) verifyLocalBLS(att Attestation) (bool, error) {
	if len(att.Raw) == 0 {
		return false, errors.New("witness: no raw payload for local verification")
	}
	var w wireAttestation
	if err := json.Unmarshal(att.Raw, &w); err != nil {
		return false, err
	}
	hashBytes, err := protocrypto.Hash32FromHex(w.Hash)
	if err != nil {
		return false, err
	}
	msg := protocrypto.AttestationMessage(hashBytes[:], uint64(w.Timestamp), w.NetworkID, w.Sequence)

	lookup := func(id string) ([]byte, bool) {
		for _, gw := range c.cfg.Gateways {
			if gw.ID == id {
				return gw.PubKey, gw.PubKey != nil
			}
		}
		return nil, false
	}

	if w.Signature != "" && len(w.Signers) > 0 {
		sig, err := decodeHexOrB64(w.Signature)
		if err != nil {
			return false, err
		}
		return protocrypto.VerifyWitnessSigners(sig, w.Signers, lookup, msg)
	}
	if len(w.Signatures) > 0 {
		ids := make([]string, 0, len(w.Signatures))
		sigs := make([][]byte, 0, len(w.Signatures))
		for _, s := range w.Signatures {
			sig, err := decodeHexOrB64(s.Signature)
			if err != nil {
				return false, err
			}
			ids = append(ids, s.WitnessID)
			sigs = append(sigs, sig)
		}
		aggSig, err := protocrypto.AggregateSignatures(sigs)
		if err != nil {
			return false, err
		}
		return protocrypto.VerifyWitnessSigners(aggSig, ids, lookup, msg)
	}
	return false, errors.New("witness: no signatures present for local verification")
}

// nullifierCheckResponse matches the shape of a gateway's nullifier lookup.
type nullifierCheckResponse struct {
	Seen      bool `json:"seen"`
	SigCount  int  `json:"sig_count"`
	Threshold int  `json:"threshold"`
}

// CheckNullifier queries all gateways concurrently and applies quorum
// voting across their verdicts.
func (c *Client) CheckNullifier(ctx context.Context, nullifierHex string) float32 {
	var wg sync.WaitGroup
	var mu sync.Mutex
	seenVotes, notSeenVotes := 0, 0

	for _, gw := range c.cfg.Gateways {
		gw := gw
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen, ok := c.queryNullifier(ctx, gw, nullifierHex)
			if !ok {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen {
				seenVotes++
			} else {
				notSeenVotes++
			}
		}()
	}
	wg.Wait()

	q := c.cfg.quorum()
	switch {
	case seenVotes >= q:
		return 1.0
	case notSeenVotes >= q:
		return 0.0
	case seenVotes+notSeenVotes == 0:
		log.Warn("check_nullifier: all gateways failed, cannot verify")
		return 0.0
	default:
		return 0.5
	}
}

func (c *Client) queryNullifier(ctx context.Context, gw Gateway, nullifierHex string) (seen bool, ok bool) {
	url := fmt.Sprintf("%s/v1/timestamp/%s", gw.Endpoint, nullifierHex)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, false
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return false, false
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return false, true
	}
	if resp.StatusCode != http.StatusOK {
		return false, false
	}
	var nr nullifierCheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&nr); err != nil {
		return false, false
	}
	return nr.SigCount >= nr.Threshold, true
}

func decodeHexOrB64(s string) ([]byte, error) {
	if b, err := hexDecode(s); err == nil {
		return b, nil
	}
	return base64Decode(s)
}
