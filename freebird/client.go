package freebird

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	protocrypto "github.com/flammafex/scarcity/crypto"
)

type blindRequest struct {
	Blinded string `json:"blinded"`
	Context string `json:"context,omitempty"`
}

type blindResponse struct {
	Token string `json:"token"` // base64 of the 130-byte wire token A|B|c|s
}

// Blind performs only the client-side VOPRF blinding step with
// no network I/O, discarding the blinding state: used where a caller needs
// an unlinkable commitment to a public key (e.g. a transfer package's
// commitment field) rather than a fully issued token. The blinding
// randomness is not retained, so the result cannot later be unblinded —
// callers that need the issued secret itself should use IssueToken.
func (c *Client) Blind(pubKeyFingerprint, issuanceCtx []byte) (protocrypto.Point33, error) {
	blinded, _, err := protocrypto.Blind(pubKeyFingerprint, issuanceCtx)
	return blinded, err
}

// IssueToken blinds pubKeyFingerprint, submits it to issuers in configured
// order until one succeeds, verifies the returned DLEQ proof against that
// issuer's published key, and unblinds the result.
//
// If every issuer is unreachable and AllowFallbackBlinding is set, the
// client substitutes a deterministic hash commitment in place of VOPRF
// blinding; this sacrifices unlinkability and is logged loudly.
func (c *Client) IssueToken(ctx context.Context, pubKeyFingerprint, issuanceCtx []byte) (IssuedToken, error) {
	blinded, state, err := protocrypto.Blind(pubKeyFingerprint, issuanceCtx)
	if err != nil {
		return IssuedToken{}, err
	}

	var lastErr error
	for _, iss := range c.cfg.Issuers {
		tok, err := c.issueFrom(ctx, iss, blinded)
		if err != nil {
			lastErr = err
			log.WithError(err).WithField("issuer", iss.ID).Warn("issuance failed")
			continue
		}
		A, B, ok, verr := protocrypto.VerifyIssuedToken(tok, iss.PubKey)
		if verr != nil {
			lastErr = verr
			continue
		}
		if !ok || string(A) != string(blinded) {
			lastErr = ErrIssuerProofInvalid
			log.WithField("issuer", iss.ID).Warn("issuer returned an invalid DLEQ proof")
			continue
		}
		secret, uerr := protocrypto.Unblind(state, B)
		if uerr != nil {
			return IssuedToken{}, uerr
		}
		return IssuedToken{Secret: secret, IssuerID: iss.ID}, nil
	}

	if c.cfg.AllowFallbackBlinding {
		log.Warn("all issuers unreachable, using fallback blinding (unlinkability reduced)")
		secret := protocrypto.Hash([]byte("FALLBACK-BLIND-v1"), pubKeyFingerprint, issuanceCtx)
		return IssuedToken{Secret: secret, IssuerID: ""}, nil
	}
	if lastErr == nil {
		lastErr = ErrAllIssuersFailed
	}
	return IssuedToken{}, fmt.Errorf("%w: %v", ErrAllIssuersFailed, lastErr)
}

func (c *Client) issueFrom(ctx context.Context, iss Issuer, blinded protocrypto.Point33) ([]byte, error) {
	req := blindRequest{Blinded: base64.StdEncoding.EncodeToString(blinded)}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, iss.Endpoint+"/v1/issue", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpClient := &http.Client{Timeout: c.cfg.HTTPTimeout}
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("freebird: issuer %s returned %d", iss.ID, resp.StatusCode)
	}
	var br blindResponse
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(br.Token)
}

type verifyTokenRequest struct {
	TokenID string `json:"token_id"`
}

type verifyTokenResponse struct {
	Valid bool `json:"valid"`
}

// VerifyToken asks the issuing federation whether tokenID is a token they
// actually issued and have not separately revoked. Unlike nullifier
// checking, this is an availability convenience, not a trust requirement:
// a failure to reach any issuer is reported as an error, not treated as a
// rejection.
func (c *Client) VerifyToken(ctx context.Context, tokenID string) (bool, error) {
	body, err := json.Marshal(verifyTokenRequest{TokenID: tokenID})
	if err != nil {
		return false, err
	}
	httpClient := &http.Client{Timeout: c.cfg.HTTPTimeout}

	var lastErr error
	for _, iss := range c.cfg.Issuers {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, iss.Endpoint+"/v1/verify_token", bytes.NewReader(body))
		if err != nil {
			lastErr = err
			continue
		}
		httpReq.Header.Set("Content-Type", "application/json")
		resp, err := httpClient.Do(httpReq)
		if err != nil {
			lastErr = err
			continue
		}
		var vr verifyTokenResponse
		derr := json.NewDecoder(resp.Body).Decode(&vr)
		resp.Body.Close()
		if derr != nil {
			lastErr = derr
			continue
		}
		return vr.Valid, nil
	}
	return false, fmt.Errorf("%w: %v", ErrAllIssuersFailed, lastErr)
}

// CreateOwnershipProof produces the Schnorr proof a holder attaches to a
// transfer package, binding it to ctx (typically the package's nullifier or
// hash). This requires no network connectivity.
func CreateOwnershipProof(secret []byte, ctx []byte) ([]byte, error) {
	return protocrypto.CreateOwnershipProof(secret, ctx)
}

// VerifyOwnershipProof checks a Schnorr ownership proof against the same
// binding context used to create it. This requires no network connectivity.
func VerifyOwnershipProof(proof, ctx []byte) bool {
	return protocrypto.VerifyOwnershipProof(proof, ctx)
}
