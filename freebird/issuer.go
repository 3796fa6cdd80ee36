// Package freebird implements the client side of the Freebird issuance
// protocol: blinding a recipient public key, obtaining an oblivious token
// from one or more issuers, verifying the issuer's DLEQ proof, and
// producing the unlinkable ownership proof a spender later attaches to a
// transfer package.
package freebird

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	protocrypto "github.com/flammafex/scarcity/crypto"
)

var log = logrus.WithField("component", "freebird")

var (
	ErrNoIssuersConfigured  = errors.New("freebird: no issuers configured")
	ErrAllIssuersFailed     = errors.New("freebird: all issuers failed")
	ErrIssuerProofInvalid   = errors.New("freebird: issuer DLEQ proof did not verify")
	ErrFallbackNotAllowed   = errors.New("freebird: blinding failed and fallback is not enabled")
)

// Issuer describes one Freebird issuance endpoint and its published VOPRF
// public key.
type Issuer struct {
	ID       string
	Endpoint string
	// PubKey is the issuer's compressed P-256 public key Q = y·G.
	PubKey protocrypto.Point33
}

// Config configures a Client.
type Config struct {
	Issuers []Issuer
	// AllowFallbackBlinding permits substituting a 32-byte hash commitment
	// for VOPRF blinding when every configured issuer is unreachable. This
	// trades unlinkability for availability and defaults to false; callers
	// must opt in explicitly.
	AllowFallbackBlinding bool
	HTTPTimeout           time.Duration
}

// Client is the Freebird issuance client.
type Client struct {
	cfg Config
	mu  sync.Mutex
}

// NewClient constructs a Client. It performs no network I/O.
func NewClient(cfg Config) (*Client, error) {
	if len(cfg.Issuers) == 0 {
		return nil, ErrNoIssuersConfigured
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 5 * time.Second
	}
	return &Client{cfg: cfg}, nil
}

// IssuedToken is the recipient-held result of a successful issuance: the
// unblinded VOPRF output (the token's secret material) plus bookkeeping for
// which issuer vouched for it.
type IssuedToken struct {
	Secret   protocrypto.Hash32
	IssuerID string
}
