// Package validator implements the probabilistic transfer validator (spec
// §4.E): a tiered double-spend check combining a local gossip fast path, a
// federated witness check, attestation verification, a propagation wait,
// and an anti-Eclipse confidence score.
package validator

import (
	"context"
	"time"

	"github.com/flammafex/scarcity/crypto"
	"github.com/flammafex/scarcity/gossip"
	"github.com/flammafex/scarcity/token"
)

// Result is the outcome of a successful validation.
type Result struct {
	Valid      bool
	Confidence float64
}

// Validator runs the tiered transfer-validation algorithm against a bundle
// of collaborators.
type Validator struct {
	cfg     Config
	clients Clients
	nowFunc func() int64
}

// New constructs a Validator, enforcing the validity-window agreement
// between cfg.MaxTokenAgeMs and the gossip engine's configured window.
// Passing gossipWindowMs <= 0 skips the check (e.g. when clients.Gossip is
// a fake that has no comparable window of its own).
func New(cfg Config, clients Clients, gossipWindowMs int64) (*Validator, error) {
	if gossipWindowMs > 0 && cfg.MaxTokenAgeMs > gossipWindowMs {
		return nil, ErrWindowMismatch
	}
	if cfg.GossipDoubleSpendThreshold == 0 {
		cfg.GossipDoubleSpendThreshold = 0.5
	}
	return &Validator{cfg: cfg, clients: clients, nowFunc: func() int64 {
		return time.Now().UnixMilli()
	}}, nil
}

// NewFromEngine is a convenience constructor that reads the validity window
// directly off a live gossip engine, guaranteeing agreement by construction.
func NewFromEngine(cfg Config, clients Clients, engine *gossip.Engine) (*Validator, error) {
	return New(cfg, clients, engine.MaxNullifierAgeMs())
}

func (v *Validator) now() int64 { return v.nowFunc() }

// Validate runs the full algorithm: age gate, gossip fast path, witness
// check, attestation check, a propagation wait, a second gossip check, and
// confidence scoring.
func (v *Validator) Validate(ctx context.Context, pkg token.TransferPackage) (Result, error) {
	return v.validate(ctx, pkg, v.cfg.WaitTimeMs, true)
}

// FastValidate skips the propagation wait and the post-wait gossip
// re-check, trading confidence for latency.
func (v *Validator) FastValidate(ctx context.Context, pkg token.TransferPackage) (Result, error) {
	return v.validate(ctx, pkg, 0, false)
}

// DeepValidate temporarily extends the propagation wait to waitMs,
// overriding the configured default for this call only.
func (v *Validator) DeepValidate(ctx context.Context, pkg token.TransferPackage, waitMs int64) (Result, error) {
	return v.validate(ctx, pkg, waitMs, true)
}

func (v *Validator) validate(ctx context.Context, pkg token.TransferPackage, waitMs int64, recheckGossip bool) (Result, error) {
	nullifier, err := crypto.Hash32FromHex(pkg.Nullifier)
	if err != nil {
		return Result{}, err
	}

	now := v.now()
	age := now - int64(pkg.Proof.TimestampMs)
	if age > v.cfg.MaxTokenAgeMs {
		return Result{}, ErrExpired
	}

	if g := v.clients.Gossip.CheckNullifier(nullifier); g > v.cfg.GossipDoubleSpendThreshold {
		return Result{}, ErrDoubleSpendGossip
	}

	if w := v.clients.Witness.CheckNullifier(ctx, pkg.Nullifier); w > 0 {
		return Result{}, ErrDoubleSpendWitness
	}

	ok, err := v.clients.Witness.Verify(ctx, pkg.Proof)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, ErrInvalidAttestation
	}

	if waitMs > 0 {
		if err := sleepCtx(ctx, msToDuration(waitMs)); err != nil {
			return Result{}, err
		}
		if recheckGossip {
			if g := v.clients.Gossip.CheckNullifier(nullifier); g > v.cfg.GossipDoubleSpendThreshold {
				return Result{}, ErrDoubleSpendGossip
			}
		}
	}

	confidence := v.confidence(waitMs)
	if confidence < v.cfg.MinConfidence {
		return Result{}, ErrLowConfidence
	}
	return Result{Valid: true, Confidence: confidence}, nil
}

// confidence computes c = peer_score + witness_score + time_score per spec
// §4.E, using the wait duration actually applied for this call.
func (v *Validator) confidence(waitMs int64) float64 {
	outbound, inbound, unknown := v.clients.Gossip.PeerDirectionCounts()
	effectivePeers := 3*outbound + inbound + unknown
	peerScore := min64(float64(effectivePeers)/10, 0.5)
	witnessScore := min64(float64(v.cfg.WitnessFederationDepth)/3, 0.3)
	timeScore := min64(float64(waitMs)/10000, 0.2)
	return peerScore + witnessScore + timeScore
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// sleepCtx sleeps for d or returns ErrCancelled if ctx is done first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ErrCancelled
	}
}
