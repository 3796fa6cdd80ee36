package gossip

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/flammafex/scarcity/crypto"
	"github.com/flammafex/scarcity/pkg/metrics"
	"github.com/flammafex/scarcity/witness"
)

var log = logrus.WithField("component", "gossip")

// SetLogger overrides the package-level logger, e.g. to attach a shared
// request-scoped logrus instance.
func SetLogger(l *logrus.Logger) {
	log = l.WithField("component", "gossip")
}

var (
	ErrDoubleSpendLocal  = errors.New("gossip: double-spend (local republish)")
	ErrOwnershipRequired = errors.New("gossip: ownership proof required but missing or invalid")
)

// OwnershipVerifier checks a Schnorr ownership proof bound to a context.
// Satisfied by freebird.VerifyOwnershipProof; kept as an interface so the
// engine does not import the freebird package directly.
type OwnershipVerifier interface {
	VerifyOwnershipProof(proof, binding []byte) bool
}

// WitnessVerifier checks a witness attestation, remotely or via local BLS
// fallback. Satisfied by *witness.Client; kept as an interface so tests can
// substitute a fake federation without running an HTTP server.
type WitnessVerifier interface {
	Verify(ctx context.Context, att witness.Attestation) (bool, error)
}

// Engine is the nullifier gossip engine. It is the sole writer of its
// internal state; all mutation happens under mu, so concurrent readers
// (e.g. CheckNullifier called from the validator) observe a consistent
// snapshot rather than a torn read.
type Engine struct {
	cfg       Config
	transport Transport
	ownership OwnershipVerifier
	witnessC  WitnessVerifier

	mu      sync.Mutex
	seen    map[crypto.Hash32]*NullifierRecord
	peers   map[string]*PeerRecord
	subnets map[string]int

	nowFunc func() int64 // milliseconds since epoch; overridable in tests

	stopSweep chan struct{}
	sweepOnce sync.Once
}

// New constructs an Engine. witnessC and ownership may be nil if the
// corresponding gates are unused (witnessC is required in practice since
// the witness-proof gate is unconditional).
func New(cfg Config, transport Transport, witnessC WitnessVerifier, ownership OwnershipVerifier) *Engine {
	return &Engine{
		cfg:       cfg,
		transport: transport,
		ownership: ownership,
		witnessC:  witnessC,
		seen:      make(map[crypto.Hash32]*NullifierRecord),
		peers:     make(map[string]*PeerRecord),
		subnets:   make(map[string]int),
		nowFunc:   func() int64 { return time.Now().UnixMilli() },
		stopSweep: make(chan struct{}),
	}
}

func (e *Engine) now() int64 { return e.nowFunc() }

// Publish is the local-producer path: it registers a freshly
// produced nullifier and fans its gossip message out to every connected
// peer.
func (e *Engine) Publish(nullifier crypto.Hash32, proof witness.Attestation) error {
	e.mu.Lock()
	if _, exists := e.seen[nullifier]; exists {
		e.mu.Unlock()
		return ErrDoubleSpendLocal
	}
	e.seen[nullifier] = &NullifierRecord{
		Nullifier:   nullifier,
		Proof:       proof,
		Count:       1,
		FirstSeenMs: e.now(),
	}
	peerIDs := e.transport.Peers()
	e.mu.Unlock()

	msg := GossipMessage{
		Type:        "nullifier",
		Nullifier:   nullifier.Hex(),
		Proof:       &proof,
		TimestampMs: e.now(),
	}
	for _, id := range peerIDs {
		if err := e.transport.Send(id, msg); err != nil {
			log.WithError(err).WithField("peer", id).Warn("publish send failed")
		}
	}
	return nil
}

// receiveOutcome enumerates what Receive did with a message, for tests and
// metrics; it is not part of the wire protocol.
type receiveOutcome int

const (
	outcomeRejectedStructural receiveOutcome = iota
	outcomeRejectedTimestamp
	outcomeDroppedRateLimit
	outcomeRejectedOwnership
	outcomeRejectedWitness
	outcomeDuplicate
	outcomeAccepted
)

// Receive applies the layered defense pipeline to a message from peer id
// It never returns an error to the caller for peer
// misbehavior — bad peers are scored and potentially evicted, but this
// never blocks messages from other peers.
func (e *Engine) Receive(peerID string, msg GossipMessage) {
	outcome := e.receive(peerID, msg)
	metrics.GossipMessagesReceived.WithLabelValues(outcomeLabel(outcome)).Inc()
}

func outcomeLabel(o receiveOutcome) string {
	switch o {
	case outcomeRejectedStructural:
		return "rejected_structural"
	case outcomeRejectedTimestamp:
		return "rejected_timestamp"
	case outcomeDroppedRateLimit:
		return "dropped_rate_limit"
	case outcomeRejectedOwnership:
		return "rejected_ownership"
	case outcomeRejectedWitness:
		return "rejected_witness"
	case outcomeDuplicate:
		return "duplicate"
	case outcomeAccepted:
		return "accepted"
	default:
		return "unknown"
	}
}

func (e *Engine) receive(peerID string, msg GossipMessage) receiveOutcome {
	// 1. Structural gate.
	if msg.Type != "nullifier" || msg.Nullifier == "" || msg.Proof == nil {
		return outcomeRejectedStructural
	}
	nullifier, err := crypto.Hash32FromHex(msg.Nullifier)
	if err != nil {
		return outcomeRejectedStructural
	}

	// 2. Timestamp gate.
	now := e.now()
	lowerBound := now - e.cfg.MaxNullifierAgeMs
	upperBound := now + e.cfg.MaxTimestampFutureSec*1000
	if msg.TimestampMs < lowerBound || msg.TimestampMs > upperBound {
		e.adjustScore(peerID, e.cfg.ScoreDeltaTimestampFail)
		return outcomeRejectedTimestamp
	}

	// 3. Rate-limit gate.
	if !e.takeRateToken(peerID) {
		return outcomeDroppedRateLimit
	}

	// 4. Ownership-proof gate.
	if e.cfg.RequireOwnershipProof {
		ownershipBytes, err := hex.DecodeString(msg.OwnershipProof)
		if err != nil || e.ownership == nil || !e.ownership.VerifyOwnershipProof(ownershipBytes, nullifier[:]) {
			e.adjustScore(peerID, e.cfg.ScoreDeltaOwnershipFail)
			return outcomeRejectedOwnership
		}
	}

	// 5. Witness-proof gate.
	if e.witnessC != nil {
		ok, _ := e.witnessC.Verify(context.Background(), *msg.Proof)
		if !ok {
			e.mu.Lock()
			if p, exists := e.peers[peerID]; exists {
				p.InvalidProofs++
			}
			e.mu.Unlock()
			e.adjustScore(peerID, e.cfg.ScoreDeltaWitnessFail)
			return outcomeRejectedWitness
		}
	}

	// 6. Dedup gate.
	e.mu.Lock()
	rec, exists := e.seen[nullifier]
	if exists {
		rec.Count++
		isRedundant := rec.Count > 1
		e.mu.Unlock()
		if isRedundant {
			e.mu.Lock()
			if p, exists := e.peers[peerID]; exists {
				p.Duplicates++
			}
			e.mu.Unlock()
			e.adjustScore(peerID, e.cfg.ScoreDeltaDuplicate)
		}
		return outcomeDuplicate
	}

	var ownershipProof []byte
	if msg.OwnershipProof != "" {
		ownershipProof, _ = hex.DecodeString(msg.OwnershipProof)
	}
	e.seen[nullifier] = &NullifierRecord{
		Nullifier:      nullifier,
		Proof:          *msg.Proof,
		Count:          1,
		FirstSeenMs:    now,
		OwnershipProof: ownershipProof,
	}
	peerIDs := e.transport.Peers()
	e.mu.Unlock()

	// 7. Accept: forward to every other connected peer.
	e.adjustScore(peerID, e.cfg.ScoreDeltaAccept)
	for _, id := range peerIDs {
		if id == peerID {
			continue
		}
		if err := e.transport.Send(id, msg); err != nil {
			log.WithError(err).WithField("peer", id).Warn("forward send failed")
		}
	}
	return outcomeAccepted
}

func (e *Engine) takeRateToken(peerID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, exists := e.peers[peerID]
	if !exists {
		// Unknown peers (not yet added via AddPeer) get a permissive default
		// bucket rather than being silently dropped.
		return true
	}
	nowT := time.UnixMilli(e.now())
	elapsed := nowT.Sub(p.rateUpdatedAt).Seconds()
	if p.rateUpdatedAt.IsZero() {
		p.RateTokens = e.cfg.RateLimitBurst
	} else {
		p.RateTokens += elapsed * e.cfg.RateLimitRefillPerSec
		if p.RateTokens > e.cfg.RateLimitBurst {
			p.RateTokens = e.cfg.RateLimitBurst
		}
	}
	p.rateUpdatedAt = nowT
	if p.RateTokens < 1 {
		return false
	}
	p.RateTokens--
	return true
}

// adjustScore applies delta to peerID's score, clamps it, and evicts the
// peer if it has dropped below the configured threshold.
func (e *Engine) adjustScore(peerID string, delta int32) {
	e.mu.Lock()
	p, exists := e.peers[peerID]
	if !exists {
		e.mu.Unlock()
		return
	}
	p.Score += delta
	if p.Score > e.cfg.ScoreMax {
		p.Score = e.cfg.ScoreMax
	}
	if p.Score < e.cfg.ScoreMin {
		p.Score = e.cfg.ScoreMin
	}
	p.LastMessageMs = e.now()
	evict := p.Score < e.cfg.PeerScoreThreshold
	e.mu.Unlock()

	if evict {
		e.RemovePeer(peerID)
		_ = e.transport.Disconnect(peerID)
	}
}

// AddPeer registers a newly connected peer and updates subnet-diversity
// accounting, warning if any one subnet now holds an outsized share of
// known-address peers.
func (e *Engine) AddPeer(p PeerRecord) {
	e.mu.Lock()
	e.peers[p.ID] = &p
	var warn bool
	var subnet string
	var fraction float64
	if key := subnetKey(p.RemoteAddr); key != "" {
		e.subnets[key]++
		total := e.knownAddressPeerCountLocked()
		if total > 0 {
			fraction = float64(e.subnets[key]) / float64(total)
			if fraction > e.cfg.SubnetWarnFraction {
				warn = true
				subnet = key
			}
		}
	}
	e.mu.Unlock()
	metrics.GossipPeerCount.Set(float64(e.PeerCount()))

	if warn {
		log.WithField("subnet", subnet).WithField("fraction", fraction).
			Warn("subnet diversity heuristic exceeded, possible Sybil cluster")
	}
}

// RemovePeer evicts a peer from the table and subnet accounting.
func (e *Engine) RemovePeer(id string) {
	e.mu.Lock()
	p, exists := e.peers[id]
	if !exists {
		e.mu.Unlock()
		return
	}
	if key := subnetKey(p.RemoteAddr); key != "" {
		if e.subnets[key] > 0 {
			e.subnets[key]--
		}
		if e.subnets[key] == 0 {
			delete(e.subnets, key)
		}
	}
	delete(e.peers, id)
	e.mu.Unlock()
	metrics.GossipPeerCount.Set(float64(e.PeerCount()))
}

// knownAddressPeerCountLocked must be called with mu held.
func (e *Engine) knownAddressPeerCountLocked() int {
	n := 0
	for _, p := range e.peers {
		if subnetKey(p.RemoteAddr) != "" {
			n++
		}
	}
	return n
}

// SubnetFraction reports the current peer share held by each known subnet
// key, for diagnostics and tests.
func (e *Engine) SubnetFraction() map[string]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	total := e.knownAddressPeerCountLocked()
	out := make(map[string]float64, len(e.subnets))
	if total == 0 {
		return out
	}
	for k, v := range e.subnets {
		out[k] = float64(v) / float64(total)
	}
	return out
}

// subnetKey computes the Sybil-heuristic bucket for an address: the first
// three IPv4 octets, or the first three IPv6 hextets (a /48). Addresses
// that cannot be parsed this way (empty, unknown, non-IP) contribute
// nothing.
func subnetKey(addr string) string {
	if addr == "" {
		return ""
	}
	host := addr
	if idx := strings.LastIndex(addr, ":"); idx > 0 && strings.Count(addr, ":") == 1 {
		host = addr[:idx] // strip a single "ip:port" style suffix
	}
	if strings.Contains(host, ".") {
		parts := strings.Split(host, ".")
		if len(parts) != 4 {
			return ""
		}
		return strings.Join(parts[:3], ".")
	}
	if strings.Contains(host, ":") {
		parts := strings.Split(strings.Trim(host, "[]"), ":")
		if len(parts) < 3 {
			return ""
		}
		return strings.Join(parts[:3], ":")
	}
	return ""
}

// CheckNullifier is the fast local gossip check the validator uses: a
// crude confidence estimate from how many distinct re-receipts a nullifier
// has accumulated, saturating at 1.0.
func (e *Engine) CheckNullifier(nullifier crypto.Hash32) float32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, exists := e.seen[nullifier]
	if !exists {
		return 0
	}
	score := float32(rec.Count) / float32(e.cfg.QuorumEstimate)
	if score > 1 {
		score = 1
	}
	return score
}

// StartSweep launches the periodic background task that drops expired
// nullifier records. Call Stop to terminate it.
func (e *Engine) StartSweep(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.sweep()
			case <-e.stopSweep:
				return
			}
		}
	}()
}

// Stop terminates the background sweep task, if running.
func (e *Engine) Stop() {
	e.sweepOnce.Do(func() { close(e.stopSweep) })
}

func (e *Engine) sweep() {
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()
	dropped := 0
	for n, rec := range e.seen {
		if rec.FirstSeenMs+e.cfg.MaxNullifierAgeMs < now {
			delete(e.seen, n)
			dropped++
		}
	}
	if dropped > 0 {
		log.WithField("dropped", dropped).Debug("sweep expired nullifier records")
	}
	metrics.GossipRecordsExpired.Add(float64(dropped))
}

// SeenCount reports the number of nullifier records currently retained, for
// diagnostics and tests.
func (e *Engine) SeenCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.seen)
}

// PeerCount reports the number of peers currently tracked, for diagnostics
// and tests.
func (e *Engine) PeerCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.peers)
}

// PeerScore returns a tracked peer's current score and whether it exists.
func (e *Engine) PeerScore(id string) (int32, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, exists := e.peers[id]
	if !exists {
		return 0, false
	}
	return p.Score, true
}

// MaxNullifierAgeMs reports the engine's configured validity window, so
// collaborators (e.g. the validator) can check their own window against it
// at construction time rather than duplicating the value.
func (e *Engine) MaxNullifierAgeMs() int64 { return e.cfg.MaxNullifierAgeMs }

// PeerDirectionCounts reports how many tracked peers are outbound, inbound,
// and of unknown direction; the validator's peer_score term weights these
// unevenly since outbound connections are harder for an Eclipse attacker to
// dictate.
func (e *Engine) PeerDirectionCounts() (outbound, inbound, unknown int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.peers {
		switch p.Direction {
		case DirectionOutbound:
			outbound++
		case DirectionInbound:
			inbound++
		default:
			unknown++
		}
	}
	return outbound, inbound, unknown
}
