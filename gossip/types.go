// Package gossip implements the nullifier gossip engine: epidemic broadcast
// of spend markers across an overlay of peers, layered spam defenses, peer
// reputation scoring, subnet-diversity accounting, and lazy-demurrage expiry
// of nullifier records via a rolling validity window.
package gossip

import (
	"time"

	"github.com/flammafex/scarcity/crypto"
	"github.com/flammafex/scarcity/witness"
)

// NullifierRecord is the gossip engine's bookkeeping entry for a single
// nullifier it has seen, locally published or received from a peer.
type NullifierRecord struct {
	Nullifier       crypto.Hash32
	Proof           witness.Attestation
	Count           uint32
	FirstSeenMs     int64
	OwnershipProof  []byte
}

// Direction describes which side initiated a peer connection.
type Direction int

const (
	DirectionUnknown Direction = iota
	DirectionInbound
	DirectionOutbound
)

// PeerRecord is the gossip engine's reputation and rate-limit bookkeeping
// for one connected peer.
type PeerRecord struct {
	ID             string
	Direction      Direction
	RemoteAddr     string
	Score          int32
	InvalidProofs  uint32
	Duplicates     uint32
	LastMessageMs  int64
	RateTokens     float64
	rateUpdatedAt  time.Time
}

// GossipMessage is the wire shape exchanged between peers.
type GossipMessage struct {
	Type           string              `json:"type"` // "nullifier" | "ping" | "pong"
	Nullifier      string              `json:"nullifier,omitempty"`
	Proof          *witness.Attestation `json:"proof,omitempty"`
	TimestampMs    int64               `json:"timestamp"`
	OwnershipProof string              `json:"ownership_proof,omitempty"`
}

// Transport exposes a lazy, mutable view of currently connected peers. Wire
// details (encoding, encryption, discovery) belong to the concrete
// transport; the gossip engine only needs to enumerate peers and send
// best-effort messages to them.
type Transport interface {
	// Peers returns the currently connected peer ids, in no particular order.
	Peers() []string
	// Send best-effort delivers msg to peer id. Errors are logged, not
	// propagated: gossip delivery is at-least-once, not guaranteed.
	Send(id string, msg GossipMessage) error
	// Disconnect tears down the connection to peer id, if still present.
	Disconnect(id string) error
}
