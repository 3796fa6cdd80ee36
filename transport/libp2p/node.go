// Package libp2p adapts a go-libp2p host with GossipSub pubsub and mDNS
// peer discovery into a gossip.Transport: the concrete peer-connectivity
// layer the nullifier gossip engine drives. Encoding, stream multiplexing
// and transport security are entirely owned by libp2p; this package only
// maps "peer id" and "send a gossip message" onto it.
package libp2p

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	"github.com/sirupsen/logrus"

	"github.com/flammafex/scarcity/gossip"
)

var log = logrus.WithField("component", "transport/libp2p")

// Config configures a Node.
type Config struct {
	ListenAddr     string
	BootstrapPeers []string
	DiscoveryTag   string
	Topic          string
}

// Node is a gossip.Transport backed by a libp2p host: one GossipSub topic
// carries every nullifier gossip message, and mDNS opportunistically
// discovers and connects to peers on the local network.
type Node struct {
	host   host.Host
	pubsub *pubsub.PubSub
	topic  *pubsub.Topic
	sub    *pubsub.Subscription

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.RWMutex
	peers map[string]peer.AddrInfo

	incoming chan Delivery
}

// Delivery is a gossip message received off the pubsub topic, tagged with
// the libp2p peer id that relayed it.
type Delivery struct {
	From string
	Msg  gossip.GossipMessage
}

// New creates and bootstraps a libp2p-backed transport node.
func New(cfg Config) (*Node, error) {
	ctx, cancel := context.WithCancel(context.Background())

	h, err := libp2p.New(libp2p.ListenAddrStrings(cfg.ListenAddr))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("transport/libp2p: create host: %w", err)
	}

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		h.Close()
		cancel()
		return nil, fmt.Errorf("transport/libp2p: create pubsub: %w", err)
	}

	topic, err := ps.Join(cfg.Topic)
	if err != nil {
		h.Close()
		cancel()
		return nil, fmt.Errorf("transport/libp2p: join topic %s: %w", cfg.Topic, err)
	}
	sub, err := topic.Subscribe()
	if err != nil {
		h.Close()
		cancel()
		return nil, fmt.Errorf("transport/libp2p: subscribe topic %s: %w", cfg.Topic, err)
	}

	n := &Node{
		host:     h,
		pubsub:   ps,
		topic:    topic,
		sub:      sub,
		ctx:      ctx,
		cancel:   cancel,
		peers:    make(map[string]peer.AddrInfo),
		incoming: make(chan Delivery, 256),
	}

	for _, addr := range cfg.BootstrapPeers {
		if err := n.dial(addr); err != nil {
			log.WithError(err).WithField("addr", addr).Warn("bootstrap dial failed")
		}
	}

	mdns.NewMdnsService(h, cfg.DiscoveryTag, n)
	go n.readLoop()

	return n, nil
}

var _ mdns.Notifee = (*Node)(nil)

// HandlePeerFound implements mdns.Notifee: connect to a newly discovered
// local peer, skipping ourselves and peers we already track.
func (n *Node) HandlePeerFound(info peer.AddrInfo) {
	if info.ID == n.host.ID() {
		return
	}
	n.mu.RLock()
	_, known := n.peers[info.ID.String()]
	n.mu.RUnlock()
	if known {
		return
	}
	if err := n.host.Connect(n.ctx, info); err != nil {
		log.WithError(err).WithField("peer", info.ID.String()).Warn("mDNS connect failed")
		return
	}
	n.mu.Lock()
	n.peers[info.ID.String()] = info
	n.mu.Unlock()
	log.WithField("peer", info.ID.String()).Info("connected via mDNS")
}

func (n *Node) dial(addr string) error {
	pi, err := peer.AddrInfoFromString(addr)
	if err != nil {
		return err
	}
	if err := n.host.Connect(n.ctx, *pi); err != nil {
		return err
	}
	n.mu.Lock()
	n.peers[pi.ID.String()] = *pi
	n.mu.Unlock()
	return nil
}

// Peers implements gossip.Transport.
func (n *Node) Peers() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]string, 0, len(n.peers))
	for id := range n.peers {
		out = append(out, id)
	}
	return out
}

// Send implements gossip.Transport. Since GossipSub fans out to the whole
// topic rather than addressing individual peers, every Send republishes to
// the shared topic; the engine's own dedup gate absorbs the
// resulting redundant deliveries.
func (n *Node) Send(id string, msg gossip.GossipMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return n.topic.Publish(n.ctx, data)
}

// Disconnect implements gossip.Transport.
func (n *Node) Disconnect(id string) error {
	n.mu.Lock()
	info, ok := n.peers[id]
	delete(n.peers, id)
	n.mu.Unlock()
	if !ok {
		return nil
	}
	return n.host.Network().ClosePeer(info.ID)
}

// Messages returns the channel of gossip messages received from the
// pubsub topic, normalized for gossip.Engine.Receive.
func (n *Node) Messages() <-chan Delivery {
	return n.incoming
}

func (n *Node) readLoop() {
	for {
		raw, err := n.sub.Next(n.ctx)
		if err != nil {
			log.WithError(err).Debug("subscription closed")
			return
		}
		var msg gossip.GossipMessage
		if err := json.Unmarshal(raw.Data, &msg); err != nil {
			log.WithError(err).Warn("malformed gossip message, dropping")
			continue
		}
		select {
		case n.incoming <- Delivery{From: raw.GetFrom().String(), Msg: msg}:
		case <-n.ctx.Done():
			return
		}
	}
}

// Pump drains Messages into engine.Receive until ctx is cancelled or the
// node is closed; it is the glue between the libp2p transport and the
// gossip engine's own dedup/scoring pipeline.
func (n *Node) Pump(ctx context.Context, engine *gossip.Engine) {
	for {
		select {
		case d, ok := <-n.incoming:
			if !ok {
				return
			}
			engine.Receive(d.From, d.Msg)
		case <-ctx.Done():
			return
		case <-n.ctx.Done():
			return
		}
	}
}

// Close tears down the host and background goroutines.
func (n *Node) Close() error {
	n.cancel()
	return n.host.Close()
}

var _ gossip.Transport = (*Node)(nil)
