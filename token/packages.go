// Package token implements the token state machine: mint, transfer, split,
// merge, multi-party transfer, hash/time-locked transfer (HTLC), and their
// receive/claim/refund counterparts. Every spend-causing operation derives
// a nullifier, obtains a commitment from the Freebird issuance federation,
// times its package with the witness federation, and publishes the
// nullifier to the gossip engine before marking the local token spent.
package token

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/flammafex/scarcity/crypto"
	"github.com/flammafex/scarcity/witness"
)

// ConditionType selects the HTLC condition kind: ConditionHash or
// ConditionTime. Only the field selected by Type (Hashlock or TimelockMs)
// is meaningful.
type ConditionType string

const (
	ConditionHash ConditionType = "hash"
	ConditionTime ConditionType = "time"
)

// Condition is an HTLC's claim condition, tagged by Type.
type Condition struct {
	Type       ConditionType `json:"type"`
	Hashlock   string        `json:"hashlock,omitempty"`   // 64 hex chars
	TimelockMs uint64        `json:"timelock,omitempty"`
}

// TransferPackage is the bearer blob for a 1-to-1 transfer.
type TransferPackage struct {
	TokenID        string              `json:"token_id"`
	Amount         uint64              `json:"amount"`
	Commitment     string              `json:"commitment"`
	Nullifier      string              `json:"nullifier"`
	Proof          witness.Attestation `json:"proof"`
	OwnershipProof string              `json:"ownership_proof,omitempty"`
}

// SplitEntry is one recipient slot of a SplitPackage.
type SplitEntry struct {
	TokenID    string `json:"token_id"`
	Amount     uint64 `json:"amount"`
	Commitment string `json:"commitment"`
}

// SplitPackage is the bearer blob for a 1-to-many split.
type SplitPackage struct {
	SourceTokenID  string              `json:"source_token_id"`
	SourceAmount   uint64              `json:"source_amount"`
	Splits         []SplitEntry        `json:"splits"`
	Nullifier      string              `json:"nullifier"`
	Proof          witness.Attestation `json:"proof"`
	OwnershipProof string              `json:"ownership_proof,omitempty"`
}

// MergeSource is one consumed input of a MergePackage.
type MergeSource struct {
	TokenID   string `json:"token_id"`
	Amount    uint64 `json:"amount"`
	Nullifier string `json:"nullifier"`
}

// MergePackage is the bearer blob for a many-to-1 merge.
type MergePackage struct {
	TargetTokenID   string              `json:"target_token_id"`
	TargetAmount    uint64              `json:"target_amount"`
	Commitment      string              `json:"commitment"`
	Sources         []MergeSource       `json:"sources"`
	Proof           witness.Attestation `json:"proof"`
	OwnershipProofs []string            `json:"ownership_proofs,omitempty"`
}

// MultiPartyRecipient is one recipient slot of a MultiPartyTransfer.
type MultiPartyRecipient struct {
	PublicKey  string `json:"public_key"`
	Amount     uint64 `json:"amount"`
	Commitment string `json:"commitment"`
	TokenID    string `json:"token_id"`
}

// MultiPartyTransfer is the bearer blob for a 1-to-many transfer where each
// recipient's slot additionally carries its public key.
type MultiPartyTransfer struct {
	SourceTokenID  string                `json:"source_token_id"`
	SourceAmount   uint64                `json:"source_amount"`
	Recipients     []MultiPartyRecipient `json:"recipients"`
	Nullifier      string                `json:"nullifier"`
	Proof          witness.Attestation   `json:"proof"`
	OwnershipProof string                `json:"ownership_proof,omitempty"`
}

// HTLCPackage is the bearer blob for a hash/time-locked transfer.
type HTLCPackage struct {
	TokenID          string              `json:"token_id"`
	Amount           uint64              `json:"amount"`
	Commitment       string              `json:"commitment"`
	Nullifier        string              `json:"nullifier"`
	Condition        Condition           `json:"condition"`
	RefundPublicKey  string              `json:"refund_public_key,omitempty"`
	Proof            witness.Attestation `json:"proof"`
	OwnershipProof   string              `json:"ownership_proof,omitempty"`
}

// canonicalJSON marshals v using Go's default map/struct key ordering
// (struct fields in declaration order) with no extraneous whitespace,
// matching the package-hash framing rule: SHA-256(utf8(canonical_json(package_core))).
//
// v must be a "package core" value: one of the core structs below, which
// carry the package's fields minus Proof and OwnershipProof, since the hash
// covers only the pre-attestation core.
func canonicalJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// splitCore, mergeCore, multiPartyCore, htlcCore (and the exported
// BridgeCore below) are the package-hash input shapes: the wire package
// minus its attestation and ownership proof(s), per the "package core"
// framing rule.
type splitCore struct {
	SourceTokenID string       `json:"source_token_id"`
	SourceAmount  uint64       `json:"source_amount"`
	Splits        []SplitEntry `json:"splits"`
	Nullifier     string       `json:"nullifier"`
}

type mergeCore struct {
	TargetTokenID string        `json:"target_token_id"`
	TargetAmount  uint64        `json:"target_amount"`
	Commitment    string        `json:"commitment"`
	Sources       []MergeSource `json:"sources"`
}

type multiPartyCore struct {
	SourceTokenID string                `json:"source_token_id"`
	SourceAmount  uint64                `json:"source_amount"`
	Recipients    []MultiPartyRecipient `json:"recipients"`
	Nullifier     string                `json:"nullifier"`
}

type htlcCore struct {
	TokenID         string    `json:"token_id"`
	Amount          uint64    `json:"amount"`
	Commitment      string    `json:"commitment"`
	Nullifier       string    `json:"nullifier"`
	Condition       Condition `json:"condition"`
	RefundPublicKey string    `json:"refund_public_key,omitempty"`
}

// BridgeCore is the pre-attestation core of a federation-bridge lock
// package, exported so the bridge package can build and hash it without
// duplicating the canonical-JSON framing rule.
type BridgeCore struct {
	SourceTokenID    string `json:"source_token_id"`
	SourceFederation string `json:"source_federation"`
	TargetFederation string `json:"target_federation"`
	Amount           uint64 `json:"amount"`
	Commitment       string `json:"commitment"`
	Nullifier        string `json:"nullifier"`
}

// HashBridgeCore hashes a BridgeCore per the canonical-JSON package-hash
// rule.
func HashBridgeCore(c BridgeCore) (crypto.Hash32, error) { return hashCore(c) }

func hashSplitCore(c splitCore) (crypto.Hash32, error)           { return hashCore(c) }
func hashMergeCore(c mergeCore) (crypto.Hash32, error)           { return hashCore(c) }
func hashMultiPartyCore(c multiPartyCore) (crypto.Hash32, error) { return hashCore(c) }
func hashHTLCCore(c htlcCore) (crypto.Hash32, error)             { return hashCore(c) }

func hashCore(v interface{}) (crypto.Hash32, error) {
	data, err := canonicalJSON(v)
	if err != nil {
		return crypto.Hash32{}, err
	}
	return crypto.HashCanonicalJSON(data), nil
}

func parseHex(s string, wantLen int) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("token: malformed hex: %w", err)
	}
	if wantLen > 0 && len(b) != wantLen {
		return nil, fmt.Errorf("token: expected %d bytes, got %d", wantLen, len(b))
	}
	return b, nil
}
