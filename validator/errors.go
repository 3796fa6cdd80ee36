package validator

import "errors"

var (
	ErrExpired            = errors.New("validator: token package exceeds max age")
	ErrDoubleSpendGossip  = errors.New("validator: nullifier already observed via gossip")
	ErrDoubleSpendWitness = errors.New("validator: nullifier already observed by witness federation")
	ErrInvalidAttestation = errors.New("validator: attestation failed verification")
	ErrLowConfidence      = errors.New("validator: confidence below minimum threshold")
	ErrCancelled          = errors.New("validator: validation was cancelled")
	ErrWindowMismatch     = errors.New("validator: max_token_age_ms exceeds the gossip engine's validity window")
)
