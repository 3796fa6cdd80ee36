package token

import "errors"

var (
	ErrTokenAlreadySpent    = errors.New("token: already spent")
	ErrTokenNotHeld         = errors.New("token: not held by this instance")
	ErrInvalidSplit         = errors.New("token: split amounts invalid")
	ErrInvalidProof         = errors.New("token: invalid proof")
	ErrHTLCConditionInvalid = errors.New("token: HTLC condition invalid")
	ErrInvalidPreimage      = errors.New("token: invalid preimage")
	ErrTimelockNotExpired   = errors.New("token: timelock has not expired")
	ErrTimelockExpired      = errors.New("token: timelock has expired, use refund")
	ErrRefundSecretMismatch = errors.New("token: refund secret does not match")
	ErrFederationMismatch   = errors.New("token: federation mismatch")
	ErrEmptyRecipients      = errors.New("token: empty recipient list")
)
