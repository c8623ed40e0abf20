package errors

import "errors"

// Core action/session taxonomy. These map 1:1 onto the wire error codes
// returned to clients, see Code.
var (
	ErrValidation          = errors.New("action not legal for current phase or turn")
	ErrConcurrencyConflict = errors.New("stale or duplicate client sequence")
	ErrSessionNotFound     = errors.New("channel has no live session")
	ErrResourceExhausted   = errors.New("resource exhausted")
	ErrInternalFault       = errors.New("session state invariant violated")
)

// Transport / access.
var (
	ErrUnauthorized = errors.New("unauthorized")
)

// Channel configuration admin.
var (
	ErrChannelConfigNotFound = errors.New("channel config not found")
	ErrChannelDisabled       = errors.New("channel is disabled")
)

// Wallet.
var (
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrInvalidWalletPayload = errors.New("invalid wallet payload")
)

// Ledger.
var (
	ErrPayoutValidation = errors.New("payout entries do not match pot total")
)

// Admin accounts.
var (
	ErrAdminNotFound        = errors.New("admin not found")
	ErrInvalidAdminPassword = errors.New("invalid admin credentials")
	ErrAdminDisabled        = errors.New("admin account disabled")
)

// Players.
var (
	ErrPlayerBanned = errors.New("player is banned")
)

// Code returns the wire error code for err, defaulting to InternalFault for
// anything outside the client-facing taxonomy.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "ValidationError"
	case errors.Is(err, ErrConcurrencyConflict):
		return "ConcurrencyConflict"
	case errors.Is(err, ErrSessionNotFound):
		return "SessionNotFound"
	case errors.Is(err, ErrResourceExhausted):
		return "ResourceExhausted"
	default:
		return "InternalFault"
	}
}
