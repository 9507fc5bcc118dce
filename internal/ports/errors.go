package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard
// errors so the core and the transport boundary can classify failures without
// knowing which venue or store produced them.
var (
	// General
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out; outcome unknown at the venue")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Safety gate
	ErrTradingDisabled = errors.New("order dispatch vetoed by safety gate")

	// Contract resolution
	ErrContractNotFound  = errors.New("no contract matched the symbol spec")
	ErrAmbiguousContract = errors.New("multiple conflicting contracts matched the symbol spec")

	// Order pipeline
	ErrOrderValidation      = errors.New("order spec failed validation")
	ErrOrderNotFound        = errors.New("order not found at the venue")
	ErrOrderPlacementFailed = errors.New("failed to place order")
	ErrOrderCancelFailed    = errors.New("failed to cancel order")

	// Venue session
	ErrConnectionFailed     = errors.New("broker session is not connected")
	ErrVenueUnavailable     = errors.New("venue API is unavailable")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("venue authentication failed (check API keys)")
	ErrInsufficientFunds    = errors.New("insufficient funds for operation")

	// Persistence
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
)
