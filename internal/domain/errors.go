package domain

import "errors"

// Ledger error taxonomy. Handlers map these to HTTP codes; everything else
// surfaces as a 500. Only ErrConcurrentModification is retryable.
var (
	ErrInsufficientAvailableTokens = errors.New("Insufficient available tokens")
	ErrInsufficientOnListTokens    = errors.New("Insufficient on-list tokens")
	ErrListingInactive             = errors.New("Listing is no longer active")
	ErrListingOverfill             = errors.New("Quantity exceeds tokens remaining on listing")
	ErrInvalidTransactionState     = errors.New("Transaction is not in a pending state")
	ErrInvariantViolation          = errors.New("Operation would violate a ledger invariant")
	ErrConcurrentModification      = errors.New("Record was modified concurrently, please retry")
	ErrNotFound                    = errors.New("Record not found")
)

// ErrorCode returns the stable machine-readable code for a ledger error, or
// "internal_error" for anything outside the taxonomy. The UI keys off these.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientAvailableTokens):
		return "insufficient_available_tokens"
	case errors.Is(err, ErrInsufficientOnListTokens):
		return "insufficient_on_list_tokens"
	case errors.Is(err, ErrListingInactive):
		return "listing_inactive"
	case errors.Is(err, ErrListingOverfill):
		return "listing_overfill"
	case errors.Is(err, ErrInvalidTransactionState):
		return "invalid_transaction_state"
	case errors.Is(err, ErrInvariantViolation):
		return "invariant_violation"
	case errors.Is(err, ErrConcurrentModification):
		return "concurrent_modification"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	}
	return "internal_error"
}

// IsLedgerError reports whether err belongs to the taxonomy above.
func IsLedgerError(err error) bool {
	return ErrorCode(err) != "internal_error"
}

// IsRetryable reports whether the caller may safely retry the operation.
// Version conflicts are the only transient failure; business-rule errors are final.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
