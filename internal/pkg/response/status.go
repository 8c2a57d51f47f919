package response

import (
	"errors"

	"brickvault-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
)

// LedgerError sends a taxonomy error with the matching HTTP status and code,
// so the UI can tell "not enough tokens" from "listing closed" from "retry".
func LedgerError(c *fiber.Ctx, err error) error {
	return ErrorCoded(c, err.Error(), statusFor(err), domain.ErrorCode(err), nil)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrConcurrentModification),
		errors.Is(err, domain.ErrInvalidTransactionState),
		errors.Is(err, domain.ErrListingInactive):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrInsufficientAvailableTokens),
		errors.Is(err, domain.ErrInsufficientOnListTokens),
		errors.Is(err, domain.ErrListingOverfill),
		errors.Is(err, domain.ErrInvariantViolation):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}
