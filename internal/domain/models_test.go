package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHoldingCheckInvariant(t *testing.T) {
	ok := Holding{TotalQuantity: 100, AvailableQuantity: 60, OnListQuantity: 40}
	assert.NoError(t, ok.CheckInvariant())

	// settled-out gap is legal: available + on_list may be below total
	gap := Holding{TotalQuantity: 100, AvailableQuantity: 50, OnListQuantity: 20}
	assert.NoError(t, gap.CheckInvariant())

	over := Holding{TotalQuantity: 100, AvailableQuantity: 70, OnListQuantity: 40}
	assert.ErrorIs(t, over.CheckInvariant(), ErrInvariantViolation)

	negative := Holding{TotalQuantity: 10, AvailableQuantity: -1, OnListQuantity: 0}
	assert.ErrorIs(t, negative.CheckInvariant(), ErrInvariantViolation)
}

func TestListingCheckInvariant(t *testing.T) {
	ok := Listing{TotalListQuantity: 40, OnListQuantity: 25, SoldQuantity: 15, IsActive: true}
	assert.NoError(t, ok.CheckInvariant())

	overList := Listing{TotalListQuantity: 40, OnListQuantity: 41, IsActive: true}
	assert.ErrorIs(t, overList.CheckInvariant(), ErrInvariantViolation)

	overSum := Listing{TotalListQuantity: 40, OnListQuantity: 30, SoldQuantity: 15, IsActive: true}
	assert.ErrorIs(t, overSum.CheckInvariant(), ErrInvariantViolation)

	soldOutStillActive := Listing{TotalListQuantity: 40, OnListQuantity: 0, SoldQuantity: 40, IsActive: true}
	assert.ErrorIs(t, soldOutStillActive.CheckInvariant(), ErrInvariantViolation)

	soldOutClosed := Listing{TotalListQuantity: 40, OnListQuantity: 0, SoldQuantity: 40, IsActive: false}
	assert.NoError(t, soldOutClosed.CheckInvariant())
}

func TestTransactionStatusTerminal(t *testing.T) {
	assert.False(t, TxPending.Terminal())
	assert.True(t, TxCompleted.Terminal())
	assert.True(t, TxFailed.Terminal())
	assert.True(t, TxCancelled.Terminal())
}

func TestErrorCodeTaxonomy(t *testing.T) {
	assert.Equal(t, "insufficient_available_tokens", ErrorCode(ErrInsufficientAvailableTokens))
	assert.Equal(t, "concurrent_modification", ErrorCode(ErrConcurrentModification))
	assert.Equal(t, "internal_error", ErrorCode(assert.AnError))

	assert.True(t, IsRetryable(ErrConcurrentModification))
	assert.False(t, IsRetryable(ErrListingOverfill))
	assert.True(t, IsLedgerError(ErrNotFound))
	assert.False(t, IsLedgerError(assert.AnError))
}

func TestValidCurrency(t *testing.T) {
	assert.True(t, ValidCurrency(CurrencyUSD))
	assert.True(t, ValidCurrency(CurrencyAED))
	assert.False(t, ValidCurrency(Currency("BTC")))
	assert.False(t, ValidCurrency(Currency("")))
}

func TestValidActionType(t *testing.T) {
	assert.True(t, ValidActionType(ActionListing))
	assert.True(t, ValidActionType(ActionQuantityChanged))
	assert.False(t, ValidActionType(ActionType("minted")))
}
