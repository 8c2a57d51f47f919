package settlement

import (
	"context"
	"testing"

	"brickvault-backend/internal/application/history"
	"brickvault-backend/internal/application/holdings"
	"brickvault-backend/internal/application/listings"
	"brickvault-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type settlementFixture struct {
	svc      *Service
	holdings *holdings.Service
	listings *listings.Service
	db       *gorm.DB
	sellerID uuid.UUID
	buyerID  uuid.UUID
	listing  *domain.Listing
}

// seller holds 100 tokens, 40 of them listed at 5.00 USD
func setupSettlementTest(t *testing.T) *settlementFixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Holding{}, &domain.Listing{}, &domain.Transaction{},
		&domain.HoldingHistory{}, &domain.ListingHistory{},
	))
	hist := &history.Service{DB: db}
	holdSvc := &holdings.Service{DB: db, History: hist}
	listSvc := &listings.Service{DB: db, Holdings: holdSvc, History: hist}
	svc := &Service{DB: db, Holdings: holdSvc, Listings: listSvc}

	sellerID, buyerID, propertyID := uuid.New(), uuid.New(), uuid.New()
	_, err = holdSvc.Credit(context.Background(), propertyID, sellerID, 100, domain.ActionCreated)
	require.NoError(t, err)
	l, err := listSvc.Open(context.Background(), listings.OpenListingInput{
		SellerID:   sellerID,
		PropertyID: propertyID,
		Quantity:   40,
		Price:      decimal.NewFromFloat(5.00),
		Currency:   domain.CurrencyUSD,
	})
	require.NoError(t, err)

	return &settlementFixture{
		svc: svc, holdings: holdSvc, listings: listSvc, db: db,
		sellerID: sellerID, buyerID: buyerID, listing: l,
	}
}

func TestInitiate_CreatesPendingWithoutTouchingLedgers(t *testing.T) {
	f := setupSettlementTest(t)

	txn, err := f.svc.Initiate(context.Background(), f.buyerID, f.listing.ListingID, 25, "")
	require.NoError(t, err)
	assert.Equal(t, domain.TxPending, txn.Status)
	assert.Equal(t, f.sellerID, txn.SellerID)
	assert.True(t, txn.Amount.Equal(decimal.NewFromFloat(125.00)))
	assert.Equal(t, f.listing.PropertyID.String(), txn.TokenID)
	assert.Nil(t, txn.TxnHash)

	// ledgers untouched
	l, err := f.listings.GetByListingID(context.Background(), f.listing.ListingID)
	require.NoError(t, err)
	assert.Equal(t, int64(40), l.OnListQuantity)
	assert.Equal(t, int64(0), l.SoldQuantity)

	_, err = f.holdings.GetHolding(context.Background(), f.listing.PropertyID, f.buyerID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInitiate_Rejections(t *testing.T) {
	f := setupSettlementTest(t)

	_, err := f.svc.Initiate(context.Background(), f.buyerID, f.listing.ListingID, 0, "")
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)

	_, err = f.svc.Initiate(context.Background(), f.buyerID, f.listing.ListingID, 41, "")
	assert.ErrorIs(t, err, domain.ErrListingOverfill)

	_, err = f.svc.Initiate(context.Background(), f.sellerID, f.listing.ListingID, 10, "")
	assert.ErrorIs(t, err, ErrSelfTrade)

	_, err = f.svc.Initiate(context.Background(), f.buyerID, "TL-0-missing", 10, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.listings.Cancel(context.Background(), f.listing.ListingID, f.sellerID)
	require.NoError(t, err)
	_, err = f.svc.Initiate(context.Background(), f.buyerID, f.listing.ListingID, 10, "")
	assert.ErrorIs(t, err, domain.ErrListingInactive)
}

func TestCommit_SettlesAllThreeLedgers(t *testing.T) {
	f := setupSettlementTest(t)
	txn, err := f.svc.Initiate(context.Background(), f.buyerID, f.listing.ListingID, 25, "")
	require.NoError(t, err)

	done, err := f.svc.Commit(context.Background(), txn.TxID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxCompleted, done.Status)
	require.NotNil(t, done.TxnHash)
	assert.Contains(t, *done.TxnHash, "TXN-")

	l, err := f.listings.GetByListingID(context.Background(), f.listing.ListingID)
	require.NoError(t, err)
	assert.Equal(t, int64(15), l.OnListQuantity)
	assert.Equal(t, int64(25), l.SoldQuantity)
	assert.True(t, l.IsActive)

	seller, err := f.holdings.GetHolding(context.Background(), f.listing.PropertyID, f.sellerID)
	require.NoError(t, err)
	assert.Equal(t, int64(75), seller.TotalQuantity)
	assert.Equal(t, int64(60), seller.AvailableQuantity)
	assert.Equal(t, int64(15), seller.OnListQuantity)

	buyer, err := f.holdings.GetHolding(context.Background(), f.listing.PropertyID, f.buyerID)
	require.NoError(t, err)
	assert.Equal(t, int64(25), buyer.TotalQuantity)
	assert.Equal(t, int64(25), buyer.AvailableQuantity)

	// conservation: tokens moved, none minted
	assert.Equal(t, int64(100), seller.TotalQuantity+buyer.TotalQuantity)
}

func TestCommit_TagsAuditEntriesWithTransaction(t *testing.T) {
	f := setupSettlementTest(t)
	txn, err := f.svc.Initiate(context.Background(), f.buyerID, f.listing.ListingID, 25, "")
	require.NoError(t, err)
	_, err = f.svc.Commit(context.Background(), txn.TxID)
	require.NoError(t, err)

	var holdingEntries int64
	require.NoError(t, f.db.Model(&domain.HoldingHistory{}).
		Where("transaction_id = ?", txn.TxID).Count(&holdingEntries).Error)
	assert.Equal(t, int64(2), holdingEntries) // seller sale + buyer purchase

	var listingEntries int64
	require.NoError(t, f.db.Model(&domain.ListingHistory{}).
		Where("transaction_id = ?", txn.TxID).Count(&listingEntries).Error)
	assert.Equal(t, int64(1), listingEntries)
}

func TestCommit_SecondCommitIsRejected(t *testing.T) {
	f := setupSettlementTest(t)
	txn, err := f.svc.Initiate(context.Background(), f.buyerID, f.listing.ListingID, 25, "")
	require.NoError(t, err)
	_, err = f.svc.Commit(context.Background(), txn.TxID)
	require.NoError(t, err)

	_, err = f.svc.Commit(context.Background(), txn.TxID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransactionState)

	// no double movement
	buyer, err := f.holdings.GetHolding(context.Background(), f.listing.PropertyID, f.buyerID)
	require.NoError(t, err)
	assert.Equal(t, int64(25), buyer.TotalQuantity)
}

func TestCommit_CompetingClaimsOnSameListing(t *testing.T) {
	f := setupSettlementTest(t)

	// both claims pass initiation against the 40 on list
	first, err := f.svc.Initiate(context.Background(), f.buyerID, f.listing.ListingID, 30, "")
	require.NoError(t, err)
	otherBuyer := uuid.New()
	second, err := f.svc.Initiate(context.Background(), otherBuyer, f.listing.ListingID, 30, "")
	require.NoError(t, err)

	_, err = f.svc.Commit(context.Background(), first.TxID)
	require.NoError(t, err)

	// only 10 remain on list; the late commit fails and consumes its transaction
	_, err = f.svc.Commit(context.Background(), second.TxID)
	assert.ErrorIs(t, err, domain.ErrListingOverfill)

	got, err := f.svc.GetTransaction(context.Background(), second.TxID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxFailed, got.Status)
	require.NotNil(t, got.Note)
	assert.NotEmpty(t, *got.Note)

	// ledgers reflect exactly one settlement
	l, err := f.listings.GetByListingID(context.Background(), f.listing.ListingID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), l.OnListQuantity)
	assert.Equal(t, int64(30), l.SoldQuantity)

	_, err = f.holdings.GetHolding(context.Background(), f.listing.PropertyID, otherBuyer)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCommit_BusinessFailureRollsBackEverything(t *testing.T) {
	f := setupSettlementTest(t)
	txn, err := f.svc.Initiate(context.Background(), f.buyerID, f.listing.ListingID, 10, "")
	require.NoError(t, err)

	// listing goes away between initiation and commit
	_, err = f.listings.Cancel(context.Background(), f.listing.ListingID, f.sellerID)
	require.NoError(t, err)

	_, err = f.svc.Commit(context.Background(), txn.TxID)
	assert.ErrorIs(t, err, domain.ErrListingInactive)

	got, err := f.svc.GetTransaction(context.Background(), txn.TxID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxFailed, got.Status)

	// nothing moved: buyer has no holding, seller got the full release from cancel
	_, err = f.holdings.GetHolding(context.Background(), f.listing.PropertyID, f.buyerID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	seller, err := f.holdings.GetHolding(context.Background(), f.listing.PropertyID, f.sellerID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), seller.TotalQuantity)
	assert.Equal(t, int64(100), seller.AvailableQuantity)
}

func TestCommit_LaterSubStepFailureUndoesEarlierOnes(t *testing.T) {
	f := setupSettlementTest(t)
	txn, err := f.svc.Initiate(context.Background(), f.buyerID, f.listing.ListingID, 10, "")
	require.NoError(t, err)

	// desync the reservation: the seller pulls everything back to available
	// while the listing stays open, so the fill succeeds but settling the
	// seller's holding cannot
	_, err = f.holdings.Release(context.Background(), f.listing.PropertyID, f.sellerID, 40)
	require.NoError(t, err)

	_, err = f.svc.Commit(context.Background(), txn.TxID)
	assert.ErrorIs(t, err, domain.ErrInsufficientOnListTokens)

	// the fill that had already been applied rolled back with the rest
	l, err := f.listings.GetByListingID(context.Background(), f.listing.ListingID)
	require.NoError(t, err)
	assert.Equal(t, int64(40), l.OnListQuantity)
	assert.Equal(t, int64(0), l.SoldQuantity)
	assert.True(t, l.IsActive)

	seller, err := f.holdings.GetHolding(context.Background(), f.listing.PropertyID, f.sellerID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), seller.TotalQuantity)
	assert.Equal(t, int64(100), seller.AvailableQuantity)
	assert.Equal(t, int64(0), seller.OnListQuantity)

	_, err = f.holdings.GetHolding(context.Background(), f.listing.PropertyID, f.buyerID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := f.svc.GetTransaction(context.Background(), txn.TxID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxFailed, got.Status)
	require.NotNil(t, got.Note)
	assert.Equal(t, domain.ErrInsufficientOnListTokens.Error(), *got.Note)
}

func TestAbort_CancelsPendingWithoutLedgerMovement(t *testing.T) {
	f := setupSettlementTest(t)
	txn, err := f.svc.Initiate(context.Background(), f.buyerID, f.listing.ListingID, 10, "")
	require.NoError(t, err)

	aborted, err := f.svc.Abort(context.Background(), txn.TxID, "buyer changed their mind")
	require.NoError(t, err)
	assert.Equal(t, domain.TxCancelled, aborted.Status)
	require.NotNil(t, aborted.Note)
	assert.Equal(t, "buyer changed their mind", *aborted.Note)

	l, err := f.listings.GetByListingID(context.Background(), f.listing.ListingID)
	require.NoError(t, err)
	assert.Equal(t, int64(40), l.OnListQuantity)
}

func TestAbort_TerminalTransactionIsRejected(t *testing.T) {
	f := setupSettlementTest(t)
	txn, err := f.svc.Initiate(context.Background(), f.buyerID, f.listing.ListingID, 10, "")
	require.NoError(t, err)
	_, err = f.svc.Abort(context.Background(), txn.TxID, "")
	require.NoError(t, err)

	_, err = f.svc.Abort(context.Background(), txn.TxID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransactionState)
	_, err = f.svc.Commit(context.Background(), txn.TxID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransactionState)
}

func TestViewTransactions_BothSidesNewestFirst(t *testing.T) {
	f := setupSettlementTest(t)
	txn, err := f.svc.Initiate(context.Background(), f.buyerID, f.listing.ListingID, 10, "")
	require.NoError(t, err)
	_, err = f.svc.Commit(context.Background(), txn.TxID)
	require.NoError(t, err)

	asBuyer, err := f.svc.ViewTransactions(context.Background(), f.buyerID)
	require.NoError(t, err)
	require.Len(t, asBuyer, 1)

	asSeller, err := f.svc.ViewTransactions(context.Background(), f.sellerID)
	require.NoError(t, err)
	require.Len(t, asSeller, 1)
	assert.Equal(t, asBuyer[0].TxID, asSeller[0].TxID)

	stranger, err := f.svc.ViewTransactions(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Len(t, stranger, 0)
}
