package listings

import (
	"context"
	"testing"

	"brickvault-backend/internal/application/history"
	"brickvault-backend/internal/application/holdings"
	"brickvault-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupListingsTest(t *testing.T) (*Service, *holdings.Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Holding{}, &domain.Listing{}, &domain.Transaction{},
		&domain.HoldingHistory{}, &domain.ListingHistory{},
	))
	hist := &history.Service{DB: db}
	holdSvc := &holdings.Service{DB: db, History: hist}
	svc := &Service{DB: db, Holdings: holdSvc, History: hist}
	return svc, holdSvc, db
}

func openTestListing(t *testing.T, svc *Service, holdSvc *holdings.Service, sellerID uuid.UUID, credited, listed int64) *domain.Listing {
	t.Helper()
	propertyID := uuid.New()
	_, err := holdSvc.Credit(context.Background(), propertyID, sellerID, credited, domain.ActionCreated)
	require.NoError(t, err)
	l, err := svc.Open(context.Background(), OpenListingInput{
		SellerID:   sellerID,
		PropertyID: propertyID,
		Quantity:   listed,
		Price:      decimal.NewFromFloat(5.00),
		Currency:   domain.CurrencyUSD,
	})
	require.NoError(t, err)
	return l
}

func TestOpen_ReservesHoldingAndCreatesListing(t *testing.T) {
	svc, holdSvc, db := setupListingsTest(t)
	sellerID := uuid.New()

	l := openTestListing(t, svc, holdSvc, sellerID, 100, 40)
	assert.True(t, l.IsActive)
	assert.Equal(t, int64(40), l.TotalListQuantity)
	assert.Equal(t, int64(40), l.OnListQuantity)
	assert.Equal(t, int64(0), l.SoldQuantity)
	assert.Contains(t, l.ListingID, "TL-")

	h, err := holdSvc.GetHolding(context.Background(), l.PropertyID, sellerID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), h.TotalQuantity)
	assert.Equal(t, int64(60), h.AvailableQuantity)
	assert.Equal(t, int64(40), h.OnListQuantity)

	var entries []domain.ListingHistory
	require.NoError(t, db.Where("listing_id = ?", l.ListingID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionCreated, entries[0].Action)
}

func TestOpen_InsufficientAvailable(t *testing.T) {
	svc, holdSvc, db := setupListingsTest(t)
	sellerID, propertyID := uuid.New(), uuid.New()
	_, err := holdSvc.Credit(context.Background(), propertyID, sellerID, 30, domain.ActionCreated)
	require.NoError(t, err)

	_, err = svc.Open(context.Background(), OpenListingInput{
		SellerID:   sellerID,
		PropertyID: propertyID,
		Quantity:   31,
		Price:      decimal.NewFromFloat(5.00),
		Currency:   domain.CurrencyUSD,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientAvailableTokens)

	// the whole unit rolled back: no listing, no audit entries
	var count int64
	require.NoError(t, db.Model(&domain.Listing{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
	require.NoError(t, db.Model(&domain.ListingHistory{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestOpen_RejectsBadInputs(t *testing.T) {
	svc, _, _ := setupListingsTest(t)
	sellerID, propertyID := uuid.New(), uuid.New()

	_, err := svc.Open(context.Background(), OpenListingInput{
		SellerID: sellerID, PropertyID: propertyID,
		Quantity: 0, Price: decimal.NewFromFloat(5.00), Currency: domain.CurrencyUSD,
	})
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)

	_, err = svc.Open(context.Background(), OpenListingInput{
		SellerID: sellerID, PropertyID: propertyID,
		Quantity: 10, Price: decimal.Zero, Currency: domain.CurrencyUSD,
	})
	assert.Error(t, err)

	_, err = svc.Open(context.Background(), OpenListingInput{
		SellerID: sellerID, PropertyID: propertyID,
		Quantity: 10, Price: decimal.NewFromFloat(5.00), Currency: domain.Currency("XYZ"),
	})
	assert.Error(t, err)
}

func TestFill_PartialKeepsListingActive(t *testing.T) {
	svc, holdSvc, _ := setupListingsTest(t)
	l := openTestListing(t, svc, holdSvc, uuid.New(), 100, 40)

	filled, err := svc.Fill(context.Background(), l.ListingID, 15)
	require.NoError(t, err)
	assert.True(t, filled.IsActive)
	assert.Equal(t, int64(25), filled.OnListQuantity)
	assert.Equal(t, int64(15), filled.SoldQuantity)
}

func TestFill_FullDeactivatesListing(t *testing.T) {
	svc, holdSvc, _ := setupListingsTest(t)
	l := openTestListing(t, svc, holdSvc, uuid.New(), 100, 40)

	filled, err := svc.Fill(context.Background(), l.ListingID, 40)
	require.NoError(t, err)
	assert.False(t, filled.IsActive)
	assert.Equal(t, int64(0), filled.OnListQuantity)
	assert.Equal(t, int64(40), filled.SoldQuantity)

	_, err = svc.Fill(context.Background(), l.ListingID, 1)
	assert.ErrorIs(t, err, domain.ErrListingInactive)
}

func TestFill_Overfill(t *testing.T) {
	svc, holdSvc, _ := setupListingsTest(t)
	l := openTestListing(t, svc, holdSvc, uuid.New(), 100, 40)

	_, err := svc.Fill(context.Background(), l.ListingID, 41)
	assert.ErrorIs(t, err, domain.ErrListingOverfill)
}

func TestReprice_ChangesPriceAndAppendsEntry(t *testing.T) {
	svc, holdSvc, db := setupListingsTest(t)
	sellerID := uuid.New()
	l := openTestListing(t, svc, holdSvc, sellerID, 100, 40)

	changed, err := svc.Reprice(context.Background(), l.ListingID, sellerID, decimal.NewFromFloat(7.25))
	require.NoError(t, err)
	assert.True(t, changed.Price.Equal(decimal.NewFromFloat(7.25)))

	var entries []domain.ListingHistory
	require.NoError(t, db.Where("listing_id = ? AND action = ?", l.ListingID, domain.ActionPriceChanged).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].PrevPrice.Equal(decimal.NewFromFloat(5.00)))
	assert.True(t, entries[0].NewPrice.Equal(decimal.NewFromFloat(7.25)))
}

func TestReprice_WrongSeller(t *testing.T) {
	svc, holdSvc, _ := setupListingsTest(t)
	l := openTestListing(t, svc, holdSvc, uuid.New(), 100, 40)

	_, err := svc.Reprice(context.Background(), l.ListingID, uuid.New(), decimal.NewFromFloat(9.99))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRescale_UpReservesMoreFromHolding(t *testing.T) {
	svc, holdSvc, _ := setupListingsTest(t)
	sellerID := uuid.New()
	l := openTestListing(t, svc, holdSvc, sellerID, 100, 40)

	changed, err := svc.Rescale(context.Background(), l.ListingID, sellerID, 60)
	require.NoError(t, err)
	assert.Equal(t, int64(60), changed.TotalListQuantity)
	assert.Equal(t, int64(60), changed.OnListQuantity)

	h, err := holdSvc.GetHolding(context.Background(), l.PropertyID, sellerID)
	require.NoError(t, err)
	assert.Equal(t, int64(40), h.AvailableQuantity)
	assert.Equal(t, int64(60), h.OnListQuantity)
}

func TestRescale_DownReleasesToHolding(t *testing.T) {
	svc, holdSvc, _ := setupListingsTest(t)
	sellerID := uuid.New()
	l := openTestListing(t, svc, holdSvc, sellerID, 100, 40)
	_, err := svc.Fill(context.Background(), l.ListingID, 10)
	require.NoError(t, err)

	changed, err := svc.Rescale(context.Background(), l.ListingID, sellerID, 25)
	require.NoError(t, err)
	assert.Equal(t, int64(25), changed.TotalListQuantity)
	assert.Equal(t, int64(15), changed.OnListQuantity)
	assert.Equal(t, int64(10), changed.SoldQuantity)

	h, err := holdSvc.GetHolding(context.Background(), l.PropertyID, sellerID)
	require.NoError(t, err)
	// the 10 filled-but-unsettled tokens stay reserved until settlement
	assert.Equal(t, int64(75), h.AvailableQuantity)
	assert.Equal(t, int64(25), h.OnListQuantity)
}

func TestRescale_BelowSoldIsHardError(t *testing.T) {
	svc, holdSvc, _ := setupListingsTest(t)
	sellerID := uuid.New()
	l := openTestListing(t, svc, holdSvc, sellerID, 100, 40)
	_, err := svc.Fill(context.Background(), l.ListingID, 10)
	require.NoError(t, err)

	_, err = svc.Rescale(context.Background(), l.ListingID, sellerID, 9)
	assert.ErrorIs(t, err, domain.ErrInvariantViolation)

	// unchanged
	got, err := svc.GetByListingID(context.Background(), l.ListingID)
	require.NoError(t, err)
	assert.Equal(t, int64(40), got.TotalListQuantity)
}

func TestRescale_ToExactlySoldClosesListing(t *testing.T) {
	svc, holdSvc, _ := setupListingsTest(t)
	sellerID := uuid.New()
	l := openTestListing(t, svc, holdSvc, sellerID, 100, 40)
	_, err := svc.Fill(context.Background(), l.ListingID, 10)
	require.NoError(t, err)

	changed, err := svc.Rescale(context.Background(), l.ListingID, sellerID, 10)
	require.NoError(t, err)
	assert.False(t, changed.IsActive)
	assert.Equal(t, int64(0), changed.OnListQuantity)

	h, err := holdSvc.GetHolding(context.Background(), l.PropertyID, sellerID)
	require.NoError(t, err)
	assert.Equal(t, int64(90), h.AvailableQuantity)
	assert.Equal(t, int64(10), h.OnListQuantity)
}

func TestCancel_ReleasesUnsoldRemainder(t *testing.T) {
	svc, holdSvc, _ := setupListingsTest(t)
	sellerID := uuid.New()
	l := openTestListing(t, svc, holdSvc, sellerID, 100, 40)
	_, err := svc.Fill(context.Background(), l.ListingID, 10)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(context.Background(), l.ListingID, sellerID)
	require.NoError(t, err)
	assert.False(t, cancelled.IsActive)
	assert.Equal(t, int64(0), cancelled.OnListQuantity)
	assert.Equal(t, int64(10), cancelled.SoldQuantity)

	h, err := holdSvc.GetHolding(context.Background(), l.PropertyID, sellerID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), h.TotalQuantity)
	assert.Equal(t, int64(90), h.AvailableQuantity)
	assert.Equal(t, int64(10), h.OnListQuantity)
}

func TestCancel_AlreadyInactive(t *testing.T) {
	svc, holdSvc, _ := setupListingsTest(t)
	sellerID := uuid.New()
	l := openTestListing(t, svc, holdSvc, sellerID, 100, 40)
	_, err := svc.Cancel(context.Background(), l.ListingID, sellerID)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), l.ListingID, sellerID)
	assert.ErrorIs(t, err, domain.ErrListingInactive)
}

func TestActiveByProperty_CheapestFirst(t *testing.T) {
	svc, holdSvc, _ := setupListingsTest(t)
	sellerID, propertyID := uuid.New(), uuid.New()
	_, err := holdSvc.Credit(context.Background(), propertyID, sellerID, 100, domain.ActionCreated)
	require.NoError(t, err)

	for _, price := range []float64{9.00, 3.00, 6.00} {
		_, err := svc.Open(context.Background(), OpenListingInput{
			SellerID: sellerID, PropertyID: propertyID,
			Quantity: 10, Price: decimal.NewFromFloat(price), Currency: domain.CurrencyUSD,
		})
		require.NoError(t, err)
	}

	listings, err := svc.ActiveByProperty(context.Background(), propertyID)
	require.NoError(t, err)
	require.Len(t, listings, 3)
	assert.True(t, listings[0].Price.Equal(decimal.NewFromFloat(3.00)))
	assert.True(t, listings[2].Price.Equal(decimal.NewFromFloat(9.00)))
}
