package history

import (
	"context"
	"errors"
	"time"

	"brickvault-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrMalformedEntry is the only rejection a recorder produces. Business state
// is never a reason to refuse an audit append.
var ErrMalformedEntry = errors.New("Malformed history entry")

// Service is the append-only audit recorder for both ledgers, plus the
// replay/projection queries served from the trails.
type Service struct {
	DB *gorm.DB
}

// AppendHoldingTx appends a holding audit entry inside the caller's
// transaction, so a mutation and its trail commit or roll back together.
func (s *Service) AppendHoldingTx(tx *gorm.DB, e *domain.HoldingHistory) error {
	if e == nil || e.HoldingID == uuid.Nil || e.PropertyID == uuid.Nil || e.HolderID == uuid.Nil {
		return ErrMalformedEntry
	}
	if !domain.ValidActionType(e.Action) {
		return ErrMalformedEntry
	}
	return tx.Create(e).Error
}

// AppendListingTx appends a listing audit entry inside the caller's transaction.
func (s *Service) AppendListingTx(tx *gorm.DB, e *domain.ListingHistory) error {
	if e == nil || e.ListingRowID == uuid.Nil || e.ListingID == "" || e.PropertyID == uuid.Nil {
		return ErrMalformedEntry
	}
	if !domain.ValidActionType(e.Action) {
		return ErrMalformedEntry
	}
	return tx.Create(e).Error
}

// ByListing returns the full trail for a public listing id, oldest first.
func (s *Service) ByListing(ctx context.Context, listingID string) ([]domain.ListingHistory, error) {
	var entries []domain.ListingHistory
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).Order(`"createdAt" ASC`).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ByHolding returns the full trail for one holding, oldest first.
func (s *Service) ByHolding(ctx context.Context, holdingID uuid.UUID) ([]domain.HoldingHistory, error) {
	var entries []domain.HoldingHistory
	if err := s.DB.WithContext(ctx).Where("holding_id = ?", holdingID).Order(`"createdAt" ASC`).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ByHolder returns all holding entries for a holder across properties, oldest first.
func (s *Service) ByHolder(ctx context.Context, holderID uuid.UUID) ([]domain.HoldingHistory, error) {
	var entries []domain.HoldingHistory
	if err := s.DB.WithContext(ctx).Where("holder_id = ?", holderID).Order(`"createdAt" ASC`).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// HoldingsByProperty returns the holding trail for a property, oldest first.
func (s *Service) HoldingsByProperty(ctx context.Context, propertyID uuid.UUID) ([]domain.HoldingHistory, error) {
	var entries []domain.HoldingHistory
	if err := s.DB.WithContext(ctx).Where("property_id = ?", propertyID).Order(`"createdAt" ASC`).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ListingsByProperty returns the listing trail for a property, oldest first.
func (s *Service) ListingsByProperty(ctx context.Context, propertyID uuid.UUID) ([]domain.ListingHistory, error) {
	var entries []domain.ListingHistory
	if err := s.DB.WithContext(ctx).Where("property_id = ?", propertyID).Order(`"createdAt" ASC`).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// PricePoint is one step of a listing's price-over-time projection. Delta is
// the change relative to the previous entry of the same listing.
type PricePoint struct {
	At    time.Time       `json:"at"`
	Price decimal.Decimal `json:"price"`
	Delta decimal.Decimal `json:"delta"`
}

// PriceSeries projects price over time for a listing, oldest first.
func (s *Service) PriceSeries(ctx context.Context, listingID string) ([]PricePoint, error) {
	entries, err := s.ByListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	points := make([]PricePoint, 0, len(entries))
	prev := decimal.Zero
	for i, e := range entries {
		delta := e.NewPrice.Sub(prev)
		if i == 0 {
			delta = decimal.Zero
		}
		points = append(points, PricePoint{At: e.CreatedAt, Price: e.NewPrice, Delta: delta})
		prev = e.NewPrice
	}
	return points, nil
}

// QuantityPoint is one step of a holding's quantity-over-time projection.
// Delta is the total-quantity change relative to the previous entry.
type QuantityPoint struct {
	At        time.Time `json:"at"`
	Total     int64     `json:"total"`
	Available int64     `json:"available"`
	OnList    int64     `json:"on_list"`
	Delta     int64     `json:"delta"`
}

// QuantitySeries projects a holding's bucket quantities over time, oldest first.
func (s *Service) QuantitySeries(ctx context.Context, holdingID uuid.UUID) ([]QuantityPoint, error) {
	entries, err := s.ByHolding(ctx, holdingID)
	if err != nil {
		return nil, err
	}
	points := make([]QuantityPoint, 0, len(entries))
	var prev int64
	for i, e := range entries {
		delta := e.NewTotal - prev
		if i == 0 {
			delta = e.NewTotal - e.PrevTotal
		}
		points = append(points, QuantityPoint{
			At:        e.CreatedAt,
			Total:     e.NewTotal,
			Available: e.NewAvailable,
			OnList:    e.NewOnList,
			Delta:     delta,
		})
		prev = e.NewTotal
	}
	return points, nil
}

// ReplayedHolding is the state reconstructed by folding a holding's trail.
type ReplayedHolding struct {
	HoldingID         uuid.UUID `json:"holding_id"`
	TotalQuantity     int64     `json:"total_quantity"`
	AvailableQuantity int64     `json:"available_quantity"`
	OnListQuantity    int64     `json:"on_list_quantity"`
	Entries           int       `json:"entries"`
}

// Replay folds every entry of a holding's trail from creation and returns the
// reconstructed state. A gap between one entry's after-snapshot and the next
// entry's before-snapshot is a reportable inconsistency.
func (s *Service) Replay(ctx context.Context, holdingID uuid.UUID) (*ReplayedHolding, error) {
	entries, err := s.ByHolding(ctx, holdingID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, domain.ErrNotFound
	}
	state := ReplayedHolding{HoldingID: holdingID, Entries: len(entries)}
	for i, e := range entries {
		if i > 0 && (e.PrevTotal != state.TotalQuantity || e.PrevAvailable != state.AvailableQuantity || e.PrevOnList != state.OnListQuantity) {
			return nil, errors.New("Audit trail is not contiguous for holding " + holdingID.String())
		}
		state.TotalQuantity = e.NewTotal
		state.AvailableQuantity = e.NewAvailable
		state.OnListQuantity = e.NewOnList
	}
	return &state, nil
}
