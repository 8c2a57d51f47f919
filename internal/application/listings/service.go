package listings

import (
	"context"
	"errors"
	"time"

	"brickvault-backend/internal/application/history"
	"brickvault-backend/internal/application/holdings"
	"brickvault-backend/internal/domain"
	"brickvault-backend/internal/pkg/ids"
	"brickvault-backend/internal/pkg/retry"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	maxRetries   = 3
	retryBackoff = 25 * time.Millisecond
)

// ErrUnauthorized marks a seller operating on a listing that is not theirs.
var ErrUnauthorized = errors.New("Unauthorized listing edit")

// Service is the Listing Ledger. Quantity changes go through the Holding
// Ledger so the two stay consistent; every mutation appends one listing
// audit entry in the same transaction.
type Service struct {
	DB       *gorm.DB
	Holdings *holdings.Service
	History  *history.Service
}

type OpenListingInput struct {
	SellerID   uuid.UUID
	PropertyID uuid.UUID
	Quantity   int64
	Price      decimal.Decimal
	Currency   domain.Currency
}

// Open reserves the quantity on the seller's holding and creates the listing
// with everything on list.
func (s *Service) Open(ctx context.Context, in OpenListingInput) (*domain.Listing, error) {
	if in.Quantity < 1 {
		return nil, domain.ErrInvariantViolation
	}
	if !in.Price.IsPositive() {
		return nil, errors.New("Invalid price")
	}
	if !domain.ValidCurrency(in.Currency) {
		return nil, errors.New("Unsupported currency")
	}

	var out *domain.Listing
	err := s.withRetry(ctx, func() error {
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			h, err := s.Holdings.ReserveForListingTx(tx, in.PropertyID, in.SellerID, in.Quantity, nil)
			if err != nil {
				return err
			}

			listing := &domain.Listing{
				ListingID:         ids.NewListingID(),
				HoldingID:         h.HoldingID,
				PropertyID:        in.PropertyID,
				SellerID:          in.SellerID,
				TotalListQuantity: in.Quantity,
				OnListQuantity:    in.Quantity,
				Price:             in.Price,
				Currency:          in.Currency,
				IsActive:          true,
			}
			if err := tx.Create(listing).Error; err != nil {
				return err
			}

			entry := &domain.ListingHistory{
				ListingRowID: listing.ID,
				ListingID:    listing.ListingID,
				PropertyID:   listing.PropertyID,
				SellerID:     listing.SellerID,
				Action:       domain.ActionCreated,
				NewOnList:    listing.OnListQuantity,
				PrevPrice:    listing.Price,
				NewPrice:     listing.Price,
			}
			if err := s.History.AppendListingTx(tx, entry); err != nil {
				return err
			}
			out = listing
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Fill sells qty from an active listing. Standalone form; settlement uses
// FillTx inside its own commit unit.
func (s *Service) Fill(ctx context.Context, listingID string, qty int64) (*domain.Listing, error) {
	var out *domain.Listing
	err := s.withRetry(ctx, func() error {
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			l, err := s.findByListingID(tx, listingID)
			if err != nil {
				return err
			}
			filled, err := s.FillTx(tx, l.ID, qty, nil)
			if err != nil {
				return err
			}
			out = filled
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FillTx decrements on-list and increments sold by qty; a fully sold listing
// goes inactive with nothing left on list. Emits a "sold" entry carrying the
// price at sale.
func (s *Service) FillTx(tx *gorm.DB, listingRowID uuid.UUID, qty int64, txnID *uuid.UUID) (*domain.Listing, error) {
	if qty < 1 {
		return nil, domain.ErrInvariantViolation
	}
	l, err := s.findByRowID(tx, listingRowID)
	if err != nil {
		return nil, err
	}
	if !l.IsActive {
		return nil, domain.ErrListingInactive
	}
	if qty > l.OnListQuantity {
		return nil, domain.ErrListingOverfill
	}

	return s.apply(tx, l, domain.ActionSold, txnID, func(next *domain.Listing) {
		next.OnListQuantity -= qty
		next.SoldQuantity += qty
		if next.SoldQuantity == next.TotalListQuantity {
			next.OnListQuantity = 0
			next.IsActive = false
		}
	})
}

// Reprice changes the asking price of an active listing.
func (s *Service) Reprice(ctx context.Context, listingID string, sellerID uuid.UUID, newPrice decimal.Decimal) (*domain.Listing, error) {
	if !newPrice.IsPositive() {
		return nil, errors.New("Invalid price")
	}
	var out *domain.Listing
	err := s.withRetry(ctx, func() error {
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			l, err := s.findByListingID(tx, listingID)
			if err != nil {
				return err
			}
			if l.SellerID != sellerID {
				return ErrUnauthorized
			}
			if !l.IsActive {
				return domain.ErrListingInactive
			}
			changed, err := s.apply(tx, l, domain.ActionPriceChanged, nil, func(next *domain.Listing) {
				next.Price = newPrice
			})
			if err != nil {
				return err
			}
			out = changed
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Rescale changes the total quantity of an active listing. The unsold part
// stays on list, so the holding reservation moves by the difference. A new
// total below what is already sold is a hard error, never a silent truncation.
func (s *Service) Rescale(ctx context.Context, listingID string, sellerID uuid.UUID, newTotal int64) (*domain.Listing, error) {
	if newTotal < 1 {
		return nil, domain.ErrInvariantViolation
	}
	var out *domain.Listing
	err := s.withRetry(ctx, func() error {
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			l, err := s.findByListingID(tx, listingID)
			if err != nil {
				return err
			}
			if l.SellerID != sellerID {
				return ErrUnauthorized
			}
			if !l.IsActive {
				return domain.ErrListingInactive
			}
			if newTotal < l.SoldQuantity {
				return domain.ErrInvariantViolation
			}

			newOnList := newTotal - l.SoldQuantity
			delta := newOnList - l.OnListQuantity
			if delta > 0 {
				if _, err := s.Holdings.ReserveForListingTx(tx, l.PropertyID, l.SellerID, delta, nil); err != nil {
					return err
				}
			} else if delta < 0 {
				if _, err := s.Holdings.ReleaseTx(tx, l.PropertyID, l.SellerID, -delta, nil); err != nil {
					return err
				}
			}

			changed, err := s.apply(tx, l, domain.ActionQuantityChanged, nil, func(next *domain.Listing) {
				next.TotalListQuantity = newTotal
				next.OnListQuantity = newOnList
				if next.SoldQuantity == next.TotalListQuantity {
					next.OnListQuantity = 0
					next.IsActive = false
				}
			})
			if err != nil {
				return err
			}
			out = changed
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Cancel deactivates a listing and releases the unsold remainder back to the
// seller's available bucket.
func (s *Service) Cancel(ctx context.Context, listingID string, sellerID uuid.UUID) (*domain.Listing, error) {
	var out *domain.Listing
	err := s.withRetry(ctx, func() error {
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			l, err := s.findByListingID(tx, listingID)
			if err != nil {
				return err
			}
			if l.SellerID != sellerID {
				return ErrUnauthorized
			}
			if !l.IsActive {
				return domain.ErrListingInactive
			}

			if l.OnListQuantity > 0 {
				if _, err := s.Holdings.ReleaseTx(tx, l.PropertyID, l.SellerID, l.OnListQuantity, nil); err != nil {
					return err
				}
			}

			changed, err := s.apply(tx, l, domain.ActionCancelled, nil, func(next *domain.Listing) {
				next.OnListQuantity = 0
				next.IsActive = false
			})
			if err != nil {
				return err
			}
			out = changed
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetByListingID returns one listing by its public id.
func (s *Service) GetByListingID(ctx context.Context, listingID string) (*domain.Listing, error) {
	return s.findByListingID(s.DB.WithContext(ctx), listingID)
}

// ActiveByProperty returns a property's active listings, cheapest first.
func (s *Service) ActiveByProperty(ctx context.Context, propertyID uuid.UUID) ([]domain.Listing, error) {
	var listings []domain.Listing
	if err := s.DB.WithContext(ctx).
		Where("property_id = ? AND is_active = ?", propertyID, true).
		Order("price ASC").
		Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// HolderActiveListings returns a seller's active listings, newest first.
func (s *Service) HolderActiveListings(ctx context.Context, sellerID uuid.UUID) ([]domain.Listing, error) {
	if sellerID == uuid.Nil {
		return nil, errors.New("seller_id is required")
	}
	var listings []domain.Listing
	if err := s.DB.WithContext(ctx).
		Where("seller_id = ? AND is_active = ?", sellerID, true).
		Order(`"createdAt" DESC`).
		Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// HolderListings returns all of a seller's listings, newest first.
func (s *Service) HolderListings(ctx context.Context, sellerID uuid.UUID) ([]domain.Listing, error) {
	if sellerID == uuid.Nil {
		return nil, errors.New("seller_id is required")
	}
	var listings []domain.Listing
	if err := s.DB.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order(`"createdAt" DESC`).
		Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

func (s *Service) findByListingID(tx *gorm.DB, listingID string) (*domain.Listing, error) {
	var l domain.Listing
	if err := tx.Where("listing_id = ?", listingID).First(&l).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (s *Service) findByRowID(tx *gorm.DB, rowID uuid.UUID) (*domain.Listing, error) {
	var l domain.Listing
	if err := tx.Where("id = ?", rowID).First(&l).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

// apply writes the mutated listing guarded by the version column and appends
// the audit entry with before/after quantities and price.
func (s *Service) apply(tx *gorm.DB, l *domain.Listing, action domain.ActionType, txnID *uuid.UUID, mutate func(*domain.Listing)) (*domain.Listing, error) {
	next := *l
	mutate(&next)
	if err := next.CheckInvariant(); err != nil {
		return nil, err
	}

	res := tx.Model(&domain.Listing{}).
		Where("id = ? AND version = ?", l.ID, l.Version).
		Updates(map[string]interface{}{
			"total_list_quantity": next.TotalListQuantity,
			"on_list_quantity":    next.OnListQuantity,
			"sold_quantity":       next.SoldQuantity,
			"price":               next.Price,
			"is_active":           next.IsActive,
			"version":             l.Version + 1,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrConcurrentModification
	}
	next.Version = l.Version + 1

	entry := &domain.ListingHistory{
		ListingRowID:  l.ID,
		ListingID:     l.ListingID,
		PropertyID:    l.PropertyID,
		SellerID:      l.SellerID,
		Action:        action,
		PrevOnList:    l.OnListQuantity,
		NewOnList:     next.OnListQuantity,
		PrevSold:      l.SoldQuantity,
		NewSold:       next.SoldQuantity,
		PrevPrice:     l.Price,
		NewPrice:      next.Price,
		TransactionID: txnID,
	}
	if err := s.History.AppendListingTx(tx, entry); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *Service) withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(ctx, maxRetries, retryBackoff, domain.IsRetryable, fn)
}
