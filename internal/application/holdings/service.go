package holdings

import (
	"context"
	"errors"
	"time"

	"brickvault-backend/internal/application/history"
	"brickvault-backend/internal/domain"
	"brickvault-backend/internal/pkg/retry"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	maxRetries   = 3
	retryBackoff = 25 * time.Millisecond
)

// Service is the Holding Ledger: the only code path allowed to mutate holding
// quantities. Every mutator is one transaction with an optimistic version
// check and exactly one audit entry.
type Service struct {
	DB      *gorm.DB
	History *history.Service
}

// creditActions are the entry points for tokens into a holding.
func creditAction(a domain.ActionType) bool {
	return a == domain.ActionCreated || a == domain.ActionPurchase || a == domain.ActionTransfer
}

// Credit increases total and available by qty. Used on issuance and on
// settlement to a buyer. Creates the holding row when it does not exist yet.
func (s *Service) Credit(ctx context.Context, propertyID, holderID uuid.UUID, qty int64, action domain.ActionType) (*domain.Holding, error) {
	var out *domain.Holding
	err := s.withRetry(ctx, func() error {
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			h, err := s.CreditTx(tx, propertyID, holderID, qty, action, nil)
			out = h
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReserveForListing moves qty from available to on-list.
func (s *Service) ReserveForListing(ctx context.Context, propertyID, holderID uuid.UUID, qty int64) (*domain.Holding, error) {
	var out *domain.Holding
	err := s.withRetry(ctx, func() error {
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			h, err := s.ReserveForListingTx(tx, propertyID, holderID, qty, nil)
			out = h
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Release moves qty back from on-list to available (cancel / unlisting).
func (s *Service) Release(ctx context.Context, propertyID, holderID uuid.UUID, qty int64) (*domain.Holding, error) {
	var out *domain.Holding
	err := s.withRetry(ctx, func() error {
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			h, err := s.ReleaseTx(tx, propertyID, holderID, qty, nil)
			out = h
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SettleSale removes qty from a seller's on-list and total buckets after a fill.
func (s *Service) SettleSale(ctx context.Context, propertyID, holderID uuid.UUID, qty int64) (*domain.Holding, error) {
	var out *domain.Holding
	err := s.withRetry(ctx, func() error {
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			h, err := s.SettleSaleTx(tx, propertyID, holderID, qty, nil)
			out = h
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreditTx is the transaction-scoped form of Credit, for callers (the
// settlement protocol) composing several ledger mutations into one unit.
func (s *Service) CreditTx(tx *gorm.DB, propertyID, holderID uuid.UUID, qty int64, action domain.ActionType, txnID *uuid.UUID) (*domain.Holding, error) {
	if qty <= 0 || !creditAction(action) {
		return nil, domain.ErrInvariantViolation
	}

	var h domain.Holding
	err := tx.Where("property_id = ? AND holder_id = ?", propertyID, holderID).First(&h).Error
	if err == gorm.ErrRecordNotFound {
		h = domain.Holding{
			PropertyID:        propertyID,
			HolderID:          holderID,
			TotalQuantity:     qty,
			AvailableQuantity: qty,
		}
		if err := tx.Create(&h).Error; err != nil {
			return nil, err
		}
		entry := &domain.HoldingHistory{
			HoldingID:     h.HoldingID,
			PropertyID:    propertyID,
			HolderID:      holderID,
			Action:        action,
			NewTotal:      qty,
			NewAvailable:  qty,
			TransactionID: txnID,
		}
		if err := s.History.AppendHoldingTx(tx, entry); err != nil {
			return nil, err
		}
		return &h, nil
	}
	if err != nil {
		return nil, err
	}

	return s.apply(tx, &h, action, txnID, func(next *domain.Holding) error {
		next.TotalQuantity += qty
		next.AvailableQuantity += qty
		return nil
	})
}

// ReserveForListingTx is the transaction-scoped form of ReserveForListing.
func (s *Service) ReserveForListingTx(tx *gorm.DB, propertyID, holderID uuid.UUID, qty int64, txnID *uuid.UUID) (*domain.Holding, error) {
	if qty <= 0 {
		return nil, domain.ErrInvariantViolation
	}
	h, err := s.find(tx, propertyID, holderID)
	if err != nil {
		return nil, err
	}
	return s.apply(tx, h, domain.ActionListing, txnID, func(next *domain.Holding) error {
		if next.AvailableQuantity < qty {
			return domain.ErrInsufficientAvailableTokens
		}
		next.AvailableQuantity -= qty
		next.OnListQuantity += qty
		return nil
	})
}

// ReleaseTx is the transaction-scoped form of Release.
func (s *Service) ReleaseTx(tx *gorm.DB, propertyID, holderID uuid.UUID, qty int64, txnID *uuid.UUID) (*domain.Holding, error) {
	if qty <= 0 {
		return nil, domain.ErrInvariantViolation
	}
	h, err := s.find(tx, propertyID, holderID)
	if err != nil {
		return nil, err
	}
	return s.apply(tx, h, domain.ActionUnlisting, txnID, func(next *domain.Holding) error {
		if next.OnListQuantity < qty {
			return domain.ErrInsufficientOnListTokens
		}
		next.OnListQuantity -= qty
		next.AvailableQuantity += qty
		return nil
	})
}

// SettleSaleTx is the transaction-scoped form of SettleSale.
func (s *Service) SettleSaleTx(tx *gorm.DB, propertyID, holderID uuid.UUID, qty int64, txnID *uuid.UUID) (*domain.Holding, error) {
	if qty <= 0 {
		return nil, domain.ErrInvariantViolation
	}
	h, err := s.find(tx, propertyID, holderID)
	if err != nil {
		return nil, err
	}
	return s.apply(tx, h, domain.ActionSale, txnID, func(next *domain.Holding) error {
		if next.OnListQuantity < qty {
			return domain.ErrInsufficientOnListTokens
		}
		next.OnListQuantity -= qty
		next.TotalQuantity -= qty
		return nil
	})
}

// GetHolding returns one (property, holder) record.
func (s *Service) GetHolding(ctx context.Context, propertyID, holderID uuid.UUID) (*domain.Holding, error) {
	var h domain.Holding
	if err := s.DB.WithContext(ctx).Where("property_id = ? AND holder_id = ?", propertyID, holderID).First(&h).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

// ViewHoldings returns all holdings for a holder.
func (s *Service) ViewHoldings(ctx context.Context, holderID uuid.UUID) ([]domain.Holding, error) {
	if holderID == uuid.Nil {
		return nil, errors.New("holder_id is required")
	}
	var holdings []domain.Holding
	if err := s.DB.WithContext(ctx).Where("holder_id = ?", holderID).Order(`"createdAt" ASC`).Find(&holdings).Error; err != nil {
		return nil, err
	}
	return holdings, nil
}

func (s *Service) find(tx *gorm.DB, propertyID, holderID uuid.UUID) (*domain.Holding, error) {
	var h domain.Holding
	if err := tx.Where("property_id = ? AND holder_id = ?", propertyID, holderID).First(&h).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

// apply runs mutate on a copy, checks the invariant, writes the new
// quantities guarded by the version column, and appends the audit entry.
// A lost version race surfaces as ErrConcurrentModification.
func (s *Service) apply(tx *gorm.DB, h *domain.Holding, action domain.ActionType, txnID *uuid.UUID, mutate func(*domain.Holding) error) (*domain.Holding, error) {
	next := *h
	if err := mutate(&next); err != nil {
		return nil, err
	}
	if err := next.CheckInvariant(); err != nil {
		return nil, err
	}

	res := tx.Model(&domain.Holding{}).
		Where("holding_id = ? AND version = ?", h.HoldingID, h.Version).
		Updates(map[string]interface{}{
			"total_quantity":     next.TotalQuantity,
			"available_quantity": next.AvailableQuantity,
			"on_list_quantity":   next.OnListQuantity,
			"version":            h.Version + 1,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrConcurrentModification
	}
	next.Version = h.Version + 1

	entry := &domain.HoldingHistory{
		HoldingID:     h.HoldingID,
		PropertyID:    h.PropertyID,
		HolderID:      h.HolderID,
		Action:        action,
		PrevTotal:     h.TotalQuantity,
		NewTotal:      next.TotalQuantity,
		PrevAvailable: h.AvailableQuantity,
		NewAvailable:  next.AvailableQuantity,
		PrevOnList:    h.OnListQuantity,
		NewOnList:     next.OnListQuantity,
		TransactionID: txnID,
	}
	if err := s.History.AppendHoldingTx(tx, entry); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *Service) withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(ctx, maxRetries, retryBackoff, domain.IsRetryable, fn)
}
