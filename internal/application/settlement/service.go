package settlement

import (
	"context"
	"errors"
	"time"

	"brickvault-backend/internal/application/holdings"
	"brickvault-backend/internal/application/listings"
	"brickvault-backend/internal/domain"
	"brickvault-backend/internal/pkg/ids"
	"brickvault-backend/internal/pkg/retry"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	maxRetries   = 3
	retryBackoff = 25 * time.Millisecond
)

// ErrSelfTrade marks a buyer attempting to buy from their own listing.
var ErrSelfTrade = errors.New("Buyer and seller cannot be the same holder")

// Service runs the transaction lifecycle: pending, then exactly one of
// completed, failed, or cancelled. Commit is all-or-nothing across the three
// ledger mutations it performs; if the database transaction does not commit,
// no ledger state moved and the record stays pending.
type Service struct {
	DB       *gorm.DB
	Holdings *holdings.Service
	Listings *listings.Service
}

// Initiate validates the requested quantity against the listing and creates a
// pending transaction. No ledger state moves until Commit.
func (s *Service) Initiate(ctx context.Context, buyerID uuid.UUID, listingID string, qty int64, tokenID string) (*domain.Transaction, error) {
	if qty < 1 {
		return nil, domain.ErrInvariantViolation
	}
	l, err := s.Listings.GetByListingID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !l.IsActive {
		return nil, domain.ErrListingInactive
	}
	if qty > l.OnListQuantity {
		return nil, domain.ErrListingOverfill
	}
	if buyerID == l.SellerID {
		return nil, ErrSelfTrade
	}
	if tokenID == "" {
		tokenID = l.PropertyID.String()
	}

	txn := &domain.Transaction{
		BuyerID:      buyerID,
		SellerID:     l.SellerID,
		ListingRowID: l.ID,
		ListingID:    l.ListingID,
		PropertyID:   l.PropertyID,
		TokenID:      tokenID,
		Quantity:     qty,
		Amount:       l.Price.Mul(decimal.NewFromInt(qty)),
		Currency:     l.Currency,
		Status:       domain.TxPending,
	}
	if err := s.DB.WithContext(ctx).Create(txn).Error; err != nil {
		return nil, err
	}
	return txn, nil
}

// Commit settles a pending transaction: fill the listing, settle the seller's
// holding, credit the buyer, and flip the record to completed with its hash,
// all in one database transaction. A business failure inside that unit rolls
// everything back and marks the transaction failed with the reason as its
// note. Version conflicts are retried up to the budget before surfacing.
func (s *Service) Commit(ctx context.Context, txID uuid.UUID) (*domain.Transaction, error) {
	txn, err := s.get(ctx, txID)
	if err != nil {
		return nil, err
	}
	if txn.Status != domain.TxPending {
		return nil, domain.ErrInvalidTransactionState
	}

	commitErr := retry.Do(ctx, maxRetries, retryBackoff, domain.IsRetryable, func() error {
		return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if _, err := s.Listings.FillTx(tx, txn.ListingRowID, txn.Quantity, &txn.TxID); err != nil {
				return err
			}
			if _, err := s.Holdings.SettleSaleTx(tx, txn.PropertyID, txn.SellerID, txn.Quantity, &txn.TxID); err != nil {
				return err
			}
			if _, err := s.Holdings.CreditTx(tx, txn.PropertyID, txn.BuyerID, txn.Quantity, domain.ActionPurchase, &txn.TxID); err != nil {
				return err
			}

			// Guarded status flip: a racing commit loses here and the whole
			// unit, ledger mutations included, rolls back.
			res := tx.Model(&domain.Transaction{}).
				Where("tx_id = ? AND status = ?", txn.TxID, domain.TxPending).
				Updates(map[string]interface{}{
					"status":   domain.TxCompleted,
					"txn_hash": ids.NewTxnHash(),
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return domain.ErrInvalidTransactionState
			}
			return nil
		})
	})

	if commitErr != nil {
		if isBusinessFailure(commitErr) {
			s.markFailed(ctx, txn.TxID, commitErr.Error())
		}
		return nil, commitErr
	}
	return s.get(ctx, txID)
}

// Abort cancels a pending transaction without touching the ledgers.
func (s *Service) Abort(ctx context.Context, txID uuid.UUID, reason string) (*domain.Transaction, error) {
	txn, err := s.get(ctx, txID)
	if err != nil {
		return nil, err
	}
	if txn.Status != domain.TxPending {
		return nil, domain.ErrInvalidTransactionState
	}
	res := s.DB.WithContext(ctx).Model(&domain.Transaction{}).
		Where("tx_id = ? AND status = ?", txID, domain.TxPending).
		Updates(map[string]interface{}{
			"status": domain.TxCancelled,
			"note":   reason,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrInvalidTransactionState
	}
	return s.get(ctx, txID)
}

// GetTransaction returns one transaction by id.
func (s *Service) GetTransaction(ctx context.Context, txID uuid.UUID) (*domain.Transaction, error) {
	return s.get(ctx, txID)
}

// ViewTransactions returns a holder's transactions on either side of a trade,
// newest first.
func (s *Service) ViewTransactions(ctx context.Context, holderID uuid.UUID) ([]domain.Transaction, error) {
	if holderID == uuid.Nil {
		return nil, errors.New("holder_id is required")
	}
	var txs []domain.Transaction
	if err := s.DB.WithContext(ctx).
		Where("buyer_id = ? OR seller_id = ?", holderID, holderID).
		Order(`"createdAt" DESC`).
		Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

func (s *Service) get(ctx context.Context, txID uuid.UUID) (*domain.Transaction, error) {
	var txn domain.Transaction
	if err := s.DB.WithContext(ctx).Where("tx_id = ?", txID).First(&txn).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &txn, nil
}

// isBusinessFailure: final ledger rejections that consume the transaction.
// Retryable conflicts and state races leave the record pending.
func isBusinessFailure(err error) bool {
	if !domain.IsLedgerError(err) {
		return false
	}
	if domain.IsRetryable(err) {
		return false
	}
	if errors.Is(err, domain.ErrInvalidTransactionState) || errors.Is(err, domain.ErrNotFound) {
		return false
	}
	return true
}

// markFailed records the failure reason on the transaction. Guarded on
// pending so a terminal record is never rewritten.
func (s *Service) markFailed(ctx context.Context, txID uuid.UUID, reason string) {
	res := s.DB.WithContext(ctx).Model(&domain.Transaction{}).
		Where("tx_id = ? AND status = ?", txID, domain.TxPending).
		Updates(map[string]interface{}{
			"status": domain.TxFailed,
			"note":   reason,
		})
	if res.Error != nil {
		log.Warn().Str("tx_id", txID.String()).Err(res.Error).Msg("could not mark transaction failed")
	} else if res.RowsAffected == 0 {
		log.Warn().Str("tx_id", txID.String()).Msg("transaction left pending state before failure could be recorded")
	}
}
