package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionStatus is the settlement state machine: pending moves to exactly
// one of the terminal states and never transitions again.
type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxFailed    TransactionStatus = "failed"
	TxCancelled TransactionStatus = "cancelled"
)

// Terminal reports whether the status allows no further transitions.
func (s TransactionStatus) Terminal() bool {
	return s == TxCompleted || s == TxFailed || s == TxCancelled
}

// Transaction records one settlement attempt between a buyer and the listing
// seller. Immutable once terminal, except the hash assigned at completion.
type Transaction struct {
	TxID         uuid.UUID         `gorm:"column:tx_id;type:uuid;primaryKey" json:"tx_id"`
	BuyerID      uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null" json:"buyer_id"`
	SellerID     uuid.UUID         `gorm:"column:seller_id;type:uuid;not null" json:"seller_id"`
	ListingRowID uuid.UUID         `gorm:"column:listing_row_id;type:uuid;not null" json:"listing_row_id"`
	ListingID    string            `gorm:"column:listing_id;not null" json:"listing_id"`
	PropertyID   uuid.UUID         `gorm:"column:property_id;type:uuid;not null" json:"property_id"`
	TokenID      string            `gorm:"column:token_id;not null" json:"token_id"`
	Quantity     int64             `gorm:"column:quantity;not null" json:"quantity"`
	Amount       decimal.Decimal   `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	Currency     Currency          `gorm:"column:currency;type:varchar(3);not null" json:"currency"`
	Status       TransactionStatus `gorm:"column:status;type:varchar(20);not null;default:'pending'" json:"status"`
	TxnHash      *string           `gorm:"column:txn_hash;uniqueIndex" json:"txn_hash"`
	Note         *string           `gorm:"column:note" json:"note"`
	CreatedAt    time.Time         `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt    time.Time         `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Transaction) TableName() string {
	return "Transactions"
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.TxID == uuid.Nil {
		t.TxID = uuid.New()
	}
	return nil
}
