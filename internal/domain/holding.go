package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Holding is a holder's token balance for one property, split into
// available/on-list buckets. available + on_list never exceeds total; the
// gap, if any, is quantity settled out and awaiting reconciliation.
// Rows are never deleted, only zeroed.
type Holding struct {
	HoldingID         uuid.UUID `gorm:"column:holding_id;type:uuid;primaryKey" json:"holding_id"`
	PropertyID        uuid.UUID `gorm:"column:property_id;type:uuid;not null;uniqueIndex:idx_holdings_property_holder" json:"property_id"`
	HolderID          uuid.UUID `gorm:"column:holder_id;type:uuid;not null;uniqueIndex:idx_holdings_property_holder" json:"holder_id"`
	TotalQuantity     int64     `gorm:"column:total_quantity;not null;default:0" json:"total_quantity"`
	AvailableQuantity int64     `gorm:"column:available_quantity;not null;default:0" json:"available_quantity"`
	OnListQuantity    int64     `gorm:"column:on_list_quantity;not null;default:0" json:"on_list_quantity"`
	Version           int64     `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt         time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt         time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Holding) TableName() string {
	return "Holdings"
}

// BeforeCreate: never insert zero UUID for primary key; generate random when not set.
func (h *Holding) BeforeCreate(tx *gorm.DB) error {
	if h.HoldingID == uuid.Nil {
		h.HoldingID = uuid.New()
	}
	return nil
}

// CheckInvariant validates the holding quantity invariant. Mutators call this
// on the candidate state before writing anything.
func (h *Holding) CheckInvariant() error {
	if h.TotalQuantity < 0 || h.AvailableQuantity < 0 || h.OnListQuantity < 0 {
		return ErrInvariantViolation
	}
	if h.AvailableQuantity+h.OnListQuantity > h.TotalQuantity {
		return ErrInvariantViolation
	}
	return nil
}
