package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Listing is an offer to sell part of a holding at a fixed price. The public
// listing_id ("TL-<millis>-<random>") is the identifier external callers use;
// the row keeps a uuid primary key for foreign references. Listings are soft
// deactivated (is_active=false), never deleted, so history stays addressable.
type Listing struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ListingID         string          `gorm:"column:listing_id;uniqueIndex;not null" json:"listing_id"`
	HoldingID         uuid.UUID       `gorm:"column:holding_id;type:uuid;not null" json:"holding_id"`
	PropertyID        uuid.UUID       `gorm:"column:property_id;type:uuid;not null" json:"property_id"`
	SellerID          uuid.UUID       `gorm:"column:seller_id;type:uuid;not null" json:"seller_id"`
	TotalListQuantity int64           `gorm:"column:total_list_quantity;not null" json:"total_list_quantity"`
	OnListQuantity    int64           `gorm:"column:on_list_quantity;not null" json:"on_list_quantity"`
	SoldQuantity      int64           `gorm:"column:sold_quantity;not null;default:0" json:"sold_quantity"`
	Price             decimal.Decimal `gorm:"column:price;type:decimal(18,2);not null" json:"price"`
	Currency          Currency        `gorm:"column:currency;type:varchar(3);not null" json:"currency"`
	IsActive          bool            `gorm:"column:is_active;not null;default:true" json:"is_active"`
	Version           int64           `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt         time.Time       `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt         time.Time       `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Listing) TableName() string {
	return "Listings"
}

func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// CheckInvariant validates the listing quantity invariants on the candidate
// state: on_list ≤ total, sold + on_list ≤ total, and a fully sold listing
// must be inactive with nothing left on list.
func (l *Listing) CheckInvariant() error {
	if l.TotalListQuantity < 1 || l.OnListQuantity < 0 || l.SoldQuantity < 0 {
		return ErrInvariantViolation
	}
	if l.OnListQuantity > l.TotalListQuantity {
		return ErrInvariantViolation
	}
	if l.SoldQuantity+l.OnListQuantity > l.TotalListQuantity {
		return ErrInvariantViolation
	}
	if l.SoldQuantity == l.TotalListQuantity && (l.OnListQuantity != 0 || l.IsActive) {
		return ErrInvariantViolation
	}
	return nil
}
