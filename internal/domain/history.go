package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ActionType tags each audit entry with the state transition that produced it.
type ActionType string

const (
	ActionCreated         ActionType = "created"
	ActionUpdated         ActionType = "updated"
	ActionTransfer        ActionType = "transfer"
	ActionListing         ActionType = "listing"
	ActionUnlisting       ActionType = "unlisting"
	ActionSale            ActionType = "sale"
	ActionPurchase        ActionType = "purchase"
	ActionPriceChanged    ActionType = "price_changed"
	ActionQuantityChanged ActionType = "quantity_changed"
	ActionSold            ActionType = "sold"
	ActionCancelled       ActionType = "cancelled"
	ActionCompleted       ActionType = "completed"
)

// ValidActionType reports whether a is one of the known action tags.
func ValidActionType(a ActionType) bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionTransfer, ActionListing,
		ActionUnlisting, ActionSale, ActionPurchase, ActionPriceChanged,
		ActionQuantityChanged, ActionSold, ActionCancelled, ActionCompleted:
		return true
	}
	return false
}

// HoldingHistory is an immutable snapshot of one holding state transition.
// Full before/after bucket quantities are kept so the holding can be
// reconstructed by replay. Never updated or deleted.
type HoldingHistory struct {
	EntryID       uuid.UUID        `gorm:"column:entry_id;type:uuid;primaryKey" json:"entry_id"`
	HoldingID     uuid.UUID        `gorm:"column:holding_id;type:uuid;not null;index" json:"holding_id"`
	PropertyID    uuid.UUID        `gorm:"column:property_id;type:uuid;not null;index" json:"property_id"`
	HolderID      uuid.UUID        `gorm:"column:holder_id;type:uuid;not null;index" json:"holder_id"`
	Action        ActionType       `gorm:"column:action;type:varchar(20);not null" json:"action"`
	PrevTotal     int64            `gorm:"column:prev_total;not null" json:"prev_total"`
	NewTotal      int64            `gorm:"column:new_total;not null" json:"new_total"`
	PrevAvailable int64            `gorm:"column:prev_available;not null" json:"prev_available"`
	NewAvailable  int64            `gorm:"column:new_available;not null" json:"new_available"`
	PrevOnList    int64            `gorm:"column:prev_on_list;not null" json:"prev_on_list"`
	NewOnList     int64            `gorm:"column:new_on_list;not null" json:"new_on_list"`
	TransactionID *uuid.UUID       `gorm:"column:transaction_id;type:uuid" json:"transaction_id"`
	Note          *string          `gorm:"column:note" json:"note"`
	Metadata      datatypes.JSON   `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt     time.Time        `gorm:"column:createdAt;index" json:"createdAt"`
}

func (HoldingHistory) TableName() string {
	return "HoldingHistories"
}

func (h *HoldingHistory) BeforeCreate(tx *gorm.DB) error {
	if h.EntryID == uuid.Nil {
		h.EntryID = uuid.New()
	}
	return nil
}

// ListingHistory is an immutable snapshot of one listing state transition,
// capturing quantity and price before/after. Never updated or deleted.
type ListingHistory struct {
	EntryID        uuid.UUID        `gorm:"column:entry_id;type:uuid;primaryKey" json:"entry_id"`
	ListingRowID   uuid.UUID        `gorm:"column:listing_row_id;type:uuid;not null;index" json:"listing_row_id"`
	ListingID      string           `gorm:"column:listing_id;not null;index" json:"listing_id"`
	PropertyID     uuid.UUID        `gorm:"column:property_id;type:uuid;not null;index" json:"property_id"`
	SellerID       uuid.UUID        `gorm:"column:seller_id;type:uuid;not null" json:"seller_id"`
	Action         ActionType       `gorm:"column:action;type:varchar(20);not null" json:"action"`
	PrevOnList     int64            `gorm:"column:prev_on_list;not null" json:"prev_on_list"`
	NewOnList      int64            `gorm:"column:new_on_list;not null" json:"new_on_list"`
	PrevSold       int64            `gorm:"column:prev_sold;not null" json:"prev_sold"`
	NewSold        int64            `gorm:"column:new_sold;not null" json:"new_sold"`
	PrevPrice      decimal.Decimal  `gorm:"column:prev_price;type:decimal(18,2);not null" json:"prev_price"`
	NewPrice       decimal.Decimal  `gorm:"column:new_price;type:decimal(18,2);not null" json:"new_price"`
	TransactionID  *uuid.UUID       `gorm:"column:transaction_id;type:uuid" json:"transaction_id"`
	Note           *string          `gorm:"column:note" json:"note"`
	Metadata       datatypes.JSON   `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt      time.Time        `gorm:"column:createdAt;index" json:"createdAt"`
}

func (ListingHistory) TableName() string {
	return "ListingHistories"
}

func (l *ListingHistory) BeforeCreate(tx *gorm.DB) error {
	if l.EntryID == uuid.Nil {
		l.EntryID = uuid.New()
	}
	return nil
}
