package models

import (
	"time"

	"github.com/google/uuid"
)

type Review struct {
	BaseModel
	BuyerID   uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_review_purchase" json:"buyer_id"`
	OrderID   uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_review_purchase" json:"order_id"`
	ProductID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_review_purchase;index" json:"product_id"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `json:"comment"`
}

type Favourite struct {
	BaseModel
	BuyerID   uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_favourite" json:"buyer_id"`
	ProductID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_favourite" json:"product_id"`
	Product   *Product  `json:"product,omitempty"`
	AddedAt   time.Time `json:"date_added"`
}
