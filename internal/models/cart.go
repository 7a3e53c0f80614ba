package models

import "github.com/google/uuid"

// Cart is the single cart owned by a buyer.
type Cart struct {
	BaseModel
	BuyerID uuid.UUID  `gorm:"type:uuid;uniqueIndex" json:"buyer_id"`
	Items   []CartItem `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

type CartItem struct {
	BaseModel
	CartID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_product" json:"cart_id"`
	ProductID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_product" json:"product_id"`
	Product   *Product  `json:"product,omitempty"`
	Quantity  int       `gorm:"not null" json:"quantity"`
}
