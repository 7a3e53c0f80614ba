package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductInactive ProductStatus = "inactive"
	ProductDeleted  ProductStatus = "deleted"
)

// ValidProductStatus reports whether s may be set on a product by its owner or an admin.
func ValidProductStatus(s ProductStatus) bool {
	switch s {
	case ProductActive, ProductInactive, ProductDeleted:
		return true
	}
	return false
}

type Category struct {
	BaseModel
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

type Product struct {
	BaseModel
	Name        string          `gorm:"not null" json:"product_name"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"product_price"`
	Description string          `json:"description"`
	Condition   string          `json:"condition"`
	// Stock is nil when the vendor does not track inventory for the product.
	Stock      *int           `json:"quantity"`
	Status     ProductStatus  `gorm:"index;not null" json:"status"`
	Visibility bool           `json:"visibility"`
	CategoryID *uuid.UUID     `gorm:"type:uuid;index" json:"category_id"`
	Category   *Category      `json:"category,omitempty"`
	VendorID   uuid.UUID      `gorm:"type:uuid;index" json:"vendor_id"`
	Vendor     *Vendor        `json:"vendor,omitempty"`
	Images     []ProductImage `json:"images,omitempty"`
}

// ActiveImageURLs returns URLs of images not marked deleted.
func (p *Product) ActiveImageURLs() []string {
	urls := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		if !img.IsDeleted {
			urls = append(urls, img.URL)
		}
	}
	return urls
}

type ProductImage struct {
	BaseModel
	ProductID uuid.UUID `gorm:"type:uuid;index" json:"product_id"`
	VendorID  uuid.UUID `gorm:"type:uuid;index" json:"vendor_id"`
	URL       string    `gorm:"not null" json:"image_url"`
	IsDeleted bool      `json:"is_deleted"`
}

type Storefront struct {
	BaseModel
	VendorID       uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"vendor_id"`
	BusinessName   string    `gorm:"not null" json:"business_name"`
	BusinessBanner []string  `gorm:"type:text;serializer:json" json:"business_banner"`
	Description    string    `json:"description"`
	EstablishedAt  time.Time `json:"established_at"`
	Rating         float64   `json:"ratings"`
	IsActive       bool      `json:"is_active"`
}
