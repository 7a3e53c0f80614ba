package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/bizengo/internal/models"
)

// CartService manages the single cart each buyer owns.
type CartService struct {
	db *gorm.DB
}

func NewCartService(db *gorm.DB) *CartService {
	return &CartService{db: db}
}

type CartLine struct {
	ItemID         uuid.UUID       `json:"cart_item_id"`
	ProductID      uuid.UUID       `json:"product_id"`
	ProductName    string          `json:"product_name"`
	Price          decimal.Decimal `json:"product_price"`
	Quantity       int             `json:"quantity"`
	LineTotal      decimal.Decimal `json:"line_total"`
	AvailableStock *int            `json:"available_stock"`
	Images         []string        `json:"product_images"`
}

type CartView struct {
	CartID *uuid.UUID      `json:"cart_id"`
	Items  []CartLine      `json:"cart_items"`
	Total  decimal.Decimal `json:"total"`
}

func (s *CartService) Get(ctx context.Context, buyerID uuid.UUID) (*CartView, error) {
	view := &CartView{Items: []CartLine{}, Total: decimal.Zero}

	var cart models.Cart
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		Preload("Items.Product").
		Preload("Items.Product.Images").
		Where("buyer_id = ?", buyerID).
		Take(&cart).Error
	if isNotFound(err) {
		return view, nil
	}
	if err != nil {
		return nil, err
	}

	view.CartID = &cart.ID
	for _, item := range cart.Items {
		if item.Product == nil {
			continue
		}
		line := CartLine{
			ItemID:         item.ID,
			ProductID:      item.ProductID,
			ProductName:    item.Product.Name,
			Price:          item.Product.Price,
			Quantity:       item.Quantity,
			LineTotal:      item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
			AvailableStock: item.Product.Stock,
			Images:         item.Product.ActiveImageURLs(),
		}
		view.Total = view.Total.Add(line.LineTotal)
		view.Items = append(view.Items, line)
	}
	return view, nil
}

// AddItem creates the cart on first use and increments quantity when the product is already present.
func (s *CartService) AddItem(ctx context.Context, buyerID, productID uuid.UUID, quantity int) (*models.CartItem, error) {
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return nil, newError(KindValidation, "Invalid quantity")
	}

	var item models.CartItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Where("id = ? AND status = ?", productID, models.ProductActive).Take(&product).Error; err != nil {
			if isNotFound(err) {
				return newError(KindNotFound, "Product not found")
			}
			return err
		}

		cart := models.Cart{BuyerID: buyerID}
		if err := tx.Where(models.Cart{BuyerID: buyerID}).FirstOrCreate(&cart).Error; err != nil {
			return err
		}

		item = models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: quantity}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("cart_items.quantity + ?", quantity),
				"updated_at": time.Now().UTC(),
			}),
		}).Create(&item).Error; err != nil {
			return err
		}

		// The insert may have merged into an existing row, so the generated id is not the stored one.
		var saved models.CartItem
		if err := tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).Take(&saved).Error; err != nil {
			return err
		}
		item = saved
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "Failed to add item to cart")
	}
	return &item, nil
}

// ownedItem scopes a cart item lookup to the buyer's cart; foreign items are reported as missing.
func (s *CartService) ownedItem(tx *gorm.DB, buyerID, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := tx.Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("cart_items.id = ? AND carts.buyer_id = ?", itemID, buyerID).
		Take(&item).Error
	if isNotFound(err) {
		return nil, newError(KindNotFound, "Cart item not found")
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *CartService) UpdateItem(ctx context.Context, buyerID, itemID uuid.UUID, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, newError(KindValidation, "Invalid quantity")
	}
	db := s.db.WithContext(ctx)
	item, err := s.ownedItem(db, buyerID, itemID)
	if err != nil {
		return nil, err
	}
	if err := db.Model(item).Update("quantity", quantity).Error; err != nil {
		return nil, err
	}
	item.Quantity = quantity
	return item, nil
}

func (s *CartService) RemoveItem(ctx context.Context, buyerID, itemID uuid.UUID) error {
	db := s.db.WithContext(ctx)
	item, err := s.ownedItem(db, buyerID, itemID)
	if err != nil {
		return err
	}
	return db.Delete(item).Error
}

// Clear removes every line; the cart row itself is kept.
func (s *CartService) Clear(ctx context.Context, buyerID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("cart_id IN (?)", s.db.Model(&models.Cart{}).Select("id").Where("buyer_id = ?", buyerID)).
		Delete(&models.CartItem{}).Error
}
