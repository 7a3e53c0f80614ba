package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/bizengo/internal/models"
)

type FavouriteService struct {
	db *gorm.DB
}

func NewFavouriteService(db *gorm.DB) *FavouriteService {
	return &FavouriteService{db: db}
}

func (s *FavouriteService) List(ctx context.Context, buyerID uuid.UUID) ([]ProductCard, error) {
	var favourites []models.Favourite
	if err := s.db.WithContext(ctx).
		Preload("Product").
		Preload("Product.Category").
		Preload("Product.Vendor").
		Preload("Product.Images", "is_deleted = ?", false).
		Where("buyer_id = ?", buyerID).
		Order("added_at desc").
		Find(&favourites).Error; err != nil {
		return nil, err
	}

	cards := make([]ProductCard, 0, len(favourites))
	for _, f := range favourites {
		if f.Product != nil && f.Product.Status != models.ProductDeleted {
			cards = append(cards, newProductCard(*f.Product))
		}
	}
	return cards, nil
}

// Add is idempotent; adding a product twice keeps one favourite.
func (s *FavouriteService) Add(ctx context.Context, buyerID, productID uuid.UUID) error {
	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.Product{}).
		Where("id = ? AND status = ?", productID, models.ProductActive).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return newError(KindNotFound, "Product not found")
	}

	fav := models.Favourite{BuyerID: buyerID, ProductID: productID, AddedAt: time.Now().UTC()}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&fav).Error
}

func (s *FavouriteService) Remove(ctx context.Context, buyerID, productID uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Where("buyer_id = ? AND product_id = ?", buyerID, productID).
		Delete(&models.Favourite{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return newError(KindNotFound, "Favourite not found")
	}
	return nil
}
