package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/bizengo/internal/models"
	"github.com/example/bizengo/internal/utils"
)

type ReviewService struct {
	db *gorm.DB
}

func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db}
}

type ReviewInput struct {
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Rating    int
	Comment   string
}

// Create records a review once the buyer has a completed purchase of the product in that order.
func (s *ReviewService) Create(ctx context.Context, buyerID uuid.UUID, in ReviewInput) (*models.Review, error) {
	if in.OrderID == uuid.Nil || in.ProductID == uuid.Nil || in.Rating == 0 {
		return nil, newError(KindValidation, "order_id, product_id, and rating are required")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, newError(KindValidation, "Rating must be between 1 and 5")
	}

	db := s.db.WithContext(ctx)
	var purchased int64
	if err := db.Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.id = ? AND orders.buyer_id = ? AND order_items.product_id = ? AND orders.status IN ?",
			in.OrderID, buyerID, in.ProductID,
			[]models.OrderStatus{models.OrderPaid, models.OrderShipped, models.OrderDelivered}).
		Count(&purchased).Error; err != nil {
		return nil, err
	}
	if purchased == 0 {
		return nil, newError(KindForbidden, "You can only review products you have purchased")
	}

	review := models.Review{
		BuyerID:   buyerID,
		OrderID:   in.OrderID,
		ProductID: in.ProductID,
		Rating:    in.Rating,
		Comment:   strings.TrimSpace(in.Comment),
	}
	if err := db.Create(&review).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, newError(KindConflict, "You have already reviewed this product for this order")
		}
		return nil, err
	}
	return &review, nil
}

func (s *ReviewService) ListForProduct(ctx context.Context, productID uuid.UUID, pg utils.Pagination) ([]models.Review, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Review{}).Where("product_id = ?", productID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var reviews []models.Review
	if err := query.Order("created_at desc").Limit(pg.Limit).Offset(pg.Offset).Find(&reviews).Error; err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}
