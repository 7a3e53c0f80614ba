package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/bizengo/internal/models"
	"github.com/example/bizengo/internal/utils"
)

// OrderService creates orders and drives their status machine.
type OrderService struct {
	db       *gorm.DB
	notifier *Notifier
	log      zerolog.Logger
}

func NewOrderService(db *gorm.DB, notifier *Notifier, log zerolog.Logger) *OrderService {
	return &OrderService{db: db, notifier: notifier, log: log.With().Str("component", "orders").Logger()}
}

type LineRequest struct {
	ProductID uuid.UUID
	Quantity  int
}

type CreateOrderInput struct {
	// Items takes precedence over the buyer's cart when non-empty.
	Items     []LineRequest
	Reference string
}

// Create places an order from explicit lines or from the buyer's cart. Either
// every line is accepted, stock decremented and the order persisted, or nothing is.
func (s *OrderService) Create(ctx context.Context, buyerID uuid.UUID, in CreateOrderInput) (*models.Order, error) {
	db := s.db.WithContext(ctx)

	if len(in.Items) == 0 {
		var inCart int64
		if err := db.Model(&models.CartItem{}).
			Joins("JOIN carts ON carts.id = cart_items.cart_id").
			Where("carts.buyer_id = ?", buyerID).
			Count(&inCart).Error; err != nil {
			return nil, err
		}
		if inCart == 0 {
			return nil, newError(KindValidation, "No items in order")
		}
	}

	var reference *string
	if ref := strings.TrimSpace(in.Reference); ref != "" {
		reference = &ref
	}

	var buyer models.Buyer
	if err := db.Take(&buyer, "id = ?", buyerID).Error; err != nil {
		if isNotFound(err) {
			return nil, newError(KindNotFound, "Buyer not found")
		}
		return nil, err
	}
	if buyer.Status == models.AccountSuspended {
		return nil, newError(KindForbidden, "Account is suspended")
	}

	order := models.Order{
		BuyerID:     buyerID,
		TotalAmount: decimal.Zero,
		Status:      models.OrderPending,
		Reference:   reference,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		// Cart lines are read inside the unit of work; only the rows read here are removed on success.
		lines := in.Items
		var orderedCartItems []uuid.UUID
		if len(lines) == 0 {
			var items []models.CartItem
			if err := tx.Joins("JOIN carts ON carts.id = cart_items.cart_id").
				Where("carts.buyer_id = ?", buyerID).
				Order("cart_items.created_at asc").
				Find(&items).Error; err != nil {
				return err
			}
			if len(items) == 0 {
				return newError(KindValidation, "No items in order")
			}
			for _, item := range items {
				lines = append(lines, LineRequest{ProductID: item.ProductID, Quantity: item.Quantity})
				orderedCartItems = append(orderedCartItems, item.ID)
			}
		}

		if err := tx.Create(&order).Error; err != nil {
			if isDuplicateKey(err) {
				return newError(KindConflict, "Payment reference already in use")
			}
			return err
		}

		total := decimal.Zero
		for _, line := range lines {
			qty := line.Quantity
			if qty < 1 {
				qty = 1
			}

			var product models.Product
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ? AND status = ?", line.ProductID, models.ProductActive).
				Take(&product).Error
			if isNotFound(err) {
				return newError(KindNotFound, "Product with id %s not found", line.ProductID)
			}
			if err != nil {
				return err
			}

			if product.Stock != nil {
				if qty > *product.Stock {
					return newError(KindInsufficientStock, "Only %d of '%s' available", *product.Stock, product.Name)
				}
				res := tx.Model(&models.Product{}).
					Where("id = ? AND stock >= ?", product.ID, qty).
					Update("stock", gorm.Expr("stock - ?", qty))
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					return newError(KindInsufficientStock, "Only %d of '%s' available", *product.Stock, product.Name)
				}
			}

			productID := product.ID
			item := models.OrderItem{
				OrderID:     order.ID,
				ProductID:   &productID,
				VendorID:    product.VendorID,
				ProductName: product.Name,
				Quantity:    qty,
				Price:       product.Price,
				Status:      models.ItemPending,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			total = total.Add(item.LineTotal())
			order.Items = append(order.Items, item)
		}

		order.TotalAmount = total
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Update("total_amount", total).Error; err != nil {
			return err
		}

		if len(orderedCartItems) > 0 {
			if err := tx.Where("id IN ?", orderedCartItems).Delete(&models.CartItem{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isDuplicateKey(err) {
			return nil, newError(KindConflict, "Payment reference already in use")
		}
		return nil, passThrough(err, "Error creating order")
	}

	s.log.Info().Str("order_id", order.ID.String()).Str("buyer_id", buyerID.String()).
		Str("total", order.TotalAmount.String()).Int("lines", len(order.Items)).Msg("order created")
	s.notifier.OrderCreated(&order, buyer.Email)
	return &order, nil
}

// ListForBuyer returns the buyer's orders newest first.
func (s *OrderService) ListForBuyer(ctx context.Context, buyerID uuid.UUID, status string, pg utils.Pagination) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{}).Where("buyer_id = ?", buyerID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	if err := query.Preload("Items").
		Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *OrderService) GetForBuyer(ctx context.Context, buyerID, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Items").
		Take(&order, "id = ? AND buyer_id = ?", orderID, buyerID).Error
	if isNotFound(err) {
		return nil, newError(KindNotFound, "Order not found")
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// VendorOrder is an order restricted to the lines one vendor fulfils.
type VendorOrder struct {
	OrderID     uuid.UUID          `json:"order_id"`
	Status      models.OrderStatus `json:"status"`
	BuyerID     uuid.UUID          `json:"buyer_id"`
	CreatedAt   time.Time          `json:"created_at"`
	Items       []models.OrderItem `json:"items"`
	VendorTotal decimal.Decimal    `json:"vendor_total"`
}

func newVendorOrder(order models.Order) VendorOrder {
	vo := VendorOrder{
		OrderID:     order.ID,
		Status:      order.Status,
		BuyerID:     order.BuyerID,
		CreatedAt:   order.CreatedAt,
		Items:       order.Items,
		VendorTotal: decimal.Zero,
	}
	if vo.Items == nil {
		vo.Items = []models.OrderItem{}
	}
	for _, item := range order.Items {
		vo.VendorTotal = vo.VendorTotal.Add(item.LineTotal())
	}
	return vo
}

// ListForVendor groups the vendor's order lines by parent order, newest order first.
func (s *OrderService) ListForVendor(ctx context.Context, vendorID uuid.UUID, pg utils.Pagination) ([]VendorOrder, int64, error) {
	db := s.db.WithContext(ctx)
	query := db.Model(&models.Order{}).
		Where("id IN (?)", db.Model(&models.OrderItem{}).Select("order_id").Where("vendor_id = ?", vendorID))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	if err := query.
		Preload("Items", "vendor_id = ?", vendorID).
		Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	out := make([]VendorOrder, 0, len(orders))
	for _, order := range orders {
		out = append(out, newVendorOrder(order))
	}
	return out, total, nil
}

func (s *OrderService) GetForVendor(ctx context.Context, vendorID, orderID uuid.UUID) (*VendorOrder, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items", "vendor_id = ?", vendorID).
		Take(&order, "id = ?", orderID).Error
	if isNotFound(err) || (err == nil && len(order.Items) == 0) {
		return nil, newError(KindNotFound, "Order not found")
	}
	if err != nil {
		return nil, err
	}
	vo := newVendorOrder(order)
	return &vo, nil
}

// Cancel lets a buyer cancel a pending or paid order; tracked stock is returned.
// Cancelling an already cancelled order succeeds without changes.
func (s *OrderService) Cancel(ctx context.Context, buyerID, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	var previous models.OrderStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Items").
			Take(&order, "id = ? AND buyer_id = ?", orderID, buyerID).Error
		if isNotFound(err) {
			return newError(KindNotFound, "Order not found")
		}
		if err != nil {
			return err
		}

		previous = order.Status
		if order.Status == models.OrderCancelled {
			return nil
		}
		if !order.Status.CanTransition(models.OrderCancelled) {
			return newError(KindValidation, "Cannot cancel %s order", order.Status)
		}

		for _, item := range order.Items {
			if item.ProductID == nil {
				continue
			}
			if err := tx.Model(&models.Product{}).
				Where("id = ? AND stock IS NOT NULL", *item.ProductID).
				Update("stock", gorm.Expr("stock + ?", item.Quantity)).Error; err != nil {
				return err
			}
		}

		order.Status = models.OrderCancelled
		return tx.Model(&models.Order{}).Where("id = ?", order.ID).Update("status", models.OrderCancelled).Error
	})
	if err != nil {
		return nil, passThrough(err, "Error cancelling order")
	}

	s.notifier.StatusChanged(order.ID.String(), previous, order.Status)
	return &order, nil
}

// statusForProgress maps the least advanced line status to the parent order status.
var statusForProgress = map[models.ItemStatus]models.OrderStatus{
	models.ItemPending:   models.OrderPaid,
	models.ItemShipped:   models.OrderShipped,
	models.ItemDelivered: models.OrderDelivered,
}

var orderProgress = map[models.OrderStatus]int{
	models.OrderPaid:      0,
	models.OrderShipped:   1,
	models.OrderDelivered: 2,
}

// UpdateVendorStatus moves the vendor's lines of an order forward. Once the
// order is paid its status follows the least advanced line and never regresses.
func (s *OrderService) UpdateVendorStatus(ctx context.Context, vendorID, orderID uuid.UUID, raw string) (*VendorOrder, error) {
	status, ok := models.ParseItemStatus(strings.TrimSpace(raw))
	if !ok {
		return nil, newError(KindValidation, "Invalid status")
	}

	var order models.Order
	var previous models.OrderStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Items").
			Take(&order, "id = ?", orderID).Error
		if isNotFound(err) {
			return newError(KindNotFound, "Order not found")
		}
		if err != nil {
			return err
		}

		owned := false
		for _, item := range order.Items {
			if item.VendorID != vendorID {
				continue
			}
			owned = true
			if item.Status.Rank() > status.Rank() {
				return newError(KindValidation, "Cannot move item from %s back to %s", item.Status, status)
			}
		}
		if !owned {
			return newError(KindNotFound, "Order not found")
		}
		if order.Status == models.OrderCancelled {
			return newError(KindValidation, "Cannot update a cancelled order")
		}

		if err := tx.Model(&models.OrderItem{}).
			Where("order_id = ? AND vendor_id = ?", order.ID, vendorID).
			Update("status", status).Error; err != nil {
			return err
		}

		least := models.ItemDelivered
		for i := range order.Items {
			if order.Items[i].VendorID == vendorID {
				order.Items[i].Status = status
			}
			if order.Items[i].Status.Rank() < least.Rank() {
				least = order.Items[i].Status
			}
		}

		previous = order.Status
		if !order.Status.Purchased() {
			return nil
		}
		next := statusForProgress[least]
		if orderProgress[next] <= orderProgress[order.Status] {
			return nil
		}
		order.Status = next
		return tx.Model(&models.Order{}).Where("id = ?", order.ID).Update("status", next).Error
	})
	if err != nil {
		return nil, passThrough(err, "Error updating order status")
	}

	s.notifier.StatusChanged(order.ID.String(), previous, order.Status)

	vendorLines := make([]models.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		if item.VendorID == vendorID {
			vendorLines = append(vendorLines, item)
		}
	}
	order.Items = vendorLines
	vo := newVendorOrder(order)
	return &vo, nil
}
