package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

var orderNext = map[OrderStatus]map[OrderStatus]bool{
	OrderPending:   {OrderPaid: true, OrderCancelled: true},
	OrderPaid:      {OrderShipped: true, OrderCancelled: true},
	OrderShipped:   {OrderDelivered: true},
	OrderDelivered: {},
	OrderCancelled: {},
}

// CanTransition reports whether an order may move from one status to another.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	return orderNext[s][to]
}

// Purchased reports whether the order counts as a completed purchase.
func (s OrderStatus) Purchased() bool {
	return s == OrderPaid || s == OrderShipped || s == OrderDelivered
}

// ItemStatus tracks fulfilment of a single order line.
type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemShipped   ItemStatus = "shipped"
	ItemDelivered ItemStatus = "delivered"
)

var itemRank = map[ItemStatus]int{ItemPending: 0, ItemShipped: 1, ItemDelivered: 2}

// ParseItemStatus validates a line status supplied by a vendor.
func ParseItemStatus(s string) (ItemStatus, bool) {
	st := ItemStatus(s)
	_, ok := itemRank[st]
	return st, ok
}

// Rank orders line statuses by fulfilment progress.
func (s ItemStatus) Rank() int {
	return itemRank[s]
}

type Order struct {
	BaseModel
	BuyerID     uuid.UUID       `gorm:"type:uuid;index" json:"buyer_id"`
	Buyer       *Buyer          `json:"buyer,omitempty"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	Status      OrderStatus     `gorm:"index;not null" json:"status"`
	// Reference correlates asynchronous payment confirmation; nil until supplied.
	Reference *string     `gorm:"uniqueIndex" json:"reference"`
	PaidAt    *time.Time  `json:"paid_at"`
	Items     []OrderItem `json:"items,omitempty"`
}

// OrderItem is an immutable snapshot of a product at purchase time.
type OrderItem struct {
	BaseModel
	OrderID     uuid.UUID       `gorm:"type:uuid;index" json:"order_id"`
	ProductID   *uuid.UUID      `gorm:"type:uuid;index" json:"product_id"`
	VendorID    uuid.UUID       `gorm:"type:uuid;index" json:"vendor_id"`
	ProductName string          `gorm:"not null" json:"product_name"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Status      ItemStatus      `gorm:"not null" json:"status"`
}

// LineTotal returns price times quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
