package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/bizengo/internal/events"
	"github.com/example/bizengo/internal/models"
)

const notifyTimeout = 10 * time.Second

// Notifier fans committed order changes out to the event stream and the admin chat.
// Failures are logged and never surface to the caller.
type Notifier struct {
	events   events.Publisher
	telegram *TelegramService
	log      zerolog.Logger
}

func NewNotifier(publisher events.Publisher, telegram *TelegramService, log zerolog.Logger) *Notifier {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Notifier{events: publisher, telegram: telegram, log: log}
}

func (n *Notifier) publish(eventType, orderID string, payload any) {
	env, err := events.NewEnvelope(eventType, orderID, payload)
	if err != nil {
		n.log.Error().Err(err).Str("event", eventType).Msg("failed to build event")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := n.events.Publish(ctx, env); err != nil {
		n.log.Error().Err(err).Str("event", eventType).Str("order_id", orderID).Msg("failed to publish event")
	}
}

func (n *Notifier) OrderCreated(order *models.Order, buyerEmail string) {
	if n == nil {
		return
	}
	lines := make([]events.OrderLine, 0, len(order.Items))
	items := make([]OrderItemNotification, 0, len(order.Items))
	for _, item := range order.Items {
		line := events.OrderLine{
			VendorID: item.VendorID.String(),
			Name:     item.ProductName,
			Quantity: item.Quantity,
			Price:    item.Price.String(),
		}
		if item.ProductID != nil {
			line.ProductID = item.ProductID.String()
		}
		lines = append(lines, line)
		items = append(items, OrderItemNotification{Name: item.ProductName, Quantity: item.Quantity, Price: item.Price})
	}

	n.publish(events.EventOrderCreated, order.ID.String(), events.OrderCreatedPayload{
		OrderID: order.ID.String(),
		BuyerID: order.BuyerID.String(),
		Items:   lines,
		Total:   order.TotalAmount.String(),
	})

	notification := OrderNotification{
		OrderID:     order.ID.String(),
		Items:       items,
		TotalAmount: order.TotalAmount,
		BuyerEmail:  buyerEmail,
	}
	n.async(func(ctx context.Context) error { return n.telegram.NotifyNewOrder(ctx, notification) })
}

func (n *Notifier) OrderPaid(order *models.Order, reference string) {
	if n == nil {
		return
	}
	n.publish(events.EventOrderPaid, order.ID.String(), events.OrderPaidPayload{
		OrderID:   order.ID.String(),
		Reference: reference,
		Amount:    order.TotalAmount.String(),
	})

	notification := PaymentSuccessNotification{
		OrderID:   order.ID.String(),
		Reference: reference,
		Amount:    order.TotalAmount,
	}
	n.async(func(ctx context.Context) error { return n.telegram.NotifyPaymentSuccess(ctx, notification) })
}

func (n *Notifier) StatusChanged(orderID string, from, to models.OrderStatus) {
	if n == nil || from == to {
		return
	}
	eventType := events.EventOrderStatusChanged
	if to == models.OrderCancelled {
		eventType = events.EventOrderCancelled
	}
	n.publish(eventType, orderID, events.OrderStatusPayload{OrderID: orderID, From: string(from), To: string(to)})
}

func (n *Notifier) async(send func(ctx context.Context) error) {
	if n.telegram == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := send(ctx); err != nil {
			n.log.Warn().Err(err).Msg("telegram notification failed")
		}
	}()
}
