package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/bizengo/internal/events"
	"github.com/example/bizengo/internal/models"
)

const paystackSecret = "sk_test_secret"

func chargeBody(reference string, kobo int64) []byte {
	return []byte(fmt.Sprintf(`{"event":"charge.success","data":{"reference":%q,"amount":%d,"status":"success"}}`, reference, kobo))
}

func pendingOrder(t *testing.T, db *gorm.DB, reference string) models.Order {
	t.Helper()
	orders, _ := newTestOrders(db)
	buyer := seedBuyer(t, db, reference+"@example.com")
	vendor := seedVendor(t, db, "v-"+reference+"@example.com")
	product := seedProduct(t, db, vendor.ID, "Item "+reference, "150.00", 10)
	order, err := orders.Create(context.Background(), buyer.ID, CreateOrderInput{
		Items:     []LineRequest{{ProductID: product.ID, Quantity: 2}},
		Reference: reference,
	})
	require.NoError(t, err)
	return *order
}

func loadOrder(t *testing.T, db *gorm.DB, order models.Order) models.Order {
	t.Helper()
	var out models.Order
	require.NoError(t, db.Take(&out, "id = ?", order.ID).Error)
	return out
}

func TestSignatureVerification(t *testing.T) {
	payments := NewPaymentService(nil, paystackSecret, nil, nil, zerolog.Nop())
	body := chargeBody("ref", 100)

	assert.True(t, payments.VerifySignature(body, Sign(paystackSecret, body)))
	assert.False(t, payments.VerifySignature(body, Sign("other", body)))
	assert.False(t, payments.VerifySignature(append(body, ' '), Sign(paystackSecret, body)))
	assert.False(t, payments.VerifySignature(body, ""))

	_, err := payments.HandleWebhook(context.Background(), body, "deadbeef")
	requireKind(t, err, KindInvalidSignature)
}

func TestWebhookMarksOrderPaid(t *testing.T) {
	db := newTestDB(t)
	pub := &recordingPublisher{}
	payments := NewPaymentService(db, paystackSecret, nil, NewNotifier(pub, nil, zerolog.Nop()), zerolog.Nop())
	ctx := context.Background()

	order := pendingOrder(t, db, "PSK-1")
	body := chargeBody("PSK-1", 30000)

	msg, err := payments.HandleWebhook(ctx, body, Sign(paystackSecret, body))
	require.NoError(t, err)
	assert.Equal(t, MessagePaymentVerified, msg)

	stored := loadOrder(t, db, order)
	assert.Equal(t, models.OrderPaid, stored.Status)
	assert.Equal(t, "300", stored.TotalAmount.String())
	assert.NotNil(t, stored.PaidAt)

	msg, err = payments.HandleWebhook(ctx, body, Sign(paystackSecret, body))
	require.NoError(t, err)
	assert.Equal(t, MessagePaymentVerified, msg)

	again := loadOrder(t, db, order)
	assert.Equal(t, models.OrderPaid, again.Status)
	assert.True(t, stored.TotalAmount.Equal(again.TotalAmount))

	paid := 0
	for _, typ := range pub.types() {
		if typ == events.EventOrderPaid {
			paid++
		}
	}
	assert.Equal(t, 1, paid, "redelivery must not announce the payment twice")
}

func TestWebhookAmountIsAuthoritative(t *testing.T) {
	db := newTestDB(t)
	payments := NewPaymentService(db, paystackSecret, nil, nil, zerolog.Nop())

	order := pendingOrder(t, db, "PSK-2")
	body := chargeBody("PSK-2", 25050)
	_, err := payments.HandleWebhook(context.Background(), body, Sign(paystackSecret, body))
	require.NoError(t, err)

	assert.Equal(t, "250.5", loadOrder(t, db, order).TotalAmount.String())
}

func TestWebhookEdgeCases(t *testing.T) {
	db := newTestDB(t)
	payments := NewPaymentService(db, paystackSecret, nil, nil, zerolog.Nop())
	ctx := context.Background()

	transfer := []byte(`{"event":"transfer.success","data":{"reference":"x"}}`)
	msg, err := payments.HandleWebhook(ctx, transfer, Sign(paystackSecret, transfer))
	require.NoError(t, err)
	assert.Equal(t, MessageUnhandledEvent, msg)

	garbage := []byte(`{not json`)
	_, err = payments.HandleWebhook(ctx, garbage, Sign(paystackSecret, garbage))
	requireKind(t, err, KindValidation)

	missing := chargeBody("unknown-ref", 100)
	_, err = payments.HandleWebhook(ctx, missing, Sign(paystackSecret, missing))
	requireKind(t, err, KindNotFound)

	noRef := chargeBody("", 100)
	_, err = payments.HandleWebhook(ctx, noRef, Sign(paystackSecret, noRef))
	requireKind(t, err, KindValidation)
}

func TestWebhookForCancelledOrder(t *testing.T) {
	db := newTestDB(t)
	payments := NewPaymentService(db, paystackSecret, nil, nil, zerolog.Nop())

	order := pendingOrder(t, db, "PSK-3")
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", order.ID).Update("status", models.OrderCancelled).Error)

	body := chargeBody("PSK-3", 30000)
	msg, err := payments.HandleWebhook(context.Background(), body, Sign(paystackSecret, body))
	require.NoError(t, err)
	assert.Equal(t, MessageOrderCancelled, msg)
	assert.Equal(t, models.OrderCancelled, loadOrder(t, db, order).Status)
}

func TestWebhookLeavesShippedOrderAlone(t *testing.T) {
	db := newTestDB(t)
	payments := NewPaymentService(db, paystackSecret, nil, nil, zerolog.Nop())

	order := pendingOrder(t, db, "PSK-4")
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", order.ID).Update("status", models.OrderShipped).Error)

	body := chargeBody("PSK-4", 99900)
	_, err := payments.HandleWebhook(context.Background(), body, Sign(paystackSecret, body))
	require.NoError(t, err)

	stored := loadOrder(t, db, order)
	assert.Equal(t, models.OrderShipped, stored.Status)
	assert.Equal(t, "300", stored.TotalAmount.String())
}

func TestWebhookReplayAnswersLikeFirstDelivery(t *testing.T) {
	db := newTestDB(t)
	marks := newMemoryMarks()
	pub := &recordingPublisher{}
	payments := NewPaymentService(db, paystackSecret, marks, NewNotifier(pub, nil, zerolog.Nop()), zerolog.Nop())
	ctx := context.Background()

	cancelled := pendingOrder(t, db, "PSK-5")
	require.NoError(t, db.Model(&models.Order{}).Where("id = ?", cancelled.ID).Update("status", models.OrderCancelled).Error)
	body := chargeBody("PSK-5", 30000)
	for i := 0; i < 2; i++ {
		msg, err := payments.HandleWebhook(ctx, body, Sign(paystackSecret, body))
		require.NoError(t, err)
		assert.Equal(t, MessageOrderCancelled, msg)
	}
	assert.Empty(t, marks.keys)

	paid := pendingOrder(t, db, "PSK-6")
	body = chargeBody("PSK-6", 30000)
	for i := 0; i < 2; i++ {
		msg, err := payments.HandleWebhook(ctx, body, Sign(paystackSecret, body))
		require.NoError(t, err)
		assert.Equal(t, MessagePaymentVerified, msg)
	}
	assert.True(t, marks.keys["dedup:paystack:PSK-6"])
	assert.Equal(t, models.OrderPaid, loadOrder(t, db, paid).Status)

	count := 0
	for _, typ := range pub.types() {
		if typ == events.EventOrderPaid {
			count++
		}
	}
	assert.Equal(t, 1, count)
}
