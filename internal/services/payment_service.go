package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/bizengo/internal/cache"
	"github.com/example/bizengo/internal/models"
)

const (
	EventChargeSuccess = "charge.success"

	MessagePaymentVerified = "Order payment verified"
	MessageUnhandledEvent  = "Unhandled event"
	MessageOrderCancelled  = "Order is cancelled"
)

// DeliveryMarks records which payment references have already been applied.
// *cache.Cache satisfies it.
type DeliveryMarks interface {
	Exists(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// PaymentService reconciles Paystack webhook notifications with orders.
type PaymentService struct {
	db       *gorm.DB
	secret   string
	marks    DeliveryMarks
	notifier *Notifier
	log      zerolog.Logger
}

func NewPaymentService(db *gorm.DB, secret string, marks DeliveryMarks, notifier *Notifier, log zerolog.Logger) *PaymentService {
	if marks == nil {
		marks = (*cache.Cache)(nil)
	}
	return &PaymentService{
		db:       db,
		secret:   secret,
		marks:    marks,
		notifier: notifier,
		log:      log.With().Str("component", "paystack").Logger(),
	}
}

// Sign returns the hex HMAC-SHA512 of body under the shared secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares the signature header against the body digest in constant time.
func (s *PaymentService) VerifySignature(body []byte, signature string) bool {
	if s.secret == "" || signature == "" {
		return false
	}
	expected := Sign(s.secret, body)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

type chargeEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string          `json:"reference"`
		Amount    decimal.Decimal `json:"amount"`
	} `json:"data"`
}

// HandleWebhook applies a signed charge notification. Redelivery of the same
// event leaves the order in the same state and is not re-announced.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) (string, error) {
	if !s.VerifySignature(body, signature) {
		return "", newError(KindInvalidSignature, "Invalid signature")
	}

	var event chargeEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return "", newError(KindValidation, "Invalid payload")
	}
	if event.Event != EventChargeSuccess {
		return MessageUnhandledEvent, nil
	}

	reference := strings.TrimSpace(event.Data.Reference)
	if reference == "" {
		return "", newError(KindValidation, "Missing payment reference")
	}
	amount := event.Data.Amount.Shift(-2)

	dedupKey := cache.Key(cache.KeyWebhookDedup, reference)
	seen, err := s.marks.Exists(ctx, dedupKey)
	if err != nil {
		s.log.Warn().Err(err).Str("reference", reference).Msg("dedup lookup failed")
	}
	if seen {
		return MessagePaymentVerified, nil
	}

	var order models.Order
	var becamePaid, cancelled bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&order, "reference = ?", reference).Error
		if isNotFound(err) {
			return newError(KindNotFound, "Order not found")
		}
		if err != nil {
			return err
		}

		switch order.Status {
		case models.OrderPending:
			now := time.Now().UTC()
			order.Status = models.OrderPaid
			order.TotalAmount = amount
			order.PaidAt = &now
			becamePaid = true
			return tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]any{
				"status":       models.OrderPaid,
				"total_amount": amount,
				"paid_at":      now,
			}).Error
		case models.OrderPaid:
			order.TotalAmount = amount
			return tx.Model(&models.Order{}).Where("id = ?", order.ID).Update("total_amount", amount).Error
		case models.OrderCancelled:
			cancelled = true
		}
		return nil
	})
	if err != nil {
		return "", passThrough(err, "Error applying payment")
	}

	if cancelled {
		s.log.Warn().Str("order_id", order.ID.String()).Str("reference", reference).Msg("charge received for cancelled order")
		return MessageOrderCancelled, nil
	}

	// Only verified payments are marked; a replay then answers exactly like the first delivery.
	if _, err := s.marks.Mark(ctx, dedupKey, cache.TTLWebhookDedup); err != nil {
		s.log.Warn().Err(err).Str("reference", reference).Msg("failed to record webhook delivery")
	}
	if becamePaid {
		s.log.Info().Str("order_id", order.ID.String()).Str("reference", reference).Str("amount", amount.String()).Msg("order paid")
		s.notifier.OrderPaid(&order, reference)
	}
	return MessagePaymentVerified, nil
}
