package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/bizengo/internal/services"
)

const paystackSignatureHeader = "x-paystack-signature"

// PaymentHandler receives payment provider callbacks.
type PaymentHandler struct {
	payments *services.PaymentService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Webhook verifies the signature over the raw body before anything is parsed.
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	message, err := h.payments.HandleWebhook(c.UserContext(), c.Body(), c.Get(paystackSignatureHeader))
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"status": "success", "message": message})
}
