package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// RequestPasswordReset always answers the same way so callers cannot probe for accounts.
func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req emailRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.auth.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "If an account exists for this email, a reset code has been sent",
	})
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"new_password"`
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.auth.ResetPassword(c.UserContext(), req.Email, req.OTP, req.NewPassword); err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Password reset successful"})
}
