package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/bizengo/internal/services"
)

// AuthHandler manages signup, verification and login endpoints.
type AuthHandler struct {
	auth *services.AuthService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type contactRequest struct {
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	State        string `json:"state"`
	Country      string `json:"country"`
	Password     string `json:"password"`
	ReferralCode string `json:"referral_code"`
}

func (r contactRequest) contact(c *fiber.Ctx) services.Contact {
	return services.Contact{
		Email:        r.Email,
		Phone:        r.Phone,
		State:        r.State,
		Country:      r.Country,
		Password:     r.Password,
		ReferralCode: r.ReferralCode,
		ClientIP:     services.ClientIP(c.Get(fiber.HeaderXForwardedFor), c.IP()),
	}
}

type buyerSignupRequest struct {
	Name string `json:"name"`
	contactRequest
}

type vendorSignupRequest struct {
	Firstname    string `json:"firstname"`
	Lastname     string `json:"lastname"`
	BusinessName string `json:"business_name"`
	BusinessType string `json:"business_type"`
	contactRequest
}

// SignupBuyer stages a buyer registration and emails the verification code.
func (h *AuthHandler) SignupBuyer(c *fiber.Ctx) error {
	var req buyerSignupRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	err := h.auth.SignupBuyer(c.UserContext(), services.BuyerSignup{Name: req.Name, Contact: req.contact(c)})
	if err != nil {
		return fail(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "OTP sent to email. Please verify to complete registration.",
	})
}

// SignupVendor stages a vendor registration and emails the verification code.
func (h *AuthHandler) SignupVendor(c *fiber.Ctx) error {
	var req vendorSignupRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	err := h.auth.SignupVendor(c.UserContext(), services.VendorSignup{
		Firstname:    req.Firstname,
		Lastname:     req.Lastname,
		BusinessName: req.BusinessName,
		BusinessType: req.BusinessType,
		Contact:      req.contact(c),
	})
	if err != nil {
		return fail(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "OTP sent to email. Please verify to complete registration.",
	})
}

type verifyEmailRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func authResponse(res *services.AuthResult, message string) fiber.Map {
	return fiber.Map{
		"success":      true,
		"message":      message,
		"access_token": res.Token,
		"data": fiber.Map{
			"id":    res.SubjectID,
			"email": res.Email,
			"role":  res.Role,
		},
	}
}

// VerifyEmail promotes a staged registration and returns an access token.
func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	var req verifyEmailRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.auth.VerifyEmail(c.UserContext(), req.Email, req.OTP)
	if err != nil {
		return fail(err)
	}
	return c.JSON(authResponse(res, "Email verified successfully"))
}

type emailRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandler) ResendVerification(c *fiber.Ctx) error {
	var req emailRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.auth.ResendVerification(c.UserContext(), req.Email); err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "A new OTP has been sent to your email"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates any role and returns an access token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return fail(err)
	}
	return c.JSON(authResponse(res, "Login successful"))
}
