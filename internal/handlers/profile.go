package handlers

import (
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"github.com/example/bizengo/internal/services"
)

// ProfileHandler manages the caller's own account.
type ProfileHandler struct {
	profiles *services.ProfileService
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(profiles *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	profile, err := h.profiles.Get(c.UserContext(), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "data": profile})
}

type updateProfileRequest struct {
	Name         string `json:"name"`
	Firstname    string `json:"firstname"`
	Lastname     string `json:"lastname"`
	BusinessName string `json:"business_name"`
	BusinessType string `json:"business_type"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	State        string `json:"state"`
	Country      string `json:"country"`
}

// UpdateProfile applies the fields relevant to the caller's role.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	var req updateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	changed, err := h.profiles.Update(c.UserContext(), id, services.ProfilePatch(req))
	if err != nil {
		return fail(err)
	}
	message := "Profile updated successfully"
	if !changed {
		message = "No changes made"
	}
	profile, err := h.profiles.Get(c.UserContext(), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "message": message, "data": profile})
}

func (h *ProfileHandler) UploadProfilePic(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	file, err := c.FormFile("image")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "No image part in the request")
	}
	url, err := h.profiles.UploadProfilePic(c.UserContext(), id, file)
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Profile picture updated", "data": fiber.Map{"profile_pic": url}})
}

func optionalFile(c *fiber.Ctx, field string) *multipart.FileHeader {
	file, err := c.FormFile(field)
	if err != nil {
		return nil
	}
	return file
}

// SubmitKYC uploads the vendor's identity and address documents.
func (h *ProfileHandler) SubmitKYC(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	res, err := h.profiles.SubmitKYC(c.UserContext(), id.SubjectID,
		optionalFile(c, "id_document"), optionalFile(c, "proof_of_address"))
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "KYC documents submitted", "data": res})
}

func (h *ProfileHandler) KYCStatus(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	status, err := h.profiles.KYCStatus(c.UserContext(), id.SubjectID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"kyc_status": status}})
}

func (h *ProfileHandler) Referrals(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	stats, err := h.profiles.Referrals(c.UserContext(), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "data": stats})
}
