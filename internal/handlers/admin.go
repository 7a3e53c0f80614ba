package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/bizengo/internal/services"
	"github.com/example/bizengo/internal/utils"
)

// AdminHandler serves moderation and reporting endpoints.
type AdminHandler struct {
	admin   *services.AdminService
	catalog *services.CatalogService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(admin *services.AdminService, catalog *services.CatalogService) *AdminHandler {
	return &AdminHandler{admin: admin, catalog: catalog}
}

func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.admin.Stats(c.UserContext())
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "data": stats})
}

func (h *AdminHandler) Revenue(c *fiber.Ctx) error {
	series, err := h.admin.Revenue(c.UserContext(), c.QueryInt("days", 30))
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "data": series})
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	users, total, err := h.admin.ListUsers(c.UserContext(), c.Query("role"), c.Query("search"), pg)
	if err != nil {
		return fail(err)
	}
	return list(c, users, pg, total)
}

// DeleteUser hard deletes accounts without order history and suspends the rest.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	userID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	suspended, err := h.admin.DeleteUser(c.UserContext(), id.SubjectID, c.Params("role"), userID)
	if err != nil {
		return fail(err)
	}
	message := "User deleted"
	if suspended {
		message = "User has order history and was suspended"
	}
	return c.JSON(fiber.Map{"success": true, "message": message, "suspended": suspended})
}

type userStatusRequest struct {
	Status string `json:"status"`
}

func (h *AdminHandler) SetUserStatus(c *fiber.Ctx) error {
	userID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req userStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.admin.SetUserStatus(c.UserContext(), c.Params("role"), userID, req.Status); err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "User status updated"})
}

func (h *AdminHandler) ListOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	orders, total, err := h.admin.ListOrders(c.UserContext(), c.Query("status"), pg)
	if err != nil {
		return fail(err)
	}
	return list(c, orders, pg, total)
}

func (h *AdminHandler) RecentOrders(c *fiber.Ctx) error {
	orders, err := h.admin.RecentOrders(c.UserContext())
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "data": orders})
}

func (h *AdminHandler) ListProducts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	products, total, err := h.catalog.ListAllProducts(c.UserContext(), c.Query("status"), c.Query("search"), pg)
	if err != nil {
		return fail(err)
	}
	return list(c, products, pg, total)
}

func (h *AdminHandler) UpdateProduct(c *fiber.Ctx) error {
	productID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req productRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	product, err := h.catalog.AdminUpdateProduct(c.UserContext(), productID, req.patch())
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Product updated successfully", "data": product})
}

func (h *AdminHandler) DeleteProduct(c *fiber.Ctx) error {
	productID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	soft, err := h.catalog.AdminDeleteProduct(c.UserContext(), productID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "message": deleteMessage(soft), "soft_deleted": soft})
}

func (h *AdminHandler) ListStorefronts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	stores, total, err := h.catalog.ListStorefronts(c.UserContext(), pg)
	if err != nil {
		return fail(err)
	}
	return list(c, stores, pg, total)
}

func (h *AdminHandler) UpdateStorefront(c *fiber.Ctx) error {
	storeID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req storefrontRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	store, err := h.catalog.AdminUpdateStorefront(c.UserContext(), storeID, req.patch())
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Storefront updated", "data": store})
}

type kycDecisionRequest struct {
	Status string `json:"status"`
}

func (h *AdminHandler) DecideKYC(c *fiber.Ctx) error {
	vendorID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req kycDecisionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.admin.DecideKYC(c.UserContext(), vendorID, req.Status); err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "KYC status updated", "data": fiber.Map{"kyc_status": req.Status}})
}

type createAdminRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AdminHandler) CreateAdmin(c *fiber.Ctx) error {
	var req createAdminRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	admin, err := h.admin.CreateAdmin(c.UserContext(), services.AdminInput(req))
	if err != nil {
		return fail(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "message": "Admin created", "data": admin})
}
