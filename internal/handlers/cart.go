package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/bizengo/internal/services"
)

// CartHandler manages the buyer's cart.
type CartHandler struct {
	carts *services.CartService
}

// NewCartHandler constructs CartHandler.
func NewCartHandler(carts *services.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	view, err := h.carts.Get(c.UserContext(), id.SubjectID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "data": view})
}

type addToCartRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	var req addToCartRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Product ID is required")
	}

	item, err := h.carts.AddItem(c.UserContext(), id.SubjectID, productID, req.Quantity)
	if err != nil {
		return fail(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "message": "Item added to cart", "data": item})
}

type updateCartRequest struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) UpdateItem(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	itemID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req updateCartRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	item, err := h.carts.UpdateItem(c.UserContext(), id.SubjectID, itemID, req.Quantity)
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Cart item updated", "data": item})
}

func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	itemID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.carts.RemoveItem(c.UserContext(), id.SubjectID, itemID); err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Item removed from cart"})
}

func (h *CartHandler) Clear(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	if err := h.carts.Clear(c.UserContext(), id.SubjectID); err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Cart cleared"})
}
