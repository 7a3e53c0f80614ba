package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/bizengo/internal/models"
	"github.com/example/bizengo/internal/services"
	"github.com/example/bizengo/internal/utils"
)

// OrderHandler serves buyer and vendor order endpoints.
type OrderHandler struct {
	orders *services.OrderService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type orderLineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type createOrderRequest struct {
	Items     []orderLineRequest `json:"items"`
	Reference string             `json:"reference"`
}

// CreateOrder places an order from the request items, or from the cart when none are given.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	var req createOrderRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}

	in := services.CreateOrderInput{Reference: req.Reference}
	for _, line := range req.Items {
		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Each item needs a valid product_id")
		}
		in.Items = append(in.Items, services.LineRequest{ProductID: productID, Quantity: line.Quantity})
	}

	order, err := h.orders.Create(c.UserContext(), id.SubjectID, in)
	if err != nil {
		return fail(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":      true,
		"message":      "Order created successfully",
		"order_id":     order.ID,
		"total_amount": order.TotalAmount,
		"order_items":  order.Items,
	})
}

func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	pg := utils.ParsePagination(c)
	orders, total, err := h.orders.ListForBuyer(c.UserContext(), id.SubjectID, c.Query("status"), pg)
	if err != nil {
		return fail(err)
	}
	return list(c, orders, pg, total)
}

func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	orderID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	order, err := h.orders.GetForBuyer(c.UserContext(), id.SubjectID, orderID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "data": order})
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrder lets a buyer cancel an order and a vendor advance its own lines.
func (h *OrderHandler) UpdateOrder(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	orderID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req orderStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Status is required")
	}

	switch id.Role {
	case models.RoleBuyer:
		if status != string(models.OrderCancelled) {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid status")
		}
		order, err := h.orders.Cancel(c.UserContext(), id.SubjectID, orderID)
		if err != nil {
			return fail(err)
		}
		return c.JSON(fiber.Map{"success": true, "message": "Order cancelled", "data": order})
	case models.RoleVendor:
		order, err := h.orders.UpdateVendorStatus(c.UserContext(), id.SubjectID, orderID, status)
		if err != nil {
			return fail(err)
		}
		return c.JSON(fiber.Map{"success": true, "message": "Order status updated", "data": order})
	default:
		return fiber.NewError(fiber.StatusForbidden, "Unauthorized access")
	}
}

func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	orderID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	order, err := h.orders.Cancel(c.UserContext(), id.SubjectID, orderID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Order cancelled", "data": order})
}

func (h *OrderHandler) ListVendorOrders(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	pg := utils.ParsePagination(c)
	orders, total, err := h.orders.ListForVendor(c.UserContext(), id.SubjectID, pg)
	if err != nil {
		return fail(err)
	}
	return list(c, orders, pg, total)
}

func (h *OrderHandler) GetVendorOrder(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	orderID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	order, err := h.orders.GetForVendor(c.UserContext(), id.SubjectID, orderID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "data": order})
}
