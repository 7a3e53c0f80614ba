package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/bizengo/internal/services"
)

// ReviewHandler lets buyers review purchased products and keep favourites.
type ReviewHandler struct {
	reviews    *services.ReviewService
	favourites *services.FavouriteService
}

// NewReviewHandler constructs ReviewHandler.
func NewReviewHandler(reviews *services.ReviewService, favourites *services.FavouriteService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, favourites: favourites}
}

type reviewRequest struct {
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

func (h *ReviewHandler) CreateReview(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	var req reviewRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Order ID and product ID are required")
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Order ID and product ID are required")
	}

	review, err := h.reviews.Create(c.UserContext(), id.SubjectID, services.ReviewInput{
		OrderID:   orderID,
		ProductID: productID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		return fail(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "message": "Review submitted", "data": review})
}

func (h *ReviewHandler) ListFavourites(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	products, err := h.favourites.List(c.UserContext(), id.SubjectID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "data": products})
}

type favouriteRequest struct {
	ProductID string `json:"product_id"`
}

func (h *ReviewHandler) AddFavourite(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	var req favouriteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Product ID is required")
	}
	if err := h.favourites.Add(c.UserContext(), id.SubjectID, productID); err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Added to favourites"})
}

func (h *ReviewHandler) RemoveFavourite(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	productID, err := paramID(c, "product_id")
	if err != nil {
		return err
	}
	if err := h.favourites.Remove(c.UserContext(), id.SubjectID, productID); err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Removed from favourites"})
}
