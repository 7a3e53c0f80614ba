package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/example/bizengo/internal/services"
	"github.com/example/bizengo/internal/utils"
)

// CatalogHandler serves the public marketplace.
type CatalogHandler struct {
	catalog *services.CatalogService
	reviews *services.ReviewService
	locator services.Locator
	log     zerolog.Logger
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalog *services.CatalogService, reviews *services.ReviewService, locator services.Locator, log zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, reviews: reviews, locator: locator, log: log}
}

func (h *CatalogHandler) PopularProducts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	products, total, err := h.catalog.Popular(c.UserContext(), pg)
	if err != nil {
		return fail(err)
	}
	return list(c, products, pg, total)
}

func (h *CatalogHandler) GetProduct(c *fiber.Ctx) error {
	productID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	product, err := h.catalog.Product(c.UserContext(), productID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "data": product})
}

func (h *CatalogHandler) ProductReviews(c *fiber.Ctx) error {
	productID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	pg := utils.ParsePagination(c)
	reviews, total, err := h.reviews.ListForProduct(c.UserContext(), productID, pg)
	if err != nil {
		return fail(err)
	}
	return list(c, reviews, pg, total)
}

func queryDecimal(c *fiber.Ctx, key string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid "+key)
	}
	return &d, nil
}

// Search filters active products by text, category, price range and location.
func (h *CatalogHandler) Search(c *fiber.Ctx) error {
	minPrice, err := queryDecimal(c, "min_price")
	if err != nil {
		return err
	}
	maxPrice, err := queryDecimal(c, "max_price")
	if err != nil {
		return err
	}
	params := services.SearchParams{
		Query:    c.Query("q"),
		Category: c.Query("category"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		State:    c.Query("state"),
		Country:  c.Query("country"),
	}

	pg := utils.ParsePagination(c)
	products, total, err := h.catalog.Search(c.UserContext(), params, pg)
	if err != nil {
		return fail(err)
	}
	return list(c, products, pg, total)
}

// Nearby uses the state and country query params, or the caller's IP location when both are absent.
func (h *CatalogHandler) Nearby(c *fiber.Ctx) error {
	state, country := c.Query("state"), c.Query("country")
	if state == "" && country == "" && h.locator != nil {
		ip := services.ClientIP(c.Get(fiber.HeaderXForwardedFor), c.IP())
		var err error
		state, country, err = h.locator.Locate(c.UserContext(), ip)
		if err != nil {
			h.log.Warn().Err(err).Str("ip", ip).Msg("location lookup failed")
		}
	}

	pg := utils.ParsePagination(c)
	products, total, err := h.catalog.Nearby(c.UserContext(), state, country, pg)
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"data":       products,
		"location":   fiber.Map{"state": state, "country": country},
		"pagination": pg.Meta(total),
	})
}

func (h *CatalogHandler) Filters(c *fiber.Ctx) error {
	filters, err := h.catalog.Filters(c.UserContext())
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "data": filters})
}

func (h *CatalogHandler) Categories(c *fiber.Ctx) error {
	categories, err := h.catalog.Categories(c.UserContext())
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "data": categories})
}
