package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/example/bizengo/internal/services"
	"github.com/example/bizengo/internal/utils"
)

// ProductHandler serves the vendor's own catalog and storefront.
type ProductHandler struct {
	catalog *services.CatalogService
}

// NewProductHandler constructs ProductHandler.
func NewProductHandler(catalog *services.CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

type productRequest struct {
	Name        *string          `json:"name"`
	Price       *decimal.Decimal `json:"price"`
	Description *string          `json:"description"`
	Condition   *string          `json:"condition"`
	Quantity    *int             `json:"quantity"`
	Category    *string          `json:"category"`
	Status      *string          `json:"status"`
	Visibility  *bool            `json:"visibility"`
	Images      []string         `json:"images"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r productRequest) input() services.ProductInput {
	in := services.ProductInput{
		Name:        deref(r.Name),
		Description: deref(r.Description),
		Condition:   deref(r.Condition),
		Quantity:    r.Quantity,
		Category:    deref(r.Category),
		Images:      r.Images,
		Visibility:  r.Visibility,
	}
	if r.Price != nil {
		in.Price = *r.Price
	}
	return in
}

func (r productRequest) patch() services.ProductPatch {
	return services.ProductPatch{
		Name:        r.Name,
		Price:       r.Price,
		Description: r.Description,
		Condition:   r.Condition,
		Quantity:    r.Quantity,
		Category:    r.Category,
		Status:      r.Status,
		Visibility:  r.Visibility,
		Images:      r.Images,
	}
}

func (h *ProductHandler) MyProducts(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	pg := utils.ParsePagination(c)
	products, total, err := h.catalog.ListVendorProducts(c.UserContext(), id.SubjectID, pg)
	if err != nil {
		return fail(err)
	}
	return list(c, products, pg, total)
}

func (h *ProductHandler) AddProduct(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	var req productRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	product, err := h.catalog.AddProduct(c.UserContext(), id.SubjectID, req.input())
	if err != nil {
		return fail(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "message": "Product added successfully", "data": product})
}

func (h *ProductHandler) EditProduct(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	productID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req productRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	product, err := h.catalog.EditProduct(c.UserContext(), id.SubjectID, productID, req.patch())
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Product updated successfully", "data": product})
}

func (h *ProductHandler) DeleteImage(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	imageID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteImage(c.UserContext(), id.SubjectID, imageID); err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Image deleted"})
}

func deleteMessage(soft bool) string {
	if soft {
		return "Product has order history and was marked as deleted"
	}
	return "Product deleted"
}

func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	productID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	soft, err := h.catalog.DeleteProduct(c.UserContext(), id.SubjectID, productID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "message": deleteMessage(soft), "soft_deleted": soft})
}

// UploadFiles accepts the multipart "files" field and returns the hosted URLs.
func (h *ProductHandler) UploadFiles(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "No files provided")
	}

	urls, err := h.catalog.UploadFiles(c.UserContext(), "products/"+id.SubjectID.String(), form.File["files"])
	if err != nil {
		return fail(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "message": "Files uploaded", "data": urls})
}

type storefrontRequest struct {
	BusinessName  *string    `json:"business_name"`
	Description   *string    `json:"description"`
	Banner        []string   `json:"banner"`
	EstablishedAt *time.Time `json:"established_at"`
	IsActive      *bool      `json:"is_active"`
}

func (r storefrontRequest) patch() services.StorefrontPatch {
	return services.StorefrontPatch{
		BusinessName:  r.BusinessName,
		Description:   r.Description,
		Banner:        r.Banner,
		EstablishedAt: r.EstablishedAt,
		IsActive:      r.IsActive,
	}
}

func (h *ProductHandler) GetStorefront(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	store, err := h.catalog.GetStorefront(c.UserContext(), id.SubjectID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "data": store})
}

// UpdateStorefront edits the vendor's storefront; activation is left to admins.
func (h *ProductHandler) UpdateStorefront(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	var req storefrontRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	patch := req.patch()
	patch.IsActive = nil

	store, err := h.catalog.UpdateStorefront(c.UserContext(), id.SubjectID, patch)
	if err != nil {
		return fail(err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Storefront updated", "data": store})
}
