package services

import (
	"context"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/bizengo/internal/cache"
	"github.com/example/bizengo/internal/models"
	"github.com/example/bizengo/internal/utils"
)

const maxUploadFiles = 10

// CatalogService covers vendor product management, storefronts and public browsing.
type CatalogService struct {
	db       *gorm.DB
	cache    *cache.Cache
	uploader Uploader
	log      zerolog.Logger
}

func NewCatalogService(db *gorm.DB, c *cache.Cache, uploader Uploader, log zerolog.Logger) *CatalogService {
	return &CatalogService{db: db, cache: c, uploader: uploader, log: log.With().Str("component", "catalog").Logger()}
}

// ProductCard is the public representation of a product.
type ProductCard struct {
	ID           uuid.UUID            `json:"id"`
	Name         string               `json:"product_name"`
	Price        decimal.Decimal      `json:"product_price"`
	Description  string               `json:"description"`
	Condition    string               `json:"condition"`
	Quantity     *int                 `json:"quantity"`
	Status       models.ProductStatus `json:"status"`
	Visibility   bool                 `json:"visibility"`
	Category     string               `json:"category"`
	VendorID     uuid.UUID            `json:"vendor_id"`
	BusinessName string               `json:"business_name"`
	State        string               `json:"state"`
	Country      string               `json:"country"`
	Images       []string             `json:"product_images"`
	CreatedAt    time.Time            `json:"created_at"`
}

func newProductCard(p models.Product) ProductCard {
	card := ProductCard{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Description: p.Description,
		Condition:   p.Condition,
		Quantity:    p.Stock,
		Status:      p.Status,
		Visibility:  p.Visibility,
		VendorID:    p.VendorID,
		Images:      p.ActiveImageURLs(),
		CreatedAt:   p.CreatedAt,
	}
	if p.Category != nil {
		card.Category = p.Category.Name
	}
	if p.Vendor != nil {
		card.BusinessName = p.Vendor.BusinessName
		card.State = p.Vendor.State
		card.Country = p.Vendor.Country
	}
	return card
}

func productCards(products []models.Product) []ProductCard {
	cards := make([]ProductCard, 0, len(products))
	for _, p := range products {
		cards = append(cards, newProductCard(p))
	}
	return cards
}

func withCardRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Category").Preload("Vendor").
		Preload("Images", "is_deleted = ?", false)
}

// ProductInput is the payload for creating a product.
type ProductInput struct {
	Name        string
	Price       decimal.Decimal
	Description string
	Condition   string
	Quantity    *int
	Category    string
	Images      []string
	Visibility  *bool
}

// ProductPatch carries the optional fields of a product update.
type ProductPatch struct {
	Name        *string
	Price       *decimal.Decimal
	Description *string
	Condition   *string
	Quantity    *int
	Category    *string
	Status      *string
	Visibility  *bool
	Images      []string
}

// resolveCategory finds a category by case-insensitive name, creating it when absent.
func resolveCategory(tx *gorm.DB, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	var category models.Category
	err := tx.Where("LOWER(name) = ?", strings.ToLower(name)).Take(&category).Error
	if err == nil {
		return &category, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	category = models.Category{Name: name}
	if err := tx.Create(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *CatalogService) invalidatePopular(ctx context.Context) {
	if err := s.cache.DeletePattern(ctx, "marketplace:popular:*"); err != nil {
		s.log.Warn().Err(err).Msg("failed to invalidate popular products cache")
	}
}

func (s *CatalogService) ListVendorProducts(ctx context.Context, vendorID uuid.UUID, pg utils.Pagination) ([]ProductCard, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{}).
		Where("vendor_id = ? AND status <> ?", vendorID, models.ProductDeleted)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []models.Product
	if err := withCardRelations(query).
		Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return productCards(products), total, nil
}

func (s *CatalogService) AddProduct(ctx context.Context, vendorID uuid.UUID, in ProductInput) (*ProductCard, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || strings.TrimSpace(in.Category) == "" {
		return nil, newError(KindValidation, "Product name, price and category are required")
	}
	if !in.Price.IsPositive() {
		return nil, newError(KindValidation, "Price must be greater than zero")
	}
	if in.Quantity != nil && *in.Quantity < 0 {
		return nil, newError(KindValidation, "Quantity cannot be negative")
	}
	images := cleanURLs(in.Images)
	if len(images) == 0 {
		return nil, newError(KindValidation, "At least one product image is required")
	}

	var product models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dup int64
		if err := tx.Model(&models.Product{}).
			Where("vendor_id = ? AND LOWER(name) = ? AND status <> ?", vendorID, strings.ToLower(name), models.ProductDeleted).
			Count(&dup).Error; err != nil {
			return err
		}
		if dup > 0 {
			return newError(KindConflict, "You already have a product named '%s'", name)
		}

		category, err := resolveCategory(tx, in.Category)
		if err != nil {
			return err
		}

		visible := true
		if in.Visibility != nil {
			visible = *in.Visibility
		}
		product = models.Product{
			Name:        name,
			Price:       in.Price,
			Description: strings.TrimSpace(in.Description),
			Condition:   strings.TrimSpace(in.Condition),
			Stock:       in.Quantity,
			Status:      models.ProductActive,
			Visibility:  visible,
			CategoryID:  &category.ID,
			VendorID:    vendorID,
		}
		if err := tx.Omit("Images", "Category", "Vendor").Create(&product).Error; err != nil {
			return err
		}
		return addImages(tx, &product, images)
	})
	if err != nil {
		return nil, passThrough(err, "Error creating product")
	}

	s.invalidatePopular(ctx)
	return s.card(ctx, product.ID)
}

func addImages(tx *gorm.DB, product *models.Product, urls []string) error {
	for _, url := range urls {
		img := models.ProductImage{ProductID: product.ID, VendorID: product.VendorID, URL: url}
		if err := tx.Create(&img).Error; err != nil {
			return err
		}
	}
	return nil
}

func cleanURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

func (s *CatalogService) card(ctx context.Context, productID uuid.UUID) (*ProductCard, error) {
	var product models.Product
	if err := withCardRelations(s.db.WithContext(ctx)).Take(&product, "id = ?", productID).Error; err != nil {
		if isNotFound(err) {
			return nil, newError(KindNotFound, "Product not found")
		}
		return nil, err
	}
	card := newProductCard(product)
	return &card, nil
}

// loadOwned fetches a product; owner restricts the lookup to one vendor unless nil.
func loadOwned(tx *gorm.DB, productID uuid.UUID, owner *uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := tx.Take(&product, "id = ?", productID).Error
	if isNotFound(err) {
		return nil, newError(KindNotFound, "Product not found")
	}
	if err != nil {
		return nil, err
	}
	if owner != nil && product.VendorID != *owner {
		return nil, newError(KindForbidden, "You do not own this product")
	}
	return &product, nil
}

// EditProduct applies a vendor's changes to one of their products.
func (s *CatalogService) EditProduct(ctx context.Context, vendorID, productID uuid.UUID, patch ProductPatch) (*ProductCard, error) {
	return s.updateProduct(ctx, productID, &vendorID, patch)
}

// AdminUpdateProduct applies moderation changes to any product.
func (s *CatalogService) AdminUpdateProduct(ctx context.Context, productID uuid.UUID, patch ProductPatch) (*ProductCard, error) {
	return s.updateProduct(ctx, productID, nil, patch)
}

func (s *CatalogService) updateProduct(ctx context.Context, productID uuid.UUID, owner *uuid.UUID, patch ProductPatch) (*ProductCard, error) {
	updates := map[string]any{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, newError(KindValidation, "Product name cannot be empty")
		}
		updates["name"] = name
	}
	if patch.Price != nil {
		if !patch.Price.IsPositive() {
			return nil, newError(KindValidation, "Price must be greater than zero")
		}
		updates["price"] = *patch.Price
	}
	if patch.Description != nil {
		updates["description"] = strings.TrimSpace(*patch.Description)
	}
	if patch.Condition != nil {
		updates["condition"] = strings.TrimSpace(*patch.Condition)
	}
	if patch.Quantity != nil {
		if *patch.Quantity < 0 {
			return nil, newError(KindValidation, "Quantity cannot be negative")
		}
		updates["stock"] = *patch.Quantity
	}
	if patch.Status != nil {
		status := models.ProductStatus(strings.TrimSpace(*patch.Status))
		if !models.ValidProductStatus(status) {
			return nil, newError(KindValidation, "Invalid status")
		}
		updates["status"] = status
		if status == models.ProductDeleted {
			updates["visibility"] = false
		}
	}
	if patch.Visibility != nil {
		updates["visibility"] = *patch.Visibility
	}
	images := cleanURLs(patch.Images)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := loadOwned(tx, productID, owner)
		if err != nil {
			return err
		}
		if patch.Category != nil && strings.TrimSpace(*patch.Category) != "" {
			category, err := resolveCategory(tx, *patch.Category)
			if err != nil {
				return err
			}
			updates["category_id"] = category.ID
		}
		if name, ok := updates["name"].(string); ok && !strings.EqualFold(name, product.Name) {
			var dup int64
			if err := tx.Model(&models.Product{}).
				Where("vendor_id = ? AND LOWER(name) = ? AND status <> ? AND id <> ?", product.VendorID, strings.ToLower(name), models.ProductDeleted, product.ID).
				Count(&dup).Error; err != nil {
				return err
			}
			if dup > 0 {
				return newError(KindConflict, "You already have a product named '%s'", name)
			}
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Product{}).Where("id = ?", product.ID).Updates(updates).Error; err != nil {
				return err
			}
		}
		return addImages(tx, product, images)
	})
	if err != nil {
		return nil, passThrough(err, "Error updating product")
	}

	s.invalidatePopular(ctx)
	return s.card(ctx, productID)
}

// DeleteImage hides one of the vendor's product images.
func (s *CatalogService) DeleteImage(ctx context.Context, vendorID, imageID uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.ProductImage{}).
		Where("id = ? AND vendor_id = ? AND is_deleted = ?", imageID, vendorID, false).
		Update("is_deleted", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return newError(KindNotFound, "Image not found")
	}
	s.invalidatePopular(ctx)
	return nil
}

// DeleteProduct soft-deletes products referenced by orders and removes the rest.
// It reports whether the delete was soft.
func (s *CatalogService) DeleteProduct(ctx context.Context, vendorID, productID uuid.UUID) (bool, error) {
	return s.deleteProduct(ctx, productID, &vendorID)
}

func (s *CatalogService) AdminDeleteProduct(ctx context.Context, productID uuid.UUID) (bool, error) {
	return s.deleteProduct(ctx, productID, nil)
}

func (s *CatalogService) deleteProduct(ctx context.Context, productID uuid.UUID, owner *uuid.UUID) (bool, error) {
	soft := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := loadOwned(tx, productID, owner)
		if err != nil {
			return err
		}
		soft, err = purgeProduct(tx, product.ID)
		return err
	})
	if err != nil {
		return false, passThrough(err, "Error deleting product")
	}
	s.invalidatePopular(ctx)
	return soft, nil
}

// purgeProduct removes a product and its dependents, or flips it to deleted
// when historical order lines reference it.
func purgeProduct(tx *gorm.DB, productID uuid.UUID) (bool, error) {
	var referenced int64
	if err := tx.Model(&models.OrderItem{}).Where("product_id = ?", productID).Count(&referenced).Error; err != nil {
		return false, err
	}

	if err := tx.Where("product_id = ?", productID).Delete(&models.CartItem{}).Error; err != nil {
		return false, err
	}
	if err := tx.Where("product_id = ?", productID).Delete(&models.Favourite{}).Error; err != nil {
		return false, err
	}

	if referenced > 0 {
		return true, tx.Model(&models.Product{}).Where("id = ?", productID).Updates(map[string]any{
			"status":     models.ProductDeleted,
			"visibility": false,
		}).Error
	}

	if err := tx.Where("product_id = ?", productID).Delete(&models.ProductImage{}).Error; err != nil {
		return false, err
	}
	return false, tx.Delete(&models.Product{}, "id = ?", productID).Error
}

// UploadFiles pushes up to ten files to the image host and returns their URLs.
func (s *CatalogService) UploadFiles(ctx context.Context, folder string, files []*multipart.FileHeader) ([]string, error) {
	if len(files) == 0 {
		return nil, newError(KindValidation, "No files provided")
	}
	if len(files) > maxUploadFiles {
		return nil, newError(KindValidation, "You can upload at most %d files", maxUploadFiles)
	}
	for _, f := range files {
		if !AllowedUpload(f.Filename) {
			return nil, newError(KindValidation, "File type not allowed: %s", f.Filename)
		}
	}

	urls := make([]string, 0, len(files))
	for _, f := range files {
		url, err := s.uploader.Upload(ctx, folder, f)
		if err != nil {
			return nil, wrapError(KindUpstream, "Upload failed", err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func (s *CatalogService) GetStorefront(ctx context.Context, vendorID uuid.UUID) (*models.Storefront, error) {
	var store models.Storefront
	err := s.db.WithContext(ctx).Take(&store, "vendor_id = ?", vendorID).Error
	if isNotFound(err) {
		return nil, newError(KindNotFound, "Storefront not found")
	}
	if err != nil {
		return nil, err
	}
	return &store, nil
}

type StorefrontPatch struct {
	BusinessName  *string
	Description   *string
	Banner        []string
	EstablishedAt *time.Time
	IsActive      *bool
}

func (s *CatalogService) UpdateStorefront(ctx context.Context, vendorID uuid.UUID, patch StorefrontPatch) (*models.Storefront, error) {
	store, err := s.GetStorefront(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	return s.patchStorefront(ctx, store, patch)
}

func (s *CatalogService) patchStorefront(ctx context.Context, store *models.Storefront, patch StorefrontPatch) (*models.Storefront, error) {
	if patch.BusinessName != nil {
		name := strings.TrimSpace(*patch.BusinessName)
		if name == "" {
			return nil, newError(KindValidation, "Business name cannot be empty")
		}
		store.BusinessName = name
	}
	if patch.Description != nil {
		store.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Banner != nil {
		store.BusinessBanner = cleanURLs(patch.Banner)
	}
	if patch.EstablishedAt != nil {
		store.EstablishedAt = patch.EstablishedAt.UTC()
	}
	if patch.IsActive != nil {
		store.IsActive = *patch.IsActive
	}
	if err := s.db.WithContext(ctx).Save(store).Error; err != nil {
		return nil, err
	}
	return store, nil
}

// popularPage is the cached shape of one page of popular products.
type popularPage struct {
	Items []ProductCard `json:"items"`
	Total int64         `json:"total"`
}

func publicProducts(db *gorm.DB) *gorm.DB {
	return db.Model(&models.Product{}).
		Where("products.status = ? AND products.visibility = ?", models.ProductActive, true)
}

// Popular lists active, visible products newest first.
func (s *CatalogService) Popular(ctx context.Context, pg utils.Pagination) ([]ProductCard, int64, error) {
	key := cache.Key(cache.KeyPopularProducts, pg.Page, pg.Limit)
	var cached popularPage
	if found, err := s.cache.GetJSON(ctx, key, &cached); err != nil {
		s.log.Warn().Err(err).Msg("popular products cache read failed")
	} else if found {
		return cached.Items, cached.Total, nil
	}

	query := publicProducts(s.db.WithContext(ctx))
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var products []models.Product
	if err := withCardRelations(query).
		Order("products.created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&products).Error; err != nil {
		return nil, 0, err
	}

	page := popularPage{Items: productCards(products), Total: total}
	if err := s.cache.SetJSON(ctx, key, page, cache.TTLPopular); err != nil {
		s.log.Warn().Err(err).Msg("popular products cache write failed")
	}
	return page.Items, page.Total, nil
}

// ProductDetail is a public product with its review summary.
type ProductDetail struct {
	ProductCard
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int64   `json:"review_count"`
}

func (s *CatalogService) Product(ctx context.Context, productID uuid.UUID) (*ProductDetail, error) {
	db := s.db.WithContext(ctx)
	var product models.Product
	err := withCardRelations(publicProducts(db)).Take(&product, "products.id = ?", productID).Error
	if isNotFound(err) {
		return nil, newError(KindNotFound, "Product not found")
	}
	if err != nil {
		return nil, err
	}

	var summary struct {
		Average float64
		Count   int64
	}
	if err := db.Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("product_id = ?", productID).
		Scan(&summary).Error; err != nil {
		return nil, err
	}

	return &ProductDetail{
		ProductCard:   newProductCard(product),
		AverageRating: summary.Average,
		ReviewCount:   summary.Count,
	}, nil
}

type SearchParams struct {
	Query    string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	State    string
	Country  string
}

func (s *CatalogService) Search(ctx context.Context, params SearchParams, pg utils.Pagination) ([]ProductCard, int64, error) {
	db := s.db.WithContext(ctx)
	query := publicProducts(db)

	if q := strings.ToLower(strings.TrimSpace(params.Query)); q != "" {
		like := "%" + q + "%"
		query = query.Where("(LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ?)", like, like)
	}
	if c := strings.ToLower(strings.TrimSpace(params.Category)); c != "" {
		query = query.Where("products.category_id IN (?)",
			db.Model(&models.Category{}).Select("id").Where("LOWER(name) = ?", c))
	}
	if params.MinPrice != nil {
		query = query.Where("products.price >= ?", *params.MinPrice)
	}
	if params.MaxPrice != nil {
		query = query.Where("products.price <= ?", *params.MaxPrice)
	}
	if params.State != "" || params.Country != "" {
		vendors := db.Model(&models.Vendor{}).Select("id")
		if params.State != "" {
			vendors = vendors.Where("LOWER(state) = ?", strings.ToLower(strings.TrimSpace(params.State)))
		}
		if params.Country != "" {
			vendors = vendors.Where("LOWER(country) = ?", strings.ToLower(strings.TrimSpace(params.Country)))
		}
		query = query.Where("products.vendor_id IN (?)", vendors)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var products []models.Product
	if err := withCardRelations(query).
		Order("products.created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return productCards(products), total, nil
}

// Nearby lists products from vendors in the given state, falling back to country.
func (s *CatalogService) Nearby(ctx context.Context, state, country string, pg utils.Pagination) ([]ProductCard, int64, error) {
	if strings.TrimSpace(state) == "" && strings.TrimSpace(country) == "" {
		return []ProductCard{}, 0, nil
	}
	if strings.TrimSpace(state) != "" {
		items, total, err := s.Search(ctx, SearchParams{State: state}, pg)
		if err != nil || total > 0 || strings.TrimSpace(country) == "" {
			return items, total, err
		}
	}
	return s.Search(ctx, SearchParams{Country: country}, pg)
}

type Filters struct {
	Categories []string        `json:"categories"`
	MinPrice   decimal.Decimal `json:"min_price"`
	MaxPrice   decimal.Decimal `json:"max_price"`
	States     []string        `json:"states"`
}

// Filters summarises the values buyers can filter the public catalog by.
func (s *CatalogService) Filters(ctx context.Context) (*Filters, error) {
	db := s.db.WithContext(ctx)
	out := &Filters{Categories: []string{}, States: []string{}}

	if err := db.Model(&models.Category{}).Order("name asc").Pluck("name", &out.Categories).Error; err != nil {
		return nil, err
	}

	var bounds struct {
		MinPrice decimal.NullDecimal
		MaxPrice decimal.NullDecimal
	}
	if err := publicProducts(db).
		Select("MIN(products.price) AS min_price, MAX(products.price) AS max_price").
		Scan(&bounds).Error; err != nil {
		return nil, err
	}
	out.MinPrice = bounds.MinPrice.Decimal
	out.MaxPrice = bounds.MaxPrice.Decimal

	if err := db.Model(&models.Vendor{}).
		Where("state <> ?", "").
		Distinct("state").Order("state asc").
		Pluck("state", &out.States).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CatalogService) Categories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.WithContext(ctx).Order("name asc").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// ListStorefronts returns storefronts for moderation, newest first.
func (s *CatalogService) ListStorefronts(ctx context.Context, pg utils.Pagination) ([]models.Storefront, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Storefront{})
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var stores []models.Storefront
	if err := query.Order("created_at desc").Limit(pg.Limit).Offset(pg.Offset).Find(&stores).Error; err != nil {
		return nil, 0, err
	}
	return stores, total, nil
}

func (s *CatalogService) AdminUpdateStorefront(ctx context.Context, storefrontID uuid.UUID, patch StorefrontPatch) (*models.Storefront, error) {
	var store models.Storefront
	if err := s.db.WithContext(ctx).Take(&store, "id = ?", storefrontID).Error; err != nil {
		return nil, notFoundAs(err, "Storefront not found")
	}
	return s.patchStorefront(ctx, &store, patch)
}

// ListAllProducts is the moderation view of the catalog, including hidden products.
func (s *CatalogService) ListAllProducts(ctx context.Context, status, search string, pg utils.Pagination) ([]ProductCard, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if q := strings.ToLower(strings.TrimSpace(search)); q != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+q+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var products []models.Product
	if err := withCardRelations(query).
		Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return productCards(products), total, nil
}
