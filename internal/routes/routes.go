package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/example/bizengo/internal/config"
	"github.com/example/bizengo/internal/handlers"
	"github.com/example/bizengo/internal/middleware"
	"github.com/example/bizengo/internal/models"
	"github.com/example/bizengo/internal/services"
)

// Services bundles the business services the HTTP layer depends on.
type Services struct {
	Auth       *services.AuthService
	Carts      *services.CartService
	Orders     *services.OrderService
	Payments   *services.PaymentService
	Catalog    *services.CatalogService
	Profiles   *services.ProfileService
	Reviews    *services.ReviewService
	Favourites *services.FavouriteService
	Admin      *services.AdminService
	Locator    services.Locator
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, svc Services, cfg *config.Config, log zerolog.Logger) {
	authHandler := handlers.NewAuthHandler(svc.Auth)
	profileHandler := handlers.NewProfileHandler(svc.Profiles)
	cartHandler := handlers.NewCartHandler(svc.Carts)
	orderHandler := handlers.NewOrderHandler(svc.Orders)
	productHandler := handlers.NewProductHandler(svc.Catalog)
	catalogHandler := handlers.NewCatalogHandler(svc.Catalog, svc.Reviews, svc.Locator, log)
	reviewHandler := handlers.NewReviewHandler(svc.Reviews, svc.Favourites)
	paymentHandler := handlers.NewPaymentHandler(svc.Payments)
	adminHandler := handlers.NewAdminHandler(svc.Admin, svc.Catalog)

	requireAuth := middleware.AuthMiddleware(cfg.JWTSecret)
	buyerOnly := middleware.RequireRole(models.RoleBuyer)
	vendorOnly := middleware.RequireRole(models.RoleVendor)

	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "pong"})
	})

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth", middleware.NewRateLimiter(cfg.AuthRatePerMinute).Middleware())
	auth.Post("/signup/buyer", authHandler.SignupBuyer)
	auth.Post("/signup/vendor", authHandler.SignupVendor)
	auth.Post("/verify-email", authHandler.VerifyEmail)
	auth.Post("/resend-verification", authHandler.ResendVerification)
	auth.Post("/login", authHandler.Login)
	auth.Post("/request-password-reset", authHandler.RequestPasswordReset)
	auth.Post("/reset-password", authHandler.ResetPassword)

	// Profile routes
	user := api.Group("/user", requireAuth)
	user.Get("/profile", profileHandler.GetProfile)
	user.Patch("/profile", profileHandler.UpdateProfile)
	user.Patch("/update-profile", profileHandler.UpdateProfile)
	user.Get("/referrals", profileHandler.Referrals)
	user.Post("/kyc", vendorOnly, profileHandler.SubmitKYC)
	user.Get("/kyc-status", vendorOnly, profileHandler.KYCStatus)
	api.Post("/upload-profile-pic", requireAuth, profileHandler.UploadProfilePic)

	// Cart routes
	cart := api.Group("/cart", requireAuth, buyerOnly)
	cart.Get("/", cartHandler.GetCart)
	cart.Post("/add", cartHandler.AddItem)
	cart.Put("/update/:id", cartHandler.UpdateItem)
	cart.Delete("/delete/:id", cartHandler.RemoveItem)
	cart.Delete("/clear", cartHandler.Clear)

	// Order routes
	orders := api.Group("/orders", requireAuth)
	orders.Post("/review", buyerOnly, reviewHandler.CreateReview)
	orders.Post("/", buyerOnly, orderHandler.CreateOrder)
	orders.Get("/", buyerOnly, orderHandler.ListOrders)
	orders.Get("/:id", buyerOnly, orderHandler.GetOrder)
	orders.Put("/:id", orderHandler.UpdateOrder)
	orders.Patch("/:id", orderHandler.UpdateOrder)
	orders.Put("/:id/status", orderHandler.UpdateOrder)
	orders.Patch("/:id/status", orderHandler.UpdateOrder)
	orders.Delete("/:id", buyerOnly, orderHandler.CancelOrder)

	favourites := api.Group("/favourites", requireAuth, buyerOnly)
	favourites.Get("/", reviewHandler.ListFavourites)
	favourites.Post("/", reviewHandler.AddFavourite)
	favourites.Delete("/:product_id", reviewHandler.RemoveFavourite)

	// Vendor routes
	vendor := api.Group("/vendor", requireAuth, vendorOnly)
	vendor.Get("/orders", orderHandler.ListVendorOrders)
	vendor.Get("/orders/:id", orderHandler.GetVendorOrder)
	vendor.Get("/my-products", productHandler.MyProducts)
	vendor.Post("/add-product", productHandler.AddProduct)
	vendor.Put("/edit-product/:id", productHandler.EditProduct)
	vendor.Delete("/delete-image/:id", productHandler.DeleteImage)
	vendor.Delete("/delete-product/:id", productHandler.DeleteProduct)
	vendor.Post("/upload-file", productHandler.UploadFiles)
	vendor.Get("/storefront", productHandler.GetStorefront)
	vendor.Put("/storefront", productHandler.UpdateStorefront)

	// Payment provider callbacks
	api.Post("/paystack/webhook", paymentHandler.Webhook)

	// Public marketplace
	marketplace := api.Group("/marketplace")
	marketplace.Get("/popular-products", catalogHandler.PopularProducts)
	marketplace.Get("/products/:id", catalogHandler.GetProduct)
	marketplace.Get("/products/:id/reviews", catalogHandler.ProductReviews)
	marketplace.Get("/search", catalogHandler.Search)
	marketplace.Get("/nearby", catalogHandler.Nearby)
	marketplace.Get("/filters", catalogHandler.Filters)
	marketplace.Get("/categories", catalogHandler.Categories)

	// Admin routes
	admin := api.Group("/admin", requireAuth, middleware.RequireRole(models.RoleAdmin))
	admin.Get("/stats", adminHandler.Stats)
	admin.Get("/revenue", adminHandler.Revenue)
	admin.Get("/users", adminHandler.ListUsers)
	admin.Delete("/users/:role/:id", adminHandler.DeleteUser)
	admin.Patch("/users/:role/:id/status", adminHandler.SetUserStatus)
	admin.Get("/orders", adminHandler.ListOrders)
	admin.Get("/orders/recent", adminHandler.RecentOrders)
	admin.Get("/products", adminHandler.ListProducts)
	admin.Patch("/products/:id", adminHandler.UpdateProduct)
	admin.Delete("/products/:id", adminHandler.DeleteProduct)
	admin.Get("/storefronts", adminHandler.ListStorefronts)
	admin.Patch("/storefronts/:id", adminHandler.UpdateStorefront)
	admin.Patch("/vendors/:id/kyc", adminHandler.DecideKYC)
	admin.Post("/admins", adminHandler.CreateAdmin)
}
