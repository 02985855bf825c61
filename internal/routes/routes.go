package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/shoplane/storefront-api/internal/handlers"
	"github.com/shoplane/storefront-api/internal/middleware"
	"github.com/shoplane/storefront-api/internal/models"
)

// SetupRouter wires every route group onto a gin engine.
func SetupRouter(h *handlers.Handlers) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{h.Cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Static("/uploads", h.Cfg.UploadDir)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// --- Public ---
	router.POST("/auth/register", h.Register)
	router.POST("/auth/login", h.Login)
	router.GET("/products", h.GetAllProducts)
	router.GET("/products/:id", h.GetProductByID)

	// --- Authenticated ---
	authed := router.Group("/")
	authed.Use(middleware.Authenticate(h.DB))
	{
		authed.GET("/auth/me", h.GetProfile)

		authed.GET("/cart", h.GetCart)
		authed.POST("/cart", h.AddToCart)
		authed.PUT("/cart/:id", h.UpdateCartItem)
		authed.DELETE("/cart/:id", h.RemoveFromCart)
		authed.DELETE("/cart", h.ClearCart)

		authed.GET("/wishlist", h.GetWishlist)
		authed.POST("/wishlist/:productId", h.AddToWishlist)
		authed.DELETE("/wishlist/:productId", h.RemoveFromWishlist)
		authed.DELETE("/wishlist", h.ClearWishlist)

		authed.POST("/orders", h.PlaceOrder)
		authed.GET("/orders", h.GetMyOrders)
	}

	// --- Admin ---
	admin := router.Group("/")
	admin.Use(middleware.Authenticate(h.DB))
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	{
		admin.POST("/products", h.CreateProduct)
		admin.PUT("/products/:id", h.UpdateProduct)
		admin.DELETE("/products/:id", h.DeleteProduct)
		admin.POST("/products/upload", h.UploadImage)

		admin.GET("/orders/all", h.GetAllOrders)
		admin.PATCH("/orders/:id/status", h.UpdateOrderStatus)
	}

	// /orders/all wins over the :id match for the admin listing
	authedOrders := router.Group("/")
	authedOrders.Use(middleware.Authenticate(h.DB))
	{
		authedOrders.GET("/orders/:id", h.GetOrderByID)
	}

	return router
}
