// internal/router/router.go
package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/swapmart/backend/internal/config"
	"github.com/swapmart/backend/internal/handlers"
	"github.com/swapmart/backend/internal/middleware"
	"github.com/swapmart/backend/internal/services"
	"github.com/swapmart/backend/internal/utils"
)

// Initialize wires services, handlers and middleware. gateway confirms
// payments; main passes the Stripe gateway.
func Initialize(db *gorm.DB, cfg *config.Config, gateway services.PaymentGateway) *gin.Engine {
	// Initialize services
	authService := services.NewAuthService(db, cfg)
	productService := services.NewProductService(db)
	orderService := services.NewOrderService(db, cfg.Marketplace)
	statusService := services.NewStatusService(db, cfg.Marketplace)
	exchangeService := services.NewExchangeService(db, orderService)
	paymentService := services.NewPaymentService(db, cfg, gateway, statusService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	productHandler := handlers.NewProductHandler(productService)
	exchangeHandler := handlers.NewExchangeHandler(exchangeService)
	orderHandler := handlers.NewOrderHandler(orderService, statusService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	generalLimiter, authLimiter := middleware.NewRateLimiters(cfg.RateLimit)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(cors.New(corsConfig(cfg.CORS)))
	r.Use(middleware.I18nMiddleware())
	r.Use(generalLimiter.Middleware())
	r.Use(middleware.AuditLogMiddleware(db))

	r.GET("/health", healthHandler(db))

	v1 := r.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.Use(authLimiter.Middleware())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetCurrentUser)
		}

		products := v1.Group("/products")
		{
			products.GET("/:id", productHandler.GetProduct)

			protected := products.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("", productHandler.CreateProduct)
				protected.POST("/:id/wishlist", productHandler.AddToWishlist)
				protected.DELETE("/:id/wishlist", productHandler.RemoveFromWishlist)
			}
		}

		exchanges := v1.Group("/exchanges")
		exchanges.Use(middleware.AuthRequired())
		{
			exchanges.POST("", exchangeHandler.CreateExchangeRequest)
			exchanges.GET("", exchangeHandler.ListExchangeRequests)
			exchanges.GET("/:id", exchangeHandler.GetExchangeRequest)
			exchanges.PUT("/:id/approve", exchangeHandler.ApproveExchange)
			exchanges.PUT("/:id/reject", exchangeHandler.RejectExchange)
		}

		orders := v1.Group("/orders")
		orders.Use(middleware.AuthRequired())
		{
			orders.POST("", orderHandler.CreateOrder)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.GET("/:id/transitions", orderHandler.GetAvailableTransitions)
			orders.PUT("/:id/status", orderHandler.UpdateOrderStatus)
			orders.PUT("/:id/shipping/status", orderHandler.UpdateShippingStatus)
			orders.PUT("/:id/shipping", orderHandler.UpsertShippingInfo)
			orders.POST("/:id/synchronize", orderHandler.SynchronizeOrderStatus)
		}

		payments := v1.Group("/payments")
		payments.Use(middleware.AuthRequired())
		{
			payments.POST("/intent", paymentHandler.CreatePaymentIntent)
			payments.POST("/confirm", paymentHandler.ConfirmPayment)
		}

		// Delivery staff and admins reach any order from here.
		staff := v1.Group("/staff")
		staff.Use(middleware.AuthRequired(), middleware.StaffRequired())
		{
			staff.GET("/orders/:id", orderHandler.GetOrder)
			staff.PUT("/orders/:id/shipping/status", orderHandler.UpdateShippingStatus)
			staff.POST("/orders/:id/synchronize", orderHandler.SynchronizeOrderStatus)
		}
	}

	return r
}

func corsConfig(cfg config.CORSConfig) cors.Config {
	return cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Language", middleware.RequestIDHeader, "X-Total-Count", "X-Total-Pages"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		code := http.StatusOK

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			middleware.GetLogger(c).WithError(err).Warn("Health check failed")
			status = "unhealthy"
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"status":  status,
			"version": "1.0.0",
		})
	}
}
