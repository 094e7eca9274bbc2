package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/phonginreallife/rentdesk/authz"
	"github.com/phonginreallife/rentdesk/db"
	"github.com/phonginreallife/rentdesk/handlers"
	"github.com/phonginreallife/rentdesk/services"
)

func NewGinRouter(store *db.MemoryStore, tokens *services.TokenService, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	// Add CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Organization-Id, X-Request-Id")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(store, tokens, logger)
	resourceHandler := handlers.NewResourceHandler(store, logger)
	authzMiddleware := authz.NewAuthzMiddleware(logger)

	// PUBLIC ENDPOINTS
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/auth/login", authHandler.Login)

	// PROTECTED ENDPOINTS (bearer token + organization scope)
	protected := r.Group("/")
	protected.Use(authHandler.RequireAuth())
	{
		orgRoutes := protected.Group("/organizations")
		orgRoutes.Use(authzMiddleware.AutoDetectAction(authz.ResourceOrganizations))
		{
			orgRoutes.GET("", resourceHandler.ListOrganizations)
			orgRoutes.GET("/:id", resourceHandler.GetOrganization)
		}

		propertyRoutes := protected.Group("/properties")
		propertyRoutes.Use(authzMiddleware.AutoDetectAction(authz.ResourceProperties))
		{
			propertyRoutes.GET("", resourceHandler.ListProperties)
			propertyRoutes.GET("/:id", resourceHandler.GetProperty)
		}

		unitRoutes := protected.Group("/units")
		unitRoutes.Use(authzMiddleware.AutoDetectAction(authz.ResourceUnits))
		{
			unitRoutes.GET("", resourceHandler.ListUnits)
			unitRoutes.GET("/:id", resourceHandler.GetUnit)
		}

		tenantRoutes := protected.Group("/tenants")
		tenantRoutes.Use(authzMiddleware.AutoDetectAction(authz.ResourceTenants))
		{
			tenantRoutes.GET("", resourceHandler.ListTenants)
			tenantRoutes.GET("/:id", resourceHandler.GetTenant)
		}

		leaseRoutes := protected.Group("/leases")
		leaseRoutes.Use(authzMiddleware.AutoDetectAction(authz.ResourceLeases))
		{
			leaseRoutes.GET("", resourceHandler.ListLeases)
			leaseRoutes.GET("/:id", resourceHandler.GetLease)
		}

		paymentRoutes := protected.Group("/payments")
		{
			paymentRoutes.GET("",
				authzMiddleware.RequirePermission(authz.ResourcePayments, authz.ActionList),
				resourceHandler.ListPayments)
			paymentRoutes.GET("/:id",
				authzMiddleware.RequirePermission(authz.ResourcePayments, authz.ActionShow),
				resourceHandler.GetPayment)

			// Marking as paid reuses the edit permission
			paymentRoutes.POST("/:id/mark-paid",
				authzMiddleware.RequirePermission(authz.ResourcePayments, authz.ActionEdit),
				resourceHandler.MarkPaymentPaid)
		}
	}

	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetHeader("X-Request-Id")),
		)
	}
}
