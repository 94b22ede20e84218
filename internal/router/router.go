package router

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"swap-backend/internal/config"
	"swap-backend/internal/handlers"
	"swap-backend/internal/middleware"
	"swap-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// corsMiddleware CORS middleware
// Priority: Environment Variable > YAML Config > Default (*)
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		var allowedOrigins []string
		allowCredentials := true
		maxAge := 3600

		if envOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); envOrigins != "" {
			for _, o := range strings.Split(envOrigins, ",") {
				if trimmed := strings.TrimSpace(o); trimmed != "" {
					allowedOrigins = append(allowedOrigins, trimmed)
				}
			}
		} else if config.AppConfig != nil && len(config.AppConfig.CORS.AllowedOrigins) > 0 {
			allowedOrigins = config.AppConfig.CORS.AllowedOrigins
			allowCredentials = config.AppConfig.CORS.AllowCredentials
			if config.AppConfig.CORS.MaxAge > 0 {
				maxAge = config.AppConfig.CORS.MaxAge
			}
		} else {
			allowedOrigins = []string{"*"}
		}

		if len(allowedOrigins) == 1 && allowedOrigins[0] == "*" {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			for _, allowedOrigin := range allowedOrigins {
				if strings.TrimSpace(allowedOrigin) == origin {
					c.Header("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, Cache-Control, Accept")
		if allowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Max-Age", strconv.Itoa(maxAge))

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// SetupRouter wires the order book API, the operator surface and the
// observability endpoints.
func SetupRouter(orderService *services.OrderService, logger *logrus.Logger) *gin.Engine {
	r := gin.Default()

	r.Use(corsMiddleware())

	orderHandler := handlers.NewOrderHandler(orderService)
	adminHandler := handlers.NewAdminHandler(orderService)
	adminAuthHandler := handlers.NewAdminAuthHandler()
	adminAuth := middleware.NewAdminAuthMiddleware(logger)

	// ============ Health Check ============
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "swap-backend",
		})
	})

	// ============ Prometheus Metrics ============
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ============ Order Book API ============
	orders := r.Group("/orders")
	{
		orders.POST("", orderHandler.CreateOrderHandler)
		orders.GET("", orderHandler.GetOrdersHandler)
		// Registered before /:id so gin does not swallow it.
		orders.GET("/revealed/:resolverAddress", orderHandler.GetRevealedOrdersHandler)
		orders.GET("/:id", orderHandler.GetOrderHandler)
		orders.POST("/:id/assign", orderHandler.AssignOrderHandler)
		orders.POST("/:id/feed-assignment", orderHandler.FeedAssignmentHandler)
		orders.POST("/:id/complete", orderHandler.CompleteOrderHandler)
		orders.POST("/:id/upload-secret", orderHandler.UploadSecretHandler)
		orders.GET("/:id/get-secret", orderHandler.GetSecretHandler)
	}

	// ============ Operator Surface ============
	admin := r.Group("/admin")
	{
		admin.POST("/login", adminAuthHandler.AdminLoginHandler)
		admin.GET("/stalled-orders", adminAuth.RequireAdminAuth(), adminHandler.GetStalledOrdersHandler)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"message": "Endpoint not found",
			"path":    c.Request.URL.Path,
		})
	})

	return r
}
