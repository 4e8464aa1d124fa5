// internal/router/router.go
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/javajoker/farmchain/internal/config"
	"github.com/javajoker/farmchain/internal/handlers"
	"github.com/javajoker/farmchain/internal/i18n"
	"github.com/javajoker/farmchain/internal/middleware"
	"github.com/javajoker/farmchain/internal/services"
	"github.com/javajoker/farmchain/internal/utils"
)

const version = "1.0.0"

// Services are the collaborators the HTTP surface is built on.
type Services struct {
	Auth     *services.AuthService
	Products *services.ProductService
	Payments *services.PaymentService
}

// Initialize builds the gin engine. The returned stop function releases the
// rate limiters' background goroutines.
func Initialize(cfg *config.Config, svc Services) (*gin.Engine, func()) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(svc.Auth)
	productHandler := handlers.NewProductHandler(svc.Products)
	paymentHandler := handlers.NewPaymentHandler(svc.Payments)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()
	r.HandleMethodNotAllowed = true

	// Global middleware
	r.Use(gin.CustomRecovery(recoverJSON))
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.I18nMiddleware())

	var limiters []*middleware.RateLimiter
	authLimit := func(c *gin.Context) { c.Next() }
	if cfg.RateLimit.Enabled {
		general := middleware.NewRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
		auth := middleware.NewRateLimiter(rate.Every(time.Duration(float64(time.Minute)/cfg.RateLimit.AuthPerMinute)), cfg.RateLimit.AuthBurst)
		limiters = append(limiters, general, auth)

		r.Use(general.Middleware())
		authLimit = auth.Middleware()
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"version":  version,
			"products": svc.Products.Count(),
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(authLimit)
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// Product routes
		products := v1.Group("/products")
		{
			products.GET("", middleware.OptionalAuth(), productHandler.GetProducts)
			products.GET("/:id", middleware.OptionalAuth(), productHandler.GetProduct)

			// Authenticated routes
			protected := products.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("", productHandler.CreateProduct)
				protected.POST("/export", productHandler.ExportProducts)
				protected.POST("/:id/payment-intent", paymentHandler.CreatePaymentIntent)
			}
		}
	}

	r.NoRoute(func(c *gin.Context) {
		utils.NotFoundResponse(c, i18n.KeyRouteNotFound)
	})
	r.NoMethod(func(c *gin.Context) {
		lang := utils.GetLangFromContext(c)
		utils.ErrorResponse(c, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", i18n.T(lang, i18n.KeyRouteMethodNotAllowed), nil)
	})

	stop := func() {
		for _, l := range limiters {
			l.Stop()
		}
	}
	return r, stop
}

// recoverJSON answers a panicking request with the standard error envelope.
func recoverJSON(c *gin.Context, recovered interface{}) {
	logrus.WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
		"panic":  recovered,
	}).Error("Recovered from panic")

	lang := utils.GetLangFromContext(c)
	utils.InternalErrorResponse(c, i18n.T(lang, i18n.KeyInternalError))
	c.Abort()
}
