package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"photoadmit/internal/admission"
	"photoadmit/internal/auth"
	"photoadmit/internal/config"
	"photoadmit/internal/database"
	"photoadmit/internal/handlers"
	"photoadmit/internal/middleware"
)

// Setup wires the six §6 image-admission routes over facade against the
// shared middleware chain.
func Setup(db *database.DB, facade *admission.Facade) *gin.Engine {
	imageHandler := handlers.NewImageHandler(facade)

	auth.InitClerk()

	router := setupBaseRouter()

	router.GET("/health", healthCheck(db))

	images := router.Group("/api/images")
	{
		images.POST("", imageHandler.UploadImages)
		images.GET("", imageHandler.ListImages)
		images.GET("/:id", imageHandler.GetImage)
		images.DELETE("/:id", handlers.RequireAuth(), imageHandler.DeleteImage)
		images.POST("/:id/process", handlers.RequireAuth(), imageHandler.ReprocessImage)
	}

	router.GET("/api", apiDocumentation())

	return router
}

func setupBaseRouter() *gin.Engine {
	router := gin.New()

	router.Use(otelgin.Middleware("photoadmit"))
	router.Use(middleware.Observability())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RateLimit())

	// In production, set this to the specific IP ranges of your load
	// balancers. nil means no proxy headers (X-Forwarded-For, etc.) are
	// trusted, preventing IP spoofing if not behind a configured proxy.
	router.SetTrustedProxies(nil)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = config.GetAllowedOrigins()
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Authorization",
		"Accept",
		"User-Agent",
		"Cache-Control",
		"Pragma",
		"X-Session-ID",
	}
	corsConfig.AllowMethods = []string{
		"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS",
	}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	return router
}

func healthCheck(db *database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"database":  "postgresql",
				"timestamp": time.Now().Unix(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"database":  "postgresql",
			"timestamp": time.Now().Unix(),
		})
	}
}

func apiDocumentation() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":        "photoadmit",
			"description": "Image admission pipeline API",
			"endpoints": map[string]interface{}{
				"health": "GET /health",
				"images": map[string]string{
					"upload":    "POST /api/images",
					"list":      "GET /api/images?status=...&page=...&limit=...",
					"get":       "GET /api/images/:id",
					"delete":    "DELETE /api/images/:id",
					"reprocess": "POST /api/images/:id/process",
				},
			},
		})
	}
}
