package api

import (
	"github.com/gin-gonic/gin"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/api/handler"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/api/middleware"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth        *handler.AuthHandler
	LPR         *handler.LPRHandler
	Motorcycles *handler.MotorcycleHandler
	Scans       *handler.ScanHandler
	Health      *handler.HealthHandler
	WebSocket   *handler.WebSocketHandler
}

func SetupRouter(h Handlers, authMw *middleware.AuthMiddleware, lprLimiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.GET("/health", h.Health.Check)

	// Display clients subscribe without a token.
	r.GET("/ws", h.WebSocket.HandleWebSocket)

	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", h.Auth.Register)
		authRoutes.POST("/login", h.Auth.Login)
	}

	staff := authMw.AuthorizeRole(domain.RoleAdmin, domain.RoleOperator)
	adminOnly := authMw.AuthorizeRole(domain.RoleAdmin)

	v1 := r.Group("/api/v1")
	v1.Use(authMw.Authenticate())
	{
		v1.POST("/users", adminOnly, h.Auth.CreateUser)

		lprRoutes := v1.Group("/lpr")
		lprRoutes.Use(staff, lprLimiter.Middleware())
		{
			lprRoutes.POST("/process-image", h.LPR.ProcessImage)
			lprRoutes.POST("/upload", h.LPR.Upload)
		}

		motoRoutes := v1.Group("/motorcycles")
		{
			motoRoutes.GET("", h.Motorcycles.List)
			motoRoutes.POST("", staff, h.Motorcycles.Create)
			motoRoutes.GET("/:plate", h.Motorcycles.Get)
			motoRoutes.POST("/:plate/blacklist", staff, h.Motorcycles.Blacklist)
			motoRoutes.POST("/:plate/expire", staff, h.Motorcycles.Expire)
			motoRoutes.POST("/:plate/violations", staff, h.Motorcycles.Violations)
			motoRoutes.POST("/:plate/clear", staff, h.Motorcycles.Clear)
			motoRoutes.DELETE("/:plate", adminOnly, h.Motorcycles.Delete)
		}

		v1.GET("/scans", h.Scans.ListRecent)
	}
	return r
}
