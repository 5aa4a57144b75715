package router

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"user-management-api/api/swagger"
	"user-management-api/internal/adapter/gin/handler"
	"user-management-api/internal/adapter/gin/middleware"
	"user-management-api/pkg/logger"
)

// Options controls the cross-cutting parts of the router.
type Options struct {
	ServiceName    string
	AllowedOrigins []string // "*" or empty allows any origin
	Mode           string   // gin mode: release, debug, test
}

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

// Deps are the handlers and collaborators the routes are wired to.
type Deps struct {
	Users       *handler.UserHandler
	Auth        *handler.AuthHandler
	Tokens      middleware.TokenValidator
	RateLimiter *middleware.RateLimiter // nil disables rate limiting
	Checks      map[string]HealthCheck
	Log         *zap.Logger
}

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(opts Options, deps Deps) *gin.Engine {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}

	router := gin.New()

	router.Use(middleware.Recovery(deps.Log))
	router.Use(logger.RequestID())
	router.Use(middleware.Logger(deps.Log))
	router.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "API is running..."})
	})

	router.GET("/health", healthHandler(opts.ServiceName, deps.Checks, deps.Log))

	swaggerUI := httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json"))
	router.GET("/swagger/*any", func(c *gin.Context) {
		if c.Param("any") == "/doc.json" {
			c.Data(http.StatusOK, "application/json; charset=utf-8", swagger.Spec)
			return
		}
		swaggerUI(c.Writer, c.Request)
	})

	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/signup", deps.RateLimiter.Handler(), deps.Auth.Signup)
			authGroup.POST("/login", deps.RateLimiter.Handler(), deps.Auth.Login)
			authGroup.GET("/me", middleware.Auth(deps.Tokens, deps.Log), deps.Auth.Me)
		}

		users := api.Group("/users", middleware.Auth(deps.Tokens, deps.Log))
		{
			users.GET("", deps.Users.ListUsers)
			users.POST("", deps.Users.CreateUser)
			users.GET("/:id", deps.Users.GetUser)
			users.PUT("/:id", deps.Users.UpdateUser)
			users.DELETE("/:id", deps.Users.DeleteUser)
		}
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", logger.RequestIDHeader},
		ExposeHeaders: []string{logger.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

const healthTimeout = 2 * time.Second

func healthHandler(service string, checks map[string]HealthCheck, log *zap.Logger) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		status, code := "healthy", http.StatusOK
		results := make(map[string]string, len(names))
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				log.Warn("health check failed", zap.String("check", name), zap.Error(err))
				results[name] = "down"
				status, code = "unhealthy", http.StatusServiceUnavailable
				continue
			}
			results[name] = "up"
		}

		body := gin.H{"status": status, "service": service}
		if len(results) > 0 {
			body["checks"] = results
		}
		c.JSON(code, body)
	}
}
