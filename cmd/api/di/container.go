package di

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-management-api/cmd/api/infrastructure"
	"user-management-api/internal/adapter/cache"
	"user-management-api/internal/adapter/db/mongodb"
	"user-management-api/internal/adapter/db/postgres"
	ginhandler "user-management-api/internal/adapter/gin/handler"
	"user-management-api/internal/adapter/gin/middleware"
	ginrouter "user-management-api/internal/adapter/gin/router"
	"user-management-api/internal/adapter/repository/cached"
	"user-management-api/internal/config"
	"user-management-api/internal/usecase/auth"
	"user-management-api/internal/usecase/user"
	redisclient "user-management-api/pkg/redis"
	"user-management-api/pkg/security"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Mongo       *mongo.Client
	DB          *gorm.DB
	RedisClient *redisclient.Client
	UserUC      *user.Usecase
	AuthUC      *auth.Usecase
	Tokens      *security.TokenManager
	RateLimiter *middleware.RateLimiter
	Router      *gin.Engine
}

// NewContainer creates and initializes all application dependencies
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Container, error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	c := &Container{Config: cfg, Logger: l}

	tokens, err := security.NewTokenManager(security.TokenConfig{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.JWTIssuer,
		TTL:    cfg.Auth.JWTTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token manager: %w", err)
	}
	c.Tokens = tokens

	store, err := c.openStore(ctx)
	if err != nil {
		_ = c.Close(context.Background())
		return nil, err
	}

	rdb, err := infrastructure.NewRedisClient(ctx, cfg, l)
	if err != nil {
		_ = c.Close(context.Background())
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}
	c.RedisClient = rdb

	var repo user.Repository = store
	if rdb != nil {
		userCache := cache.NewRedisUserCache(
			rdb.Client,
			time.Duration(cfg.Redis.CacheTTL)*time.Second,
			l,
		)
		repo = cached.NewUserRepository(store, userCache, l)

		if cfg.RateLimit.Enabled {
			c.RateLimiter = middleware.NewRateLimiter(
				rdb.Client,
				middleware.RateLimiterConfig{
					RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
					Burst:             cfg.RateLimit.Burst,
				},
				l,
			)
		}
	}

	hasher := security.NewPasswordHasher(cfg.Auth.BcryptCost)
	c.UserUC = user.New(repo, hasher, l)
	c.AuthUC = auth.New(c.UserUC, repo, hasher, tokens, l)

	c.Router = ginrouter.SetupRouter(
		ginrouter.Options{
			ServiceName:    cfg.Logger.ServiceName,
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			Mode:           ginMode(cfg.App.Env),
		},
		ginrouter.Deps{
			Users:       ginhandler.NewUserHandler(c.UserUC, l),
			Auth:        ginhandler.NewAuthHandler(c.AuthUC, l),
			Tokens:      tokens,
			RateLimiter: c.RateLimiter,
			Checks:      c.healthChecks(),
			Log:         l,
		},
	)

	return c, nil
}

// openStore connects the backend selected by STORE_DRIVER.
func (c *Container) openStore(ctx context.Context) (user.Repository, error) {
	switch c.Config.Store.Driver {
	case config.StorePostgres:
		db, err := infrastructure.NewDatabase(c.Config, c.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		c.DB = db
		return postgres.NewUserRepoPG(db, c.Logger), nil
	default:
		client, db, err := infrastructure.NewMongo(ctx, c.Config, c.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize mongo: %w", err)
		}
		c.Mongo = client

		repo := mongodb.NewUserRepoMongo(db, c.Logger)
		idxCtx, cancel := context.WithTimeout(ctx, c.Config.Mongo.Timeout())
		defer cancel()
		if err := repo.EnsureIndexes(idxCtx); err != nil {
			return nil, fmt.Errorf("failed to create mongo indexes: %w", err)
		}
		return repo, nil
	}
}

// healthChecks pings every backing service the container opened.
func (c *Container) healthChecks() map[string]ginrouter.HealthCheck {
	checks := make(map[string]ginrouter.HealthCheck)
	if c.Mongo != nil {
		checks["mongo"] = func(ctx context.Context) error {
			return c.Mongo.Ping(ctx, readpref.Primary())
		}
	}
	if c.DB != nil {
		checks["postgres"] = func(ctx context.Context) error {
			sqlDB, err := c.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if c.RedisClient != nil {
		checks["redis"] = c.RedisClient.Ping
	}
	return checks
}

func ginMode(env string) string {
	switch env {
	case "production":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}

// Close closes all resources held by the container
func (c *Container) Close(ctx context.Context) error {
	var errs []error

	// Close Redis connection
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	if c.Mongo != nil {
		if err := infrastructure.CloseMongo(ctx, c.Mongo); err != nil {
			errs = append(errs, err)
		}
	}

	// Close database connection
	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("container close errors: %v", errs)
	}

	return nil
}
