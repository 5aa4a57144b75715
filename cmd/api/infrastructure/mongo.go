package infrastructure

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"

	"user-management-api/internal/config"
)

// NewMongo connects to the document store and pings the primary. The
// returned client must be closed with CloseMongo.
func NewMongo(ctx context.Context, cfg *config.Config, l *zap.Logger) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Mongo.Timeout()

	client, err := mongo.Connect(options.Client().
		ApplyURI(cfg.Mongo.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout).
		SetAppName(cfg.Logger.ServiceName))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	l.Info("mongo connected successfully", zap.String("database", cfg.Mongo.Database))

	return client, client.Database(cfg.Mongo.Database), nil
}

// CloseMongo disconnects the client, waiting at most until ctx is done.
func CloseMongo(ctx context.Context, client *mongo.Client) error {
	if client == nil {
		return nil
	}
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect mongo: %w", err)
	}
	return nil
}
