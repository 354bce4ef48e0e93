package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/naheedroomy/valorantsl-new/internal/config"
	"github.com/naheedroomy/valorantsl-new/internal/constants"
)

// Client wraps the mongo connection for the leaderboard database. A failed
// connect or ping here is fatal for whichever process asked for it.
type Client struct {
	mongoClient *mongo.Client
	database    string
	logger      zerolog.Logger
}

func NewClient(cfg *config.Config, logger zerolog.Logger) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.ConnectTimeout)
	defer cancel()

	logger.Info().Str("database", cfg.MongoDatabase).Msg("connecting to MongoDB")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		if disconnectErr := client.Disconnect(context.Background()); disconnectErr != nil {
			logger.Warn().Err(disconnectErr).Msg("failed to disconnect after ping failure")
		}
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info().Str("database", cfg.MongoDatabase).Msg("connected to MongoDB")
	return &Client{
		mongoClient: client,
		database:    cfg.MongoDatabase,
		logger:      logger,
	}, nil
}

func (c *Client) Collection(name string) *mongo.Collection {
	return c.mongoClient.Database(c.database).Collection(name)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.mongoClient.Ping(ctx, readpref.Primary())
}

func (c *Client) Disconnect(ctx context.Context) error {
	c.logger.Info().Msg("disconnecting from MongoDB")
	return c.mongoClient.Disconnect(ctx)
}
