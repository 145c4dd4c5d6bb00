package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/babylonlabs-io/staking-ledger/internal/config"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const setupTimeout = 30 * time.Second

type index struct {
	Keys   bson.D
	Unique bool
	// TTL removes documents once the indexed date is this far in the past.
	TTL *int32
}

var collections = map[string][]index{
	PoolCollection: {
		{Keys: bson.D{{Key: "staked_mint", Value: 1}}, Unique: true},
	},
	StakeEntryCollection: {
		{Keys: bson.D{{Key: "pool", Value: 1}}},
		{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "staked_mint", Value: 1}}, Unique: true},
	},
	MintCollection: {},
	TokenAccountCollection: {
		{Keys: bson.D{{Key: "owner", Value: 1}}},
	},
	PoolStatsCollection:    {},
	OverallStatsCollection: {},
	RequestReceiptCollection: {
		{Keys: bson.D{{Key: "expires_at", Value: 1}}, TTL: &expireAtDate},
	},
}

// documents expire as soon as the indexed date has passed
var expireAtDate int32

// Setup creates the collections and indexes. Collections have to exist up
// front because they cannot be created implicitly inside a transaction on
// every supported server version.
func Setup(ctx context.Context, cfg *config.DbConfig) error {
	ctx, cancel := context.WithTimeout(ctx, setupTimeout)
	defer cancel()

	clientOps := options.Client().ApplyURI(cfg.Address)
	if cfg.Username != "" {
		clientOps.SetAuth(options.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}

	client, err := mongo.Connect(ctx, clientOps)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(ctx); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("Failed to disconnect setup client")
		}
	}()

	database := client.Database(cfg.DbName)

	for collection, indexes := range collections {
		if err := createCollection(ctx, database, collection); err != nil {
			return err
		}
		for _, idx := range indexes {
			if err := createIndex(ctx, database, collection, idx); err != nil {
				return err
			}
		}
	}

	log.Ctx(ctx).Info().Msg("Collections and Indexes created successfully.")
	return nil
}

func createCollection(ctx context.Context, database *mongo.Database, name string) error {
	err := database.CreateCollection(ctx, name)
	if err != nil {
		var cmdErr mongo.CommandError
		// NamespaceExists
		if errors.As(err, &cmdErr) && cmdErr.Code == 48 {
			return nil
		}
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}

	log.Ctx(ctx).Debug().Str("collection", name).Msg("Collection created")
	return nil
}

func createIndex(ctx context.Context, database *mongo.Database, collectionName string, idx index) error {
	indexOpts := options.Index().SetUnique(idx.Unique)
	if idx.TTL != nil {
		indexOpts.SetExpireAfterSeconds(*idx.TTL)
	}
	indexModel := mongo.IndexModel{
		Keys:    idx.Keys,
		Options: indexOpts,
	}

	_, err := database.Collection(collectionName).Indexes().CreateOne(ctx, indexModel)
	if err != nil {
		return fmt.Errorf("failed to create index on collection %s: %w", collectionName, err)
	}

	return nil
}
