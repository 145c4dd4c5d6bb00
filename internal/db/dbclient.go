package db

import (
	"context"

	"github.com/babylonlabs-io/staking-ledger/internal/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Database is the MongoDB backed record store. Transactions require the
// server to run as a replica set.
type Database struct {
	dbName     string
	client     *mongo.Client
	txAttempts uint
}

func New(ctx context.Context, cfg config.DbConfig) (*Database, error) {
	clientOps := options.Client().ApplyURI(cfg.Address)
	if cfg.Username != "" {
		clientOps.SetAuth(options.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}

	client, err := mongo.Connect(ctx, clientOps)
	if err != nil {
		return nil, err
	}

	txAttempts := cfg.TxRetryAttempts
	if txAttempts == 0 {
		txAttempts = defaultTxAttempts
	}

	return &Database{
		dbName:     cfg.DbName,
		client:     client,
		txAttempts: txAttempts,
	}, nil
}

func (db *Database) Ping(ctx context.Context) error {
	return db.client.Ping(ctx, nil)
}

func (db *Database) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

func (db *Database) collection(name string) *mongo.Collection {
	return db.client.Database(db.dbName).Collection(name)
}
