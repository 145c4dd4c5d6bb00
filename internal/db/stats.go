package db

import (
	"context"

	"github.com/babylonlabs-io/staking-ledger/internal/db/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UpsertPoolStats updates or inserts the reconciliation result of a pool
func (db *Database) UpsertPoolStats(ctx context.Context, doc *model.PoolStatsDocument) error {
	filter := bson.M{"_id": doc.Pool}
	opts := options.Replace().SetUpsert(true)

	_, err := db.collection(model.PoolStatsCollection).ReplaceOne(ctx, filter, doc, opts)
	return err
}

func (db *Database) GetPoolStats(ctx context.Context, pool string) (*model.PoolStatsDocument, error) {
	return findByID[model.PoolStatsDocument](ctx, db.collection(model.PoolStatsCollection), pool, "pool stats")
}

// UpsertOverallStats updates or inserts overall stats
func (db *Database) UpsertOverallStats(ctx context.Context, doc *model.OverallStatsDocument) error {
	doc.ID = model.OverallStatsID
	filter := bson.M{"_id": model.OverallStatsID}
	opts := options.Replace().SetUpsert(true)

	_, err := db.collection(model.OverallStatsCollection).ReplaceOne(ctx, filter, doc, opts)
	return err
}

func (db *Database) GetOverallStats(ctx context.Context) (*model.OverallStatsDocument, error) {
	return findByID[model.OverallStatsDocument](ctx, db.collection(model.OverallStatsCollection), model.OverallStatsID, "overall stats")
}
