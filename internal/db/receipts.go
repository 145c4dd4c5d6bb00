package db

import (
	"context"
	"time"

	"github.com/babylonlabs-io/staking-ledger/internal/db/model"
	"go.mongodb.org/mongo-driver/bson"
)

func (db *Database) InsertRequestReceipt(ctx context.Context, doc *model.RequestReceiptDocument) error {
	return insertOne(ctx, db.collection(model.RequestReceiptCollection), doc.Digest, "request receipt", doc)
}

// DeleteExpiredRequestReceipts removes expired receipts ahead of the TTL monitor,
// which only runs once a minute.
func (db *Database) DeleteExpiredRequestReceipts(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{"expires_at": bson.M{"$lte": now}}

	res, err := db.collection(model.RequestReceiptCollection).DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
