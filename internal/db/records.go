package db

import (
	"context"
	"errors"

	sdkmath "cosmossdk.io/math"
	"github.com/babylonlabs-io/staking-ledger/internal/db/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *Database) GetPool(ctx context.Context, address string) (*model.PoolDocument, error) {
	return findByID[model.PoolDocument](ctx, db.collection(model.PoolCollection), address, "pool")
}

func (db *Database) GetStakeEntry(ctx context.Context, address string) (*model.StakeEntryDocument, error) {
	return findByID[model.StakeEntryDocument](ctx, db.collection(model.StakeEntryCollection), address, "stake entry")
}

func (db *Database) GetMint(ctx context.Context, address string) (*model.MintDocument, error) {
	return findByID[model.MintDocument](ctx, db.collection(model.MintCollection), address, "mint")
}

func (db *Database) GetTokenAccount(ctx context.Context, address string) (*model.TokenAccountDocument, error) {
	return findByID[model.TokenAccountDocument](ctx, db.collection(model.TokenAccountCollection), address, "token account")
}

func (db *Database) SumStakeEntryBalances(ctx context.Context, pool string) (sdkmath.Uint, uint64, error) {
	return sumStakeEntryBalances(ctx, db.collection(model.StakeEntryCollection), pool)
}

func (db *Database) ListPools(ctx context.Context) ([]*model.PoolDocument, error) {
	opts := options.Find().SetSort(bson.M{"_id": 1})
	cursor, err := db.collection(model.PoolCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var pools []*model.PoolDocument
	if err := cursor.All(ctx, &pools); err != nil {
		return nil, err
	}
	return pools, nil
}

func (db *Database) GetStakeEntriesByPool(ctx context.Context, pool string) ([]*model.StakeEntryDocument, error) {
	opts := options.Find().SetSort(bson.M{"_id": 1})
	cursor, err := db.collection(model.StakeEntryCollection).Find(ctx, bson.M{"pool": pool}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []*model.StakeEntryDocument
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func findByID[T any](ctx context.Context, collection *mongo.Collection, id, kind string) (*T, error) {
	var doc T
	err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     id,
				Message: kind + " not found",
			}
		}
		return nil, err
	}

	return &doc, nil
}

func insertOne(ctx context.Context, collection *mongo.Collection, id, kind string, doc any) error {
	_, err := collection.InsertOne(ctx, doc)
	if err != nil {
		var writeErr mongo.WriteException
		if errors.As(err, &writeErr) {
			for _, e := range writeErr.WriteErrors {
				if mongo.IsDuplicateKeyError(e) {
					return &DuplicateKeyError{
						Key:     id,
						Message: kind + " already exists",
					}
				}
			}
		}
		return err
	}

	return nil
}

func replaceOne(ctx context.Context, collection *mongo.Collection, id, kind string, doc any) error {
	res, err := collection.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return err
	}

	if res.MatchedCount == 0 {
		return &NotFoundError{
			Key:     id,
			Message: kind + " not found",
		}
	}

	return nil
}

func sumStakeEntryBalances(ctx context.Context, collection *mongo.Collection, pool string) (sdkmath.Uint, uint64, error) {
	pipeline := bson.A{
		bson.M{
			"$match": bson.M{
				"pool": pool,
			},
		},
		bson.M{
			"$group": bson.M{
				"_id":   nil,
				"total": bson.M{"$sum": "$balance"},
				"count": bson.M{"$sum": 1},
			},
		},
	}

	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return sdkmath.ZeroUint(), 0, err
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		return sdkmath.ZeroUint(), 0, cursor.Err()
	}

	var result struct {
		Total primitive.Decimal128 `bson:"total"`
		Count int64                `bson:"count"`
	}
	if err := cursor.Decode(&result); err != nil {
		return sdkmath.ZeroUint(), 0, err
	}

	total, err := model.DecimalToUint(result.Total)
	if err != nil {
		return sdkmath.ZeroUint(), 0, err
	}

	return total, uint64(result.Count), nil
}
