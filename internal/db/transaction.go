package db

import (
	"context"
	"errors"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/avast/retry-go/v4"
	"github.com/babylonlabs-io/staking-ledger/internal/db/model"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const (
	defaultTxAttempts = 10

	transientTransactionError = "TransientTransactionError"
)

// retryOnConflict re-runs attempt while it fails with a WriteConflictError.
func retryOnConflict(ctx context.Context, attempts uint, attempt func() error) error {
	return retry.Do(
		attempt,
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.RetryIf(IsWriteConflictError),
		retry.Delay(time.Millisecond),
		retry.MaxDelay(50*time.Millisecond),
		retry.MaxJitter(5*time.Millisecond),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Debug().Err(err).Uint("attempt", n+1).Msg("transaction conflict, retrying")
		}),
	)
}

func (db *Database) RunInTransaction(ctx context.Context, fn TxFunc) error {
	return retryOnConflict(ctx, db.txAttempts, func() error {
		session, err := db.client.StartSession()
		if err != nil {
			return err
		}
		defer session.EndSession(ctx)

		txOpts := options.Transaction().
			SetReadConcern(readconcern.Snapshot()).
			SetWriteConcern(writeconcern.Majority())

		_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
			return nil, fn(sessCtx, &mongoTx{db: db, sessCtx: sessCtx})
		}, txOpts)

		// errors wrapped by the callback lose their labels for the driver's own retry loop
		var serverErr mongo.ServerError
		if errors.As(err, &serverErr) && serverErr.HasErrorLabel(transientTransactionError) {
			return &WriteConflictError{Message: err.Error()}
		}

		return err
	})
}

// mongoTx runs every operation in the session of its transaction, whatever
// context the caller passes.
type mongoTx struct {
	db      *Database
	sessCtx mongo.SessionContext
}

func (t *mongoTx) GetPool(_ context.Context, address string) (*model.PoolDocument, error) {
	return findByID[model.PoolDocument](t.sessCtx, t.db.collection(model.PoolCollection), address, "pool")
}

func (t *mongoTx) GetStakeEntry(_ context.Context, address string) (*model.StakeEntryDocument, error) {
	return findByID[model.StakeEntryDocument](t.sessCtx, t.db.collection(model.StakeEntryCollection), address, "stake entry")
}

func (t *mongoTx) GetMint(_ context.Context, address string) (*model.MintDocument, error) {
	return findByID[model.MintDocument](t.sessCtx, t.db.collection(model.MintCollection), address, "mint")
}

func (t *mongoTx) GetTokenAccount(_ context.Context, address string) (*model.TokenAccountDocument, error) {
	return findByID[model.TokenAccountDocument](t.sessCtx, t.db.collection(model.TokenAccountCollection), address, "token account")
}

func (t *mongoTx) SumStakeEntryBalances(_ context.Context, pool string) (sdkmath.Uint, uint64, error) {
	return sumStakeEntryBalances(t.sessCtx, t.db.collection(model.StakeEntryCollection), pool)
}

func (t *mongoTx) InsertPool(_ context.Context, doc *model.PoolDocument) error {
	return insertOne(t.sessCtx, t.db.collection(model.PoolCollection), doc.Address, "pool", doc)
}

func (t *mongoTx) UpdatePool(_ context.Context, doc *model.PoolDocument) error {
	return replaceOne(t.sessCtx, t.db.collection(model.PoolCollection), doc.Address, "pool", doc)
}

func (t *mongoTx) InsertStakeEntry(_ context.Context, doc *model.StakeEntryDocument) error {
	return insertOne(t.sessCtx, t.db.collection(model.StakeEntryCollection), doc.Address, "stake entry", doc)
}

func (t *mongoTx) UpdateStakeEntry(_ context.Context, doc *model.StakeEntryDocument) error {
	return replaceOne(t.sessCtx, t.db.collection(model.StakeEntryCollection), doc.Address, "stake entry", doc)
}

func (t *mongoTx) InsertMint(_ context.Context, doc *model.MintDocument) error {
	return insertOne(t.sessCtx, t.db.collection(model.MintCollection), doc.Address, "mint", doc)
}

func (t *mongoTx) UpdateMint(_ context.Context, doc *model.MintDocument) error {
	return replaceOne(t.sessCtx, t.db.collection(model.MintCollection), doc.Address, "mint", doc)
}

func (t *mongoTx) InsertTokenAccount(_ context.Context, doc *model.TokenAccountDocument) error {
	return insertOne(t.sessCtx, t.db.collection(model.TokenAccountCollection), doc.Address, "token account", doc)
}

func (t *mongoTx) UpdateTokenAccount(_ context.Context, doc *model.TokenAccountDocument) error {
	return replaceOne(t.sessCtx, t.db.collection(model.TokenAccountCollection), doc.Address, "token account", doc)
}
