package db

import (
	"context"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/babylonlabs-io/staking-ledger/internal/db/model"
)

// Reader gives access to the ledger records at their locations.
type Reader interface {
	GetPool(ctx context.Context, address string) (*model.PoolDocument, error)
	GetStakeEntry(ctx context.Context, address string) (*model.StakeEntryDocument, error)
	GetMint(ctx context.Context, address string) (*model.MintDocument, error)
	GetTokenAccount(ctx context.Context, address string) (*model.TokenAccountDocument, error)
	// SumStakeEntryBalances returns the balance sum and the number of entries of a pool.
	SumStakeEntryBalances(ctx context.Context, pool string) (sdkmath.Uint, uint64, error)
}

// Tx is a unit of work over ledger records. Writes become visible to other
// transactions only when the enclosing RunInTransaction call returns nil.
// Insert* return DuplicateKeyError if a record already exists at the location,
// Update* return NotFoundError if it does not.
type Tx interface {
	Reader

	InsertPool(ctx context.Context, doc *model.PoolDocument) error
	UpdatePool(ctx context.Context, doc *model.PoolDocument) error

	InsertStakeEntry(ctx context.Context, doc *model.StakeEntryDocument) error
	UpdateStakeEntry(ctx context.Context, doc *model.StakeEntryDocument) error

	InsertMint(ctx context.Context, doc *model.MintDocument) error
	UpdateMint(ctx context.Context, doc *model.MintDocument) error

	InsertTokenAccount(ctx context.Context, doc *model.TokenAccountDocument) error
	UpdateTokenAccount(ctx context.Context, doc *model.TokenAccountDocument) error
}

type TxFunc func(ctx context.Context, tx Tx) error

type DbInterface interface {
	Reader

	Ping(ctx context.Context) error
	// RunInTransaction executes fn atomically. Conflicting transactions are
	// retried by the store; any error returned by fn aborts without side effects.
	RunInTransaction(ctx context.Context, fn TxFunc) error

	ListPools(ctx context.Context) ([]*model.PoolDocument, error)
	GetStakeEntriesByPool(ctx context.Context, pool string) ([]*model.StakeEntryDocument, error)

	UpsertPoolStats(ctx context.Context, doc *model.PoolStatsDocument) error
	GetPoolStats(ctx context.Context, pool string) (*model.PoolStatsDocument, error)
	UpsertOverallStats(ctx context.Context, doc *model.OverallStatsDocument) error
	GetOverallStats(ctx context.Context) (*model.OverallStatsDocument, error)

	// InsertRequestReceipt returns DuplicateKeyError if a receipt with the
	// same digest exists.
	InsertRequestReceipt(ctx context.Context, doc *model.RequestReceiptDocument) error
	// DeleteExpiredRequestReceipts removes receipts that expired at or before now.
	DeleteExpiredRequestReceipts(ctx context.Context, now time.Time) (int64, error)

	Close(ctx context.Context) error
}
