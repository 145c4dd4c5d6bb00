package db_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/babylonlabs-io/staking-ledger/internal/config"
	"github.com/babylonlabs-io/staking-ledger/internal/db"
	"github.com/babylonlabs-io/staking-ledger/internal/db/model"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLevelDB(t *testing.T, cfg config.DbConfig) *db.LevelDB {
	t.Helper()

	store, err := db.NewLevelDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

func randomPool() *model.PoolDocument {
	var pool model.PoolDocument
	gofakeit.Struct(&pool)
	pool.TotalStaked = 0
	return &pool
}

func randomEntry(pool string) *model.StakeEntryDocument {
	var entry model.StakeEntryDocument
	gofakeit.Struct(&entry)
	entry.Pool = pool
	return &entry
}

func TestLevelDBRecords(t *testing.T) {
	store := newLevelDB(t, config.DbConfig{})
	ctx := t.Context()

	pool := randomPool()
	require.NoError(t, store.RunInTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		return tx.InsertPool(ctx, pool)
	}))

	t.Run("read committed record", func(t *testing.T) {
		got, err := store.GetPool(ctx, pool.Address)
		require.NoError(t, err)
		assert.Equal(t, pool, got)
	})

	t.Run("missing record", func(t *testing.T) {
		_, err := store.GetPool(ctx, gofakeit.UUID())
		assert.True(t, db.IsNotFoundError(err))
	})

	t.Run("duplicate insert", func(t *testing.T) {
		err := store.RunInTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
			return tx.InsertPool(ctx, pool)
		})
		assert.True(t, db.IsDuplicateKeyError(err))
	})

	t.Run("update of missing record", func(t *testing.T) {
		err := store.RunInTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
			return tx.UpdatePool(ctx, randomPool())
		})
		assert.True(t, db.IsNotFoundError(err))
	})

	t.Run("failed transaction leaves no trace", func(t *testing.T) {
		failure := errors.New("abort")
		entry := randomEntry(pool.Address)

		err := store.RunInTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
			if err := tx.InsertStakeEntry(ctx, entry); err != nil {
				return err
			}
			updated := *pool
			updated.TotalStaked = 100
			if err := tx.UpdatePool(ctx, &updated); err != nil {
				return err
			}
			return failure
		})
		require.ErrorIs(t, err, failure)

		_, err = store.GetStakeEntry(ctx, entry.Address)
		assert.True(t, db.IsNotFoundError(err))
		got, err := store.GetPool(ctx, pool.Address)
		require.NoError(t, err)
		assert.Zero(t, got.TotalStaked)
	})

	t.Run("transaction reads its own writes", func(t *testing.T) {
		entry := randomEntry(pool.Address)
		entry.Balance = 7

		err := store.RunInTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
			if err := tx.InsertStakeEntry(ctx, entry); err != nil {
				return err
			}
			got, err := tx.GetStakeEntry(ctx, entry.Address)
			if err != nil {
				return err
			}
			assert.Equal(t, entry, got)

			total, count, err := tx.SumStakeEntryBalances(ctx, pool.Address)
			if err != nil {
				return err
			}
			assert.Equal(t, "7", total.String())
			assert.Equal(t, uint64(1), count)
			return nil
		})
		require.NoError(t, err)
	})
}

func TestLevelDBListing(t *testing.T) {
	store := newLevelDB(t, config.DbConfig{})
	ctx := t.Context()

	pools := []*model.PoolDocument{randomPool(), randomPool()}
	balances := []model.Amount{10, 20, 30}

	require.NoError(t, store.RunInTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		for _, pool := range pools {
			if err := tx.InsertPool(ctx, pool); err != nil {
				return err
			}
		}
		for _, balance := range balances {
			entry := randomEntry(pools[0].Address)
			entry.Balance = balance
			if err := tx.InsertStakeEntry(ctx, entry); err != nil {
				return err
			}
		}
		return nil
	}))

	listed, err := store.ListPools(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	entries, err := store.GetStakeEntriesByPool(ctx, pools[0].Address)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	total, count, err := store.SumStakeEntryBalances(ctx, pools[0].Address)
	require.NoError(t, err)
	assert.Equal(t, "60", total.String())
	assert.Equal(t, uint64(3), count)

	total, count, err = store.SumStakeEntryBalances(ctx, pools[1].Address)
	require.NoError(t, err)
	assert.True(t, total.IsZero())
	assert.Zero(t, count)
}

func TestLevelDBConflicts(t *testing.T) {
	t.Run("stale read is retried", func(t *testing.T) {
		store := newLevelDB(t, config.DbConfig{})
		ctx := t.Context()

		pool := randomPool()
		require.NoError(t, store.RunInTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
			return tx.InsertPool(ctx, pool)
		}))

		attempts := 0
		err := store.RunInTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
			attempts++
			current, err := tx.GetPool(ctx, pool.Address)
			if err != nil {
				return err
			}

			if attempts == 1 {
				// a concurrent writer commits between our read and our commit
				require.NoError(t, store.RunInTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
					concurrent := *current
					concurrent.TotalStaked += 5
					return tx.UpdatePool(ctx, &concurrent)
				}))
			}

			current.TotalStaked += 1
			return tx.UpdatePool(ctx, current)
		})
		require.NoError(t, err)
		assert.Equal(t, 2, attempts)

		got, err := store.GetPool(ctx, pool.Address)
		require.NoError(t, err)
		assert.Equal(t, uint64(6), got.TotalStaked.Uint64())
	})

	t.Run("concurrent increments are serialized", func(t *testing.T) {
		store := newLevelDB(t, config.DbConfig{TxRetryAttempts: 1000})
		ctx := t.Context()

		pool := randomPool()
		require.NoError(t, store.RunInTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
			return tx.InsertPool(ctx, pool)
		}))

		const workers = 8
		const increments = 10

		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range increments {
					err := store.RunInTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
						current, err := tx.GetPool(ctx, pool.Address)
						if err != nil {
							return err
						}
						current.TotalStaked++
						return tx.UpdatePool(ctx, current)
					})
					assert.NoError(t, err)
				}
			}()
		}
		wg.Wait()

		got, err := store.GetPool(ctx, pool.Address)
		require.NoError(t, err)
		assert.Equal(t, uint64(workers*increments), got.TotalStaked.Uint64())
	})

	t.Run("reads see one consistent state", func(t *testing.T) {
		store := newLevelDB(t, config.DbConfig{})
		ctx := t.Context()

		pool := randomPool()
		pool.TotalStaked = 10
		entry := randomEntry(pool.Address)
		entry.Balance = 10
		require.NoError(t, store.RunInTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
			if err := tx.InsertPool(ctx, pool); err != nil {
				return err
			}
			return tx.InsertStakeEntry(ctx, entry)
		}))

		errOverdraw := errors.New("entry balance exceeds pool total")
		attempts := 0
		var seen []model.Amount

		err := store.RunInTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
			attempts++
			poolDoc, err := tx.GetPool(ctx, pool.Address)
			if err != nil {
				return err
			}

			if attempts == 1 {
				// a deposit commits between the pool read and the entry read
				require.NoError(t, store.RunInTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
					p, err := tx.GetPool(ctx, pool.Address)
					if err != nil {
						return err
					}
					e, err := tx.GetStakeEntry(ctx, entry.Address)
					if err != nil {
						return err
					}
					p.TotalStaked += 5
					e.Balance += 5
					if err := tx.UpdatePool(ctx, p); err != nil {
						return err
					}
					return tx.UpdateStakeEntry(ctx, e)
				}))
			}

			entryDoc, err := tx.GetStakeEntry(ctx, entry.Address)
			if err != nil {
				return err
			}
			seen = append(seen, entryDoc.Balance)
			if entryDoc.Balance > poolDoc.TotalStaked {
				return errOverdraw
			}

			entryDoc.Balance = 0
			poolDoc.TotalStaked = 0
			if err := tx.UpdateStakeEntry(ctx, entryDoc); err != nil {
				return err
			}
			return tx.UpdatePool(ctx, poolDoc)
		})
		require.NoError(t, err)
		assert.Equal(t, 2, attempts)
		assert.Equal(t, []model.Amount{10, 15}, seen)

		got, err := store.GetPool(ctx, pool.Address)
		require.NoError(t, err)
		assert.Zero(t, got.TotalStaked)
	})

	t.Run("phantom entry invalidates a range read", func(t *testing.T) {
		store := newLevelDB(t, config.DbConfig{})
		ctx := t.Context()

		pool := randomPool()
		require.NoError(t, store.RunInTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
			return tx.InsertPool(ctx, pool)
		}))

		attempts := 0
		var counted uint64
		err := store.RunInTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
			attempts++
			_, count, err := tx.SumStakeEntryBalances(ctx, pool.Address)
			if err != nil {
				return err
			}
			counted = count

			if attempts == 1 {
				require.NoError(t, store.RunInTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
					return tx.InsertStakeEntry(ctx, randomEntry(pool.Address))
				}))
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, attempts)
		assert.Equal(t, uint64(1), counted)
	})
}

func TestLevelDBStats(t *testing.T) {
	store := newLevelDB(t, config.DbConfig{})
	ctx := t.Context()

	_, err := store.GetOverallStats(ctx)
	assert.True(t, db.IsNotFoundError(err))

	require.NoError(t, store.UpsertOverallStats(ctx, &model.OverallStatsDocument{Tvl: "100", PoolCount: 1}))
	require.NoError(t, store.UpsertOverallStats(ctx, &model.OverallStatsDocument{Tvl: "150", PoolCount: 2}))

	overall, err := store.GetOverallStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.OverallStatsID, overall.ID)
	assert.Equal(t, "150", overall.Tvl)
	assert.Equal(t, uint64(2), overall.PoolCount)

	stats := &model.PoolStatsDocument{Pool: "pool", TotalStaked: 5, EntryBalanceSum: "5", Consistent: true}
	require.NoError(t, store.UpsertPoolStats(ctx, stats))

	got, err := store.GetPoolStats(ctx, "pool")
	require.NoError(t, err)
	assert.Equal(t, stats, got)
}

func TestLevelDBPersistence(t *testing.T) {
	path := t.TempDir()
	pool := randomPool()

	store, err := db.NewLevelDB(config.DbConfig{LevelDBPath: path})
	require.NoError(t, err)
	require.NoError(t, store.RunInTransaction(t.Context(), func(ctx context.Context, tx db.Tx) error {
		return tx.InsertPool(ctx, pool)
	}))
	require.NoError(t, store.Close(t.Context()))

	reopened := newLevelDB(t, config.DbConfig{LevelDBPath: path})
	got, err := reopened.GetPool(t.Context(), pool.Address)
	require.NoError(t, err)
	assert.Equal(t, pool, got)
}

func TestLevelDBRequestReceipts(t *testing.T) {
	store := newLevelDB(t, config.DbConfig{})
	ctx := t.Context()
	now := time.Unix(1_700_000_000, 0)

	expired := &model.RequestReceiptDocument{Digest: gofakeit.UUID(), Signer: gofakeit.UUID(), ExpiresAt: now.Add(-time.Second)}
	live := &model.RequestReceiptDocument{Digest: gofakeit.UUID(), Signer: gofakeit.UUID(), ExpiresAt: now.Add(time.Minute)}

	require.NoError(t, store.InsertRequestReceipt(ctx, expired))
	require.NoError(t, store.InsertRequestReceipt(ctx, live))

	err := store.InsertRequestReceipt(ctx, live)
	assert.True(t, db.IsDuplicateKeyError(err))

	deleted, err := store.DeleteExpiredRequestReceipts(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	// the pruned digest can be recorded again, the live one cannot
	require.NoError(t, store.InsertRequestReceipt(ctx, expired))
	assert.True(t, db.IsDuplicateKeyError(store.InsertRequestReceipt(ctx, live)))
}

func TestLevelDBCommitLogsToRequestLogger(t *testing.T) {
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	var buf bytes.Buffer
	traceID := gofakeit.UUID()
	logger := zerolog.New(&buf).Level(zerolog.TraceLevel).With().Str("trace_id", traceID).Logger()
	ctx := logger.WithContext(t.Context())

	store := newLevelDB(t, config.DbConfig{})
	require.NoError(t, store.RunInTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		return tx.InsertPool(ctx, randomPool())
	}))

	assert.Contains(t, buf.String(), "leveldb transaction committed")
	assert.Contains(t, buf.String(), traceID)
}
