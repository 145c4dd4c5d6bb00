package db

import (
	"context"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/babylonlabs-io/staking-ledger/internal/db/model"
	"github.com/babylonlabs-io/staking-ledger/internal/observability/metrics"
)

type DbWithMetrics struct {
	db DbInterface
}

func NewDbWithMetrics(db DbInterface) *DbWithMetrics {
	return &DbWithMetrics{db: db}
}

func (d *DbWithMetrics) Ping(ctx context.Context) error {
	return d.db.Ping(ctx)
}

func (d *DbWithMetrics) Close(ctx context.Context) error {
	return d.db.Close(ctx)
}

func (d *DbWithMetrics) RunInTransaction(ctx context.Context, fn TxFunc) error {
	return d.run("RunInTransaction", func() error {
		return d.db.RunInTransaction(ctx, fn)
	})
}

func (d *DbWithMetrics) GetPool(ctx context.Context, address string) (result *model.PoolDocument, err error) {
	//nolint:errcheck
	d.run("GetPool", func() error {
		result, err = d.db.GetPool(ctx, address)
		return err
	})
	return
}

func (d *DbWithMetrics) GetStakeEntry(ctx context.Context, address string) (result *model.StakeEntryDocument, err error) {
	//nolint:errcheck
	d.run("GetStakeEntry", func() error {
		result, err = d.db.GetStakeEntry(ctx, address)
		return err
	})
	return
}

func (d *DbWithMetrics) GetMint(ctx context.Context, address string) (result *model.MintDocument, err error) {
	//nolint:errcheck
	d.run("GetMint", func() error {
		result, err = d.db.GetMint(ctx, address)
		return err
	})
	return
}

func (d *DbWithMetrics) GetTokenAccount(ctx context.Context, address string) (result *model.TokenAccountDocument, err error) {
	//nolint:errcheck
	d.run("GetTokenAccount", func() error {
		result, err = d.db.GetTokenAccount(ctx, address)
		return err
	})
	return
}

func (d *DbWithMetrics) SumStakeEntryBalances(ctx context.Context, pool string) (total sdkmath.Uint, count uint64, err error) {
	//nolint:errcheck
	d.run("SumStakeEntryBalances", func() error {
		total, count, err = d.db.SumStakeEntryBalances(ctx, pool)
		return err
	})
	return
}

func (d *DbWithMetrics) ListPools(ctx context.Context) (result []*model.PoolDocument, err error) {
	//nolint:errcheck
	d.run("ListPools", func() error {
		result, err = d.db.ListPools(ctx)
		return err
	})
	return
}

func (d *DbWithMetrics) GetStakeEntriesByPool(ctx context.Context, pool string) (result []*model.StakeEntryDocument, err error) {
	//nolint:errcheck
	d.run("GetStakeEntriesByPool", func() error {
		result, err = d.db.GetStakeEntriesByPool(ctx, pool)
		return err
	})
	return
}

func (d *DbWithMetrics) UpsertPoolStats(ctx context.Context, doc *model.PoolStatsDocument) error {
	return d.run("UpsertPoolStats", func() error {
		return d.db.UpsertPoolStats(ctx, doc)
	})
}

func (d *DbWithMetrics) GetPoolStats(ctx context.Context, pool string) (result *model.PoolStatsDocument, err error) {
	//nolint:errcheck
	d.run("GetPoolStats", func() error {
		result, err = d.db.GetPoolStats(ctx, pool)
		return err
	})
	return
}

func (d *DbWithMetrics) UpsertOverallStats(ctx context.Context, doc *model.OverallStatsDocument) error {
	return d.run("UpsertOverallStats", func() error {
		return d.db.UpsertOverallStats(ctx, doc)
	})
}

func (d *DbWithMetrics) GetOverallStats(ctx context.Context) (result *model.OverallStatsDocument, err error) {
	//nolint:errcheck
	d.run("GetOverallStats", func() error {
		result, err = d.db.GetOverallStats(ctx)
		return err
	})
	return
}

func (d *DbWithMetrics) InsertRequestReceipt(ctx context.Context, doc *model.RequestReceiptDocument) error {
	return d.run("InsertRequestReceipt", func() error {
		return d.db.InsertRequestReceipt(ctx, doc)
	})
}

func (d *DbWithMetrics) DeleteExpiredRequestReceipts(ctx context.Context, now time.Time) (deleted int64, err error) {
	//nolint:errcheck
	d.run("DeleteExpiredRequestReceipts", func() error {
		deleted, err = d.db.DeleteExpiredRequestReceipts(ctx, now)
		return err
	})
	return
}

// run is private method that executes passed lambda function and send metrics data with spent time, method name
// and an error if any. It returns the error from the lambda function for convenience
func (d *DbWithMetrics) run(method string, f func() error) error {
	startTime := time.Now()
	err := f()
	duration := time.Since(startTime)

	metrics.RecordDbLatency(duration, method, err != nil)
	return err
}
