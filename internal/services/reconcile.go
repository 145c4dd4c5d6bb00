package services

import (
	"context"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/babylonlabs-io/staking-ledger/internal/db"
	"github.com/babylonlabs-io/staking-ledger/internal/db/model"
	"github.com/babylonlabs-io/staking-ledger/internal/observability/metrics"
	"github.com/babylonlabs-io/staking-ledger/internal/utils/poller"
	"github.com/rs/zerolog/log"
)

// StartReconciliationPoller blocks, reconciling all pools every configured
// interval until ctx is done.
func (s *Service) StartReconciliationPoller(ctx context.Context) {
	reconciliationPoller := poller.NewPoller(
		s.cfg.Poller.ReconciliationInterval,
		metrics.RecordPollerDuration("reconciliation", s.ReconcilePools),
	)
	reconciliationPoller.Start(ctx)
}

// ReconcilePools checks for every pool that the entry balances, the vault
// balance and the pool total agree, and stores per pool and overall stats.
func (s *Service) ReconcilePools(ctx context.Context) error {
	log := log.Ctx(ctx)

	pools, err := s.db.ListPools(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pools: %w", err)
	}

	tvl := sdkmath.ZeroUint()
	var entryCount uint64
	inconsistent := 0

	for _, pool := range pools {
		stats, err := s.reconcilePool(ctx, pool.Address)
		if err != nil {
			return fmt.Errorf("failed to reconcile pool %s: %w", pool.Address, err)
		}

		tvl = tvl.Add(sdkmath.NewUint(stats.TotalStaked.Uint64()))
		entryCount += stats.EntryCount
		if !stats.Consistent {
			inconsistent++
		}
	}

	overall := &model.OverallStatsDocument{
		Tvl:         tvl.String(),
		PoolCount:   uint64(len(pools)),
		EntryCount:  entryCount,
		LastUpdated: s.now(),
	}
	if err := s.db.UpsertOverallStats(ctx, overall); err != nil {
		return fmt.Errorf("failed to upsert overall stats: %w", err)
	}

	log.Info().
		Str("tvl", overall.Tvl).
		Uint64("pool_count", overall.PoolCount).
		Uint64("entry_count", overall.EntryCount).
		Int("inconsistent_pools", inconsistent).
		Msg("Updated overall stats")

	return nil
}

func (s *Service) reconcilePool(ctx context.Context, poolAddr string) (*model.PoolStatsDocument, error) {
	var stats *model.PoolStatsDocument

	// a read-only transaction gives a consistent view of pool, entries and vault
	err := s.db.RunInTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
		pool, err := tx.GetPool(ctx, poolAddr)
		if err != nil {
			return err
		}
		sum, count, err := tx.SumStakeEntryBalances(ctx, poolAddr)
		if err != nil {
			return err
		}
		vault, err := tx.GetTokenAccount(ctx, pool.Vault)
		if err != nil {
			return err
		}

		total := pool.TotalStaked
		stats = &model.PoolStatsDocument{
			Pool:            pool.Address,
			StakedMint:      pool.StakedMint,
			EntryCount:      count,
			TotalStaked:     total,
			EntryBalanceSum: sum.String(),
			VaultBalance:    vault.Amount,
			Consistent:      sum.Equal(sdkmath.NewUint(total.Uint64())) && vault.Amount == total,
			LastUpdated:     s.now(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordPoolState(stats.StakedMint, stats.TotalStaked.Uint64(), stats.EntryCount)
	if !stats.Consistent {
		metrics.IncPoolInvariantViolation(stats.StakedMint)
		log.Ctx(ctx).Error().
			Str("pool", stats.Pool).
			Uint64("total_staked", stats.TotalStaked.Uint64()).
			Str("entry_balance_sum", stats.EntryBalanceSum).
			Uint64("vault_balance", stats.VaultBalance.Uint64()).
			Msg("Pool is out of sync")
	}

	if err := s.db.UpsertPoolStats(ctx, stats); err != nil {
		return nil, err
	}
	return stats, nil
}
