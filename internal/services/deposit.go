package services

import (
	"context"

	"github.com/babylonlabs-io/staking-ledger/internal/address"
	"github.com/babylonlabs-io/staking-ledger/internal/db"
	"github.com/babylonlabs-io/staking-ledger/internal/db/model"
	"github.com/babylonlabs-io/staking-ledger/internal/types"
	"github.com/babylonlabs-io/staking-ledger/internal/utils"
	"github.com/rs/zerolog/log"
)

type DepositRequest struct {
	Caller     address.Address
	Pool       address.Address
	StakedMint address.Address
	StakeEntry address.Address
	// Source is the caller's token account the staked tokens are taken from.
	Source address.Address
	Amount uint64
}

// OperationResult holds the records as committed by a deposit or withdrawal.
type OperationResult struct {
	Pool   *model.PoolDocument
	Entry  *model.StakeEntryDocument
	Amount uint64
	Reward uint64
}

// Deposit moves amount staked tokens from the caller into the pool vault and
// credits the caller's stake entry. Both additions are checked before any
// tokens move.
func (s *Service) Deposit(ctx context.Context, req *DepositRequest) (*OperationResult, error) {
	var result *OperationResult

	err := s.observe("deposit", func() error {
		return s.db.RunInTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
			result = nil

			pool, err := s.loadPool(ctx, tx, req.Pool)
			if err != nil {
				return err
			}
			if pool.StakedMint != req.StakedMint.String() {
				return types.NewInvalidTokenTypeError("pool %s stakes %s, not %s", pool.Address, pool.StakedMint, req.StakedMint)
			}

			entry, err := s.loadStakeEntry(ctx, tx, pool, req.StakeEntry)
			if err != nil {
				return err
			}
			if entry.Owner != req.Caller.String() {
				return types.NewInvalidAuthorizationError("caller %s does not own stake entry %s", req.Caller, entry.Address)
			}

			if _, err := s.requireTokenAccountMint(ctx, tx, req.Source, pool.StakedMint); err != nil {
				return err
			}

			log.Ctx(ctx).Debug().
				Uint64("pool_total", pool.TotalStaked.Uint64()).
				Uint64("entry_balance", entry.Balance.Uint64()).
				Uint64("amount", req.Amount).
				Msg("Depositing into pool")

			newTotal, ok := utils.CheckedAdd(pool.TotalStaked.Uint64(), req.Amount)
			if !ok {
				return types.NewArithmeticOverflowError("pool %s total %d cannot take %d more", pool.Address, pool.TotalStaked, req.Amount)
			}
			newBalance, ok := utils.CheckedAdd(entry.Balance.Uint64(), req.Amount)
			if !ok {
				return types.NewArithmeticOverflowError("stake entry %s balance %d cannot take %d more", entry.Address, entry.Balance, req.Amount)
			}

			err = s.ledger.Transfer(ctx, tx, req.Source.String(), pool.Vault, req.Caller.String(), req.Amount, pool.StakedMint)
			if err != nil {
				return ledgerError(err)
			}

			pool.TotalStaked = model.Amount(newTotal)
			entry.Balance = model.Amount(newBalance)
			entry.LastActivityTime = s.now()

			if err := tx.UpdatePool(ctx, pool); err != nil {
				return err
			}
			if err := tx.UpdateStakeEntry(ctx, entry); err != nil {
				return err
			}

			result = &OperationResult{
				Pool:   pool,
				Entry:  entry,
				Amount: req.Amount,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("stake_entry", result.Entry.Address).
		Uint64("amount", result.Amount).
		Uint64("pool_total", result.Pool.TotalStaked.Uint64()).
		Uint64("entry_balance", result.Entry.Balance.Uint64()).
		Msg("Deposit committed")

	s.emitLedgerEvent(ctx, types.EventDeposit, result)
	return result, nil
}
