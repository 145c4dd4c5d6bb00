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

type WithdrawRequest struct {
	Caller     address.Address
	Pool       address.Address
	StakedMint address.Address
	StakeEntry address.Address
	// Destination is the caller's staked token account receiving the balance.
	Destination       address.Address
	RewardMint        address.Address
	RewardDestination address.Address
}

// Withdraw returns the whole balance of a stake entry to the caller and mints
// RewardMultiplier reward tokens per withdrawn token to the entry's reward
// destination. All arithmetic is checked before any tokens move.
func (s *Service) Withdraw(ctx context.Context, req *WithdrawRequest) (*OperationResult, error) {
	var result *OperationResult

	err := s.observe("withdraw", func() error {
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

			if entry.Balance > pool.TotalStaked {
				return types.NewOverdrawError("stake entry %s balance %d exceeds pool total %d", entry.Address, entry.Balance, pool.TotalStaked)
			}
			if entry.RewardDestination != req.RewardDestination.String() {
				return types.NewInvalidAuthorizationError("reward destination %s is not the one recorded for %s", req.RewardDestination, entry.Address)
			}
			if pool.RewardMint != req.RewardMint.String() {
				return types.NewInvalidTokenTypeError("pool %s rewards %s, not %s", pool.Address, pool.RewardMint, req.RewardMint)
			}
			if req.Destination.String() == pool.Vault {
				return types.NewInvalidAuthorizationError("destination %s is the vault of pool %s", req.Destination, pool.Address)
			}
			if _, err := s.requireTokenAccountMint(ctx, tx, req.Destination, pool.StakedMint); err != nil {
				return err
			}

			amount := entry.Balance.Uint64()
			log.Ctx(ctx).Debug().
				Uint64("pool_total", pool.TotalStaked.Uint64()).
				Uint64("entry_balance", amount).
				Msg("Withdrawing from pool")

			reward, ok := utils.CheckedMul(amount, RewardMultiplier)
			if !ok {
				return types.NewArithmeticOverflowError("reward for %d staked tokens overflows", amount)
			}
			newTotal, ok := utils.CheckedSub(pool.TotalStaked.Uint64(), amount)
			if !ok {
				return types.NewArithmeticUnderflowError("pool %s total %d is below %d", pool.Address, pool.TotalStaked, amount)
			}
			newBalance, ok := utils.CheckedSub(entry.Balance.Uint64(), amount)
			if !ok {
				return types.NewArithmeticUnderflowError("stake entry %s balance %d is below %d", entry.Address, entry.Balance, amount)
			}

			authority, err := s.vaultAuthority(pool)
			if err != nil {
				return err
			}

			err = s.ledger.Transfer(ctx, tx, pool.Vault, req.Destination.String(), authority.String(), amount, pool.StakedMint)
			if err != nil {
				return ledgerError(err)
			}
			err = s.ledger.MintTo(ctx, tx, pool.RewardMint, entry.RewardDestination, authority.String(), reward)
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
				Amount: amount,
				Reward: reward,
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
		Uint64("reward", result.Reward).
		Uint64("pool_total", result.Pool.TotalStaked.Uint64()).
		Msg("Withdrawal committed")

	s.emitLedgerEvent(ctx, types.EventWithdrawal, result)
	return result, nil
}
