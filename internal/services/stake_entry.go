package services

import (
	"context"

	"github.com/babylonlabs-io/staking-ledger/internal/address"
	"github.com/babylonlabs-io/staking-ledger/internal/db"
	"github.com/babylonlabs-io/staking-ledger/internal/db/model"
	"github.com/babylonlabs-io/staking-ledger/internal/types"
	"github.com/rs/zerolog/log"
)

// InitializeStakeEntry creates the empty stake entry of owner in a pool. The
// reward destination must be a reward token account held by the owner.
func (s *Service) InitializeStakeEntry(
	ctx context.Context, owner, poolAddr, rewardDestination address.Address,
) (*model.StakeEntryDocument, error) {
	var entry *model.StakeEntryDocument

	err := s.observe("initialize_stake_entry", func() error {
		return s.db.RunInTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
			entry = nil

			pool, err := s.loadPool(ctx, tx, poolAddr)
			if err != nil {
				return err
			}

			rewardAccount, err := s.requireTokenAccountMint(ctx, tx, rewardDestination, pool.RewardMint)
			if err != nil {
				return err
			}
			if rewardAccount.Owner != owner.String() {
				return types.NewInvalidAuthorizationError("reward destination %s is not owned by %s", rewardDestination, owner)
			}

			stakedMint, err := address.Parse(pool.StakedMint)
			if err != nil {
				return types.NewInternalServiceError(err)
			}
			entryAddr, entryNonce, err := s.StakeEntryAddress(owner, stakedMint)
			if err != nil {
				return types.NewInternalServiceError(err)
			}

			doc := &model.StakeEntryDocument{
				Address:           entryAddr.String(),
				Nonce:             entryNonce,
				Owner:             owner.String(),
				Pool:              pool.Address,
				StakedMint:        pool.StakedMint,
				RewardDestination: rewardDestination.String(),
				LastActivityTime:  s.now(),
			}
			if err := tx.InsertStakeEntry(ctx, doc); err != nil {
				if db.IsDuplicateKeyError(err) {
					return types.NewAlreadyInitializedError("stake entry of %s in pool %s is already initialized", owner, pool.Address)
				}
				return err
			}

			entry = doc
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("stake_entry", entry.Address).
		Str("owner", entry.Owner).
		Str("pool", entry.Pool).
		Uint64("balance", entry.Balance.Uint64()).
		Msg("Stake entry initialized")

	return entry, nil
}

// GetStakeEntry returns a stake entry record.
func (s *Service) GetStakeEntry(ctx context.Context, entryAddr address.Address) (*model.StakeEntryDocument, error) {
	entry, err := s.db.GetStakeEntry(ctx, entryAddr.String())
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.NewNotFoundError("stake entry %s is not initialized", entryAddr)
		}
		return nil, types.NewInternalServiceError(err)
	}
	return entry, nil
}
