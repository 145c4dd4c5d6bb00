package services

import (
	"context"

	"github.com/babylonlabs-io/staking-ledger/internal/address"
	"github.com/babylonlabs-io/staking-ledger/internal/db"
	"github.com/babylonlabs-io/staking-ledger/internal/db/model"
	"github.com/babylonlabs-io/staking-ledger/internal/types"
	"github.com/rs/zerolog/log"
)

// InitializePool creates the pool of stakedMint with an empty vault owned by
// the vault authority. Only the authority of the staked mint may do so.
func (s *Service) InitializePool(
	ctx context.Context, caller, stakedMint, rewardMint address.Address,
) (*model.PoolDocument, error) {
	var pool *model.PoolDocument

	err := s.observe("initialize_pool", func() error {
		if stakedMint.IsZero() || rewardMint.IsZero() {
			return types.NewInvalidTokenTypeError("staked and reward token types must be set")
		}
		if stakedMint == rewardMint {
			return types.NewInvalidTokenTypeError("staked and reward token types must differ")
		}

		authority, authorityNonce, err := s.VaultAuthority()
		if err != nil {
			return types.NewInternalServiceError(err)
		}
		poolAddr, poolNonce, err := s.PoolAddress(stakedMint)
		if err != nil {
			return types.NewInternalServiceError(err)
		}
		vaultAddr, vaultNonce, err := s.vaultAddress(stakedMint, authority)
		if err != nil {
			return types.NewInternalServiceError(err)
		}

		return s.db.RunInTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
			pool = nil

			staked, err := s.getMint(ctx, tx, stakedMint)
			if err != nil {
				return err
			}
			reward, err := s.getMint(ctx, tx, rewardMint)
			if err != nil {
				return err
			}
			if staked.Authority != caller.String() {
				return types.NewInvalidAuthorizationError("caller %s is not the authority of %s", caller, stakedMint)
			}
			// withdrawals mint rewards as the vault authority
			if reward.Authority != authority.String() {
				return types.NewInvalidTokenTypeError("reward mint %s is not minted by the vault authority %s", rewardMint, authority)
			}

			doc := &model.PoolDocument{
				Address:        poolAddr.String(),
				Nonce:          poolNonce,
				StakedMint:     stakedMint.String(),
				RewardMint:     rewardMint.String(),
				Vault:          vaultAddr.String(),
				VaultNonce:     vaultNonce,
				VaultAuthority: authority.String(),
				AuthorityNonce: authorityNonce,
				CreatedAt:      s.now(),
			}
			if err := tx.InsertPool(ctx, doc); err != nil {
				if db.IsDuplicateKeyError(err) {
					return types.NewAlreadyInitializedError("pool for %s is already initialized", stakedMint)
				}
				return err
			}

			if err := s.ledger.CreateAccount(ctx, tx, doc.Vault, doc.StakedMint, doc.VaultAuthority); err != nil {
				if db.IsDuplicateKeyError(err) {
					return types.NewAlreadyInitializedError("vault %s is already initialized", doc.Vault)
				}
				return ledgerError(err)
			}

			pool = doc
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("pool", pool.Address).
		Str("staked_mint", pool.StakedMint).
		Str("reward_mint", pool.RewardMint).
		Uint64("total_staked", pool.TotalStaked.Uint64()).
		Msg("Pool initialized")

	return pool, nil
}

// GetPool returns the verified pool record at poolAddr.
func (s *Service) GetPool(ctx context.Context, poolAddr address.Address) (*model.PoolDocument, error) {
	pool, err := s.loadPool(ctx, s.db, poolAddr)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// GetPoolByMint returns the pool of a staked token type.
func (s *Service) GetPoolByMint(ctx context.Context, stakedMint address.Address) (*model.PoolDocument, error) {
	poolAddr, _, err := s.PoolAddress(stakedMint)
	if err != nil {
		return nil, types.NewInternalServiceError(err)
	}
	return s.GetPool(ctx, poolAddr)
}

// GetPoolStats returns the last reconciliation result of a pool.
func (s *Service) GetPoolStats(ctx context.Context, poolAddr address.Address) (*model.PoolStatsDocument, error) {
	stats, err := s.db.GetPoolStats(ctx, poolAddr.String())
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.NewNotFoundError("pool %s has not been reconciled yet", poolAddr)
		}
		return nil, types.NewInternalServiceError(err)
	}
	return stats, nil
}

func (s *Service) getMint(ctx context.Context, r db.Reader, mint address.Address) (*model.MintDocument, error) {
	doc, err := r.GetMint(ctx, mint.String())
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.NewInvalidTokenTypeError("token type %s does not exist", mint)
		}
		return nil, types.NewInternalServiceError(err)
	}
	return doc, nil
}
