package services

import (
	"context"
	"fmt"

	"github.com/babylonlabs-io/staking-ledger/internal/address"
	"github.com/babylonlabs-io/staking-ledger/internal/db"
	"github.com/babylonlabs-io/staking-ledger/internal/db/model"
	"github.com/babylonlabs-io/staking-ledger/internal/types"
	"github.com/rs/zerolog/log"
)

type CreateMintRequest struct {
	Creator address.Address
	Seed    string
	// Authority may issue the token. The creator is used when zero.
	Authority address.Address
	Decimals  uint8
}

// CreateMint registers a token type at the location derived from its creator and seed.
func (s *Service) CreateMint(ctx context.Context, req *CreateMintRequest) (*model.MintDocument, error) {
	var mint *model.MintDocument

	err := s.observe("create_mint", func() error {
		if len(req.Seed) == 0 || len(req.Seed) > address.MaxSeedLength {
			return types.NewValidationFailedError(
				fmt.Errorf("mint seed must be between 1 and %d bytes", address.MaxSeedLength),
			)
		}

		authority := req.Authority
		if authority.IsZero() {
			authority = req.Creator
		}

		mintAddr, _, err := s.MintAddress(req.Creator, req.Seed)
		if err != nil {
			return types.NewInternalServiceError(err)
		}

		return s.db.RunInTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
			mint = nil

			if err := s.ledger.CreateMint(ctx, tx, mintAddr.String(), authority.String(), req.Decimals); err != nil {
				if db.IsDuplicateKeyError(err) {
					return types.NewAlreadyInitializedError("mint %s already exists", mintAddr)
				}
				return ledgerError(err)
			}

			mint = &model.MintDocument{
				Address:   mintAddr.String(),
				Authority: authority.String(),
				Decimals:  req.Decimals,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("mint", mint.Address).
		Str("authority", mint.Authority).
		Msg("Mint created")

	return mint, nil
}

// CreateTokenAccount opens the token account of owner for mint.
func (s *Service) CreateTokenAccount(ctx context.Context, owner, mint address.Address) (*model.TokenAccountDocument, error) {
	var account *model.TokenAccountDocument

	err := s.observe("create_token_account", func() error {
		accountAddr, _, err := s.TokenAccountAddress(owner, mint)
		if err != nil {
			return types.NewInternalServiceError(err)
		}

		return s.db.RunInTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
			account = nil

			if _, err := s.getMint(ctx, tx, mint); err != nil {
				return err
			}
			if err := s.ledger.CreateAccount(ctx, tx, accountAddr.String(), mint.String(), owner.String()); err != nil {
				if db.IsDuplicateKeyError(err) {
					return types.NewAlreadyInitializedError("token account %s already exists", accountAddr)
				}
				return ledgerError(err)
			}

			account = &model.TokenAccountDocument{
				Address: accountAddr.String(),
				Mint:    mint.String(),
				Owner:   owner.String(),
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}

// IssueTokens mints amount of mint into an account, authorized by caller.
func (s *Service) IssueTokens(ctx context.Context, caller, mint, to address.Address, amount uint64) error {
	return s.observe("issue_tokens", func() error {
		return s.db.RunInTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
			if _, err := s.getMint(ctx, tx, mint); err != nil {
				return err
			}
			if _, err := s.requireTokenAccountMint(ctx, tx, to, mint.String()); err != nil {
				return err
			}
			if err := s.ledger.MintTo(ctx, tx, mint.String(), to.String(), caller.String(), amount); err != nil {
				return ledgerError(err)
			}
			return nil
		})
	})
}

func (s *Service) GetMint(ctx context.Context, mint address.Address) (*model.MintDocument, error) {
	doc, err := s.db.GetMint(ctx, mint.String())
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.NewNotFoundError("mint %s does not exist", mint)
		}
		return nil, types.NewInternalServiceError(err)
	}
	return doc, nil
}

func (s *Service) GetTokenAccount(ctx context.Context, account address.Address) (*model.TokenAccountDocument, error) {
	doc, err := s.db.GetTokenAccount(ctx, account.String())
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.NewNotFoundError("token account %s does not exist", account)
		}
		return nil, types.NewInternalServiceError(err)
	}
	return doc, nil
}
