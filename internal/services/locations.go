package services

import (
	"context"
	"fmt"

	"github.com/babylonlabs-io/staking-ledger/internal/address"
	"github.com/babylonlabs-io/staking-ledger/internal/db"
	"github.com/babylonlabs-io/staking-ledger/internal/db/model"
	"github.com/babylonlabs-io/staking-ledger/internal/types"
)

const (
	poolSeed           = "state"
	vaultSeed          = "vault"
	vaultAuthoritySeed = "vault_authority"
	stakeEntrySeed     = "stake_entry"
	mintSeed           = "mint"
	tokenAccountSeed   = "token_account"
)

// VaultAuthority returns the keyless authority owning every pool vault and
// issuing every reward token of this ledger.
func (s *Service) VaultAuthority() (address.Address, uint8, error) {
	return address.Derive(s.namespace, []byte(vaultAuthoritySeed))
}

// PoolAddress returns the location of the pool of a staked token type.
func (s *Service) PoolAddress(stakedMint address.Address) (address.Address, uint8, error) {
	return address.Derive(s.namespace, stakedMint.Bytes(), []byte(poolSeed))
}

func (s *Service) vaultAddress(stakedMint, authority address.Address) (address.Address, uint8, error) {
	return address.Derive(s.namespace, stakedMint.Bytes(), authority.Bytes(), []byte(vaultSeed))
}

// StakeEntryAddress returns the location of the stake entry of owner in the
// pool of stakedMint.
func (s *Service) StakeEntryAddress(owner, stakedMint address.Address) (address.Address, uint8, error) {
	return address.Derive(s.namespace, owner.Bytes(), stakedMint.Bytes(), []byte(stakeEntrySeed))
}

// MintAddress returns the location of a token type created by creator under seed.
func (s *Service) MintAddress(creator address.Address, seed string) (address.Address, uint8, error) {
	return address.Derive(s.namespace, creator.Bytes(), []byte(seed), []byte(mintSeed))
}

// TokenAccountAddress returns the location of the token account of owner for mint.
func (s *Service) TokenAccountAddress(owner, mint address.Address) (address.Address, uint8, error) {
	return address.Derive(s.namespace, owner.Bytes(), mint.Bytes(), []byte(tokenAccountSeed))
}

// loadPool reads the pool record at poolAddr and checks that the recorded
// pool, vault and authority locations re-derive from their nonces.
func (s *Service) loadPool(ctx context.Context, r db.Reader, poolAddr address.Address) (*model.PoolDocument, error) {
	pool, err := r.GetPool(ctx, poolAddr.String())
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.NewNotFoundError("pool %s is not initialized", poolAddr)
		}
		return nil, types.NewInternalServiceError(err)
	}

	if err := s.verifyPool(poolAddr, pool); err != nil {
		return nil, err
	}
	return pool, nil
}

func (s *Service) verifyPool(poolAddr address.Address, pool *model.PoolDocument) error {
	stakedMint, err := address.Parse(pool.StakedMint)
	if err != nil {
		return types.NewInternalServiceError(fmt.Errorf("pool %s: %w", poolAddr, err))
	}
	authority, err := s.vaultAuthority(pool)
	if err != nil {
		return err
	}
	vault, err := address.Parse(pool.Vault)
	if err != nil {
		return types.NewInternalServiceError(fmt.Errorf("pool %s vault: %w", poolAddr, err))
	}

	if !address.Verify(s.namespace, poolAddr, pool.Nonce, stakedMint.Bytes(), []byte(poolSeed)) {
		return types.NewInvalidAuthorizationError("pool %s is not at its derived location", poolAddr)
	}
	if !address.Verify(s.namespace, vault, pool.VaultNonce, stakedMint.Bytes(), authority.Bytes(), []byte(vaultSeed)) {
		return types.NewInvalidAuthorizationError("vault %s of pool %s is not at its derived location", vault, poolAddr)
	}
	return nil
}

// vaultAuthority re-derives the vault authority of a pool from its recorded nonce.
func (s *Service) vaultAuthority(pool *model.PoolDocument) (address.Address, error) {
	authority, err := address.CreateWithNonce(s.namespace, pool.AuthorityNonce, []byte(vaultAuthoritySeed))
	if err != nil || authority.String() != pool.VaultAuthority {
		return address.Address{}, types.NewInvalidAuthorizationError(
			"vault authority %s of pool %s does not derive from its nonce", pool.VaultAuthority, pool.Address,
		)
	}
	return authority, nil
}

// loadStakeEntry reads the stake entry at entryAddr and checks that it belongs
// to pool and sits at the location derived from its owner.
func (s *Service) loadStakeEntry(
	ctx context.Context, r db.Reader, pool *model.PoolDocument, entryAddr address.Address,
) (*model.StakeEntryDocument, error) {
	entry, err := r.GetStakeEntry(ctx, entryAddr.String())
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.NewNotFoundError("stake entry %s is not initialized", entryAddr)
		}
		return nil, types.NewInternalServiceError(err)
	}

	if entry.Pool != pool.Address || entry.StakedMint != pool.StakedMint {
		return nil, types.NewInvalidAuthorizationError("stake entry %s does not belong to pool %s", entryAddr, pool.Address)
	}

	owner, err := address.Parse(entry.Owner)
	if err != nil {
		return nil, types.NewInternalServiceError(fmt.Errorf("stake entry %s owner: %w", entryAddr, err))
	}
	stakedMint, err := address.Parse(entry.StakedMint)
	if err != nil {
		return nil, types.NewInternalServiceError(fmt.Errorf("stake entry %s mint: %w", entryAddr, err))
	}
	if !address.Verify(s.namespace, entryAddr, entry.Nonce, owner.Bytes(), stakedMint.Bytes(), []byte(stakeEntrySeed)) {
		return nil, types.NewInvalidAuthorizationError("stake entry %s is not at its derived location", entryAddr)
	}

	return entry, nil
}

// requireTokenAccountMint checks that account exists and holds mint.
func (s *Service) requireTokenAccountMint(
	ctx context.Context, r db.Reader, account address.Address, mint string,
) (*model.TokenAccountDocument, error) {
	doc, err := r.GetTokenAccount(ctx, account.String())
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.NewNotFoundError("token account %s does not exist", account)
		}
		return nil, types.NewInternalServiceError(err)
	}

	if doc.Mint != mint {
		return nil, types.NewInvalidTokenTypeError("token account %s holds %s, expected %s", account, doc.Mint, mint)
	}
	return doc, nil
}

// ledgerError wraps a token ledger failure. Store conflicts are passed on
// untouched so the transaction can be retried.
func ledgerError(err error) error {
	if db.IsWriteConflictError(err) {
		return err
	}
	return types.NewExternalTransferFailure(err)
}
