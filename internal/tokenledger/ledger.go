// Package tokenledger keeps mints and token accounts in the record store and
// performs authorized transfers and issuance inside the caller's transaction.
package tokenledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/babylonlabs-io/staking-ledger/internal/db"
	"github.com/babylonlabs-io/staking-ledger/internal/db/model"
	"github.com/babylonlabs-io/staking-ledger/internal/utils"
	"github.com/rs/zerolog/log"
)

var (
	ErrMintNotFound          = errors.New("mint not found")
	ErrAccountNotFound       = errors.New("token account not found")
	ErrOwnerMismatch         = errors.New("authority does not own the source account")
	ErrMintAuthorityMismatch = errors.New("authority is not the mint authority")
	ErrMintMismatch          = errors.New("account does not hold the given mint")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrOverflow              = errors.New("amount overflows")
)

type Ledger struct{}

func New() *Ledger {
	return &Ledger{}
}

// CreateMint registers a new token type. DuplicateKeyError is returned if
// the address is taken.
func (l *Ledger) CreateMint(ctx context.Context, tx db.Tx, mint, authority string, decimals uint8) error {
	return tx.InsertMint(ctx, &model.MintDocument{
		Address:   mint,
		Authority: authority,
		Decimals:  decimals,
	})
}

// CreateAccount opens an empty account for mint owned by owner.
func (l *Ledger) CreateAccount(ctx context.Context, tx db.Tx, account, mint, owner string) error {
	if _, err := l.getMint(ctx, tx, mint); err != nil {
		return err
	}

	return tx.InsertTokenAccount(ctx, &model.TokenAccountDocument{
		Address: account,
		Mint:    mint,
		Owner:   owner,
	})
}

// Transfer moves amount of mint from one account to another. The authority
// must own the source account.
func (l *Ledger) Transfer(ctx context.Context, tx db.Tx, from, to, authority string, amount uint64, mint string) error {
	source, err := l.getAccount(ctx, tx, from)
	if err != nil {
		return err
	}
	if source.Owner != authority {
		return fmt.Errorf("%w: %s", ErrOwnerMismatch, from)
	}
	if source.Mint != mint {
		return fmt.Errorf("%w: source %s", ErrMintMismatch, from)
	}

	destination, err := l.getAccount(ctx, tx, to)
	if err != nil {
		return err
	}
	if destination.Mint != mint {
		return fmt.Errorf("%w: destination %s", ErrMintMismatch, to)
	}

	remaining, ok := utils.CheckedSub(source.Amount.Uint64(), amount)
	if !ok {
		return fmt.Errorf("%w: %s holds %d, requested %d", ErrInsufficientFunds, from, source.Amount, amount)
	}

	if from == to {
		return nil
	}

	credited, ok := utils.CheckedAdd(destination.Amount.Uint64(), amount)
	if !ok {
		return fmt.Errorf("%w: destination %s balance", ErrOverflow, to)
	}

	source.Amount = model.Amount(remaining)
	destination.Amount = model.Amount(credited)

	if err := tx.UpdateTokenAccount(ctx, source); err != nil {
		return err
	}
	if err := tx.UpdateTokenAccount(ctx, destination); err != nil {
		return err
	}

	log.Ctx(ctx).Debug().
		Str("from", from).
		Str("to", to).
		Uint64("amount", amount).
		Msg("tokens transferred")
	return nil
}

// MintTo issues amount of new tokens into an account. The authority must be
// the mint authority.
func (l *Ledger) MintTo(ctx context.Context, tx db.Tx, mint, to, authority string, amount uint64) error {
	mintDoc, err := l.getMint(ctx, tx, mint)
	if err != nil {
		return err
	}
	if mintDoc.Authority != authority {
		return fmt.Errorf("%w: %s", ErrMintAuthorityMismatch, mint)
	}

	destination, err := l.getAccount(ctx, tx, to)
	if err != nil {
		return err
	}
	if destination.Mint != mint {
		return fmt.Errorf("%w: destination %s", ErrMintMismatch, to)
	}

	supply, ok := utils.CheckedAdd(mintDoc.Supply.Uint64(), amount)
	if !ok {
		return fmt.Errorf("%w: supply of %s", ErrOverflow, mint)
	}
	credited, ok := utils.CheckedAdd(destination.Amount.Uint64(), amount)
	if !ok {
		return fmt.Errorf("%w: destination %s balance", ErrOverflow, to)
	}

	mintDoc.Supply = model.Amount(supply)
	destination.Amount = model.Amount(credited)

	if err := tx.UpdateMint(ctx, mintDoc); err != nil {
		return err
	}
	if err := tx.UpdateTokenAccount(ctx, destination); err != nil {
		return err
	}

	log.Ctx(ctx).Debug().
		Str("mint", mint).
		Str("to", to).
		Uint64("amount", amount).
		Msg("tokens minted")
	return nil
}

func (l *Ledger) getMint(ctx context.Context, tx db.Tx, mint string) (*model.MintDocument, error) {
	doc, err := tx.GetMint(ctx, mint)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", ErrMintNotFound, mint)
		}
		return nil, err
	}
	return doc, nil
}

func (l *Ledger) getAccount(ctx context.Context, tx db.Tx, account string) (*model.TokenAccountDocument, error) {
	doc, err := tx.GetTokenAccount(ctx, account)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, account)
		}
		return nil, err
	}
	return doc, nil
}
