package tokenledger_test

import (
	"context"
	"math"
	"testing"

	"github.com/babylonlabs-io/staking-ledger/internal/config"
	"github.com/babylonlabs-io/staking-ledger/internal/db"
	"github.com/babylonlabs-io/staking-ledger/internal/tokenledger"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store     *db.LevelDB
	ledger    *tokenledger.Ledger
	mint      string
	authority string
	alice     string
	bob       string
}

func setup(t *testing.T) *fixture {
	t.Helper()

	store, err := db.NewLevelDB(config.DbConfig{Backend: config.LevelDBBackend})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	f := &fixture{
		store:     store,
		ledger:    tokenledger.New(),
		mint:      gofakeit.UUID(),
		authority: gofakeit.UUID(),
		alice:     gofakeit.UUID(),
		bob:       gofakeit.UUID(),
	}

	err = store.RunInTransaction(t.Context(), func(ctx context.Context, tx db.Tx) error {
		if err := f.ledger.CreateMint(ctx, tx, f.mint, f.authority, 6); err != nil {
			return err
		}
		if err := f.ledger.CreateAccount(ctx, tx, f.alice, f.mint, "alice"); err != nil {
			return err
		}
		if err := f.ledger.CreateAccount(ctx, tx, f.bob, f.mint, "bob"); err != nil {
			return err
		}
		return f.ledger.MintTo(ctx, tx, f.mint, f.alice, f.authority, 500)
	})
	require.NoError(t, err)

	return f
}

func (f *fixture) run(t *testing.T, fn func(ctx context.Context, tx db.Tx) error) error {
	return f.store.RunInTransaction(t.Context(), fn)
}

func (f *fixture) balance(t *testing.T, account string) uint64 {
	doc, err := f.store.GetTokenAccount(t.Context(), account)
	require.NoError(t, err)
	return doc.Amount.Uint64()
}

func TestCreate(t *testing.T) {
	f := setup(t)

	t.Run("duplicate mint", func(t *testing.T) {
		err := f.run(t, func(ctx context.Context, tx db.Tx) error {
			return f.ledger.CreateMint(ctx, tx, f.mint, f.authority, 0)
		})
		assert.True(t, db.IsDuplicateKeyError(err))
	})

	t.Run("duplicate account", func(t *testing.T) {
		err := f.run(t, func(ctx context.Context, tx db.Tx) error {
			return f.ledger.CreateAccount(ctx, tx, f.alice, f.mint, "alice")
		})
		assert.True(t, db.IsDuplicateKeyError(err))
	})

	t.Run("account for unknown mint", func(t *testing.T) {
		err := f.run(t, func(ctx context.Context, tx db.Tx) error {
			return f.ledger.CreateAccount(ctx, tx, gofakeit.UUID(), gofakeit.UUID(), "carol")
		})
		assert.ErrorIs(t, err, tokenledger.ErrMintNotFound)
	})
}

func TestTransfer(t *testing.T) {
	t.Run("moves funds", func(t *testing.T) {
		f := setup(t)

		err := f.run(t, func(ctx context.Context, tx db.Tx) error {
			return f.ledger.Transfer(ctx, tx, f.alice, f.bob, "alice", 200, f.mint)
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(300), f.balance(t, f.alice))
		assert.Equal(t, uint64(200), f.balance(t, f.bob))
	})

	t.Run("zero amount", func(t *testing.T) {
		f := setup(t)

		err := f.run(t, func(ctx context.Context, tx db.Tx) error {
			return f.ledger.Transfer(ctx, tx, f.alice, f.bob, "alice", 0, f.mint)
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(500), f.balance(t, f.alice))
		assert.Zero(t, f.balance(t, f.bob))
	})

	t.Run("self transfer keeps balance", func(t *testing.T) {
		f := setup(t)

		err := f.run(t, func(ctx context.Context, tx db.Tx) error {
			return f.ledger.Transfer(ctx, tx, f.alice, f.alice, "alice", 100, f.mint)
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(500), f.balance(t, f.alice))
	})

	t.Run("rejections", func(t *testing.T) {
		f := setup(t)

		cases := []struct {
			name      string
			from, to  string
			authority string
			amount    uint64
			mint      string
			expected  error
		}{
			{"wrong owner", f.alice, f.bob, "bob", 1, f.mint, tokenledger.ErrOwnerMismatch},
			{"wrong mint", f.alice, f.bob, "alice", 1, gofakeit.UUID(), tokenledger.ErrMintMismatch},
			{"insufficient funds", f.alice, f.bob, "alice", 501, f.mint, tokenledger.ErrInsufficientFunds},
			{"missing source", gofakeit.UUID(), f.bob, "alice", 1, f.mint, tokenledger.ErrAccountNotFound},
			{"missing destination", f.alice, gofakeit.UUID(), "alice", 1, f.mint, tokenledger.ErrAccountNotFound},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				err := f.run(t, func(ctx context.Context, tx db.Tx) error {
					return f.ledger.Transfer(ctx, tx, tc.from, tc.to, tc.authority, tc.amount, tc.mint)
				})
				assert.ErrorIs(t, err, tc.expected)
				assert.Equal(t, uint64(500), f.balance(t, f.alice))
				assert.Zero(t, f.balance(t, f.bob))
			})
		}
	})

	t.Run("destination overflow", func(t *testing.T) {
		f := setup(t)

		err := f.run(t, func(ctx context.Context, tx db.Tx) error {
			return f.ledger.MintTo(ctx, tx, f.mint, f.bob, f.authority, math.MaxUint64-500)
		})
		require.NoError(t, err)

		err = f.run(t, func(ctx context.Context, tx db.Tx) error {
			return f.ledger.Transfer(ctx, tx, f.alice, f.bob, "alice", 1, f.mint)
		})
		assert.ErrorIs(t, err, tokenledger.ErrOverflow)
	})
}

func TestMintTo(t *testing.T) {
	t.Run("issues and tracks supply", func(t *testing.T) {
		f := setup(t)

		err := f.run(t, func(ctx context.Context, tx db.Tx) error {
			return f.ledger.MintTo(ctx, tx, f.mint, f.bob, f.authority, 1000)
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(1000), f.balance(t, f.bob))

		mint, err := f.store.GetMint(t.Context(), f.mint)
		require.NoError(t, err)
		assert.Equal(t, uint64(1500), mint.Supply.Uint64())
	})

	t.Run("wrong authority", func(t *testing.T) {
		f := setup(t)

		err := f.run(t, func(ctx context.Context, tx db.Tx) error {
			return f.ledger.MintTo(ctx, tx, f.mint, f.bob, "alice", 1)
		})
		assert.ErrorIs(t, err, tokenledger.ErrMintAuthorityMismatch)
	})

	t.Run("supply overflow", func(t *testing.T) {
		f := setup(t)

		err := f.run(t, func(ctx context.Context, tx db.Tx) error {
			return f.ledger.MintTo(ctx, tx, f.mint, f.bob, f.authority, math.MaxUint64)
		})
		assert.ErrorIs(t, err, tokenledger.ErrOverflow)
		assert.Zero(t, f.balance(t, f.bob))
	})

	t.Run("unknown mint", func(t *testing.T) {
		f := setup(t)

		err := f.run(t, func(ctx context.Context, tx db.Tx) error {
			return f.ledger.MintTo(ctx, tx, gofakeit.UUID(), f.bob, f.authority, 1)
		})
		assert.ErrorIs(t, err, tokenledger.ErrMintNotFound)
	})
}
