package services

import (
	"context"
	"testing"
	"time"

	"github.com/babylonlabs-io/staking-ledger/consumer"
	"github.com/babylonlabs-io/staking-ledger/internal/address"
	"github.com/babylonlabs-io/staking-ledger/internal/config"
	"github.com/babylonlabs-io/staking-ledger/internal/db"
	"github.com/babylonlabs-io/staking-ledger/internal/db/model"
	"github.com/babylonlabs-io/staking-ledger/internal/tokenledger"
	"github.com/babylonlabs-io/staking-ledger/internal/types"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const initialUserFunds uint64 = 1_000

var testNow = time.Unix(1_700_000_000, 0)

type user struct {
	addr        address.Address
	stakedAcct  address.Address
	rewardAcct  address.Address
	stakeEntry  address.Address
	entryExists bool
}

type testEnv struct {
	svc        *Service
	store      db.DbInterface
	admin      address.Address
	stakedMint address.Address
	rewardMint address.Address
	pool       address.Address
}

func newCaller(t *testing.T) address.Address {
	t.Helper()

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return address.FromPublicKey(priv.PubKey())
}

func testConfig() *config.Config {
	return &config.Config{
		Ledger: config.LedgerConfig{Namespace: "staking-ledger/" + gofakeit.LetterN(8)},
		Poller: config.PollerConfig{ReconciliationInterval: time.Hour},
	}
}

// newTestEnv returns a service on an in-memory store with a staked mint owned
// by admin and a reward mint issued by the vault authority. No pool exists yet.
func newTestEnv(t *testing.T, eventConsumer consumer.EventConsumer) *testEnv {
	t.Helper()

	store, err := db.NewLevelDB(config.DbConfig{Backend: config.LevelDBBackend, TxRetryAttempts: 1000})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	return newTestEnvOn(t, store, eventConsumer)
}

func newTestEnvOn(t *testing.T, store db.DbInterface, eventConsumer consumer.EventConsumer) *testEnv {
	t.Helper()

	svc := NewService(testConfig(), store, tokenledger.New(), eventConsumer)
	svc.SetNowFunc(func() time.Time { return testNow })

	env := &testEnv{
		svc:   svc,
		store: store,
		admin: newCaller(t),
	}

	authority, _, err := svc.VaultAuthority()
	require.NoError(t, err)

	staked, err := svc.CreateMint(t.Context(), &CreateMintRequest{Creator: env.admin, Seed: "staked", Decimals: 6})
	require.NoError(t, err)
	reward, err := svc.CreateMint(t.Context(), &CreateMintRequest{
		Creator:   env.admin,
		Seed:      "reward",
		Authority: authority,
		Decimals:  6,
	})
	require.NoError(t, err)

	env.stakedMint, err = address.Parse(staked.Address)
	require.NoError(t, err)
	env.rewardMint, err = address.Parse(reward.Address)
	require.NoError(t, err)
	env.pool, _, err = svc.PoolAddress(env.stakedMint)
	require.NoError(t, err)

	return env
}

func (e *testEnv) initPool(t *testing.T) *model.PoolDocument {
	t.Helper()

	pool, err := e.svc.InitializePool(t.Context(), e.admin, e.stakedMint, e.rewardMint)
	require.NoError(t, err)
	return pool
}

// newUser creates a funded user with token accounts for both mints and,
// if the pool exists, a stake entry.
func (e *testEnv) newUser(t *testing.T, withEntry bool) *user {
	t.Helper()
	ctx := t.Context()

	u := &user{addr: newCaller(t)}

	staked, err := e.svc.CreateTokenAccount(ctx, u.addr, e.stakedMint)
	require.NoError(t, err)
	u.stakedAcct = mustParse(t, staked.Address)

	reward, err := e.svc.CreateTokenAccount(ctx, u.addr, e.rewardMint)
	require.NoError(t, err)
	u.rewardAcct = mustParse(t, reward.Address)

	require.NoError(t, e.svc.IssueTokens(ctx, e.admin, e.stakedMint, u.stakedAcct, initialUserFunds))

	if withEntry {
		entry, err := e.svc.InitializeStakeEntry(ctx, u.addr, e.pool, u.rewardAcct)
		require.NoError(t, err)
		u.stakeEntry = mustParse(t, entry.Address)
		u.entryExists = true
	}

	return u
}

func (e *testEnv) depositRequest(u *user, amount uint64) *DepositRequest {
	return &DepositRequest{
		Caller:     u.addr,
		Pool:       e.pool,
		StakedMint: e.stakedMint,
		StakeEntry: u.stakeEntry,
		Source:     u.stakedAcct,
		Amount:     amount,
	}
}

func (e *testEnv) withdrawRequest(u *user) *WithdrawRequest {
	return &WithdrawRequest{
		Caller:            u.addr,
		Pool:              e.pool,
		StakedMint:        e.stakedMint,
		StakeEntry:        u.stakeEntry,
		Destination:       u.stakedAcct,
		RewardMint:        e.rewardMint,
		RewardDestination: u.rewardAcct,
	}
}

func (e *testEnv) balance(t *testing.T, account address.Address) uint64 {
	t.Helper()

	doc, err := e.store.GetTokenAccount(t.Context(), account.String())
	require.NoError(t, err)
	return doc.Amount.Uint64()
}

func (e *testEnv) getPool(t *testing.T) *model.PoolDocument {
	t.Helper()

	pool, err := e.store.GetPool(t.Context(), e.pool.String())
	require.NoError(t, err)
	return pool
}

func (e *testEnv) getEntry(t *testing.T, u *user) *model.StakeEntryDocument {
	t.Helper()

	entry, err := e.store.GetStakeEntry(t.Context(), u.stakeEntry.String())
	require.NoError(t, err)
	return entry
}

func (e *testEnv) vault(t *testing.T) address.Address {
	return mustParse(t, e.getPool(t).Vault)
}

// tamper writes records directly, bypassing every ledger check.
func (e *testEnv) tamper(t *testing.T, fn func(ctx context.Context, tx db.Tx) error) {
	t.Helper()
	require.NoError(t, e.store.RunInTransaction(t.Context(), fn))
}

// snapshot captures every record an operation may touch.
type snapshot struct {
	pool       model.PoolDocument
	entries    map[string]model.StakeEntryDocument
	accounts   map[string]uint64
	rewardMint model.MintDocument
}

func (e *testEnv) snapshot(t *testing.T, users ...*user) snapshot {
	t.Helper()

	s := snapshot{
		pool:     *e.getPool(t),
		entries:  make(map[string]model.StakeEntryDocument),
		accounts: make(map[string]uint64),
	}
	s.accounts[s.pool.Vault] = e.balance(t, e.vault(t))

	for _, u := range users {
		if u.entryExists {
			s.entries[u.stakeEntry.String()] = *e.getEntry(t, u)
		}
		s.accounts[u.stakedAcct.String()] = e.balance(t, u.stakedAcct)
		s.accounts[u.rewardAcct.String()] = e.balance(t, u.rewardAcct)
	}

	mint, err := e.store.GetMint(t.Context(), e.rewardMint.String())
	require.NoError(t, err)
	s.rewardMint = *mint

	return s
}

// requireInvariants checks that the pool total equals both the sum of all
// entry balances and the vault balance, and that no entry exceeds the total.
func (e *testEnv) requireInvariants(t *testing.T) {
	t.Helper()

	pool := e.getPool(t)
	entries, err := e.store.GetStakeEntriesByPool(t.Context(), pool.Address)
	require.NoError(t, err)

	var sum uint64
	for _, entry := range entries {
		assert.LessOrEqual(t, entry.Balance.Uint64(), pool.TotalStaked.Uint64())
		sum += entry.Balance.Uint64()
	}
	require.Equal(t, pool.TotalStaked.Uint64(), sum)
	require.Equal(t, pool.TotalStaked.Uint64(), e.balance(t, mustParse(t, pool.Vault)))
}

func requireErrorCode(t *testing.T, err error, code types.ErrorCode) {
	t.Helper()

	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, code), "expected %s, got %v", code, err)
}

func mustParse(t *testing.T, s string) address.Address {
	t.Helper()

	addr, err := address.Parse(s)
	require.NoError(t, err)
	return addr
}
