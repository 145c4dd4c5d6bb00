//go:build integration

package services

import (
	"sync"
	"testing"

	"github.com/babylonlabs-io/staking-ledger/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMongoStakeAndWithdraw(t *testing.T) {
	env := newTestEnvOn(t, testDB, nil)
	env.initPool(t)
	u := env.newUser(t, true)

	_, err := env.svc.Deposit(t.Context(), env.depositRequest(u, 100))
	require.NoError(t, err)
	env.requireInvariants(t)

	result, err := env.svc.Withdraw(t.Context(), env.withdrawRequest(u))
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), result.Reward)
	assert.Equal(t, initialUserFunds, env.balance(t, u.stakedAcct))
	assert.Equal(t, uint64(1000), env.balance(t, u.rewardAcct))
	env.requireInvariants(t)

	t.Run("rejected operation leaves the records untouched", func(t *testing.T) {
		other := env.newUser(t, true)
		before := env.snapshot(t, u, other)

		req := env.depositRequest(other, 10)
		req.StakeEntry = u.stakeEntry
		_, err := env.svc.Deposit(t.Context(), req)
		requireErrorCode(t, err, types.InvalidAuthorization)

		assert.Equal(t, before, env.snapshot(t, u, other))
	})

	t.Run("stats are reconciled", func(t *testing.T) {
		require.NoError(t, env.svc.ReconcilePools(t.Context()))

		stats, err := env.svc.GetPoolStats(t.Context(), env.pool)
		require.NoError(t, err)
		assert.True(t, stats.Consistent)
	})
}

func TestMongoConcurrentDeposits(t *testing.T) {
	env := newTestEnvOn(t, testDB, nil)
	env.initPool(t)

	const stakers = 4
	users := make([]*user, stakers)
	for i := range users {
		users[i] = env.newUser(t, true)
	}

	var wg sync.WaitGroup
	errs := make([]error, stakers)
	for i, u := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = env.svc.Deposit(t.Context(), env.depositRequest(u, uint64(i+1)))
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	// 1 + 2 + 3 + 4
	assert.Equal(t, uint64(10), env.getPool(t).TotalStaked.Uint64())
	env.requireInvariants(t)
}
