package services

import (
	"errors"
	"testing"

	"github.com/babylonlabs-io/staking-ledger/internal/types"
	"github.com/babylonlabs-io/staking-ledger/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLedgerEvents(t *testing.T) {
	t.Run("committed operations are published", func(t *testing.T) {
		eventConsumer := mocks.NewEventConsumer(t)
		env := newTestEnv(t, eventConsumer)
		env.initPool(t)
		u := env.newUser(t, true)

		var deposit, withdrawal *types.LedgerEvent
		eventConsumer.On("PushDepositEvent", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { deposit = args.Get(1).(*types.LedgerEvent) }).
			Return(nil).Once()
		eventConsumer.On("PushWithdrawalEvent", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { withdrawal = args.Get(1).(*types.LedgerEvent) }).
			Return(nil).Once()

		_, err := env.svc.Deposit(t.Context(), env.depositRequest(u, 40))
		require.NoError(t, err)
		_, err = env.svc.Withdraw(t.Context(), env.withdrawRequest(u))
		require.NoError(t, err)

		require.NotNil(t, deposit)
		assert.Equal(t, types.EventDeposit, deposit.EventType)
		assert.Equal(t, env.pool.String(), deposit.Pool)
		assert.Equal(t, env.stakedMint.String(), deposit.StakedMint)
		assert.Equal(t, u.stakeEntry.String(), deposit.StakeEntry)
		assert.Equal(t, u.addr.String(), deposit.Owner)
		assert.Equal(t, uint64(40), deposit.Amount)
		assert.Equal(t, uint64(40), deposit.PoolTotal)
		assert.Equal(t, uint64(40), deposit.EntryBalance)
		assert.Equal(t, testNow.Unix(), deposit.Timestamp)

		require.NotNil(t, withdrawal)
		assert.Equal(t, types.EventWithdrawal, withdrawal.EventType)
		assert.Equal(t, uint64(40), withdrawal.Amount)
		assert.Equal(t, uint64(400), withdrawal.Reward)
		assert.Zero(t, withdrawal.PoolTotal)
		assert.NotEqual(t, deposit.ID, withdrawal.ID)
	})

	t.Run("rejected operations are not published", func(t *testing.T) {
		eventConsumer := mocks.NewEventConsumer(t)
		env := newTestEnv(t, eventConsumer)
		env.initPool(t)
		u := env.newUser(t, true)

		_, err := env.svc.Deposit(t.Context(), env.depositRequest(u, initialUserFunds+1))
		requireErrorCode(t, err, types.ExternalTransferFailure)

		eventConsumer.AssertNotCalled(t, "PushDepositEvent", mock.Anything, mock.Anything)
	})

	t.Run("publishing failure keeps the operation", func(t *testing.T) {
		eventConsumer := mocks.NewEventConsumer(t)
		env := newTestEnv(t, eventConsumer)
		env.initPool(t)
		u := env.newUser(t, true)

		eventConsumer.On("PushDepositEvent", mock.Anything, mock.Anything).
			Return(errors.New("broker unreachable")).Once()

		_, err := env.svc.Deposit(t.Context(), env.depositRequest(u, 40))
		require.NoError(t, err)
		assert.Equal(t, uint64(40), env.getEntry(t, u).Balance.Uint64())
		env.requireInvariants(t)
	})
}
