package services

import (
	"testing"
	"time"

	"github.com/babylonlabs-io/staking-ledger/internal/types"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
)

func TestConsumeRequest(t *testing.T) {
	env := newTestEnv(t, nil)
	env.svc.cfg.Ledger.RequestMaxSkew = time.Minute
	signer := newCaller(t)
	digest := gofakeit.HexUint(256)

	require.NoError(t, env.svc.ConsumeRequest(t.Context(), digest, signer))

	err := env.svc.ConsumeRequest(t.Context(), digest, signer)
	requireErrorCode(t, err, types.Unauthorized)

	t.Run("receipt outlives the accepted timestamp window", func(t *testing.T) {
		env.svc.SetNowFunc(func() time.Time { return testNow.Add(time.Minute) })
		require.NoError(t, env.svc.PruneRequestReceipts(t.Context()))
		requireErrorCode(t, env.svc.ConsumeRequest(t.Context(), digest, signer), types.Unauthorized)
	})

	t.Run("expired receipt is pruned", func(t *testing.T) {
		env.svc.SetNowFunc(func() time.Time { return testNow.Add(2 * time.Minute) })
		require.NoError(t, env.svc.PruneRequestReceipts(t.Context()))
		require.NoError(t, env.svc.ConsumeRequest(t.Context(), digest, signer))
	})
}
