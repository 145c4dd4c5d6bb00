package services

import (
	"context"

	"github.com/babylonlabs-io/staking-ledger/internal/observability/metrics"
	"github.com/babylonlabs-io/staking-ledger/internal/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// emitLedgerEvent publishes a committed operation. Publishing failures are
// logged and counted, the operation itself stays committed.
func (s *Service) emitLedgerEvent(ctx context.Context, eventType types.LedgerEventType, result *OperationResult) {
	ev := &types.LedgerEvent{
		ID:           uuid.New().String(),
		EventType:    eventType,
		Pool:         result.Pool.Address,
		StakedMint:   result.Pool.StakedMint,
		RewardMint:   result.Pool.RewardMint,
		StakeEntry:   result.Entry.Address,
		Owner:        result.Entry.Owner,
		Amount:       result.Amount,
		Reward:       result.Reward,
		PoolTotal:    result.Pool.TotalStaked.Uint64(),
		EntryBalance: result.Entry.Balance.Uint64(),
		Timestamp:    result.Entry.LastActivityTime,
	}

	var err error
	switch eventType {
	case types.EventDeposit:
		err = s.consumer.PushDepositEvent(ctx, ev)
	case types.EventWithdrawal:
		err = s.consumer.PushWithdrawalEvent(ctx, ev)
	}

	if err != nil {
		metrics.RecordQueueSendError()
		log.Ctx(ctx).Error().Err(err).
			Str("event_id", ev.ID).
			Str("event_type", eventType.String()).
			Str("stake_entry", ev.StakeEntry).
			Msg("Failed to publish ledger event")
	}
}
