package consumer

import (
	"context"

	"github.com/babylonlabs-io/staking-ledger/internal/types"
)

type EventConsumer interface {
	Start() error
	PushDepositEvent(ctx context.Context, ev *types.LedgerEvent) error
	PushWithdrawalEvent(ctx context.Context, ev *types.LedgerEvent) error
	Stop() error
}

// NoopConsumer drops every event. It is used when no queue is configured.
type NoopConsumer struct{}

func (NoopConsumer) Start() error { return nil }

func (NoopConsumer) PushDepositEvent(context.Context, *types.LedgerEvent) error { return nil }

func (NoopConsumer) PushWithdrawalEvent(context.Context, *types.LedgerEvent) error { return nil }

func (NoopConsumer) Stop() error { return nil }
