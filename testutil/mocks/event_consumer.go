package mocks

import (
	"context"

	"github.com/babylonlabs-io/staking-ledger/internal/types"
	"github.com/stretchr/testify/mock"
)

// EventConsumer is a mock of consumer.EventConsumer
type EventConsumer struct {
	mock.Mock
}

func (m *EventConsumer) Start() error {
	return m.Called().Error(0)
}

func (m *EventConsumer) PushDepositEvent(ctx context.Context, ev *types.LedgerEvent) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *EventConsumer) PushWithdrawalEvent(ctx context.Context, ev *types.LedgerEvent) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *EventConsumer) Stop() error {
	return m.Called().Error(0)
}

// NewEventConsumer creates a new EventConsumer mock and registers a cleanup
// function asserting the mock's expectations.
func NewEventConsumer(t interface {
	mock.TestingT
	Cleanup(func())
}) *EventConsumer {
	m := &EventConsumer{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
