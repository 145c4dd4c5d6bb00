package mocks

import (
	"context"

	"github.com/babylonlabs-io/staking-ledger/internal/db"
	"github.com/stretchr/testify/mock"
)

// TokenLedger is a mock of services.TokenLedger
type TokenLedger struct {
	mock.Mock
}

func (m *TokenLedger) CreateMint(ctx context.Context, tx db.Tx, mint, authority string, decimals uint8) error {
	ret := m.Called(ctx, tx, mint, authority, decimals)

	if rf, ok := ret.Get(0).(func(context.Context, db.Tx, string, string, uint8) error); ok {
		return rf(ctx, tx, mint, authority, decimals)
	}
	return ret.Error(0)
}

func (m *TokenLedger) CreateAccount(ctx context.Context, tx db.Tx, account, mint, owner string) error {
	ret := m.Called(ctx, tx, account, mint, owner)

	if rf, ok := ret.Get(0).(func(context.Context, db.Tx, string, string, string) error); ok {
		return rf(ctx, tx, account, mint, owner)
	}
	return ret.Error(0)
}

func (m *TokenLedger) Transfer(ctx context.Context, tx db.Tx, from, to, authority string, amount uint64, mint string) error {
	ret := m.Called(ctx, tx, from, to, authority, amount, mint)

	if rf, ok := ret.Get(0).(func(context.Context, db.Tx, string, string, string, uint64, string) error); ok {
		return rf(ctx, tx, from, to, authority, amount, mint)
	}
	return ret.Error(0)
}

func (m *TokenLedger) MintTo(ctx context.Context, tx db.Tx, mint, to, authority string, amount uint64) error {
	ret := m.Called(ctx, tx, mint, to, authority, amount)

	if rf, ok := ret.Get(0).(func(context.Context, db.Tx, string, string, string, uint64) error); ok {
		return rf(ctx, tx, mint, to, authority, amount)
	}
	return ret.Error(0)
}

// NewTokenLedger creates a new TokenLedger mock and registers a cleanup
// function asserting the mock's expectations.
func NewTokenLedger(t interface {
	mock.TestingT
	Cleanup(func())
}) *TokenLedger {
	m := &TokenLedger{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
