package services

import (
	"context"
	"time"

	"github.com/babylonlabs-io/staking-ledger/consumer"
	"github.com/babylonlabs-io/staking-ledger/internal/config"
	"github.com/babylonlabs-io/staking-ledger/internal/db"
	"github.com/babylonlabs-io/staking-ledger/internal/observability/metrics"
	"github.com/babylonlabs-io/staking-ledger/internal/types"
)

// RewardMultiplier is the number of reward tokens minted per withdrawn staked token.
const RewardMultiplier uint64 = 10

// TokenLedger performs balance changes of token accounts. Every call runs
// inside the caller's transaction and either fully applies or fails.
type TokenLedger interface {
	CreateMint(ctx context.Context, tx db.Tx, mint, authority string, decimals uint8) error
	CreateAccount(ctx context.Context, tx db.Tx, account, mint, owner string) error
	Transfer(ctx context.Context, tx db.Tx, from, to, authority string, amount uint64, mint string) error
	MintTo(ctx context.Context, tx db.Tx, mint, to, authority string, amount uint64) error
}

type Service struct {
	cfg       *config.Config
	db        db.DbInterface
	ledger    TokenLedger
	consumer  consumer.EventConsumer
	namespace string
	nowFn     func() time.Time
}

func NewService(
	cfg *config.Config,
	db db.DbInterface,
	ledger TokenLedger,
	eventConsumer consumer.EventConsumer,
) *Service {
	if eventConsumer == nil {
		eventConsumer = consumer.NoopConsumer{}
	}

	return &Service{
		cfg:       cfg,
		db:        db,
		ledger:    ledger,
		consumer:  eventConsumer,
		namespace: cfg.Ledger.Namespace,
		nowFn:     time.Now,
	}
}

// SetNowFunc overrides the clock used for activity timestamps.
func (s *Service) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	s.nowFn = now
}

func (s *Service) now() int64 {
	return s.nowFn().Unix()
}

// observe records the duration and outcome of a ledger operation and
// normalizes the returned error to *types.Error.
func (s *Service) observe(operation string, fn func() error) error {
	startTime := time.Now()
	err := fn()

	var errorCode string
	if err != nil {
		typedErr := types.AsError(err)
		errorCode = typedErr.ErrorCode.String()
		err = typedErr
	}

	metrics.RecordLedgerOperation(time.Since(startTime), operation, errorCode)
	return err
}

// Ping checks that the record store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
