package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/babylonlabs-io/staking-ledger/internal/config"
	"github.com/babylonlabs-io/staking-ledger/internal/types"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var ErrNotStarted = errors.New("queue manager is not started")

type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

type dialFunc func(url string) (channel, io.Closer, error)

func dialAmqp(url string) (channel, io.Closer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return ch, conn, nil
}

// QueueManager publishes ledger events to the deposit and withdrawal queues.
type QueueManager struct {
	cfg    *config.QueueConfig
	logger *zap.Logger
	dial   dialFunc

	mu   sync.Mutex
	ch   channel
	conn io.Closer
}

func NewQueueManager(cfg *config.QueueConfig, logger *zap.Logger) (*QueueManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("missing queue config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid queue config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &QueueManager{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "queue_manager")),
		dial:   dialAmqp,
	}, nil
}

// Start connects to the broker and declares both queues.
func (qm *QueueManager) Start() error {
	qm.mu.Lock()
	defer qm.mu.Unlock()

	return retry.Do(
		qm.connectLocked,
		retry.Attempts(qm.cfg.MaxRetryTimes),
		retry.Delay(qm.cfg.RetryInterval),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			qm.logger.Warn("failed to connect to queue", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
}

func (qm *QueueManager) connectLocked() error {
	qm.closeLocked()

	ch, conn, err := qm.dial(qm.cfg.AmqpURL())
	if err != nil {
		return fmt.Errorf("failed to dial queue: %w", err)
	}

	var args amqp.Table
	if qm.cfg.QueueType != "" {
		args = amqp.Table{"x-queue-type": qm.cfg.QueueType}
	}
	for _, name := range []string{qm.cfg.DepositQueueName, qm.cfg.WithdrawalQueueName} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, args); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return fmt.Errorf("failed to declare queue %s: %w", name, err)
		}
	}

	qm.ch = ch
	qm.conn = conn
	qm.logger.Info("connected to queue",
		zap.String("deposit_queue", qm.cfg.DepositQueueName),
		zap.String("withdrawal_queue", qm.cfg.WithdrawalQueueName),
	)
	return nil
}

func (qm *QueueManager) PushDepositEvent(ctx context.Context, ev *types.LedgerEvent) error {
	return qm.push(ctx, qm.cfg.DepositQueueName, ev)
}

func (qm *QueueManager) PushWithdrawalEvent(ctx context.Context, ev *types.LedgerEvent) error {
	return qm.push(ctx, qm.cfg.WithdrawalQueueName, ev)
}

func (qm *QueueManager) push(ctx context.Context, queueName string, ev *types.LedgerEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", ev.ID, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         ev.EventType.String(),
		Timestamp:    time.Now(),
		Body:         body,
	}

	qm.mu.Lock()
	defer qm.mu.Unlock()

	if qm.ch == nil {
		return ErrNotStarted
	}

	return retry.Do(
		func() error {
			if qm.ch == nil || qm.ch.IsClosed() {
				if err := qm.connectLocked(); err != nil {
					return err
				}
			}

			publishCtx, cancel := context.WithTimeout(ctx, qm.cfg.QueueProcessingTimeout)
			defer cancel()
			return qm.ch.PublishWithContext(publishCtx, "", queueName, false, false, msg)
		},
		retry.Context(ctx),
		retry.Attempts(qm.cfg.MaxRetryTimes),
		retry.Delay(qm.cfg.RetryInterval),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			qm.logger.Warn("failed to publish event",
				zap.String("queue", queueName),
				zap.String("event_id", ev.ID),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	)
}

// Stop closes the channel and the connection. It is safe to call more than once.
func (qm *QueueManager) Stop() error {
	qm.mu.Lock()
	defer qm.mu.Unlock()

	qm.logger.Info("shutting down queue manager")
	qm.closeLocked()
	return nil
}

func (qm *QueueManager) closeLocked() {
	if qm.ch != nil && !qm.ch.IsClosed() {
		if err := qm.ch.Close(); err != nil {
			qm.logger.Warn("failed to close queue channel", zap.Error(err))
		}
	}
	if qm.conn != nil {
		if err := qm.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			qm.logger.Warn("failed to close queue connection", zap.Error(err))
		}
	}
	qm.ch = nil
	qm.conn = nil
}
