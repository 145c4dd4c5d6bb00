//go:build e2e

package e2etest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/babylonlabs-io/staking-ledger/e2etest/container"
	"github.com/babylonlabs-io/staking-ledger/internal/api"
	"github.com/babylonlabs-io/staking-ledger/internal/auth"
	"github.com/babylonlabs-io/staking-ledger/internal/config"
	"github.com/babylonlabs-io/staking-ledger/internal/db"
	"github.com/babylonlabs-io/staking-ledger/internal/db/model"
	"github.com/babylonlabs-io/staking-ledger/internal/queue"
	"github.com/babylonlabs-io/staking-ledger/internal/services"
	"github.com/babylonlabs-io/staking-ledger/internal/tokenledger"
	"github.com/babylonlabs-io/staking-ledger/internal/types"
	"github.com/btcsuite/btcd/btcec/v2"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	eventuallyWaitTimeOut = 40 * time.Second
	eventuallyPollTime    = 1 * time.Second
)

type TestManager struct {
	Config     *config.Config
	DbClient   db.DbInterface
	Service    *services.Service
	HTTPServer *httptest.Server

	DepositEventChan    <-chan amqp.Delivery
	WithdrawalEventChan <-chan amqp.Delivery

	manager *container.Manager
	cancel  context.CancelFunc
	done    chan struct{}
}

// StartManager starts mongo and rabbitmq, then runs the ledger API and the
// reconciliation poller against them.
func StartManager(t *testing.T) *TestManager {
	manager, err := container.NewManager(t)
	require.NoError(t, err)

	mongoAddress, err := manager.RunMongoResource()
	require.NoError(t, err)
	rabbitAddress, err := manager.RunRabbitMQResource()
	require.NoError(t, err)

	cfg := DefaultStakingLedgerConfig()
	cfg.Db.Address = mongoAddress
	cfg.Queue.Url = rabbitAddress
	require.NoError(t, cfg.Validate())

	ctx, cancel := context.WithCancel(context.Background())

	require.Eventually(t, func() bool {
		return model.Setup(ctx, &cfg.Db) == nil
	}, eventuallyWaitTimeOut, eventuallyPollTime)

	dbClient, err := db.Open(ctx, cfg.Db)
	require.NoError(t, err)
	dbClient = db.NewDbWithMetrics(dbClient)

	// the replica set accepts transactions only once the node is primary
	require.Eventually(t, func() bool {
		return dbClient.RunInTransaction(ctx, func(ctx context.Context, tx db.Tx) error {
			_, err := tx.GetPool(ctx, "probe")
			if db.IsNotFoundError(err) {
				return nil
			}
			return err
		}) == nil
	}, eventuallyWaitTimeOut, eventuallyPollTime)

	queueManager, err := queue.NewQueueManager(cfg.Queue, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, queueManager.Start())

	depositChan, withdrawalChan := consumeLedgerQueues(t, cfg.Queue)

	service := services.NewService(cfg, dbClient, tokenledger.New(), queueManager)
	server := httptest.NewServer(api.New(cfg, service).Handler())

	done := make(chan struct{})
	go func() {
		defer close(done)
		service.StartReconciliationPoller(ctx)
	}()

	tm := &TestManager{
		Config:              cfg,
		DbClient:            dbClient,
		Service:             service,
		HTTPServer:          server,
		DepositEventChan:    depositChan,
		WithdrawalEventChan: withdrawalChan,
		manager:             manager,
		cancel:              cancel,
		done:                done,
	}
	t.Cleanup(func() {
		tm.Stop(t)
		require.NoError(t, queueManager.Stop())
	})
	return tm
}

func (tm *TestManager) Stop(t *testing.T) {
	tm.cancel()
	<-tm.done
	tm.HTTPServer.Close()
	require.NoError(t, tm.DbClient.Close(context.Background()))
}

func DefaultStakingLedgerConfig() *config.Config {
	return &config.Config{
		Db: config.DbConfig{
			Backend: config.MongoBackend,
			DbName:  "staking-ledger-e2e",
		},
		Ledger: config.LedgerConfig{
			Namespace:      "staking-ledger-e2e",
			RequestMaxSkew: time.Minute,
		},
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
		Queue: &config.QueueConfig{
			QueueUser:              container.RabbitMQUser,
			QueuePassword:          container.RabbitMQPassword,
			QueueProcessingTimeout: 5 * time.Second,
			QueueType:              "quorum",
			MaxRetryTimes:          5,
			RetryInterval:          time.Second,
		},
		Poller: config.PollerConfig{
			ReconciliationInterval: time.Second,
		},
		Metrics: config.MetricsConfig{
			Host: "127.0.0.1",
		},
	}
}

// consumeLedgerQueues subscribes to both event queues on a dedicated connection.
func consumeLedgerQueues(t *testing.T, cfg *config.QueueConfig) (<-chan amqp.Delivery, <-chan amqp.Delivery) {
	conn, err := amqp.Dial(cfg.AmqpURL())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ch, err := conn.Channel()
	require.NoError(t, err)

	deposits, err := ch.Consume(cfg.DepositQueueName, "e2e-deposits", true, false, false, false, nil)
	require.NoError(t, err)
	withdrawals, err := ch.Consume(cfg.WithdrawalQueueName, "e2e-withdrawals", true, false, false, false, nil)
	require.NoError(t, err)

	return deposits, withdrawals
}

// Signed posts payload signed by priv and decodes the response into out.
func (tm *TestManager) Signed(t *testing.T, priv *btcec.PrivateKey, path string, payload any, expectedStatus int, out any) {
	t.Helper()

	req, err := auth.Sign(priv, payload)
	require.NoError(t, err)
	body, err := json.Marshal(req)
	require.NoError(t, err)

	resp, err := http.Post(tm.HTTPServer.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	decodeResponse(t, resp, expectedStatus, out)
}

func (tm *TestManager) Get(t *testing.T, path string, expectedStatus int, out any) {
	t.Helper()

	resp, err := http.Get(tm.HTTPServer.URL + path)
	require.NoError(t, err)
	decodeResponse(t, resp, expectedStatus, out)
}

func decodeResponse(t *testing.T, resp *http.Response, expectedStatus int, out any) {
	t.Helper()
	defer resp.Body.Close()

	var raw json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	require.Equal(t, expectedStatus, resp.StatusCode, string(raw))
	if out != nil {
		require.NoError(t, json.Unmarshal(raw, out))
	}
}

var lastStamp atomic.Int64

// Stamp returns the current time, moved past every earlier stamp so that
// equal payloads signed in the same second stay distinct requests.
func Stamp() auth.Stamp {
	for {
		last := lastStamp.Load()
		next := max(time.Now().Unix(), last+1)
		if lastStamp.CompareAndSwap(last, next) {
			return auth.Stamp{Timestamp: next}
		}
	}
}

// WaitForLedgerEvent reads the next event from ch.
func WaitForLedgerEvent(t *testing.T, ch <-chan amqp.Delivery) *types.LedgerEvent {
	t.Helper()

	select {
	case msg, ok := <-ch:
		require.True(t, ok, "event queue consumer closed")
		var ev types.LedgerEvent
		require.NoError(t, json.Unmarshal(msg.Body, &ev))
		require.Equal(t, ev.ID, msg.MessageId)
		require.Equal(t, ev.EventType.String(), msg.Type)
		return &ev
	case <-time.After(eventuallyWaitTimeOut):
		require.FailNow(t, fmt.Sprintf("no event received within %s", eventuallyWaitTimeOut))
		return nil
	}
}
