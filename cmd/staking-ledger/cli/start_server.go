package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/babylonlabs-io/staking-ledger/consumer"
	"github.com/babylonlabs-io/staking-ledger/internal/api"
	"github.com/babylonlabs-io/staking-ledger/internal/config"
	"github.com/babylonlabs-io/staking-ledger/internal/db"
	dbmodel "github.com/babylonlabs-io/staking-ledger/internal/db/model"
	"github.com/babylonlabs-io/staking-ledger/internal/observability/metrics"
	"github.com/babylonlabs-io/staking-ledger/internal/observability/tracing"
	"github.com/babylonlabs-io/staking-ledger/internal/queue"
	"github.com/babylonlabs-io/staking-ledger/internal/services"
	"github.com/babylonlabs-io/staking-ledger/internal/tokenledger"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func StartServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start-server",
		Short: "Starts the staking ledger API server and the reconciliation poller",
		Args:  cobra.ExactArgs(0),
		RunE:  startServer,
	}

	return cmd
}

func startServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = tracing.InjectTraceID(ctx)
	log := log.Ctx(ctx)

	// load config
	cfgPath := GetConfigPath()
	cfg, err := config.New(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg(fmt.Sprintf("error while loading config file: %s", cfgPath))
	}

	if cfg.Db.Backend == config.MongoBackend {
		err = dbmodel.Setup(ctx, &cfg.Db)
		if err != nil {
			log.Fatal().Err(err).Msg("error while setting up staking ledger db model")
		}
	}

	// create new db client
	var dbClient db.DbInterface
	dbClient, err = db.Open(ctx, cfg.Db)
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating db client")
	}
	dbClient = db.NewDbWithMetrics(dbClient)
	defer func() {
		if err := dbClient.Close(context.WithoutCancel(ctx)); err != nil {
			log.Error().Err(err).Msg("error while closing db client")
		}
	}()

	// Create a basic zap logger
	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatal().Err(err).Msg("error while creating zap logger")
	}
	defer func() {
		// stderr cannot always be synced, the error is only informative
		_ = zapLogger.Sync()
	}()

	var eventConsumer consumer.EventConsumer = consumer.NoopConsumer{}
	if cfg.Queue != nil {
		qm, err := queue.NewQueueManager(cfg.Queue, zapLogger)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize event consumer")
		}
		eventConsumer = qm
	} else {
		log.Warn().Msg("no queue configured, ledger events are not published")
	}
	if err := eventConsumer.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start event consumer")
	}
	defer func() {
		if err := eventConsumer.Stop(); err != nil {
			log.Error().Err(err).Msg("error while stopping event consumer")
		}
	}()

	service := services.NewService(cfg, dbClient, tokenledger.New(), eventConsumer)

	// initialize metrics with the metrics port from config
	metricsPort := cfg.Metrics.GetMetricsPort()
	metrics.Init(metricsPort)

	p := pool.New().WithErrors().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		return api.New(cfg, service).Run(ctx)
	})
	p.Go(func(ctx context.Context) error {
		service.StartReceiptPruner(ctx)
		return nil
	})
	if !cfg.Poller.Disabled {
		p.Go(func(ctx context.Context) error {
			service.StartReconciliationPoller(ctx)
			return nil
		})
	}

	return p.Wait()
}
