package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Outcome string

const (
	Success                  Outcome       = "success"
	Error                    Outcome       = "error"
	MetricRequestTimeout     time.Duration = 5 * time.Second
	MetricRequestIdleTimeout time.Duration = 10 * time.Second
)

func (O Outcome) String() string {
	return string(O)
}

var defaultHistogramBucketsSeconds = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30}

// Collectors are created eagerly so Record* helpers are safe to call before
// Init; Init only registers them and starts the http endpoint.
var (
	once sync.Once

	queueSendErrorCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queue_send_error_count",
			Help: "The total number of errors when sending messages to the queue",
		},
	)

	pollerDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "poller_duration_seconds",
			Help:    "Histogram of poller durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"type", "status"},
	)

	pollerLastSuccessGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "poller_last_success_timestamp_seconds",
			Help: "Unix time of the last poller run that finished without error.",
		},
		[]string{"type"},
	)

	ledgerOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_operation_duration_seconds",
			Help:    "Ledger operation duration in seconds split by operation, status and error code.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"operation", "status", "error_code"},
	)

	poolTotalStakedGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pool_total_staked",
			Help: "Total staked amount of a pool as of the last reconciliation",
		},
		[]string{"staked_mint"},
	)

	poolEntryCountGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pool_stake_entry_count",
			Help: "Number of stake entries of a pool as of the last reconciliation",
		},
		[]string{"staked_mint"},
	)

	invariantViolationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pool_invariant_violation_count",
			Help: "Number of reconciliations that found entry balances, vault balance and pool total out of sync",
		},
		[]string{"staked_mint"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of incoming http request durations in seconds.",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"route", "method", "status"},
	)

	dbLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_latency_seconds",
			Help:    "DB latency in seconds splitted by method and execution status",
			Buckets: defaultHistogramBucketsSeconds,
		},
		[]string{"method", "status"},
	)
)

// Init initializes the metrics package.
func Init(metricsPort int) {
	once.Do(func() {
		registerMetrics()
		initMetricsRouter(metricsPort)
	})
}

// initMetricsRouter initializes the metrics router.
func initMetricsRouter(metricsPort int) {
	metricsRouter := chi.NewRouter()
	metricsRouter.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	// Create a custom server with timeout settings
	metricsAddr := fmt.Sprintf(":%d", metricsPort)
	server := &http.Server{
		Addr:         metricsAddr,
		Handler:      metricsRouter,
		ReadTimeout:  MetricRequestTimeout,
		WriteTimeout: MetricRequestTimeout,
		IdleTimeout:  MetricRequestIdleTimeout,
	}

	// Start the server in a separate goroutine
	go func() {
		log.Info().Msgf("Starting metrics server on %s", metricsAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msgf("Error starting metrics server on %s", metricsAddr)
		}
	}()
}

// registerMetrics registers the Prometheus collectors.
func registerMetrics() {
	prometheus.MustRegister(
		queueSendErrorCounter,
		pollerDurationHistogram,
		pollerLastSuccessGauge,
		ledgerOperationDuration,
		poolTotalStakedGauge,
		poolEntryCountGauge,
		invariantViolationCounter,
		httpRequestDuration,
		dbLatency,
	)
}

func RecordDbLatency(d time.Duration, method string, failure bool) {
	status := Success
	if failure {
		status = Error
	}

	dbLatency.WithLabelValues(method, status.String()).Observe(d.Seconds())
}

// RecordLedgerOperation records a ledger operation. errorCode is empty on success.
func RecordLedgerOperation(d time.Duration, operation string, errorCode string) {
	status := Success
	if errorCode != "" {
		status = Error
	}

	ledgerOperationDuration.WithLabelValues(operation, status.String(), errorCode).Observe(d.Seconds())
}

func RecordPoolState(stakedMint string, totalStaked uint64, entryCount uint64) {
	poolTotalStakedGauge.WithLabelValues(stakedMint).Set(float64(totalStaked))
	poolEntryCountGauge.WithLabelValues(stakedMint).Set(float64(entryCount))
}

func IncPoolInvariantViolation(stakedMint string) {
	invariantViolationCounter.WithLabelValues(stakedMint).Inc()
}

// RecordHttpRequestDuration records an incoming request under its route pattern.
func RecordHttpRequestDuration(d time.Duration, route, method string, statusCode int) {
	httpRequestDuration.WithLabelValues(
		route,
		method,
		fmt.Sprintf("%d", statusCode),
	).Observe(d.Seconds())
}

func RecordQueueSendError() {
	queueSendErrorCounter.Inc()
}
