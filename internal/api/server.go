package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/babylonlabs-io/staking-ledger/internal/config"
	"github.com/babylonlabs-io/staking-ledger/internal/observability/metrics"
	"github.com/babylonlabs-io/staking-ledger/internal/observability/tracing"
	"github.com/babylonlabs-io/staking-ledger/internal/services"
	"github.com/babylonlabs-io/staking-ledger/internal/types"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	cfg     *config.Config
	service *services.Service
	nowFn   func() time.Time
	router  http.Handler
}

func New(cfg *config.Config, service *services.Service) *Server {
	s := &Server{
		cfg:     cfg,
		service: service,
		nowFn:   time.Now,
	}
	s.router = s.buildRouter()
	return s
}

// Handler exposes the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(tracing.Middleware)
	r.Use(recordDuration)

	r.Get("/healthcheck", s.handle(s.healthCheck))

	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/authority", s.handle(s.getAuthority))

		v1.Post("/mints", s.handle(s.createMint))
		v1.Get("/mints/{mint}", s.handle(s.getMint))
		v1.Post("/mints/{mint}/issue", s.handle(s.issueTokens))
		v1.Get("/mints/{mint}/pool", s.handle(s.getPoolByMint))

		v1.Post("/accounts", s.handle(s.createAccount))
		v1.Get("/accounts/{address}", s.handle(s.getAccount))

		v1.Post("/pools", s.handle(s.initializePool))
		v1.Get("/pools/{pool}", s.handle(s.getPool))
		v1.Get("/pools/{pool}/stats", s.handle(s.getPoolStats))
		v1.Post("/pools/{pool}/entries", s.handle(s.initializeStakeEntry))
		v1.Post("/pools/{pool}/deposit", s.handle(s.deposit))
		v1.Post("/pools/{pool}/withdraw", s.handle(s.withdraw))

		v1.Get("/entries/{address}", s.handle(s.getStakeEntry))
	})

	return r
}

// Run serves the API until ctx is done, then shuts the server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Ctx(ctx).Info().Str("addr", srv.Addr).Msg("Starting API server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	log.Ctx(ctx).Info().Msg("Shutting down API server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type response struct {
	status int
	body   any
}

func ok(body any) *response {
	return &response{status: http.StatusOK, body: body}
}

func created(body any) *response {
	return &response{status: http.StatusCreated, body: body}
}

type handlerFunc func(r *http.Request) (*response, error)

func (s *Server) handle(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h(r)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		writeJSON(w, resp.status, resp.body)
	}
}

type errorResponse struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	apiErr := types.AsError(err)

	message := apiErr.Error()
	if apiErr.StatusCode >= http.StatusInternalServerError {
		log.Ctx(ctx).Error().Err(apiErr.Err).Str("errorCode", apiErr.ErrorCode.String()).Msg("Request failed")
		message = "internal service error"
	} else {
		log.Ctx(ctx).Debug().Err(apiErr.Err).Str("errorCode", apiErr.ErrorCode.String()).Msg("Request rejected")
	}

	writeJSON(w, apiErr.StatusCode, errorResponse{
		ErrorCode: apiErr.ErrorCode.String(),
		Message:   message,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// recordDuration observes every request under its route pattern.
func recordDuration(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordHttpRequestDuration(time.Since(startTime), route, r.Method, status)
	})
}
