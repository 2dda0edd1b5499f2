package rpc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"liqmine/native/liquidity"
	"liqmine/observability/metrics"
	"liqmine/rpc/middleware"
)

const requestIDHeader = "X-Request-Id"

// Server exposes the reward engine over HTTP: authenticated notification
// routes for the pool-management runtime, read-only accessors for observers
// and a websocket stream of emitted events.
type Server struct {
	engine *liquidity.Engine
	source [20]byte
	logger *slog.Logger
	hub    *Hub
}

// NewServer wires a server over the engine. The source address is the
// identity the authenticated runtime acts under; it must match the engine's
// registered authorizer.
func NewServer(engine *liquidity.Engine, source [20]byte, logger *slog.Logger, hub *Hub) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{engine: engine, source: source, logger: logger, hub: hub}
}

// Router assembles the chi handler tree with the supplied middlewares.
func (s *Server) Router(auth *middleware.Authenticator, limiter *middleware.RateLimiter, obs *middleware.Observability) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	if obs != nil {
		r.Use(obs.Middleware("root"))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(v1 chi.Router) {
		if limiter != nil {
			v1.Use(limiter.Middleware())
		}

		v1.Group(func(protected chi.Router) {
			if auth != nil {
				protected.Use(auth.Middleware())
			}
			protected.Post("/notify/before-add", s.handleBeforeAdd)
			protected.Post("/notify/after-add", s.handleAfterAdd)
			protected.Post("/notify/before-remove", s.handleBeforeRemove)
			protected.Post("/notify/after-remove", s.handleAfterRemove)
			protected.Post("/notify/pool-initialized", s.handlePoolInitialized)
			protected.Post("/lock", s.handleLock)
			protected.Post("/cross-contribution", s.handleCrossContribution)
		})

		v1.Get("/providers/{address}", s.handleGetProvider)
		v1.Get("/pools/{id}/rewards", s.handleGetPoolRewards)
	})

	r.Get("/ws/events", s.handleEventsWS)
	if obs != nil {
		r.Handle("/metrics", obs.MetricsHandler())
	}
	return r
}

func (s *Server) handleBeforeAdd(w http.ResponseWriter, r *http.Request) {
	var req notifyLiquidityRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	provider, err := parseAddress(req.Provider)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.NotifyBeforeAdd(s.source, provider, req.Pool, amount, s.timestamp(req.Timestamp)); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleAfterAdd(w http.ResponseWriter, r *http.Request) {
	s.handleCompute(w, r, s.engine.NotifyAfterAdd)
}

func (s *Server) handleBeforeRemove(w http.ResponseWriter, r *http.Request) {
	var req notifyLiquidityRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	provider, err := parseAddress(req.Provider)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.NotifyBeforeRemove(s.source, provider, req.Pool, amount, s.timestamp(req.Timestamp)); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleAfterRemove(w http.ResponseWriter, r *http.Request) {
	s.handleCompute(w, r, s.engine.NotifyAfterRemove)
}

type computeFn func(caller, provider [20]byte, poolID string, now int64) (*big.Int, error)

func (s *Server) handleCompute(w http.ResponseWriter, r *http.Request, compute computeFn) {
	var req notifyLiquidityRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	provider, err := parseAddress(req.Provider)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	reward, err := compute(s.source, provider, req.Pool, s.timestamp(req.Timestamp))
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rewardResponse{
		Provider: req.Provider,
		Pool:     req.Pool,
		Reward:   reward.String(),
	})
}

func (s *Server) handlePoolInitialized(w http.ResponseWriter, r *http.Request) {
	var req poolInitRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	start := big.NewInt(0)
	if req.Start != "" {
		parsed, err := parseAmount(req.Start)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest, err)
			return
		}
		start = parsed
	}
	if err := s.engine.NotifyPoolInitialized(s.source, req.Pool, start); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	var req lockRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	provider, err := parseAddress(req.Provider)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.LockLiquidity(s.source, provider, req.Duration, s.timestamp(req.Timestamp)); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleCrossContribution(w http.ResponseWriter, r *http.Request) {
	var req crossContributionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	provider, err := parseAddress(req.Provider)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	total, err := s.engine.RecordCrossPlatformContribution(s.source, provider)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, crossContributionResponse{Provider: req.Provider, Total: total})
}

func (s *Server) handleGetProvider(w http.ResponseWriter, r *http.Request) {
	provider, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	rec, err := s.engine.ProviderRecord(provider)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newProviderResponse(rec))
}

func (s *Server) handleGetPoolRewards(w http.ResponseWriter, r *http.Request) {
	poolID := chi.URLParam(r, "id")
	total, err := s.engine.PoolRewards(poolID)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	metrics.Liquidity().ObservePoolTotal(poolID, total)
	s.writeJSON(w, http.StatusOK, poolResponse{Pool: poolID, Rewards: total.String()})
}

// timestamp trusts the caller-supplied "now"; the engine never samples its
// own clock. A missing timestamp falls back to wall time for convenience.
func (s *Server) timestamp(supplied int64) int64 {
	if supplied > 0 {
		return supplied
	}
	return time.Now().Unix()
}

func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, liquidity.ErrInvalidAmount),
		errors.Is(err, liquidity.ErrInvalidDuration),
		errors.Is(err, liquidity.ErrInsufficientLiquidity):
		status = http.StatusBadRequest
	case errors.Is(err, liquidity.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, liquidity.ErrArithmeticOverflow):
		status = http.StatusUnprocessableEntity
	}
	s.writeError(w, r, status, err)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	id := w.Header().Get(requestIDHeader)
	s.logger.Warn("request failed", "error", err, "status", status, "path", r.URL.Path, "requestId", id)
	s.writeJSON(w, status, errorResponse{Error: err.Error(), RequestID: id})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("encode response", "error", err)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// requestID tags every request and response with a correlation id.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}
