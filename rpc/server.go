package rpc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"moneymarket/crypto"
	nativecommon "moneymarket/native/common"
	"moneymarket/native/overseer"
	"moneymarket/observability"
)

// Server exposes the overseer engine over HTTP: one execute endpoint for the
// command union, one query endpoint for the read union, plus health and
// Prometheus scrape targets.
type Server struct {
	engine *overseer.Engine
	logger *slog.Logger
}

// NewServer wires the engine behind the HTTP surface.
func NewServer(engine *overseer.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{engine: engine, logger: logger}
}

// Handler builds the routed handler with tracing instrumentation.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/v1/overseer/execute", s.handleExecute)
	r.Post("/v1/overseer/query", s.handleQuery)
	return otelhttp.NewHandler(r, "overseerd")
}

type executeRequest struct {
	Caller      crypto.Address      `json:"caller"`
	BlockHeight *uint64             `json:"block_height,omitempty"`
	Msg         overseer.ExecuteMsg `json:"msg"`
}

type queryRequest struct {
	Msg overseer.QueryMsg `json:"msg"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "execute", started, http.StatusBadRequest, err)
		return
	}
	if req.Caller.IsZero() {
		s.writeError(w, "execute", started, http.StatusBadRequest, errors.New("caller required"))
		return
	}
	receipt, err := s.engine.DispatchAt(req.Caller, req.BlockHeight, req.Msg)
	if err != nil {
		s.writeError(w, "execute", started, statusFor(err), err)
		return
	}
	metrics := observability.Overseer()
	metrics.ObserveRequest("execute", "ok", time.Since(started))
	switch {
	case req.Msg.LiquidateCollateral != nil:
		metrics.ObserveLiquidation()
	case req.Msg.ExecuteEpochOperations != nil:
		metrics.ObserveEpochExecuted()
	case req.Msg.UpdateEpochState != nil:
		if req.Msg.UpdateEpochState.InterestBuffer != nil {
			buffer, _ := new(big.Float).SetInt(req.Msg.UpdateEpochState.InterestBuffer).Float64()
			metrics.SetInterestBuffer(buffer)
		}
		if es, err := s.engine.QueryEpochState(); err == nil {
			if rate, err := strconv.ParseFloat(es.DepositRate.String(), 64); err == nil {
				metrics.SetDepositRate(rate)
			}
		}
	}
	s.writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "query", started, http.StatusBadRequest, err)
		return
	}

	result, err := s.engine.DispatchQuery(req.Msg)
	if err != nil {
		s.writeError(w, "query", started, statusFor(err), err)
		return
	}
	observability.Overseer().ObserveRequest("query", "ok", time.Since(started))
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, operation string, started time.Time, status int, err error) {
	observability.Overseer().ObserveRequest(operation, "error", time.Since(started))
	s.logger.Warn("request failed", "operation", operation, "status", status, "error", err)
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor maps engine errors onto HTTP status codes. Domain rejections are
// client errors; anything unrecognized is a server fault.
func statusFor(err error) int {
	switch {
	case errors.Is(err, overseer.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, overseer.ErrNotWhitelisted),
		errors.Is(err, overseer.ErrNotInitialized):
		return http.StatusNotFound
	case errors.Is(err, overseer.ErrAlreadyWhitelisted),
		errors.Is(err, overseer.ErrAlreadyInitialized),
		errors.Is(err, overseer.ErrEpochInFlight),
		errors.Is(err, overseer.ErrEpochNotInFlight),
		errors.Is(err, overseer.ErrEpochNotElapsed),
		errors.Is(err, overseer.ErrSolvent):
		return http.StatusConflict
	case errors.Is(err, overseer.ErrInvalidAmount),
		errors.Is(err, overseer.ErrInvalidConfig),
		errors.Is(err, overseer.ErrInsufficientCollateral),
		errors.Is(err, overseer.ErrBorrowLimitExceeded),
		errors.Is(err, overseer.ErrStalePrice),
		errors.Is(err, overseer.ErrUnknownMessage):
		return http.StatusUnprocessableEntity
	case errors.Is(err, nativecommon.ErrModulePaused):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
