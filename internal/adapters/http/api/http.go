// Package api exposes the scoring service over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/fasal/internal/domain/types"
	"github.com/okian/fasal/pkg/metrics"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 4 << 20

// Dependencies required by HTTP handlers.
type Dependencies interface {
	ScoreDependencies
	BatchDependencies
	QuoteDependencies
	HealthDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	scoreHandler  *ScoreHandler
	batchHandler  *BatchHandler
	quoteHandler  *QuoteHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler: NewHealthHandler(deps),
		scoreHandler:  NewScoreHandler(deps),
		batchHandler:  NewBatchHandler(deps),
		quoteHandler:  NewQuoteHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", instrument("healthz", s.healthHandler.HandleHealth))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/stats", instrument("stats", s.healthHandler.HandleStats))
	mux.HandleFunc("/score", instrument("score", s.scoreHandler.HandlePostScore))
	mux.HandleFunc("/score/", s.routeScore)
	mux.HandleFunc("/loan/quote", instrument("loan_quote", s.quoteHandler.HandlePostQuote))
}

// routeScore dispatches the paths below /score/:
//
//	POST /score/batch
//	GET  /score/batch/{job_id}
//	GET  /score/{farmer_id}/history
func (s *Server) routeScore(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/score/"), "/")
	switch {
	case len(parts) == 1 && parts[0] == "batch":
		instrument("score_batch", s.batchHandler.HandlePostBatch)(w, r)
	case len(parts) == 2 && parts[0] == "batch" && parts[1] != "":
		instrument("score_batch_status", func(w http.ResponseWriter, r *http.Request) {
			s.batchHandler.HandleGetJob(w, r, parts[1])
		})(w, r)
	case len(parts) == 2 && parts[0] != "" && parts[1] == "history":
		instrument("score_history", func(w http.ResponseWriter, r *http.Request) {
			s.scoreHandler.HandleGetHistory(w, r, parts[0])
		})(w, r)
	default:
		http.NotFound(w, r)
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps a service error onto a status code.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var ie *types.InputError
	switch {
	case errors.As(err, &ie):
		writeError(w, http.StatusBadRequest, "invalid_input", ie)
	case errors.Is(err, types.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", Wrap(op, err))
	case errors.Is(err, types.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, types.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", Wrap(op, err))
	case errors.Is(err, types.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	return dec.Decode(v)
}
