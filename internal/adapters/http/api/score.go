package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/fasal/internal/domain/features"
	"github.com/okian/fasal/internal/domain/model"
)

const defaultHistoryLimit = 10

// ScoreDependencies defines the synchronous scoring operations.
type ScoreDependencies interface {
	Score(ctx context.Context, farmerID string, raw features.Raw) (model.ScoreRecord, error)
	History(ctx context.Context, farmerID string, limit int) ([]model.ScoreRecord, error)
}

// ScoreHandler handles score requests.
type ScoreHandler struct {
	deps ScoreDependencies
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps ScoreDependencies) *ScoreHandler {
	return &ScoreHandler{deps: deps}
}

type scoreRequest struct {
	FarmerID string       `json:"farmer_id"`
	Features features.Raw `json:"features"`
}

type historyResponse struct {
	FarmerID string              `json:"farmer_id"`
	Count    int                 `json:"count"`
	History  []model.ScoreRecord `json:"history"`
}

// HandlePostScore handles POST /score requests.
func (h *ScoreHandler) HandlePostScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_score"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req scoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	rec, err := h.deps.Score(r.Context(), req.FarmerID, req.Features)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// HandleGetHistory handles GET /score/{farmer_id}/history?limit=N requests.
func (h *ScoreHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request, farmerID string) {
	const op = "api.get_history"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	limit := defaultHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		limit = n
	}
	recs, err := h.deps.History(r.Context(), farmerID, limit)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{FarmerID: farmerID, Count: len(recs), History: recs})
}
