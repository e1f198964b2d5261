package api

import (
	"context"
	"net/http"

	"github.com/okian/fasal/internal/domain/model"
)

// BatchDependencies defines the asynchronous scoring operations.
type BatchDependencies interface {
	SubmitBatch(ctx context.Context, items []model.BatchItem) (model.Job, error)
	JobStatus(ctx context.Context, jobID string) (model.Job, error)
}

// BatchHandler handles batch scoring requests.
type BatchHandler struct {
	deps BatchDependencies
}

// NewBatchHandler creates a new batch handler.
func NewBatchHandler(deps BatchDependencies) *BatchHandler {
	return &BatchHandler{deps: deps}
}

type batchRequest struct {
	Items []model.BatchItem `json:"items"`
}

// HandlePostBatch handles POST /score/batch requests.
func (h *BatchHandler) HandlePostBatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_batch"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req batchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	job, err := h.deps.SubmitBatch(r.Context(), req.Items)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

// HandleGetJob handles GET /score/batch/{job_id} requests.
func (h *BatchHandler) HandleGetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	const op = "api.get_batch"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	job, err := h.deps.JobStatus(r.Context(), jobID)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
