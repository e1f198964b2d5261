package api

import (
	"context"
	"net/http"

	"github.com/okian/fasal/internal/domain/loan"
	"github.com/okian/fasal/internal/domain/model"
)

// QuoteDependencies defines the loan quote operation.
type QuoteDependencies interface {
	Quote(ctx context.Context, req model.QuoteRequest) (loan.Quote, error)
}

// QuoteHandler handles loan quote requests.
type QuoteHandler struct {
	deps QuoteDependencies
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(deps QuoteDependencies) *QuoteHandler {
	return &QuoteHandler{deps: deps}
}

// HandlePostQuote handles POST /loan/quote requests.
func (h *QuoteHandler) HandlePostQuote(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_quote"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req model.QuoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	q, err := h.deps.Quote(r.Context(), req)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}
