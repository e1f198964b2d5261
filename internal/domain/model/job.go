package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/okian/fasal/internal/domain/features"
)

// BatchItem is one farmer submitted in a batch. An empty RequestID gets a
// generated one, which disables deduplication for that item.
type BatchItem struct {
	RequestID string       `json:"request_id,omitempty"`
	FarmerID  string       `json:"farmer_id"`
	Features  features.Raw `json:"features"`
}

// JobState is the lifecycle of a batch job.
type JobState string

const (
	JobPending   JobState = "pending"
	JobCompleted JobState = "completed"
)

// ItemState is the outcome of one batch item.
type ItemState string

const (
	ItemQueued    ItemState = "queued"
	ItemScored    ItemState = "scored"
	ItemFailed    ItemState = "failed"
	ItemDuplicate ItemState = "duplicate"
	ItemRejected  ItemState = "rejected"
)

// JobItem reports one item of a batch job.
type JobItem struct {
	RequestID string    `json:"request_id"`
	FarmerID  string    `json:"farmer_id"`
	State     ItemState `json:"state"`
	RecordID  string    `json:"record_id,omitempty"`
	Score     *float64  `json:"score,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Job is a snapshot of a batch job.
type Job struct {
	ID         string     `json:"job_id"`
	State      JobState   `json:"state"`
	Total      int        `json:"total"`
	Pending    int        `json:"pending"`
	Completed  int        `json:"completed"`
	Failed     int        `json:"failed"`
	Duplicates int        `json:"duplicates"`
	Rejected   int        `json:"rejected"`
	Items      []JobItem  `json:"items"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// QuoteRequest asks for a loan quote. A nil Score is resolved from the
// farmer's latest record, and so is an empty CropType.
type QuoteRequest struct {
	FarmerID        string          `json:"farmer_id,omitempty"`
	Score           *float64        `json:"score,omitempty"`
	RequestedAmount decimal.Decimal `json:"requested_amount"`
	CropType        string          `json:"crop_type,omitempty"`
}
