package jobs

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Kind identifies the work a job performs.
type Kind string

// KindBulkStageMove moves a batch of items to a target workflow stage.
const KindBulkStageMove Kind = "bulk_stage_move"

// Status is the lifecycle of a job. Pending and running are transient;
// the remaining statuses are terminal.
type Status string

const (
	StatusPending         Status = "pending"
	StatusRunning         Status = "running"
	StatusSucceeded       Status = "succeeded"
	StatusPartiallyFailed Status = "partially_failed"
	StatusFailed          Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusPartiallyFailed, StatusFailed:
		return true
	default:
		return false
	}
}

// Outcome codes for a single item within a bulk job.
const (
	OutcomeSucceeded    = "succeeded"
	OutcomeItemGone     = "item_gone"
	OutcomeNoWorkflow   = "no_workflow"
	OutcomeUnknownStage = "unknown_stage"
	OutcomeRejected     = "rejected"
	OutcomeError        = "error"
)

// Outcome records what happened to one item.
type Outcome struct {
	ItemID uuid.UUID `json:"item_id"`
	Code   string    `json:"code"`
	Detail string    `json:"detail,omitempty"`
}

// Succeeded reports whether the item was moved (or already in place).
func (o Outcome) Succeeded() bool {
	return o.Code == OutcomeSucceeded
}

// Job is a tracked bulk operation.
type Job struct {
	bun.BaseModel `bun:"table:stage_move_jobs,alias:job"`

	ID            uuid.UUID   `bun:"id,pk,type:uuid" json:"id"`
	Kind          Kind        `bun:"kind,notnull" json:"kind"`
	Status        Status      `bun:"status,notnull" json:"status"`
	TargetStageID uuid.UUID   `bun:"target_stage_id,type:uuid,notnull" json:"target_stage_id"`
	ItemIDs       []uuid.UUID `bun:"item_ids,type:jsonb" json:"item_ids"`
	Results       []Outcome   `bun:"results,type:jsonb" json:"results,omitempty"`
	CreatedAt     time.Time   `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	StartedAt     *time.Time  `bun:"started_at,nullzero" json:"started_at,omitempty"`
	FinishedAt    *time.Time  `bun:"finished_at,nullzero" json:"finished_at,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate tracked state.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	out := *j
	if j.ItemIDs != nil {
		out.ItemIDs = append([]uuid.UUID(nil), j.ItemIDs...)
	}
	if j.Results != nil {
		out.Results = append([]Outcome(nil), j.Results...)
	}
	if j.StartedAt != nil {
		started := *j.StartedAt
		out.StartedAt = &started
	}
	if j.FinishedAt != nil {
		finished := *j.FinishedAt
		out.FinishedAt = &finished
	}
	return &out
}
