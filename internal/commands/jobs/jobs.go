package jobscmd

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-lifecycle/internal/commands"
	"github.com/goliatone/go-lifecycle/internal/jobs"
	"github.com/goliatone/go-lifecycle/pkg/interfaces"
	"github.com/google/uuid"
)

const bulkStageMoveMessageType = "lifecycle.jobs.bulk_stage_move"

// BulkStageMoveCommand submits a tracked bulk stage move. Callers that need
// the job outcome poll the tracker; the command only enqueues.
type BulkStageMoveCommand struct {
	TargetStageID uuid.UUID   `json:"target_stage_id"`
	ItemIDs       []uuid.UUID `json:"item_ids"`
}

// Type implements command.Message.
func (BulkStageMoveCommand) Type() string { return bulkStageMoveMessageType }

// Validate ensures the message carries the required fields before reaching handlers.
func (m BulkStageMoveCommand) Validate() error {
	errs := validation.Errors{}
	if m.TargetStageID == uuid.Nil {
		errs["target_stage_id"] = validation.NewError("lifecycle.jobs.bulk_stage_move.target_stage_id_required", "target_stage_id is required")
	}
	if len(m.ItemIDs) == 0 {
		errs["item_ids"] = validation.NewError("lifecycle.jobs.bulk_stage_move.item_ids_required", "at least one item is required")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// BulkStageMoveHandler submits bulk moves through the job tracker.
type BulkStageMoveHandler struct {
	inner *commands.Handler[BulkStageMoveCommand]
}

// NewBulkStageMoveHandler constructs a handler wired to the job tracker.
func NewBulkStageMoveHandler(tracker *jobs.Tracker, logger interfaces.Logger, opts ...commands.HandlerOption[BulkStageMoveCommand]) *BulkStageMoveHandler {
	exec := func(ctx context.Context, msg BulkStageMoveCommand) error {
		_, err := tracker.Submit(ctx, jobs.BulkStageMoveRequest{
			TargetStageID: msg.TargetStageID,
			ItemIDs:       msg.ItemIDs,
		})
		return err
	}

	handlerOpts := []commands.HandlerOption[BulkStageMoveCommand]{
		commands.WithLogger[BulkStageMoveCommand](logger),
		commands.WithOperation[BulkStageMoveCommand]("jobs.bulk_stage_move"),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &BulkStageMoveHandler{
		inner: commands.NewHandler[BulkStageMoveCommand](exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[BulkStageMoveCommand].Execute.
func (h *BulkStageMoveHandler) Execute(ctx context.Context, msg BulkStageMoveCommand) error {
	return h.inner.Execute(ctx, msg)
}
