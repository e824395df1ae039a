package interfaces

import (
	"context"

	"github.com/google/uuid"
)

// StageMove describes a requested stage transition presented to validators.
type StageMove struct {
	ItemID        uuid.UUID
	WorkflowID    uuid.UUID
	FromStageID   *uuid.UUID
	TargetStageID uuid.UUID
}

// StageValidator is the single extension surface the transition engine
// exposes: deployments supply business rules (e.g. required fields before
// leaving draft) that can veto a stage move. Returning nil authorises the
// move; returning an error rejects it with the error text as the reason.
type StageValidator interface {
	ValidateStageMove(ctx context.Context, move StageMove) error
}

// StageValidatorFunc adapts a plain function into a StageValidator.
type StageValidatorFunc func(ctx context.Context, move StageMove) error

// ValidateStageMove satisfies StageValidator.
func (f StageValidatorFunc) ValidateStageMove(ctx context.Context, move StageMove) error {
	return f(ctx, move)
}
