package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrItemRequired indicates the operation is missing the target item id.
	ErrItemRequired = errors.New("engine: item id required")
	// ErrItemGone indicates the item no longer exists. This is terminal:
	// schedules referencing the item are dropped, never retried.
	ErrItemGone = errors.New("engine: item no longer exists")
	// ErrNoWorkflow indicates the item's model has no workflow assigned.
	ErrNoWorkflow = errors.New("engine: no workflow assigned to the item's model")
	// ErrUnknownStage indicates the target stage does not belong to the
	// item's assigned workflow.
	ErrUnknownStage = errors.New("engine: unknown stage for the item's workflow")
	// ErrTransitionRejected indicates the deployment's stage validator vetoed
	// the move.
	ErrTransitionRejected = errors.New("engine: transition rejected")
)

// RejectionError carries the validator's reason for vetoing a stage move.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	if e == nil || e.Reason == "" {
		return ErrTransitionRejected.Error()
	}
	return fmt.Sprintf("%s: %s", ErrTransitionRejected.Error(), e.Reason)
}

func (e *RejectionError) Unwrap() error {
	return ErrTransitionRejected
}

// IsTerminal reports whether the error is a non-retryable outcome for
// schedule firing or bulk processing: the failure cannot be cured by retry.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrItemGone) ||
		errors.Is(err, ErrUnknownStage) ||
		errors.Is(err, ErrNoWorkflow) ||
		errors.Is(err, ErrTransitionRejected)
}
