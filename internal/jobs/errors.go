package jobs

import "errors"

var (
	// ErrJobNotFound indicates the job id is unknown to the store.
	ErrJobNotFound = errors.New("jobs: job not found")
	// ErrEmptyItems indicates a bulk request named no items.
	ErrEmptyItems = errors.New("jobs: at least one item required")
	// ErrStageRequired indicates a bulk request named no target stage.
	ErrStageRequired = errors.New("jobs: target stage required")
	// ErrWaitTimeout indicates a job did not reach a terminal status in time.
	ErrWaitTimeout = errors.New("jobs: wait timed out")
)
