package schedule

import "errors"

var (
	// ErrItemRequired indicates the request is missing the target item id.
	ErrItemRequired = errors.New("schedule: item id required")
	// ErrInvalidSchedule indicates fire_at is missing or not strictly in the future.
	ErrInvalidSchedule = errors.New("schedule: fire_at must be strictly in the future")
	// ErrAlreadyScheduled indicates the item already holds a pending schedule of
	// the requested kind. Callers must cancel the existing schedule first.
	ErrAlreadyScheduled = errors.New("schedule: item already scheduled")
	// ErrNotScheduled indicates no pending schedule of the requested kind exists.
	ErrNotScheduled = errors.New("schedule: no pending schedule for item")
	// ErrItemNotPublished indicates an unpublishing was requested for an item
	// that is not published in any scoped locale.
	ErrItemNotPublished = errors.New("schedule: item is not published in the scoped locales")
	// ErrAlreadyFiring indicates cancellation lost the race against the
	// dispatcher claiming the schedule; the firing wins.
	ErrAlreadyFiring = errors.New("schedule: schedule is being fired")
)
