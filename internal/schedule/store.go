package schedule

import (
	"context"
	"time"

	"github.com/goliatone/go-lifecycle/domain"
	"github.com/google/uuid"
)

// PublicationRequest captures the data needed to persist a scheduled publication.
type PublicationRequest struct {
	ItemID       uuid.UUID
	FireAt       time.Time
	Scope        domain.LocaleScope
	NonLocalized bool
}

// UnpublishingRequest captures the data needed to persist a scheduled unpublishing.
type UnpublishingRequest struct {
	ItemID uuid.UUID
	FireAt time.Time
	Scope  domain.LocaleScope
}

// Store is the durable keyed storage for schedule records. Implementations
// must enforce the one-pending-record-per-item-per-kind invariant atomically
// and provide the claim primitive the dispatcher relies on for exactly-once
// firing.
type Store interface {
	// SetPublication inserts a pending publication, failing with
	// ErrAlreadyScheduled when the item already holds one.
	SetPublication(ctx context.Context, req PublicationRequest) (*ScheduledPublication, error)
	// CancelPublication removes a pending publication. It fails with
	// ErrNotScheduled when none exists and ErrAlreadyFiring when the record
	// has been claimed by the dispatcher.
	CancelPublication(ctx context.Context, itemID uuid.UUID) error
	// GetPublication returns the pending publication or ErrNotScheduled.
	GetPublication(ctx context.Context, itemID uuid.UUID) (*ScheduledPublication, error)

	// SetUnpublishing, CancelUnpublishing, and GetUnpublishing mirror the
	// publication operations for the unpublishing slot.
	SetUnpublishing(ctx context.Context, req UnpublishingRequest) (*ScheduledUnpublishing, error)
	CancelUnpublishing(ctx context.Context, itemID uuid.UUID) error
	GetUnpublishing(ctx context.Context, itemID uuid.UUID) (*ScheduledUnpublishing, error)

	// DueBefore lists unclaimed, non-failed records due at or before the
	// supplied instant, ordered by fire_at ascending with ties broken by item
	// id. A limit of zero or less means no limit. The listing is restartable:
	// claimed records are excluded until their claim expires.
	DueBefore(ctx context.Context, until time.Time, limit int) ([]Due, error)

	// Claim atomically marks the record as being processed until the supplied
	// deadline. It returns false when the record is missing, already claimed,
	// or marked fire_failed.
	Claim(ctx context.Context, kind Kind, itemID uuid.UUID, until time.Time) (bool, error)
	// Release clears the claim after a retryable failure, incrementing the
	// attempt counter and recording the failure for operators.
	Release(ctx context.Context, kind Kind, itemID uuid.UUID, failure error) error
	// Delete removes the record. This is the commit point of a firing: once
	// deleted the schedule can never fire again.
	Delete(ctx context.Context, kind Kind, itemID uuid.UUID) error
	// MarkFireFailed flags the record as terminally failed so it is excluded
	// from DueBefore and surfaced to operators instead of retried forever.
	MarkFireFailed(ctx context.Context, kind Kind, itemID uuid.UUID, failure error) error
	// ListFireFailed returns records that exhausted their retry budget.
	ListFireFailed(ctx context.Context) ([]Due, error)
}
