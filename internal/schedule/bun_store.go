package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BunStore persists schedule records through bun. Uniqueness is enforced by
// the item_id unique constraint and conflict-free inserts; the claim protocol
// is a conditional update so concurrent dispatchers cannot both win.
type BunStore struct {
	db  *bun.DB
	now func() time.Time
	id  func() uuid.UUID
}

// BunOption customises the bun-backed store.
type BunOption func(*BunStore)

// WithBunClock overrides the internal clock, used mainly for tests.
func WithBunClock(clock func() time.Time) BunOption {
	return func(s *BunStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithBunIDGenerator overrides the ID generator used for new records.
func WithBunIDGenerator(generator func() uuid.UUID) BunOption {
	return func(s *BunStore) {
		if generator != nil {
			s.id = generator
		}
	}
}

// NewBunStore constructs a schedule store backed by the supplied database.
func NewBunStore(db *bun.DB, opts ...BunOption) *BunStore {
	store := &BunStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
		id:  uuid.New,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// SetPublication inserts a pending publication for the item.
func (s *BunStore) SetPublication(ctx context.Context, req PublicationRequest) (*ScheduledPublication, error) {
	now := s.now()
	scope := req.Scope.Normalize()
	record := &ScheduledPublication{
		ID:           s.id(),
		ItemID:       req.ItemID,
		FireAt:       req.FireAt.UTC(),
		AllLocales:   scope.IsAll(),
		Locales:      scope.Locales,
		NonLocalized: req.NonLocalized,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	res, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (item_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("schedule: insert publication: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("schedule: insert publication: %w", err)
	}
	if inserted == 0 {
		return nil, ErrAlreadyScheduled
	}
	return record, nil
}

// CancelPublication removes the pending publication if it has not been claimed.
func (s *BunStore) CancelPublication(ctx context.Context, itemID uuid.UUID) error {
	return s.cancel(ctx, KindPublication, itemID)
}

// GetPublication returns the pending publication for the item.
func (s *BunStore) GetPublication(ctx context.Context, itemID uuid.UUID) (*ScheduledPublication, error) {
	record := new(ScheduledPublication)
	err := s.db.NewSelect().
		Model(record).
		Where("item_id = ?", itemID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotScheduled
	}
	if err != nil {
		return nil, fmt.Errorf("schedule: get publication: %w", err)
	}
	return record, nil
}

// SetUnpublishing inserts a pending unpublishing for the item.
func (s *BunStore) SetUnpublishing(ctx context.Context, req UnpublishingRequest) (*ScheduledUnpublishing, error) {
	now := s.now()
	scope := req.Scope.Normalize()
	record := &ScheduledUnpublishing{
		ID:         s.id(),
		ItemID:     req.ItemID,
		FireAt:     req.FireAt.UTC(),
		AllLocales: scope.IsAll(),
		Locales:    scope.Locales,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	res, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (item_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("schedule: insert unpublishing: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("schedule: insert unpublishing: %w", err)
	}
	if inserted == 0 {
		return nil, ErrAlreadyScheduled
	}
	return record, nil
}

// CancelUnpublishing removes the pending unpublishing if it has not been claimed.
func (s *BunStore) CancelUnpublishing(ctx context.Context, itemID uuid.UUID) error {
	return s.cancel(ctx, KindUnpublishing, itemID)
}

// GetUnpublishing returns the pending unpublishing for the item.
func (s *BunStore) GetUnpublishing(ctx context.Context, itemID uuid.UUID) (*ScheduledUnpublishing, error) {
	record := new(ScheduledUnpublishing)
	err := s.db.NewSelect().
		Model(record).
		Where("item_id = ?", itemID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotScheduled
	}
	if err != nil {
		return nil, fmt.Errorf("schedule: get unpublishing: %w", err)
	}
	return record, nil
}

// DueBefore lists due records ordered by fire_at, ties broken by item id.
func (s *BunStore) DueBefore(ctx context.Context, until time.Time, limit int) ([]Due, error) {
	now := s.now()

	var publications []*ScheduledPublication
	err := s.db.NewSelect().
		Model(&publications).
		Where("fire_at <= ?", until.UTC()).
		Where("fire_failed = ?", false).
		Where("claimed_until IS NULL OR claimed_until < ?", now).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("schedule: list due publications: %w", err)
	}

	var unpublishings []*ScheduledUnpublishing
	err = s.db.NewSelect().
		Model(&unpublishings).
		Where("fire_at <= ?", until.UTC()).
		Where("fire_failed = ?", false).
		Where("claimed_until IS NULL OR claimed_until < ?", now).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("schedule: list due unpublishings: %w", err)
	}

	due := make([]Due, 0, len(publications)+len(unpublishings))
	for _, record := range publications {
		due = append(due, Due{
			Kind:        KindPublication,
			ItemID:      record.ItemID,
			FireAt:      record.FireAt,
			Publication: record,
		})
	}
	for _, record := range unpublishings {
		due = append(due, Due{
			Kind:         KindUnpublishing,
			ItemID:       record.ItemID,
			FireAt:       record.FireAt,
			Unpublishing: record,
		})
	}

	sortDue(due)
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// Claim atomically marks the record as being processed until the deadline.
func (s *BunStore) Claim(ctx context.Context, kind Kind, itemID uuid.UUID, until time.Time) (bool, error) {
	now := s.now()
	query := s.db.NewUpdate().
		Model(s.model(kind)).
		Set("claimed_until = ?", until.UTC()).
		Set("updated_at = ?", now).
		Where("item_id = ?", itemID).
		Where("fire_failed = ?", false).
		Where("claimed_until IS NULL OR claimed_until < ?", now)

	res, err := query.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("schedule: claim %s: %w", kind, err)
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("schedule: claim %s: %w", kind, err)
	}
	return updated > 0, nil
}

// Release clears the claim after a retryable failure.
func (s *BunStore) Release(ctx context.Context, kind Kind, itemID uuid.UUID, failure error) error {
	message := ""
	if failure != nil {
		message = failure.Error()
	}
	res, err := s.db.NewUpdate().
		Model(s.model(kind)).
		Set("claimed_until = NULL").
		Set("attempts = attempts + 1").
		Set("last_error = ?", message).
		Set("updated_at = ?", s.now()).
		Where("item_id = ?", itemID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("schedule: release %s: %w", kind, err)
	}
	return s.requireRow(res, kind)
}

// Delete removes the record, committing a firing or operator cleanup.
func (s *BunStore) Delete(ctx context.Context, kind Kind, itemID uuid.UUID) error {
	res, err := s.db.NewDelete().
		Model(s.model(kind)).
		Where("item_id = ?", itemID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("schedule: delete %s: %w", kind, err)
	}
	return s.requireRow(res, kind)
}

// MarkFireFailed flags the record as terminally failed.
func (s *BunStore) MarkFireFailed(ctx context.Context, kind Kind, itemID uuid.UUID, failure error) error {
	message := ""
	if failure != nil {
		message = failure.Error()
	}
	res, err := s.db.NewUpdate().
		Model(s.model(kind)).
		Set("claimed_until = NULL").
		Set("fire_failed = ?", true).
		Set("last_error = ?", message).
		Set("updated_at = ?", s.now()).
		Where("item_id = ?", itemID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("schedule: mark fire_failed %s: %w", kind, err)
	}
	return s.requireRow(res, kind)
}

// ListFireFailed returns records that exhausted their retry budget.
func (s *BunStore) ListFireFailed(ctx context.Context) ([]Due, error) {
	var publications []*ScheduledPublication
	err := s.db.NewSelect().
		Model(&publications).
		Where("fire_failed = ?", true).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("schedule: list fire_failed publications: %w", err)
	}

	var unpublishings []*ScheduledUnpublishing
	err = s.db.NewSelect().
		Model(&unpublishings).
		Where("fire_failed = ?", true).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("schedule: list fire_failed unpublishings: %w", err)
	}

	due := make([]Due, 0, len(publications)+len(unpublishings))
	for _, record := range publications {
		due = append(due, Due{Kind: KindPublication, ItemID: record.ItemID, FireAt: record.FireAt, Publication: record})
	}
	for _, record := range unpublishings {
		due = append(due, Due{Kind: KindUnpublishing, ItemID: record.ItemID, FireAt: record.FireAt, Unpublishing: record})
	}
	sortDue(due)
	return due, nil
}

func (s *BunStore) cancel(ctx context.Context, kind Kind, itemID uuid.UUID) error {
	now := s.now()
	res, err := s.db.NewDelete().
		Model(s.model(kind)).
		Where("item_id = ?", itemID).
		Where("claimed_until IS NULL OR claimed_until < ?", now).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("schedule: cancel %s: %w", kind, err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("schedule: cancel %s: %w", kind, err)
	}
	if deleted > 0 {
		return nil
	}

	// Nothing deleted: either no record, or the dispatcher holds a claim.
	exists, err := s.db.NewSelect().
		Model(s.model(kind)).
		Where("item_id = ?", itemID).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("schedule: cancel %s: %w", kind, err)
	}
	if exists {
		return ErrAlreadyFiring
	}
	return ErrNotScheduled
}

func (s *BunStore) model(kind Kind) any {
	if kind == KindUnpublishing {
		return (*ScheduledUnpublishing)(nil)
	}
	return (*ScheduledPublication)(nil)
}

func (s *BunStore) requireRow(res sql.Result, kind Kind) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("schedule: %s row count: %w", kind, err)
	}
	if affected == 0 {
		return ErrNotScheduled
	}
	return nil
}
