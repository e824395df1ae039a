package schedule

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a deterministic in-memory Store suitable for tests and
// hosts that do not need durability across restarts.
type MemoryStore struct {
	mu            sync.Mutex
	now           func() time.Time
	id            func() uuid.UUID
	publications  map[uuid.UUID]*ScheduledPublication
	unpublishings map[uuid.UUID]*ScheduledUnpublishing
}

// MemoryOption customises the in-memory store.
type MemoryOption func(*MemoryStore)

// WithClock overrides the internal clock, used mainly for tests.
func WithClock(clock func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithIDGenerator overrides the ID generator used for new records.
func WithIDGenerator(generator func() uuid.UUID) MemoryOption {
	return func(s *MemoryStore) {
		if generator != nil {
			s.id = generator
		}
	}
}

// NewMemoryStore creates an empty in-memory schedule store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	store := &MemoryStore{
		now:           func() time.Time { return time.Now().UTC() },
		id:            uuid.New,
		publications:  make(map[uuid.UUID]*ScheduledPublication),
		unpublishings: make(map[uuid.UUID]*ScheduledUnpublishing),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// SetPublication inserts a pending publication for the item.
func (s *MemoryStore) SetPublication(_ context.Context, req PublicationRequest) (*ScheduledPublication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.publications[req.ItemID]; exists {
		return nil, ErrAlreadyScheduled
	}

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
	s.publications[req.ItemID] = record
	return clonePublication(record), nil
}

// CancelPublication removes the pending publication if it has not been claimed.
func (s *MemoryStore) CancelPublication(_ context.Context, itemID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.publications[itemID]
	if !exists {
		return ErrNotScheduled
	}
	if record.ClaimedUntil != nil && record.ClaimedUntil.After(s.now()) {
		return ErrAlreadyFiring
	}
	delete(s.publications, itemID)
	return nil
}

// GetPublication returns the pending publication for the item.
func (s *MemoryStore) GetPublication(_ context.Context, itemID uuid.UUID) (*ScheduledPublication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.publications[itemID]
	if !exists {
		return nil, ErrNotScheduled
	}
	return clonePublication(record), nil
}

// SetUnpublishing inserts a pending unpublishing for the item.
func (s *MemoryStore) SetUnpublishing(_ context.Context, req UnpublishingRequest) (*ScheduledUnpublishing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.unpublishings[req.ItemID]; exists {
		return nil, ErrAlreadyScheduled
	}

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
	s.unpublishings[req.ItemID] = record
	return cloneUnpublishing(record), nil
}

// CancelUnpublishing removes the pending unpublishing if it has not been claimed.
func (s *MemoryStore) CancelUnpublishing(_ context.Context, itemID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.unpublishings[itemID]
	if !exists {
		return ErrNotScheduled
	}
	if record.ClaimedUntil != nil && record.ClaimedUntil.After(s.now()) {
		return ErrAlreadyFiring
	}
	delete(s.unpublishings, itemID)
	return nil
}

// GetUnpublishing returns the pending unpublishing for the item.
func (s *MemoryStore) GetUnpublishing(_ context.Context, itemID uuid.UUID) (*ScheduledUnpublishing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.unpublishings[itemID]
	if !exists {
		return nil, ErrNotScheduled
	}
	return cloneUnpublishing(record), nil
}

// DueBefore lists due records ordered by fire_at, ties broken by item id.
func (s *MemoryStore) DueBefore(_ context.Context, until time.Time, limit int) ([]Due, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	candidates := make([]Due, 0, len(s.publications)+len(s.unpublishings))
	for _, record := range s.publications {
		if !dueNow(record.FireAt, record.ClaimedUntil, record.FireFailed, until, now) {
			continue
		}
		candidates = append(candidates, Due{
			Kind:        KindPublication,
			ItemID:      record.ItemID,
			FireAt:      record.FireAt,
			Publication: clonePublication(record),
		})
	}
	for _, record := range s.unpublishings {
		if !dueNow(record.FireAt, record.ClaimedUntil, record.FireFailed, until, now) {
			continue
		}
		candidates = append(candidates, Due{
			Kind:         KindUnpublishing,
			ItemID:       record.ItemID,
			FireAt:       record.FireAt,
			Unpublishing: cloneUnpublishing(record),
		})
	}

	sortDue(candidates)
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// Claim marks the record as being processed until the supplied deadline.
func (s *MemoryStore) Claim(_ context.Context, kind Kind, itemID uuid.UUID, until time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	switch kind {
	case KindPublication:
		record, exists := s.publications[itemID]
		if !exists || record.FireFailed {
			return false, nil
		}
		if record.ClaimedUntil != nil && record.ClaimedUntil.After(now) {
			return false, nil
		}
		claimed := until.UTC()
		record.ClaimedUntil = &claimed
		record.UpdatedAt = now
		return true, nil
	case KindUnpublishing:
		record, exists := s.unpublishings[itemID]
		if !exists || record.FireFailed {
			return false, nil
		}
		if record.ClaimedUntil != nil && record.ClaimedUntil.After(now) {
			return false, nil
		}
		claimed := until.UTC()
		record.ClaimedUntil = &claimed
		record.UpdatedAt = now
		return true, nil
	}
	return false, nil
}

// Release clears the claim after a retryable failure.
func (s *MemoryStore) Release(_ context.Context, kind Kind, itemID uuid.UUID, failure error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	message := ""
	if failure != nil {
		message = failure.Error()
	}
	switch kind {
	case KindPublication:
		record, exists := s.publications[itemID]
		if !exists {
			return ErrNotScheduled
		}
		record.ClaimedUntil = nil
		record.Attempts++
		record.LastError = message
		record.UpdatedAt = now
	case KindUnpublishing:
		record, exists := s.unpublishings[itemID]
		if !exists {
			return ErrNotScheduled
		}
		record.ClaimedUntil = nil
		record.Attempts++
		record.LastError = message
		record.UpdatedAt = now
	}
	return nil
}

// Delete removes the record, committing a firing or operator cleanup.
func (s *MemoryStore) Delete(_ context.Context, kind Kind, itemID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case KindPublication:
		if _, exists := s.publications[itemID]; !exists {
			return ErrNotScheduled
		}
		delete(s.publications, itemID)
	case KindUnpublishing:
		if _, exists := s.unpublishings[itemID]; !exists {
			return ErrNotScheduled
		}
		delete(s.unpublishings, itemID)
	}
	return nil
}

// MarkFireFailed flags the record as terminally failed.
func (s *MemoryStore) MarkFireFailed(_ context.Context, kind Kind, itemID uuid.UUID, failure error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	message := ""
	if failure != nil {
		message = failure.Error()
	}
	switch kind {
	case KindPublication:
		record, exists := s.publications[itemID]
		if !exists {
			return ErrNotScheduled
		}
		record.ClaimedUntil = nil
		record.FireFailed = true
		record.LastError = message
		record.UpdatedAt = now
	case KindUnpublishing:
		record, exists := s.unpublishings[itemID]
		if !exists {
			return ErrNotScheduled
		}
		record.ClaimedUntil = nil
		record.FireFailed = true
		record.LastError = message
		record.UpdatedAt = now
	}
	return nil
}

// ListFireFailed returns records that exhausted their retry budget.
func (s *MemoryStore) ListFireFailed(_ context.Context) ([]Due, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Due, 0)
	for _, record := range s.publications {
		if !record.FireFailed {
			continue
		}
		out = append(out, Due{
			Kind:        KindPublication,
			ItemID:      record.ItemID,
			FireAt:      record.FireAt,
			Publication: clonePublication(record),
		})
	}
	for _, record := range s.unpublishings {
		if !record.FireFailed {
			continue
		}
		out = append(out, Due{
			Kind:         KindUnpublishing,
			ItemID:       record.ItemID,
			FireAt:       record.FireAt,
			Unpublishing: cloneUnpublishing(record),
		})
	}
	sortDue(out)
	return out, nil
}

func dueNow(fireAt time.Time, claimedUntil *time.Time, fireFailed bool, until, now time.Time) bool {
	if fireFailed {
		return false
	}
	if fireAt.After(until) {
		return false
	}
	if claimedUntil != nil && claimedUntil.After(now) {
		return false
	}
	return true
}

func sortDue(records []Due) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].FireAt.Equal(records[j].FireAt) {
			if records[i].ItemID == records[j].ItemID {
				return records[i].Kind < records[j].Kind
			}
			return records[i].ItemID.String() < records[j].ItemID.String()
		}
		return records[i].FireAt.Before(records[j].FireAt)
	})
}

func clonePublication(record *ScheduledPublication) *ScheduledPublication {
	if record == nil {
		return nil
	}
	clone := *record
	if record.Locales != nil {
		clone.Locales = append([]string(nil), record.Locales...)
	}
	if record.ClaimedUntil != nil {
		claimed := *record.ClaimedUntil
		clone.ClaimedUntil = &claimed
	}
	return &clone
}

func cloneUnpublishing(record *ScheduledUnpublishing) *ScheduledUnpublishing {
	if record == nil {
		return nil
	}
	clone := *record
	if record.Locales != nil {
		clone.Locales = append([]string(nil), record.Locales...)
	}
	if record.ClaimedUntil != nil {
		claimed := *record.ClaimedUntil
		clone.ClaimedUntil = &claimed
	}
	return &clone
}
