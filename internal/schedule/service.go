package schedule

import (
	"context"
	"time"

	"github.com/goliatone/go-lifecycle/domain"
	"github.com/goliatone/go-lifecycle/internal/logging"
	"github.com/goliatone/go-lifecycle/pkg/interfaces"
	"github.com/google/uuid"
)

// Service exposes schedule management use-cases: validated creation and
// cancellation of publication and unpublishing schedules.
type Service interface {
	SetPublication(ctx context.Context, req PublicationRequest) (*ScheduledPublication, error)
	CancelPublication(ctx context.Context, itemID uuid.UUID) error
	GetPublication(ctx context.Context, itemID uuid.UUID) (*ScheduledPublication, error)
	SetUnpublishing(ctx context.Context, req UnpublishingRequest) (*ScheduledUnpublishing, error)
	CancelUnpublishing(ctx context.Context, itemID uuid.UUID) error
	GetUnpublishing(ctx context.Context, itemID uuid.UUID) (*ScheduledUnpublishing, error)
}

// ServiceOption configures the schedule service.
type ServiceOption func(*service)

// WithServiceClock overrides the clock used for fire_at validation.
func WithServiceClock(clock func() time.Time) ServiceOption {
	return func(s *service) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithServiceLogger injects the logger used by the service.
func WithServiceLogger(logger interfaces.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type service struct {
	store  Store
	repo   interfaces.ContentRepository
	logger interfaces.Logger
	now    func() time.Time
}

// NewService constructs the schedule service.
func NewService(store Store, repo interfaces.ContentRepository, opts ...ServiceOption) Service {
	if store == nil {
		panic("schedule: store required")
	}
	if repo == nil {
		panic("schedule: content repository required")
	}
	svc := &service{
		store:  store,
		repo:   repo,
		logger: logging.NoOp(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *service) SetPublication(ctx context.Context, req PublicationRequest) (*ScheduledPublication, error) {
	if req.ItemID == uuid.Nil {
		return nil, ErrItemRequired
	}
	if req.Scope.IsZero() {
		req.Scope = domain.AllLocales()
	}
	if err := s.validateFireAt(req.FireAt); err != nil {
		return nil, err
	}
	if err := s.validateScope(ctx, req.Scope); err != nil {
		return nil, err
	}
	if err := s.requireItem(ctx, req.ItemID); err != nil {
		return nil, err
	}

	record, err := s.store.SetPublication(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("schedule.publication.set",
		"item_id", record.ItemID.String(),
		"fire_at", record.FireAt,
		"scope", record.Scope().String(),
	)
	return record, nil
}

func (s *service) CancelPublication(ctx context.Context, itemID uuid.UUID) error {
	if itemID == uuid.Nil {
		return ErrItemRequired
	}
	if err := s.store.CancelPublication(ctx, itemID); err != nil {
		return err
	}
	s.logger.Info("schedule.publication.cancelled", "item_id", itemID.String())
	return nil
}

func (s *service) GetPublication(ctx context.Context, itemID uuid.UUID) (*ScheduledPublication, error) {
	if itemID == uuid.Nil {
		return nil, ErrItemRequired
	}
	return s.store.GetPublication(ctx, itemID)
}

func (s *service) SetUnpublishing(ctx context.Context, req UnpublishingRequest) (*ScheduledUnpublishing, error) {
	if req.ItemID == uuid.Nil {
		return nil, ErrItemRequired
	}
	if req.Scope.IsZero() {
		req.Scope = domain.AllLocales()
	}
	if err := s.validateFireAt(req.FireAt); err != nil {
		return nil, err
	}
	if err := s.validateScope(ctx, req.Scope); err != nil {
		return nil, err
	}

	state, err := s.repo.GetItemState(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if !state.PublishedIn(req.Scope.Normalize()) {
		return nil, ErrItemNotPublished
	}

	record, err := s.store.SetUnpublishing(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("schedule.unpublishing.set",
		"item_id", record.ItemID.String(),
		"fire_at", record.FireAt,
		"scope", record.Scope().String(),
	)
	return record, nil
}

func (s *service) CancelUnpublishing(ctx context.Context, itemID uuid.UUID) error {
	if itemID == uuid.Nil {
		return ErrItemRequired
	}
	if err := s.store.CancelUnpublishing(ctx, itemID); err != nil {
		return err
	}
	s.logger.Info("schedule.unpublishing.cancelled", "item_id", itemID.String())
	return nil
}

func (s *service) GetUnpublishing(ctx context.Context, itemID uuid.UUID) (*ScheduledUnpublishing, error) {
	if itemID == uuid.Nil {
		return nil, ErrItemRequired
	}
	return s.store.GetUnpublishing(ctx, itemID)
}

func (s *service) validateFireAt(fireAt time.Time) error {
	if fireAt.IsZero() || !fireAt.After(s.now()) {
		return ErrInvalidSchedule
	}
	return nil
}

func (s *service) validateScope(ctx context.Context, scope domain.LocaleScope) error {
	normalized := scope.Normalize()
	if normalized.IsAll() {
		return nil
	}
	configured, err := s.repo.Locales(ctx)
	if err != nil {
		return err
	}
	return normalized.Validate(configured)
}

func (s *service) requireItem(ctx context.Context, itemID uuid.UUID) error {
	exists, err := s.repo.ItemExists(ctx, itemID)
	if err != nil {
		return err
	}
	if !exists {
		return interfaces.ErrItemNotFound
	}
	return nil
}
