package engine

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-lifecycle/domain"
	"github.com/goliatone/go-lifecycle/internal/logging"
	"github.com/goliatone/go-lifecycle/internal/workflow"
	"github.com/goliatone/go-lifecycle/pkg/interfaces"
	"github.com/google/uuid"
)

// Engine is the authoritative state machine for item publication state and
// stage position. Every mutation of a single item is serialised through a
// per-item lock so scheduled firings and manual requests cannot race.
type Engine struct {
	repo      interfaces.ContentRepository
	workflows workflow.Store
	validator interfaces.StageValidator
	locks     *itemLocks
	logger    interfaces.Logger
	now       func() time.Time
}

// Option configures the engine.
type Option func(*Engine)

// WithStageValidator installs the deployment's stage-move business rules.
func WithStageValidator(validator interfaces.StageValidator) Option {
	return func(e *Engine) {
		e.validator = validator
	}
}

// WithLogger injects the logger used by the engine.
func WithLogger(logger interfaces.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the clock used for timestamps, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.now = clock
		}
	}
}

// New constructs a transition engine bound to the content repository and
// workflow store.
func New(repo interfaces.ContentRepository, workflows workflow.Store, opts ...Option) *Engine {
	if repo == nil {
		panic("engine: content repository required")
	}
	if workflows == nil {
		panic("engine: workflow store required")
	}
	engine := &Engine{
		repo:      repo,
		workflows: workflows,
		locks:     newItemLocks(),
		logger:    logging.NoOp(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// ApplyPublish transitions the scoped locales to published. Publishing an
// already-published scope is a no-op, so retries after partial failure are
// safe.
func (e *Engine) ApplyPublish(ctx context.Context, itemID uuid.UUID, scope domain.LocaleScope) error {
	if itemID == uuid.Nil {
		return ErrItemRequired
	}
	if scope.IsZero() {
		scope = domain.AllLocales()
	}
	scope = scope.Normalize()

	unlock := e.locks.Lock(itemID)
	defer unlock()

	state, err := e.itemState(ctx, itemID)
	if err != nil {
		return err
	}

	if e.fullyPublished(ctx, state, scope) {
		e.logger.Debug("engine.publish.noop", "item_id", itemID.String(), "scope", scope.String())
		return nil
	}

	if err := e.repo.SetPublicationState(ctx, itemID, scope, true); err != nil {
		if errors.Is(err, interfaces.ErrItemNotFound) {
			return ErrItemGone
		}
		return err
	}
	e.logger.Info("engine.publish.applied", "item_id", itemID.String(), "scope", scope.String())
	return nil
}

// ApplyUnpublish transitions the scoped locales to unpublished. When the item
// is already unpublished in every scoped locale this is a logged no-op, since
// schedules may race with manual edits.
func (e *Engine) ApplyUnpublish(ctx context.Context, itemID uuid.UUID, scope domain.LocaleScope) error {
	if itemID == uuid.Nil {
		return ErrItemRequired
	}
	if scope.IsZero() {
		scope = domain.AllLocales()
	}
	scope = scope.Normalize()

	unlock := e.locks.Lock(itemID)
	defer unlock()

	state, err := e.itemState(ctx, itemID)
	if err != nil {
		return err
	}

	if !state.PublishedIn(scope) {
		e.logger.Warn("engine.unpublish.noop",
			"item_id", itemID.String(),
			"scope", scope.String(),
			"reason", "not published in scoped locales",
		)
		return nil
	}

	if err := e.repo.SetPublicationState(ctx, itemID, scope, false); err != nil {
		if errors.Is(err, interfaces.ErrItemNotFound) {
			return ErrItemGone
		}
		return err
	}
	e.logger.Info("engine.unpublish.applied", "item_id", itemID.String(), "scope", scope.String())
	return nil
}

// MoveStage moves the item to the target stage of its assigned workflow.
// Any stage-to-stage move is permitted unless the installed validator vetoes
// it; ordering is advisory. Moving to the current stage is a no-op.
func (e *Engine) MoveStage(ctx context.Context, itemID, targetStageID uuid.UUID) error {
	if itemID == uuid.Nil {
		return ErrItemRequired
	}

	unlock := e.locks.Lock(itemID)
	defer unlock()

	state, err := e.itemState(ctx, itemID)
	if err != nil {
		return err
	}

	assigned, err := e.workflows.AssignedWorkflow(ctx, state.ModelID)
	if err != nil {
		return err
	}
	if assigned == nil {
		return ErrNoWorkflow
	}
	if assigned.StageByID(targetStageID) == nil {
		return ErrUnknownStage
	}

	current, err := e.workflows.GetCurrentStage(ctx, itemID)
	if err != nil {
		return err
	}
	if current != nil && current.ID == targetStageID {
		e.logger.Debug("engine.stage.noop", "item_id", itemID.String(), "stage_id", targetStageID.String())
		return nil
	}

	if e.validator != nil {
		move := interfaces.StageMove{
			ItemID:        itemID,
			WorkflowID:    assigned.ID,
			TargetStageID: targetStageID,
		}
		if current != nil {
			from := current.ID
			move.FromStageID = &from
		}
		if err := e.validator.ValidateStageMove(ctx, move); err != nil {
			e.logger.Info("engine.stage.rejected",
				"item_id", itemID.String(),
				"stage_id", targetStageID.String(),
				"reason", err.Error(),
			)
			return &RejectionError{Reason: err.Error()}
		}
	}

	if err := e.workflows.SetCurrentStage(ctx, itemID, assigned.ID, targetStageID); err != nil {
		return err
	}
	e.logger.Info("engine.stage.moved", "item_id", itemID.String(), "stage_id", targetStageID.String())
	return nil
}

// CurrentStage reports the stage the item occupies, nil when it has none.
func (e *Engine) CurrentStage(ctx context.Context, itemID uuid.UUID) (*workflow.Stage, error) {
	return e.workflows.GetCurrentStage(ctx, itemID)
}

func (e *Engine) itemState(ctx context.Context, itemID uuid.UUID) (*interfaces.ItemState, error) {
	state, err := e.repo.GetItemState(ctx, itemID)
	if err != nil {
		if errors.Is(err, interfaces.ErrItemNotFound) {
			return nil, ErrItemGone
		}
		return nil, err
	}
	return state, nil
}

func (e *Engine) fullyPublished(ctx context.Context, state *interfaces.ItemState, scope domain.LocaleScope) bool {
	var locales []string
	if scope.IsAll() {
		configured, err := e.repo.Locales(ctx)
		if err != nil {
			return false
		}
		locales = configured
	} else {
		locales = scope.Locales
	}
	for _, code := range locales {
		if !state.PublishedLocales[code] {
			return false
		}
	}
	return len(locales) > 0
}
