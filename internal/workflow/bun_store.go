package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-lifecycle/internal/logging"
	"github.com/goliatone/go-lifecycle/pkg/interfaces"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BunStore persists workflows, stages, model assignments, and item stage
// positions through bun.
type BunStore struct {
	db         *bun.DB
	workflows  repository.Repository[*Workflow]
	itemStages repository.Repository[*ItemStage]
	now        func() time.Time
	id         func() uuid.UUID
	logger     interfaces.Logger
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

// WithBunLogger injects the logger used for mutation entries.
func WithBunLogger(logger interfaces.Logger) BunOption {
	return func(s *BunStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewBunStore constructs a workflow store backed by the supplied database.
func NewBunStore(db *bun.DB, opts ...BunOption) *BunStore {
	return NewBunStoreWithCache(db, nil, nil, opts...)
}

// NewBunStoreWithCache constructs a workflow store with read caching for
// workflow and item stage lookups.
func NewBunStoreWithCache(db *bun.DB, cacheService cache.CacheService, keySerializer cache.KeySerializer, opts ...BunOption) *BunStore {
	store := &BunStore{
		db:         db,
		workflows:  wrapWithCache(NewWorkflowRepository(db), cacheService, keySerializer),
		itemStages: wrapWithCache(NewItemStageRepository(db), cacheService, keySerializer),
		now:        func() time.Time { return time.Now().UTC() },
		id:         uuid.New,
		logger:     logging.NoOp(),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// CreateWorkflow validates and stores a new workflow with its stages.
func (s *BunStore) CreateWorkflow(ctx context.Context, req CreateRequest) (*Workflow, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(req.APIKey)
	if _, err := s.workflows.GetByIdentifier(ctx, apiKey); err == nil {
		return nil, ErrDuplicateAPIKey
	} else if !goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return nil, fmt.Errorf("workflow: api_key lookup: %w", err)
	}

	workflowID := s.id()
	stages, err := buildStages(workflowID, req.Stages, s.id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	record := &Workflow{
		ID:        workflowID,
		Name:      strings.TrimSpace(req.Name),
		APIKey:    apiKey,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(&stages).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("workflow: create: %w", err)
	}

	record.Stages = stages
	s.logger.Info("workflow.created",
		"workflow_id", workflowID.String(),
		"api_key", apiKey,
		"stages", len(stages),
	)
	return record, nil
}

// UpdateWorkflow applies the patch, replacing the stage list when supplied
// and reporting stages removed while items still reference them.
func (s *BunStore) UpdateWorkflow(ctx context.Context, req UpdateRequest) (*UpdateResult, error) {
	if req.ID == uuid.Nil {
		return nil, ErrWorkflowRequired
	}

	record, err := s.GetWorkflow(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.APIKey != nil {
		apiKey := strings.TrimSpace(*req.APIKey)
		if apiKey == "" {
			return nil, ErrAPIKeyRequired
		}
		if existing, err := s.workflows.GetByIdentifier(ctx, apiKey); err == nil {
			if existing.ID != record.ID {
				return nil, ErrDuplicateAPIKey
			}
		} else if !goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
			return nil, fmt.Errorf("workflow: api_key lookup: %w", err)
		}
		record.APIKey = apiKey
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		record.Name = name
	}

	var stages []*Stage
	var warnings []UpdateWarning
	if req.Stages != nil {
		stages, err = buildStages(record.ID, *req.Stages, s.id)
		if err != nil {
			return nil, err
		}
		warnings, err = s.removedStageWarnings(ctx, record.Stages, stages)
		if err != nil {
			return nil, err
		}
	}

	record.UpdatedAt = s.now()
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewUpdate().
			Model(record).
			Column("name", "api_key", "updated_at").
			WherePK().
			Exec(ctx); err != nil {
			return err
		}
		if stages == nil {
			return nil
		}
		if _, err := tx.NewDelete().
			Model((*Stage)(nil)).
			Where("workflow_id = ?", record.ID).
			Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(&stages).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("workflow: update: %w", err)
	}

	if stages != nil {
		record.Stages = stages
	}
	s.logger.Info("workflow.updated", "workflow_id", record.ID.String(), "api_key", record.APIKey)
	for _, warning := range warnings {
		s.logger.Warn("workflow.stage.removed_in_use",
			"workflow_id", record.ID.String(),
			"stage_id", warning.StageID.String(),
			"items", warning.Items,
		)
	}
	return &UpdateResult{Workflow: record, Warnings: warnings}, nil
}

// DeleteWorkflow removes the workflow, its stages, and its model assignments.
// Item stage rows are kept as dangling references.
func (s *BunStore) DeleteWorkflow(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetWorkflow(ctx, id); err != nil {
		return err
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*ModelAssignment)(nil)).
			Where("workflow_id = ?", id).
			Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().
			Model((*Stage)(nil)).
			Where("workflow_id = ?", id).
			Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().
			Model((*Workflow)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("workflow: delete: %w", err)
	}
	s.logger.Info("workflow.deleted", "workflow_id", id.String())
	return nil
}

// GetWorkflow returns the workflow with its ordered stage list.
func (s *BunStore) GetWorkflow(ctx context.Context, id uuid.UUID) (*Workflow, error) {
	record, err := s.workflows.GetByID(ctx, id.String())
	if err != nil {
		if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
			return nil, ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("workflow: get: %w", err)
	}
	if err := s.loadStages(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// ListWorkflows returns every stored workflow with ordered stages.
func (s *BunStore) ListWorkflows(ctx context.Context) ([]*Workflow, error) {
	records, _, err := s.workflows.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("workflow: list: %w", err)
	}
	for _, record := range records {
		if err := s.loadStages(ctx, record); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// AssignToModel binds the model to a workflow, or clears the binding.
func (s *BunStore) AssignToModel(ctx context.Context, modelID uuid.UUID, workflowID *uuid.UUID) error {
	if modelID == uuid.Nil {
		return ErrModelRequired
	}

	if workflowID == nil {
		_, err := s.db.NewDelete().
			Model((*ModelAssignment)(nil)).
			Where("model_id = ?", modelID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("workflow: unassign model: %w", err)
		}
		return nil
	}

	if _, err := s.GetWorkflow(ctx, *workflowID); err != nil {
		return err
	}

	assignment := &ModelAssignment{
		ModelID:    modelID,
		WorkflowID: *workflowID,
		UpdatedAt:  s.now(),
	}
	_, err := s.db.NewInsert().
		Model(assignment).
		On("CONFLICT (model_id) DO UPDATE").
		Set("workflow_id = EXCLUDED.workflow_id").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("workflow: assign model: %w", err)
	}
	return nil
}

// AssignedWorkflow returns the workflow bound to the model, or nil.
func (s *BunStore) AssignedWorkflow(ctx context.Context, modelID uuid.UUID) (*Workflow, error) {
	assignment := new(ModelAssignment)
	err := s.db.NewSelect().
		Model(assignment).
		Where("model_id = ?", modelID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("workflow: assigned workflow: %w", err)
	}

	record, err := s.GetWorkflow(ctx, assignment.WorkflowID)
	if errors.Is(err, ErrWorkflowNotFound) {
		return nil, nil
	}
	return record, err
}

// GetCurrentStage resolves the item's stage, treating dangling references as
// "no stage".
func (s *BunStore) GetCurrentStage(ctx context.Context, itemID uuid.UUID) (*Stage, error) {
	entry, err := s.itemStages.GetByID(ctx, itemID.String())
	if err != nil {
		if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("workflow: current stage: %w", err)
	}

	stage := new(Stage)
	err = s.db.NewSelect().
		Model(stage).
		Where("id = ?", entry.StageID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("workflow: current stage: %w", err)
	}
	return stage, nil
}

// SetCurrentStage moves the item to the supplied stage.
func (s *BunStore) SetCurrentStage(ctx context.Context, itemID, workflowID, stageID uuid.UUID) error {
	entry := &ItemStage{
		ItemID:     itemID,
		StageID:    stageID,
		WorkflowID: workflowID,
		UpdatedAt:  s.now(),
	}
	_, err := s.db.NewInsert().
		Model(entry).
		On("CONFLICT (item_id) DO UPDATE").
		Set("stage_id = EXCLUDED.stage_id").
		Set("workflow_id = EXCLUDED.workflow_id").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("workflow: set current stage: %w", err)
	}
	return nil
}

// SweepDanglingStages clears item stage rows whose stage no longer exists.
func (s *BunStore) SweepDanglingStages(ctx context.Context) (int, error) {
	res, err := s.db.NewDelete().
		Model((*ItemStage)(nil)).
		Where("stage_id NOT IN (SELECT id FROM workflow_stages)").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("workflow: sweep dangling stages: %w", err)
	}
	cleared, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("workflow: sweep dangling stages: %w", err)
	}
	if cleared > 0 {
		s.logger.Info("workflow.sweep.cleared", "items", cleared)
	}
	return int(cleared), nil
}

func (s *BunStore) loadStages(ctx context.Context, record *Workflow) error {
	var stages []*Stage
	err := s.db.NewSelect().
		Model(&stages).
		Where("workflow_id = ?", record.ID).
		OrderExpr("position ASC").
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("workflow: load stages: %w", err)
	}
	record.Stages = stages
	return nil
}

func (s *BunStore) removedStageWarnings(ctx context.Context, before, after []*Stage) ([]UpdateWarning, error) {
	kept := make(map[uuid.UUID]struct{}, len(after))
	for _, stage := range after {
		kept[stage.ID] = struct{}{}
	}

	var warnings []UpdateWarning
	for _, stage := range before {
		if _, ok := kept[stage.ID]; ok {
			continue
		}
		count, err := s.db.NewSelect().
			Model((*ItemStage)(nil)).
			Where("stage_id = ?", stage.ID).
			Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("workflow: count stage references: %w", err)
		}
		if count > 0 {
			warnings = append(warnings, UpdateWarning{
				Code:    WarningStageRemovedInUse,
				StageID: stage.ID,
				Items:   count,
			})
		}
	}
	return warnings, nil
}
