package workflow

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-lifecycle/internal/logging"
	"github.com/goliatone/go-lifecycle/pkg/interfaces"
	"github.com/google/uuid"
)

// MemoryStore is a deterministic in-memory Store for tests and hosts without
// a database.
type MemoryStore struct {
	mu          sync.RWMutex
	now         func() time.Time
	id          func() uuid.UUID
	logger      interfaces.Logger
	workflows   map[uuid.UUID]*Workflow
	apiKeys     map[string]uuid.UUID
	assignments map[uuid.UUID]uuid.UUID
	itemStages  map[uuid.UUID]*ItemStage
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

// WithLogger injects the logger used for mutation entries.
func WithLogger(logger interfaces.Logger) MemoryOption {
	return func(s *MemoryStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewMemoryStore creates an empty in-memory workflow store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	store := &MemoryStore{
		now:         func() time.Time { return time.Now().UTC() },
		id:          uuid.New,
		logger:      logging.NoOp(),
		workflows:   make(map[uuid.UUID]*Workflow),
		apiKeys:     make(map[string]uuid.UUID),
		assignments: make(map[uuid.UUID]uuid.UUID),
		itemStages:  make(map[uuid.UUID]*ItemStage),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// CreateWorkflow validates and stores a new workflow.
func (s *MemoryStore) CreateWorkflow(_ context.Context, req CreateRequest) (*Workflow, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	apiKey := strings.TrimSpace(req.APIKey)
	if _, exists := s.apiKeys[apiKey]; exists {
		return nil, ErrDuplicateAPIKey
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
		Stages:    stages,
	}
	s.workflows[workflowID] = record
	s.apiKeys[apiKey] = workflowID
	s.logger.Info("workflow.created",
		"workflow_id", workflowID.String(),
		"api_key", apiKey,
		"stages", len(stages),
	)
	return cloneWorkflow(record), nil
}

// UpdateWorkflow applies the patch, reporting dangling-stage warnings.
func (s *MemoryStore) UpdateWorkflow(_ context.Context, req UpdateRequest) (*UpdateResult, error) {
	if req.ID == uuid.Nil {
		return nil, ErrWorkflowRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.workflows[req.ID]
	if !exists {
		return nil, ErrWorkflowNotFound
	}

	// Validate the full patch before touching the record so a rejected
	// request leaves the workflow untouched.
	apiKey := record.APIKey
	if req.APIKey != nil {
		apiKey = strings.TrimSpace(*req.APIKey)
		if apiKey == "" {
			return nil, ErrAPIKeyRequired
		}
		if owner, taken := s.apiKeys[apiKey]; taken && owner != record.ID {
			return nil, ErrDuplicateAPIKey
		}
	}
	name := record.Name
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
	}
	stages := record.Stages
	var warnings []UpdateWarning
	if req.Stages != nil {
		built, err := buildStages(record.ID, *req.Stages, s.id)
		if err != nil {
			return nil, err
		}
		warnings = s.removedStageWarnings(record.Stages, built)
		stages = built
	}

	if apiKey != record.APIKey {
		delete(s.apiKeys, record.APIKey)
		s.apiKeys[apiKey] = record.ID
	}
	record.APIKey = apiKey
	record.Name = name
	record.Stages = stages
	record.UpdatedAt = s.now()
	s.logger.Info("workflow.updated", "workflow_id", record.ID.String(), "api_key", record.APIKey)
	for _, warning := range warnings {
		s.logger.Warn("workflow.stage.removed_in_use",
			"workflow_id", record.ID.String(),
			"stage_id", warning.StageID.String(),
			"items", warning.Items,
		)
	}
	return &UpdateResult{Workflow: cloneWorkflow(record), Warnings: warnings}, nil
}

// DeleteWorkflow removes the workflow and clears model assignments. Item
// stage rows are kept and become dangling references.
func (s *MemoryStore) DeleteWorkflow(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.workflows[id]
	if !exists {
		return ErrWorkflowNotFound
	}
	delete(s.workflows, id)
	delete(s.apiKeys, record.APIKey)
	for modelID, workflowID := range s.assignments {
		if workflowID == id {
			delete(s.assignments, modelID)
		}
	}
	s.logger.Info("workflow.deleted", "workflow_id", id.String(), "api_key", record.APIKey)
	return nil
}

// GetWorkflow returns the workflow with its ordered stage list.
func (s *MemoryStore) GetWorkflow(_ context.Context, id uuid.UUID) (*Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.workflows[id]
	if !exists {
		return nil, ErrWorkflowNotFound
	}
	return cloneWorkflow(record), nil
}

// ListWorkflows returns every stored workflow sorted by name.
func (s *MemoryStore) ListWorkflows(_ context.Context) ([]*Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Workflow, 0, len(s.workflows))
	for _, record := range s.workflows {
		out = append(out, cloneWorkflow(record))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// AssignToModel binds the model to a workflow, or clears the binding.
func (s *MemoryStore) AssignToModel(_ context.Context, modelID uuid.UUID, workflowID *uuid.UUID) error {
	if modelID == uuid.Nil {
		return ErrModelRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if workflowID == nil {
		delete(s.assignments, modelID)
		return nil
	}
	if _, exists := s.workflows[*workflowID]; !exists {
		return ErrWorkflowNotFound
	}
	s.assignments[modelID] = *workflowID
	return nil
}

// AssignedWorkflow returns the workflow bound to the model, or nil.
func (s *MemoryStore) AssignedWorkflow(_ context.Context, modelID uuid.UUID) (*Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	workflowID, assigned := s.assignments[modelID]
	if !assigned {
		return nil, nil
	}
	record, exists := s.workflows[workflowID]
	if !exists {
		return nil, nil
	}
	return cloneWorkflow(record), nil
}

// GetCurrentStage resolves the item's stage, treating dangling references as
// "no stage".
func (s *MemoryStore) GetCurrentStage(_ context.Context, itemID uuid.UUID) (*Stage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.itemStages[itemID]
	if !exists {
		return nil, nil
	}
	workflow, exists := s.workflows[entry.WorkflowID]
	if !exists {
		return nil, nil
	}
	stage := workflow.StageByID(entry.StageID)
	if stage == nil {
		return nil, nil
	}
	clone := *stage
	return &clone, nil
}

// SetCurrentStage moves the item to the supplied stage.
func (s *MemoryStore) SetCurrentStage(_ context.Context, itemID, workflowID, stageID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.itemStages[itemID] = &ItemStage{
		ItemID:     itemID,
		StageID:    stageID,
		WorkflowID: workflowID,
		UpdatedAt:  s.now(),
	}
	return nil
}

// SweepDanglingStages clears item stage rows whose stage no longer exists.
func (s *MemoryStore) SweepDanglingStages(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cleared := 0
	for itemID, entry := range s.itemStages {
		workflow, exists := s.workflows[entry.WorkflowID]
		if exists && workflow.StageByID(entry.StageID) != nil {
			continue
		}
		delete(s.itemStages, itemID)
		cleared++
	}
	if cleared > 0 {
		s.logger.Info("workflow.sweep.cleared", "items", cleared)
	}
	return cleared, nil
}

func (s *MemoryStore) removedStageWarnings(before, after []*Stage) []UpdateWarning {
	kept := make(map[uuid.UUID]struct{}, len(after))
	for _, stage := range after {
		kept[stage.ID] = struct{}{}
	}

	var warnings []UpdateWarning
	for _, stage := range before {
		if _, ok := kept[stage.ID]; ok {
			continue
		}
		count := 0
		for _, entry := range s.itemStages {
			if entry.StageID == stage.ID {
				count++
			}
		}
		if count > 0 {
			warnings = append(warnings, UpdateWarning{
				Code:    WarningStageRemovedInUse,
				StageID: stage.ID,
				Items:   count,
			})
		}
	}
	return warnings
}

func cloneWorkflow(record *Workflow) *Workflow {
	if record == nil {
		return nil
	}
	clone := *record
	if len(record.Stages) > 0 {
		clone.Stages = make([]*Stage, len(record.Stages))
		for i, stage := range record.Stages {
			if stage == nil {
				continue
			}
			local := *stage
			clone.Stages[i] = &local
		}
	}
	return &clone
}
