package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// StageInput describes a stage supplied on workflow creation or update.
// Callers may pin stage ids to keep references stable across updates; ids left
// nil are generated.
type StageInput struct {
	ID          uuid.UUID
	Name        string
	Color       string
	Description *string
}

// CreateRequest captures the data needed to create a workflow.
type CreateRequest struct {
	Name   string
	APIKey string
	Stages []StageInput
}

// UpdateRequest patches an existing workflow. Nil fields are left unchanged;
// a non-nil Stages slice replaces the full ordered stage list.
type UpdateRequest struct {
	ID     uuid.UUID
	Name   *string
	APIKey *string
	Stages *[]StageInput
}

// UpdateWarning surfaces non-blocking integrity findings from an update, such
// as removing a stage that items still reference.
type UpdateWarning struct {
	Code    string    `json:"code"`
	StageID uuid.UUID `json:"stage_id"`
	Items   int       `json:"items"`
}

// WarningStageRemovedInUse flags a removed stage still referenced by items.
const WarningStageRemovedInUse = "stage_removed_in_use"

// UpdateResult pairs the updated workflow with any warnings.
type UpdateResult struct {
	Workflow *Workflow
	Warnings []UpdateWarning
}

// Store is the durable storage for workflow definitions, model assignments,
// and per-item stage positions.
type Store interface {
	// CreateWorkflow validates and persists a new workflow.
	CreateWorkflow(ctx context.Context, req CreateRequest) (*Workflow, error)
	// UpdateWorkflow applies a patch. Removing referenced stages is allowed
	// and reported as warnings rather than rejected.
	UpdateWorkflow(ctx context.Context, req UpdateRequest) (*UpdateResult, error)
	// DeleteWorkflow removes the workflow and unassigns it from all models.
	// Items keep their stage rows as dangling references.
	DeleteWorkflow(ctx context.Context, id uuid.UUID) error
	// GetWorkflow returns the workflow with its ordered stages.
	GetWorkflow(ctx context.Context, id uuid.UUID) (*Workflow, error)
	// ListWorkflows returns every stored workflow.
	ListWorkflows(ctx context.Context) ([]*Workflow, error)

	// AssignToModel binds the model to a workflow; a nil workflow id clears
	// the assignment.
	AssignToModel(ctx context.Context, modelID uuid.UUID, workflowID *uuid.UUID) error
	// AssignedWorkflow returns the workflow assigned to the model, or nil
	// when the model has none.
	AssignedWorkflow(ctx context.Context, modelID uuid.UUID) (*Workflow, error)

	// GetCurrentStage returns the stage the item occupies, or nil when the
	// item has no stage or its reference dangles.
	GetCurrentStage(ctx context.Context, itemID uuid.UUID) (*Stage, error)
	// SetCurrentStage moves the item to the supplied stage.
	SetCurrentStage(ctx context.Context, itemID, workflowID, stageID uuid.UUID) error
	// SweepDanglingStages removes item stage rows whose stage no longer
	// exists, returning the number of rows cleared.
	SweepDanglingStages(ctx context.Context) (int, error)
}

// buildStages validates stage inputs and materialises Stage records with
// stable ids and contiguous positions.
func buildStages(workflowID uuid.UUID, inputs []StageInput, generate func() uuid.UUID) ([]*Stage, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyStages
	}

	seen := make(map[uuid.UUID]struct{}, len(inputs))
	stages := make([]*Stage, 0, len(inputs))
	for idx, input := range inputs {
		name := strings.TrimSpace(input.Name)
		if name == "" {
			return nil, fmt.Errorf("%w at index %d", ErrStageNameRequired, idx)
		}
		id := input.ID
		if id == uuid.Nil {
			id = generate()
		}
		if _, exists := seen[id]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStageID, id)
		}
		seen[id] = struct{}{}
		stages = append(stages, &Stage{
			ID:          id,
			WorkflowID:  workflowID,
			Name:        name,
			Color:       strings.TrimSpace(input.Color),
			Description: input.Description,
			Position:    idx,
		})
	}
	return stages, nil
}

func validateCreate(req CreateRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return ErrNameRequired
	}
	if strings.TrimSpace(req.APIKey) == "" {
		return ErrAPIKeyRequired
	}
	return nil
}
