package workflow

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Workflow is an ordered list of stages assignable to content models.
type Workflow struct {
	bun.BaseModel `bun:"table:workflows,alias:w"`

	ID        uuid.UUID `bun:",pk,type:uuid" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	APIKey    string    `bun:"api_key,notnull,unique" json:"api_key"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`

	Stages []*Stage `bun:"rel:has-many,join:id=workflow_id" json:"stages,omitempty"`
}

// StageByID returns the workflow stage with the supplied id, or nil.
func (w *Workflow) StageByID(id uuid.UUID) *Stage {
	if w == nil {
		return nil
	}
	for _, stage := range w.Stages {
		if stage != nil && stage.ID == id {
			return stage
		}
	}
	return nil
}

// Stage is a named position within a workflow.
type Stage struct {
	bun.BaseModel `bun:"table:workflow_stages,alias:ws"`

	ID          uuid.UUID `bun:",pk,type:uuid" json:"id"`
	WorkflowID  uuid.UUID `bun:"workflow_id,notnull,type:uuid" json:"workflow_id"`
	Name        string    `bun:"name,notnull" json:"name"`
	Color       string    `bun:"color" json:"color,omitempty"`
	Description *string   `bun:"description" json:"description,omitempty"`
	Position    int       `bun:"position,notnull" json:"position"`
}

// ModelAssignment binds a content model to a workflow. A model has at most
// one workflow; a workflow serves zero or more models.
type ModelAssignment struct {
	bun.BaseModel `bun:"table:workflow_model_assignments,alias:wma"`

	ModelID    uuid.UUID `bun:"model_id,pk,type:uuid" json:"model_id"`
	WorkflowID uuid.UUID `bun:"workflow_id,notnull,type:uuid" json:"workflow_id"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// ItemStage records the stage an item currently occupies. Rows may reference
// stages that no longer exist; lookups treat those as "no stage".
type ItemStage struct {
	bun.BaseModel `bun:"table:item_stages,alias:ist"`

	ItemID     uuid.UUID `bun:"item_id,pk,type:uuid" json:"item_id"`
	StageID    uuid.UUID `bun:"stage_id,notnull,type:uuid" json:"stage_id"`
	WorkflowID uuid.UUID `bun:"workflow_id,notnull,type:uuid" json:"workflow_id"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}
