package workflowcmd

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-lifecycle/internal/commands"
	"github.com/goliatone/go-lifecycle/internal/engine"
	"github.com/goliatone/go-lifecycle/internal/workflow"
	"github.com/goliatone/go-lifecycle/pkg/interfaces"
	"github.com/google/uuid"
)

const (
	createWorkflowMessageType = "lifecycle.workflow.create"
	updateWorkflowMessageType = "lifecycle.workflow.update"
	deleteWorkflowMessageType = "lifecycle.workflow.delete"
	assignWorkflowMessageType = "lifecycle.workflow.assign"
	moveStageMessageType      = "lifecycle.workflow.move_stage"
)

// StageInput mirrors workflow.StageInput for command payloads.
type StageInput struct {
	ID          uuid.UUID `json:"id,omitempty"`
	Name        string    `json:"name"`
	Color       string    `json:"color,omitempty"`
	Description *string   `json:"description,omitempty"`
}

func stageInputs(inputs []StageInput) []workflow.StageInput {
	out := make([]workflow.StageInput, 0, len(inputs))
	for _, input := range inputs {
		out = append(out, workflow.StageInput{
			ID:          input.ID,
			Name:        input.Name,
			Color:       input.Color,
			Description: input.Description,
		})
	}
	return out
}

// CreateWorkflowCommand creates a workflow with its ordered stages.
type CreateWorkflowCommand struct {
	Name   string       `json:"name"`
	APIKey string       `json:"api_key"`
	Stages []StageInput `json:"stages"`
}

// Type implements command.Message.
func (CreateWorkflowCommand) Type() string { return createWorkflowMessageType }

// Validate ensures the message carries the required fields before reaching handlers.
func (m CreateWorkflowCommand) Validate() error {
	errs := validation.Errors{}
	if m.Name == "" {
		errs["name"] = validation.NewError("lifecycle.workflow.create.name_required", "name is required")
	}
	if m.APIKey == "" {
		errs["api_key"] = validation.NewError("lifecycle.workflow.create.api_key_required", "api_key is required")
	}
	if len(m.Stages) == 0 {
		errs["stages"] = validation.NewError("lifecycle.workflow.create.stages_required", "at least one stage is required")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// CreateWorkflowHandler creates workflows via the workflow store.
type CreateWorkflowHandler struct {
	inner *commands.Handler[CreateWorkflowCommand]
}

// NewCreateWorkflowHandler constructs a handler wired to the workflow store.
func NewCreateWorkflowHandler(store workflow.Store, logger interfaces.Logger, opts ...commands.HandlerOption[CreateWorkflowCommand]) *CreateWorkflowHandler {
	exec := func(ctx context.Context, msg CreateWorkflowCommand) error {
		_, err := store.CreateWorkflow(ctx, workflow.CreateRequest{
			Name:   msg.Name,
			APIKey: msg.APIKey,
			Stages: stageInputs(msg.Stages),
		})
		return err
	}

	handlerOpts := []commands.HandlerOption[CreateWorkflowCommand]{
		commands.WithLogger[CreateWorkflowCommand](logger),
		commands.WithOperation[CreateWorkflowCommand]("workflow.create"),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &CreateWorkflowHandler{
		inner: commands.NewHandler[CreateWorkflowCommand](exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[CreateWorkflowCommand].Execute.
func (h *CreateWorkflowHandler) Execute(ctx context.Context, msg CreateWorkflowCommand) error {
	return h.inner.Execute(ctx, msg)
}

// UpdateWorkflowCommand patches a workflow; nil fields stay unchanged.
type UpdateWorkflowCommand struct {
	WorkflowID uuid.UUID     `json:"workflow_id"`
	Name       *string       `json:"name,omitempty"`
	APIKey     *string       `json:"api_key,omitempty"`
	Stages     *[]StageInput `json:"stages,omitempty"`
}

// Type implements command.Message.
func (UpdateWorkflowCommand) Type() string { return updateWorkflowMessageType }

// Validate ensures the message carries the required fields before reaching handlers.
func (m UpdateWorkflowCommand) Validate() error {
	if m.WorkflowID == uuid.Nil {
		return validation.Errors{
			"workflow_id": validation.NewError("lifecycle.workflow.update.workflow_id_required", "workflow_id is required"),
		}
	}
	return nil
}

// UpdateWorkflowHandler updates workflows via the workflow store.
type UpdateWorkflowHandler struct {
	inner *commands.Handler[UpdateWorkflowCommand]
}

// NewUpdateWorkflowHandler constructs a handler wired to the workflow store.
func NewUpdateWorkflowHandler(store workflow.Store, logger interfaces.Logger, opts ...commands.HandlerOption[UpdateWorkflowCommand]) *UpdateWorkflowHandler {
	exec := func(ctx context.Context, msg UpdateWorkflowCommand) error {
		req := workflow.UpdateRequest{
			ID:     msg.WorkflowID,
			Name:   msg.Name,
			APIKey: msg.APIKey,
		}
		if msg.Stages != nil {
			stages := stageInputs(*msg.Stages)
			req.Stages = &stages
		}
		_, err := store.UpdateWorkflow(ctx, req)
		return err
	}

	handlerOpts := []commands.HandlerOption[UpdateWorkflowCommand]{
		commands.WithLogger[UpdateWorkflowCommand](logger),
		commands.WithOperation[UpdateWorkflowCommand]("workflow.update"),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &UpdateWorkflowHandler{
		inner: commands.NewHandler[UpdateWorkflowCommand](exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[UpdateWorkflowCommand].Execute.
func (h *UpdateWorkflowHandler) Execute(ctx context.Context, msg UpdateWorkflowCommand) error {
	return h.inner.Execute(ctx, msg)
}

// DeleteWorkflowCommand removes a workflow and its model assignments.
type DeleteWorkflowCommand struct {
	WorkflowID uuid.UUID `json:"workflow_id"`
}

// Type implements command.Message.
func (DeleteWorkflowCommand) Type() string { return deleteWorkflowMessageType }

// Validate ensures the message carries the required fields before reaching handlers.
func (m DeleteWorkflowCommand) Validate() error {
	if m.WorkflowID == uuid.Nil {
		return validation.Errors{
			"workflow_id": validation.NewError("lifecycle.workflow.delete.workflow_id_required", "workflow_id is required"),
		}
	}
	return nil
}

// DeleteWorkflowHandler deletes workflows via the workflow store.
type DeleteWorkflowHandler struct {
	inner *commands.Handler[DeleteWorkflowCommand]
}

// NewDeleteWorkflowHandler constructs a handler wired to the workflow store.
func NewDeleteWorkflowHandler(store workflow.Store, logger interfaces.Logger, opts ...commands.HandlerOption[DeleteWorkflowCommand]) *DeleteWorkflowHandler {
	exec := func(ctx context.Context, msg DeleteWorkflowCommand) error {
		return store.DeleteWorkflow(ctx, msg.WorkflowID)
	}

	handlerOpts := []commands.HandlerOption[DeleteWorkflowCommand]{
		commands.WithLogger[DeleteWorkflowCommand](logger),
		commands.WithOperation[DeleteWorkflowCommand]("workflow.delete"),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &DeleteWorkflowHandler{
		inner: commands.NewHandler[DeleteWorkflowCommand](exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[DeleteWorkflowCommand].Execute.
func (h *DeleteWorkflowHandler) Execute(ctx context.Context, msg DeleteWorkflowCommand) error {
	return h.inner.Execute(ctx, msg)
}

// AssignWorkflowCommand binds a model to a workflow. A nil WorkflowID clears
// the assignment.
type AssignWorkflowCommand struct {
	ModelID    uuid.UUID  `json:"model_id"`
	WorkflowID *uuid.UUID `json:"workflow_id,omitempty"`
}

// Type implements command.Message.
func (AssignWorkflowCommand) Type() string { return assignWorkflowMessageType }

// Validate ensures the message carries the required fields before reaching handlers.
func (m AssignWorkflowCommand) Validate() error {
	if m.ModelID == uuid.Nil {
		return validation.Errors{
			"model_id": validation.NewError("lifecycle.workflow.assign.model_id_required", "model_id is required"),
		}
	}
	return nil
}

// AssignWorkflowHandler assigns workflows to models via the workflow store.
type AssignWorkflowHandler struct {
	inner *commands.Handler[AssignWorkflowCommand]
}

// NewAssignWorkflowHandler constructs a handler wired to the workflow store.
func NewAssignWorkflowHandler(store workflow.Store, logger interfaces.Logger, opts ...commands.HandlerOption[AssignWorkflowCommand]) *AssignWorkflowHandler {
	exec := func(ctx context.Context, msg AssignWorkflowCommand) error {
		return store.AssignToModel(ctx, msg.ModelID, msg.WorkflowID)
	}

	handlerOpts := []commands.HandlerOption[AssignWorkflowCommand]{
		commands.WithLogger[AssignWorkflowCommand](logger),
		commands.WithOperation[AssignWorkflowCommand]("workflow.assign"),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &AssignWorkflowHandler{
		inner: commands.NewHandler[AssignWorkflowCommand](exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[AssignWorkflowCommand].Execute.
func (h *AssignWorkflowHandler) Execute(ctx context.Context, msg AssignWorkflowCommand) error {
	return h.inner.Execute(ctx, msg)
}

// MoveStageCommand moves a single item to a target stage.
type MoveStageCommand struct {
	ItemID        uuid.UUID `json:"item_id"`
	TargetStageID uuid.UUID `json:"target_stage_id"`
}

// Type implements command.Message.
func (MoveStageCommand) Type() string { return moveStageMessageType }

// Validate ensures the message carries the required fields before reaching handlers.
func (m MoveStageCommand) Validate() error {
	errs := validation.Errors{}
	if m.ItemID == uuid.Nil {
		errs["item_id"] = validation.NewError("lifecycle.workflow.move_stage.item_id_required", "item_id is required")
	}
	if m.TargetStageID == uuid.Nil {
		errs["target_stage_id"] = validation.NewError("lifecycle.workflow.move_stage.target_stage_id_required", "target_stage_id is required")
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// MoveStageHandler moves items through the transition engine.
type MoveStageHandler struct {
	inner *commands.Handler[MoveStageCommand]
}

// NewMoveStageHandler constructs a handler wired to the transition engine.
func NewMoveStageHandler(eng *engine.Engine, logger interfaces.Logger, opts ...commands.HandlerOption[MoveStageCommand]) *MoveStageHandler {
	exec := func(ctx context.Context, msg MoveStageCommand) error {
		return eng.MoveStage(ctx, msg.ItemID, msg.TargetStageID)
	}

	handlerOpts := []commands.HandlerOption[MoveStageCommand]{
		commands.WithLogger[MoveStageCommand](logger),
		commands.WithOperation[MoveStageCommand]("workflow.move_stage"),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &MoveStageHandler{
		inner: commands.NewHandler[MoveStageCommand](exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[MoveStageCommand].Execute.
func (h *MoveStageHandler) Execute(ctx context.Context, msg MoveStageCommand) error {
	return h.inner.Execute(ctx, msg)
}
