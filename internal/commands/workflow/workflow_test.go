package workflowcmd

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-lifecycle/internal/engine"
	"github.com/goliatone/go-lifecycle/internal/workflow"
	"github.com/goliatone/go-lifecycle/pkg/testsupport"
	"github.com/google/uuid"
)

func TestCreateWorkflowCommandValidate(t *testing.T) {
	msg := CreateWorkflowCommand{}
	if msg.Validate() == nil {
		t.Fatalf("expected empty command to fail validation")
	}

	msg = CreateWorkflowCommand{
		Name:   "Editorial",
		APIKey: "editorial",
		Stages: []StageInput{{Name: "Draft"}},
	}
	if err := msg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestWorkflowHandlersEndToEnd(t *testing.T) {
	ctx := context.Background()
	repo := testsupport.NewItemRepository("en")
	store := workflow.NewMemoryStore()
	eng := engine.New(repo, store)

	create := NewCreateWorkflowHandler(store, nil)
	if err := create.Execute(ctx, CreateWorkflowCommand{
		Name:   "Editorial",
		APIKey: "editorial",
		Stages: []StageInput{{Name: "Draft"}, {Name: "Done"}},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	flows, err := store.ListWorkflows(ctx)
	if err != nil || len(flows) != 1 {
		t.Fatalf("expected one workflow, got %d (%v)", len(flows), err)
	}
	flow := flows[0]

	modelID := uuid.New()
	itemID := uuid.New()
	repo.Seed(itemID, modelID)

	assign := NewAssignWorkflowHandler(store, nil)
	if err := assign.Execute(ctx, AssignWorkflowCommand{ModelID: modelID, WorkflowID: &flow.ID}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	move := NewMoveStageHandler(eng, nil)
	if err := move.Execute(ctx, MoveStageCommand{ItemID: itemID, TargetStageID: flow.Stages[1].ID}); err != nil {
		t.Fatalf("move: %v", err)
	}
	stage, err := eng.CurrentStage(ctx, itemID)
	if err != nil {
		t.Fatalf("current stage: %v", err)
	}
	if stage == nil || stage.ID != flow.Stages[1].ID {
		t.Fatalf("expected item moved, got %+v", stage)
	}

	// Unknown stages surface as command failures.
	err = move.Execute(ctx, MoveStageCommand{ItemID: itemID, TargetStageID: uuid.New()})
	if err == nil {
		t.Fatalf("expected unknown stage to fail")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("expected command category, got %v", err)
	}

	del := NewDeleteWorkflowHandler(store, nil)
	if err := del.Execute(ctx, DeleteWorkflowCommand{WorkflowID: flow.ID}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	flows, err = store.ListWorkflows(ctx)
	if err != nil || len(flows) != 0 {
		t.Fatalf("expected no workflows after delete, got %d (%v)", len(flows), err)
	}
}
