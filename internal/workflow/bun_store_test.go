package workflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-lifecycle/internal/migrations"
	"github.com/goliatone/go-lifecycle/internal/workflow"
	"github.com/goliatone/go-lifecycle/pkg/testsupport"
	"github.com/google/uuid"
)

func newBunStore(t *testing.T) *workflow.BunStore {
	t.Helper()
	db, err := testsupport.NewBunDB()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.CreateTables(context.Background(), db); err != nil {
		t.Fatalf("create tables: %v", err)
	}
	return workflow.NewBunStore(db)
}

func createBunEditorial(t *testing.T, store *workflow.BunStore) *workflow.Workflow {
	t.Helper()
	flow, err := store.CreateWorkflow(context.Background(), workflow.CreateRequest{
		Name:   "Editorial",
		APIKey: "editorial",
		Stages: []workflow.StageInput{
			{Name: "Draft"},
			{Name: "Review"},
			{Name: "Done"},
		},
	})
	if err != nil {
		t.Fatalf("create workflow: %v", err)
	}
	return flow
}

func TestBunStoreCreateAndGetWorkflow(t *testing.T) {
	ctx := context.Background()
	store := newBunStore(t)
	flow := createBunEditorial(t, store)

	got, err := store.GetWorkflow(ctx, flow.ID)
	if err != nil {
		t.Fatalf("get workflow: %v", err)
	}
	if got.APIKey != "editorial" {
		t.Fatalf("unexpected api key %q", got.APIKey)
	}
	if len(got.Stages) != 3 {
		t.Fatalf("expected 3 stages, got %d", len(got.Stages))
	}
	for idx, stage := range got.Stages {
		if stage.Position != idx {
			t.Fatalf("expected stage %d at position %d, got %d", idx, idx, stage.Position)
		}
	}

	if _, err := store.CreateWorkflow(ctx, workflow.CreateRequest{
		Name:   "Other",
		APIKey: "editorial",
		Stages: []workflow.StageInput{{Name: "a"}},
	}); !errors.Is(err, workflow.ErrDuplicateAPIKey) {
		t.Fatalf("expected ErrDuplicateAPIKey, got %v", err)
	}

	if _, err := store.GetWorkflow(ctx, uuid.New()); !errors.Is(err, workflow.ErrWorkflowNotFound) {
		t.Fatalf("expected ErrWorkflowNotFound, got %v", err)
	}
}

func TestBunStoreUpdateReplacesStagesAndWarns(t *testing.T) {
	ctx := context.Background()
	store := newBunStore(t)
	flow := createBunEditorial(t, store)

	review := flow.Stages[1]
	itemID := uuid.New()
	if err := store.SetCurrentStage(ctx, itemID, flow.ID, review.ID); err != nil {
		t.Fatalf("set stage: %v", err)
	}

	stages := []workflow.StageInput{
		{ID: flow.Stages[0].ID, Name: "Draft"},
		{ID: flow.Stages[2].ID, Name: "Done"},
	}
	result, err := store.UpdateWorkflow(ctx, workflow.UpdateRequest{ID: flow.ID, Stages: &stages})
	if err != nil {
		t.Fatalf("update workflow: %v", err)
	}
	if len(result.Workflow.Stages) != 2 {
		t.Fatalf("expected 2 stages after update, got %d", len(result.Workflow.Stages))
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected one warning, got %d", len(result.Warnings))
	}
	warning := result.Warnings[0]
	if warning.Code != workflow.WarningStageRemovedInUse || warning.StageID != review.ID || warning.Items != 1 {
		t.Fatalf("unexpected warning %+v", warning)
	}

	// The item's stage row now dangles and resolves to nil.
	stage, err := store.GetCurrentStage(ctx, itemID)
	if err != nil {
		t.Fatalf("get current stage: %v", err)
	}
	if stage != nil {
		t.Fatalf("expected dangling stage to resolve to nil, got %+v", stage)
	}

	cleared, err := store.SweepDanglingStages(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("expected 1 row cleared, got %d", cleared)
	}
}

func TestBunStoreAssignmentsAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newBunStore(t)
	flow := createBunEditorial(t, store)

	modelID := uuid.New()
	if err := store.AssignToModel(ctx, modelID, &flow.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	assigned, err := store.AssignedWorkflow(ctx, modelID)
	if err != nil {
		t.Fatalf("assigned workflow: %v", err)
	}
	if assigned == nil || assigned.ID != flow.ID {
		t.Fatalf("expected assignment, got %+v", assigned)
	}

	itemID := uuid.New()
	if err := store.SetCurrentStage(ctx, itemID, flow.ID, flow.Stages[0].ID); err != nil {
		t.Fatalf("set stage: %v", err)
	}
	// Re-setting moves the item in place instead of inserting a second row.
	if err := store.SetCurrentStage(ctx, itemID, flow.ID, flow.Stages[1].ID); err != nil {
		t.Fatalf("move stage: %v", err)
	}
	stage, err := store.GetCurrentStage(ctx, itemID)
	if err != nil {
		t.Fatalf("get current stage: %v", err)
	}
	if stage == nil || stage.ID != flow.Stages[1].ID {
		t.Fatalf("expected item moved, got %+v", stage)
	}

	if err := store.DeleteWorkflow(ctx, flow.ID); err != nil {
		t.Fatalf("delete workflow: %v", err)
	}
	assigned, err = store.AssignedWorkflow(ctx, modelID)
	if err != nil {
		t.Fatalf("assigned workflow: %v", err)
	}
	if assigned != nil {
		t.Fatalf("expected assignment cleared, got %+v", assigned)
	}

	// Item rows survive deletion as dangling references.
	stage, err = store.GetCurrentStage(ctx, itemID)
	if err != nil {
		t.Fatalf("get current stage: %v", err)
	}
	if stage != nil {
		t.Fatalf("expected nil stage after workflow deletion, got %+v", stage)
	}
}
