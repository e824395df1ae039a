package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-lifecycle/internal/engine"
	"github.com/goliatone/go-lifecycle/internal/jobs"
	"github.com/goliatone/go-lifecycle/internal/workflow"
	"github.com/goliatone/go-lifecycle/pkg/interfaces"
	"github.com/goliatone/go-lifecycle/pkg/testsupport"
	"github.com/google/uuid"
)

type fixture struct {
	repo      *testsupport.ItemRepository
	workflows *workflow.MemoryStore
	tracker   *jobs.Tracker
	flow      *workflow.Workflow
	modelID   uuid.UUID
}

func newFixture(t *testing.T, opts ...engine.Option) *fixture {
	t.Helper()
	repo := testsupport.NewItemRepository("en")
	workflows := workflow.NewMemoryStore()
	eng := engine.New(repo, workflows, opts...)
	tracker := jobs.NewTracker(jobs.NewMemoryStore(), eng,
		jobs.WithWorkers(2),
		jobs.WithPollInterval(5*time.Millisecond),
	)

	flow, err := workflows.CreateWorkflow(context.Background(), workflow.CreateRequest{
		Name:   "Editorial",
		APIKey: "editorial",
		Stages: []workflow.StageInput{{Name: "Draft"}, {Name: "Done"}},
	})
	if err != nil {
		t.Fatalf("create workflow: %v", err)
	}
	f := &fixture{
		repo:      repo,
		workflows: workflows,
		tracker:   tracker,
		flow:      flow,
		modelID:   uuid.New(),
	}
	if err := workflows.AssignToModel(context.Background(), f.modelID, &flow.ID); err != nil {
		t.Fatalf("assign workflow: %v", err)
	}
	return f
}

func (f *fixture) seedItems(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
		f.repo.Seed(ids[i], f.modelID)
	}
	return ids
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.tracker.Submit(ctx, jobs.BulkStageMoveRequest{ItemIDs: []uuid.UUID{uuid.New()}}); !errors.Is(err, jobs.ErrStageRequired) {
		t.Fatalf("expected ErrStageRequired, got %v", err)
	}
	if _, err := f.tracker.Submit(ctx, jobs.BulkStageMoveRequest{TargetStageID: uuid.New()}); !errors.Is(err, jobs.ErrEmptyItems) {
		t.Fatalf("expected ErrEmptyItems, got %v", err)
	}
}

func TestBulkMoveSucceeds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	items := f.seedItems(5)

	job, err := f.tracker.Submit(ctx, jobs.BulkStageMoveRequest{
		TargetStageID: f.flow.Stages[1].ID,
		ItemIDs:       items,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.Status != jobs.StatusPending {
		t.Fatalf("expected pending snapshot, got %s", job.Status)
	}

	final, err := f.tracker.Wait(ctx, job.ID, 5*time.Second)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if final.Status != jobs.StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", final.Status)
	}
	if len(final.Results) != len(items) {
		t.Fatalf("expected %d outcomes, got %d", len(items), len(final.Results))
	}
	for _, outcome := range final.Results {
		if !outcome.Succeeded() {
			t.Fatalf("unexpected outcome %+v", outcome)
		}
	}
	for _, itemID := range items {
		stage, err := f.workflows.GetCurrentStage(ctx, itemID)
		if err != nil {
			t.Fatalf("current stage: %v", err)
		}
		if stage == nil || stage.ID != f.flow.Stages[1].ID {
			t.Fatalf("expected item %s moved, got %+v", itemID, stage)
		}
	}
}

func TestBulkMovePartialFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	items := f.seedItems(3)

	// One item vanishes before the job runs; the rest still move.
	f.repo.Remove(items[1])

	job, err := f.tracker.Submit(ctx, jobs.BulkStageMoveRequest{
		TargetStageID: f.flow.Stages[1].ID,
		ItemIDs:       items,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	final, err := f.tracker.Wait(ctx, job.ID, 5*time.Second)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if final.Status != jobs.StatusPartiallyFailed {
		t.Fatalf("expected partially_failed, got %s", final.Status)
	}

	byItem := make(map[uuid.UUID]jobs.Outcome, len(final.Results))
	for _, outcome := range final.Results {
		byItem[outcome.ItemID] = outcome
	}
	if byItem[items[0]].Code != jobs.OutcomeSucceeded {
		t.Fatalf("expected first item moved, got %+v", byItem[items[0]])
	}
	if byItem[items[1]].Code != jobs.OutcomeItemGone {
		t.Fatalf("expected item_gone outcome, got %+v", byItem[items[1]])
	}
	if byItem[items[2]].Code != jobs.OutcomeSucceeded {
		t.Fatalf("expected third item moved, got %+v", byItem[items[2]])
	}
}

func TestBulkMoveAllRejected(t *testing.T) {
	ctx := context.Background()
	veto := interfaces.StageValidatorFunc(func(context.Context, interfaces.StageMove) error {
		return errors.New("frozen")
	})
	f := newFixture(t, engine.WithStageValidator(veto))
	items := f.seedItems(2)

	job, err := f.tracker.Submit(ctx, jobs.BulkStageMoveRequest{
		TargetStageID: f.flow.Stages[1].ID,
		ItemIDs:       items,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	final, err := f.tracker.Wait(ctx, job.ID, 5*time.Second)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if final.Status != jobs.StatusFailed {
		t.Fatalf("expected failed, got %s", final.Status)
	}
	for _, outcome := range final.Results {
		if outcome.Code != jobs.OutcomeRejected {
			t.Fatalf("expected rejected outcome, got %+v", outcome)
		}
		if outcome.Detail == "" {
			t.Fatalf("expected rejection detail")
		}
	}
}

func TestWaitTimesOutWithoutCancelling(t *testing.T) {
	ctx := context.Background()

	gate := make(chan struct{})
	slow := interfaces.StageValidatorFunc(func(context.Context, interfaces.StageMove) error {
		<-gate
		return nil
	})
	f := newFixture(t, engine.WithStageValidator(slow))
	items := f.seedItems(1)

	job, err := f.tracker.Submit(ctx, jobs.BulkStageMoveRequest{
		TargetStageID: f.flow.Stages[1].ID,
		ItemIDs:       items,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	snapshot, err := f.tracker.Wait(ctx, job.ID, 30*time.Millisecond)
	if !errors.Is(err, jobs.ErrWaitTimeout) {
		t.Fatalf("expected ErrWaitTimeout, got %v", err)
	}
	if snapshot.Status.Terminal() {
		t.Fatalf("expected job still running at timeout, got %s", snapshot.Status)
	}

	// The job keeps running after the timeout and still completes.
	close(gate)
	final, err := f.tracker.Wait(ctx, job.ID, 5*time.Second)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if final.Status != jobs.StatusSucceeded {
		t.Fatalf("expected succeeded after unblocking, got %s", final.Status)
	}
}

func TestGetUnknownJob(t *testing.T) {
	f := newFixture(t)
	if _, err := f.tracker.Get(context.Background(), uuid.New()); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}
