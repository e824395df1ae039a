package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-lifecycle/internal/jobs"
	"github.com/goliatone/go-lifecycle/internal/migrations"
	"github.com/goliatone/go-lifecycle/pkg/testsupport"
	"github.com/google/uuid"
)

func newBunJobStore(t *testing.T) *jobs.BunStore {
	t.Helper()
	db, err := testsupport.NewBunDB()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.CreateTables(context.Background(), db); err != nil {
		t.Fatalf("create tables: %v", err)
	}
	return jobs.NewBunStore(db)
}

func TestBunJobStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newBunJobStore(t)

	itemA := uuid.New()
	itemB := uuid.New()
	job := &jobs.Job{
		ID:            uuid.New(),
		Kind:          jobs.KindBulkStageMove,
		Status:        jobs.StatusPending,
		TargetStageID: uuid.New(),
		ItemIDs:       []uuid.UUID{itemA, itemB},
		CreatedAt:     time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := store.Insert(ctx, job); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != jobs.StatusPending || got.Kind != jobs.KindBulkStageMove {
		t.Fatalf("unexpected job %+v", got)
	}
	if len(got.ItemIDs) != 2 {
		t.Fatalf("expected item ids persisted, got %d", len(got.ItemIDs))
	}

	got.Status = jobs.StatusSucceeded
	got.Results = []jobs.Outcome{
		{ItemID: itemA, Code: jobs.OutcomeSucceeded},
		{ItemID: itemB, Code: jobs.OutcomeSucceeded},
	}
	if err := store.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err = store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("get after update: %v", err)
	}
	if got.Status != jobs.StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", got.Status)
	}
	if len(got.Results) != 2 || !got.Results[0].Succeeded() {
		t.Fatalf("expected outcomes persisted, got %+v", got.Results)
	}
}

func TestBunJobStoreMissingJob(t *testing.T) {
	ctx := context.Background()
	store := newBunJobStore(t)

	if _, err := store.Get(ctx, uuid.New()); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
	if err := store.Update(ctx, &jobs.Job{ID: uuid.New(), Kind: jobs.KindBulkStageMove}); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound on update, got %v", err)
	}
}

func TestBunJobStoreListOrdersByCreation(t *testing.T) {
	ctx := context.Background()
	store := newBunJobStore(t)

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	second := &jobs.Job{ID: uuid.New(), Kind: jobs.KindBulkStageMove, Status: jobs.StatusPending, TargetStageID: uuid.New(), ItemIDs: []uuid.UUID{uuid.New()}, CreatedAt: base.Add(time.Minute)}
	first := &jobs.Job{ID: uuid.New(), Kind: jobs.KindBulkStageMove, Status: jobs.StatusPending, TargetStageID: uuid.New(), ItemIDs: []uuid.UUID{uuid.New()}, CreatedAt: base}
	for _, job := range []*jobs.Job{second, first} {
		if err := store.Insert(ctx, job); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	listed, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(listed))
	}
	if listed[0].ID != first.ID || listed[1].ID != second.ID {
		t.Fatalf("expected creation-time ordering, got %v then %v", listed[0].ID, listed[1].ID)
	}
}
