package lifecycle_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	lifecycle "github.com/goliatone/go-lifecycle"
	"github.com/goliatone/go-lifecycle/domain"
	"github.com/goliatone/go-lifecycle/internal/jobs"
	"github.com/goliatone/go-lifecycle/internal/schedule"
	"github.com/goliatone/go-lifecycle/internal/workflow"
	"github.com/goliatone/go-lifecycle/pkg/testsupport"
	"github.com/google/uuid"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock(start time.Time) *manualClock {
	return &manualClock{now: start}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNewRequiresContentRepository(t *testing.T) {
	_, err := lifecycle.New(lifecycle.DefaultConfig())
	if !errors.Is(err, lifecycle.ErrContentRepositoryRequired) {
		t.Fatalf("expected ErrContentRepositoryRequired, got %v", err)
	}
}

func TestNewRequiresDatabaseForBunStorage(t *testing.T) {
	cfg := lifecycle.DefaultConfig()
	cfg.Storage.Provider = "bun"

	_, err := lifecycle.New(cfg, lifecycle.WithContentRepository(testsupport.NewItemRepository()))
	if !errors.Is(err, lifecycle.ErrDatabaseRequired) {
		t.Fatalf("expected ErrDatabaseRequired, got %v", err)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := lifecycle.DefaultConfig()
	cfg.Dispatcher.Interval = 0

	_, err := lifecycle.New(cfg, lifecycle.WithContentRepository(testsupport.NewItemRepository()))
	if !errors.Is(err, lifecycle.ErrDispatcherIntervalInvalid) {
		t.Fatalf("expected ErrDispatcherIntervalInvalid, got %v", err)
	}
}

func TestNewBuildsConsoleLoggerProvider(t *testing.T) {
	cfg := lifecycle.DefaultConfig()
	cfg.Features.Logger = true
	cfg.Logging.Provider = "console"
	cfg.Logging.Level = "warn"

	if _, err := lifecycle.New(cfg, lifecycle.WithContentRepository(testsupport.NewItemRepository())); err != nil {
		t.Fatalf("expected console provider to assemble, got %v", err)
	}
}

func TestModuleTickPublishesDueItems(t *testing.T) {
	ctx := context.Background()
	clock := newManualClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	repo := testsupport.NewItemRepository("en", "es")

	module, err := lifecycle.New(lifecycle.DefaultConfig(),
		lifecycle.WithContentRepository(repo),
		lifecycle.WithClock(clock.Now),
	)
	if err != nil {
		t.Fatalf("new module: %v", err)
	}

	itemID := uuid.New()
	repo.Seed(itemID, uuid.New())

	fireAt := clock.Now().Add(time.Minute)
	if _, err := module.Schedules().SetPublication(ctx, lifecycle.PublicationRequest{
		ItemID: itemID,
		FireAt: fireAt,
		Scope:  domain.AllLocales(),
	}); err != nil {
		t.Fatalf("set publication: %v", err)
	}

	// Not due yet, the tick must leave the schedule alone.
	if err := module.Tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if repo.Published(itemID, "en") {
		t.Fatalf("item published before fire time")
	}

	clock.Advance(2 * time.Minute)
	if err := module.Tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}

	for _, locale := range []string{"en", "es"} {
		if !repo.Published(itemID, locale) {
			t.Fatalf("expected item published in %s", locale)
		}
	}
	if _, err := module.Schedules().GetPublication(ctx, itemID); !errors.Is(err, schedule.ErrNotScheduled) {
		t.Fatalf("expected schedule removed after firing, got %v", err)
	}
}

func TestModuleBulkMoveThroughTracker(t *testing.T) {
	ctx := context.Background()
	repo := testsupport.NewItemRepository("en")

	cfg := lifecycle.DefaultConfig()
	cfg.Jobs.PollInterval = 5 * time.Millisecond
	module, err := lifecycle.New(cfg, lifecycle.WithContentRepository(repo))
	if err != nil {
		t.Fatalf("new module: %v", err)
	}

	flow, err := module.Workflows().CreateWorkflow(ctx, workflow.CreateRequest{
		Name:   "Editorial",
		APIKey: "editorial",
		Stages: []workflow.StageInput{{Name: "Draft"}, {Name: "Done"}},
	})
	if err != nil {
		t.Fatalf("create workflow: %v", err)
	}

	modelID := uuid.New()
	if err := module.Workflows().AssignToModel(ctx, modelID, &flow.ID); err != nil {
		t.Fatalf("assign workflow: %v", err)
	}

	items := make([]uuid.UUID, 3)
	for i := range items {
		items[i] = uuid.New()
		repo.Seed(items[i], modelID)
	}

	job, err := module.Jobs().Submit(ctx, jobs.BulkStageMoveRequest{
		TargetStageID: flow.Stages[1].ID,
		ItemIDs:       items,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	final, err := module.Jobs().Wait(ctx, job.ID, time.Second)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !final.Status.Terminal() {
		t.Fatalf("expected terminal job, got %s", final.Status)
	}

	if err := module.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
