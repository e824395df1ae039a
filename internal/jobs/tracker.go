package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goliatone/go-lifecycle/internal/engine"
	"github.com/goliatone/go-lifecycle/internal/logging"
	"github.com/goliatone/go-lifecycle/pkg/interfaces"
	"github.com/google/uuid"
)

const (
	defaultWorkers      = 4
	defaultPollInterval = 100 * time.Millisecond
)

// BulkStageMoveRequest asks for a batch of items to be moved to one stage.
type BulkStageMoveRequest struct {
	TargetStageID uuid.UUID
	ItemIDs       []uuid.UUID
}

// Tracker runs bulk stage moves on a bounded worker pool and records a
// per-item outcome for each. One failing item never aborts the batch.
type Tracker struct {
	store   Store
	engine  *engine.Engine
	logger  interfaces.Logger
	workers int
	poll    time.Duration
	now     func() time.Time
	id      func() uuid.UUID

	wg sync.WaitGroup
}

// TrackerOption configures the tracker.
type TrackerOption func(*Tracker)

// WithWorkers overrides how many items a job processes concurrently.
func WithWorkers(workers int) TrackerOption {
	return func(t *Tracker) {
		if workers > 0 {
			t.workers = workers
		}
	}
}

// WithPollInterval overrides how often Wait re-reads job status.
func WithPollInterval(interval time.Duration) TrackerOption {
	return func(t *Tracker) {
		if interval > 0 {
			t.poll = interval
		}
	}
}

// WithLogger injects the logger used by job processing.
func WithLogger(logger interfaces.Logger) TrackerOption {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithClock overrides the clock, primarily for tests.
func WithClock(clock func() time.Time) TrackerOption {
	return func(t *Tracker) {
		if clock != nil {
			t.now = clock
		}
	}
}

// WithIDGenerator overrides job id generation.
func WithIDGenerator(generator func() uuid.UUID) TrackerOption {
	return func(t *Tracker) {
		if generator != nil {
			t.id = generator
		}
	}
}

// NewTracker constructs a tracker bound to the job store and engine.
func NewTracker(store Store, eng *engine.Engine, opts ...TrackerOption) *Tracker {
	if store == nil {
		panic("jobs: store required")
	}
	if eng == nil {
		panic("jobs: engine required")
	}
	tracker := &Tracker{
		store:   store,
		engine:  eng,
		logger:  logging.NoOp(),
		workers: defaultWorkers,
		poll:    defaultPollInterval,
		now:     func() time.Time { return time.Now().UTC() },
		id:      uuid.New,
	}
	for _, opt := range opts {
		opt(tracker)
	}
	return tracker
}

// Submit registers a bulk stage move and starts processing it in the
// background. The returned job is a pending snapshot; poll Get or Wait for
// the terminal result.
func (t *Tracker) Submit(ctx context.Context, req BulkStageMoveRequest) (*Job, error) {
	if req.TargetStageID == uuid.Nil {
		return nil, ErrStageRequired
	}
	if len(req.ItemIDs) == 0 {
		return nil, ErrEmptyItems
	}

	job := &Job{
		ID:            t.id(),
		Kind:          KindBulkStageMove,
		Status:        StatusPending,
		TargetStageID: req.TargetStageID,
		ItemIDs:       append([]uuid.UUID(nil), req.ItemIDs...),
		CreatedAt:     t.now(),
	}
	if err := t.store.Insert(ctx, job); err != nil {
		return nil, err
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.run(context.WithoutCancel(ctx), job.Clone())
	}()

	return job.Clone(), nil
}

// Get returns the current snapshot of a job.
func (t *Tracker) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	return t.store.Get(ctx, id)
}

// Wait polls until the job reaches a terminal status or the timeout elapses.
// A timeout does not cancel the job; it keeps running in the background.
func (t *Tracker) Wait(ctx context.Context, id uuid.UUID, timeout time.Duration) (*Job, error) {
	deadline := time.Now().Add(timeout)
	for {
		job, err := t.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if job.Status.Terminal() {
			return job, nil
		}
		if time.Now().After(deadline) {
			return job, ErrWaitTimeout
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-time.After(t.poll):
		}
	}
}

// Drain blocks until all in-flight jobs have finished. Used on shutdown.
func (t *Tracker) Drain() {
	t.wg.Wait()
}

func (t *Tracker) run(ctx context.Context, job *Job) {
	started := t.now()
	job.Status = StatusRunning
	job.StartedAt = &started
	if err := t.store.Update(ctx, job); err != nil {
		t.logger.Error("jobs.update.failed", "job_id", job.ID.String(), "error", err)
	}

	results := make([]Outcome, len(job.ItemIDs))
	tasks := make(chan int)

	var wg sync.WaitGroup
	workers := t.workers
	if workers > len(job.ItemIDs) {
		workers = len(job.ItemIDs)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range tasks {
				itemID := job.ItemIDs[idx]
				err := t.engine.MoveStage(ctx, itemID, job.TargetStageID)
				results[idx] = t.classify(itemID, err)
			}
		}()
	}
	for idx := range job.ItemIDs {
		tasks <- idx
	}
	close(tasks)
	wg.Wait()

	finished := t.now()
	job.Results = results
	job.Status = aggregate(results)
	job.FinishedAt = &finished
	if err := t.store.Update(ctx, job); err != nil {
		t.logger.Error("jobs.update.failed", "job_id", job.ID.String(), "error", err)
		return
	}
	t.logger.Info("jobs.finished",
		"job_id", job.ID.String(),
		"status", string(job.Status),
		"items", len(job.ItemIDs),
	)
}

func (t *Tracker) classify(itemID uuid.UUID, err error) Outcome {
	outcome := Outcome{ItemID: itemID}
	switch {
	case err == nil:
		outcome.Code = OutcomeSucceeded
	case errors.Is(err, engine.ErrItemGone):
		outcome.Code = OutcomeItemGone
	case errors.Is(err, engine.ErrNoWorkflow):
		outcome.Code = OutcomeNoWorkflow
	case errors.Is(err, engine.ErrUnknownStage):
		outcome.Code = OutcomeUnknownStage
	case errors.Is(err, engine.ErrTransitionRejected):
		outcome.Code = OutcomeRejected
		outcome.Detail = err.Error()
	default:
		outcome.Code = OutcomeError
		outcome.Detail = err.Error()
	}
	return outcome
}

func aggregate(results []Outcome) Status {
	succeeded := 0
	for _, result := range results {
		if result.Succeeded() {
			succeeded++
		}
	}
	switch succeeded {
	case len(results):
		return StatusSucceeded
	case 0:
		return StatusFailed
	default:
		return StatusPartiallyFailed
	}
}
