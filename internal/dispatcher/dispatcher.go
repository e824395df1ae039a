package dispatcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goliatone/go-lifecycle/internal/audit"
	"github.com/goliatone/go-lifecycle/internal/engine"
	"github.com/goliatone/go-lifecycle/internal/logging"
	"github.com/goliatone/go-lifecycle/internal/schedule"
	"github.com/goliatone/go-lifecycle/internal/workflow"
	"github.com/goliatone/go-lifecycle/pkg/interfaces"
)

const (
	defaultInterval    = 30 * time.Second
	defaultClaimTTL    = 2 * time.Minute
	defaultMaxAttempts = 5
	defaultBatchSize   = 50
	defaultSweepEvery  = 20
)

// Dispatcher periodically scans the schedule store for due records and fires
// each one exactly once through the transition engine. Claims make firing
// safe across multiple dispatcher instances; retries are bounded, after which
// a record is marked fire_failed and left for operators.
type Dispatcher struct {
	store       schedule.Store
	engine      *engine.Engine
	workflows   workflow.Store
	audit       audit.Recorder
	logger      interfaces.Logger
	interval    time.Duration
	claimTTL    time.Duration
	maxAttempts int
	batchSize   int
	sweepEvery  int
	now         func() time.Time

	ticks int
}

// Option configures the dispatcher.
type Option func(*Dispatcher)

// WithInterval overrides the tick interval.
func WithInterval(interval time.Duration) Option {
	return func(d *Dispatcher) {
		if interval > 0 {
			d.interval = interval
		}
	}
}

// WithClaimTTL overrides how long a claim shields a record from other
// dispatcher instances. Expired claims are reclaimed, so the engine
// operations behind them must stay idempotent.
func WithClaimTTL(ttl time.Duration) Option {
	return func(d *Dispatcher) {
		if ttl > 0 {
			d.claimTTL = ttl
		}
	}
}

// WithMaxAttempts overrides the retry budget before a record is marked
// fire_failed.
func WithMaxAttempts(limit int) Option {
	return func(d *Dispatcher) {
		if limit > 0 {
			d.maxAttempts = limit
		}
	}
}

// WithBatchSize overrides how many due records a single tick processes.
func WithBatchSize(size int) Option {
	return func(d *Dispatcher) {
		if size > 0 {
			d.batchSize = size
		}
	}
}

// WithWorkflowStore enables the dangling stage reconciliation sweep.
func WithWorkflowStore(store workflow.Store) Option {
	return func(d *Dispatcher) {
		d.workflows = store
	}
}

// WithSweepEvery overrides how many ticks pass between reconciliation sweeps.
func WithSweepEvery(ticks int) Option {
	return func(d *Dispatcher) {
		if ticks > 0 {
			d.sweepEvery = ticks
		}
	}
}

// WithAuditRecorder wires the recorder used for fired schedules.
func WithAuditRecorder(recorder audit.Recorder) Option {
	return func(d *Dispatcher) {
		d.audit = recorder
	}
}

// WithLogger injects the logger used by the dispatcher.
func WithLogger(logger interfaces.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithClock overrides the clock, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(d *Dispatcher) {
		if clock != nil {
			d.now = clock
		}
	}
}

// New constructs a dispatcher bound to the schedule store and engine.
func New(store schedule.Store, eng *engine.Engine, opts ...Option) *Dispatcher {
	if store == nil {
		panic("dispatcher: schedule store required")
	}
	if eng == nil {
		panic("dispatcher: engine required")
	}
	dispatcher := &Dispatcher{
		store:       store,
		engine:      eng,
		logger:      logging.NoOp(),
		interval:    defaultInterval,
		claimTTL:    defaultClaimTTL,
		maxAttempts: defaultMaxAttempts,
		batchSize:   defaultBatchSize,
		sweepEvery:  defaultSweepEvery,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(dispatcher)
	}
	return dispatcher
}

// Run ticks until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := d.Tick(ctx); err != nil {
				d.logger.Error("dispatch.tick.failed", "error", err)
			}
		}
	}
}

// Tick performs a single scan-and-fire pass. Each due record is processed on
// its own goroutine so a stuck item cannot stall the rest of the due set.
func (d *Dispatcher) Tick(ctx context.Context) error {
	now := d.now()
	due, err := d.store.DueBefore(ctx, now, d.batchSize)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, record := range due {
		wg.Add(1)
		go func(record schedule.Due) {
			defer wg.Done()
			d.process(ctx, record)
		}(record)
	}
	wg.Wait()

	d.ticks++
	if d.workflows != nil && d.sweepEvery > 0 && d.ticks%d.sweepEvery == 0 {
		if cleared, err := d.workflows.SweepDanglingStages(ctx); err != nil {
			d.logger.Error("dispatch.sweep.failed", "error", err)
		} else if cleared > 0 {
			d.logger.Info("dispatch.sweep.cleared", "items", cleared)
		}
	}
	return nil
}

func (d *Dispatcher) process(ctx context.Context, record schedule.Due) {
	claimUntil := d.now().Add(d.claimTTL)
	claimed, err := d.store.Claim(ctx, record.Kind, record.ItemID, claimUntil)
	if err != nil {
		d.logger.Error("dispatch.claim.failed",
			"item_id", record.ItemID.String(),
			"kind", string(record.Kind),
			"error", err,
		)
		return
	}
	if !claimed {
		// Another instance won the record, or it was cancelled between
		// listing and claiming.
		return
	}

	fireErr := d.fire(ctx, record)
	switch {
	case fireErr == nil:
		d.commit(ctx, record, "fired")
	case errors.Is(fireErr, engine.ErrItemGone):
		d.logger.Warn("dispatch.fire.item_gone",
			"item_id", record.ItemID.String(),
			"kind", string(record.Kind),
		)
		d.commit(ctx, record, "dropped")
	default:
		d.retry(ctx, record, fireErr)
	}
}

func (d *Dispatcher) fire(ctx context.Context, record schedule.Due) error {
	switch record.Kind {
	case schedule.KindPublication:
		return d.engine.ApplyPublish(ctx, record.ItemID, record.Scope())
	case schedule.KindUnpublishing:
		return d.engine.ApplyUnpublish(ctx, record.ItemID, record.Scope())
	default:
		return nil
	}
}

func (d *Dispatcher) commit(ctx context.Context, record schedule.Due, action string) {
	if err := d.store.Delete(ctx, record.Kind, record.ItemID); err != nil && !errors.Is(err, schedule.ErrNotScheduled) {
		d.logger.Error("dispatch.delete.failed",
			"item_id", record.ItemID.String(),
			"kind", string(record.Kind),
			"error", err,
		)
		return
	}
	d.recordAudit(ctx, record, action)
}

func (d *Dispatcher) retry(ctx context.Context, record schedule.Due, failure error) {
	attempts := d.attempts(record) + 1
	if attempts >= d.maxAttempts {
		if err := d.store.MarkFireFailed(ctx, record.Kind, record.ItemID, failure); err != nil {
			d.logger.Error("dispatch.mark_failed.failed",
				"item_id", record.ItemID.String(),
				"kind", string(record.Kind),
				"error", err,
			)
			return
		}
		d.logger.Error("dispatch.fire.exhausted",
			"item_id", record.ItemID.String(),
			"kind", string(record.Kind),
			"attempts", attempts,
			"error", failure,
		)
		d.recordAudit(ctx, record, "fire_failed")
		return
	}

	if err := d.store.Release(ctx, record.Kind, record.ItemID, failure); err != nil {
		d.logger.Error("dispatch.release.failed",
			"item_id", record.ItemID.String(),
			"kind", string(record.Kind),
			"error", err,
		)
		return
	}
	d.logger.Warn("dispatch.fire.retry",
		"item_id", record.ItemID.String(),
		"kind", string(record.Kind),
		"attempts", attempts,
		"error", failure,
	)
}

func (d *Dispatcher) attempts(record schedule.Due) int {
	switch record.Kind {
	case schedule.KindPublication:
		if record.Publication != nil {
			return record.Publication.Attempts
		}
	case schedule.KindUnpublishing:
		if record.Unpublishing != nil {
			return record.Unpublishing.Attempts
		}
	}
	return 0
}

func (d *Dispatcher) recordAudit(ctx context.Context, record schedule.Due, action string) {
	if d.audit == nil {
		return
	}
	_ = d.audit.Record(ctx, audit.Event{
		EntityType: "item",
		EntityID:   record.ItemID.String(),
		Action:     string(record.Kind) + "." + action,
		OccurredAt: d.now(),
		Metadata: map[string]any{
			"fire_at": record.FireAt,
			"scope":   record.Scope().String(),
		},
	})
}
