package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-lifecycle/internal/audit"
	"github.com/goliatone/go-lifecycle/internal/dispatcher"
	"github.com/goliatone/go-lifecycle/internal/engine"
	"github.com/goliatone/go-lifecycle/internal/jobs"
	"github.com/goliatone/go-lifecycle/internal/logging"
	"github.com/goliatone/go-lifecycle/internal/logging/console"
	"github.com/goliatone/go-lifecycle/internal/logging/gologger"
	"github.com/goliatone/go-lifecycle/internal/migrations"
	"github.com/goliatone/go-lifecycle/internal/schedule"
	"github.com/goliatone/go-lifecycle/internal/workflow"
	"github.com/goliatone/go-lifecycle/pkg/interfaces"
	"github.com/uptrace/bun"
)

// ScheduleService exports the schedule service contract.
type ScheduleService = schedule.Service

// WorkflowStore exports the workflow storage contract.
type WorkflowStore = workflow.Store

// JobTracker exports the bulk job tracker.
type JobTracker = jobs.Tracker

// PublicationRequest exports the schedule publication request payload.
type PublicationRequest = schedule.PublicationRequest

// UnpublishingRequest exports the schedule unpublishing request payload.
type UnpublishingRequest = schedule.UnpublishingRequest

// ContentRepository exports the host-side item contract the module drives.
type ContentRepository = interfaces.ContentRepository

// StageValidator exports the host hook consulted before stage moves.
type StageValidator = interfaces.StageValidator

// ErrContentRepositoryRequired indicates New was called without a repository.
var ErrContentRepositoryRequired = errors.New("lifecycle: content repository is required")

// ErrDatabaseRequired indicates bun storage was selected without a DB handle.
var ErrDatabaseRequired = errors.New("lifecycle: bun storage requires a database handle")

// Option overrides a module dependency during construction.
type Option func(*Module)

// WithContentRepository wires the host repository the module publishes
// against. Required.
func WithContentRepository(repo interfaces.ContentRepository) Option {
	return func(m *Module) {
		m.repo = repo
	}
}

// WithDB supplies the bun handle used when storage provider is "bun".
func WithDB(db *bun.DB) Option {
	return func(m *Module) {
		m.db = db
	}
}

// WithLoggerProvider overrides the logger provider derived from config.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(m *Module) {
		m.loggers = provider
	}
}

// WithClock overrides the module clock, primarily for tests.
func WithClock(clock func() time.Time) Option {
	return func(m *Module) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithStageValidator installs the host hook consulted before stage moves.
func WithStageValidator(validator interfaces.StageValidator) Option {
	return func(m *Module) {
		m.validator = validator
	}
}

// WithAuditRecorder overrides the audit sink for fired schedules.
func WithAuditRecorder(recorder audit.Recorder) Option {
	return func(m *Module) {
		m.audit = recorder
	}
}

// WithScheduleStore overrides the schedule store assembled from config.
func WithScheduleStore(store schedule.Store) Option {
	return func(m *Module) {
		m.scheduleStore = store
	}
}

// WithWorkflowStore overrides the workflow store assembled from config.
func WithWorkflowStore(store workflow.Store) Option {
	return func(m *Module) {
		m.workflowStore = store
	}
}

// WithJobStore overrides the job store assembled from config.
func WithJobStore(store jobs.Store) Option {
	return func(m *Module) {
		m.jobStore = store
	}
}

// Module is the assembled lifecycle runtime: schedule service, workflow
// store, transition engine, dispatcher, and job tracker sharing one clock and
// logger provider.
type Module struct {
	cfg       Config
	repo      interfaces.ContentRepository
	db        *bun.DB
	loggers   interfaces.LoggerProvider
	validator interfaces.StageValidator
	audit     audit.Recorder
	now       func() time.Time

	scheduleStore schedule.Store
	workflowStore workflow.Store
	jobStore      jobs.Store

	schedules  schedule.Service
	engine     *engine.Engine
	dispatcher *dispatcher.Dispatcher
	tracker    *jobs.Tracker

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New assembles the module from configuration plus dependency options.
func New(cfg Config, opts ...Option) (*Module, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Module{
		cfg: cfg,
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.repo == nil {
		return nil, ErrContentRepositoryRequired
	}
	if err := m.buildLoggers(); err != nil {
		return nil, err
	}
	if err := m.buildStores(); err != nil {
		return nil, err
	}

	m.schedules = schedule.NewService(m.scheduleStore, m.repo,
		schedule.WithServiceClock(m.now),
		schedule.WithServiceLogger(logging.ScheduleLogger(m.loggers)),
	)

	engineOpts := []engine.Option{
		engine.WithClock(m.now),
		engine.WithLogger(logging.EngineLogger(m.loggers)),
	}
	if m.validator != nil {
		engineOpts = append(engineOpts, engine.WithStageValidator(m.validator))
	}
	m.engine = engine.New(m.repo, m.workflowStore, engineOpts...)

	dispatcherOpts := []dispatcher.Option{
		dispatcher.WithClock(m.now),
		dispatcher.WithLogger(logging.DispatchLogger(m.loggers)),
		dispatcher.WithInterval(cfg.Dispatcher.Interval),
		dispatcher.WithClaimTTL(cfg.Dispatcher.ClaimTTL),
		dispatcher.WithMaxAttempts(cfg.Dispatcher.MaxAttempts),
		dispatcher.WithBatchSize(cfg.Dispatcher.BatchSize),
	}
	if cfg.Features.Sweep {
		dispatcherOpts = append(dispatcherOpts,
			dispatcher.WithWorkflowStore(m.workflowStore),
			dispatcher.WithSweepEvery(cfg.Dispatcher.SweepEvery),
		)
	}
	if m.audit != nil {
		dispatcherOpts = append(dispatcherOpts, dispatcher.WithAuditRecorder(m.audit))
	}
	m.dispatcher = dispatcher.New(m.scheduleStore, m.engine, dispatcherOpts...)

	m.tracker = jobs.NewTracker(m.jobStore, m.engine,
		jobs.WithClock(m.now),
		jobs.WithLogger(logging.JobsLogger(m.loggers)),
		jobs.WithWorkers(cfg.Jobs.Workers),
		jobs.WithPollInterval(cfg.Jobs.PollInterval),
	)

	return m, nil
}

// Schedules returns the schedule service.
func (m *Module) Schedules() ScheduleService {
	return m.schedules
}

// Workflows returns the workflow store.
func (m *Module) Workflows() WorkflowStore {
	return m.workflowStore
}

// Engine returns the transition engine.
func (m *Module) Engine() *engine.Engine {
	return m.engine
}

// Jobs returns the bulk job tracker.
func (m *Module) Jobs() *JobTracker {
	return m.tracker
}

// Tick runs a single dispatcher pass. Useful for hosts that drive the
// schedule from their own cron instead of Start.
func (m *Module) Tick(ctx context.Context) error {
	return m.dispatcher.Tick(ctx)
}

// CreateTables creates the module's tables on the configured database.
func (m *Module) CreateTables(ctx context.Context) error {
	if m.db == nil {
		return ErrDatabaseRequired
	}
	return migrations.CreateTables(ctx, m.db)
}

// Start launches the dispatcher loop when the dispatcher feature is enabled.
// It is a no-op when the module is already running.
func (m *Module) Start(ctx context.Context) error {
	if !m.cfg.Features.Dispatcher {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go func() {
		defer close(m.done)
		_ = m.dispatcher.Run(runCtx)
	}()
	return nil
}

// Stop halts the dispatcher loop and waits for in-flight jobs to finish.
func (m *Module) Stop(ctx context.Context) error {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.tracker.Drain()
	return nil
}

func (m *Module) buildLoggers() error {
	if m.loggers != nil {
		return nil
	}
	if !m.cfg.Features.Logger {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(m.cfg.Logging.Provider)) {
	case "gologger":
		provider, err := gologger.NewProvider(gologger.Config{
			Level:     m.cfg.Logging.Level,
			Format:    m.cfg.Logging.Format,
			AddSource: m.cfg.Logging.AddSource,
		})
		if err != nil {
			return err
		}
		m.loggers = provider
	case "console":
		level := console.ParseLevel(m.cfg.Logging.Level)
		m.loggers = console.NewProvider(console.Options{
			TimeFunc: m.now,
			MinLevel: &level,
		})
	default:
		return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, m.cfg.Logging.Provider)
	}
	return nil
}

func (m *Module) buildStores() error {
	useBun := strings.EqualFold(strings.TrimSpace(m.cfg.Storage.Provider), "bun")
	if useBun && m.db == nil &&
		(m.scheduleStore == nil || m.workflowStore == nil || m.jobStore == nil) {
		return ErrDatabaseRequired
	}

	if m.scheduleStore == nil {
		if useBun {
			m.scheduleStore = schedule.NewBunStore(m.db, schedule.WithBunClock(m.now))
		} else {
			m.scheduleStore = schedule.NewMemoryStore(schedule.WithClock(m.now))
		}
	}
	if m.workflowStore == nil {
		workflowLogger := logging.WorkflowLogger(m.loggers)
		if useBun {
			m.workflowStore = workflow.NewBunStore(m.db,
				workflow.WithBunClock(m.now),
				workflow.WithBunLogger(workflowLogger),
			)
		} else {
			m.workflowStore = workflow.NewMemoryStore(
				workflow.WithClock(m.now),
				workflow.WithLogger(workflowLogger),
			)
		}
	}
	if m.jobStore == nil {
		if useBun {
			m.jobStore = jobs.NewBunStore(m.db)
		} else {
			m.jobStore = jobs.NewMemoryStore()
		}
	}
	return nil
}
