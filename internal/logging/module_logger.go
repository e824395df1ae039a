package logging

import (
	"context"

	"github.com/goliatone/go-lifecycle/pkg/interfaces"
)

const (
	rootModule     = "lifecycle"
	scheduleModule = "lifecycle.schedule"
	workflowModule = "lifecycle.workflow"
	engineModule   = "lifecycle.engine"
	dispatchModule = "lifecycle.dispatch"
	jobsModule     = "lifecycle.jobs"
)

// ModuleLogger returns a module-scoped logger, defaulting to a no-op
// implementation when no provider is supplied. The returned logger attaches
// the module identifier as structured context so downstream entries can be
// filtered predictably.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	if module == "" {
		module = rootModule
	}

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	return WithFields(logger, map[string]any{
		"module": module,
	})
}

// ScheduleLogger returns the logger namespace reserved for the schedule store.
func ScheduleLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, scheduleModule)
}

// WorkflowLogger returns the logger namespace reserved for the workflow store.
func WorkflowLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, workflowModule)
}

// EngineLogger returns the logger namespace reserved for the transition engine.
func EngineLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, engineModule)
}

// DispatchLogger returns the logger namespace reserved for the schedule dispatcher.
func DispatchLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, dispatchModule)
}

// JobsLogger returns the logger namespace reserved for bulk job workers.
func JobsLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, jobsModule)
}

// NoOp returns a logger that drops every log entry. It satisfies the Logger
// contract so services can safely operate when logging is disabled.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}
