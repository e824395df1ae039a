package runtimeconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrStorageProviderUnknown indicates an unsupported storage provider name.
var ErrStorageProviderUnknown = errors.New("lifecycle config: storage provider is invalid")

// ErrDispatcherIntervalInvalid rejects non-positive tick intervals.
var ErrDispatcherIntervalInvalid = errors.New("lifecycle config: dispatcher interval must be positive")

// ErrDispatcherClaimTTLInvalid rejects non-positive claim durations.
var ErrDispatcherClaimTTLInvalid = errors.New("lifecycle config: dispatcher claim ttl must be positive")

var ErrDispatcherMaxAttemptsInvalid = errors.New("lifecycle config: dispatcher max attempts must be positive")
var ErrDispatcherBatchSizeInvalid = errors.New("lifecycle config: dispatcher batch size must be positive")
var ErrJobsWorkersInvalid = errors.New("lifecycle config: jobs workers must be positive")
var ErrJobsPollIntervalInvalid = errors.New("lifecycle config: jobs poll interval must be positive")
var ErrLoggingProviderRequired = errors.New("lifecycle config: logging provider is required when logging feature is enabled")
var ErrLoggingProviderUnknown = errors.New("lifecycle config: logging provider is invalid")
var ErrLoggingLevelInvalid = errors.New("lifecycle config: logging level is invalid")
var ErrLoggingFormatInvalid = errors.New("lifecycle config: logging format is invalid")

// Config aggregates toggles and tuning for the lifecycle module. Fields use
// simple types so host applications can map them from their own config layers.
type Config struct {
	Enabled    bool
	Storage    StorageConfig
	Dispatcher DispatcherConfig
	Jobs       JobsConfig
	Features   Features
	Logging    LoggingConfig
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Provider string
}

// DispatcherConfig tunes the due-schedule dispatcher.
type DispatcherConfig struct {
	Interval    time.Duration
	ClaimTTL    time.Duration
	MaxAttempts int
	BatchSize   int
	SweepEvery  int
}

// JobsConfig tunes bulk job processing.
type JobsConfig struct {
	Workers      int
	PollInterval time.Duration
}

// Features toggles module functionality.
type Features struct {
	Dispatcher bool
	Sweep      bool
	Logger     bool
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string
	Level     string
	Format    string
	AddSource bool
}

// DefaultConfig returns opinionated defaults for embedded use.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Storage: StorageConfig{
			Provider: "memory",
		},
		Dispatcher: DispatcherConfig{
			Interval:    30 * time.Second,
			ClaimTTL:    2 * time.Minute,
			MaxAttempts: 5,
			BatchSize:   50,
			SweepEvery:  20,
		},
		Jobs: JobsConfig{
			Workers:      4,
			PollInterval: 100 * time.Millisecond,
		},
		Features: Features{
			Dispatcher: true,
			Sweep:      true,
		},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
			Format:   "",
		},
	}
}

// Validate performs high-level consistency checks.
func (cfg Config) Validate() error {
	if provider := normalizeProvider(cfg.Storage.Provider); provider != "" && !isSupportedStorage(provider) {
		return fmt.Errorf("%w: %s", ErrStorageProviderUnknown, provider)
	}
	if cfg.Dispatcher.Interval <= 0 {
		return ErrDispatcherIntervalInvalid
	}
	if cfg.Dispatcher.ClaimTTL <= 0 {
		return ErrDispatcherClaimTTLInvalid
	}
	if cfg.Dispatcher.MaxAttempts <= 0 {
		return ErrDispatcherMaxAttemptsInvalid
	}
	if cfg.Dispatcher.BatchSize <= 0 {
		return ErrDispatcherBatchSizeInvalid
	}
	if cfg.Jobs.Workers <= 0 {
		return ErrJobsWorkersInvalid
	}
	if cfg.Jobs.PollInterval <= 0 {
		return ErrJobsPollIntervalInvalid
	}
	if cfg.Features.Logger {
		provider := normalizeProvider(cfg.Logging.Provider)
		if provider == "" {
			return ErrLoggingProviderRequired
		}
		if !isSupportedLoggingProvider(provider) {
			return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
		}
		if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
			return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
		}
		if provider == "gologger" {
			if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
				return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
			}
		}
	}
	return nil
}

func normalizeProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

func isSupportedStorage(provider string) bool {
	switch provider {
	case "memory", "bun":
		return true
	default:
		return false
	}
}

func isSupportedLoggingProvider(provider string) bool {
	switch provider {
	case "console", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
