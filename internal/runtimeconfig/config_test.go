package runtimeconfig

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Storage.Provider != "memory" {
		t.Fatalf("expected memory storage default, got %q", cfg.Storage.Provider)
	}
	if cfg.Dispatcher.Interval != 30*time.Second {
		t.Fatalf("unexpected dispatcher interval: %v", cfg.Dispatcher.Interval)
	}
	if !cfg.Features.Dispatcher || !cfg.Features.Sweep {
		t.Fatalf("expected dispatcher and sweep features on by default")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{
			name:   "unknown storage provider",
			mutate: func(c *Config) { c.Storage.Provider = "etcd" },
			want:   ErrStorageProviderUnknown,
		},
		{
			name:   "zero interval",
			mutate: func(c *Config) { c.Dispatcher.Interval = 0 },
			want:   ErrDispatcherIntervalInvalid,
		},
		{
			name:   "negative claim ttl",
			mutate: func(c *Config) { c.Dispatcher.ClaimTTL = -time.Second },
			want:   ErrDispatcherClaimTTLInvalid,
		},
		{
			name:   "zero max attempts",
			mutate: func(c *Config) { c.Dispatcher.MaxAttempts = 0 },
			want:   ErrDispatcherMaxAttemptsInvalid,
		},
		{
			name:   "zero batch size",
			mutate: func(c *Config) { c.Dispatcher.BatchSize = 0 },
			want:   ErrDispatcherBatchSizeInvalid,
		},
		{
			name:   "zero workers",
			mutate: func(c *Config) { c.Jobs.Workers = 0 },
			want:   ErrJobsWorkersInvalid,
		},
		{
			name:   "zero poll interval",
			mutate: func(c *Config) { c.Jobs.PollInterval = 0 },
			want:   ErrJobsPollIntervalInvalid,
		},
		{
			name: "logging enabled without provider",
			mutate: func(c *Config) {
				c.Features.Logger = true
				c.Logging.Provider = "  "
			},
			want: ErrLoggingProviderRequired,
		},
		{
			name: "unknown logging provider",
			mutate: func(c *Config) {
				c.Features.Logger = true
				c.Logging.Provider = "syslog"
			},
			want: ErrLoggingProviderUnknown,
		},
		{
			name: "invalid logging level",
			mutate: func(c *Config) {
				c.Features.Logger = true
				c.Logging.Level = "verbose"
			},
			want: ErrLoggingLevelInvalid,
		},
		{
			name: "invalid gologger format",
			mutate: func(c *Config) {
				c.Features.Logger = true
				c.Logging.Provider = "gologger"
				c.Logging.Format = "xml"
			},
			want: ErrLoggingFormatInvalid,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateAllowsBlankOptionalFields(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Provider = ""
	cfg.Features.Logger = true
	cfg.Logging.Provider = "console"
	cfg.Logging.Level = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("blank optional fields should validate: %v", err)
	}
}
