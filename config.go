package lifecycle

import "github.com/goliatone/go-lifecycle/internal/runtimeconfig"

var (
	ErrStorageProviderUnknown        = runtimeconfig.ErrStorageProviderUnknown
	ErrDispatcherIntervalInvalid     = runtimeconfig.ErrDispatcherIntervalInvalid
	ErrDispatcherClaimTTLInvalid     = runtimeconfig.ErrDispatcherClaimTTLInvalid
	ErrDispatcherMaxAttemptsInvalid  = runtimeconfig.ErrDispatcherMaxAttemptsInvalid
	ErrDispatcherBatchSizeInvalid    = runtimeconfig.ErrDispatcherBatchSizeInvalid
	ErrJobsWorkersInvalid            = runtimeconfig.ErrJobsWorkersInvalid
	ErrJobsPollIntervalInvalid       = runtimeconfig.ErrJobsPollIntervalInvalid
	ErrLoggingProviderRequired       = runtimeconfig.ErrLoggingProviderRequired
	ErrLoggingProviderUnknown        = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid           = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid          = runtimeconfig.ErrLoggingFormatInvalid
)

type (
	Config           = runtimeconfig.Config
	StorageConfig    = runtimeconfig.StorageConfig
	DispatcherConfig = runtimeconfig.DispatcherConfig
	JobsConfig       = runtimeconfig.JobsConfig
	Features         = runtimeconfig.Features
	LoggingConfig    = runtimeconfig.LoggingConfig
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}
