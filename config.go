package markpress

import "github.com/halim714/markpress/internal/runtimeconfig"

var (
	ErrPrivateRepoRequired     = runtimeconfig.ErrPrivateRepoRequired
	ErrPublicRepoRequired      = runtimeconfig.ErrPublicRepoRequired
	ErrSiteBaseURLRequired     = runtimeconfig.ErrSiteBaseURLRequired
	ErrTokenRequired           = runtimeconfig.ErrTokenRequired
	ErrCachePathRequired       = runtimeconfig.ErrCachePathRequired
	ErrDebounceInvalid         = runtimeconfig.ErrDebounceInvalid
	ErrRetryInvalid            = runtimeconfig.ErrRetryInvalid
	ErrLoggingProviderRequired = runtimeconfig.ErrLoggingProviderRequired
	ErrLoggingProviderUnknown  = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid     = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid    = runtimeconfig.ErrLoggingFormatInvalid
)

type (
	Config         = runtimeconfig.Config
	RepoConfig     = runtimeconfig.RepoConfig
	SiteConfig     = runtimeconfig.SiteConfig
	CacheConfig    = runtimeconfig.CacheConfig
	AutosaveConfig = runtimeconfig.AutosaveConfig
	RetryConfig    = runtimeconfig.RetryConfig
	LoggingConfig  = runtimeconfig.LoggingConfig
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}
