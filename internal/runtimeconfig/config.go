package runtimeconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrPrivateRepoRequired = errors.New("markpress config: private repository owner and name are required")
var ErrPublicRepoRequired = errors.New("markpress config: public repository owner and name are required when publishing is enabled")
var ErrSiteBaseURLRequired = errors.New("markpress config: site base URL is required when publishing is enabled")
var ErrTokenRequired = errors.New("markpress config: an access token is required")
var ErrCachePathRequired = errors.New("markpress config: cache path is required when the cache is enabled")
var ErrDebounceInvalid = errors.New("markpress config: auto-save debounce must be positive")
var ErrRetryInvalid = errors.New("markpress config: retry attempts must be positive")
var ErrLoggingProviderRequired = errors.New("markpress config: logging provider is required when logging is enabled")
var ErrLoggingProviderUnknown = errors.New("markpress config: logging provider is invalid")
var ErrLoggingLevelInvalid = errors.New("markpress config: logging level is invalid")
var ErrLoggingFormatInvalid = errors.New("markpress config: logging format is invalid")

// Config aggregates the bindings a host application supplies to run the
// editor. Fields intentionally use simple types so they map cleanly onto
// flags and environment variables.
type Config struct {
	Private  RepoConfig
	Site     SiteConfig
	Cache    CacheConfig
	Autosave AutosaveConfig
	Retry    RetryConfig
	Logging  LoggingConfig
}

// RepoConfig identifies one Git-hosted repository reachable over the
// contents API.
type RepoConfig struct {
	Owner   string
	Repo    string
	Branch  string
	Dir     string
	Token   string
	BaseURL string
}

// SiteConfig captures the public site repository and its Jekyll layout.
type SiteConfig struct {
	Enabled  bool
	Repo     RepoConfig
	BaseURL  string
	PostsDir string
	Layout   string
}

// CacheConfig locates the durable document cache.
type CacheConfig struct {
	Enabled bool
	Path    string
}

// AutosaveConfig captures auto-save timing.
type AutosaveConfig struct {
	Debounce time.Duration
}

// RetryConfig bounds retries against the remote API.
type RetryConfig struct {
	Attempts int
	Backoff  time.Duration
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Enabled   bool
	Provider  string
	Level     string
	Format    string
	AddSource bool
	Focus     []string
}

// DefaultConfig returns the defaults a fresh installation starts from.
func DefaultConfig() Config {
	return Config{
		Private: RepoConfig{
			Branch: "main",
			Dir:    "documents",
		},
		Site: SiteConfig{
			Repo: RepoConfig{
				Branch: "main",
			},
			PostsDir: "_posts",
			Layout:   "post",
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    "markpress.db",
		},
		Autosave: AutosaveConfig{
			Debounce: 2 * time.Second,
		},
		Retry: RetryConfig{
			Attempts: 3,
			Backoff:  500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Enabled:  true,
			Provider: "console",
			Level:    "info",
		},
	}
}

// Validate performs high-level consistency checks.
func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.Private.Owner) == "" || strings.TrimSpace(cfg.Private.Repo) == "" {
		return ErrPrivateRepoRequired
	}
	if strings.TrimSpace(cfg.Private.Token) == "" {
		return fmt.Errorf("%w: private repository", ErrTokenRequired)
	}
	if cfg.Site.Enabled {
		if strings.TrimSpace(cfg.Site.Repo.Owner) == "" || strings.TrimSpace(cfg.Site.Repo.Repo) == "" {
			return ErrPublicRepoRequired
		}
		if strings.TrimSpace(cfg.Site.Repo.Token) == "" {
			return fmt.Errorf("%w: public repository", ErrTokenRequired)
		}
		if strings.TrimSpace(cfg.Site.BaseURL) == "" {
			return ErrSiteBaseURLRequired
		}
	}
	if cfg.Cache.Enabled && strings.TrimSpace(cfg.Cache.Path) == "" {
		return ErrCachePathRequired
	}
	if cfg.Autosave.Debounce <= 0 {
		return ErrDebounceInvalid
	}
	if cfg.Retry.Attempts <= 0 {
		return ErrRetryInvalid
	}
	if cfg.Logging.Enabled {
		provider := normalizeProvider(cfg.Logging.Provider)
		if provider == "" {
			return ErrLoggingProviderRequired
		}
		if !isSupportedProvider(provider) {
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

func isSupportedProvider(provider string) bool {
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
