package convocations

import (
	"log/slog"
	"net/http"
	"time"
)

// Option configures an App.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported — callers use the With* functions.
type resolvedOptions struct {
	logger        *slog.Logger
	secrets       SecretBackend
	models        ModelCatalog
	clock         Clock
	httpClient    *http.Client
	configDir     string
	progressSinks []ProgressSink
}

// WithLogger sets the structured logger for the App. If not set, the
// default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithSecretStore replaces the auto-constructed keyring/local-encrypted
// secret backend.
func WithSecretStore(s SecretBackend) Option {
	return func(o *resolvedOptions) { o.secrets = s }
}

// WithModelCatalog replaces the auto-constructed OpenRouter catalog
// resolver.
func WithModelCatalog(c ModelCatalog) Option {
	return func(o *resolvedOptions) { o.models = c }
}

// WithClock replaces the wall-clock time source used to resolve "N
// weeks ago" preset windows. Tests use this to pin the current time.
func WithClock(c Clock) Option {
	return func(o *resolvedOptions) { o.clock = c }
}

// WithHTTPClient replaces the HTTP client used for both live catalog
// lookups and LLM correction requests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *resolvedOptions) { o.httpClient = client }
}

// WithConfigDir overrides the directory holding config.toml, secrets,
// and logs, equivalent to setting CONVOCATIONS_WORKING_DIR.
func WithConfigDir(dir string) Option {
	return func(o *resolvedOptions) { o.configDir = dir }
}

// WithProgressSink registers an additional observer that receives
// every event from every job this App submits. Multiple sinks may be
// registered; all are notified in registration order.
func WithProgressSink(sink ProgressSink) Option {
	return func(o *resolvedOptions) { o.progressSinks = append(o.progressSinks, sink) }
}

// clockFunc adapts a plain func() time.Time to the Clock interface.
type clockFunc func() time.Time

func (f clockFunc) Now() time.Time { return f() }
