package types

import "time"

// HTTPConfig holds shared HTTP settings used by the network sources.
type HTTPConfig struct {
	// Timeout bounds each individual source fetch.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "adlibrary/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SourceConfig holds settings for the three record sources.
type SourceConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the middleware API root serving file listings and
	// analysis history.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// APIToken is sent as a bearer token when set. Usually loaded from
	// .secrets/backend-api-token rather than the config file.
	APIToken string `json:"api_token,omitempty" yaml:"api_token,omitempty" mapstructure:"api_token"`

	// RateLimit caps requests per second across all sources (0 = unlimited).
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`

	// MaxRetries is the number of retries on HTTP 429 or 503 (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// FixturesDir switches every source to YAML fixtures under this
	// directory ({dir}/{source}/{user}.yaml). Empty means HTTP.
	FixturesDir string `json:"fixtures_dir,omitempty" yaml:"fixtures_dir,omitempty" mapstructure:"fixtures_dir"`
}

// ReconcileConfig holds the identity heuristics.
type ReconcileConfig struct {
	// MatchWindow is the maximum timestamp delta for two legacy records
	// with overlapping titles to share a key (default 5m).
	MatchWindow time.Duration `json:"match_window" yaml:"match_window" mapstructure:"match_window"`
}

// CacheBackend selects where reconciled lists are cached.
type CacheBackend string

const (
	CacheMemory CacheBackend = "memory"
	CacheSQLite CacheBackend = "sqlite"
	CacheNone   CacheBackend = "none"
)

// CacheConfig holds settings for the reconciled-list cache.
type CacheConfig struct {
	Backend CacheBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// TTL is how long a reconciled list is served before recomputing.
	TTL time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`

	// Path is the SQLite database file for the sqlite backend.
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is console or json.
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// NATSConfig holds settings for the cache invalidation listener.
type NATSConfig struct {
	// URL of the NATS server. Empty disables the listener.
	URL string `json:"url,omitempty" yaml:"url,omitempty" mapstructure:"url"`

	// Subject carries record mutation events.
	Subject string `json:"subject" yaml:"subject" mapstructure:"subject"`
}

// ServeConfig holds settings for the HTTP server.
type ServeConfig struct {
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// Config groups all settings.
type Config struct {
	Sources   SourceConfig    `json:"sources" yaml:"sources" mapstructure:"sources"`
	Reconcile ReconcileConfig `json:"reconcile" yaml:"reconcile" mapstructure:"reconcile"`
	Cache     CacheConfig     `json:"cache" yaml:"cache" mapstructure:"cache"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging" mapstructure:"logging"`
	NATS      NATSConfig      `json:"nats" yaml:"nats" mapstructure:"nats"`
	Serve     ServeConfig     `json:"serve" yaml:"serve" mapstructure:"serve"`
}

// DefaultMatchWindow is the legacy title match window.
const DefaultMatchWindow = 5 * time.Minute

// DefaultConfig returns the configuration used when no file or
// environment override is present.
func DefaultConfig() Config {
	return Config{
		Sources: SourceConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   15 * time.Second,
				UserAgent: "adlibrary/0.1",
			},
			BaseURL:    "http://localhost:8000",
			RateLimit:  5,
			MaxRetries: 3,
		},
		Reconcile: ReconcileConfig{
			MatchWindow: DefaultMatchWindow,
		},
		Cache: CacheConfig{
			Backend: CacheMemory,
			TTL:     2 * time.Minute,
			Path:    "data/cache.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		NATS: NATSConfig{
			Subject: "adlibrary.records.mutated",
		},
		Serve: ServeConfig{
			Addr: ":8080",
		},
	}
}
