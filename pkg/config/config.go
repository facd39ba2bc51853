package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/obsidianstack/samplerate/pkg/estimate"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultScrapeInterval = 30 * time.Second
	DefaultHTTPPort       = 8080
	DefaultAPIKeyHeader   = "x-api-key"
)

// Config is the top-level configuration for both the advisor and the server.
// Fields map 1:1 to config.example.yaml.
type Config struct {
	Advisor AdvisorConfig `yaml:"advisor"`
	Server  ServerConfig  `yaml:"server"`
}

// AdvisorConfig holds the CLI settings.
type AdvisorConfig struct {
	// Ceiling is the throughput ceiling used by calc, form and observe.
	Ceiling estimate.Ceiling `yaml:"ceiling"`

	// ScrapeInterval controls how often each observed source is polled.
	ScrapeInterval time.Duration `yaml:"scrape_interval"`

	// Sources is the list of live services whose counters feed observe.
	Sources []Source `yaml:"sources"`
}

// Source describes one service exposing Prometheus metrics.
type Source struct {
	// ID is a unique, human-readable identifier for this source.
	ID string `yaml:"id"`

	// Endpoint is the full URL of the service's /metrics endpoint.
	Endpoint string `yaml:"endpoint"`

	// TransactionsMetric is the counter family counting transactions,
	// e.g. http_server_requests_total.
	TransactionsMetric string `yaml:"transactions_metric"`

	// SessionsMetric is an optional counter family counting started sessions.
	SessionsMetric string `yaml:"sessions_metric"`

	// Auth configures how the advisor authenticates to this source.
	Auth AuthConfig `yaml:"auth"`

	// TLS holds optional TLS dial options.
	TLS TLSConfig `yaml:"tls"`
}

// AuthConfig specifies the authentication mode for a source.
type AuthConfig struct {
	// Mode is one of: mtls | apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	// mTLS client certificate, used when Mode == "mtls". CAFile is optional
	// and replaces the system roots for verifying the source.
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	// Header is the HTTP header name the API key is sent in.
	Header string `yaml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`

	// TokenEnv holds the bearer token when Mode == "bearer".
	TokenEnv string `yaml:"token_env"`

	// Username is the literal basic-auth username.
	Username string `yaml:"username"`
	// PasswordEnv holds the basic-auth password.
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	return fromEnv(a.KeyEnv)
}

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string {
	return fromEnv(a.TokenEnv)
}

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string {
	return fromEnv(a.PasswordEnv)
}

// EffectiveHeader returns the configured header name, or DefaultAPIKeyHeader.
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return DefaultAPIKeyHeader
}

// TLSConfig holds per-source TLS dial options.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, WebSocket form and /metrics listen on.
	HTTPPort int `yaml:"http_port"`

	// Auth configures how the server authenticates API requests.
	Auth ServerAuthConfig `yaml:"auth"`

	// CORS lists origins allowed to call the API from a browser.
	CORS CORSConfig `yaml:"cors"`

	// Ceiling overrides advisor.ceiling for the server. Nil means inherit.
	Ceiling *estimate.Ceiling `yaml:"ceiling"`
}

// ServerAuthConfig configures REST API authentication.
type ServerAuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable holding the expected API key.
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header to read the key from. Defaults to x-api-key.
	Header string `yaml:"header"`
}

// Key returns the server API key resolved from the environment.
func (a ServerAuthConfig) Key() string {
	return fromEnv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or DefaultAPIKeyHeader.
func (a ServerAuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return DefaultAPIKeyHeader
}

// CORSConfig configures cross-origin access to the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ServerCeiling returns the ceiling the server should use.
func (c *Config) ServerCeiling() estimate.Ceiling {
	if c.Server.Ceiling != nil {
		return *c.Server.Ceiling
	}
	return c.Advisor.Ceiling
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config data over Defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a Config pre-populated with default values. Commands that
// run without a config file use it as-is.
func Defaults() *Config {
	return &Config{
		Advisor: AdvisorConfig{
			Ceiling:        estimate.DefaultCeiling(),
			ScrapeInterval: DefaultScrapeInterval,
		},
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if err := cfg.Advisor.Ceiling.Validate(); err != nil {
		return fmt.Errorf("advisor.ceiling: %w", err)
	}
	if cfg.Advisor.ScrapeInterval <= 0 {
		return fmt.Errorf("advisor.scrape_interval must be positive")
	}
	seen := make(map[string]bool, len(cfg.Advisor.Sources))
	for i, src := range cfg.Advisor.Sources {
		if src.ID == "" {
			return fmt.Errorf("sources[%d]: id is required", i)
		}
		if seen[src.ID] {
			return fmt.Errorf("sources[%d]: duplicate id %q", i, src.ID)
		}
		seen[src.ID] = true
		if src.Endpoint == "" {
			return fmt.Errorf("sources[%d] %q: endpoint is required", i, src.ID)
		}
		if src.TransactionsMetric == "" {
			return fmt.Errorf("sources[%d] %q: transactions_metric is required", i, src.ID)
		}
		switch src.Auth.Mode {
		case "mtls":
			if src.Auth.CertFile == "" || src.Auth.KeyFile == "" {
				return fmt.Errorf("sources[%d] %q: mtls auth requires cert_file and key_file", i, src.ID)
			}
		case "apikey", "bearer", "basic", "none", "":
		default:
			return fmt.Errorf("sources[%d] %q: unknown auth mode %q", i, src.ID, src.Auth.Mode)
		}
	}

	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	switch cfg.Server.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", cfg.Server.Auth.Mode)
	}
	if cfg.Server.Ceiling != nil {
		if err := cfg.Server.Ceiling.Validate(); err != nil {
			return fmt.Errorf("server.ceiling: %w", err)
		}
	}
	return nil
}

func fromEnv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}
