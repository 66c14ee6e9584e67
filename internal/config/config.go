// Package config loads hfile's ambient tunables (buffer size, HTTP
// timeouts/redirects/retries) from an optional file plus environment
// overrides: a nested Config struct with a Validate method returning
// descriptive errors, loaded via spf13/viper.
package config

import (
	"fmt"
	"time"

	"github.com/jinzhu/copier"
	"github.com/spf13/viper"
)

// DefaultBufferSize is the default hStream buffer capacity.
const DefaultBufferSize = 32 * 1024

// HTTPConfig holds the resumable HTTP backend's tunables.
type HTTPConfig struct {
	// Timeout bounds each HTTP session (from request to the response body
	// either completing, erroring, or being superseded by a reopen) via
	// context.WithTimeout, derived fresh per session in
	// httpbackend.Reader.openSession.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// MaxRedirects caps automatic redirect following.
	MaxRedirects int `mapstructure:"max_redirects" yaml:"max_redirects"`
	// MaxReopenAttempts caps consecutive automatic session reopens after a
	// truncated response before KindTruncated is surfaced to the caller.
	MaxReopenAttempts int `mapstructure:"max_reopen_attempts" yaml:"max_reopen_attempts"`
	// UserAgent is sent on every request.
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
}

// Config is hfile's top-level configuration.
type Config struct {
	BufferSize int        `mapstructure:"buffer_size" yaml:"buffer_size"`
	HTTP       HTTPConfig `mapstructure:"http" yaml:"http"`
}

// Default returns hfile's built-in defaults.
func Default() *Config {
	return &Config{
		BufferSize: DefaultBufferSize,
		HTTP: HTTPConfig{
			Timeout:           30 * time.Second,
			MaxRedirects:      16,
			MaxReopenAttempts: 10,
			UserAgent:         "hfile/1.0",
		},
	}
}

// Validate reports the first configuration error found, following the
// teacher's Validate convention of descriptive, field-named errors.
func (c *Config) Validate() error {
	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer_size must be positive, got %d", c.BufferSize)
	}
	if c.HTTP.MaxRedirects < 0 {
		return fmt.Errorf("http.max_redirects must be >= 0, got %d", c.HTTP.MaxRedirects)
	}
	if c.HTTP.MaxRedirects > 16 {
		return fmt.Errorf("http.max_redirects must be <= 16 per spec, got %d", c.HTTP.MaxRedirects)
	}
	if c.HTTP.MaxReopenAttempts <= 0 {
		return fmt.Errorf("http.max_reopen_attempts must be positive, got %d", c.HTTP.MaxReopenAttempts)
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive, got %s", c.HTTP.Timeout)
	}
	return nil
}

// Load reads configuration from path (YAML or JSON, detected by viper via
// extension) layered over Default(), with HFILE_-prefixed environment
// variables overriding file values. An empty path returns Default()
// unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("HFILE")
	v.AutomaticEnv()

	// Seed viper's defaults from the built-in Config so unset keys in the
	// file still resolve, mirroring copier's role of cloning the defaults
	// into a fresh struct before overrides land on top of it.
	defaults := &Config{}
	if err := copier.CopyWithOption(defaults, cfg, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("clone default config: %w", err)
	}
	v.SetDefault("buffer_size", defaults.BufferSize)
	v.SetDefault("http.timeout", defaults.HTTP.Timeout)
	v.SetDefault("http.max_redirects", defaults.HTTP.MaxRedirects)
	v.SetDefault("http.max_reopen_attempts", defaults.HTTP.MaxReopenAttempts)
	v.SetDefault("http.user_agent", defaults.HTTP.UserAgent)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	out := &Config{}
	if err := v.Unmarshal(out); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return out, nil
}
