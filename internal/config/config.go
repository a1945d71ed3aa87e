// Package config loads the TOML configuration of the stompecho server.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/luciancaetano/stompnet"
	"github.com/luciancaetano/stompnet/internal/websocket"
)

var (
	ErrInvalidConfig = errors.New("config: invalid configuration")
	ErrUnknownKey    = errors.New("config: unknown key")
)

// AnyOrigin in allowed_origins accepts every Origin header.
const AnyOrigin = "*"

type Config struct {
	Addr           string    `toml:"addr"`
	Path           string    `toml:"path"`
	MaxMessageSize int64     `toml:"max_message_size"`
	LogLevel       string    `toml:"log_level"`
	MetricsPath    string    `toml:"metrics_path"`
	AllowedOrigins []string  `toml:"allowed_origins"`
	TLS            TLS       `toml:"tls"`
	RateLimit      RateLimit `toml:"rate_limit"`
}

type TLS struct {
	CertFile string `toml:"cert_file"`
	KeyFile  string `toml:"key_file"`
}

type RateLimit struct {
	Enabled           bool    `toml:"enabled"`
	MessagesPerSecond float64 `toml:"messages_per_second"`
	Burst             int     `toml:"burst"`
}

// Default returns the configuration used for keys a file leaves out.
func Default() Config {
	return Config{
		Addr:           ":61614",
		Path:           stompnet.DefaultPath,
		MaxMessageSize: stompnet.DefaultMaxMessageSize,
		LogLevel:       "info",
		RateLimit: RateLimit{
			Enabled:           true,
			MessagesPerSecond: 100,
			Burst:             200,
		},
	}
}

// Load reads path over the defaults and validates the result. Unknown keys
// are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load stompecho config: %w", err)
	}
	return finish(cfg, meta)
}

// Parse is Load for an in-memory document.
func Parse(data string) (Config, error) {
	cfg := Default()
	meta, err := toml.Decode(data, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("parse stompecho config: %w", err)
	}
	return finish(cfg, meta)
}

func finish(cfg Config, meta toml.MetaData) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: %s", ErrUnknownKey, undecoded[0])
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Addr = strings.TrimSpace(c.Addr)
	c.Path = strings.TrimSpace(c.Path)
	c.MetricsPath = strings.TrimSpace(c.MetricsPath)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.TLS.CertFile = strings.TrimSpace(c.TLS.CertFile)
	c.TLS.KeyFile = strings.TrimSpace(c.TLS.KeyFile)

	var origins []string
	for _, origin := range c.AllowedOrigins {
		if v := strings.TrimSpace(origin); v != "" {
			origins = append(origins, v)
		}
	}
	c.AllowedOrigins = origins
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr is required", ErrInvalidConfig)
	case !strings.HasPrefix(c.Path, "/"):
		return fmt.Errorf("%w: path %q must start with /", ErrInvalidConfig, c.Path)
	case c.MetricsPath != "" && !strings.HasPrefix(c.MetricsPath, "/"):
		return fmt.Errorf("%w: metrics_path %q must start with /", ErrInvalidConfig, c.MetricsPath)
	case c.MetricsPath != "" && c.MetricsPath == c.Path:
		return fmt.Errorf("%w: metrics_path and path must differ", ErrInvalidConfig)
	case c.MaxMessageSize <= 0:
		return fmt.Errorf("%w: max_message_size must be positive", ErrInvalidConfig)
	case (c.TLS.CertFile == "") != (c.TLS.KeyFile == ""):
		return fmt.Errorf("%w: tls.cert_file and tls.key_file must be set together", ErrInvalidConfig)
	case c.RateLimit.Enabled && c.RateLimit.MessagesPerSecond <= 0:
		return fmt.Errorf("%w: rate_limit.messages_per_second must be positive", ErrInvalidConfig)
	case c.RateLimit.Enabled && c.RateLimit.Burst <= 0:
		return fmt.Errorf("%w: rate_limit.burst must be positive", ErrInvalidConfig)
	}
	return nil
}

// TLSEnabled reports whether the server should listen for wss.
func (c Config) TLSEnabled() bool {
	return c.TLS.CertFile != "" && c.TLS.KeyFile != ""
}

// ServerConfig converts the file configuration into transport settings.
func (c Config) ServerConfig(logger *zerolog.Logger) *websocket.ServerConfig {
	rl := websocket.NoRateLimit()
	if c.RateLimit.Enabled {
		rl = &websocket.RateLimitConfig{
			MessagesPerSecond: rate.Limit(c.RateLimit.MessagesPerSecond),
			Burst:             c.RateLimit.Burst,
			Enabled:           true,
		}
	}

	return &websocket.ServerConfig{
		Addr:            c.Addr,
		Path:            c.Path,
		RateLimitConfig: rl,
		CheckOrigin:     c.checkOrigin(),
		MaxMessageSize:  c.MaxMessageSize,
		TLSCertFile:     c.TLS.CertFile,
		TLSKeyFile:      c.TLS.KeyFile,
		MetricsPath:     c.MetricsPath,
		Logger:          logger,
	}
}

// checkOrigin returns nil, the upgrader's same-origin policy, when no
// origins are configured.
func (c Config) checkOrigin() websocket.CheckOriginFn {
	if len(c.AllowedOrigins) == 0 {
		return nil
	}
	if slices.Contains(c.AllowedOrigins, AnyOrigin) {
		return func(*http.Request) bool { return true }
	}
	allowed := slices.Clone(c.AllowedOrigins)
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return slices.ContainsFunc(allowed, func(o string) bool {
			return strings.EqualFold(o, origin)
		})
	}
}
