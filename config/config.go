// Package config loads decoder settings from a TOML file and MINITL_* environment
// variables. Environment values win over the file; the file wins over Default.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"mini-tl/protocol"
	"mini-tl/registry"
)

const (
	EnvLogLevel      = "MINITL_LOG_LEVEL"
	EnvLogFormat     = "MINITL_LOG_FORMAT"
	EnvMaxDepth      = "MINITL_MAX_DEPTH"
	EnvMaxVectorLen  = "MINITL_MAX_VECTOR_LEN"
	EnvRateLimit     = "MINITL_RATE_LIMIT"
	EnvPoolAlloc     = "MINITL_POOL_ALLOCATOR"
	EnvEtcdEndpoints = "MINITL_ETCD_ENDPOINTS"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Limits    LimitsConfig    `toml:"limits"`
	Decode    DecodeConfig    `toml:"decode"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Log       LogConfig       `toml:"log"`
	Catalog   CatalogConfig   `toml:"catalog"`
}

type LimitsConfig struct {
	MaxDepth       int   `toml:"max_depth"`
	MaxVectorLen   int   `toml:"max_vector_len"`
	MaxBlobLen     int   `toml:"max_blob_len"`
	MaxUnpackedLen int64 `toml:"max_unpacked_len"`
}

type DecodeConfig struct {
	// Timeout bounds one decode, as a Go duration string. Empty disables it.
	Timeout       string `toml:"timeout"`
	PoolAllocator bool   `toml:"pool_allocator"`
}

type RateLimitConfig struct {
	Enable    bool    `toml:"enable"`
	PerSecond float64 `toml:"per_second"`
	Burst     int     `toml:"burst"`
}

type LogConfig struct {
	Level       string         `toml:"level"`
	Format      string         `toml:"format"` // "json" or "console"
	Development bool           `toml:"development"`
	Outputs     []string       `toml:"outputs"`
	Rotation    RotationConfig `toml:"rotation"`
}

type RotationConfig struct {
	Enable     bool   `toml:"enable"`
	Filename   string `toml:"filename"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

type CatalogConfig struct {
	Endpoints   []string `toml:"endpoints"`
	Node        string   `toml:"node"`
	TTLSeconds  int64    `toml:"ttl_seconds"`
	DialTimeout string   `toml:"dial_timeout"`
}

func Default() Config {
	l := registry.DefaultLimits()
	return Config{
		Limits: LimitsConfig{
			MaxDepth:       l.MaxDepth,
			MaxVectorLen:   l.MaxVectorLen,
			MaxBlobLen:     l.MaxBlobLen,
			MaxUnpackedLen: l.MaxUnpackedLen,
		},
		RateLimit: RateLimitConfig{PerSecond: 1000, Burst: 100},
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stderr"},
		},
		Catalog: CatalogConfig{
			TTLSeconds:  10,
			DialTimeout: "5s",
		},
	}
}

// Load reads path over Default, applies environment overrides and validates the
// result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
		}
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Log.Format = v
	}
	if err := envInt(EnvMaxDepth, &cfg.Limits.MaxDepth); err != nil {
		return err
	}
	if err := envInt(EnvMaxVectorLen, &cfg.Limits.MaxVectorLen); err != nil {
		return err
	}
	if v := strings.TrimSpace(os.Getenv(EnvRateLimit)); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, EnvRateLimit, v, err)
		}
		cfg.RateLimit.Enable = r > 0
		cfg.RateLimit.PerSecond = r
	}
	if v := strings.TrimSpace(os.Getenv(EnvPoolAlloc)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, EnvPoolAlloc, v, err)
		}
		cfg.Decode.PoolAllocator = b
	}
	if v := strings.TrimSpace(os.Getenv(EnvEtcdEndpoints)); v != "" {
		cfg.Catalog.Endpoints = splitList(v)
	}
	return nil
}

func envInt(key string, dst *int) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q: %v", ErrInvalid, key, v, err)
	}
	*dst = n
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c Config) Validate() error {
	l := c.Limits
	if l.MaxDepth < 0 || l.MaxVectorLen < 0 || l.MaxBlobLen < 0 || l.MaxUnpackedLen < 0 {
		return fmt.Errorf("%w: limits must not be negative", ErrInvalid)
	}
	if l.MaxBlobLen > protocol.MaxBlobLen {
		return fmt.Errorf("%w: max_blob_len %d exceeds the 3-byte length field", ErrInvalid, l.MaxBlobLen)
	}
	if _, err := c.Decode.TimeoutDuration(); err != nil {
		return err
	}
	if c.RateLimit.Enable && (c.RateLimit.PerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("%w: rate_limit needs positive per_second and burst", ErrInvalid)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "console":
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalid, c.Log.Format)
	}
	if len(c.Catalog.Endpoints) > 0 {
		if strings.TrimSpace(c.Catalog.Node) == "" {
			return fmt.Errorf("%w: catalog needs a node name", ErrInvalid)
		}
		if _, err := time.ParseDuration(c.Catalog.DialTimeout); err != nil {
			return fmt.Errorf("%w: catalog dial_timeout: %v", ErrInvalid, err)
		}
	}
	return nil
}

// TimeoutDuration parses Timeout; zero means no timeout.
func (d DecodeConfig) TimeoutDuration() (time.Duration, error) {
	if strings.TrimSpace(d.Timeout) == "" {
		return 0, nil
	}
	t, err := time.ParseDuration(strings.TrimSpace(d.Timeout))
	if err != nil {
		return 0, fmt.Errorf("%w: decode timeout: %v", ErrInvalid, err)
	}
	if t < 0 {
		return 0, fmt.Errorf("%w: decode timeout %s is negative", ErrInvalid, t)
	}
	return t, nil
}

// Registry converts the limits section for registry.WithLimits.
func (l LimitsConfig) Registry() registry.Limits {
	return registry.Limits{
		MaxDepth:       l.MaxDepth,
		MaxVectorLen:   l.MaxVectorLen,
		MaxBlobLen:     l.MaxBlobLen,
		MaxUnpackedLen: l.MaxUnpackedLen,
	}
}
