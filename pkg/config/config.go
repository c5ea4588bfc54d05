package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap/zapcore"
)

const EnvPrefix = "PARTSCOUT_"

type Config struct {
	Server    ServerConfig    `yaml:"server" koanf:"server"`
	Catalog   CatalogConfig   `yaml:"catalog" koanf:"catalog"`
	NHTSA     NHTSAConfig     `yaml:"nhtsa" koanf:"nhtsa"`
	PartsTech PartsTechConfig `yaml:"partstech" koanf:"partstech"`
	Token     TokenConfig     `yaml:"token" koanf:"token"`
	Extractor ExtractorConfig `yaml:"extractor" koanf:"extractor"`
	Log       LogConfig       `yaml:"log" koanf:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" koanf:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" koanf:"shutdown_timeout"`
}

// CatalogConfig points at the SQLite catalog. An empty Path keeps the
// catalog in memory; SeedFile replaces the embedded seed document.
type CatalogConfig struct {
	Path     string `yaml:"path" koanf:"path"`
	SeedFile string `yaml:"seed_file" koanf:"seed_file"`
}

type NHTSAConfig struct {
	BaseURL string        `yaml:"base_url" koanf:"base_url"`
	Timeout time.Duration `yaml:"timeout" koanf:"timeout"`
}

type PartsTechConfig struct {
	BaseURL   string        `yaml:"base_url" koanf:"base_url"`
	Username  string        `yaml:"username" koanf:"username"`
	APIKey    string        `yaml:"api_key" koanf:"api_key"`
	Timeout   time.Duration `yaml:"timeout" koanf:"timeout"`
	RateLimit float64       `yaml:"rate_limit" koanf:"rate_limit"`
	RateBurst int           `yaml:"rate_burst" koanf:"rate_burst"`
	// Demo serves the built-in offline stock list instead of the remote API.
	Demo bool `yaml:"demo" koanf:"demo"`
}

// Enabled reports whether credentials for the live source are configured.
func (p PartsTechConfig) Enabled() bool {
	return p.Username != "" && p.APIKey != ""
}

type TokenConfig struct {
	SafetyMargin    time.Duration `yaml:"safety_margin" koanf:"safety_margin"`
	AcquireTimeout  time.Duration `yaml:"acquire_timeout" koanf:"acquire_timeout"`
	DefaultLifetime time.Duration `yaml:"default_lifetime" koanf:"default_lifetime"`
}

type ExtractorConfig struct {
	EmbeddedDecay float64 `yaml:"embedded_decay" koanf:"embedded_decay"`
	MinConfidence float64 `yaml:"min_confidence" koanf:"min_confidence"`
	PatternsFile  string  `yaml:"patterns_file" koanf:"patterns_file"`
}

type LogConfig struct {
	Level       string `yaml:"level" koanf:"level"`
	Development bool   `yaml:"development" koanf:"development"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		NHTSA: NHTSAConfig{
			BaseURL: "https://vpic.nhtsa.dot.gov/api",
			Timeout: 15 * time.Second,
		},
		PartsTech: PartsTechConfig{
			BaseURL:   "https://api.partstech.com",
			Timeout:   8 * time.Second,
			RateLimit: 5,
			RateBurst: 5,
		},
		Token: TokenConfig{
			SafetyMargin:    2 * time.Minute,
			AcquireTimeout:  15 * time.Second,
			DefaultLifetime: 60 * time.Minute,
		},
		Extractor: ExtractorConfig{
			EmbeddedDecay: 0.1,
			MinConfidence: 0.1,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (PARTSCOUT_*, "__" for nesting).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	// PARTSCOUT_PARTSTECH__API_KEY -> partstech.api_key
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.NHTSA.BaseURL == "" {
		return fmt.Errorf("nhtsa.base_url is required")
	}
	if c.PartsTech.BaseURL == "" {
		return fmt.Errorf("partstech.base_url is required")
	}
	for name, d := range map[string]time.Duration{
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"nhtsa.timeout":           c.NHTSA.Timeout,
		"partstech.timeout":       c.PartsTech.Timeout,
		"token.safety_margin":     c.Token.SafetyMargin,
		"token.acquire_timeout":   c.Token.AcquireTimeout,
		"token.default_lifetime":  c.Token.DefaultLifetime,
	} {
		if d < 0 {
			return fmt.Errorf("%s must be non-negative", name)
		}
	}
	if c.Token.DefaultLifetime > 0 && c.Token.SafetyMargin >= c.Token.DefaultLifetime {
		return fmt.Errorf("token.safety_margin must be shorter than token.default_lifetime")
	}
	if c.PartsTech.RateLimit < 0 || c.PartsTech.RateBurst < 0 {
		return fmt.Errorf("partstech rate limits must be non-negative")
	}
	if c.Extractor.EmbeddedDecay <= 0 || c.Extractor.EmbeddedDecay > 1 {
		return fmt.Errorf("extractor.embedded_decay must be in (0, 1]")
	}
	if c.Extractor.MinConfidence < 0 || c.Extractor.MinConfidence > 1 {
		return fmt.Errorf("extractor.min_confidence must be in [0, 1]")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level %q: %w", c.Log.Level, err)
	}
	return nil
}
