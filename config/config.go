// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/warp/disbursement-engine/eligibility"
	"github.com/warp/disbursement-engine/money"
)

// Config is shared by cmd/server and cmd/verify. Flags may override Port and
// DBPath. DBPath "memory" keeps saved verifications in process.
type Config struct {
	Port   int    `env:"DISBURSEMENT_PORT"   envDefault:"8080"`
	DBPath string `env:"DISBURSEMENT_DB"     envDefault:"disbursement.db"`
	Locale string `env:"DISBURSEMENT_LOCALE" envDefault:"es-CL"`

	// StrictRenditions rejects zero-amount renditions as well as negative ones.
	StrictRenditions bool `env:"DISBURSEMENT_STRICT_RENDITIONS" envDefault:"false"`

	RedisAddr string        `env:"DISBURSEMENT_REDIS_ADDR"`
	CacheTTL  time.Duration `env:"DISBURSEMENT_CACHE_TTL" envDefault:"24h"`

	GenAIAPIKey      string        `env:"DISBURSEMENT_GENAI_API_KEY"`
	GenAIModel       string        `env:"DISBURSEMENT_GENAI_MODEL"         envDefault:"gemini-2.0-flash"`
	NarrativeTimeout time.Duration `env:"DISBURSEMENT_NARRATIVE_TIMEOUT"   envDefault:"10s"`

	// RefreshInterval re-evaluates saved verifications periodically. Saved
	// summaries are always refreshed once at startup; 0 means only then.
	RefreshInterval time.Duration `env:"DISBURSEMENT_REFRESH_INTERVAL" envDefault:"0s"`

	AllowedOrigins []string `env:"DISBURSEMENT_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:8080"`

	Development bool `env:"DISBURSEMENT_DEV" envDefault:"false"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.NarrativeTimeout <= 0 {
		cfg.NarrativeTimeout = 10 * time.Second
	}
	return cfg, nil
}

// MemoryStore is the DBPath value that selects the in-process store.
const MemoryStore = "memory"

// UsesMemoryStore reports whether saved verifications live only in memory.
func (c Config) UsesMemoryStore() bool { return c.DBPath == MemoryStore }

// Normalizer returns the number normalizer for the configured locale.
func (c Config) Normalizer() money.Normalizer {
	return money.NewNormalizer(money.LocaleFor(c.Locale))
}

// Policy returns the engine policy selected by the configuration.
func (c Config) Policy() eligibility.Policy {
	p := eligibility.DefaultPolicy()
	if c.StrictRenditions {
		p.RenditionRule = eligibility.RuleStrictlyPositive
	}
	return p
}

// Engine builds the eligibility engine for this configuration.
func (c Config) Engine() (*eligibility.Engine, error) {
	e, err := eligibility.NewEngine(c.Policy())
	if err != nil {
		return nil, err
	}
	e.Normalizer = c.Normalizer()
	return e, nil
}
