// Package config loads engine rules and runtime settings from an HCL file
// with environment variable overrides.
package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"

	"github.com/lox/blackjack/internal/engine"
	"github.com/lox/blackjack/internal/tx"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BLACKJACK_"

// File is the HCL layout:
//
//	rules {
//	  min_bet           = 10
//	  push_policy       = "refund"
//	  bank_draws_on_hit = false
//	  resolution_seed   = "block"
//	}
//	overlay {
//	  await_timeout = "30s"
//	}
//	log {
//	  level  = "info"
//	  format = "console"
//	}
type File struct {
	Rules   *RulesBlock   `hcl:"rules,block"`
	Overlay *OverlayBlock `hcl:"overlay,block"`
	Log     *LogBlock     `hcl:"log,block"`
}

// RulesBlock configures the engine.
type RulesBlock struct {
	Contract       string `hcl:"contract,optional"`
	MinBet         *int   `hcl:"min_bet,optional"`
	WagerToken     string `hcl:"wager_token,optional"`
	RewardToken    string `hcl:"reward_token,optional"`
	PushPolicy     string `hcl:"push_policy,optional"`
	BankDrawsOnHit bool   `hcl:"bank_draws_on_hit,optional"`
	ResolutionSeed string `hcl:"resolution_seed,optional"`
}

// OverlayBlock configures settlement handling.
type OverlayBlock struct {
	AwaitTimeout string `hcl:"await_timeout,optional"`
	EventBuffer  int    `hcl:"event_buffer,optional"`
	Journal      string `hcl:"journal,optional"`
}

// LogBlock configures logging.
type LogBlock struct {
	Level  string `hcl:"level,optional"`
	Format string `hcl:"format,optional"`
}

// Config is the resolved configuration.
type Config struct {
	Rules engine.Rules
	// AwaitTimeout bounds how long a client waits for settlement.
	AwaitTimeout time.Duration
	EventBuffer  int
	// Journal is where confirmed entries are recorded. Empty disables it.
	Journal   string
	LogLevel  string
	LogFormat string
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Rules:        engine.DefaultRules(),
		AwaitTimeout: 30 * time.Second,
		EventBuffer:  64,
		LogLevel:     "info",
		LogFormat:    "console",
	}
}

// Load reads filename, applies environment overrides and validates the
// result. A missing file yields the defaults.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename != "" {
		src, err := os.ReadFile(filename)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if cfg, err = Parse(src, filename); err != nil {
				return nil, err
			}
		}
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes HCL source over the defaults.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var f File
	diags = gohcl.DecodeBody(file.Body, nil, &f)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg := Default()
	if r := f.Rules; r != nil {
		if r.Contract != "" {
			cfg.Rules.Contract = tx.ContractName(r.Contract)
		}
		if r.MinBet != nil {
			if *r.MinBet < 0 || int64(*r.MinBet) > math.MaxUint32 {
				return nil, fmt.Errorf("invalid min_bet: %d", *r.MinBet)
			}
			cfg.Rules.MinBet = uint32(*r.MinBet)
		}
		if r.WagerToken != "" {
			cfg.Rules.WagerToken = tx.ContractName(r.WagerToken)
		}
		if r.RewardToken != "" {
			cfg.Rules.RewardToken = tx.ContractName(r.RewardToken)
		}
		if r.PushPolicy != "" {
			cfg.Rules.Push = engine.PushPolicy(r.PushPolicy)
		}
		cfg.Rules.BankDrawsOnHit = r.BankDrawsOnHit
		if r.ResolutionSeed != "" {
			cfg.Rules.ResolutionSeed = engine.SeedPolicy(r.ResolutionSeed)
		}
	}
	if o := f.Overlay; o != nil {
		if o.AwaitTimeout != "" {
			d, err := time.ParseDuration(o.AwaitTimeout)
			if err != nil {
				return nil, fmt.Errorf("invalid await_timeout: %w", err)
			}
			cfg.AwaitTimeout = d
		}
		if o.EventBuffer > 0 {
			cfg.EventBuffer = o.EventBuffer
		}
		cfg.Journal = o.Journal
	}
	if l := f.Log; l != nil {
		if l.Level != "" {
			cfg.LogLevel = l.Level
		}
		if l.Format != "" {
			cfg.LogFormat = l.Format
		}
	}
	return cfg, nil
}

// overrides lists the environment variables that win over the file. Unset
// variables leave the pointer nil.
type overrides struct {
	Contract       *string        `env:"CONTRACT"`
	MinBet         *uint32        `env:"MIN_BET"`
	PushPolicy     *string        `env:"PUSH_POLICY"`
	BankDrawsOnHit *bool          `env:"BANK_DRAWS_ON_HIT"`
	ResolutionSeed *string        `env:"RESOLUTION_SEED"`
	AwaitTimeout   *time.Duration `env:"AWAIT_TIMEOUT"`
	Journal        *string        `env:"JOURNAL"`
	LogLevel       *string        `env:"LOG_LEVEL"`
	LogFormat      *string        `env:"LOG_FORMAT"`
}

// ApplyEnv applies BLACKJACK_* overrides from environ, or from the process
// environment when environ is nil.
func (c *Config) ApplyEnv(environ map[string]string) error {
	var o overrides
	if err := env.ParseWithOptions(&o, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.Contract != nil {
		c.Rules.Contract = tx.ContractName(*o.Contract)
	}
	if o.MinBet != nil {
		c.Rules.MinBet = *o.MinBet
	}
	if o.PushPolicy != nil {
		c.Rules.Push = engine.PushPolicy(*o.PushPolicy)
	}
	if o.BankDrawsOnHit != nil {
		c.Rules.BankDrawsOnHit = *o.BankDrawsOnHit
	}
	if o.ResolutionSeed != nil {
		c.Rules.ResolutionSeed = engine.SeedPolicy(*o.ResolutionSeed)
	}
	if o.AwaitTimeout != nil {
		c.AwaitTimeout = *o.AwaitTimeout
	}
	if o.Journal != nil {
		c.Journal = *o.Journal
	}
	if o.LogLevel != nil {
		c.LogLevel = *o.LogLevel
	}
	if o.LogFormat != nil {
		c.LogFormat = *o.LogFormat
	}
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := c.Rules.Validate(); err != nil {
		return err
	}
	if c.AwaitTimeout <= 0 {
		return fmt.Errorf("invalid await timeout: %s", c.AwaitTimeout)
	}
	if c.EventBuffer < 0 {
		return fmt.Errorf("invalid event buffer: %d", c.EventBuffer)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format: %q", c.LogFormat)
	}
	return nil
}
