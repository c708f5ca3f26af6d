package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/engine"
)

func TestParseAppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(`
rules {
  min_bet     = 25
  push_policy = "reward"
}
`), "blackjack.hcl")
	require.NoError(t, err)

	want := engine.DefaultRules()
	want.MinBet = 25
	want.Push = engine.PushReward
	assert.Equal(t, want, cfg.Rules)
	assert.Equal(t, 30*time.Second, cfg.AwaitTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	require.NoError(t, cfg.Validate())
}

func TestParseFullFile(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(`
rules {
  contract          = "casino"
  wager_token       = "chips"
  reward_token      = "points"
  bank_draws_on_hit = true
  resolution_seed   = "identity"
}
overlay {
  await_timeout = "2s"
  event_buffer  = 8
  journal       = "runs/journal.msgp"
}
log {
  level  = "debug"
  format = "json"
}
`), "blackjack.hcl")
	require.NoError(t, err)

	assert.Equal(t, "casino", string(cfg.Rules.Contract))
	assert.Equal(t, "chips", string(cfg.Rules.WagerToken))
	assert.Equal(t, "points", string(cfg.Rules.RewardToken))
	assert.True(t, cfg.Rules.BankDrawsOnHit)
	assert.Equal(t, engine.SeedIdentity, cfg.Rules.ResolutionSeed)
	assert.Equal(t, uint32(10), cfg.Rules.MinBet)
	assert.Equal(t, 2*time.Second, cfg.AwaitTimeout)
	assert.Equal(t, 8, cfg.EventBuffer)
	assert.Equal(t, "runs/journal.msgp", cfg.Journal)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"syntax":        `rules {`,
		"unknown field": `rules { house_edge = 2 }`,
		"bad duration":  `overlay { await_timeout = "soon" }`,
		"negative bet":  `rules { min_bet = -1 }`,
		"huge bet":      `rules { min_bet = 4294967296 }`,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src), "blackjack.hcl")
			assert.Error(t, err)
		})
	}
}

func TestParseZeroMinBet(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(`rules { min_bet = 0 }`), "blackjack.hcl")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), cfg.Rules.MinBet)

	fromEnv := Default()
	require.NoError(t, fromEnv.ApplyEnv(map[string]string{"BLACKJACK_MIN_BET": "0"}))
	assert.Equal(t, fromEnv.Rules.MinBet, cfg.Rules.MinBet)
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(map[string]string{
		"BLACKJACK_MIN_BET":           "50",
		"BLACKJACK_PUSH_POLICY":       "reward",
		"BLACKJACK_BANK_DRAWS_ON_HIT": "true",
		"BLACKJACK_AWAIT_TIMEOUT":     "5s",
		"BLACKJACK_LOG_LEVEL":         "warn",
	}))

	assert.Equal(t, uint32(50), cfg.Rules.MinBet)
	assert.Equal(t, engine.PushReward, cfg.Rules.Push)
	assert.True(t, cfg.Rules.BankDrawsOnHit)
	assert.Equal(t, 5*time.Second, cfg.AwaitTimeout)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat, "unset variables keep their value")

	assert.Error(t, cfg.ApplyEnv(map[string]string{"BLACKJACK_MIN_BET": "lots"}))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := map[string]func(c *Config){
		"push policy":     func(c *Config) { c.Rules.Push = "split" },
		"resolution seed": func(c *Config) { c.Rules.ResolutionSeed = "moon" },
		"same tokens":     func(c *Config) { c.Rules.RewardToken = c.Rules.WagerToken },
		"timeout":         func(c *Config) { c.AwaitTimeout = 0 },
		"log level":       func(c *Config) { c.LogLevel = "loud" },
		"log format":      func(c *Config) { c.LogFormat = "xml" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.hcl"))
	require.NoError(t, err)
	assert.Equal(t, engine.DefaultRules().MinBet, cfg.Rules.MinBet)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blackjack.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`rules { min_bet = 20 }`), 0o644))
	t.Setenv("BLACKJACK_PUSH_POLICY", "reward")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(20), cfg.Rules.MinBet)
	assert.Equal(t, engine.PushReward, cfg.Rules.Push)

	t.Setenv("BLACKJACK_PUSH_POLICY", "double")
	_, err = Load(path)
	assert.Error(t, err)
}
