package main

import (
	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/logging"
)

// version is set by ldflags during build
var version = "dev"

// Globals are the flags shared by every command.
type Globals struct {
	Config    string `short:"c" help:"Path to the HCL config file (missing file means defaults)" default:"blackjack.hcl"`
	LogLevel  string `help:"Override the configured log level"`
	LogFormat string `help:"Override the configured log format (console, json)"`
}

// load resolves configuration and builds the logger.
func (g *Globals) load() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.LogFormat = g.LogFormat
	}
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger, nil
}

type CLI struct {
	Globals

	Version kong.VersionFlag `short:"v" help:"Show version"`
	Score   ScoreCmd         `cmd:"" help:"Score a blackjack hand"`
	Play    PlayCmd          `cmd:"" help:"Play a scripted session through the optimistic overlay"`
	Replay  ReplayCmd        `cmd:"" help:"Verify a journal by re-executing it"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("blackjack"),
		kong.Description("Deterministic, replayable blackjack engine"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
