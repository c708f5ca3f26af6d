// Package logging builds the zerolog loggers used by the commands.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// Options selects the logger's level and output format.
type Options struct {
	// Level is a zerolog level name. Empty means info.
	Level string
	// Format is "console" for human output or "json" for structured logs.
	Format string
	// Out defaults to stderr.
	Out io.Writer
}

// New returns a logger for opts.
func New(opts Options) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		l, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = l
	}
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	switch opts.Format {
	case "", "console":
		return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}).
			Level(level).
			With().
			Timestamp().
			Logger(), nil
	case "json":
		zerolog.TimeFieldFormat = time.RFC3339Nano
		return zerolog.New(out).
			Level(level).
			With().
			Timestamp().
			Logger(), nil
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", opts.Format)
	}
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM. The
// signal is logged.
func SignalContext(parent context.Context, logger zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
