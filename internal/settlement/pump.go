package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lox/blackjack/internal/overlay"
)

// Pump feeds ordering-service events into an overlay and reports every
// step of an entry's life to the waiters: the speculative verdict when it is
// sequenced, then the settlement outcome. A successful settlement is reported
// when the confirmed state reaches the entry, which may be after later
// events for earlier entries.
type Pump struct {
	overlay *overlay.Overlay
	waiters *Waiters
	logger  zerolog.Logger
}

// NewPump creates a pump. waiters may be nil when nobody awaits results.
func NewPump(o *overlay.Overlay, waiters *Waiters, logger zerolog.Logger) *Pump {
	return &Pump{
		overlay: o,
		waiters: waiters,
		logger:  logger.With().Str("component", "pump").Logger(),
	}
}

// Handle applies one event to the overlay. Engine rejections are not
// errors here; they are delivered to waiters in the Resolution. The
// returned error means the event itself could not be applied, for example
// a failure for an entry that is not pending.
func (p *Pump) Handle(ev Event) error {
	id := ev.Entry.ID()
	logger := p.logger.With().Str("entry", id.String()).Str("event", ev.Kind.String()).Logger()

	switch ev.Kind {
	case Sequenced:
		_, err := p.overlay.RecordPending(ev.Entry)
		if err != nil {
			logger.Warn().Err(err).Msg("Entry rejected speculatively")
		}
		p.notify(Resolution{ID: id, Kind: Sequenced, Err: err})
		return nil

	case Succeeded:
		p.settled(p.overlay.Confirm(ev.Entry))
		return nil

	case Failed:
		logger.Info().Str("reason", ev.Reason).Msg("Entry failed settlement")
		applied, err := p.overlay.Reject(id)
		p.notify(Resolution{ID: id, Kind: Failed, Reason: ev.Reason})
		p.settled(applied)
		if err != nil {
			return fmt.Errorf("reject %s: %w", id, err)
		}
		return nil

	case TimedOut:
		logger.Info().Msg("Entry timed out")
		applied, err := p.overlay.TimeOut(id)
		p.notify(Resolution{ID: id, Kind: TimedOut})
		p.settled(applied)
		if err != nil {
			return fmt.Errorf("time out %s: %w", id, err)
		}
		return nil

	default:
		return fmt.Errorf("unknown event kind %s", ev.Kind)
	}
}

// Run handles events until the channel is closed or ctx is done. Handle
// errors are logged and do not stop the pump.
func (p *Pump) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				p.logger.Debug().Msg("Event stream closed")
				return nil
			}
			err := p.Handle(ev)
			switch {
			case err == nil:
			case errors.Is(err, overlay.ErrUnknownEntry):
				// Settlement of an entry the overlay turned away.
				p.logger.Debug().Err(err).Msg("Event for unknown entry")
			default:
				p.logger.Warn().Err(err).Msg("Event not applied")
			}
		}
	}
}

// settled reports confirmed entries once the confirmed state has advanced
// over them, with the engine's verdict at that point.
func (p *Pump) settled(applied []overlay.Applied) {
	for _, a := range applied {
		id := a.Entry.ID()
		if a.Err != nil {
			p.logger.Error().Err(a.Err).Str("entry", id.String()).Msg("Settled entry failed to execute")
		}
		p.notify(Resolution{ID: id, Kind: Succeeded, Err: a.Err})
	}
}

func (p *Pump) notify(r Resolution) {
	if p.waiters != nil {
		p.waiters.Notify(r)
	}
}
