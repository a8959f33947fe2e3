package ledger

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"oracle-panel/internal/contract"
)

// Ledger remembers which transactions already produced a side effect in the
// current session. It only grows; a new session starts with a new Ledger.
// It is not safe for concurrent use; the session manager serializes callers.
type Ledger struct {
	seen map[string]struct{}
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{seen: make(map[string]struct{})}
}

// Admit records id and reports whether it was new.
func (l *Ledger) Admit(id string) bool {
	key := strings.ToLower(id)
	if _, ok := l.seen[key]; ok {
		return false
	}
	l.seen[key] = struct{}{}
	return true
}

// Len returns the number of admitted transactions.
func (l *Ledger) Len() int {
	return len(l.seen)
}

// Handler performs the side effect of one admitted event.
type Handler func(ctx context.Context, ev contract.Event) error

// Observer is notified of each dispatch outcome.
type Observer interface {
	EventAdmitted(kind contract.EventKind)
	EventDuplicate(kind contract.EventKind)
}

// Dispatcher gates events through a ledger and runs the handler registered
// for the event kind.
type Dispatcher struct {
	ledger   *Ledger
	handlers map[contract.EventKind]Handler
	observer Observer
	logger   zerolog.Logger
}

// NewDispatcher binds handlers to a ledger. observer may be nil.
func NewDispatcher(l *Ledger, observer Observer, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		ledger:   l,
		handlers: make(map[contract.EventKind]Handler),
		observer: observer,
		logger:   logger.With().Str("component", "ledger").Logger(),
	}
}

// On registers the handler for kind, replacing any previous one.
func (d *Dispatcher) On(kind contract.EventKind, h Handler) *Dispatcher {
	d.handlers[kind] = h
	return d
}

// Dispatch runs the side effect for ev at most once per transaction hash.
// Duplicates and removed logs are dropped silently. It reports whether the
// handler ran.
func (d *Dispatcher) Dispatch(ctx context.Context, ev contract.Event) (bool, error) {
	log := d.logger.With().Str("event", string(ev.Kind)).Str("tx", ev.TxHash.Hex()).Logger()

	if ev.Removed {
		log.Debug().Msg("ignoring removed log")
		return false, nil
	}
	if !d.ledger.Admit(ev.TxHash.Hex()) {
		log.Debug().Msg("duplicate delivery dropped")
		if d.observer != nil {
			d.observer.EventDuplicate(ev.Kind)
		}
		return false, nil
	}
	if d.observer != nil {
		d.observer.EventAdmitted(ev.Kind)
	}

	h, ok := d.handlers[ev.Kind]
	if !ok {
		log.Warn().Msg("no handler registered")
		return false, nil
	}
	log.Info().Uint64("block", ev.BlockNumber).Int("admitted", d.ledger.Len()).Msg("confirmation event received")
	return true, h(ctx, ev)
}
