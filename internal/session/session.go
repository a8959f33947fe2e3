package session

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"oracle-panel/internal/access"
	"oracle-panel/internal/contract"
	"oracle-panel/internal/display"
	"oracle-panel/internal/ledger"
	"oracle-panel/internal/mirror"
	"oracle-panel/internal/storage"
	"oracle-panel/internal/submitter"
)

// Status line messages.
const (
	StatusLoaded     = "information updated"
	StatusNewAccount = "new account detected, reloading"
	StatusPaused     = "contract paused"
	StatusUnpaused   = "contract unpaused"
)

// Session binds the panel to one account. Everything it owns is discarded
// when the account changes; nothing is carried into the next session.
type Session struct {
	ID        uuid.UUID
	Account   common.Address
	Network   *big.Int
	StartedAt time.Time

	board      *display.Board
	loader     *mirror.Loader
	gate       *access.Controller
	ledger     *ledger.Ledger
	dispatcher *ledger.Dispatcher
	submitter  *submitter.Submitter
	audit      storage.ConfirmationStore
	mirror     *mirror.Mirror

	sub    ethereum.Subscription
	cancel context.CancelFunc
	logger zerolog.Logger
}

// Mirror returns the current snapshot. Callers hold the manager lock.
func (s *Session) Mirror() *mirror.Mirror {
	return s.mirror
}

// Gate returns the access controller of this session.
func (s *Session) Gate() *access.Controller {
	return s.gate
}

// Submitter returns the submitter bound to this session.
func (s *Session) Submitter() *submitter.Submitter {
	return s.submitter
}

// Ledger returns the event ledger of this session.
func (s *Session) Ledger() *ledger.Ledger {
	return s.ledger
}

// Reload reads the whole mirror again and swaps it in. Sections that failed
// keep their cached values; the error reports them.
func (s *Session) Reload(ctx context.Context) error {
	next, err := s.loader.LoadAll(ctx, s.mirror)
	s.swap(next)
	s.board.ShowMirror(next)
	if err != nil {
		s.board.SetStatus(err.Error())
		return err
	}
	s.board.SetStatus(StatusLoaded)
	return nil
}

// RefreshStatus reloads only the status counters.
func (s *Session) RefreshStatus(ctx context.Context) error {
	next, err := s.loader.LoadStatus(ctx, s.mirror)
	s.swap(next)
	if err != nil {
		return err
	}
	s.board.ShowStatus(next.Status)
	return nil
}

// swap installs next after stamping the access flags the controller owns.
func (s *Session) swap(next *mirror.Mirror) {
	next.Owner = s.gate.Owner()
	next.IsAdmin = s.gate.IsAdmin()
	next.IsPaused = s.gate.Paused()
	s.mirror = next
}

func (s *Session) stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
}

// handlers binds the side effect of every event kind to this session.
func (s *Session) handlers(d *ledger.Dispatcher) {
	confirmed := func(label string) ledger.Handler {
		return func(ctx context.Context, ev contract.Event) error {
			s.board.SetStatus(fmt.Sprintf("event %s received", label))
			s.board.Alert(fmt.Sprintf("Operation completed. Tx hash: %s", ev.TxHash.Hex()))
			return nil
		}
	}
	d.On(contract.EventPackagingFullUpdate, confirmed(string(contract.EventPackagingFullUpdate))).
		On(contract.EventOtherValuesFullUpdate, confirmed(string(contract.EventOtherValuesFullUpdate))).
		On(contract.EventEthPriceUpdate, confirmed(string(contract.EventEthPriceUpdate))).
		On(contract.EventNewPointsReward, func(ctx context.Context, ev contract.Event) error {
			err := s.Reload(ctx)
			s.board.Alert(fmt.Sprintf("Points recalculation completed. Tx hash: %s", ev.TxHash.Hex()))
			return err
		}).
		On(contract.EventLogNewProvableQuery, func(ctx context.Context, ev contract.Event) error {
			s.board.SetStatus(fmt.Sprintf("event %s: %s", contract.EventLogNewProvableQuery, ev.Description))
			return nil
		}).
		On(contract.EventPaused, s.pauseChanged("paused", StatusPaused)).
		On(contract.EventUnpaused, s.pauseChanged("unpaused", StatusUnpaused))
}

func (s *Session) pauseChanged(state, status string) ledger.Handler {
	return func(ctx context.Context, ev contract.Event) error {
		s.board.Alert(fmt.Sprintf("The contract was %s. Tx hash: %s", state, ev.TxHash.Hex()))
		s.board.SetStatus(status)
		if _, err := s.gate.RefreshPaused(ctx); err != nil {
			return err
		}
		next := *s.mirror
		s.swap(&next)
		return nil
	}
}

// handle runs one delivered event through the ledger and records admitted
// confirmations. Callers hold the manager lock.
func (s *Session) handle(ctx context.Context, ev contract.Event) {
	ran, err := s.dispatcher.Dispatch(ctx, ev)
	if err != nil {
		s.logger.Error().Err(err).Str("event", string(ev.Kind)).Msg("event side effect failed")
	}
	if !ran || s.audit == nil {
		return
	}

	conf := storage.Confirmation{
		TxHash:      ev.TxHash.Hex(),
		Kind:        string(ev.Kind),
		BlockNumber: int64(ev.BlockNumber),
		SessionID:   s.ID,
	}
	if ev.Description != "" {
		desc := ev.Description
		conf.Description = &desc
	}
	if err := s.audit.RecordConfirmation(ctx, conf); err != nil {
		s.logger.Warn().Err(err).Msg("audit confirmation failed")
	}
}
