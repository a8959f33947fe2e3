package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"oracle-panel/internal/access"
	"oracle-panel/internal/contract"
	"oracle-panel/internal/display"
	"oracle-panel/internal/fault"
	"oracle-panel/internal/ledger"
	"oracle-panel/internal/mirror"
	"oracle-panel/internal/storage"
	"oracle-panel/internal/submitter"
)

// ErrNoSession is returned when an operation arrives before any session started.
var ErrNoSession error = &fault.Error{Kind: fault.KindConnection, Msg: "no active session"}

const statusConnectFailed = "could not connect to contract or chain"

// Audit persists submissions and confirmations.
type Audit interface {
	submitter.Audit
	storage.ConfirmationStore
}

// Meter receives session level counters.
type Meter interface {
	ledger.Observer
	submitter.Meter
	SessionStarted()
	ReadFailed(section string)
	AccountAlert()
}

// Options wires a Manager. Audit and Meter are optional.
type Options struct {
	Oracle      contract.Oracle
	Board       *display.Board
	Audit       Audit
	Meter       Meter
	EventBuffer int
	Logger      zerolog.Logger
}

// Manager owns the current session. Its lock serializes every foreground
// operation, every event side effect and every restart, so no operation runs
// against a half-loaded session.
type Manager struct {
	mu      sync.Mutex
	opts    Options
	account *common.Address
	current *Session
	active  atomic.Value
	logger  zerolog.Logger
}

// NewManager constructs a Manager with no session.
func NewManager(opts Options) *Manager {
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}
	return &Manager{
		opts:   opts,
		logger: opts.Logger.With().Str("component", "session").Logger(),
	}
}

// Start tears down any running session and starts one for account.
func (m *Manager) Start(ctx context.Context, account common.Address) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startLocked(ctx, account)
}

// Switch starts a new session when account differs from the last account a
// start was attempted for. It reports whether a restart happened.
func (m *Manager) Switch(ctx context.Context, account common.Address) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.account != nil && *m.account == account {
		return false, nil
	}
	if m.account != nil {
		m.logger.Info().Str("from", m.account.Hex()).Str("to", account.Hex()).Msg("account changed")
		m.opts.Board.SetStatus(StatusNewAccount)
	}
	_, err := m.startLocked(ctx, account)
	return true, err
}

// Restart runs the full start sequence again for the current account.
func (m *Manager) Restart(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.account == nil {
		return ErrNoSession
	}
	_, err := m.startLocked(ctx, *m.account)
	return err
}

// Do runs fn against the current session while holding the manager lock.
func (m *Manager) Do(ctx context.Context, fn func(ctx context.Context, s *Session) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ErrNoSession
	}
	return fn(ctx, m.current)
}

// Current returns the running session, or nil.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// ActiveID returns the id of the running session without taking the manager
// lock, or uuid.Nil. Display listeners use it.
func (m *Manager) ActiveID() uuid.UUID {
	id, _ := m.active.Load().(uuid.UUID)
	return id
}

// Close ends the running session. It does not wait for the event pump.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.stop()
		m.current = nil
		m.active.Store(uuid.Nil)
	}
}

func (m *Manager) startLocked(ctx context.Context, account common.Address) (*Session, error) {
	if m.current != nil {
		m.current.stop()
		m.current = nil
		m.active.Store(uuid.Nil)
	}
	acct := account
	m.account = &acct

	id := uuid.New()
	log := m.logger.With().Str("session_id", id.String()).Str("account", account.Hex()).Logger()
	oracle, board := m.opts.Oracle, m.opts.Board

	network, err := oracle.NetworkID(ctx)
	if err != nil {
		return nil, m.failStart(log, fault.Connection(statusConnectFailed, err))
	}
	deployed, err := oracle.Deployed(ctx)
	if err != nil {
		return nil, m.failStart(log, fault.Connection(statusConnectFailed, err))
	}
	if !deployed {
		msg := fmt.Sprintf("no contract deployed at %s on network %s", oracle.Address().Hex(), network)
		return nil, m.failStart(log, fault.Connection(msg, nil))
	}

	board.SetAll(map[string]string{
		display.FieldAccount:         account.Hex(),
		display.FieldNetwork:         network.String(),
		display.FieldContractAddress: oracle.Address().Hex(),
	})

	gate := access.NewController(oracle, board, log)
	if err := gate.Refresh(ctx, account); err != nil {
		return nil, m.failStart(log, fault.Connection(statusConnectFailed, err))
	}
	if _, err := gate.RefreshPaused(ctx); err != nil {
		return nil, m.failStart(log, fault.Connection(statusConnectFailed, err))
	}
	board.Set(display.FieldOwner, gate.Owner().Hex())

	s := &Session{
		ID:        id,
		Account:   account,
		Network:   network,
		StartedAt: time.Now().UTC(),
		board:     board,
		loader:    mirror.NewLoader(oracle, log),
		gate:      gate,
		ledger:    ledger.New(),
		mirror:    &mirror.Mirror{},
		logger:    log,
	}
	if m.opts.Audit != nil {
		s.audit = m.opts.Audit
	}

	if err := s.Reload(ctx); err != nil {
		for _, section := range mirror.FailedSections(err) {
			if m.opts.Meter != nil {
				m.opts.Meter.ReadFailed(section)
			}
		}
	}

	var observer ledger.Observer
	if m.opts.Meter != nil {
		observer = m.opts.Meter
	}
	s.dispatcher = ledger.NewDispatcher(s.ledger, observer, log)
	s.handlers(s.dispatcher)

	sessCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sink := make(chan contract.Event, m.opts.EventBuffer)
	sub, err := oracle.SubscribeEvents(sessCtx, sink)
	if err != nil {
		cancel()
		return nil, m.failStart(log, fault.Connection("could not subscribe to contract events", err))
	}
	s.sub = sub
	s.cancel = cancel

	cfg := submitter.Config{
		Writer:    oracle,
		Gate:      gate,
		Surface:   board,
		State:     s,
		Account:   account,
		SessionID: id,
		Logger:    log,
	}
	if m.opts.Audit != nil {
		cfg.Audit = m.opts.Audit
	}
	if m.opts.Meter != nil {
		cfg.Meter = m.opts.Meter
		m.opts.Meter.SessionStarted()
	}
	s.submitter = submitter.New(cfg)

	m.current = s
	m.active.Store(id)
	go m.pump(sessCtx, s, sink)

	log.Info().Str("network", network.String()).Bool("admin", gate.IsAdmin()).Bool("paused", gate.Paused()).Msg("session started")
	return s, nil
}

func (m *Manager) failStart(log zerolog.Logger, err error) error {
	log.Error().Err(err).Msg("session start failed")
	m.opts.Board.SetStatus(err.Error())
	return err
}

// pump feeds delivered events to the session until it ends.
func (m *Manager) pump(ctx context.Context, s *Session, sink <-chan contract.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-s.sub.Err():
			if ok && err != nil {
				s.logger.Error().Err(err).Msg("event subscription ended")
				m.opts.Board.Alert(fmt.Sprintf("contract event subscription lost: %v", err))
			}
			return
		case ev := <-sink:
			m.deliver(ctx, s, ev)
		}
	}
}

// deliver runs ev for s unless s is no longer the current session.
func (m *Manager) deliver(ctx context.Context, s *Session, ev contract.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != s {
		s.logger.Debug().Str("event", string(ev.Kind)).Str("tx", ev.TxHash.Hex()).Msg("dropping event for ended session")
		return
	}
	s.handle(ctx, ev)
}
