package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/run"
	"github.com/rs/zerolog"

	"oracle-panel/internal/alerting"
	"oracle-panel/internal/config"
	"oracle-panel/internal/contract"
	"oracle-panel/internal/display"
	"oracle-panel/internal/metrics"
	"oracle-panel/internal/panel"
	"oracle-panel/internal/session"
	"oracle-panel/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) dial(ctx context.Context) (*contract.Client, error) {
	eth := a.Config.Ethereum
	return contract.Dial(ctx, contract.Options{
		RPCURL:          eth.RPCURL,
		WSURL:           eth.WSURL,
		ContractAddress: eth.ContractAddress,
		PrivateKey:      eth.PrivateKey,
		ChainID:         eth.ChainID,
		Timeout:         eth.RequestTimeout,
		PollInterval:    a.Config.Events.PollInterval,
		ReorgLag:        a.Config.Events.FromBlockLag,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if !a.Config.Auditing() {
		return nil, nil, nil
	}

	store, err := storage.Open(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

// newManager wires a session manager. A nil store leaves auditing off.
func (a *App) newManager(oracle contract.Oracle, board *display.Board, store *storage.Store, meter session.Meter) *session.Manager {
	opts := session.Options{
		Oracle:      oracle,
		Board:       board,
		EventBuffer: a.Config.Events.BufferSize,
		Logger:      a.Logger,
	}
	if store != nil {
		opts.Audit = store
	}
	if meter != nil {
		opts.Meter = meter
	}
	return session.NewManager(opts)
}

// Run keeps a session open for the active account, follows account changes
// and serves the panel until interrupted.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := a.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; audit disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	meter := metrics.New()
	board := display.NewBoard(a.Logger)
	manager := a.newManager(client, board, store, meter)
	defer manager.Close()

	watcher := session.NewWatcher(manager, board, meter, a.Config.Session.AlertEvery, a.Logger)
	feed := session.NewAccountFeed(client, a.Config.Session.AccountPollInterval, a.Logger)

	srv := panel.New(panel.Options{
		Addr:            a.Config.Panel.ListenAddr,
		Manager:         manager,
		Board:           board,
		Metrics:         meter.Handler(),
		ShutdownTimeout: a.Config.Panel.ShutdownTimeout,
		Logger:          a.Logger,
	})

	var group run.Group
	group.Add(actor(ctx, srv.Run))
	group.Add(actor(ctx, func(ctx context.Context) error {
		return feed.Run(ctx, watcher.Notify)
	}))

	if a.Config.Alerting.Enabled {
		if notifier := a.newNotifier(); notifier != nil {
			fwd := alerting.NewForwarder(notifier, a.Config.Alerting.MinInterval, a.Config.Alerting.QueueSize, a.Logger)
			unsubscribe := board.Subscribe(a.alertRelay(fwd, board, manager))
			defer unsubscribe()
			group.Add(actor(ctx, fwd.Run))
		} else {
			a.Logger.Warn().Msg("alerting enabled but no channel configured")
		}
	}

	a.Logger.Info().Str("contract", client.Address().Hex()).Msg("starting oracle panel")
	err = group.Run()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("panel terminated with error")
		return err
	}

	a.Logger.Info().Msg("oracle panel stopped")
	return nil
}

// alertRelay forwards every user alert raised on the board.
func (a *App) alertRelay(fwd *alerting.Forwarder, board *display.Board, manager *session.Manager) display.Listener {
	contractAddr := a.Config.Ethereum.ContractAddress
	return func(u display.Update) {
		if u.Type != display.UpdateAlert {
			return
		}
		note := alerting.Notification{
			At:       u.At,
			Message:  u.Value,
			Contract: contractAddr,
			Account:  board.Value(display.FieldAccount),
		}
		if id := manager.ActiveID(); id != uuid.Nil {
			note.SessionID = id.String()
		}
		fwd.Enqueue(note)
	}
}

// actor adapts a context-driven loop to a run.Group member.
func actor(ctx context.Context, fn func(ctx context.Context) error) (func() error, func(error)) {
	ctx, cancel := context.WithCancelCause(ctx)
	return func() error {
			if err := fn(ctx); err != nil {
				return fmt.Errorf("actor: %w", err)
			}
			return nil
		}, func(err error) {
			cancel(err)
		}
}

// ActionOptions configure a one-shot command.
type ActionOptions struct {
	Op      string
	Inputs  map[string]string
	Account string
}

// HistoryOptions configure the history command.
type HistoryOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting admitted confirmations.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// BackfillOptions configure the confirmation backfill job.
type BackfillOptions struct {
	FromBlock uint64
	ToBlock   uint64
	Window    uint64
	DryRun    bool
}
