package session

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"oracle-panel/internal/scheduler"
)

// AlertWalletRequired is raised while no account is available.
const AlertWalletRequired = "wallet connection required"

// Alerter shows a user alert.
type Alerter interface {
	Alert(msg string)
}

// Watcher reacts to active account notifications. It is driven by a single
// feed and is not safe for concurrent use.
type Watcher struct {
	manager *Manager
	alerts  Alerter
	meter   Meter
	every   int
	missing int
	logger  zerolog.Logger
}

// NewWatcher builds a watcher raising the wallet alert on the first of every
// `every` notifications without an account. meter may be nil.
func NewWatcher(manager *Manager, alerts Alerter, meter Meter, every int, logger zerolog.Logger) *Watcher {
	if every <= 0 {
		every = 5
	}
	return &Watcher{
		manager: manager,
		alerts:  alerts,
		meter:   meter,
		every:   every,
		logger:  logger.With().Str("component", "watcher").Logger(),
	}
}

// Notify handles one notification. A nil account means none is available.
func (w *Watcher) Notify(ctx context.Context, account *common.Address) error {
	if account == nil {
		if w.missing == 0 {
			w.alerts.Alert(AlertWalletRequired)
			if w.meter != nil {
				w.meter.AccountAlert()
			}
		}
		w.missing = (w.missing + 1) % w.every
		return nil
	}

	restarted, err := w.manager.Switch(ctx, *account)
	if restarted {
		w.logger.Info().Str("account", account.Hex()).Err(err).Msg("session restarted for account")
	}
	return err
}

// AccountSource lists the active accounts, first one active.
type AccountSource interface {
	Accounts(ctx context.Context) ([]common.Address, error)
}

// AccountFeed polls the node for the active account and forwards every
// observation to a notify function.
type AccountFeed struct {
	src   AccountSource
	sched *scheduler.Scheduler
}

// NewAccountFeed polls src every interval, starting immediately.
func NewAccountFeed(src AccountSource, interval time.Duration, logger zerolog.Logger) *AccountFeed {
	return &AccountFeed{
		src: src,
		sched: scheduler.New(scheduler.Options{
			Name:      "account_feed",
			Interval:  interval,
			Immediate: true,
		}, logger),
	}
}

// Run blocks until ctx is done.
func (f *AccountFeed) Run(ctx context.Context, notify func(ctx context.Context, account *common.Address) error) error {
	return f.sched.Run(ctx, func(ctx context.Context, _ time.Time) error {
		accounts, err := f.src.Accounts(ctx)
		if err != nil {
			return fmt.Errorf("poll accounts: %w", err)
		}
		var active *common.Address
		if len(accounts) > 0 {
			a := accounts[0]
			active = &a
		}
		return notify(ctx, active)
	})
}
