package app

import (
	"context"
	"errors"
	"time"

	"oracle-panel/internal/alerting"
)

// SimulateAlert sends one alert through the configured channel, bypassing the
// panel, to check delivery.
func (a *App) SimulateAlert(ctx context.Context, message string) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting not enabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}

	return notifier.Notify(ctx, alerting.Notification{
		At:       time.Now().UTC(),
		Message:  message,
		Contract: a.Config.Ethereum.ContractAddress,
	})
}
