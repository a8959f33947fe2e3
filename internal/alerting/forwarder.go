package alerting

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Forwarder queues panel alerts and delivers them to a notifier at a bounded
// rate. Enqueue never blocks; alerts arriving while the queue is full are
// dropped and logged.
type Forwarder struct {
	notifier Notifier
	limiter  *rate.Limiter
	queue    chan Notification
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewForwarder builds a forwarder. minInterval <= 0 disables throttling.
func NewForwarder(notifier Notifier, minInterval time.Duration, queueSize int, logger zerolog.Logger) *Forwarder {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Forwarder{
		notifier: notifier,
		limiter:  rate.NewLimiter(limit, 1),
		queue:    make(chan Notification, queueSize),
		timeout:  10 * time.Second,
		logger:   logger.With().Str("component", "alert_forwarder").Logger(),
	}
}

// Enqueue schedules note for delivery and reports whether it was accepted.
func (f *Forwarder) Enqueue(note Notification) bool {
	select {
	case f.queue <- note:
		return true
	default:
		f.logger.Warn().Str("message", note.Message).Msg("alert queue full; dropping")
		return false
	}
}

// Run delivers queued alerts until ctx is done.
func (f *Forwarder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case note := <-f.queue:
			if err := f.limiter.Wait(ctx); err != nil {
				return nil
			}
			f.deliver(ctx, note)
		}
	}
}

func (f *Forwarder) deliver(ctx context.Context, note Notification) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	if err := f.notifier.Notify(ctx, note); err != nil {
		f.logger.Error().Err(err).Str("message", note.Message).Msg("alert delivery failed")
	}
}
