package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"oracle-panel/internal/contract"
	"oracle-panel/internal/ledger"
	"oracle-panel/internal/storage"
)

// PastEventReader reads historical contract events.
type PastEventReader interface {
	LatestBlock(ctx context.Context) (uint64, error)
	PastEvents(ctx context.Context, from, to, window uint64) ([]contract.Event, error)
}

// Backfill records confirmations for events emitted in a past block range.
// Rows carry a nil session id.
func (a *App) Backfill(ctx context.Context, opts BackfillOptions) error {
	client, err := a.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	var store storage.ConfirmationStore
	if opts.DryRun {
		a.Logger.Warn().Msg("backfill dry-run: nothing will be written")
	} else {
		s, closeStore, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		if s == nil {
			return errors.New("database.dsn not configured; cannot backfill")
		}
		if closeStore != nil {
			defer closeStore()
		}
		store = s
	}

	return a.backfill(ctx, client, store, opts)
}

func (a *App) backfill(ctx context.Context, src PastEventReader, store storage.ConfirmationStore, opts BackfillOptions) error {
	to := opts.ToBlock
	if to == 0 {
		head, err := src.LatestBlock(ctx)
		if err != nil {
			return err
		}
		to = head
	}
	if opts.FromBlock > to {
		return errors.New("backfill range is empty, check --from-block/--to-block")
	}

	events, err := src.PastEvents(ctx, opts.FromBlock, to, opts.Window)
	if err != nil {
		return err
	}

	seen := ledger.New()
	recorded, duplicates, failed := 0, 0, 0
	for _, ev := range events {
		if ev.Removed || !seen.Admit(string(ev.Kind)+":"+ev.TxHash.Hex()) {
			duplicates++
			continue
		}
		if store == nil {
			a.Logger.Info().Str("kind", string(ev.Kind)).Str("tx", ev.TxHash.Hex()).Uint64("block", ev.BlockNumber).Msg("would record confirmation")
			recorded++
			continue
		}

		conf := storage.Confirmation{
			TxHash:      ev.TxHash.Hex(),
			Kind:        string(ev.Kind),
			BlockNumber: int64(ev.BlockNumber),
			SessionID:   uuid.Nil,
			ReceivedAt:  time.Now().UTC(),
		}
		if ev.Description != "" {
			desc := ev.Description
			conf.Description = &desc
		}
		if err := store.RecordConfirmation(ctx, conf); err != nil {
			failed++
			a.Logger.Error().Err(err).Str("tx", conf.TxHash).Msg("backfill insert failed")
			continue
		}
		recorded++
	}

	a.Logger.Info().
		Uint64("from_block", opts.FromBlock).
		Uint64("to_block", to).
		Int("recorded", recorded).
		Int("duplicates", duplicates).
		Int("failed", failed).
		Msg("backfill complete")
	if failed > 0 {
		return errors.New("some confirmations failed to backfill, check the logs")
	}
	return nil
}
