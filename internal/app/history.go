package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"oracle-panel/internal/storage"
)

// History prints the most recent audited submissions.
func (a *App) History(ctx context.Context, opts HistoryOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show history")
	}
	if closeStore != nil {
		defer closeStore()
	}

	subs, err := store.ListRecentSubmissions(ctx, opts.Limit)
	if err != nil {
		return err
	}
	renderHistory(os.Stdout, subs)
	return nil
}

func renderHistory(out io.Writer, subs []storage.Submission) {
	if len(subs) == 0 {
		fmt.Fprintln(out, "no submissions found")
		return
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tOperation\tAccount\tTx\tSession\tPayload")
	for _, sub := range subs {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\n",
			sub.CreatedAt.UTC().Format(time.RFC3339),
			sub.Op,
			sub.Account,
			sub.TxHash,
			sub.SessionID.String(),
			sanitizeInline(string(sub.Payload)),
		)
	}
	writer.Flush()
}
