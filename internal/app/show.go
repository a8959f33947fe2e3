package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"oracle-panel/internal/contract"
	"oracle-panel/internal/display"
	"oracle-panel/internal/session"
	"oracle-panel/internal/storage"
	"oracle-panel/internal/submitter"
)

// OpShow only loads and prints the panel.
const OpShow = "show"

var operations = map[string]func(*submitter.Submitter, context.Context) (submitter.Result, error){
	submitter.OpUpdatePacks:       (*submitter.Submitter).UpdatePacks,
	submitter.OpUpdateEthRange:    (*submitter.Submitter).UpdateEthRange,
	submitter.OpUpdateOtherValues: (*submitter.Submitter).UpdateOtherValues,
	submitter.OpAddAdmin:          (*submitter.Submitter).AddAdmin,
	submitter.OpNextProcess:       (*submitter.Submitter).NextProcess,
	submitter.OpTogglePause:       (*submitter.Submitter).TogglePause,
}

// Perform starts a session, runs one operation and prints the panel.
func (a *App) Perform(ctx context.Context, opts ActionOptions) error {
	client, err := a.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	return a.perform(ctx, client, store, opts, os.Stdout)
}

func (a *App) perform(ctx context.Context, oracle contract.Oracle, store *storage.Store, opts ActionOptions, out io.Writer) error {
	run, ok := operations[opts.Op]
	if !ok && opts.Op != OpShow {
		return fmt.Errorf("unknown operation %q", opts.Op)
	}

	account, err := resolveAccount(ctx, oracle, opts.Account)
	if err != nil {
		return err
	}

	board := display.NewBoard(a.Logger)
	manager := a.newManager(oracle, board, store, nil)
	defer manager.Close()

	if _, err := manager.Start(ctx, account); err != nil {
		return err
	}

	var res submitter.Result
	if run != nil {
		err = manager.Do(ctx, func(ctx context.Context, s *session.Session) error {
			for field, value := range opts.Inputs {
				board.Set(field, value)
			}
			var runErr error
			res, runErr = run(s.Submitter(), ctx)
			return runErr
		})
	}

	renderBoard(out, board.Snapshot())
	if res.TxHash != "" {
		fmt.Fprintf(out, "\ntransaction: %s\n", res.TxHash)
	}
	return err
}

// resolveAccount picks the explicit account or the node's first one.
func resolveAccount(ctx context.Context, oracle contract.Chain, explicit string) (common.Address, error) {
	if explicit != "" {
		if !common.IsHexAddress(explicit) {
			return common.Address{}, fmt.Errorf("invalid account %q", explicit)
		}
		return common.HexToAddress(explicit), nil
	}
	accounts, err := oracle.Accounts(ctx)
	if err != nil {
		return common.Address{}, fmt.Errorf("list accounts: %w", err)
	}
	if len(accounts) == 0 {
		return common.Address{}, errors.New(session.AlertWalletRequired)
	}
	return accounts[0], nil
}

func renderBoard(out io.Writer, state display.State) {
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	shown := make(map[string]struct{})
	for _, field := range display.Layout(contract.Tiers) {
		shown[field] = struct{}{}
		if v, ok := state.Fields[field]; ok {
			fmt.Fprintf(writer, "%s\t%s\n", field, v)
		}
	}

	var extra []string
	for field := range state.Fields {
		if _, ok := shown[field]; !ok && state.Fields[field] != "" {
			extra = append(extra, field)
		}
	}
	sort.Strings(extra)
	for _, field := range extra {
		fmt.Fprintf(writer, "%s\t%s\n", field, state.Fields[field])
	}
	fmt.Fprintf(writer, "status\t%s\n", sanitizeInline(state.Status))
	writer.Flush()

	if len(state.Alerts) > 0 {
		fmt.Fprintln(out, "\nalerts:")
		for _, alert := range state.Alerts {
			fmt.Fprintf(out, "  %s  %s\n", alert.At.Format(time.RFC3339), sanitizeInline(alert.Value))
		}
	}
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
