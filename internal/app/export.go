package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"oracle-panel/internal/storage"
)

const defaultExportWindow = 7 * 24 * time.Hour

// Export renders admitted confirmations as CSV and/or a PNG chart of counts
// per event kind.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-defaultExportWindow)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	confs, err := store.ListConfirmationsBetween(ctx, from, to)
	if err != nil {
		return err
	}
	if len(confs) == 0 {
		a.Logger.Info().Msg("no confirmations found for export window")
		return nil
	}

	a.Logger.Info().Int("total", len(confs)).Msg("exporting confirmations")

	if opts.CSVPath != "" {
		rows := downsample(confs, opts.MaxPoints)
		if err := writeConfirmationsCSV(opts.CSVPath, rows); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeConfirmationsPNG(opts.PNGPath, confs); err != nil {
			return err
		}
	}

	return nil
}

func downsample(confs []storage.Confirmation, max int) []storage.Confirmation {
	if max <= 1 || len(confs) <= max {
		return confs
	}

	result := make([]storage.Confirmation, 0, max)
	step := float64(len(confs)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(confs) {
			idx = len(confs) - 1
		}
		result = append(result, confs[idx])
	}
	return result
}

func writeConfirmationsCSV(path string, confs []storage.Confirmation) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"received_at", "tx_hash", "kind", "block_number", "session_id", "description"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, conf := range confs {
		desc := ""
		if conf.Description != nil {
			desc = *conf.Description
		}
		record := []string{
			conf.ReceivedAt.UTC().Format(time.RFC3339),
			conf.TxHash,
			conf.Kind,
			strconv.FormatInt(conf.BlockNumber, 10),
			conf.SessionID.String(),
			desc,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// countByKind tallies confirmations per kind, sorted by kind.
func countByKind(confs []storage.Confirmation) []chart.Value {
	counts := make(map[string]int)
	for _, conf := range confs {
		counts[conf.Kind]++
	}
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	values := make([]chart.Value, 0, len(kinds))
	for _, kind := range kinds {
		values = append(values, chart.Value{Label: kind, Value: float64(counts[kind])})
	}
	return values
}

func writeConfirmationsPNG(path string, confs []storage.Confirmation) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	bars := countByKind(confs)
	top := 0.0
	for _, bar := range bars {
		top = math.Max(top, bar.Value)
	}

	graph := chart.BarChart{
		Title:    "Confirmations per event kind",
		Width:    1280,
		Height:   720,
		BarWidth: 60,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: top + 1},
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.0f")
			},
		},
		Bars: bars,
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
