package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"oracle-panel/internal/app"
)

var exportFlags struct {
	from, to  string
	png, csv  string
	maxPoints int
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write audited confirmations to a CSV file and/or a per-kind PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := parseWhen("--from", exportFlags.from)
		if err != nil {
			return err
		}
		to, err := parseWhen("--to", exportFlags.to)
		if err != nil {
			return err
		}

		return getApp().Export(cmd.Context(), app.ExportOptions{
			From:      from,
			To:        to,
			PNGPath:   exportFlags.png,
			CSVPath:   exportFlags.csv,
			MaxPoints: exportFlags.maxPoints,
		})
	},
}

// parseWhen accepts RFC3339 timestamps or bare dates (midnight UTC). Empty
// input yields nil.
func parseWhen(flag, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if ts, err := time.Parse(layout, value); err == nil {
			return &ts, nil
		}
	}
	return nil, fmt.Errorf("%s: %q is neither RFC3339 nor YYYY-MM-DD", flag, value)
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportFlags.from, "from", "", "Window start, inclusive (default: 7 days before --to)")
	f.StringVar(&exportFlags.to, "to", "", "Window end, exclusive (default: now)")
	f.StringVar(&exportFlags.png, "png", "", "Chart output path")
	f.StringVar(&exportFlags.csv, "csv", "", "CSV output path")
	f.IntVar(&exportFlags.maxPoints, "max-points", 0, "CSV row cap, 0 uses export.max_data_points")
}
