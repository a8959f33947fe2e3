package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

var (
	simulateMessage string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Send a test alert through the configured channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(simulateMessage) == "" {
			return errors.New("--message must not be empty")
		}
		return getApp().SimulateAlert(cmd.Context(), simulateMessage)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateMessage, "message", "Test alert from the oracle panel", "Alert text")
}
