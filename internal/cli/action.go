package cli

import (
	"github.com/spf13/cobra"

	"oracle-panel/internal/app"
	"oracle-panel/internal/display"
	"oracle-panel/internal/submitter"
)

type actionDef struct {
	use   string
	op    string
	short string
	// arg names the form field filled from the single positional argument.
	arg string
}

var actionDefs = []actionDef{
	{use: "show", op: app.OpShow, short: "Load the contract state and print the panel"},
	{use: "update-packs", op: submitter.OpUpdatePacks, short: "Submit packaging tier changes given with --set"},
	{use: "update-eth-range", op: submitter.OpUpdateEthRange, short: "Submit the ETH price corridor given with --set"},
	{use: "update-other-values", op: submitter.OpUpdateOtherValues, short: "Submit operational values given with --set"},
	{use: "add-admin <address>", op: submitter.OpAddAdmin, short: "Grant admin rights to an address", arg: display.FieldAddressAdmin},
	{use: "next-process", op: submitter.OpNextProcess, short: "Trigger the next oracle process"},
	{use: "pause", op: submitter.OpTogglePause, short: "Toggle the contract circuit breaker"},
}

func actionCmds() []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(actionDefs))
	for _, def := range actionDefs {
		cmds = append(cmds, newActionCmd(def))
	}
	return cmds
}

func newActionCmd(def actionDef) *cobra.Command {
	var (
		inputs  map[string]string
		account string
	)

	cmd := &cobra.Command{
		Use:   def.use,
		Short: def.short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := app.ActionOptions{
				Op:      def.op,
				Inputs:  make(map[string]string, len(inputs)+1),
				Account: account,
			}
			for field, value := range inputs {
				opts.Inputs[field] = value
			}
			if def.arg != "" {
				opts.Inputs[def.arg] = args[0]
			}
			return getApp().Perform(cmd.Context(), opts)
		},
	}
	if def.arg != "" {
		cmd.Args = cobra.ExactArgs(1)
	}

	cmd.Flags().StringVar(&account, "account", "", "Act as this account instead of the node's first account")
	if def.op != app.OpShow && def.arg == "" {
		cmd.Flags().StringToStringVar(&inputs, "set", nil, "Form inputs as field=value, e.g. --set price-min1=1.5")
	}
	return cmd
}
