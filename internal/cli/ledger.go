package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/resub/internal/config"
	"github.com/roach88/resub/internal/ledger"
)

// NewLedgerCommand creates the ledger command.
func NewLedgerCommand(rootOpts *RootOptions) *cobra.Command {
	var showAll bool

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the resubmission ledger",
		Long: `Print the invocation identifiers already confirmed resubmitted, in the
order they were resubmitted. Operators use this when planning a resume after
a crash or when auditing what a past run did.

Example:
  resub ledger -c resub.yaml
  resub ledger -c resub.yaml --all`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showLedger(rootOpts, cmd, showAll)
		},
	}

	cmd.Flags().BoolVar(&showAll, "all", false, "list every entry instead of the count")
	return cmd
}

func showLedger(opts *RootOptions, cmd *cobra.Command, showAll bool) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		wrapped := WrapExitError(ExitCommandError, "failed to load config", err)
		formatter.Error(ErrCodeConfig, wrapped.Error(), nil)
		return wrapped
	}

	led, err := ledger.Open(cfg.Run.LedgerFile)
	if err != nil {
		wrapped := WrapExitError(ExitCommandError, "failed to open ledger", err)
		formatter.Error(ErrCodeArtifact, wrapped.Error(), nil)
		return wrapped
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{
			"path":    led.Path(),
			"count":   led.Len(),
			"entries": led.Entries(),
		})
	}

	fmt.Fprintf(formatter.Writer, "Ledger: %s (%d entries)\n", led.Path(), led.Len())
	if showAll {
		for i, id := range led.Entries() {
			fmt.Fprintf(formatter.Writer, "  %4d  %s\n", i+1, id)
		}
	}
	return nil
}
