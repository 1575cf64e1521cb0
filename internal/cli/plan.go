package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/resub/internal/config"
	"github.com/roach88/resub/internal/engine"
)

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Build and snapshot the working set without resubmitting",
		Long: `Run the search, ordering, filtering, and integrity stages and write the
audit snapshot, but issue no mutations. The snapshot shows exactly what a
subsequent 'resub run' with the same config would resubmit.

Example:
  resub plan -c resub.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResubmission(rootOpts, cmd, true)
		},
	}
	return cmd
}

func outputPlan(f *OutputFormatter, cfg *config.Config, report *engine.Report, planned int) error {
	if f.Format == "json" {
		return f.Success(report)
	}

	fmt.Fprintln(f.Writer, "Plan complete (no mutations issued)")
	fmt.Fprintf(f.Writer, "  Would resubmit: %d\n", planned)
	fmt.Fprintf(f.Writer, "  Skipped:        %d\n", report.Skipped)
	fmt.Fprintf(f.Writer, "  Anomalies:      %d\n", len(report.Anomalies))
	fmt.Fprintf(f.Writer, "  Snapshot:       %s\n", cfg.Run.SnapshotFile)
	return nil
}
