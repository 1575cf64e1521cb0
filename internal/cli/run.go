package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/resub/internal/api"
	"github.com/roach88/resub/internal/config"
	"github.com/roach88/resub/internal/engine"
	"github.com/roach88/resub/internal/journal"
	"github.com/roach88/resub/internal/ledger"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Search and resubmit matching flow executions",
		Long: `Search the configured date window, build the validated working set, write
the audit snapshot, and resubmit every execution oldest-first. Each confirmed
resubmission is appended to the ledger and flushed before the next one is
issued, so an interrupted run resumes from the ledger.

Example:
  resub run -c resub.yaml
  resub run -c resub.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResubmission(rootOpts, cmd, false)
		},
	}
	return cmd
}

func runResubmission(opts *RootOptions, cmd *cobra.Command, planOnly bool) error {
	configureLogging(opts)
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	rt, err := buildRuntime(opts)
	if err != nil {
		formatter.Error(ErrCodeConfig, err.Error(), nil)
		return err
	}
	defer rt.Close()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	if planOnly {
		executions, report, err := rt.eng.Plan(ctx)
		if err != nil {
			formatter.Error(ClassifyError(err), err.Error(), nil)
			return WrapExitError(ExitFailure, "plan failed", err)
		}
		return outputPlan(formatter, rt.cfg, report, len(executions))
	}

	report, err := rt.eng.Run(ctx)
	if err != nil {
		formatter.Error(ClassifyError(err), err.Error(), report)
		return WrapExitError(ExitFailure, "run failed", err)
	}
	return outputReport(formatter, rt.cfg, rt.led, report)
}

// runtime bundles the collaborators one command invocation needs.
type runtime struct {
	cfg *config.Config
	eng *engine.Engine
	led *ledger.Ledger
	jnl *journal.Journal // nil unless run.journal_db is configured
}

func (r *runtime) Close() {
	if r.jnl != nil {
		if err := r.jnl.Close(); err != nil {
			slog.Error("error closing journal", "error", err)
		}
	}
}

// buildRuntime loads config and wires the engine. All failures here are
// command errors: nothing has touched the network yet.
func buildRuntime(opts *RootOptions) (*runtime, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	criteria, err := cfg.Criteria()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid search criteria", err)
	}

	cred, err := cfg.Credentials()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "missing credentials", err)
	}

	led, err := ledger.Open(cfg.Run.LedgerFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open ledger", err)
	}
	slog.Info("ledger loaded", "path", led.Path(), "entries", led.Len())

	httpClient := &http.Client{Timeout: cfg.Timeout()}
	auth := api.NewAuthenticator(httpClient, cfg.Portal.AuthURL, cred)
	tokens := api.NewCachingTokenSource(auth)
	client := api.NewClient(cfg.Portal.APIURL, tokens,
		api.WithHTTPClient(httpClient),
		api.WithTimeout(cfg.Timeout()),
	)

	engineOpts := engine.Options{
		Criteria:     criteria,
		Predicate:    buildPredicate(cfg),
		PagePolicy:   engine.PagePolicy(cfg.Run.PagePolicy),
		OnRejection:  engine.RejectionPolicy(cfg.Run.OnRejection),
		SkipLedger:   cfg.UseLedgerSkip(),
		SnapshotPath: cfg.Run.SnapshotFile,
	}

	var extras []engine.Option
	var jnl *journal.Journal
	if cfg.Run.JournalDB != "" {
		jnl, err = journal.Open(cfg.Run.JournalDB)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		extras = append(extras, engine.WithRecorder(jnl))
	}

	eng := engine.New(client, client, led, engineOpts, extras...)
	return &runtime{cfg: cfg, eng: eng, led: led, jnl: jnl}, nil
}

// buildPredicate composes the client-side filter from config.
func buildPredicate(cfg *config.Config) engine.Predicate {
	if cfg.Filter.DataTag == nil {
		return nil
	}
	return engine.HasDataTag(cfg.Filter.DataTag.Label, cfg.Filter.DataTag.Value)
}

// configureLogging sets up the default slog logger on stderr.
func configureLogging(opts *RootOptions) {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// signalContext derives a context cancelled by SIGINT/SIGTERM. Cancellation
// aborts the in-flight portal call; the ledger already holds every confirmed
// success, so interrupting is always safe.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, aborting after in-flight call", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

func outputReport(f *OutputFormatter, cfg *config.Config, led *ledger.Ledger, report *engine.Report) error {
	if f.Format == "json" {
		return f.Success(report)
	}

	fmt.Fprintln(f.Writer, "Resubmission complete")
	fmt.Fprintf(f.Writer, "  Planned:     %d\n", report.Planned)
	fmt.Fprintf(f.Writer, "  Resubmitted: %d\n", report.Resubmitted)
	fmt.Fprintf(f.Writer, "  Rejected:    %d\n", report.Rejected)
	fmt.Fprintf(f.Writer, "  Skipped:     %d\n", report.Skipped)
	fmt.Fprintf(f.Writer, "  Anomalies:   %d\n", len(report.Anomalies))
	fmt.Fprintf(f.Writer, "  Snapshot:    %s\n", cfg.Run.SnapshotFile)
	fmt.Fprintf(f.Writer, "  Ledger:      %s (%d total)\n", cfg.Run.LedgerFile, led.Len())
	if report.RunID != "" {
		fmt.Fprintf(f.Writer, "  Run ID:      %s\n", report.RunID)
	}
	return nil
}
