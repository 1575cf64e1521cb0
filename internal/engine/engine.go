package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/resub/internal/api"
	"github.com/roach88/resub/internal/ledger"
)

// Options holds the run configuration the engine consumes. Constructed once
// at process start; the engine never mutates it.
type Options struct {
	Criteria api.SearchCriteria

	// Predicate is the caller-supplied filter. Nil accepts everything.
	Predicate Predicate

	// PagePolicy decides whether a malformed page is reported or fatal.
	PagePolicy PagePolicy

	// OnRejection decides whether an application-level rejection continues
	// or aborts.
	OnRejection RejectionPolicy

	// SkipLedger excludes invocations already present in the ledger before
	// the integrity check, making a rerun after a crash safe without
	// adjusting the date window. Empty ledger makes this a no-op.
	SkipLedger bool

	// SnapshotPath is where the audit snapshot of the working set is written
	// before any mutation. Empty disables the snapshot (tests only).
	SnapshotPath string
}

// Report summarizes one run.
type Report struct {
	RunID       string    `json:"run_id,omitempty"`
	Planned     int       `json:"planned"`
	Resubmitted int       `json:"resubmitted"`
	Rejected    int       `json:"rejected"`
	Skipped     int       `json:"skipped"`
	Anomalies   []Anomaly `json:"anomalies,omitempty"`
}

// Engine sequences the full pipeline for one run.
type Engine struct {
	fetcher     PageFetcher
	resubmitter Resubmitter
	ledger      Ledger
	recorder    RunRecorder
	logger      *slog.Logger
	opts        Options
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithRecorder attaches a run journal.
func WithRecorder(r RunRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine. fetcher, resubmitter and led are required; the
// journal recorder is optional.
func New(fetcher PageFetcher, resubmitter Resubmitter, led Ledger, opts Options, extra ...Option) *Engine {
	e := &Engine{
		fetcher:     fetcher,
		resubmitter: resubmitter,
		ledger:      led,
		logger:      slog.Default(),
		opts:        opts,
	}
	for _, o := range extra {
		o(e)
	}
	return e
}

// Plan produces the validated working set without mutating anything:
// paginate, flatten, order, filter, ledger-skip, integrity check, audit
// snapshot. Both the plan command and Run go through here, so a dry run sees
// exactly what a live run would do.
func (e *Engine) Plan(ctx context.Context) ([]api.Execution, *Report, error) {
	report := &Report{}

	paginator := NewPaginator(e.fetcher, e.opts.Criteria, e.opts.PagePolicy, e.logger)
	executions, anomalies, err := paginator.Collect(ctx)
	if err != nil {
		return nil, report, err
	}
	report.Anomalies = anomalies

	Order(executions)
	executions = Filter(executions, e.opts.Predicate)

	if e.opts.SkipLedger && e.ledger != nil && e.ledger.Len() > 0 {
		kept := executions[:0]
		for _, ex := range executions {
			if e.ledger.Contains(ex.InvocationUUID) {
				report.Skipped++
				continue
			}
			kept = append(kept, ex)
		}
		executions = kept
		if report.Skipped > 0 {
			e.logger.Info("skipping executions already in ledger", "skipped", report.Skipped)
		}
	}

	if err := CheckIntegrity(executions); err != nil {
		return nil, report, err
	}
	report.Planned = len(executions)

	if e.opts.SnapshotPath != "" {
		if err := ledger.WriteSnapshot(e.opts.SnapshotPath, executions); err != nil {
			return nil, report, err
		}
		e.logger.Info("audit snapshot written", "path", e.opts.SnapshotPath, "records", len(executions))
	}

	return executions, report, nil
}

// Run executes the full pipeline and returns the final report. The report is
// valid even when err is non-nil: it reflects the work confirmed before the
// abort, matching what the ledger holds on disk.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	executions, report, err := e.Plan(ctx)
	if err != nil {
		return report, err
	}

	runID := e.beginRun(ctx, len(executions))
	report.RunID = runID

	if err := e.resubmitAll(ctx, runID, executions, report); err != nil {
		e.finishRun(ctx, runID, "aborted", report)
		return report, err
	}

	e.finishRun(ctx, runID, "completed", report)
	e.logger.Info("run complete",
		"planned", report.Planned,
		"resubmitted", report.Resubmitted,
		"rejected", report.Rejected,
		"skipped", report.Skipped)
	return report, nil
}

func (e *Engine) beginRun(ctx context.Context, planned int) string {
	if e.recorder == nil {
		return ""
	}
	runID, err := e.recorder.BeginRun(ctx, e.opts.Criteria, planned)
	if err != nil {
		e.logger.Warn("journal begin failed", "error", err)
		return ""
	}
	return runID
}

func (e *Engine) finishRun(ctx context.Context, runID, status string, report *Report) {
	if e.recorder == nil || runID == "" {
		return
	}
	if err := e.recorder.FinishRun(ctx, runID, status, report.Resubmitted, report.Rejected); err != nil {
		e.logger.Warn("journal finish failed", "error", err)
	}
}
