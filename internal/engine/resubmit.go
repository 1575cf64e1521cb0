package engine

import (
	"context"

	"github.com/roach88/resub/internal/api"
)

// Resubmitter invokes the mutating resubmit action for one invocation.
// *api.Client satisfies this. A returned error is a transport-level failure
// and aborts the run; application-level rejection arrives inside the Outcome.
type Resubmitter interface {
	Resubmit(ctx context.Context, invocationUUID string) (api.Outcome, error)
}

// Ledger is the durable record of confirmed resubmissions.
//
// Append must flush to durable storage before returning: the engine relies on
// the ledger's on-disk state always equaling the set of invocations whose
// resubmission has been confirmed.
type Ledger interface {
	Append(invocationUUID string) error
	Contains(invocationUUID string) bool
	Len() int
}

// RejectionPolicy decides what an application-level rejection does to the run.
type RejectionPolicy string

const (
	// RejectContinue records the rejection and moves to the next record.
	RejectContinue RejectionPolicy = "continue"
	// RejectAbort stops the run at the first rejection.
	RejectAbort RejectionPolicy = "abort"
)

// RunRecorder receives run-level observations for the journal. All methods
// are advisory: the engine logs recorder failures and keeps going, because
// the journal is an observational artifact, not the resume checkpoint.
type RunRecorder interface {
	BeginRun(ctx context.Context, criteria api.SearchCriteria, planned int) (runID string, err error)
	RecordOutcome(ctx context.Context, runID string, seq int, invocationUUID string, outcome api.Outcome) error
	FinishRun(ctx context.Context, runID string, status string, resubmitted, rejected int) error
}

// resubmitAll walks the validated working set in order, invoking the mutation
// and checkpointing after every confirmed success.
//
// The loop is strictly sequential: the ledger append (with its durable flush)
// completes before the next record's mutation is issued, which bounds the
// crash window to one in-flight record.
func (e *Engine) resubmitAll(ctx context.Context, runID string, executions []api.Execution, report *Report) error {
	for i, ex := range executions {
		e.logger.Info("resubmitting", "invocation_uuid", ex.InvocationUUID, "seq", i+1, "of", len(executions))

		outcome, err := e.resubmitter.Resubmit(ctx, ex.InvocationUUID)
		if err != nil {
			// Transport failure: the ledger already reflects every
			// confirmed success, so stopping here is safe.
			return err
		}

		e.recordOutcome(ctx, runID, i+1, ex.InvocationUUID, outcome)

		if !outcome.Resubmitted {
			report.Rejected++
			e.logger.Warn("resubmission rejected", "invocation_uuid", ex.InvocationUUID, "message", outcome.Message)
			if e.opts.OnRejection == RejectAbort {
				return &RejectionError{InvocationUUID: ex.InvocationUUID, Message: outcome.Message}
			}
			continue
		}

		if err := e.ledger.Append(ex.InvocationUUID); err != nil {
			// Without a durable checkpoint the next mutation would widen
			// the at-risk window beyond one record. Abort instead.
			return err
		}
		report.Resubmitted++
	}
	return nil
}

func (e *Engine) recordOutcome(ctx context.Context, runID string, seq int, invocationUUID string, outcome api.Outcome) {
	if e.recorder == nil || runID == "" {
		return
	}
	if err := e.recorder.RecordOutcome(ctx, runID, seq, invocationUUID, outcome); err != nil {
		e.logger.Warn("journal write failed", "invocation_uuid", invocationUUID, "error", err)
	}
}
