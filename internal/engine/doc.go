// Package engine implements the resubmission pipeline.
//
// A run is a single sequential pass:
//
//	[Paginate] → [Flatten] → [Order] → [Filter] → [Integrity] → [Snapshot] → [Resubmit+Checkpoint]
//
// # Determinism
//
// The working set a run produces is a pure function of the pages the server
// returns: flattening preserves page and partner order, the sort is stable on
// start date, and filtering is a pure predicate. Splitting the same records
// across more or fewer pages cannot change the outcome.
//
// # Checkpointing
//
// Resubmission is a side-effecting action, so the loop is deliberately
// single-writer and synchronous: one record is resubmitted, its identifier is
// appended to the ledger, and the ledger is flushed to disk before the next
// record is touched. A crash therefore risks duplicate resubmission of at
// most the one in-flight record, and the on-disk ledger is always an exact
// resume point.
//
// Nothing in the pipeline retries. The ledger-driven skip on the next run is
// the retry mechanism.
package engine
