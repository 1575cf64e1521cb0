// Package ledger owns the two durable artifacts of a run.
//
// The resubmission ledger (resubmitted.json by default) is the recovery
// artifact: an ordered JSON array of invocation UUIDs whose resubmission has
// been confirmed. It is rewritten in full and flushed after every single
// success, so its on-disk state is always an exact resume point. It outlives
// the run that wrote it; the next run loads it and skips its entries.
//
// The audit snapshot (executions.json by default) is written once, before
// any mutation, and holds the entire working set. It exists for operator
// inspection and recovery planning and is never read back by the tool.
//
// Both files are written through a temp-file-then-rename sequence so a crash
// mid-write leaves the previous complete state in place, never a torn file.
package ledger
