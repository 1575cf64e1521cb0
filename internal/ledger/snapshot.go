package ledger

import (
	"fmt"

	"github.com/roach88/resub/internal/api"
)

// WriteSnapshot persists the full working set as indented JSON at path.
//
// Written exactly once per run, before resubmission begins. The tool never
// reads it back; it is the operator's record of what the run intended to do.
// An empty working set writes an empty JSON array, not null, so the file is
// always well-formed for downstream tooling.
func WriteSnapshot(path string, executions []api.Execution) error {
	if executions == nil {
		executions = []api.Execution{}
	}
	if err := writeJSONAtomic(path, executions); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return nil
}
