package engine

import (
	"github.com/roach88/resub/internal/api"
)

// CheckIntegrity verifies that every invocation identifier in the working set
// is distinct. It must run — and fail — before the first mutating call.
//
// Duplicates are never repaired here: a duplicated identifier means the
// pagination produced overlapping pages, and a traversal that duplicated
// records may equally have skipped others.
func CheckIntegrity(executions []api.Execution) error {
	seen := make(map[string]struct{}, len(executions))
	var duplicates []string
	for _, ex := range executions {
		if _, ok := seen[ex.InvocationUUID]; ok {
			duplicates = append(duplicates, ex.InvocationUUID)
			continue
		}
		seen[ex.InvocationUUID] = struct{}{}
	}

	if len(seen) != len(executions) {
		return &DuplicateError{
			Total:      len(executions),
			Distinct:   len(seen),
			Duplicates: duplicates,
		}
	}
	return nil
}
