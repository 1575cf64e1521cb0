package engine

import (
	"sort"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/resub/internal/api"
)

// Predicate decides whether an execution stays in the working set.
// Predicates must be pure; each is evaluated exactly once per record.
type Predicate func(api.Execution) bool

// AcceptAll is the default predicate.
func AcceptAll(api.Execution) bool { return true }

// Order sorts executions in place, ascending by start date. The sort is
// stable: records with equal timestamps keep their discovery order, so the
// resubmission order is deterministic even for same-instant records.
func Order(executions []api.Execution) {
	sort.SliceStable(executions, func(i, j int) bool {
		return executions[i].StartDate.Before(executions[j].StartDate)
	})
}

// Filter returns the executions for which pred is true, preserving order.
// A nil pred accepts everything.
func Filter(executions []api.Execution, pred Predicate) []api.Execution {
	if pred == nil {
		return executions
	}
	kept := make([]api.Execution, 0, len(executions))
	for _, ex := range executions {
		if pred(ex) {
			kept = append(kept, ex)
		}
	}
	return kept
}

// And composes predicates; the result accepts a record only if every
// predicate does. With no arguments it accepts everything.
func And(preds ...Predicate) Predicate {
	return func(ex api.Execution) bool {
		for _, p := range preds {
			if p != nil && !p(ex) {
				return false
			}
		}
		return true
	}
}

// HasDataTag matches executions carrying a data tag with the given label and
// value. Comparison is NFC-normalized so visually identical tags entered
// through different tooling compare equal. An empty value matches any value
// under the label.
func HasDataTag(label, value string) Predicate {
	wantLabel := norm.NFC.String(label)
	wantValue := norm.NFC.String(value)
	return func(ex api.Execution) bool {
		for _, tag := range ex.DataTags {
			if norm.NFC.String(tag.Label) != wantLabel {
				continue
			}
			if wantValue == "" || norm.NFC.String(tag.Value) == wantValue {
				return true
			}
		}
		return false
	}
}
