package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Anomaly records a structural defect in one search page: the expected
// company / trading-partner / search-result nesting was absent. Under the
// default page policy an anomaly reduces the record count and is reported;
// under the strict policy it is fatal.
type Anomaly struct {
	// Page is the 1-based page number the anomaly was found on.
	Page int `json:"page"`
	// Reason describes the missing structure.
	Reason string `json:"reason"`
}

func (a Anomaly) String() string {
	return fmt.Sprintf("page %d: %s", a.Page, a.Reason)
}

// MalformedPageError is the fatal form of a page anomaly, raised only under
// PagePolicyStrict.
type MalformedPageError struct {
	Anomaly Anomaly
}

func (e *MalformedPageError) Error() string {
	return fmt.Sprintf("malformed page: %s", e.Anomaly)
}

// DuplicateError reports that the working set contains repeated invocation
// identifiers. Never repaired silently: a duplicate here can mask a
// pagination bug that also skipped unrelated records.
type DuplicateError struct {
	Total      int
	Distinct   int
	Duplicates []string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate executions found: %d executions, %d unique executions (duplicated: %s)",
		e.Total, e.Distinct, strings.Join(e.Duplicates, ", "))
}

// RejectionError reports an application-level resubmit rejection when the run
// is configured to abort on rejection.
type RejectionError struct {
	InvocationUUID string
	Message        string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("resubmission rejected for %s: %s", e.InvocationUUID, e.Message)
}

// IsDuplicateError reports whether err is (or wraps) a DuplicateError.
func IsDuplicateError(err error) bool {
	var de *DuplicateError
	return errors.As(err, &de)
}

// IsMalformedPageError reports whether err is (or wraps) a MalformedPageError.
func IsMalformedPageError(err error) bool {
	var me *MalformedPageError
	return errors.As(err, &me)
}

// IsRejectionError reports whether err is (or wraps) a RejectionError.
func IsRejectionError(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}
