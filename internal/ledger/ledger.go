package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Ledger is the ordered, append-only record of confirmed resubmissions.
//
// Single-writer: exactly one run appends at a time, so no locking is needed.
// Every Append rewrites the whole file durably before returning.
type Ledger struct {
	path    string
	entries []string
	set     map[string]struct{}
}

// Open loads the ledger at path, creating an empty in-memory ledger when the
// file does not exist yet. Entries written by a prior (possibly crashed) run
// are preserved and become the skip set for this run.
func Open(path string) (*Ledger, error) {
	l := &Ledger{
		path: path,
		set:  make(map[string]struct{}),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &l.entries); err != nil {
		return nil, fmt.Errorf("parse ledger %s: %w", path, err)
	}
	for _, id := range l.entries {
		l.set[id] = struct{}{}
	}
	return l, nil
}

// Append records one confirmed resubmission and flushes the full ledger to
// disk before returning. The caller must not issue the next mutating call
// until Append succeeds.
func (l *Ledger) Append(invocationUUID string) error {
	l.entries = append(l.entries, invocationUUID)
	l.set[invocationUUID] = struct{}{}

	if err := writeJSONAtomic(l.path, l.entries); err != nil {
		return fmt.Errorf("flush ledger: %w", err)
	}
	return nil
}

// Contains reports whether the invocation is already in the ledger.
func (l *Ledger) Contains(invocationUUID string) bool {
	_, ok := l.set[invocationUUID]
	return ok
}

// Len returns the number of ledger entries.
func (l *Ledger) Len() int { return len(l.entries) }

// Entries returns a copy of the ledger contents in append order.
func (l *Ledger) Entries() []string {
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

// Path returns the on-disk location of the ledger.
func (l *Ledger) Path() string { return l.path }

// writeJSONAtomic writes v as indented JSON through a temp file in the target
// directory, fsyncs it, and renames it over the destination. A crash at any
// point leaves either the old complete file or the new complete file.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
