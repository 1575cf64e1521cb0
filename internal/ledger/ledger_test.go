package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resubmitted.json")

	led, err := Open(path)
	require.NoError(t, err)

	assert.Zero(t, led.Len())
	assert.Empty(t, led.Entries())
	assert.Equal(t, path, led.Path())
	// Opening must not create the file; only Append writes.
	assert.NoFileExists(t, path)
}

func TestOpenLoadsExistingEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resubmitted.json")
	require.NoError(t, os.WriteFile(path, []byte(`["e1","e2","e3"]`), 0o644))

	led, err := Open(path)
	require.NoError(t, err)

	assert.Equal(t, 3, led.Len())
	assert.Equal(t, []string{"e1", "e2", "e3"}, led.Entries())
	assert.True(t, led.Contains("e2"))
	assert.False(t, led.Contains("e4"))
}

func TestOpenCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resubmitted.json")
	require.NoError(t, os.WriteFile(path, []byte(`["e1",`), 0o644))

	_, err := Open(path)
	require.Error(t, err)
	assert.ErrorContains(t, err, "parse ledger")
}

func TestAppendFlushesEachEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resubmitted.json")
	led, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, led.Append("e1"))

	// Durable after the first append: a fresh Open sees it.
	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"e1"}, reopened.Entries())

	require.NoError(t, led.Append("e2"))
	require.NoError(t, led.Append("e3"))

	var onDisk []string
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, []string{"e1", "e2", "e3"}, onDisk)
	assert.True(t, led.Contains("e3"))
}

func TestAppendPreservesPriorRunEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resubmitted.json")
	require.NoError(t, os.WriteFile(path, []byte(`["old-1","old-2"]`), 0o644))

	led, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, led.Append("new-1"))

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"old-1", "old-2", "new-1"}, reopened.Entries())
}

func TestEntriesReturnsCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resubmitted.json")
	led, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, led.Append("e1"))

	entries := led.Entries()
	entries[0] = "mutated"

	assert.Equal(t, []string{"e1"}, led.Entries())
}

func TestWriteAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resubmitted.json")
	led, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, led.Append("e1"))
	require.NoError(t, led.Append("e2"))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "resubmitted.json", files[0].Name())
}
