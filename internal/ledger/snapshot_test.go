package ledger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/resub/internal/api"
)

func TestWriteSnapshotGolden(t *testing.T) {
	path := filepath.Join(t.TempDir(), "executions.json")
	executions := []api.Execution{
		{
			InvocationUUID: "inv-0001",
			FlowUUID:       "flow-aaaa",
			FlowName:       "Orders Inbound",
			FlowTypeLabel:  "Inbound",
			StartDate:      time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
			Status:         "LOGICAL_FAILURE",
			StatusLabel:    "Logical Failure",
			CompanyUUID:    "company-1",
			PartnerUUID:    "partner-1",
			PartnerName:    "Acme Logistics",
			SummaryMessage: "missing order reference",
			DataTags:       []api.DataTag{{Label: "order", Value: "PO-1001"}},
			Cursor:         "cursor-1",
		},
		{
			InvocationUUID: "inv-0002",
			FlowUUID:       "flow-aaaa",
			FlowName:       "Orders Inbound",
			FlowTypeLabel:  "Inbound",
			StartDate:      time.Date(2024, 3, 1, 11, 30, 0, 0, time.UTC),
			Status:         "LOGICAL_FAILURE",
			StatusLabel:    "Logical Failure",
			CompanyUUID:    "company-1",
			PartnerUUID:    "partner-1",
			PartnerName:    "Acme Logistics",
			Cursor:         "cursor-2",
		},
	}

	require.NoError(t, WriteSnapshot(path, executions))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"))
	g.Assert(t, "snapshot", data)
}

func TestWriteSnapshotEmptySetWritesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "executions.json")

	require.NoError(t, WriteSnapshot(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Well-formed empty array, never null.
	assert.Equal(t, "[]\n", string(data))
}

func TestWriteSnapshotOverwritesPriorRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "executions.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"stale":true}]`), 0o644))

	require.NoError(t, WriteSnapshot(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}
