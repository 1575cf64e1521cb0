package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/resub/internal/api"
)

func openJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, j.Close()) })
	j.now = func() time.Time {
		return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	}
	return j
}

func testCriteria() api.SearchCriteria {
	return api.SearchCriteria{
		CompanyUUID:    "company-1",
		PartnerUUID:    "partner-1",
		Statuses:       "LOGICAL_FAILURE",
		StartDateAfter: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestBeginRunCreatesRow(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()

	runID, err := j.BeginRun(ctx, testCriteria(), 4)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	run, err := j.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, runID, run.ID)
	assert.Equal(t, "company-1", run.CompanyUUID)
	assert.Equal(t, "partner-1", run.PartnerUUID)
	assert.Equal(t, 4, run.Planned)
	assert.Equal(t, "running", run.Status)
	assert.Equal(t, "2024-03-01T10:00:00Z", run.StartedAt)
	assert.Empty(t, run.FinishedAt)
}

func TestBeginRunIDsAreDistinct(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()

	id1, err := j.BeginRun(ctx, testCriteria(), 1)
	require.NoError(t, err)
	id2, err := j.BeginRun(ctx, testCriteria(), 1)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
}

func TestRecordOutcomeAndQuery(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()

	runID, err := j.BeginRun(ctx, testCriteria(), 3)
	require.NoError(t, err)

	require.NoError(t, j.RecordOutcome(ctx, runID, 1, "inv-1", api.Outcome{Resubmitted: true, Message: "resubmitted"}))
	require.NoError(t, j.RecordOutcome(ctx, runID, 2, "inv-2", api.Outcome{Resubmitted: false, Message: "flow is disabled"}))
	require.NoError(t, j.RecordOutcome(ctx, runID, 3, "inv-3", api.Outcome{Resubmitted: true, Message: "resubmitted"}))

	outcomes, err := j.Outcomes(ctx, runID)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.Equal(t, []int{1, 2, 3}, []int{outcomes[0].Seq, outcomes[1].Seq, outcomes[2].Seq})
	assert.Equal(t, "inv-2", outcomes[1].InvocationUUID)
	assert.False(t, outcomes[1].Resubmitted)
	assert.Equal(t, "flow is disabled", outcomes[1].Message)
	assert.True(t, outcomes[2].Resubmitted)
}

func TestRecordOutcomeIsIdempotent(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()

	runID, err := j.BeginRun(ctx, testCriteria(), 1)
	require.NoError(t, err)

	outcome := api.Outcome{Resubmitted: true, Message: "resubmitted"}
	require.NoError(t, j.RecordOutcome(ctx, runID, 1, "inv-1", outcome))
	require.NoError(t, j.RecordOutcome(ctx, runID, 1, "inv-1", outcome))

	outcomes, err := j.Outcomes(ctx, runID)
	require.NoError(t, err)
	assert.Len(t, outcomes, 1)
}

func TestFinishRunStampsStatusAndCounts(t *testing.T) {
	j := openJournal(t)
	ctx := context.Background()

	runID, err := j.BeginRun(ctx, testCriteria(), 4)
	require.NoError(t, err)
	require.NoError(t, j.FinishRun(ctx, runID, "completed", 3, 1))

	run, err := j.GetRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, "completed", run.Status)
	assert.Equal(t, 3, run.Resubmitted)
	assert.Equal(t, 1, run.Rejected)
	assert.Equal(t, "2024-03-01T10:00:00Z", run.FinishedAt)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	j1, err := Open(path)
	require.NoError(t, err)
	runID, err := j1.BeginRun(context.Background(), testCriteria(), 1)
	require.NoError(t, err)
	require.NoError(t, j1.Close())

	// Reopening applies pragmas and schema again and keeps existing rows.
	j2, err := Open(path)
	require.NoError(t, err)
	defer j2.Close()

	run, err := j2.GetRun(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, runID, run.ID)
}
