package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/resub/internal/api"
	"github.com/roach88/resub/internal/engine"
	"github.com/roach88/resub/internal/testutil"
)

func TestCheckIntegrityDistinctSet(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	executions := []api.Execution{
		testutil.Execution("e1", base, ""),
		testutil.Execution("e2", base, ""),
		testutil.Execution("e3", base, ""),
	}

	assert.NoError(t, engine.CheckIntegrity(executions))
	assert.NoError(t, engine.CheckIntegrity(nil))
}

func TestCheckIntegrityReportsDuplicates(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	executions := []api.Execution{
		testutil.Execution("e1", base, ""),
		testutil.Execution("e2", base, ""),
		testutil.Execution("e1", base, ""),
		testutil.Execution("e2", base, ""),
	}

	err := engine.CheckIntegrity(executions)
	require.Error(t, err)
	assert.True(t, engine.IsDuplicateError(err))

	var de *engine.DuplicateError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 4, de.Total)
	assert.Equal(t, 2, de.Distinct)
	assert.Equal(t, []string{"e1", "e2"}, de.Duplicates)
	assert.Contains(t, err.Error(), "4 executions, 2 unique executions")
}
