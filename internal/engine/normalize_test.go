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

func TestFlattenStampsPartnerIdentity(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	page := &api.Page{Company: &api.Company{
		MyRole: "OWNER",
		TradingPartners: []api.TradingPartner{
			testutil.Partner("p1", "Acme Logistics",
				testutil.Execution("e1", start, "c1"),
				testutil.Execution("e2", start.Add(time.Minute), "c2"),
			),
			testutil.Partner("p2", "Globex Freight",
				testutil.Execution("e3", start.Add(2*time.Minute), "c3"),
			),
		},
	}}

	executions, anomalies := engine.Flatten(page, 1)
	require.Empty(t, anomalies)
	require.Len(t, executions, 3)

	// Partners in page order, executions in partner order.
	assert.Equal(t, []string{"e1", "e2", "e3"}, ids(executions))
	assert.Equal(t, "p1", executions[0].PartnerUUID)
	assert.Equal(t, "Acme Logistics", executions[1].PartnerName)
	assert.Equal(t, "p2", executions[2].PartnerUUID)
	assert.Equal(t, "Globex Freight", executions[2].PartnerName)
}

func TestFlattenMissingStructure(t *testing.T) {
	tests := []struct {
		name   string
		page   *api.Page
		reason string
	}{
		{name: "nil page", page: nil, reason: "no company block"},
		{name: "nil company", page: &api.Page{}, reason: "no company block"},
		{name: "nil partners", page: &api.Page{Company: &api.Company{}}, reason: "no tradingPartners list"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executions, anomalies := engine.Flatten(tt.page, 3)
			assert.Empty(t, executions)
			require.Len(t, anomalies, 1)
			assert.Equal(t, 3, anomalies[0].Page)
			assert.Contains(t, anomalies[0].Reason, tt.reason)
		})
	}
}

func TestFlattenPartnerWithoutSearchBlock(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	page := &api.Page{Company: &api.Company{
		TradingPartners: []api.TradingPartner{
			{PartnerUUID: "p-broken", PartnerName: "Broken"},
			testutil.Partner("p1", "Acme", testutil.Execution("e1", start, "")),
		},
	}}

	executions, anomalies := engine.Flatten(page, 2)

	// The broken partner becomes an anomaly; the healthy one still yields
	// its records.
	assert.Equal(t, []string{"e1"}, ids(executions))
	require.Len(t, anomalies, 1)
	assert.Contains(t, anomalies[0].Reason, "p-broken")
	assert.Contains(t, anomalies[0].String(), "page 2")
}
