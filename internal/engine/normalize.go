package engine

import (
	"github.com/roach88/resub/internal/api"
)

// Flatten extracts every trading partner's executions from one page into a
// flat slice, stamping each execution with its owning partner's identity.
//
// Pure transformation: order is preserved (partners in page order, executions
// in partner order) and no record is dropped except those under a missing
// structural block, which is reported as an Anomaly rather than coerced or
// crashed on.
func Flatten(page *api.Page, pageNum int) ([]api.Execution, []Anomaly) {
	if page == nil || page.Company == nil {
		return nil, []Anomaly{{Page: pageNum, Reason: "response has no company block"}}
	}
	if page.Company.TradingPartners == nil {
		return nil, []Anomaly{{Page: pageNum, Reason: "company block has no tradingPartners list"}}
	}

	var (
		executions []api.Execution
		anomalies  []Anomaly
	)
	for _, tp := range page.Company.TradingPartners {
		if tp.Search == nil {
			anomalies = append(anomalies, Anomaly{
				Page:   pageNum,
				Reason: "trading partner " + tp.PartnerUUID + " has no flowExecutionSearch block",
			})
			continue
		}
		for _, ex := range tp.Search.Data {
			ex.PartnerUUID = tp.PartnerUUID
			ex.PartnerName = tp.PartnerName
			executions = append(executions, ex)
		}
	}
	return executions, anomalies
}
