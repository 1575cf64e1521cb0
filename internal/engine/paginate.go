package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/resub/internal/api"
)

// PageFetcher fetches one page of the flow-execution search.
// *api.Client satisfies this; tests substitute scripted fakes.
type PageFetcher interface {
	SearchPage(ctx context.Context, criteria api.SearchCriteria, cursor string) (*api.Page, error)
}

// PagePolicy decides what a structural page anomaly does to the run.
type PagePolicy string

const (
	// PagePolicyReport logs and counts the anomaly and continues with fewer
	// records.
	PagePolicyReport PagePolicy = "report"
	// PagePolicyStrict turns the first anomaly into a fatal MalformedPageError.
	PagePolicyStrict PagePolicy = "strict"
)

// Paginator drives the cursor-based traversal of the search endpoint.
//
// The first request carries no cursor; each subsequent request carries the
// cursor of the last flattened record of the previous page. Continuation is
// inferred purely from that trailing cursor: a page that flattens to zero
// records terminates, and so does a page whose last record carries an empty
// cursor. The server's hasMoreRecords flag is deliberately not consulted.
type Paginator struct {
	fetcher  PageFetcher
	criteria api.SearchCriteria
	policy   PagePolicy
	logger   *slog.Logger
}

// NewPaginator creates a paginator over fetcher for the given criteria.
func NewPaginator(fetcher PageFetcher, criteria api.SearchCriteria, policy PagePolicy, logger *slog.Logger) *Paginator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Paginator{
		fetcher:  fetcher,
		criteria: criteria,
		policy:   policy,
		logger:   logger,
	}
}

// Collect fetches and flattens every page into one ordered slice.
//
// Any fetch error (transport failure or a GraphQL-level errors payload)
// aborts immediately and is returned unchanged; records gathered so far are
// discarded because a partial search must never feed the mutation stage.
func (p *Paginator) Collect(ctx context.Context) ([]api.Execution, []Anomaly, error) {
	var (
		executions []api.Execution
		anomalies  []Anomaly
		cursor     string
	)

	for pageNum := 1; ; pageNum++ {
		p.logger.Debug("fetching page", "page", pageNum, "cursor", cursor)

		page, err := p.fetcher.SearchPage(ctx, p.criteria, cursor)
		if err != nil {
			return nil, nil, err
		}

		pageExecutions, pageAnomalies := Flatten(page, pageNum)
		if len(pageAnomalies) > 0 {
			if p.policy == PagePolicyStrict {
				return nil, nil, &MalformedPageError{Anomaly: pageAnomalies[0]}
			}
			for _, a := range pageAnomalies {
				p.logger.Warn("malformed page structure", "page", a.Page, "reason", a.Reason)
			}
			anomalies = append(anomalies, pageAnomalies...)
		}

		executions = append(executions, pageExecutions...)

		if len(pageExecutions) == 0 {
			break
		}
		cursor = pageExecutions[len(pageExecutions)-1].Cursor
		if cursor == "" {
			break
		}
	}

	p.logger.Info("search complete", "records", len(executions), "anomalies", len(anomalies))
	return executions, anomalies, nil
}
