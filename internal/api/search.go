package api

import (
	"context"
	"time"
)

// searchQuery is the flow-execution search document. The tradingPartners
// selection includes partner_uuid and partner_name because normalization
// stamps them onto every execution in the block.
const searchQuery = `query flowExecutionsByTP(
  $companyUUID:ID!,
  $partnerUUID:ID,
  $cursor:String,
  $startDateAfter:DateTime,
  $startDateBefore:DateTime,
  $statuses:FlowStatusFilter,
  $dataTag:String,
  $flow_uuid:ID
  ) {
    company(company_uuid:$companyUUID) {
      my_role
      tradingPartners(partner_uuid:$partnerUUID) {
        company_role
        partner_uuid
        partner_name
        flowExecutionSearch(
        cursor:$cursor,
        startDateAfter:$startDateAfter,
        startDateBefore:$startDateBefore,
        statuses:$statuses,
        dataTag:$dataTag,
        flow_uuid:$flow_uuid
        ) {
            recordsReturned
            totalRecords
            hasMoreRecords
            searchCapped
            data {
              flow_uuid
              flow_name
              invocation_uuid
              flowTypeLabel
              start_date
              statusLabel
              status
              cursor
              company_uuid
              partner_uuid
              summary_message
              data_tags {
                label
                value
              }
            }
          }
        }
      }
    }`

// SearchPage fetches one page of the flow-execution search. An empty cursor
// requests the first page; otherwise cursor must be the cursor value carried
// by the last execution of the previous page.
//
// A response with a non-empty errors array returns a GraphQLError and must
// abort the run. A structurally incomplete page (nil Company, nil nested
// search blocks) is returned as-is: shape anomalies are the normalizer's
// policy decision, not the transport's.
func (c *Client) SearchPage(ctx context.Context, criteria SearchCriteria, cursor string) (*Page, error) {
	variables := map[string]any{
		"companyUUID": criteria.CompanyUUID,
		"partnerUUID": criteria.PartnerUUID,
	}
	if !criteria.StartDateAfter.IsZero() {
		variables["startDateAfter"] = criteria.StartDateAfter.UTC().Format(time.RFC3339Nano)
	}
	if !criteria.StartDateBefore.IsZero() {
		variables["startDateBefore"] = criteria.StartDateBefore.UTC().Format(time.RFC3339Nano)
	}
	if criteria.Statuses != "" {
		variables["statuses"] = criteria.Statuses
	}
	if criteria.DataTag != "" {
		variables["dataTag"] = criteria.DataTag
	}
	if criteria.FlowUUID != "" {
		variables["flow_uuid"] = criteria.FlowUUID
	}
	if cursor != "" {
		variables["cursor"] = cursor
	}

	var page Page
	if err := c.do(ctx, "search", searchQuery, variables, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
