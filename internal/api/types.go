package api

import "time"

// SearchCriteria selects which flow executions a run targets.
// Company and partner UUIDs are required; everything else narrows the search.
// Immutable for the duration of a run.
type SearchCriteria struct {
	CompanyUUID string
	PartnerUUID string

	// FlowUUID restricts the search to a single flow. Optional.
	FlowUUID string
	// Statuses is a portal status filter such as "LOGICAL_FAILURE". Optional.
	Statuses string
	// DataTag restricts the search server-side to executions carrying the tag. Optional.
	DataTag string

	// StartDateAfter and StartDateBefore bound the execution start date.
	StartDateAfter  time.Time
	StartDateBefore time.Time
}

// DataTag is an arbitrary label/value pair attached to an execution.
type DataTag struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Execution is one flow execution returned by the search. It is the unit of
// work for resubmission: InvocationUUID is both the dedup key and the
// argument to the resubmit mutation, StartDate is the sort key, and Cursor is
// the continuation token for the page that contained it.
//
// PartnerUUID and PartnerName are stamped on during normalization from the
// owning trading partner; everything else comes off the wire unmodified.
type Execution struct {
	InvocationUUID string    `json:"invocation_uuid"`
	FlowUUID       string    `json:"flow_uuid"`
	FlowName       string    `json:"flow_name"`
	FlowTypeLabel  string    `json:"flowTypeLabel"`
	StartDate      time.Time `json:"start_date"`
	Status         string    `json:"status"`
	StatusLabel    string    `json:"statusLabel"`
	CompanyUUID    string    `json:"company_uuid"`
	PartnerUUID    string    `json:"partner_uuid"`
	PartnerName    string    `json:"partner_name,omitempty"`
	SummaryMessage string    `json:"summary_message"`
	DataTags       []DataTag `json:"data_tags"`
	Cursor         string    `json:"cursor"`
}

// ExecutionSearch is the nested search-result block under a trading partner.
type ExecutionSearch struct {
	RecordsReturned int         `json:"recordsReturned"`
	TotalRecords    int         `json:"totalRecords"`
	HasMoreRecords  bool        `json:"hasMoreRecords"`
	SearchCapped    bool        `json:"searchCapped"`
	Data            []Execution `json:"data"`
}

// TradingPartner is one partner entry in a search page. Search is nil when
// the server omitted the nested block, which normalization treats as a page
// anomaly rather than a crash.
type TradingPartner struct {
	CompanyRole string           `json:"company_role"`
	PartnerUUID string           `json:"partner_uuid"`
	PartnerName string           `json:"partner_name"`
	Search      *ExecutionSearch `json:"flowExecutionSearch"`
}

// Company is the top-level company block of a search page.
type Company struct {
	MyRole          string           `json:"my_role"`
	TradingPartners []TradingPartner `json:"tradingPartners"`
}

// Page is one server response to a search request. Company is nil when the
// expected structure is missing entirely (a malformed page).
type Page struct {
	Company *Company `json:"company"`
}

// Outcome classifies one resubmit call. Exactly one of the three cases holds:
//
//   - Success: Resubmitted is true. The invocation may enter the ledger.
//   - Application failure: Resubmitted is false and Message explains why.
//     The portal accepted the request but declined to resubmit.
//   - Transport failure: not represented here — the call returns an error
//     instead, and the run aborts.
type Outcome struct {
	Resubmitted bool   `json:"resubmitted"`
	Message     string `json:"message"`
}
