// Package testutil provides deterministic test doubles, most importantly a
// scripted in-process portal serving the auth and GraphQL endpoints.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/roach88/resub/internal/api"
)

// FakePortal is an httptest-backed portal double. Pages are keyed by the
// cursor the client sends, so the fake also verifies the cursor chain: a
// request with an unscripted cursor gets an empty page.
//
// Thread-safety: all mutable state is mutex-guarded, though the client under
// test is strictly sequential.
type FakePortal struct {
	Server *httptest.Server

	// AccessToken is what the auth endpoint hands out.
	AccessToken string

	mu          sync.Mutex
	authCalls   int
	searchCalls int
	pages       map[string]*api.Page

	// errorOnSearchCall, when non-zero, makes that (1-based) search call
	// respond with a GraphQL errors payload.
	errorOnSearchCall int

	resubmitted     []string
	rejects         map[string]string
	transportFailAt int // 1-based resubmit call to answer with HTTP 500
}

// NewFakePortal starts the fake. Callers must Close it.
func NewFakePortal() *FakePortal {
	p := &FakePortal{
		AccessToken: "test-token",
		pages:       make(map[string]*api.Page),
		rejects:     make(map[string]string),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", p.handleAuth)
	mux.HandleFunc("/graphql", p.handleGraphQL)
	p.Server = httptest.NewServer(mux)
	return p
}

// Close shuts the server down.
func (p *FakePortal) Close() { p.Server.Close() }

// AuthURL returns the token endpoint URL.
func (p *FakePortal) AuthURL() string { return p.Server.URL + "/oauth/token" }

// GraphQLURL returns the GraphQL endpoint URL.
func (p *FakePortal) GraphQLURL() string { return p.Server.URL + "/graphql" }

// AddPage scripts the response for a request carrying the given cursor
// (empty string scripts the first page).
func (p *FakePortal) AddPage(cursor string, page *api.Page) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pages[cursor] = page
}

// ErrorOnSearchCall makes the nth (1-based) search call return a GraphQL
// errors payload.
func (p *FakePortal) ErrorOnSearchCall(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errorOnSearchCall = n
}

// Reject makes the resubmit mutation decline the given invocation with an
// application-level message.
func (p *FakePortal) Reject(invocationUUID, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejects[invocationUUID] = message
}

// FailResubmitCall makes the nth (1-based) resubmit call fail at the
// transport level with HTTP 500.
func (p *FakePortal) FailResubmitCall(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transportFailAt = n
}

// AuthCalls returns how many token exchanges were served.
func (p *FakePortal) AuthCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.authCalls
}

// Resubmitted returns the invocation UUIDs received by the mutation, in order.
func (p *FakePortal) Resubmitted() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.resubmitted))
	copy(out, p.resubmitted)
	return out
}

func (p *FakePortal) handleAuth(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.authCalls++
	token := p.AccessToken
	p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"access_token": token})
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func (p *FakePortal) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	var req graphqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if strings.Contains(req.Query, "resubmitFlowExecution") {
		p.handleResubmit(w, req)
		return
	}
	p.handleSearch(w, req)
}

func (p *FakePortal) handleSearch(w http.ResponseWriter, req graphqlRequest) {
	p.mu.Lock()
	p.searchCalls++
	call := p.searchCalls
	errCall := p.errorOnSearchCall

	cursor, _ := req.Variables["cursor"].(string)
	page := p.pages[cursor]
	p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	if errCall != 0 && call == errCall {
		json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]any{{"message": "execution search failed", "path": []string{"company"}}},
		})
		return
	}

	if page == nil {
		// Unscripted cursor: an empty but well-formed page.
		page = &api.Page{Company: &api.Company{TradingPartners: []api.TradingPartner{}}}
	}
	json.NewEncoder(w).Encode(map[string]any{"data": page})
}

func (p *FakePortal) handleResubmit(w http.ResponseWriter, req graphqlRequest) {
	input, _ := req.Variables["input"].(map[string]any)
	uuid, _ := input["invocation_uuid"].(string)

	p.mu.Lock()
	p.resubmitted = append(p.resubmitted, uuid)
	call := len(p.resubmitted)
	failAt := p.transportFailAt
	rejectMsg, rejected := p.rejects[uuid]
	p.mu.Unlock()

	if failAt != 0 && call == failAt {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	outcome := api.Outcome{Resubmitted: true, Message: "resubmitted"}
	if rejected {
		outcome = api.Outcome{Resubmitted: false, Message: rejectMsg}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"data": map[string]any{"resubmitFlowExecution": outcome},
	})
}

// Execution builds a minimal execution record for tests.
func Execution(invocationUUID string, start time.Time, cursor string) api.Execution {
	return api.Execution{
		InvocationUUID: invocationUUID,
		FlowUUID:       "flow-1",
		FlowName:       "Test Flow",
		StartDate:      start,
		Status:         "LOGICAL_FAILURE",
		StatusLabel:    "Logical Failure",
		Cursor:         cursor,
	}
}

// Partner wraps executions in a single trading-partner block.
func Partner(partnerUUID, partnerName string, executions ...api.Execution) api.TradingPartner {
	return api.TradingPartner{
		PartnerUUID: partnerUUID,
		PartnerName: partnerName,
		Search: &api.ExecutionSearch{
			RecordsReturned: len(executions),
			TotalRecords:    len(executions),
			Data:            executions,
		},
	}
}

// SinglePartnerPage wraps executions in a one-partner page.
func SinglePartnerPage(partnerUUID, partnerName string, executions ...api.Execution) *api.Page {
	return &api.Page{
		Company: &api.Company{
			MyRole:          "OWNER",
			TradingPartners: []api.TradingPartner{Partner(partnerUUID, partnerName, executions...)},
		},
	}
}
