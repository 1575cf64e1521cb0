// Package config loads, validates, and materializes the run configuration.
//
// Configuration comes from two places and only two places: a YAML file for
// everything inspectable, and environment variables for the client
// credentials, which must never land on disk. The decoded file is validated
// against an embedded CUE schema before any component sees it, and the
// resulting Config is immutable for the run — there is no module-level
// mutable state anywhere in this program.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/resub/internal/api"
)

// Environment variable names for the client credentials.
const (
	EnvClientID     = "CHAINIO_CLIENT_ID"
	EnvClientSecret = "CHAINIO_CLIENT_SECRET"
)

// Defaults mirror the portal production endpoints and the conventional
// artifact names.
const (
	DefaultAPIURL       = "https://portal-api.chain.io/graphql"
	DefaultAuthURL      = "https://chainio.auth0.com/oauth/token"
	DefaultAudience     = "https://portal-api.chain.io"
	DefaultSnapshotFile = "executions.json"
	DefaultLedgerFile   = "resubmitted.json"
)

// Portal holds endpoint settings.
type Portal struct {
	APIURL   string `yaml:"api_url"`
	AuthURL  string `yaml:"auth_url"`
	Audience string `yaml:"audience"`
}

// Search holds the search criteria as written in the file. Dates stay
// strings here; Criteria parses them.
type Search struct {
	CompanyUUID     string `yaml:"company_uuid"`
	PartnerUUID     string `yaml:"partner_uuid"`
	FlowUUID        string `yaml:"flow_uuid"`
	Statuses        string `yaml:"statuses"`
	DataTag         string `yaml:"data_tag"`
	StartDateAfter  string `yaml:"start_date_after"`
	StartDateBefore string `yaml:"start_date_before"`
}

// Run holds artifact locations and run policies.
type Run struct {
	SnapshotFile   string `yaml:"snapshot_file"`
	LedgerFile     string `yaml:"ledger_file"`
	JournalDB      string `yaml:"journal_db"`
	UseLedger      *bool  `yaml:"use_ledger"`
	OnRejection    string `yaml:"on_rejection"`
	PagePolicy     string `yaml:"page_policy"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// TagFilter is a client-side data-tag filter applied after the search.
type TagFilter struct {
	Label string `yaml:"label"`
	Value string `yaml:"value"`
}

// Filter holds client-side filtering settings.
type Filter struct {
	DataTag *TagFilter `yaml:"data_tag"`
}

// Config is the complete, validated run configuration.
type Config struct {
	Portal Portal `yaml:"portal"`
	Search Search `yaml:"search"`
	Run    Run    `yaml:"run"`
	Filter Filter `yaml:"filter"`
}

// Load reads, schema-validates, and defaults the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := ValidateYAML(data); err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Portal.APIURL == "" {
		c.Portal.APIURL = DefaultAPIURL
	}
	if c.Portal.AuthURL == "" {
		c.Portal.AuthURL = DefaultAuthURL
	}
	if c.Portal.Audience == "" {
		c.Portal.Audience = DefaultAudience
	}
	if c.Run.SnapshotFile == "" {
		c.Run.SnapshotFile = DefaultSnapshotFile
	}
	if c.Run.LedgerFile == "" {
		c.Run.LedgerFile = DefaultLedgerFile
	}
	if c.Run.OnRejection == "" {
		c.Run.OnRejection = "continue"
	}
	if c.Run.PagePolicy == "" {
		c.Run.PagePolicy = "report"
	}
	if c.Run.TimeoutSeconds == 0 {
		c.Run.TimeoutSeconds = int(api.DefaultTimeout / time.Second)
	}
}

// UseLedgerSkip reports whether already-ledgered invocations are excluded
// from the working set. Defaults to true; the original manual-resume behavior
// is available by setting run.use_ledger to false.
func (c *Config) UseLedgerSkip() bool {
	if c.Run.UseLedger == nil {
		return true
	}
	return *c.Run.UseLedger
}

// Timeout returns the per-call deadline.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Run.TimeoutSeconds) * time.Second
}

// Criteria materializes the search criteria, parsing the date bounds.
func (c *Config) Criteria() (api.SearchCriteria, error) {
	criteria := api.SearchCriteria{
		CompanyUUID: c.Search.CompanyUUID,
		PartnerUUID: c.Search.PartnerUUID,
		FlowUUID:    c.Search.FlowUUID,
		Statuses:    c.Search.Statuses,
		DataTag:     c.Search.DataTag,
	}

	if c.Search.StartDateAfter != "" {
		t, err := time.Parse(time.RFC3339, c.Search.StartDateAfter)
		if err != nil {
			return api.SearchCriteria{}, fmt.Errorf("parse start_date_after: %w", err)
		}
		criteria.StartDateAfter = t
	}
	if c.Search.StartDateBefore != "" {
		t, err := time.Parse(time.RFC3339, c.Search.StartDateBefore)
		if err != nil {
			return api.SearchCriteria{}, fmt.Errorf("parse start_date_before: %w", err)
		}
		criteria.StartDateBefore = t
	}
	return criteria, nil
}

// Credentials reads the client credentials from the environment.
// They are held in memory for the run and never written anywhere.
func (c *Config) Credentials() (api.Credential, error) {
	id := os.Getenv(EnvClientID)
	secret := os.Getenv(EnvClientSecret)
	if id == "" || secret == "" {
		return api.Credential{}, fmt.Errorf("credentials missing: set %s and %s", EnvClientID, EnvClientSecret)
	}
	return api.Credential{
		ClientID:     id,
		ClientSecret: secret,
		Audience:     c.Portal.Audience,
	}, nil
}
