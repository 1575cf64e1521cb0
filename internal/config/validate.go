package config

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// ValidationError reports a config file that does not conform to the schema.
// Details carries CUE's positioned, per-field findings.
type ValidationError struct {
	Details string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration:\n%s", e.Details)
}

// ValidateYAML checks the raw YAML config against the embedded CUE schema.
//
// The schema definition is closed, so unknown fields — usually typos — are
// rejected instead of silently ignored. Validation happens on the decoded
// generic value, before the typed Config is built, so every violation is
// reported against the file's own field names.
func ValidateYAML(data []byte) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config YAML: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Config"))
	if !def.Exists() {
		return fmt.Errorf("config schema has no #Config definition")
	}

	val := ctx.Encode(raw)
	if err := val.Err(); err != nil {
		return fmt.Errorf("encode config for validation: %w", err)
	}

	// Concrete validation: required fields must be present, not merely
	// satisfiable. Optional (?) fields may still be absent.
	unified := def.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Details: cueerrors.Details(err, nil)}
	}
	return nil
}
