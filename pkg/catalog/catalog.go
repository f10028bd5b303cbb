// Package catalog loads and checks the generic rule catalogue. The
// catalogue source file is the only durable state of the pipeline;
// everything downstream is recomputed on every run.
package catalog

import (
	"fmt"
	"strings"

	"github.com/CompassSecurity/rulecast/pkg/pattern"
)

// Confidence rates the quality of a rule.
type Confidence string

const (
	ConfidenceUnset  Confidence = ""
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Rule is one secret-detection definition. Rules are immutable within
// a run.
type Rule struct {
	// ID is the catalogue identity key, stable across runs.
	ID          string
	Description string
	Confidence  Confidence

	// Source strings of the generic pattern, kept for reporting.
	// Prefix and suffix sources may be empty.
	PrefixSource string
	Source       string
	SuffixSource string

	// Parsed pattern parts. Prefix and Suffix are nil when unset.
	Prefix  pattern.Node
	Pattern pattern.Node
	Suffix  pattern.Node

	// PositiveVectors must match, NegativeVectors must not.
	PositiveVectors []string
	NegativeVectors []string

	// TargetOverrides maps a dialect name to a manual replacement
	// pattern in the dialect's native syntax.
	TargetOverrides map[string]string

	// ExcludeTargets lists dialects this rule deliberately does not
	// apply to.
	ExcludeTargets []string

	Tags       []string
	References []string
}

// AppliesTo reports whether the rule targets the named dialect.
func (r *Rule) AppliesTo(dialect string) bool {
	for _, excluded := range r.ExcludeTargets {
		if excluded == dialect {
			return false
		}
	}
	return true
}

// Catalogue is the full set of rules under management.
type Catalogue struct {
	// RequiredTargets are the dialects every applicable rule must
	// pass for. Empty means all registered dialects are required.
	RequiredTargets []string
	Rules           []*Rule
}

// Rule returns the rule with the given id.
func (c *Catalogue) Rule(id string) (*Rule, bool) {
	for _, r := range c.Rules {
		if r.ID == id {
			return r, true
		}
	}
	return nil, false
}

// SchemaError reports a missing or malformed field in one rule
// definition. Definition names the offending definition: the rule id
// when known, otherwise its position in the source file.
type SchemaError struct {
	Definition string
	Field      string
	Reason     string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid rule definition %s: field %q: %s", e.Definition, e.Field, e.Reason)
}

// DuplicateIDError reports rule ids used by more than one definition.
type DuplicateIDError struct {
	IDs []string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate rule ids: %s", strings.Join(e.IDs, ", "))
}
