// Package artifact serializes validated, translated rules into the
// per-target output files the downstream consumers ingest.
package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/CompassSecurity/rulecast/pkg/catalog"
	"github.com/CompassSecurity/rulecast/pkg/dialect"
	"github.com/CompassSecurity/rulecast/pkg/engine"
	"github.com/CompassSecurity/rulecast/pkg/validate"
	gounits "github.com/docker/go-units"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Record is one translated rule in a target artifact.
type Record struct {
	ID          string       `json:"id" yaml:"id" toml:"id"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Confidence  string       `json:"confidence,omitempty" yaml:"confidence,omitempty" toml:"confidence,omitempty"`
	Pattern     string       `json:"pattern" yaml:"pattern" toml:"pattern"`
	Flags       engine.Flags `json:"flags" yaml:"flags" toml:"flags"`
	Tags        []string     `json:"tags,omitempty" yaml:"tags,omitempty" toml:"tags,omitempty"`
	References  []string     `json:"references,omitempty" yaml:"references,omitempty" toml:"references,omitempty"`
}

// document is the artifact envelope shared by the TOML and YAML
// formats; the JSON format historically calls its list "patterns".
type document struct {
	Rules []Record `toml:"rules" yaml:"rules"`
}

type jsonDocument struct {
	Patterns []Record `json:"patterns"`
}

// Records builds the artifact records for one dialect from the rules
// that passed validation for it, ordered by rule id ascending.
func Records(cat *catalog.Catalogue, report *validate.Report, dialectName string) []Record {
	var records []Record
	for _, pair := range report.Passed(dialectName) {
		rule, ok := cat.Rule(pair.RuleID)
		if !ok {
			continue
		}
		records = append(records, Record{
			ID:          rule.ID,
			Description: rule.Description,
			Confidence:  string(rule.Confidence),
			Pattern:     pair.Translation.Pattern,
			Flags:       pair.Translation.Flags,
			Tags:        rule.Tags,
			References:  rule.References,
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

// Write serializes the records in the dialect's declared format into
// dir. It returns the written path.
func Write(dir string, d dialect.Dialect, records []Record) (string, error) {
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	data, err := marshal(d.Format, records)
	if err != nil {
		return "", fmt.Errorf("serializing artifact for target %q: %w", d.Name, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("writing artifact for target %q: %w", d.Name, err)
	}
	path := filepath.Join(dir, d.Filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing artifact for target %q: %w", d.Name, err)
	}

	log.Info().
		Str("target", d.Name).
		Str("path", path).
		Int("rules", len(records)).
		Str("size", gounits.HumanSize(float64(len(data)))).
		Msg("Wrote artifact")
	return path, nil
}

func marshal(format dialect.Format, records []Record) ([]byte, error) {
	switch format {
	case dialect.FormatTOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(document{Rules: records}); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case dialect.FormatYAML:
		return yaml.Marshal(document{Rules: records})
	case dialect.FormatJSON:
		return json.MarshalIndent(jsonDocument{Patterns: records}, "", "  ")
	}
	return nil, fmt.Errorf("unknown artifact format %q", format)
}

// WriteAll writes one artifact per dialect. Targets are independent:
// a failure writing one is recorded and the rest are still written.
// The returned map holds the per-target errors.
func WriteAll(dir string, registry *dialect.Registry, cat *catalog.Catalogue, report *validate.Report) map[string]error {
	failures := map[string]error{}
	for _, d := range registry.All() {
		if _, err := Write(dir, d, Records(cat, report, d.Name)); err != nil {
			log.Error().Err(err).Str("target", d.Name).Msg("Failed writing artifact")
			failures[d.Name] = err
		}
	}
	return failures
}
