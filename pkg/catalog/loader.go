package catalog

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/CompassSecurity/rulecast/pkg/httpclient"
	"github.com/CompassSecurity/rulecast/pkg/pattern"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// LoadOptions control catalogue loading.
type LoadOptions struct {
	// ConfidenceFilter keeps only rules whose confidence is listed.
	// Empty keeps everything.
	ConfidenceFilter []string
	// StrictIDs enforces the in-house S3IG id format instead of the
	// permissive default.
	StrictIDs bool
}

var (
	// permissiveID accepts any stable identifier built from a
	// filesystem- and config-safe charset.
	permissiveID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	// strictID is the in-house catalogue id format.
	strictID = regexp.MustCompile(`^S3IG[A-Z2-7]{16}$`)
)

// Load reads a catalogue from a local path or an http(s) URL.
func Load(path string, opts LoadOptions) (*Catalogue, error) {
	data, err := readCatalogue(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, opts)
}

func readCatalogue(path string) ([]byte, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		log.Debug().Str("url", path).Msg("Fetching remote catalogue")
		client := httpclient.GetHTTPClient(nil)
		resp, err := client.Get(path)
		if err != nil {
			return nil, fmt.Errorf("fetching catalogue %s: %w", path, err)
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != 200 {
			return nil, fmt.Errorf("fetching catalogue %s: unexpected status %d", path, resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
	return os.ReadFile(path)
}

// ruleSource mirrors the catalogue YAML schema.
type ruleSource struct {
	ID              string            `yaml:"id"`
	Description     string            `yaml:"description"`
	Confidence      string            `yaml:"confidence"`
	PrefixPattern   string            `yaml:"prefix_pattern"`
	Pattern         string            `yaml:"pattern"`
	SuffixPattern   string            `yaml:"suffix_pattern"`
	PositiveVectors []string          `yaml:"positive_vectors"`
	NegativeVectors []string          `yaml:"negative_vectors"`
	TargetOverrides map[string]string `yaml:"target_overrides"`
	ExcludeTargets  []string          `yaml:"exclude_targets"`
	Tags            []string          `yaml:"tags"`
	References      []string          `yaml:"references"`
}

type catalogueSource struct {
	RequiredTargets []string     `yaml:"required_targets"`
	Rules           []ruleSource `yaml:"rules"`
}

// Parse decodes and checks a catalogue document. It fails with a
// *SchemaError on a malformed definition and a *pattern.SyntaxError
// (wrapped with the rule context) on malformed generic syntax.
func Parse(data []byte, opts LoadOptions) (*Catalogue, error) {
	var src catalogueSource
	if err := yaml.Unmarshal(data, &src); err != nil {
		return nil, &SchemaError{Definition: "catalogue", Field: "", Reason: err.Error()}
	}

	cat := &Catalogue{RequiredTargets: src.RequiredTargets}
	for i, rs := range src.Rules {
		rule, err := buildRule(i, rs, opts)
		if err != nil {
			return nil, err
		}
		cat.Rules = append(cat.Rules, rule)
	}

	if len(opts.ConfidenceFilter) > 0 {
		cat.Rules = filterConfidence(cat.Rules, opts.ConfidenceFilter)
		log.Debug().Int("count", len(cat.Rules)).Strs("filter", opts.ConfidenceFilter).Msg("Applied confidence filter")
	}

	log.Debug().Int("count", len(cat.Rules)).Msg("Loaded catalogue rules")
	return cat, nil
}

func buildRule(index int, rs ruleSource, opts LoadOptions) (*Rule, error) {
	definition := rs.ID
	if definition == "" {
		definition = fmt.Sprintf("rules[%d]", index)
		return nil, &SchemaError{Definition: definition, Field: "id", Reason: "missing"}
	}

	idFormat := permissiveID
	if opts.StrictIDs {
		idFormat = strictID
	}
	if !idFormat.MatchString(rs.ID) {
		return nil, &SchemaError{Definition: definition, Field: "id", Reason: fmt.Sprintf("%q does not match %s", rs.ID, idFormat)}
	}

	if rs.Pattern == "" {
		return nil, &SchemaError{Definition: definition, Field: "pattern", Reason: "missing"}
	}
	if len(rs.PositiveVectors) == 0 {
		return nil, &SchemaError{Definition: definition, Field: "positive_vectors", Reason: "missing or empty"}
	}
	for _, v := range rs.PositiveVectors {
		if slices.Contains(rs.NegativeVectors, v) {
			return nil, &SchemaError{Definition: definition, Field: "negative_vectors", Reason: fmt.Sprintf("vector %q appears in both positive_vectors and negative_vectors", v)}
		}
	}

	confidence := Confidence(rs.Confidence)
	switch confidence {
	case ConfidenceUnset, ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
	default:
		return nil, &SchemaError{Definition: definition, Field: "confidence", Reason: fmt.Sprintf("unknown confidence %q", rs.Confidence)}
	}

	for target, override := range rs.TargetOverrides {
		if target == "" || override == "" {
			return nil, &SchemaError{Definition: definition, Field: "target_overrides", Reason: "target name and replacement pattern must be non-empty"}
		}
	}

	rule := &Rule{
		ID:              rs.ID,
		Description:     rs.Description,
		Confidence:      confidence,
		PrefixSource:    rs.PrefixPattern,
		Source:          rs.Pattern,
		SuffixSource:    rs.SuffixPattern,
		PositiveVectors: rs.PositiveVectors,
		NegativeVectors: rs.NegativeVectors,
		TargetOverrides: rs.TargetOverrides,
		ExcludeTargets:  rs.ExcludeTargets,
		Tags:            rs.Tags,
		References:      rs.References,
	}

	var err error
	if rule.Pattern, err = parseField(definition, "pattern", rs.Pattern); err != nil {
		return nil, err
	}
	if rs.PrefixPattern != "" {
		if rule.Prefix, err = parseField(definition, "prefix_pattern", rs.PrefixPattern); err != nil {
			return nil, err
		}
	}
	if rs.SuffixPattern != "" {
		if rule.Suffix, err = parseField(definition, "suffix_pattern", rs.SuffixPattern); err != nil {
			return nil, err
		}
	}

	return rule, nil
}

func parseField(definition, field, src string) (pattern.Node, error) {
	n, err := pattern.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("rule %s: field %q: %w", definition, field, err)
	}
	return n, nil
}

func filterConfidence(rules []*Rule, filter []string) []*Rule {
	kept := []*Rule{}
	for _, rule := range rules {
		if slices.Contains(filter, string(rule.Confidence)) {
			kept = append(kept, rule)
		}
	}
	return kept
}
