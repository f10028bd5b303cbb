// Package dialect models the downstream rule consumers. A Dialect is
// a plain configuration value: the pattern constructs its engine
// supports, its escaping quirks, flags, limits and artifact format.
// The translator receives dialects explicitly, so new targets are
// added by registering data, not by changing translation code.
package dialect

import (
	"fmt"
	"sort"

	"github.com/CompassSecurity/rulecast/pkg/engine"
)

// Format is the artifact serialization a dialect consumes.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// NamedGroupStyle selects how named capture groups are emitted.
type NamedGroupStyle int

const (
	// NamedGroupP emits (?P<name>...).
	NamedGroupP NamedGroupStyle = iota
	// NamedGroupAngle emits (?<name>...).
	NamedGroupAngle
	// NamedGroupNone demotes named groups to plain capture groups.
	NamedGroupNone
)

// Dialect describes one consumer's constraints.
type Dialect struct {
	Name        string
	Description string

	// Flags the consumer applies to every pattern.
	Flags engine.Flags

	// Lookaround reports whether the consumer's engine accepts
	// lookahead/lookbehind assertions.
	Lookaround bool
	// LazyRepetition reports whether lazy quantifiers are accepted.
	LazyRepetition bool
	// NamedGroups selects the named capture group syntax.
	NamedGroups NamedGroupStyle

	// EscapeExtra lists characters the consumer requires escaped in
	// literals beyond the usual metacharacters.
	EscapeExtra string

	// MaxPatternLen caps the translated pattern length. Zero means
	// no limit.
	MaxPatternLen int

	// Format and Filename describe the output artifact.
	Format   Format
	Filename string

	// Engine overrides the matching engine used for validation.
	// The native binding is used when nil.
	Engine engine.Engine
}

// Registry holds the known dialects, keyed by name.
type Registry struct {
	dialects map[string]Dialect
}

// NewRegistry returns a registry seeded with the given dialects.
func NewRegistry(dialects ...Dialect) *Registry {
	r := &Registry{dialects: make(map[string]Dialect, len(dialects))}
	for _, d := range dialects {
		r.Register(d)
	}
	return r
}

// Register adds or replaces a dialect.
func (r *Registry) Register(d Dialect) {
	r.dialects[d.Name] = d
}

// Get looks up a dialect by name.
func (r *Registry) Get(name string) (Dialect, bool) {
	d, ok := r.dialects[name]
	return d, ok
}

// Names returns the registered dialect names in ascending order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.dialects))
	for name := range r.dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the registered dialects ordered by name.
func (r *Registry) All() []Dialect {
	all := make([]Dialect, 0, len(r.dialects))
	for _, name := range r.Names() {
		all = append(all, r.dialects[name])
	}
	return all
}

// Builtin returns the registry of dialects the catalogue ships
// translations for.
func Builtin() *Registry {
	return NewRegistry(
		Dialect{
			Name:           "gitleaks",
			Description:    "gitleaks TOML configuration",
			LazyRepetition: true,
			NamedGroups:    NamedGroupP,
			Format:         FormatTOML,
			Filename:       "gitleaks.toml",
		},
		Dialect{
			Name:           "noseyparker",
			Description:    "NoseyParker rules file",
			LazyRepetition: true,
			NamedGroups:    NamedGroupP,
			Format:         FormatYAML,
			Filename:       "noseyparker.yml",
		},
		Dialect{
			Name:           "trufflehog",
			Description:    "TruffleHog custom detector configuration",
			LazyRepetition: true,
			NamedGroups:    NamedGroupP,
			Format:         FormatYAML,
			Filename:       "trufflehog.yml",
		},
		Dialect{
			Name:           "kingfisher",
			Description:    "Kingfisher rules file",
			Lookaround:     true,
			LazyRepetition: true,
			NamedGroups:    NamedGroupAngle,
			Format:         FormatYAML,
			Filename:       "kingfisher.yml",
		},
		Dialect{
			Name:          "github",
			Description:   "GitHub secret scanning custom patterns",
			NamedGroups:   NamedGroupNone,
			MaxPatternLen: 1024,
			Format:        FormatJSON,
			Filename:      "github.json",
		},
	)
}

// UnsupportedConstructError reports a generic construct the target
// dialect cannot express and no override compensates for.
type UnsupportedConstructError struct {
	Construct string
	Dialect   string
}

func (e *UnsupportedConstructError) Error() string {
	return fmt.Sprintf("construct %q is not supported by dialect %q", e.Construct, e.Dialect)
}

// LimitError reports a translated pattern exceeding the dialect's
// declared length cap.
type LimitError struct {
	Dialect string
	Length  int
	Max     int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("translated pattern length %d exceeds dialect %q limit %d", e.Length, e.Dialect, e.Max)
}
