// Package engine defines the matching-engine capability the
// validation pipeline depends on. The pipeline only ever compiles a
// translated pattern and asks whether an input matches it; everything
// else about the engine is opaque, so engines can be swapped per
// dialect.
package engine

import "fmt"

// Flags are the matching options a dialect applies to its patterns.
type Flags struct {
	CaseInsensitive bool `json:"case_insensitive" yaml:"case_insensitive" toml:"case_insensitive"`
	Multiline       bool `json:"multiline" yaml:"multiline" toml:"multiline"`
}

// Handle is a successfully compiled pattern.
type Handle interface {
	// Matches reports whether input contains a match. Search is
	// unanchored; rules that need anchoring carry explicit anchors.
	Matches(input string) bool
}

// Engine compiles patterns into handles.
type Engine interface {
	// Compile returns a Handle or a *CompileError carrying the
	// engine's diagnostic verbatim.
	Compile(pattern string, flags Flags) (Handle, error)
}

// CompileError reports that an engine rejected a pattern. Diagnostic
// is the engine's message, unmodified.
type CompileError struct {
	Pattern    string
	Diagnostic string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("pattern %q failed to compile: %s", e.Pattern, e.Diagnostic)
}
