// Package pattern defines the engine-agnostic representation of a
// secret-detection match expression and the parser for the generic
// rule syntax. Dialect translators consume the AST produced here and
// never see the raw source string.
package pattern

import "fmt"

// Node is one construct of the generic pattern syntax. The construct
// set is closed: translators type-switch over every variant and a new
// variant shows up as a compile error in each translator.
type Node interface {
	node()
}

// Literal is a run of characters matched verbatim.
type Literal struct {
	Value string
}

// ClassKind discriminates the character class variants.
type ClassKind int

const (
	// ClassSet is an explicit [...] set.
	ClassSet ClassKind = iota
	// ClassDot matches any character except newline.
	ClassDot
	// ClassShorthand is one of \d \D \w \W \s \S.
	ClassShorthand
)

// ClassItem is a single member of a ClassSet, either one character
// (Lo == Hi) or an inclusive range.
type ClassItem struct {
	Lo rune
	Hi rune
}

// CharClass matches one character out of a set.
type CharClass struct {
	Kind      ClassKind
	Negated   bool
	Shorthand byte // 'd', 'w' or 's' when Kind == ClassShorthand
	Items     []ClassItem
}

// Alternation matches any one of its branches, tried left to right.
type Alternation struct {
	Branches []Node
}

// Concat matches its parts in sequence.
type Concat struct {
	Parts []Node
}

// Repetition repeats Sub between Min and Max times. Max of -1 means
// unbounded. Lazy repetitions prefer the shortest match.
type Repetition struct {
	Sub  Node
	Min  int
	Max  int
	Lazy bool
}

// Group wraps a sub-expression. Non-capturing groups only affect
// precedence; capturing groups may carry a name.
type Group struct {
	Sub       Node
	Capturing bool
	Name      string
}

// AnchorKind enumerates the zero-width position assertions.
type AnchorKind int

const (
	AnchorLineStart AnchorKind = iota
	AnchorLineEnd
	AnchorTextStart
	AnchorTextEnd
	AnchorWordBoundary
	AnchorNotWordBoundary
)

// Anchor is a zero-width position assertion.
type Anchor struct {
	Kind AnchorKind
}

// Lookaround asserts that Sub does (or does not) match ahead of or
// behind the current position without consuming input.
type Lookaround struct {
	Sub      Node
	Behind   bool
	Negative bool
}

// Placeholder names a common sub-pattern from the builtin placeholder
// table, e.g. %{base62}. Names are resolved at parse time.
type Placeholder struct {
	Name string
}

func (*Literal) node()     {}
func (*CharClass) node()   {}
func (*Alternation) node() {}
func (*Concat) node()      {}
func (*Repetition) node()  {}
func (*Group) node()       {}
func (*Anchor) node()      {}
func (*Lookaround) node()  {}
func (*Placeholder) node() {}

// SyntaxError reports malformed generic pattern syntax. Construct
// names the grammar element being parsed when the error occurred and
// Offset is the byte position in the source string.
type SyntaxError struct {
	Construct string
	Offset    int
	Message   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("pattern syntax error at offset %d in %s: %s", e.Offset, e.Construct, e.Message)
}
