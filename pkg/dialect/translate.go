package dialect

import (
	"fmt"
	"strings"

	"github.com/CompassSecurity/rulecast/pkg/engine"
	"github.com/CompassSecurity/rulecast/pkg/pattern"
)

// Translation is the result of translating one rule for one dialect.
type Translation struct {
	Dialect string
	Pattern string
	Flags   engine.Flags
	// Overridden is set when the pattern came from the rule's
	// target_overrides entry instead of automatic translation.
	Overridden bool
}

// Translate renders a generic pattern AST in the dialect's native
// syntax. It is pure: the same (AST, Dialect) pair always yields the
// same string.
func Translate(n pattern.Node, d Dialect) (Translation, error) {
	var b strings.Builder
	if err := emit(&b, n, d); err != nil {
		return Translation{}, err
	}
	return finish(b.String(), d)
}

// TranslateParts renders a prefix/core/suffix pattern triple the way
// the catalogue composes them: affixes wrapped in non-capturing
// groups, the core promoted to a capture group when an affix exists.
// Prefix and suffix may be nil.
func TranslateParts(prefix, core, suffix pattern.Node, d Dialect) (Translation, error) {
	var b strings.Builder

	affix := func(n pattern.Node) error {
		if n == nil {
			return nil
		}
		b.WriteString("(?:")
		if err := emit(&b, n, d); err != nil {
			return err
		}
		b.WriteString(")")
		return nil
	}

	if err := affix(prefix); err != nil {
		return Translation{}, err
	}
	capture := prefix != nil || suffix != nil
	if capture {
		b.WriteString("(")
	}
	if err := emit(&b, core, d); err != nil {
		return Translation{}, err
	}
	if capture {
		b.WriteString(")")
	}
	if err := affix(suffix); err != nil {
		return Translation{}, err
	}

	return finish(b.String(), d)
}

func finish(translated string, d Dialect) (Translation, error) {
	if d.MaxPatternLen > 0 && len(translated) > d.MaxPatternLen {
		return Translation{}, &LimitError{Dialect: d.Name, Length: len(translated), Max: d.MaxPatternLen}
	}
	return Translation{Dialect: d.Name, Pattern: translated, Flags: d.Flags}, nil
}

// metachars must be escaped when they appear in a literal.
const metachars = `\.+*?()|[]{}^$`

func emit(b *strings.Builder, n pattern.Node, d Dialect) error {
	switch n := n.(type) {
	case *pattern.Literal:
		emitLiteral(b, n.Value, d)
	case *pattern.CharClass:
		emitClass(b, n, d)
	case *pattern.Concat:
		for _, part := range n.Parts {
			if err := emit(b, part, d); err != nil {
				return err
			}
		}
	case *pattern.Alternation:
		for i, branch := range n.Branches {
			if i > 0 {
				b.WriteString("|")
			}
			if err := emit(b, branch, d); err != nil {
				return err
			}
		}
	case *pattern.Repetition:
		if n.Lazy && !d.LazyRepetition {
			return &UnsupportedConstructError{Construct: "lazy repetition", Dialect: d.Name}
		}
		if err := emitQuantified(b, n.Sub, d); err != nil {
			return err
		}
		b.WriteString(bounds(n.Min, n.Max))
		if n.Lazy {
			b.WriteString("?")
		}
	case *pattern.Group:
		emitGroupOpen(b, n, d)
		if err := emit(b, n.Sub, d); err != nil {
			return err
		}
		b.WriteString(")")
	case *pattern.Anchor:
		b.WriteString(anchorSyntax(n.Kind))
	case *pattern.Lookaround:
		if !d.Lookaround {
			return &UnsupportedConstructError{Construct: "lookaround", Dialect: d.Name}
		}
		b.WriteString(lookaroundOpen(n))
		if err := emit(b, n.Sub, d); err != nil {
			return err
		}
		b.WriteString(")")
	case *pattern.Placeholder:
		sub := pattern.Expand(n.Name)
		if _, atomicClass := sub.(*pattern.CharClass); atomicClass {
			return emit(b, sub, d)
		}
		b.WriteString("(?:")
		if err := emit(b, sub, d); err != nil {
			return err
		}
		b.WriteString(")")
	default:
		panic(fmt.Sprintf("dialect: unhandled pattern construct %T", n))
	}
	return nil
}

// emitQuantified emits a repetition subject, grouping it when the
// emitted form would not bind to the quantifier as a unit.
func emitQuantified(b *strings.Builder, n pattern.Node, d Dialect) error {
	if atomic(n) {
		return emit(b, n, d)
	}
	b.WriteString("(?:")
	if err := emit(b, n, d); err != nil {
		return err
	}
	b.WriteString(")")
	return nil
}

func atomic(n pattern.Node) bool {
	switch n := n.(type) {
	case *pattern.CharClass, *pattern.Group, *pattern.Placeholder:
		return true
	case *pattern.Literal:
		return len([]rune(n.Value)) == 1
	}
	return false
}

func bounds(min, max int) string {
	switch {
	case min == 0 && max == -1:
		return "*"
	case min == 1 && max == -1:
		return "+"
	case min == 0 && max == 1:
		return "?"
	case max == -1:
		return fmt.Sprintf("{%d,}", min)
	case min == max:
		return fmt.Sprintf("{%d}", min)
	}
	return fmt.Sprintf("{%d,%d}", min, max)
}

func emitGroupOpen(b *strings.Builder, g *pattern.Group, d Dialect) {
	switch {
	case !g.Capturing:
		b.WriteString("(?:")
	case g.Name == "" || d.NamedGroups == NamedGroupNone:
		b.WriteString("(")
	case d.NamedGroups == NamedGroupAngle:
		b.WriteString("(?<" + g.Name + ">")
	default:
		b.WriteString("(?P<" + g.Name + ">")
	}
}

func anchorSyntax(k pattern.AnchorKind) string {
	switch k {
	case pattern.AnchorLineStart:
		return "^"
	case pattern.AnchorLineEnd:
		return "$"
	case pattern.AnchorTextStart:
		return `\A`
	case pattern.AnchorTextEnd:
		return `\z`
	case pattern.AnchorWordBoundary:
		return `\b`
	case pattern.AnchorNotWordBoundary:
		return `\B`
	}
	panic(fmt.Sprintf("dialect: unhandled anchor kind %d", k))
}

func lookaroundOpen(n *pattern.Lookaround) string {
	switch {
	case n.Behind && n.Negative:
		return "(?<!"
	case n.Behind:
		return "(?<="
	case n.Negative:
		return "(?!"
	}
	return "(?="
}

func emitLiteral(b *strings.Builder, value string, d Dialect) {
	for _, r := range value {
		if strings.ContainsRune(metachars, r) || strings.ContainsRune(d.EscapeExtra, r) {
			b.WriteString(`\`)
			b.WriteRune(r)
			continue
		}
		switch r {
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
}

func emitClass(b *strings.Builder, c *pattern.CharClass, d Dialect) {
	switch c.Kind {
	case pattern.ClassDot:
		b.WriteString(".")
	case pattern.ClassShorthand:
		sh := c.Shorthand
		if c.Negated {
			sh -= 'a' - 'A'
		}
		b.WriteString(`\` + string(rune(sh)))
	case pattern.ClassSet:
		b.WriteString("[")
		if c.Negated {
			b.WriteString("^")
		}
		for _, item := range c.Items {
			classRune(b, item.Lo)
			if item.Hi != item.Lo {
				b.WriteString("-")
				classRune(b, item.Hi)
			}
		}
		b.WriteString("]")
	}
}

func classRune(b *strings.Builder, r rune) {
	switch r {
	case ']', '\\', '^', '-':
		b.WriteString(`\`)
		b.WriteRune(r)
	case '\n':
		b.WriteString(`\n`)
	case '\r':
		b.WriteString(`\r`)
	case '\t':
		b.WriteString(`\t`)
	default:
		if r < 0x20 || r == 0x7f {
			fmt.Fprintf(b, `\x%02x`, r)
			return
		}
		b.WriteRune(r)
	}
}
