package pattern

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse parses the generic pattern syntax into its AST. The syntax is
// deliberately engine-neutral: metacharacters follow the common core
// shared by the downstream engines, and %{name} references a builtin
// placeholder sub-pattern.
func Parse(src string) (Node, error) {
	p := &parser{src: []rune(src)}
	n, err := p.alternation()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.src) {
		return nil, p.errf("pattern", "unexpected %q", string(p.src[p.pos]))
	}
	return n, nil
}

// MustParse is Parse for statically known patterns, e.g. the builtin
// placeholder table.
func MustParse(src string) Node {
	n, err := Parse(src)
	if err != nil {
		panic(fmt.Sprintf("pattern: MustParse(%q): %v", src, err))
	}
	return n
}

type parser struct {
	src []rune
	pos int
}

func (p *parser) errf(construct, format string, args ...any) error {
	return &SyntaxError{
		Construct: construct,
		Offset:    p.pos,
		Message:   fmt.Sprintf(format, args...),
	}
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) peek() rune {
	return p.src[p.pos]
}

func (p *parser) next() rune {
	r := p.src[p.pos]
	p.pos++
	return r
}

func (p *parser) alternation() (Node, error) {
	first, err := p.concat()
	if err != nil {
		return nil, err
	}
	branches := []Node{first}
	for !p.eof() && p.peek() == '|' {
		p.next()
		branch, err := p.concat()
		if err != nil {
			return nil, err
		}
		branches = append(branches, branch)
	}
	if len(branches) == 1 {
		return first, nil
	}
	return &Alternation{Branches: branches}, nil
}

func (p *parser) concat() (Node, error) {
	var parts []Node
	for !p.eof() && p.peek() != '|' && p.peek() != ')' {
		part, err := p.repeat()
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	parts = mergeLiterals(parts)
	switch len(parts) {
	case 0:
		return &Literal{}, nil
	case 1:
		return parts[0], nil
	}
	return &Concat{Parts: parts}, nil
}

// mergeLiterals coalesces adjacent single-character literals so the
// AST carries "AKIA" as one node instead of four.
func mergeLiterals(parts []Node) []Node {
	merged := parts[:0]
	for _, part := range parts {
		lit, ok := part.(*Literal)
		if ok && len(merged) > 0 {
			if prev, ok := merged[len(merged)-1].(*Literal); ok {
				prev.Value += lit.Value
				continue
			}
		}
		merged = append(merged, part)
	}
	return merged
}

func (p *parser) repeat() (Node, error) {
	atom, err := p.atom()
	if err != nil {
		return nil, err
	}
	if p.eof() {
		return atom, nil
	}

	min, max := 0, 0
	switch p.peek() {
	case '*':
		p.next()
		min, max = 0, -1
	case '+':
		p.next()
		min, max = 1, -1
	case '?':
		p.next()
		min, max = 0, 1
	case '{':
		var ok bool
		min, max, ok, err = p.bounds()
		if err != nil {
			return nil, err
		}
		if !ok {
			// Not a quantifier, `{` is a literal brace.
			return atom, nil
		}
	default:
		return atom, nil
	}

	switch atom.(type) {
	case *Anchor, *Lookaround:
		return nil, p.errf("repetition", "cannot repeat a zero-width assertion")
	}

	lazy := false
	if !p.eof() && p.peek() == '?' {
		p.next()
		lazy = true
	}
	return &Repetition{Sub: atom, Min: min, Max: max, Lazy: lazy}, nil
}

// bounds parses {m}, {m,} or {m,n}. Returns ok=false without
// consuming input when the braces do not form a quantifier.
func (p *parser) bounds() (min, max int, ok bool, err error) {
	start := p.pos
	p.next() // '{'
	digits := func() (int, bool) {
		ds := ""
		for !p.eof() && p.peek() >= '0' && p.peek() <= '9' {
			ds += string(p.next())
		}
		if ds == "" {
			return 0, false
		}
		n, convErr := strconv.Atoi(ds)
		if convErr != nil {
			return 0, false
		}
		return n, true
	}

	min, hasMin := digits()
	if !hasMin {
		p.pos = start
		return 0, 0, false, nil
	}
	max = min
	if !p.eof() && p.peek() == ',' {
		p.next()
		if !p.eof() && p.peek() == '}' {
			max = -1
		} else {
			var hasMax bool
			max, hasMax = digits()
			if !hasMax {
				p.pos = start
				return 0, 0, false, nil
			}
		}
	}
	if p.eof() || p.peek() != '}' {
		p.pos = start
		return 0, 0, false, nil
	}
	p.next()
	if max != -1 && max < min {
		p.pos = start
		return 0, 0, false, p.errf("repetition", "{%d,%d} has min greater than max", min, max)
	}
	return min, max, true, nil
}

func (p *parser) atom() (Node, error) {
	switch p.peek() {
	case '(':
		return p.group()
	case '[':
		return p.class()
	case '.':
		p.next()
		return &CharClass{Kind: ClassDot}, nil
	case '^':
		p.next()
		return &Anchor{Kind: AnchorLineStart}, nil
	case '$':
		p.next()
		return &Anchor{Kind: AnchorLineEnd}, nil
	case '\\':
		return p.escape()
	case '%':
		return p.placeholder()
	case '*', '+', '?':
		return nil, p.errf("repetition", "quantifier %q has nothing to repeat", string(p.peek()))
	default:
		return &Literal{Value: string(p.next())}, nil
	}
}

func (p *parser) group() (Node, error) {
	open := p.pos
	p.next() // '('
	g := &Group{Capturing: true}
	var look *Lookaround

	if !p.eof() && p.peek() == '?' {
		p.next()
		if p.eof() {
			return nil, p.errf("group", "unterminated group modifier")
		}
		switch p.peek() {
		case ':':
			p.next()
			g.Capturing = false
		case '=':
			p.next()
			look = &Lookaround{}
		case '!':
			p.next()
			look = &Lookaround{Negative: true}
		case '<':
			p.next()
			if p.eof() {
				return nil, p.errf("group", "unterminated group modifier")
			}
			switch p.peek() {
			case '=':
				p.next()
				look = &Lookaround{Behind: true}
			case '!':
				p.next()
				look = &Lookaround{Behind: true, Negative: true}
			default:
				name, err := p.groupName('>')
				if err != nil {
					return nil, err
				}
				g.Name = name
			}
		case 'P':
			p.next()
			if p.eof() || p.peek() != '<' {
				return nil, p.errf("group", "expected '<' after (?P")
			}
			p.next()
			name, err := p.groupName('>')
			if err != nil {
				return nil, err
			}
			g.Name = name
		default:
			return nil, p.errf("group", "unknown group modifier %q", string(p.peek()))
		}
	}

	sub, err := p.alternation()
	if err != nil {
		return nil, err
	}
	if p.eof() || p.peek() != ')' {
		p.pos = open
		return nil, p.errf("group", "missing closing parenthesis")
	}
	p.next()

	if look != nil {
		look.Sub = sub
		return look, nil
	}
	g.Sub = sub
	return g, nil
}

func (p *parser) groupName(closing rune) (string, error) {
	var name strings.Builder
	for !p.eof() && p.peek() != closing {
		r := p.next()
		if !isNameRune(r) {
			return "", p.errf("group", "invalid character %q in group name", string(r))
		}
		name.WriteRune(r)
	}
	if p.eof() {
		return "", p.errf("group", "unterminated group name")
	}
	p.next() // closing
	if name.Len() == 0 {
		return "", p.errf("group", "empty group name")
	}
	return name.String(), nil
}

func isNameRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func (p *parser) escape() (Node, error) {
	p.next() // '\'
	if p.eof() {
		return nil, p.errf("escape", "trailing backslash")
	}
	r := p.next()
	switch r {
	case 'd', 'D', 'w', 'W', 's', 'S':
		c := &CharClass{Kind: ClassShorthand, Shorthand: byte(r)}
		if r >= 'A' && r <= 'Z' {
			c.Negated = true
			c.Shorthand = byte(r) + ('a' - 'A')
		}
		return c, nil
	case 'b':
		return &Anchor{Kind: AnchorWordBoundary}, nil
	case 'B':
		return &Anchor{Kind: AnchorNotWordBoundary}, nil
	case 'A':
		return &Anchor{Kind: AnchorTextStart}, nil
	case 'z':
		return &Anchor{Kind: AnchorTextEnd}, nil
	case 'n':
		return &Literal{Value: "\n"}, nil
	case 'r':
		return &Literal{Value: "\r"}, nil
	case 't':
		return &Literal{Value: "\t"}, nil
	case 'f':
		return &Literal{Value: "\f"}, nil
	case 'v':
		return &Literal{Value: "\v"}, nil
	case 'x':
		return p.hexEscape()
	}
	if isNameRune(r) {
		p.pos--
		return nil, p.errf("escape", "unknown escape \\%s", string(r))
	}
	return &Literal{Value: string(r)}, nil
}

func (p *parser) hexEscape() (Node, error) {
	if p.pos+2 > len(p.src) {
		return nil, p.errf("escape", "truncated \\x escape")
	}
	hex := string(p.src[p.pos : p.pos+2])
	v, err := strconv.ParseUint(hex, 16, 8)
	if err != nil {
		return nil, p.errf("escape", "invalid \\x escape %q", hex)
	}
	p.pos += 2
	return &Literal{Value: string(rune(v))}, nil
}

func (p *parser) placeholder() (Node, error) {
	start := p.pos
	p.next() // '%'
	if p.eof() || p.peek() != '{' {
		// Bare percent is a literal.
		return &Literal{Value: "%"}, nil
	}
	p.next()
	var name strings.Builder
	for !p.eof() && p.peek() != '}' {
		r := p.next()
		if !isNameRune(r) {
			p.pos--
			return nil, p.errf("placeholder", "invalid character %q in placeholder name", string(r))
		}
		name.WriteRune(r)
	}
	if p.eof() {
		p.pos = start
		return nil, p.errf("placeholder", "unterminated placeholder")
	}
	p.next() // '}'
	if _, ok := Placeholders[name.String()]; !ok {
		p.pos = start
		return nil, p.errf("placeholder", "unknown placeholder %q", name.String())
	}
	return &Placeholder{Name: name.String()}, nil
}

func (p *parser) class() (Node, error) {
	open := p.pos
	p.next() // '['
	c := &CharClass{Kind: ClassSet}
	if !p.eof() && p.peek() == '^' {
		p.next()
		c.Negated = true
	}

	first := true
	for {
		if p.eof() {
			p.pos = open
			return nil, p.errf("character class", "missing closing bracket")
		}
		if p.peek() == ']' && !first {
			p.next()
			break
		}
		first = false

		lo, items, err := p.classChar()
		if err != nil {
			return nil, err
		}
		if items != nil {
			c.Items = append(c.Items, items...)
			continue
		}

		if !p.eof() && p.peek() == '-' && p.pos+1 < len(p.src) && p.src[p.pos+1] != ']' {
			p.next()
			hi, hiItems, err := p.classChar()
			if err != nil {
				return nil, err
			}
			if hiItems != nil {
				return nil, p.errf("character class", "shorthand cannot be a range endpoint")
			}
			if hi < lo {
				return nil, p.errf("character class", "invalid range %q-%q", string(lo), string(hi))
			}
			c.Items = append(c.Items, ClassItem{Lo: lo, Hi: hi})
			continue
		}
		c.Items = append(c.Items, ClassItem{Lo: lo, Hi: lo})
	}

	if len(c.Items) == 0 {
		p.pos = open
		return nil, p.errf("character class", "empty character class")
	}
	return c, nil
}

// classChar reads one class member. A shorthand escape expands to its
// ranges and is returned via items; otherwise the single rune is
// returned.
func (p *parser) classChar() (rune, []ClassItem, error) {
	r := p.next()
	if r != '\\' {
		return r, nil, nil
	}
	if p.eof() {
		return 0, nil, p.errf("character class", "trailing backslash")
	}
	e := p.next()
	switch e {
	case 'd':
		return 0, []ClassItem{{'0', '9'}}, nil
	case 'w':
		return 0, []ClassItem{{'0', '9'}, {'A', 'Z'}, {'a', 'z'}, {'_', '_'}}, nil
	case 's':
		return 0, []ClassItem{{'\t', '\r'}, {' ', ' '}}, nil
	case 'n':
		return '\n', nil, nil
	case 'r':
		return '\r', nil, nil
	case 't':
		return '\t', nil, nil
	case 'x':
		n, err := p.hexEscape()
		if err != nil {
			return 0, nil, err
		}
		return []rune(n.(*Literal).Value)[0], nil, nil
	case 'D', 'W', 'S':
		return 0, nil, p.errf("character class", "negated shorthand not allowed inside a set")
	}
	if isNameRune(e) {
		p.pos--
		return 0, nil, p.errf("character class", "unknown escape \\%s", string(e))
	}
	return e, nil, nil
}
