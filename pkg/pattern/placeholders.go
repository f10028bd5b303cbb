package pattern

import "sync"

// Placeholders maps the builtin placeholder names to their generic
// sub-pattern source. Catalogue rules reference these as %{name} so
// common alphabets stay consistent across rules.
var Placeholders = map[string]string{
	"alnum":     "[0-9A-Za-z]",
	"alpha":     "[A-Za-z]",
	"digit":     "[0-9]",
	"hex":       "[0-9a-fA-F]",
	"base32":    "[A-Z2-7]",
	"base62":    "[0-9A-Za-z]",
	"base64":    "[A-Za-z0-9+/]",
	"base64url": "[A-Za-z0-9_-]",
	"uuid":      "[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}",
}

var (
	placeholderASTs  map[string]Node
	placeholdersOnce sync.Once
)

// Expand returns the parsed AST of a builtin placeholder. It panics
// on unknown names since the parser already validated them.
func Expand(name string) Node {
	placeholdersOnce.Do(func() {
		placeholderASTs = make(map[string]Node, len(Placeholders))
		for n, src := range Placeholders {
			placeholderASTs[n] = MustParse(src)
		}
	})
	ast, ok := placeholderASTs[name]
	if !ok {
		panic("pattern: unknown placeholder " + name)
	}
	return ast
}
