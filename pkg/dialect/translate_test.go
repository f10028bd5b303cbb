package dialect

import (
	"errors"
	"strings"
	"testing"

	"github.com/CompassSecurity/rulecast/pkg/engine"
	"github.com/CompassSecurity/rulecast/pkg/pattern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) pattern.Node {
	t.Helper()
	n, err := pattern.Parse(src)
	require.NoError(t, err)
	return n
}

func TestTranslateEmission(t *testing.T) {
	plain := Dialect{Name: "plain", Lookaround: true, LazyRepetition: true, NamedGroups: NamedGroupP}

	tests := []struct {
		name    string
		src     string
		dialect Dialect
		want    string
	}{
		{
			name:    "simple token pattern",
			src:     "AKIA[0-9A-Z]{16}",
			dialect: plain,
			want:    "AKIA[0-9A-Z]{16}",
		},
		{
			name:    "metacharacters escaped in literals",
			src:     `a\.b\$c`,
			dialect: plain,
			want:    `a\.b\$c`,
		},
		{
			name:    "extra escape characters",
			src:     "snake_case",
			dialect: Dialect{Name: "fussy", EscapeExtra: "_"},
			want:    `snake\_case`,
		},
		{
			name:    "alternation grouped under repetition",
			src:     "(?:cat|dog)+",
			dialect: plain,
			want:    "(?:cat|dog)+",
		},
		{
			name:    "named group p style",
			src:     "(?P<key>x)",
			dialect: plain,
			want:    "(?P<key>x)",
		},
		{
			name:    "named group angle style",
			src:     "(?P<key>x)",
			dialect: Dialect{Name: "angle", NamedGroups: NamedGroupAngle},
			want:    "(?<key>x)",
		},
		{
			name:    "named group demoted",
			src:     "(?P<key>x)",
			dialect: Dialect{Name: "none", NamedGroups: NamedGroupNone},
			want:    "(x)",
		},
		{
			name:    "lookarounds",
			src:     `(?<=key=)(?!EXAMPLE)[a-z]+`,
			dialect: plain,
			want:    `(?<=key=)(?!EXAMPLE)[a-z]+`,
		},
		{
			name:    "placeholder class inline",
			src:     "%{hex}{32}",
			dialect: plain,
			want:    "[0-9a-fA-F]{32}",
		},
		{
			name:    "placeholder composite grouped",
			src:     "id-%{uuid}",
			dialect: plain,
			want:    `id-(?:[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})`,
		},
		{
			name:    "lazy quantifier",
			src:     `".*?"`,
			dialect: plain,
			want:    `".*?"`,
		},
		{
			name:    "anchors",
			src:     `^\bsecret\b$`,
			dialect: plain,
			want:    `^\bsecret\b$`,
		},
		{
			name:    "negated set",
			src:     `[^"']{8,64}`,
			dialect: plain,
			want:    `[^"']{8,64}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Translate(mustParse(t, tt.src), tt.dialect)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Pattern)
			assert.Equal(t, tt.dialect.Name, got.Dialect)
			assert.False(t, got.Overridden)
		})
	}
}

func TestTranslateDeterministic(t *testing.T) {
	src := `(?:key|token)[=:]\s*(?P<secret>%{base64}{20,})`
	d := Dialect{Name: "plain", LazyRepetition: true, NamedGroups: NamedGroupP}

	first, err := Translate(mustParse(t, src), d)
	require.NoError(t, err)
	second, err := Translate(mustParse(t, src), d)
	require.NoError(t, err)

	assert.Equal(t, first.Pattern, second.Pattern)
}

func TestTranslateUnsupportedConstructs(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		dialect   Dialect
		construct string
	}{
		{
			name:      "lookaround",
			src:       "(?=x)y",
			dialect:   Dialect{Name: "gitleaks", LazyRepetition: true},
			construct: "lookaround",
		},
		{
			name:      "lazy repetition",
			src:       "a+?",
			dialect:   Dialect{Name: "rigid", Lookaround: true},
			construct: "lazy repetition",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Translate(mustParse(t, tt.src), tt.dialect)
			require.Error(t, err)

			var unsupported *UnsupportedConstructError
			require.True(t, errors.As(err, &unsupported))
			assert.Equal(t, tt.construct, unsupported.Construct)
			assert.Equal(t, tt.dialect.Name, unsupported.Dialect)
		})
	}
}

func TestTranslatePatternLimit(t *testing.T) {
	d := Dialect{Name: "tiny", MaxPatternLen: 8}

	_, err := Translate(mustParse(t, "abcdefgh"), d)
	require.NoError(t, err)

	_, err = Translate(mustParse(t, "abcdefghi"), d)
	require.Error(t, err)

	var limit *LimitError
	require.True(t, errors.As(err, &limit))
	assert.Equal(t, "tiny", limit.Dialect)
	assert.Equal(t, 9, limit.Length)
	assert.Equal(t, 8, limit.Max)
}

func TestTranslateParts(t *testing.T) {
	d := Dialect{Name: "plain"}

	t.Run("core only", func(t *testing.T) {
		got, err := TranslateParts(nil, mustParse(t, "AKIA[0-9A-Z]{16}"), nil, d)
		require.NoError(t, err)
		assert.Equal(t, "AKIA[0-9A-Z]{16}", got.Pattern)
	})

	t.Run("affixes promote the core to a capture group", func(t *testing.T) {
		got, err := TranslateParts(
			mustParse(t, `key\s*=\s*`),
			mustParse(t, "[a-z0-9]{32}"),
			mustParse(t, `\b`),
			d,
		)
		require.NoError(t, err)
		assert.Equal(t, `(?:key\s*=\s*)([a-z0-9]{32})(?:\b)`, got.Pattern)
	})

	t.Run("affix errors surface", func(t *testing.T) {
		_, err := TranslateParts(mustParse(t, "(?=x)"), mustParse(t, "y"), nil, d)
		var unsupported *UnsupportedConstructError
		require.True(t, errors.As(err, &unsupported))
	})
}

func TestTranslationsCompile(t *testing.T) {
	// Everything the translator emits for a dialect without special
	// requirements must compile on the native engine.
	sources := []string{
		"AKIA[0-9A-Z]{16}",
		`(?P<secret>%{base64}{20,})`,
		`ghp_%{base62}{36}`,
		`".*?"`,
		`^\bsecret\b$`,
		`xox[bp]-[0-9]{10,13}-%{alnum}+`,
		`id-%{uuid}`,
		`[^"']{8,64}`,
	}
	d := Dialect{Name: "native", LazyRepetition: true, NamedGroups: NamedGroupP}
	eng := engine.Default()

	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			got, err := Translate(mustParse(t, src), d)
			require.NoError(t, err)
			_, err = eng.Compile(got.Pattern, got.Flags)
			assert.NoError(t, err)
		})
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(Dialect{Name: "b"})
	r.Register(Dialect{Name: "a"})

	assert.Equal(t, []string{"a", "b"}, r.Names())

	d, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, "a", d.Name)

	_, ok = r.Get("missing")
	assert.False(t, ok)

	// Re-registering replaces the entry.
	r.Register(Dialect{Name: "a", Description: "updated"})
	d, _ = r.Get("a")
	assert.Equal(t, "updated", d.Description)
}

func TestBuiltinRegistry(t *testing.T) {
	r := Builtin()
	assert.Equal(t, []string{"github", "gitleaks", "kingfisher", "noseyparker", "trufflehog"}, r.Names())

	for _, d := range r.All() {
		assert.NotEmpty(t, d.Filename, "dialect %s needs an artifact filename", d.Name)
		assert.False(t, strings.Contains(d.Filename, "/"))
		assert.NotEmpty(t, d.Format)
	}

	gitleaks, _ := r.Get("gitleaks")
	assert.False(t, gitleaks.Lookaround)
	kingfisher, _ := r.Get("kingfisher")
	assert.True(t, kingfisher.Lookaround)
}
