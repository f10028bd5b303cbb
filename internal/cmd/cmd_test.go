package cmd

import (
	"context"
	"testing"

	"github.com/CompassSecurity/rulecast/pkg/catalog"
	"github.com/CompassSecurity/rulecast/pkg/dialect"
	"github.com/CompassSecurity/rulecast/pkg/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCmdFlags(t *testing.T) {
	cmd := NewValidateCmd()

	assert.Equal(t, "validate", cmd.Name())
	for _, flag := range []string{"rules", "threads", "confidence", "strict-ids"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "missing flag %s", flag)
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("verbose"))
}

func TestTranslateCmdFlags(t *testing.T) {
	cmd := NewTranslateCmd()

	assert.Equal(t, "translate", cmd.Name())
	assert.NotNil(t, cmd.Flags().Lookup("rules"))
	assert.NotNil(t, cmd.Flags().Lookup("out"))
	assert.NotNil(t, cmd.Args)
}

func TestSummarizeExitCodes(t *testing.T) {
	src := `
rules:
  - id: good-rule
    pattern: ok[0-9]{2}
    positive_vectors: [ok42]
  - id: bad-rule
    pattern: 'x(?=y)'
    positive_vectors: [xy]
`
	cat, err := catalog.Parse([]byte(src), catalog.LoadOptions{})
	require.NoError(t, err)

	registry := dialect.NewRegistry(dialect.Dialect{Name: "plain"})
	report := validate.Run(context.Background(), cat, registry, validate.Options{})

	assert.Equal(t, exitValidationFailed, summarize(cat, registry, report))
}

func TestSummarizeCleanRun(t *testing.T) {
	src := `
rules:
  - id: good-rule
    pattern: ok[0-9]{2}
    positive_vectors: [ok42]
`
	cat, err := catalog.Parse([]byte(src), catalog.LoadOptions{})
	require.NoError(t, err)

	registry := dialect.NewRegistry(dialect.Dialect{Name: "plain"})
	report := validate.Run(context.Background(), cat, registry, validate.Options{})

	assert.Equal(t, 0, summarize(cat, registry, report))
}
