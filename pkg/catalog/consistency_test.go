package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rule(id string) *Rule {
	return &Rule{ID: id, Source: "pattern-" + id, PositiveVectors: []string{"x"}}
}

func TestCheckDuplicateIDs(t *testing.T) {
	cat := &Catalogue{Rules: []*Rule{rule("b"), rule("a"), rule("b"), rule("a")}}

	err := Check(cat)
	require.Error(t, err)

	var dup *DuplicateIDError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, []string{"a", "b"}, dup.IDs, "all colliding ids, sorted")
}

func TestCheckPositiveVectors(t *testing.T) {
	broken := rule("r1")
	broken.PositiveVectors = nil
	cat := &Catalogue{Rules: []*Rule{broken}}

	err := Check(cat)
	require.Error(t, err)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "positive_vectors", schemaErr.Field)
}

func TestCheckOK(t *testing.T) {
	cat := &Catalogue{Rules: []*Rule{rule("a"), rule("b")}}
	assert.NoError(t, Check(cat))
}

func TestCheckResults(t *testing.T) {
	cat := &Catalogue{
		RequiredTargets: []string{"gitleaks"},
		Rules:           []*Rule{rule("r1"), rule("r2"), rule("r3")},
	}
	all := []string{"github", "gitleaks"}

	outcomes := map[string]map[string]Outcome{
		// r1 passes everywhere.
		"r1": {"gitleaks": OutcomePassed, "github": OutcomePassed},
		// r2 fails the required target but passes another.
		"r2": {"gitleaks": OutcomeFailed, "github": OutcomePassed},
		// r3 passes the required target, fails the rest.
		"r3": {"gitleaks": OutcomePassed, "github": OutcomeFailed},
	}

	problems := CheckResults(cat, all, outcomes)
	require.Len(t, problems, 1)

	var required *RequiredTargetError
	require.True(t, errors.As(problems[0], &required))
	assert.Equal(t, "r2", required.RuleID)
	assert.Equal(t, "gitleaks", required.Dialect)
}

func TestCheckResultsBrokenRule(t *testing.T) {
	cat := &Catalogue{
		RequiredTargets: []string{"gitleaks"},
		Rules:           []*Rule{rule("r1")},
	}

	outcomes := map[string]map[string]Outcome{
		"r1": {"gitleaks": OutcomeFailed, "github": OutcomeFailed},
	}

	problems := CheckResults(cat, []string{"github", "gitleaks"}, outcomes)

	found := false
	for _, problem := range problems {
		var broken *BrokenRuleError
		if errors.As(problem, &broken) {
			assert.Equal(t, "r1", broken.RuleID)
			found = true
		}
	}
	assert.True(t, found, "a rule with zero passing targets is catalogue-broken")
}

func TestCheckResultsExcluded(t *testing.T) {
	cat := &Catalogue{Rules: []*Rule{rule("r1")}}

	// An explicitly-excluded outcome satisfies a required target and
	// does not count as broken on its own.
	outcomes := map[string]map[string]Outcome{
		"r1": {"gitleaks": OutcomeExcluded, "github": OutcomePassed},
	}

	problems := CheckResults(cat, []string{"github", "gitleaks"}, outcomes)
	assert.Empty(t, problems)
}

func TestCheckResultsDefaultsToAllTargets(t *testing.T) {
	cat := &Catalogue{Rules: []*Rule{rule("r1")}}

	outcomes := map[string]map[string]Outcome{
		"r1": {"gitleaks": OutcomePassed, "github": OutcomeFailed},
	}

	problems := CheckResults(cat, []string{"github", "gitleaks"}, outcomes)
	require.Len(t, problems, 1)

	var required *RequiredTargetError
	require.True(t, errors.As(problems[0], &required))
	assert.Equal(t, "github", required.Dialect)
}
