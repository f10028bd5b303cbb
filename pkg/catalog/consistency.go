package catalog

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/rxwycdh/rxhash"
)

// Check runs the structural checks over the loaded catalogue before
// any translation begins.
func Check(cat *Catalogue) error {
	seen := map[string]int{}
	for _, rule := range cat.Rules {
		seen[rule.ID]++
	}
	var dups []string
	for id, count := range seen {
		if count > 1 {
			dups = append(dups, id)
		}
	}
	if len(dups) > 0 {
		sort.Strings(dups)
		return &DuplicateIDError{IDs: dups}
	}

	for _, rule := range cat.Rules {
		if len(rule.PositiveVectors) == 0 {
			return &SchemaError{Definition: rule.ID, Field: "positive_vectors", Reason: "missing or empty"}
		}
	}

	warnDuplicatePatterns(cat)
	return nil
}

// patternIdentity is the part of a rule that makes two rules
// detect the same thing.
type patternIdentity struct {
	Prefix  string
	Pattern string
	Suffix  string
}

// warnDuplicatePatterns flags rules whose pattern sources are
// identical under different ids. Not fatal: intentional duplicates
// exist during rule migrations.
func warnDuplicatePatterns(cat *Catalogue) {
	byHash := map[string][]string{}
	for _, rule := range cat.Rules {
		hash, err := rxhash.HashStruct(patternIdentity{
			Prefix:  rule.PrefixSource,
			Pattern: rule.Source,
			Suffix:  rule.SuffixSource,
		})
		if err != nil {
			log.Debug().Err(err).Str("rule", rule.ID).Msg("Failed hashing rule pattern")
			continue
		}
		byHash[hash] = append(byHash[hash], rule.ID)
	}
	for _, ids := range byHash {
		if len(ids) > 1 {
			sort.Strings(ids)
			log.Warn().Strs("rules", ids).Msg("Multiple rules share an identical pattern")
		}
	}
}

// Outcome is the per (rule, target) result the post-run checks
// consume.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomePassed
	OutcomeExcluded
)

// RequiredTargetError reports a rule without a passing or excluded
// outcome for a required dialect.
type RequiredTargetError struct {
	RuleID  string
	Dialect string
}

func (e *RequiredTargetError) Error() string {
	return fmt.Sprintf("rule %q did not pass required target %q", e.RuleID, e.Dialect)
}

// BrokenRuleError reports a rule that passed no target at all.
type BrokenRuleError struct {
	RuleID string
}

func (e *BrokenRuleError) Error() string {
	return fmt.Sprintf("rule %q passed no target dialect", e.RuleID)
}

// CheckResults runs the cross-cutting checks after validation.
// required lists the dialects the catalogue declares as required;
// when the catalogue declares none, every dialect in all is required.
// outcomes maps rule id to per-dialect outcome.
func CheckResults(cat *Catalogue, all []string, outcomes map[string]map[string]Outcome) []error {
	required := cat.RequiredTargets
	if len(required) == 0 {
		required = all
	}

	var problems []error
	for _, rule := range cat.Rules {
		ruleOutcomes := outcomes[rule.ID]

		for _, target := range required {
			if ruleOutcomes[target] == OutcomeFailed {
				problems = append(problems, &RequiredTargetError{RuleID: rule.ID, Dialect: target})
			}
		}

		passing, checked := 0, 0
		for _, outcome := range ruleOutcomes {
			if outcome != OutcomeExcluded {
				checked++
			}
			if outcome == OutcomePassed {
				passing++
			}
		}
		if checked > 0 && passing == 0 {
			problems = append(problems, &BrokenRuleError{RuleID: rule.ID})
		}
	}
	return problems
}
