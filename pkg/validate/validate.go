// Package validate runs the translation and vector checks for every
// (rule, dialect) pair and aggregates the results into a report.
package validate

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/CompassSecurity/rulecast/pkg/catalog"
	"github.com/CompassSecurity/rulecast/pkg/dialect"
	"github.com/CompassSecurity/rulecast/pkg/engine"
	"github.com/rs/zerolog/log"
	"github.com/wandb/parallel"
)

// FalseNegativeError reports a positive vector the translated pattern
// failed to match.
type FalseNegativeError struct {
	RuleID  string
	Dialect string
	Vector  string
}

func (e *FalseNegativeError) Error() string {
	return fmt.Sprintf("rule %q on target %q: positive vector %q did not match", e.RuleID, e.Dialect, e.Vector)
}

// FalsePositiveError reports a negative vector the translated pattern
// matched.
type FalsePositiveError struct {
	RuleID  string
	Dialect string
	Vector  string
}

func (e *FalsePositiveError) Error() string {
	return fmt.Sprintf("rule %q on target %q: negative vector %q matched", e.RuleID, e.Dialect, e.Vector)
}

// PairResult is the validation outcome for one (rule, dialect) pair.
type PairResult struct {
	RuleID      string
	Dialect     string
	Translation dialect.Translation
	// Excluded is set when the rule declares it does not apply to
	// the dialect; no translation or validation ran.
	Excluded bool
	Passed   bool
	// Failures holds every reason the pair failed, in check order.
	Failures []error
}

// Report aggregates all pair results of a run.
type Report struct {
	Pairs []PairResult
}

// Options configure a validation run.
type Options struct {
	// Workers bounds the worker pool. Defaults to 4.
	Workers int
	// Engine is the matching engine used for dialects without an
	// engine of their own. Defaults to the native binding.
	Engine engine.Engine
}

// Run translates and validates every applicable (rule, dialect) pair.
// Work is fanned out over a bounded pool; results are merged
// append-only after each task completes, so no in-place shared state
// is mutated. Per-pair failures never abort the run.
func Run(ctx context.Context, cat *catalog.Catalogue, registry *dialect.Registry, opts Options) *Report {
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	defaultEngine := opts.Engine
	if defaultEngine == nil {
		defaultEngine = engine.Default()
	}

	group := parallel.Collect[[]PairResult](parallel.Limited(ctx, workers))

	for _, rule := range cat.Rules {
		for _, d := range registry.All() {
			group.Go(func(ctx context.Context) ([]PairResult, error) {
				return []PairResult{checkPair(rule, d, defaultEngine)}, nil
			})
		}
	}

	results, err := group.Wait()
	if err != nil {
		log.Error().Stack().Err(err).Msg("Failed waiting for parallel validation")
	}

	report := &Report{Pairs: slices.Concat(results...)}
	sort.Slice(report.Pairs, func(i, j int) bool {
		a, b := report.Pairs[i], report.Pairs[j]
		if a.RuleID != b.RuleID {
			return a.RuleID < b.RuleID
		}
		return a.Dialect < b.Dialect
	})
	return report
}

// checkPair runs translation, compilation and all vector checks for
// one pair. Every vector is checked even after a failure so the
// report is exhaustive.
func checkPair(rule *catalog.Rule, d dialect.Dialect, defaultEngine engine.Engine) PairResult {
	result := PairResult{RuleID: rule.ID, Dialect: d.Name}

	if !rule.AppliesTo(d.Name) {
		result.Excluded = true
		log.Debug().Str("rule", rule.ID).Str("target", d.Name).Msg("Rule excluded from target")
		return result
	}

	translation, err := translatePair(rule, d)
	if err != nil {
		result.Failures = append(result.Failures, err)
		return result
	}
	result.Translation = translation

	eng := d.Engine
	if eng == nil {
		eng = defaultEngine
	}

	handle, err := eng.Compile(translation.Pattern, translation.Flags)
	if err != nil {
		result.Failures = append(result.Failures, err)
		return result
	}

	for _, vector := range rule.PositiveVectors {
		if !handle.Matches(vector) {
			result.Failures = append(result.Failures, &FalseNegativeError{RuleID: rule.ID, Dialect: d.Name, Vector: vector})
		}
	}
	for _, vector := range rule.NegativeVectors {
		if handle.Matches(vector) {
			result.Failures = append(result.Failures, &FalsePositiveError{RuleID: rule.ID, Dialect: d.Name, Vector: vector})
		}
	}

	result.Passed = len(result.Failures) == 0
	return result
}

// translatePair resolves the translation for one pair. A manual
// override for the dialect is used verbatim and skips automatic
// translation entirely; it is still compiled and vector-checked like
// any translated pattern.
func translatePair(rule *catalog.Rule, d dialect.Dialect) (dialect.Translation, error) {
	if override, ok := rule.TargetOverrides[d.Name]; ok {
		log.Debug().Str("rule", rule.ID).Str("target", d.Name).Msg("Using manual override pattern")
		return dialect.Translation{Dialect: d.Name, Pattern: override, Flags: d.Flags, Overridden: true}, nil
	}
	return dialect.TranslateParts(rule.Prefix, rule.Pattern, rule.Suffix, d)
}

// Passed returns the passing pair results for one dialect, ordered by
// rule id ascending.
func (r *Report) Passed(dialectName string) []PairResult {
	var passed []PairResult
	for _, pair := range r.Pairs {
		if pair.Dialect == dialectName && pair.Passed {
			passed = append(passed, pair)
		}
	}
	sort.Slice(passed, func(i, j int) bool { return passed[i].RuleID < passed[j].RuleID })
	return passed
}

// Failed returns every pair that was checked and did not pass.
func (r *Report) Failed() []PairResult {
	var failed []PairResult
	for _, pair := range r.Pairs {
		if !pair.Excluded && !pair.Passed {
			failed = append(failed, pair)
		}
	}
	return failed
}

// Outcomes maps rule id to per-dialect outcome for the post-run
// consistency checks.
func (r *Report) Outcomes() map[string]map[string]catalog.Outcome {
	outcomes := map[string]map[string]catalog.Outcome{}
	for _, pair := range r.Pairs {
		byDialect := outcomes[pair.RuleID]
		if byDialect == nil {
			byDialect = map[string]catalog.Outcome{}
			outcomes[pair.RuleID] = byDialect
		}
		switch {
		case pair.Excluded:
			byDialect[pair.Dialect] = catalog.OutcomeExcluded
		case pair.Passed:
			byDialect[pair.Dialect] = catalog.OutcomePassed
		default:
			byDialect[pair.Dialect] = catalog.OutcomeFailed
		}
	}
	return outcomes
}
