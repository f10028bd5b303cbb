package cmd

import (
	"context"
	"os"

	"github.com/CompassSecurity/rulecast/pkg/catalog"
	"github.com/CompassSecurity/rulecast/pkg/dialect"
	"github.com/CompassSecurity/rulecast/pkg/logging"
	"github.com/CompassSecurity/rulecast/pkg/validate"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Exit codes shared by the validate and translate commands.
const (
	exitValidationFailed = 1
	exitStructuralError  = 2
)

var (
	rulesPath        string
	outDir           string
	threads          int
	confidenceFilter []string
	strictIDs        bool
	verbose          bool
)

func NewValidateCmd() *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate every rule against every target dialect",
		Run:   Validate,
	}

	addCommonFlags(validateCmd)
	return validateCmd
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&rulesPath, "rules", "r", "", "Path or URL of the rule catalogue")
	err := cmd.MarkFlagRequired("rules")
	if err != nil {
		log.Error().Msg("Unable to require rules flag: " + err.Error())
	}

	cmd.Flags().IntVar(&threads, "threads", 4, "Number of parallel validation workers")
	cmd.Flags().StringSliceVar(&confidenceFilter, "confidence", []string{}, "Only process rules with these confidence levels e.g. --confidence high,medium")
	cmd.Flags().BoolVar(&strictIDs, "strict-ids", false, "Enforce the in-house S3IG rule id format")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose Logging")
}

func Validate(cmd *cobra.Command, args []string) {
	logging.SetLogLevel(verbose)

	registry := dialect.Builtin()
	cat := loadCatalogue()
	report := runPipeline(cat, registry)

	if exit := summarize(cat, registry, report); exit != 0 {
		os.Exit(exit)
	}
	log.Info().Int("rules", len(cat.Rules)).Int("targets", len(registry.Names())).Msg("Catalogue is valid")
}

// loadCatalogue loads and structurally checks the catalogue. Schema,
// syntax and duplicate-id problems abort the whole run: nothing can
// be meaningfully translated from a broken catalogue.
func loadCatalogue() *catalog.Catalogue {
	cat, err := catalog.Load(rulesPath, catalog.LoadOptions{
		ConfidenceFilter: confidenceFilter,
		StrictIDs:        strictIDs,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed loading rule catalogue")
		os.Exit(exitStructuralError)
	}

	if err := catalog.Check(cat); err != nil {
		log.Error().Err(err).Msg("Catalogue failed structural checks")
		os.Exit(exitStructuralError)
	}

	return cat
}

func runPipeline(cat *catalog.Catalogue, registry *dialect.Registry) *validate.Report {
	return validate.Run(context.Background(), cat, registry, validate.Options{Workers: threads})
}

// summarize logs every failure and returns the process exit code.
func summarize(cat *catalog.Catalogue, registry *dialect.Registry, report *validate.Report) int {
	for _, pair := range report.Failed() {
		for _, failure := range pair.Failures {
			log.Error().
				Str("rule", pair.RuleID).
				Str("target", pair.Dialect).
				Msg(failure.Error())
		}
	}

	problems := catalog.CheckResults(cat, registry.Names(), report.Outcomes())
	for _, problem := range problems {
		log.Error().Msg(problem.Error())
	}

	if len(problems) > 0 {
		return exitValidationFailed
	}
	return 0
}
