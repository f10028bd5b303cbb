package cmd

import (
	"os"

	"github.com/CompassSecurity/rulecast/pkg/artifact"
	"github.com/CompassSecurity/rulecast/pkg/dialect"
	"github.com/CompassSecurity/rulecast/pkg/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func NewTranslateCmd() *cobra.Command {
	translateCmd := &cobra.Command{
		Use:   "translate <target>",
		Short: "Translate the catalogue for one target dialect and write its artifact",
		Args:  cobra.ExactArgs(1),
		Run:   Translate,
	}

	addCommonFlags(translateCmd)
	translateCmd.Flags().StringVarP(&outDir, "out", "o", ".", "Directory to write the artifact into")

	return translateCmd
}

func Translate(cmd *cobra.Command, args []string) {
	logging.SetLogLevel(verbose)

	target, ok := dialect.Builtin().Get(args[0])
	if !ok {
		log.Error().Str("target", args[0]).Strs("known", dialect.Builtin().Names()).Msg("Unknown target dialect")
		os.Exit(exitStructuralError)
	}
	registry := dialect.NewRegistry(target)

	cat := loadCatalogue()
	// Only the selected target can be required in single-target mode.
	cat.RequiredTargets = nil
	report := runPipeline(cat, registry)

	exit := summarize(cat, registry, report)

	records := artifact.Records(cat, report, target.Name)
	if _, err := artifact.Write(outDir, target, records); err != nil {
		log.Error().Err(err).Str("target", target.Name).Msg("Failed writing artifact")
		if exit == 0 {
			exit = exitValidationFailed
		}
	}

	if exit != 0 {
		os.Exit(exit)
	}
}
