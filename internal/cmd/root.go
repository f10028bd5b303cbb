// Package cmd wires up the rulecast command line interface.
package cmd

import (
	"github.com/CompassSecurity/rulecast/pkg/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rulecast",
	Short: "Translate and validate the secret-detection rule catalogue",
	Long:  "Rulecast translates the generic secret-detection rule catalogue into per-consumer rule files and validates every translated pattern against the rule's test vectors.",
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(NewValidateCmd())
	rootCmd.AddCommand(NewTranslateCmd())
	rootCmd.AddCommand(NewTargetsCmd())

	logging.Setup()
}
