package cmd

import (
	"github.com/CompassSecurity/rulecast/pkg/dialect"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func NewTargetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List the known target dialects",
		Run:   Targets,
	}
}

func Targets(cmd *cobra.Command, args []string) {
	for _, d := range dialect.Builtin().All() {
		log.Info().
			Str("target", d.Name).
			Str("format", string(d.Format)).
			Str("file", d.Filename).
			Bool("lookaround", d.Lookaround).
			Msg(d.Description)
	}
}
