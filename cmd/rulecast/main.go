package main

import (
	"os"

	"github.com/CompassSecurity/rulecast/internal/cmd"
)

func main() {
	err := cmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
