package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ruleenginectl",
	Short: "ruleenginectl - rule engine configuration and execution tool",
	Long: `ruleenginectl validates and runs JSON-defined rule-engine configurations.

Use "validate" to check a configuration for reference, reachability and
cycle problems before deploying it, and "run" to execute it against a
set of input variables.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(runCmd)
}
