package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ruleengine"
	"ruleengine/validate"
)

var includeOptionalValidators bool

var validateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate a rule-engine configuration file",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&includeOptionalValidators, "optional", true, "include duplicate-action, conditional-syntax and circular-dependency checks")
}

func runValidate(_ *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	cfg, err := ruleengine.LoadConfig(data, args[0])
	if err != nil {
		return err
	}

	chain := validate.DefaultChain(includeOptionalValidators)
	result := chain.Validate(cfg)

	for _, issue := range result.Sorted() {
		fmt.Printf("[%s:%s] %s\n", issue.Severity, issue.Code, issue.Message)
	}

	if !result.IsValid() {
		return fmt.Errorf("configuration has %d error(s)", len(result.Errors()))
	}
	fmt.Println("configuration is valid")
	return nil
}
