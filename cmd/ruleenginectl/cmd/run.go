package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/Jeffail/gabs/v2"
	"github.com/spf13/cobra"

	"ruleengine"
)

var (
	inputPath  string
	traceFlag  bool
	mermaidOut bool
)

var runCmd = &cobra.Command{
	Use:   "run [config-file]",
	Short: "Execute a rule-engine configuration against a set of input variables",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&inputPath, "input", "", "path to a JSON file of initial variables (defaults to {})")
	runCmd.Flags().BoolVar(&traceFlag, "trace", false, "record and print an execution trace")
	runCmd.Flags().BoolVar(&mermaidOut, "mermaid", false, "when used with --trace, print a Mermaid diagram instead of the detailed summary")
}

func runRun(_ *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	cfg, err := ruleengine.LoadConfig(data, args[0])
	if err != nil {
		return err
	}

	variables := map[string]any{}
	if inputPath != "" {
		raw, err := os.ReadFile(inputPath)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", inputPath, err)
		}
		if err := json.Unmarshal(raw, &variables); err != nil {
			return fmt.Errorf("failed to parse %s: %w", inputPath, err)
		}
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	executor, err := ruleengine.BuildExecutor(cfg, nil, ruleengine.WithLogger(logger))
	if err != nil {
		return err
	}

	execCtx := ruleengine.NewExecutionContext(variables, nil)
	if traceFlag {
		execCtx.EnableTrace()
	}

	result := executor.Execute(execCtx)

	out := gabs.New()
	_, _ = out.Set(result.Success, "success")
	_, _ = out.Set(result.FinalRuleID, "finalRuleId")
	_, _ = out.Set(result.DurationMs, "durationMs")
	_, _ = out.Set(result.Variables, "variables")
	if result.Error != nil {
		_, _ = out.Set(result.Error.Message, "error", "message")
		_, _ = out.Set(result.Error.RuleID, "error", "ruleId")
	}
	fmt.Println(out.StringIndent("", "  "))

	if traceFlag && result.Trace != nil {
		if mermaidOut {
			fmt.Println(result.Trace.ToMermaidDiagram())
		} else {
			fmt.Println(result.Trace.ToDetailedSummary())
		}
	}

	if !result.Success {
		return fmt.Errorf("execution failed")
	}
	return nil
}
