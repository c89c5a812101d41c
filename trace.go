package ruleengine

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// ExecutionTrace is the append-only event log described in §4.4.6/§9: a
// vector of tagged-variant steps plus named variable snapshots, with every
// summary (duration, rules/actions executed, per-action timings, the
// Mermaid diagram, the detailed text report) derived as a pure fold over
// that vector. Grounded on the Java original's ExecutionTrace, with
// toMermaidDiagram/toDetailedSummary/getMetrics as the Go methods
// ToMermaidDiagram/ToDetailedSummary/Metrics.
type ExecutionTrace struct {
	mu sync.Mutex

	entryPoint        string
	startTime         time.Time
	endTime           time.Time
	steps             []ExecutionStep
	variableSnapshots map[string]map[string]any
	rulesExecuted     []string
	rulesSeen         map[string]bool
	actionsExecuted   []string
	actionsSeen       map[string]bool
	success           bool
	errorMessage      string
}

// NewExecutionTrace starts a trace for the given entry point.
func NewExecutionTrace(entryPoint string) *ExecutionTrace {
	return &ExecutionTrace{
		entryPoint:        entryPoint,
		startTime:         time.Now(),
		variableSnapshots: make(map[string]map[string]any),
		rulesSeen:         make(map[string]bool),
		actionsSeen:       make(map[string]bool),
		success:           true,
	}
}

func (t *ExecutionTrace) append(step ExecutionStep) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.steps = append(t.steps, step)
	if step.RuleID != "" && !t.rulesSeen[step.RuleID] {
		t.rulesSeen[step.RuleID] = true
		t.rulesExecuted = append(t.rulesExecuted, step.RuleID)
	}
	if step.ActionID != "" && !t.actionsSeen[step.ActionID] {
		t.actionsSeen[step.ActionID] = true
		t.actionsExecuted = append(t.actionsExecuted, step.ActionID)
	}
}

// SnapshotVariables records a labeled copy of the current variable set,
// used for the "initial-state"/"final-state" snapshots §4.4.1 requires.
func (t *ExecutionTrace) SnapshotVariables(label string, variables map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := make(map[string]any, len(variables))
	for k, v := range variables {
		snap[k] = v
	}
	t.variableSnapshots[label] = snap
}

// Complete marks the trace finished.
func (t *ExecutionTrace) Complete(success bool, errorMessage string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.endTime = time.Now()
	t.success = success
	t.errorMessage = errorMessage
}

// DurationMs is the trace's elapsed wall-clock time so far (or total, once
// Complete has been called).
func (t *ExecutionTrace) DurationMs() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.endTime.IsZero() {
		return time.Since(t.startTime).Milliseconds()
	}
	return t.endTime.Sub(t.startTime).Milliseconds()
}

// Steps returns a snapshot copy of the recorded step log.
func (t *ExecutionTrace) Steps() []ExecutionStep {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ExecutionStep, len(t.steps))
	copy(out, t.steps)
	return out
}

// TraceMetrics is the flat metrics bag §4.4.6/the Java original's
// getMetrics returns, given a concrete Go shape instead of a
// Map<String,Object>.
type TraceMetrics struct {
	TotalDurationMs int64
	RulesExecuted   int
	ActionsExecuted int
	StepsExecuted   int
	ActionDurations map[string]int64
	TotalActionTimeMs int64
	FailedActions   int
}

// Metrics computes the derived summary described in §4.4.6.
func (t *ExecutionTrace) Metrics() TraceMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	durations := make(map[string]int64)
	var failed int
	for _, s := range t.steps {
		if s.Type == StepActionCompleted && s.DurationMs > 0 {
			durations[s.ActionID] += s.DurationMs
		}
		if s.Type == StepActionFailed {
			failed++
		}
	}
	var total int64
	for _, d := range durations {
		total += d
	}

	endTime := t.endTime
	if endTime.IsZero() {
		endTime = time.Now()
	}

	return TraceMetrics{
		TotalDurationMs:    endTime.Sub(t.startTime).Milliseconds(),
		RulesExecuted:      len(t.rulesExecuted),
		ActionsExecuted:    len(t.actionsExecuted),
		StepsExecuted:      len(t.steps),
		ActionDurations:    durations,
		TotalActionTimeMs:  total,
		FailedActions:      failed,
	}
}

// ToMermaidDiagram renders the trace as a Mermaid graph TD block: a Start
// node for the entry point, one node per RULE_ENTERED/ACTION_COMPLETED/
// ACTION_FAILED step, edges labelled with the matched transition
// condition, and a terminal End node styled green on success / red on
// failure — the same shape as the Java original's toMermaidDiagram.
func (t *ExecutionTrace) ToMermaidDiagram() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("graph TD\n")
	fmt.Fprintf(&sb, "    Start[\"Entry: %s\"]\n", t.entryPoint)

	lastNode := "Start"
	nodeID := 1
	linkEstablished := false

	for _, step := range t.steps {
		currentNode := fmt.Sprintf("N%d", nodeID)

		switch step.Type {
		case StepRuleEntered:
			nodeID++
			fmt.Fprintf(&sb, "    %s[\"Rule: %s\"]\n", currentNode, step.RuleID)
			if !linkEstablished {
				fmt.Fprintf(&sb, "    %s --> %s\n", lastNode, currentNode)
			}
			lastNode = currentNode
		case StepActionCompleted:
			nodeID++
			fmt.Fprintf(&sb, "    %s{{\"Action: %s (%dms)\"}}\n", currentNode, step.ActionID, step.DurationMs)
			fmt.Fprintf(&sb, "    %s --> %s\n", lastNode, currentNode)
			lastNode = currentNode
		case StepActionFailed:
			nodeID++
			fmt.Fprintf(&sb, "    %s[\"Action Failed: %s\"]\n", currentNode, step.ActionID)
			fmt.Fprintf(&sb, "    %s -->|Error| %s\n", lastNode, currentNode)
			fmt.Fprintf(&sb, "    style %s fill:#f99\n", currentNode)
			lastNode = currentNode
		case StepTransitionEvaluated:
			if result, _ := step.Metadata["result"].(bool); result {
				fmt.Fprintf(&sb, "    %s -->|\"%v = true\"| %s\n", lastNode, step.Metadata["condition"], currentNode)
				linkEstablished = true
			}
		}
	}

	if t.success {
		sb.WriteString("    End[\"Success\"]\n")
	} else {
		sb.WriteString("    End[\"Failed\"]\n")
	}
	fmt.Fprintf(&sb, "    %s --> End\n", lastNode)
	if t.success {
		sb.WriteString("    style End fill:#9f9\n")
	} else {
		sb.WriteString("    style End fill:#f99\n")
	}
	sb.WriteString("```\n")
	return sb.String()
}

// ToDetailedSummary renders a numbered step listing with per-step
// metadata, the rules/actions executed, and any variable snapshots —
// purely presentational, matching the Java original's toDetailedSummary.
func (t *ExecutionTrace) ToDetailedSummary() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("=== Execution Trace ===\n")
	fmt.Fprintf(&sb, "Entry Point: %s\n", t.entryPoint)
	fmt.Fprintf(&sb, "Duration: %dms\n", t.durationMsLocked())
	if t.success {
		sb.WriteString("Status: SUCCESS\n")
	} else {
		sb.WriteString("Status: FAILED\n")
		if t.errorMessage != "" {
			fmt.Fprintf(&sb, "Error: %s\n", t.errorMessage)
		}
	}

	fmt.Fprintf(&sb, "\nRules Executed: %d\n", len(t.rulesExecuted))
	for _, r := range t.rulesExecuted {
		fmt.Fprintf(&sb, "  - %s\n", r)
	}

	fmt.Fprintf(&sb, "\nActions Executed: %d\n", len(t.actionsExecuted))
	for _, a := range t.actionsExecuted {
		fmt.Fprintf(&sb, "  - %s\n", a)
	}

	fmt.Fprintf(&sb, "\nExecution Steps: %d\n", len(t.steps))
	for i, step := range t.steps {
		fmt.Fprintf(&sb, "%3d. [%s] ", i+1, step.Type)
		if step.RuleID != "" {
			fmt.Fprintf(&sb, "Rule: %s", step.RuleID)
		}
		if step.ActionID != "" {
			fmt.Fprintf(&sb, ", Action: %s", step.ActionID)
		}
		if step.DurationMs > 0 {
			fmt.Fprintf(&sb, " (%dms)", step.DurationMs)
		}
		sb.WriteString("\n")
		for k, v := range step.Metadata {
			fmt.Fprintf(&sb, "     %s: %v\n", k, v)
		}
	}

	if len(t.variableSnapshots) > 0 {
		sb.WriteString("\nVariable Snapshots:\n")
		for label, vars := range t.variableSnapshots {
			fmt.Fprintf(&sb, "  %s:\n", label)
			for k, v := range vars {
				fmt.Fprintf(&sb, "    %s = %v\n", k, v)
			}
		}
	}

	return sb.String()
}

func (t *ExecutionTrace) durationMsLocked() int64 {
	if t.endTime.IsZero() {
		return time.Since(t.startTime).Milliseconds()
	}
	return t.endTime.Sub(t.startTime).Milliseconds()
}
