package ruleengine

import "testing"

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	data := []byte(`{"entryPoint":"a","rules":[{"ruleId":"a","terminal":true}]}`)
	cfg, err := LoadConfig(data, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GlobalSettings.MaxExecutionDepth != 50 {
		t.Fatalf("expected default maxExecutionDepth 50, got %d", cfg.GlobalSettings.MaxExecutionDepth)
	}
	if cfg.GlobalSettings.TimeoutMs != 30000 {
		t.Fatalf("expected default timeout 30000, got %d", cfg.GlobalSettings.TimeoutMs)
	}
}

func TestLoadConfig_NormalizesScalarRulesToArray(t *testing.T) {
	data := []byte(`{"entryPoint":"a","rules":{"ruleId":"a","terminal":true}}`)
	cfg, err := LoadConfig(data, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Rules) != 1 || cfg.Rules[0].RuleID != "a" {
		t.Fatalf("expected a single-element rules array, got %+v", cfg.Rules)
	}
}

func TestLoadConfig_UnwrapsRuleEngineConfigWrapper(t *testing.T) {
	data := []byte(`{"ruleEngineConfig":{"entryPoint":"a","rules":[{"ruleId":"a","terminal":true}]}}`)
	cfg, err := LoadConfig(data, "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.EntryPoint != "a" {
		t.Fatalf("expected entryPoint 'a', got %q", cfg.EntryPoint)
	}
}

func TestLoadConfig_InvalidJSONWrapsConfigurationError(t *testing.T) {
	_, err := LoadConfig([]byte(`{not json`), "test")
	if err == nil {
		t.Fatalf("expected an error for invalid JSON")
	}
	cfgErr, ok := err.(*ConfigurationError)
	if !ok {
		t.Fatalf("expected a *ConfigurationError, got %T", err)
	}
	if cfgErr.Origin != "test" {
		t.Fatalf("expected Origin 'test', got %q", cfgErr.Origin)
	}
}

func TestBuildExecutor_ValidationFailureReturnsBuildError(t *testing.T) {
	cfg := &RuleEngineConfig{} // no entryPoint, no rules
	_, err := BuildExecutor(cfg, nil)
	if err == nil {
		t.Fatalf("expected a build error for an empty configuration")
	}
	buildErr, ok := err.(*BuildError)
	if !ok {
		t.Fatalf("expected a *BuildError, got %T", err)
	}
	if len(buildErr.Issues) == 0 {
		t.Fatalf("expected formatted validation issues on the build error")
	}
}
