package ruleengine

import "testing"

type httpActionConfig struct {
	URL     string `mapstructure:"url"`
	Method  string `mapstructure:"method"`
	Retries int    `mapstructure:"retries"`
}

func TestBindConfig_DecodesMapIntoTypedStruct(t *testing.T) {
	var cfg httpActionConfig
	err := BindConfig(map[string]any{
		"url":     "https://example.com",
		"method":  "POST",
		"retries": "3", // weakly-typed: string coerces to int
	}, &cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.URL != "https://example.com" || cfg.Method != "POST" || cfg.Retries != 3 {
		t.Fatalf("unexpected decoded config: %+v", cfg)
	}
}
