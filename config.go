package ruleengine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

var structValidate = validator.New()

// ApplyDefaults fills zero-valued GlobalSettings fields from their
// `default:"..."` struct tags (maxExecutionDepth 50, timeoutMs 30000),
// mirroring runtime/config.go's ApplyDefaults helper.
func ApplyDefaults(settings *GlobalSettings) error {
	if err := defaults.Set(settings); err != nil {
		return fmt.Errorf("failed to apply default values: %w", err)
	}
	return nil
}

// validateStruct runs go-playground/validator's struct-tag checks over
// GlobalSettings (gte=1 on MaxExecutionDepth/TimeoutMs), returning a
// readable multi-error message the same way runtime/config.go's
// validateConfig does.
func validateStruct(settings GlobalSettings) error {
	if err := structValidate.Struct(settings); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			var msgs []string
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("field %q failed validation: %s (rule: %s)", fe.Field(), fe.Error(), fe.Tag()))
			}
			return fmt.Errorf("global settings validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
		}
		return fmt.Errorf("global settings validation failed: %w", err)
	}
	return nil
}

// configWrapper recognizes the optional top-level `{ruleEngineConfig: ...}`
// wrapper named in §6 and unwraps it.
type configWrapper struct {
	RuleEngineConfig *RuleEngineConfig `json:"ruleEngineConfig"`
}

// LoadConfig parses raw JSON bytes into a RuleEngineConfig. Origin is a
// caller-supplied label (not a path the core reads itself — file access
// is explicitly out of scope per §1) used only to annotate a
// ConfigurationError. Unknown keys are accepted for forward compatibility,
// and single-value scalars are coerced into one-element arrays wherever
// an array was expected (§6).
func LoadConfig(data []byte, origin string) (*RuleEngineConfig, error) {
	normalized, err := normalizeScalarsToArrays(data)
	if err != nil {
		return nil, &ConfigurationError{Origin: origin, Err: err}
	}

	var wrapper configWrapper
	if err := json.Unmarshal(normalized, &wrapper); err == nil && wrapper.RuleEngineConfig != nil {
		cfg := wrapper.RuleEngineConfig
		if err := ApplyDefaults(&cfg.GlobalSettings); err != nil {
			return nil, &ConfigurationError{Origin: origin, Err: err}
		}
		return cfg, nil
	}

	var cfg RuleEngineConfig
	if err := json.Unmarshal(normalized, &cfg); err != nil {
		return nil, &ConfigurationError{Origin: origin, Err: err}
	}
	if err := ApplyDefaults(&cfg.GlobalSettings); err != nil {
		return nil, &ConfigurationError{Origin: origin, Err: err}
	}
	return &cfg, nil
}

// normalizeScalarsToArrays walks the decoded JSON tree and wraps any
// scalar value sitting where `rules`, `actions`, or `transitions` expects
// an array into a one-element array, per §6's forward-compatibility rule.
func normalizeScalarsToArrays(data []byte) ([]byte, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	fixArrayFields(raw, map[string]bool{"rules": true, "actions": true, "transitions": true})
	return json.Marshal(raw)
}

func fixArrayFields(node any, arrayFields map[string]bool) {
	switch t := node.(type) {
	case map[string]any:
		for k, v := range t {
			if arrayFields[k] {
				if _, isArray := v.([]any); !isArray && v != nil {
					t[k] = []any{v}
					v = t[k]
				}
			}
			fixArrayFields(v, arrayFields)
		}
	case []any:
		for _, v := range t {
			fixArrayFields(v, arrayFields)
		}
	}
}
