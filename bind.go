package ruleengine

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// BindConfig decodes an ActionDefinition's opaque Config map into a typed
// struct, for ActionProviders that want a concrete shape instead of
// manual map[string]any lookups. Field matching is case-insensitive and
// honors `mapstructure:"..."` tags the same way a custom ActionProvider's
// config struct would declare them.
func BindConfig(config map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      false,
	})
	if err != nil {
		return fmt.Errorf("failed to build config decoder: %w", err)
	}
	if err := decoder.Decode(config); err != nil {
		return fmt.Errorf("failed to bind action config: %w", err)
	}
	return nil
}
