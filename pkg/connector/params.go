package connector

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/leapstack-labs/leapflow/pkg/value"
)

// DecodeParams decodes a resolved params object into a connector's
// typed params struct. A nil object leaves out untouched, so defaults
// set beforehand survive.
func DecodeParams(params *value.Object, out any) error {
	if params == nil {
		return nil
	}
	raw, ok := value.ToAny(params).(map[string]any)
	if !ok {
		return fmt.Errorf("params must be an object")
	}
	if err := mapstructure.Decode(raw, out); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}
