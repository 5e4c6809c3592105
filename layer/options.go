package layer

import (
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// DecodeOptions decodes free-form adapter options into out (a pointer to a struct
// tagged with `mapstructure`). Unknown keys are rejected. Durations accept Go
// duration strings ("30s") or plain numbers, read as seconds.
// Errors wrap ErrInvalidConfig.
func DecodeOptions(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			secondsToDuration,
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func secondsToDuration(from, to reflect.Type, data any) (any, error) {
	if to != durationType || from == durationType {
		return data, nil
	}
	switch v := data.(type) {
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case uint64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	}
	return data, nil
}

// Missing returns an ErrInvalidConfig error naming a required option.
func Missing(adapter, option string) error {
	return fmt.Errorf("%w: %s: missing required option %q", ErrInvalidConfig, adapter, option)
}
