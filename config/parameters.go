package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"
)

// ErrParameterConflict is returned when a controller parameter is given in more than one place.
var ErrParameterConflict = errors.New("controller parameter conflict")

// ParameterConflictError names the parameter that was given both as an explicit override and in the input file.
type ParameterConflictError struct {
	Key string
}

func (err ParameterConflictError) Error() string {
	return fmt.Sprintf("found key %q both in the input controller section and in the controller parameters", err.Key)
}

func (err ParameterConflictError) Unwrap() error {
	return ErrParameterConflict
}

// MergeParameters combines explicitly supplied `overrides` with the `embedded` controller section of the input file.
// A key present in both is an error rather than one source silently winning.
func MergeParameters(overrides, embedded map[string]any) (map[string]any, error) {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	merged := make(map[string]any, len(overrides)+len(embedded))
	for _, k := range keys {
		if _, found := embedded[k]; found {
			return nil, ParameterConflictError{Key: k}
		}
		merged[k] = overrides[k]
	}
	for k, v := range embedded {
		merged[k] = v
	}
	return merged, nil
}

// DecodeParameters decodes `params` into the struct pointed to by `out`, which should already hold the defaults. Only
// the keys present in `params` are overwritten. The keys that `out` does not recognise are returned, sorted.
func DecodeParameters(params map[string]any, out any) ([]string, error) {
	var metadata mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Metadata:         &metadata,
		Result:           out,
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}

	err = decoder.Decode(params)
	if err != nil {
		return nil, fmt.Errorf("decode controller parameters: %w", err)
	}

	unused := append([]string{}, metadata.Unused...)
	sort.Strings(unused)
	return unused, nil
}
