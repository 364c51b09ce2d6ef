// Package configbinder binds loosely typed property maps (decoded JSON or YAML)
// onto typed configuration structs using mapstructure.
package configbinder

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// TagName is the struct tag consulted for property names.
const TagName = "json"

// MissingKeysError lists required properties that were absent from the input.
type MissingKeysError struct {
	Target string
	Keys   []string
}

func (e *MissingKeysError) Error() string {
	return fmt.Sprintf("%s: missing required keys: %s", e.Target, strings.Join(e.Keys, ", "))
}

// BindProperties binds properties onto target, which must be a pointer to a struct.
// Unknown keys are ignored. Strings are weakly converted to numbers and
// durations ("P0DT1H0M0S" or "1h30m") are decoded into time.Duration fields.
func BindProperties(properties map[string]interface{}, target interface{}) error {
	_, err := decode(properties, target)
	return err
}

// BindStrict binds like BindProperties and additionally fails with a
// *MissingKeysError when any of the required top-level keys is absent.
func BindStrict(properties map[string]interface{}, target interface{}, required ...string) error {
	md, err := decode(properties, target)
	if err != nil {
		return err
	}

	unset := make(map[string]struct{}, len(md.Unset))
	for _, k := range md.Unset {
		unset[k] = struct{}{}
	}
	var missing []string
	for _, k := range required {
		if v, ok := properties[k]; !ok || v == nil {
			missing = append(missing, k)
			continue
		}
		if _, ok := unset[k]; ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &MissingKeysError{Target: typeName(target), Keys: missing}
	}
	return nil
}

func decode(properties map[string]interface{}, target interface{}) (*mapstructure.Metadata, error) {
	md := &mapstructure.Metadata{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata:         md,
		Result:           target,
		TagName:          TagName,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(ISODurationHook()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}
	if err := decoder.Decode(properties); err != nil {
		return nil, fmt.Errorf("failed to bind properties to struct %s: %w", typeName(target), err)
	}
	return md, nil
}

func typeName(target interface{}) string {
	t := reflect.TypeOf(target)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return "<nil>"
	}
	return t.Name()
}

// ISODurationHook converts strings into time.Duration using ParseDuration.
func ISODurationHook() mapstructure.DecodeHookFuncType {
	durationType := reflect.TypeOf(time.Duration(0))
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to != durationType {
			return data, nil
		}
		return ParseDuration(data.(string))
	}
}
