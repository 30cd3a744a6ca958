package tools

import (
	"errors"
	"fmt"
	"math"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrInvalidArguments marks argument payloads that do not match a schema.
var ErrInvalidArguments = errors.New("invalid arguments")

// ParseArguments decodes a JSON object payload. Empty and null payloads
// decode to an empty map.
func ParseArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("%w: arguments must be a JSON object: %v", ErrInvalidArguments, err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// Validate checks args against schema: required fields present and non-null,
// declared types respected, integers integral, no undeclared fields.
// Null optional fields are dropped from args.
func Validate(schema ArgSchema, args map[string]any) error {
	for _, f := range schema {
		v, ok := args[f.Name]
		if !ok || v == nil {
			if f.Required {
				return fmt.Errorf("%w: missing required field: %s", ErrInvalidArguments, f.Name)
			}
			delete(args, f.Name)
			continue
		}
		if err := validateType(v, f.Type); err != nil {
			return fmt.Errorf("%w: field %s: %v", ErrInvalidArguments, f.Name, err)
		}
	}

	for k := range args {
		if _, ok := schema.Lookup(k); !ok {
			return fmt.Errorf("%w: unknown field: %s", ErrInvalidArguments, k)
		}
	}
	return nil
}

func validateType(value any, expected string) error {
	switch expected {
	case TypeString:
		if _, ok := value.(string); ok {
			return nil
		}
	case TypeNumber:
		if isNumber(value) {
			return nil
		}
	case TypeInteger:
		if isInteger(value) {
			return nil
		}
	case TypeBoolean:
		if _, ok := value.(bool); ok {
			return nil
		}
	case TypeObject:
		if _, ok := value.(map[string]any); ok {
			return nil
		}
	case TypeArray:
		if _, ok := value.([]any); ok {
			return nil
		}
	default:
		return fmt.Errorf("unsupported schema type %q", expected)
	}
	return fmt.Errorf("expected %s but got %T", expected, value)
}

func isNumber(value any) bool {
	switch value.(type) {
	case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return math.Trunc(float64(v)) == float64(v)
	case float64:
		return !math.IsInf(v, 0) && math.Trunc(v) == v
	}
	return false
}

// StringArg returns args[name] as a trimmed string.
func StringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return strings.TrimSpace(s)
}

// IntArg returns args[name] as an int. ok is false when it is absent.
func IntArg(args map[string]any, name string) (int, bool) {
	switch v := args[name].(type) {
	case float64:
		return int(v), true
	case float32:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}
