package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Validator maps a model's raw structured-output bytes into a typed value,
// or returns an error describing why the output does not satisfy s.
type Validator interface {
	Validate(raw []byte, s *Schema) (map[string]any, error)
}

// DefaultValidator is a declarative, reflection-free validator: it walks the
// Schema's field list, patches in defaults for fields a model omitted, then
// checks type and enum constraints on whatever remains.
type DefaultValidator struct{}

// NewDefaultValidator constructs the default validator.
func NewDefaultValidator() *DefaultValidator {
	return &DefaultValidator{}
}

// Probe does a single-field, allocation-light lookup without a full decode,
// for hot-path checks (e.g. "does this response carry an error field")
// before committing to the full Validate pass.
func Probe(raw []byte, field string) gjson.Result {
	return gjson.GetBytes(raw, field)
}

func (v *DefaultValidator) Validate(raw []byte, s *Schema) (map[string]any, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil schema", ErrValidation)
	}
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidJSON
	}

	patched := raw
	for name, spec := range s.Fields {
		if spec.Default == nil {
			continue
		}
		if gjson.GetBytes(patched, name).Exists() {
			continue
		}
		next, err := sjson.SetBytes(patched, name, spec.Default)
		if err != nil {
			return nil, fmt.Errorf("%w: defaulting %q: %v", ErrValidation, name, err)
		}
		patched = next
	}

	var decoded map[string]any
	if err := json.Unmarshal(patched, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	var problems []string
	for name, spec := range s.Fields {
		val, present := decoded[name]
		if !present {
			if spec.Required {
				problems = append(problems, fmt.Sprintf("%s: required field missing", name))
			}
			continue
		}
		if err := checkField(val, spec); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", name, err))
		}
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return decoded, nil
}

func checkField(val any, spec FieldSpec) error {
	switch spec.Type {
	case TypeString:
		s, ok := val.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", val)
		}
		if len(spec.Enum) > 0 && !contains(spec.Enum, s) {
			return fmt.Errorf("value %q not in enum %v", s, spec.Enum)
		}
	case TypeInt, TypeFloat:
		if _, ok := val.(float64); !ok {
			return fmt.Errorf("expected number, got %T", val)
		}
	case TypeBool:
		if _, ok := val.(bool); !ok {
			return fmt.Errorf("expected bool, got %T", val)
		}
	case TypeArray:
		if _, ok := val.([]any); !ok {
			return fmt.Errorf("expected array, got %T", val)
		}
	case TypeObject:
		if _, ok := val.(map[string]any); !ok {
			return fmt.Errorf("expected object, got %T", val)
		}
	}
	return nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
