// Package schema declares structured-output contracts and validates model
// responses against them. A Schema is data, not a type hierarchy, so it can
// be constructed at init time, serialized alongside a RouterConfig, and
// compared in tests.
package schema

import "fmt"

// FieldType enumerates the primitive shapes a field can take.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeInt    FieldType = "int"
	TypeFloat  FieldType = "float"
	TypeBool   FieldType = "bool"
	TypeArray  FieldType = "array"
	TypeObject FieldType = "object"
)

// FieldSpec declares the shape of a single field within a Schema.
type FieldSpec struct {
	Type     FieldType
	Required bool
	Enum     []string
	// Default, when non-nil, is patched into a response before validation
	// if the field is absent. Lets a schema tolerate a model that omits an
	// optional field entirely rather than emitting an explicit zero value.
	Default any
}

// Schema is a declarative, serializable field-shape contract.
type Schema struct {
	Name   string
	Fields map[string]FieldSpec
}

// Get returns the spec for a named field and whether it exists.
func (s *Schema) Get(name string) (FieldSpec, bool) {
	spec, ok := s.Fields[name]
	return spec, ok
}

// ModerationResultSchema is the declared shape of a ModerationResult.
var ModerationResultSchema = &Schema{
	Name: "moderation_result",
	Fields: map[string]FieldSpec{
		"language":      {Type: TypeString, Required: true},
		"language_code": {Type: TypeString, Required: true},
		"severity":      {Type: TypeString, Required: true, Enum: []string{"safe", "warning", "critical"}},
		"categories":    {Type: TypeArray, Required: false, Default: []any{}},
		"confidence":    {Type: TypeFloat, Required: true},
		"risk_score":    {Type: TypeFloat, Required: true},
		"flagged":       {Type: TypeBool, Required: true},
		"reasoning":     {Type: TypeString, Required: false, Default: ""},
	},
}

// ExtractionEntitySchema is the declared shape of a single extracted entity
// mention, used by the pipeline's extraction mode before reduction.
var ExtractionEntitySchema = &Schema{
	Name: "extraction_entity",
	Fields: map[string]FieldSpec{
		"class": {Type: TypeString, Required: true, Enum: []string{"person", "company", "concept", "relationship"}},
		"name":  {Type: TypeString, Required: true},
		"role":  {Type: TypeString, Required: false, Default: ""},
	},
}

// SummarySchema is the declared shape of a free-form summary response.
var SummarySchema = &Schema{
	Name: "summary",
	Fields: map[string]FieldSpec{
		"summary": {Type: TypeString, Required: true},
	},
}

func (t FieldType) String() string {
	return string(t)
}

func fieldErr(name, msg string) error {
	return fmt.Errorf("field %q: %s", name, msg)
}
