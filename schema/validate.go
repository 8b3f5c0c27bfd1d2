package schema

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Issue is one validation problem, matching spec.md §6's
// `{path, code, message}` shape.
type Issue struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ParseResult is the sum-type `ok | err(issues[])` spec.md §6 requires.
type ParseResult struct {
	OK     bool
	Issues []Issue
}

// SafeParse validates data against the object schema's required fields and
// coarse type shape, never panicking or returning a Go error: callers get a
// result value they can branch on, per spec.md §6/§7.
func SafeParse(o *Object, data map[string]interface{}) ParseResult {
	var issues []Issue
	for _, f := range o.Fields {
		v, present := data[f.Name]
		if !present {
			if f.IsRequired() {
				issues = append(issues, Issue{Path: f.Name, Code: "required", Message: fmt.Sprintf("%q is required", f.Name)})
			}
			continue
		}
		if v == nil {
			if !f.Nullable {
				issues = append(issues, Issue{Path: f.Name, Code: "invalid_type", Message: fmt.Sprintf("%q must not be null", f.Name)})
			}
			continue
		}
		if !kindMatches(f.Kind, v) {
			issues = append(issues, Issue{Path: f.Name, Code: "invalid_type", Message: fmt.Sprintf("%q does not match expected type %s", f.Name, f.Kind)})
		}
	}
	return ParseResult{OK: len(issues) == 0, Issues: issues}
}

func kindMatches(k Kind, v interface{}) bool {
	switch k {
	case KindString:
		_, ok := v.(string)
		return ok
	case KindNumber:
		switch v.(type) {
		case float64, float32, int, int64, int32:
			return true
		}
		return false
	case KindBoolean:
		_, ok := v.(bool)
		return ok
	case KindArray:
		_, ok := v.([]interface{})
		return ok
	case KindObject:
		_, ok := v.(map[string]interface{})
		return ok
	default:
		return true
	}
}

// ToJSONSchemaDraft7 renders the object schema as a JSON Schema draft-7
// document.
func ToJSONSchemaDraft7(o *Object) map[string]interface{} {
	props := map[string]interface{}{}
	var required []string
	for _, f := range o.Fields {
		props[f.Name] = fieldToJSONSchema(f)
		if f.IsRequired() {
			required = append(required, f.Name)
		}
	}
	doc := map[string]interface{}{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	return doc
}

func fieldToJSONSchema(f *Field) map[string]interface{} {
	node := map[string]interface{}{}
	switch f.Kind {
	case KindString:
		node["type"] = "string"
	case KindNumber:
		node["type"] = "number"
	case KindBoolean:
		node["type"] = "boolean"
	case KindEnum:
		node["type"] = "string"
		if len(f.Enum) > 0 {
			vals := make([]interface{}, len(f.Enum))
			for i, e := range f.Enum {
				vals[i] = e
			}
			node["enum"] = vals
		}
	case KindArray:
		node["type"] = "array"
		if f.Items != nil {
			node["items"] = fieldToJSONSchema(f.Items)
		}
	case KindObject:
		node["type"] = "object"
		if f.Properties != nil {
			node["properties"] = ToJSONSchemaDraft7(f.Properties)["properties"]
		}
	}
	if f.Default != nil {
		node["default"] = f.Default
	}
	if f.Nullable {
		node["nullable"] = true
	}
	return node
}

// Validate checks arbitrary JSON-shaped data against the object's draft-7
// projection using the real gojsonschema validator.
func Validate(o *Object, data map[string]interface{}) (bool, []Issue, error) {
	schemaDoc := ToJSONSchemaDraft7(o)
	schemaBytes, err := json.Marshal(schemaDoc)
	if err != nil {
		return false, nil, fmt.Errorf("marshal schema: %w", err)
	}
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return false, nil, fmt.Errorf("marshal data: %w", err)
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaBytes)
	docLoader := gojsonschema.NewBytesLoader(dataBytes)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return false, nil, fmt.Errorf("validate: %w", err)
	}
	if result.Valid() {
		return true, nil, nil
	}
	issues := make([]Issue, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		issues = append(issues, Issue{Path: e.Field(), Code: e.Type(), Message: e.Description()})
	}
	return false, issues, nil
}
