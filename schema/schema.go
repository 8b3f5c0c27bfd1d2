// Package schema implements the structured type system formflow's form
// subsystem relies on: object schemas with per-field typing, optionality,
// defaults, a safe-parse sum-type result, and a draft-7 JSON Schema
// projector. It plays the role spec.md calls the "Schema validator"
// external collaborator, made concrete so the rest of the module has a
// single type graph to share.
package schema

import (
	"reflect"
	"sort"
	"strings"
)

// Kind is the base type of a schema field.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindEnum    Kind = "enum"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
)

// Field describes one named member of an Object schema.
type Field struct {
	Name       string
	Kind       Kind
	Required   bool
	Nullable   bool
	Default    interface{}
	Enum       []string
	Items      *Field
	Properties *Object

	// RenderConfig carries UI hints embedded directly on the schema node,
	// consumed by the form generator's type/priority inference.
	RenderConfig *RenderConfig

	// Section places the field in a named declaration group; the form
	// generator orders fields by section first, declaration order second.
	Section string
}

// RenderConfig is optional, explicit UI guidance embedded on a schema Field.
type RenderConfig struct {
	FieldType string
	Priority  string // essential|common|advanced|expert
	Help      string
	Advanced  bool
	Expert    bool
}

// IsOptional reports whether the field is declared optional (Required is
// false). A nullable or defaulted field may also be omitted; see IsRequired.
func (f *Field) IsOptional() bool {
	return !f.Required
}

// IsRequired mirrors spec.md's invariant: required iff neither optional,
// nullable, nor defaulted.
func (f *Field) IsRequired() bool {
	return f.Required && !f.Nullable && f.Default == nil
}

// Object is a schema for a structured object: an ordered set of fields.
type Object struct {
	Name    string
	Fields  []*Field
	bySect  map[string][]string
	sectSeq []string
}

// NewObject creates an empty Object schema.
func NewObject(name string) *Object {
	return &Object{Name: name, bySect: map[string][]string{}}
}

// AddField appends a field to the schema, tracking its declaration section.
func (o *Object) AddField(f *Field) {
	o.Fields = append(o.Fields, f)
	if f.Section != "" {
		if _, ok := o.bySect[f.Section]; !ok {
			o.sectSeq = append(o.sectSeq, f.Section)
		}
		o.bySect[f.Section] = append(o.bySect[f.Section], f.Name)
	}
}

// Field looks up a field by name.
func (o *Object) Field(name string) (*Field, bool) {
	for _, f := range o.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// RequiredFields returns the names of every required field, in declaration
// order.
func (o *Object) RequiredFields() []string {
	var out []string
	for _, f := range o.Fields {
		if f.IsRequired() {
			out = append(out, f.Name)
		}
	}
	return out
}

// OrderedFieldNames implements spec.md §3's form-field ordering rule:
// fields in the schema's declared section ordering first (in their given
// sequence), then the remaining fields in schema declaration order, with no
// duplicates.
func (o *Object) OrderedFieldNames() []string {
	seen := map[string]bool{}
	var out []string
	for _, sect := range o.sectSeq {
		for _, name := range o.bySect[sect] {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	for _, f := range o.Fields {
		if !seen[f.Name] {
			seen[f.Name] = true
			out = append(out, f.Name)
		}
	}
	return out
}

// FromStruct builds an Object schema by reflecting over a Go struct type's
// `json` tags, following the same embedded-field inlining and
// omitempty-as-optional convention used elsewhere in this codebase's MCP
// tool-schema adapter.
func FromStruct(t reflect.Type) *Object {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	obj := NewObject(t.Name())
	if t.Kind() != reflect.Struct {
		return obj
	}
	appendStructFields(obj, t)
	return obj
}

func appendStructFields(obj *Object, t reflect.Type) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" && !sf.Anonymous {
			continue // unexported
		}
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts := parseJSONTag(tag, sf.Name)
		omitempty := strings.Contains(opts, "omitempty")

		ft := sf.Type
		for ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		if sf.Anonymous && ft.Kind() == reflect.Struct && name == sf.Name {
			appendStructFields(obj, ft)
			continue
		}

		field := &Field{
			Name:     name,
			Kind:     kindForType(ft),
			Required: !omitempty && sf.Type.Kind() != reflect.Ptr,
			Nullable: sf.Type.Kind() == reflect.Ptr,
		}
		if field.Kind == KindArray {
			elem := ft.Elem()
			for elem.Kind() == reflect.Ptr {
				elem = elem.Elem()
			}
			field.Items = &Field{Name: name + "[]", Kind: kindForType(elem)}
			if elem.Kind() == reflect.Struct {
				field.Items.Properties = FromStruct(elem)
			}
		}
		if field.Kind == KindObject {
			field.Properties = FromStruct(ft)
		}
		if v := sf.Tag.Get("required"); v == "false" {
			field.Required = false
		}
		obj.AddField(field)
	}
}

// FromJSONSchema builds an Object schema from a JSON-Schema "properties"
// map and a "required" name list — the mirror image of
// ToJSONSchemaDraft7 — for tools that describe their input contract as a
// JSON Schema document (the OpenAI-style `ToolDefinition.Parameters`
// contract) rather than a Go struct. Property order is not recoverable
// from a decoded JSON object, so fields are added in sorted-name order.
func FromJSONSchema(name string, properties map[string]interface{}, required []string) *Object {
	obj := NewObject(name)
	req := map[string]bool{}
	for _, r := range required {
		req[r] = true
	}
	names := make([]string, 0, len(properties))
	for n := range properties {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		node, _ := properties[n].(map[string]interface{})
		obj.AddField(fieldFromJSONSchema(n, node, req[n]))
	}
	return obj
}

func fieldFromJSONSchema(name string, node map[string]interface{}, required bool) *Field {
	f := &Field{Name: name, Required: required}

	typ, _ := node["type"].(string)
	switch typ {
	case "number", "integer":
		f.Kind = KindNumber
	case "boolean":
		f.Kind = KindBoolean
	case "array":
		f.Kind = KindArray
		if items, ok := node["items"].(map[string]interface{}); ok {
			f.Items = fieldFromJSONSchema(name+"[]", items, false)
		}
	case "object":
		f.Kind = KindObject
		if props, ok := node["properties"].(map[string]interface{}); ok {
			f.Properties = FromJSONSchema(name, props, nil)
		}
	default:
		f.Kind = KindString
	}

	if enumRaw, ok := node["enum"].([]interface{}); ok && len(enumRaw) > 0 {
		f.Kind = KindEnum
		for _, e := range enumRaw {
			if s, ok := e.(string); ok {
				f.Enum = append(f.Enum, s)
			}
		}
	}
	if d, ok := node["default"]; ok {
		f.Default = d
	}
	if b, ok := node["nullable"].(bool); ok {
		f.Nullable = b
	}
	return f
}

func kindForType(t reflect.Type) Kind {
	switch t.Kind() {
	case reflect.String:
		return KindString
	case reflect.Bool:
		return KindBoolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return KindNumber
	case reflect.Slice, reflect.Array:
		return KindArray
	case reflect.Struct, reflect.Map:
		return KindObject
	default:
		return KindString
	}
}

func parseJSONTag(tag, fallback string) (name string, opts string) {
	if tag == "" {
		return fallback, ""
	}
	parts := strings.SplitN(tag, ",", 2)
	name = parts[0]
	if name == "" {
		name = fallback
	}
	if len(parts) > 1 {
		opts = parts[1]
	}
	return name, opts
}
