package form

import (
	"fmt"
	"log"
	"time"

	"github.com/viant/formflow/fieldtype"
	"github.com/viant/formflow/guidance"
	"github.com/viant/formflow/schema"
)

var logger = log.New(log.Writer(), "[form] ", log.LstdFlags)

// GenerateOptions configures a single form-generation call.
type GenerateOptions struct {
	ToolName        string
	ToolDescription string
	OriginalPrompt  string
	// FocusedSchema indicates the caller already narrowed obj to only the
	// fields it wants filled; when true, every field in obj is included.
	FocusedSchema bool
	Types         *fieldtype.Registry
	Guidance      *guidance.Registry
	Now           func() time.Time
}

func (o GenerateOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// GenerateFormFromSchema implements spec.md §4.7's `generateFormFromSchema`
// entry point.
func GenerateFormFromSchema(obj *schema.Object, partialInput map[string]interface{}, opts GenerateOptions, preCalculatedMissingFields []string) (*Message, error) {
	if obj == nil {
		return nil, fmt.Errorf("form: no schema available for %q", opts.ToolName)
	}
	if partialInput == nil {
		partialInput = map[string]interface{}{}
	}

	selected := selectFields(obj, partialInput, opts.FocusedSchema, preCalculatedMissingFields)
	fields := buildFields(obj, selected, opts)
	orderFields(obj, fields)

	globalGuidance := (*guidance.GlobalGuidance)(nil)
	if opts.Guidance != nil {
		globalGuidance = opts.Guidance.GetGlobalGuidance(opts.ToolName)
	}

	cfg := Config{
		Title:       fmt.Sprintf("Complete %s Information", titleSubject(opts.ToolName)),
		Description: buildDescription(fields, globalGuidance),
		Fields:      fields,
		SubmitLabel: "Submit",
		CancelLabel: "Cancel",
	}

	jsonSchema := schema.ToJSONSchemaDraft7(obj)
	uiSchema := buildUISchema(fields)

	return &Message{
		ID:             NewFormID(opts.now()),
		FormConfig:     cfg,
		OriginalPrompt: opts.OriginalPrompt,
		ToolName:       opts.ToolName,
		PartialInput:   partialInput,
		JSONSchema:     jsonSchema,
		UISchema:       uiSchema,
	}, nil
}

// GenerateFormFromError implements the error-driven form path: the missing
// field set comes directly from a prior schema-validation result's
// "required" issues.
func GenerateFormFromError(issues []schema.Issue, obj *schema.Object, toolName, originalPrompt string, opts GenerateOptions) (*Message, error) {
	var missing []string
	for _, issue := range issues {
		if issue.Code == "required" {
			missing = append(missing, issue.Path)
		}
	}
	opts.ToolName = toolName
	opts.OriginalPrompt = originalPrompt
	msg, err := GenerateFormFromSchema(obj, nil, opts, missing)
	if err != nil {
		return nil, err
	}
	msg.ValidationErrors = issues
	return msg, nil
}

// GenerateJSONSchemaForm projects obj to a JSON Schema draft-7 document
// (optionally filtered to missingFields) plus its ui-schema companion, per
// spec.md §4.7.
func GenerateJSONSchemaForm(obj *schema.Object, partialInput map[string]interface{}, missingFields []string) (map[string]interface{}, map[string]interface{}) {
	if obj == nil {
		return map[string]interface{}{}, map[string]interface{}{}
	}
	doc := schema.ToJSONSchemaDraft7(obj)
	if len(missingFields) > 0 {
		want := map[string]bool{}
		for _, f := range missingFields {
			want[f] = true
		}
		if props, ok := doc["properties"].(map[string]interface{}); ok {
			filtered := map[string]interface{}{}
			for k, v := range props {
				if want[k] {
					filtered[k] = v
				}
			}
			doc["properties"] = filtered
		}
		if req, ok := doc["required"].([]string); ok {
			var filtered []string
			for _, r := range req {
				if want[r] {
					filtered = append(filtered, r)
				}
			}
			doc["required"] = filtered
		}
	}

	fields := buildFields(obj, selectedSet(missingFields), GenerateOptions{})
	ui := buildUISchema(fields)
	return doc, ui
}

// titleSubject humanizes a tool name and drops a trailing "Tool" word,
// matching the form-title convention spec.md §8's worked example uses
// ("CreateNftTool" → "Create Nft").
func titleSubject(toolName string) string {
	humanized := Humanize(toolName)
	const suffix = " Tool"
	if len(humanized) > len(suffix) && humanized[len(humanized)-len(suffix):] == suffix {
		return humanized[:len(humanized)-len(suffix)]
	}
	return humanized
}

func selectedSet(names []string) map[string]bool {
	out := map[string]bool{}
	for _, n := range names {
		out[n] = true
	}
	return out
}

// selectFields implements spec.md §4.7's field-selection precedence:
// preCalculated set → focused-schema include-all → missing-and-required.
func selectFields(obj *schema.Object, partialInput map[string]interface{}, focused bool, preCalculated []string) map[string]bool {
	if len(preCalculated) > 0 {
		return selectedSet(preCalculated)
	}
	if focused {
		out := map[string]bool{}
		for _, f := range obj.Fields {
			out[f.Name] = true
		}
		return out
	}
	out := map[string]bool{}
	for _, f := range obj.Fields {
		if !f.IsRequired() {
			continue
		}
		if _, present := partialInput[f.Name]; present {
			continue
		}
		out[f.Name] = true
	}
	return out
}

func buildFields(obj *schema.Object, selected map[string]bool, opts GenerateOptions) []Field {
	var out []Field
	for _, sf := range obj.Fields {
		if !selected[sf.Name] {
			continue
		}
		out = append(out, buildField(sf, opts))
	}
	return out
}

func buildField(sf *schema.Field, opts GenerateOptions) Field {
	required := sf.IsRequired()

	ft := inferFieldType(sf, opts.Types)
	var fg *guidance.FieldGuidance
	if opts.Guidance != nil {
		fg = opts.Guidance.GetFieldGuidance(opts.ToolName, sf.Name)
		if fg != nil && fg.FieldTypeOverride != "" {
			ft = FieldType(fg.FieldTypeOverride)
		}
	}

	priority := inferPriority(sf, required)

	field := Field{
		Name:         sf.Name,
		Label:        Humanize(sf.Name),
		Type:         ft,
		Required:     required,
		Priority:     priority,
		DefaultValue: sf.Default,
	}
	if sf.Kind == schema.KindEnum {
		field.Options = sf.Enum
	}
	if fg != nil {
		field.Suggestions = fg.Suggestions
		field.Options = append(field.Options, fg.PredefinedOptions...)
		field.Warnings = fg.Warnings
		field.Validation = fg.ValidationRules
		field.ContextualGuidance = fg.ContextualHelpText
		field.HelpText = fg.ContextualHelpText
	}
	return field
}

// inferFieldType implements spec.md §4.7's type-inference precedence:
// explicit render-config fieldType → schema-derived inference → name-based
// C5 detection → "text". Guidance overrides are applied by the caller.
func inferFieldType(f *schema.Field, types *fieldtype.Registry) FieldType {
	if f.RenderConfig != nil && f.RenderConfig.FieldType != "" {
		return FieldType(f.RenderConfig.FieldType)
	}

	switch f.Kind {
	case schema.KindBoolean:
		return FieldCheckbox
	case schema.KindEnum:
		return FieldSelect
	case schema.KindArray:
		return FieldArray
	case schema.KindObject:
		return FieldObject
	case schema.KindNumber:
		if types != nil {
			if t := types.DetectType(f.Name); t == "currency" || t == "percentage" {
				return FieldType(t)
			}
		}
		return FieldNumber
	case schema.KindString:
		if looksLikeTextarea(f.Name) {
			return FieldTextarea
		}
	}

	if types != nil {
		if t := types.DetectType(f.Name); t != "" && t != "text" {
			return FieldType(t)
		}
	}
	return FieldText
}

func looksLikeTextarea(name string) bool {
	for _, suffix := range []string{"memo", "description", "notes", "comment"} {
		if len(name) >= len(suffix) && equalFoldSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func equalFoldSuffix(s, suffix string) bool {
	if len(s) < len(suffix) {
		return false
	}
	tail := s[len(s)-len(suffix):]
	for i := 0; i < len(tail); i++ {
		a, b := tail[i], suffix[i]
		if a >= 'A' && a <= 'Z' {
			a += 'a' - 'A'
		}
		if b >= 'A' && b <= 'Z' {
			b += 'a' - 'A'
		}
		if a != b {
			return false
		}
	}
	return true
}

// inferPriority implements spec.md §4.7: explicit ui.priority → essential
// if required → advanced/expert if flagged → common.
func inferPriority(f *schema.Field, required bool) Priority {
	if f.RenderConfig != nil && f.RenderConfig.Priority != "" {
		return Priority(f.RenderConfig.Priority)
	}
	if required {
		return PriorityEssential
	}
	if f.RenderConfig != nil {
		if f.RenderConfig.Expert {
			return PriorityExpert
		}
		if f.RenderConfig.Advanced {
			return PriorityAdvanced
		}
	}
	return PriorityCommon
}

// orderFields sorts fields in place per spec.md §3's ordering rule:
// schema section order first, then declaration order, no duplicates.
func orderFields(obj *schema.Object, fields []Field) {
	order := obj.OrderedFieldNames()
	rank := map[string]int{}
	for i, name := range order {
		rank[name] = i
	}
	for i := 1; i < len(fields); i++ {
		j := i
		for j > 0 && rank[fields[j-1].Name] > rank[fields[j].Name] {
			fields[j-1], fields[j] = fields[j], fields[j-1]
			j--
		}
	}
}

func buildDescription(fields []Field, global *guidance.GlobalGuidance) string {
	n := 0
	for _, f := range fields {
		if f.Required {
			n++
		}
	}
	var desc string
	if n == 0 {
		desc = "Please provide the following information to continue."
	} else {
		plural := "s"
		if n == 1 {
			plural = ""
		}
		desc = fmt.Sprintf("Please provide the following %d required field%s to continue.", n, plural)
	}
	if global != nil && len(global.QualityStandards) > 0 {
		desc += "\n\nQuality Guidelines:"
		for _, q := range global.QualityStandards {
			desc += "\n- " + q
		}
	}
	return desc
}

// buildUISchema emits the ui-schema companion per spec.md §4.7: collapse
// attributes/metadata/properties, mark required fields with
// "ui:help":"Required field", collapse advanced/expert priority fields.
func buildUISchema(fields []Field) map[string]interface{} {
	ui := map[string]interface{}{}
	for _, f := range fields {
		node := map[string]interface{}{}
		if f.Required {
			node["ui:help"] = "Required field"
		}
		switch f.Name {
		case "attributes", "metadata", "properties":
			node["ui:collapsed"] = true
		}
		if f.Priority == PriorityAdvanced || f.Priority == PriorityExpert {
			node["ui:collapsed"] = true
		}
		if len(node) > 0 {
			ui[f.Name] = node
		}
	}
	return ui
}
