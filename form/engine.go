package form

import (
	"fmt"

	"github.com/viant/formflow/chat"
	"github.com/viant/formflow/schema"
)

// Strategy names a way the engine decided to build (or not build) a form,
// discriminated explicitly rather than sniffed ad hoc, per spec.md §9.
type Strategy string

const (
	StrategyFormCapable   Strategy = "form_capable"
	StrategyErrorDriven   Strategy = "error_driven"
	StrategyRenderConfig  Strategy = "render_config"
	StrategySchemaBased   Strategy = "schema_based"
	StrategyNone          Strategy = "none"
)

// Middleware is a submission hook ProcessSubmission runs once, in
// registration order, on the merged input after the merge.
type Middleware func(sub *Submission, merged map[string]interface{}) error

// Engine is the Form Engine (C8): strategy selection, form lifecycle,
// submission validation and merge.
type Engine struct {
	strategies []Strategy
	middleware map[string]Middleware
	midOrder   []string
}

// NewEngine creates an Engine with the fixed strategy priority order
// spec.md §4.8 defines.
func NewEngine() *Engine {
	return &Engine{
		strategies: []Strategy{StrategyFormCapable, StrategyErrorDriven, StrategyRenderConfig, StrategySchemaBased, StrategyNone},
		middleware: map[string]Middleware{},
	}
}

// RegisterMiddleware adds a named submission hook.
func (e *Engine) RegisterMiddleware(name string, m Middleware) {
	if _, exists := e.middleware[name]; !exists {
		e.midOrder = append(e.midOrder, name)
	}
	e.middleware[name] = m
}

// GetRegisteredStrategies lists the strategy names in priority order.
func (e *Engine) GetRegisteredStrategies() []Strategy {
	return append([]Strategy(nil), e.strategies...)
}

// GetRegisteredMiddleware lists registered middleware names in registration
// order.
func (e *Engine) GetRegisteredMiddleware() []string {
	return append([]string(nil), e.midOrder...)
}

// ShouldGenerateForm implements spec.md §4.8's `shouldGenerateForm`:
// false if input carries __fromForm or renderForm===false; delegate to the
// tool's hook when form-capable (errors → false, logged); otherwise form
// is required iff schema validation of the input fails.
func (e *Engine) ShouldGenerateForm(tool chat.Tool, obj *schema.Object, input map[string]interface{}) bool {
	if truthy(input["__fromForm"]) {
		return false
	}
	if v, ok := input["renderForm"]; ok {
		if b, ok := v.(bool); ok && !b {
			return false
		}
	}

	if fc, ok := tool.(chat.FormCapable); ok {
		return e.delegateShouldGenerateForm(fc, input)
	}

	if obj == nil {
		return false
	}
	return !schema.SafeParse(obj, input).OK
}

func (e *Engine) delegateShouldGenerateForm(fc chat.FormCapable, input map[string]interface{}) (result bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Printf("error: form-capability hook panicked: %v", r)
			result = false
		}
	}()
	return fc.ShouldGenerateForm(input)
}

func truthy(v interface{}) bool {
	b, ok := v.(bool)
	return ok && b
}

// SelectStrategy chooses among the five strategies in priority order, per
// spec.md §4.8.
func SelectStrategy(tool chat.Tool, obj *schema.Object, validationIssues []schema.Issue, shouldForm bool) Strategy {
	if !shouldForm {
		return StrategyNone
	}
	if _, ok := tool.(chat.FormCapable); ok {
		return StrategyFormCapable
	}
	if len(validationIssues) > 0 {
		return StrategyErrorDriven
	}
	if obj != nil {
		for _, f := range obj.Fields {
			if f.RenderConfig != nil {
				return StrategyRenderConfig
			}
		}
	}
	if obj != nil {
		return StrategySchemaBased
	}
	return StrategyNone
}

// GenerateForm dispatches to the strategy SelectStrategy chose, attaching
// jsonSchema/uiSchema and partialInput for schema/focused forms, per
// spec.md §4.8.
func (e *Engine) GenerateForm(tool chat.Tool, toolName string, obj *schema.Object, input map[string]interface{}, originalPrompt string, opts GenerateOptions) (*Message, error) {
	validation := schema.ParseResult{OK: true}
	if obj != nil {
		validation = schema.SafeParse(obj, input)
	}
	shouldForm := e.ShouldGenerateForm(tool, obj, input)
	strategy := SelectStrategy(tool, obj, validation.Issues, shouldForm)

	opts.ToolName = toolName
	opts.OriginalPrompt = originalPrompt

	switch strategy {
	case StrategyNone:
		return nil, nil
	case StrategyFormCapable:
		fc := tool.(chat.FormCapable)
		focusedRaw, err := fc.GetFormSchema()
		focusedObj := obj
		if err == nil && focusedRaw != nil {
			if o, ok := focusedRawToObject(focusedRaw); ok {
				focusedObj = o
			}
		} else if err != nil {
			logger.Printf("warn: getFormSchema failed for %s, falling back to tool schema: %v", toolName, err)
		}
		opts.FocusedSchema = true
		msg, genErr := GenerateFormFromSchema(focusedObj, input, opts, fc.GetEssentialFields())
		if genErr != nil {
			logger.Printf("error: form generation failed for %s: %v", toolName, genErr)
			return nil, genErr
		}
		return msg, nil
	case StrategyErrorDriven:
		msg, err := GenerateFormFromError(validation.Issues, obj, toolName, originalPrompt, opts)
		if err != nil {
			logger.Printf("error: form generation failed for %s: %v", toolName, err)
			return nil, err
		}
		return msg, nil
	case StrategyRenderConfig, StrategySchemaBased:
		msg, err := GenerateFormFromSchema(obj, input, opts, nil)
		if err != nil {
			logger.Printf("error: form generation failed for %s: %v", toolName, err)
			return nil, err
		}
		return msg, nil
	default:
		return nil, nil
	}
}

// focusedRawToObject is a narrow adapter for tools that return their
// focused schema as a generic map instead of a *schema.Object; formflow
// treats an already-built *schema.Object passed via "__object" specially
// and otherwise gives up (the tool should supply a proper schema.Object in
// practice).
func focusedRawToObject(raw map[string]interface{}) (*schema.Object, bool) {
	if o, ok := raw["__object"].(*schema.Object); ok {
		return o, true
	}
	return nil, false
}

// ProcessSubmission implements spec.md §4.8's round-trip property: produces
// `{ ...originalInput, ...parameters, __fromForm:true }`, submission values
// overriding base on key conflicts. The toolName and parameters are
// required; formId is optional.
func (e *Engine) ProcessSubmission(sub Submission, originalInput map[string]interface{}) (map[string]interface{}, error) {
	if sub.ToolName == "" {
		return nil, fmt.Errorf("form: submission missing toolName")
	}
	if sub.Parameters == nil {
		return nil, fmt.Errorf("form: submission missing parameters")
	}

	merged := map[string]interface{}{}
	for k, v := range originalInput {
		merged[k] = v
	}
	for k, v := range sub.Parameters {
		merged[k] = v
	}
	merged["__fromForm"] = true

	for _, name := range e.midOrder {
		if err := e.middleware[name](&sub, merged); err != nil {
			return nil, fmt.Errorf("form: middleware %q failed: %w", name, err)
		}
	}

	return merged, nil
}
