// Package executor implements the Form-Aware Executor (C9): it wraps an
// agent-style planner, intercepts each planned tool call, and either runs
// the tool or parks a pending form for the user to complete.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/viant/formflow/chat"
	"github.com/viant/formflow/content"
	"github.com/viant/formflow/form"
	"github.com/viant/formflow/schema"
)

var logger = log.New(log.Writer(), "[executor] ", log.LstdFlags)

// ErrToolNotFound is returned when a planned step names an unregistered
// tool.
var ErrToolNotFound = errors.New("tool not found")

// ErrFormNotPending is returned by ProcessFormSubmission when no pending
// record exists for the given form id. Its text matches spec.md §4.9
// exactly: `Form <id> not found in pending forms`.
type ErrFormNotPending struct{ FormID string }

func (e ErrFormNotPending) Error() string {
	return fmt.Sprintf("Form %s not found in pending forms", e.FormID)
}

// PendingForm is the context the executor parks while a form awaits
// submission, per spec.md §3.
type PendingForm struct {
	ToolName          string
	OriginalAgentInput map[string]interface{}
	OriginalToolInput  map[string]interface{}
	Schema             *schema.Object
	ToolRef            chat.Tool
}

// PendingFormInfo is the listing shape returned by GetPendingFormsInfo.
type PendingFormInfo struct {
	FormID   string
	ToolName string
}

// SubmissionResult is returned by ProcessFormSubmission.
type SubmissionResult struct {
	Output          string
	Message         string
	Success         bool
	IntermediateSteps []chat.Step
	Metadata        map[string]interface{}
}

// ToolResolver looks up a tool by name.
type ToolResolver func(name string) (chat.Tool, bool)

// PreprocessCallback transforms tool parameters before invocation.
type PreprocessCallback func(toolName string, params map[string]interface{}) (map[string]interface{}, error)

// Executor wraps tool resolution with form-aware interception.
type Executor struct {
	mu           sync.Mutex
	pendingForms map[string]*PendingForm
	resolve      ToolResolver
	engine       *form.Engine
	formatter    *content.Formatter
	preprocess   PreprocessCallback
	genOpts      form.GenerateOptions
}

// New creates an Executor. resolve looks up tools by name; engine drives
// form strategy/lifecycle; formatter renders known tool-response shapes
// into fixed templates (may be nil to skip C10 formatting entirely).
func New(resolve ToolResolver, engine *form.Engine, formatter *content.Formatter) *Executor {
	return &Executor{
		pendingForms: map[string]*PendingForm{},
		resolve:      resolve,
		engine:       engine,
		formatter:    formatter,
	}
}

// SetPreprocessCallback installs a parameter-preprocessing hook.
func (e *Executor) SetPreprocessCallback(cb PreprocessCallback) {
	e.preprocess = cb
}

// SetGenerateOptions configures defaults (field-type/guidance registries)
// passed to the form generator.
func (e *Executor) SetGenerateOptions(opts form.GenerateOptions) {
	e.genOpts = opts
}

// ExecuteStep processes one planned step, per spec.md §4.9.
func (e *Executor) ExecuteStep(ctx context.Context, step chat.Step) chat.Observation {
	if step.Finish {
		return chat.Observation{Output: "", Metadata: step.Return}
	}

	tool, ok := e.resolve(step.Tool)
	if !ok {
		logger.Printf(`tool "%s" not found`, step.Tool)
		return chat.Observation{Err: fmt.Errorf(`tool %q not found: %w`, step.Tool, ErrToolNotFound)}
	}

	if b, err := json.Marshal(redactParams(step.ToolInput)); err == nil {
		logger.Printf("invoking tool=%s input=%s", step.Tool, b)
	}

	unwrapped := chat.Unwrap(tool)

	obj := schemaFromDefinition(unwrapped.Definition())
	msg, genErr := e.engine.GenerateForm(unwrapped, step.Tool, obj, step.ToolInput, step.Log, e.genOpts)
	if genErr != nil {
		logger.Printf("error: form generation failed for %s: %v", step.Tool, genErr)
		return chat.Observation{Err: genErr}
	}
	if msg != nil {
		logger.Printf("FORM GENERATION TRIGGERED for tool=%s", step.Tool)
		e.mu.Lock()
		e.pendingForms[msg.ID] = &PendingForm{
			ToolName:           step.Tool,
			OriginalAgentInput: step.ToolInput,
			OriginalToolInput:  step.ToolInput,
			Schema:             obj,
			ToolRef:            unwrapped,
		}
		e.mu.Unlock()
		return chat.Observation{RequiresForm: true, FormMessage: msg}
	}

	params := step.ToolInput
	if e.preprocess != nil {
		if p, err := e.preprocess(step.Tool, params); err != nil {
			logger.Printf("warn: preprocessing failed for %s: %v", step.Tool, err)
		} else {
			params = p
		}
	}

	raw, err := callTool(ctx, unwrapped, params)
	if err != nil {
		return chat.Observation{Err: err}
	}

	formatted := raw
	var metadata map[string]interface{}
	if e.formatter != nil {
		formatted = e.formatter.FormatResponse(raw)
	}
	if meta, ok := content.ExtractHashLinkBlock(raw); ok {
		metadata = meta
	}

	return chat.Observation{Output: formatted, Metadata: metadata}
}

// schemaFromDefinition projects a tool's draft-7 JSON Schema definition
// (the same shape schema.ToJSONSchemaDraft7 emits) into an *schema.Object,
// giving the form engine's error_driven/render_config/schema_based
// strategies a real schema to fall back to for tools that don't implement
// chat.FormCapable. Returns nil when the tool exposes no usable schema.
func schemaFromDefinition(def chat.ToolDefinition) *schema.Object {
	props, _ := def.Parameters["properties"].(map[string]interface{})
	if len(props) == 0 {
		return nil
	}
	required := append([]string(nil), def.Required...)
	switch r := def.Parameters["required"].(type) {
	case []string:
		required = append(required, r...)
	case []interface{}:
		for _, v := range r {
			if s, ok := v.(string); ok {
				required = append(required, s)
			}
		}
	}
	return schema.FromJSONSchema(def.Name, props, required)
}

// callTool invokes the tool through the first available method among the
// chat.Tool contract's Call and the wrapped "original tool" convention
// (handled already by chat.Unwrap before this call).
func callTool(ctx context.Context, tool chat.Tool, input map[string]interface{}) (string, error) {
	if tool == nil {
		return "", errors.New(`original tool has no callable implementation`)
	}
	return tool.Call(ctx, input)
}

// ProcessFormSubmission implements spec.md §4.9's processFormSubmission:
// look up the pending record, re-validate against the stored schema,
// invoke the tool with the merged input, and clear the pending record only
// on success.
func (e *Executor) ProcessFormSubmission(ctx context.Context, sub form.Submission) (*SubmissionResult, error) {
	e.mu.Lock()
	pending, ok := e.pendingForms[sub.FormID]
	e.mu.Unlock()
	if !ok {
		return nil, ErrFormNotPending{FormID: sub.FormID}
	}

	if pending.Schema != nil {
		res := schema.SafeParse(pending.Schema, sub.Parameters)
		if !res.OK {
			return nil, fmt.Errorf("form: submission failed schema validation: %+v", res.Issues)
		}
	}

	merged, err := e.engine.ProcessSubmission(sub, pending.OriginalToolInput)
	if err != nil {
		return nil, err
	}

	output, err := callTool(ctx, pending.ToolRef, merged)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	delete(e.pendingForms, sub.FormID)
	e.mu.Unlock()

	return &SubmissionResult{Output: output, Success: true}, nil
}

// HasPendingForms reports whether any form is currently parked.
func (e *Executor) HasPendingForms() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pendingForms) > 0
}

// GetPendingFormsInfo returns a lightweight {formId, toolName} listing.
func (e *Executor) GetPendingFormsInfo() []PendingFormInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]PendingFormInfo, 0, len(e.pendingForms))
	for id, p := range e.pendingForms {
		out = append(out, PendingFormInfo{FormID: id, ToolName: p.ToolName})
	}
	return out
}

// GetPendingForms exports the full pending-form snapshot for externalized
// session persistence.
func (e *Executor) GetPendingForms() map[string]*PendingForm {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]*PendingForm, len(e.pendingForms))
	for k, v := range e.pendingForms {
		cp := *v
		out[k] = &cp
	}
	return out
}

// RestorePendingForms replaces the pending-form map wholesale, enabling a
// new executor to pick up a previously exported session.
func (e *Executor) RestorePendingForms(snapshot map[string]*PendingForm) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pendingForms = map[string]*PendingForm{}
	for k, v := range snapshot {
		cp := *v
		e.pendingForms[k] = &cp
	}
}
