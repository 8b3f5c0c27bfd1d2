// Package form implements the Form Generator (C7) and Form Engine (C8):
// synthesizing schema-driven forms when a tool call cannot proceed, and
// validating/merging the user's submission back into the tool input.
package form

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/viant/formflow/guidance"
	"github.com/viant/formflow/schema"
)

// FieldType enumerates the UI widget kinds a form field can render as.
type FieldType string

const (
	FieldText       FieldType = "text"
	FieldNumber     FieldType = "number"
	FieldSelect     FieldType = "select"
	FieldCheckbox   FieldType = "checkbox"
	FieldTextarea   FieldType = "textarea"
	FieldFile       FieldType = "file"
	FieldArray      FieldType = "array"
	FieldObject     FieldType = "object"
	FieldCurrency   FieldType = "currency"
	FieldPercentage FieldType = "percentage"
)

// Priority is the form field's display priority, per spec.md §3.
type Priority string

const (
	PriorityEssential Priority = "essential"
	PriorityCommon    Priority = "common"
	PriorityAdvanced  Priority = "advanced"
	PriorityExpert    Priority = "expert"
)

// Field is one rendered form field.
type Field struct {
	Name                string
	Label               string
	Type                FieldType
	Required            bool
	Priority            Priority
	Placeholder         string
	HelpText            string
	DefaultValue        interface{}
	Validation          *guidance.ValidationRules
	Options             []string
	Suggestions         []string
	Warnings            []string
	ContextualGuidance  string
}

// Config is the ordered form configuration returned by the generator.
type Config struct {
	Title        string
	Description  string
	Fields       []Field
	SubmitLabel  string
	CancelLabel  string
	Metadata     map[string]interface{}
}

// Message is the on-wire form payload a UI renders, per spec.md §3.
type Message struct {
	ID               string
	FormConfig       Config
	OriginalPrompt   string
	ToolName         string
	ValidationErrors []schema.Issue
	PartialInput     map[string]interface{}
	JSONSchema       map[string]interface{}
	UISchema         map[string]interface{}
}

// NewFormID generates a form message id in the form_<ms-epoch>_<random
// base36> shape spec.md §4.7 requires.
func NewFormID(now time.Time) string {
	return fmt.Sprintf("form_%d_%s", now.UnixMilli(), randomBase36(8))
}

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomBase36(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = base36Alphabet[rand.Intn(len(base36Alphabet))]
	}
	return string(b)
}

// Submission is the payload a UI posts back after the user fills a form.
type Submission struct {
	FormID     string
	ToolName   string
	Parameters map[string]interface{}
	Timestamp  time.Time
	Context    map[string]interface{}
}
