package form

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/formflow/chat"
	"github.com/viant/formflow/schema"
)

type plainTool struct {
	name string
	obj  *schema.Object
}

func (t *plainTool) Name() string                      { return t.name }
func (t *plainTool) Description() string                { return "" }
func (t *plainTool) Definition() chat.ToolDefinition     { return chat.ToolDefinition{Name: t.name} }
func (t *plainTool) Call(ctx context.Context, input map[string]interface{}) (string, error) {
	return "ok", nil
}

func TestShouldGenerateForm_FromFormShortCircuits(t *testing.T) {
	e := NewEngine()
	tool := &plainTool{name: "CreateNftTool"}
	obj := schema.FromStruct(reflect.TypeOf(createNftInput{}))

	got := e.ShouldGenerateForm(tool, obj, map[string]interface{}{"__fromForm": true})
	assert.False(t, got)
}

func TestShouldGenerateForm_RenderFormFalse(t *testing.T) {
	e := NewEngine()
	tool := &plainTool{name: "CreateNftTool"}
	obj := schema.FromStruct(reflect.TypeOf(createNftInput{}))

	got := e.ShouldGenerateForm(tool, obj, map[string]interface{}{"renderForm": false})
	assert.False(t, got)
}

func TestShouldGenerateForm_SchemaFailureRequiresForm(t *testing.T) {
	e := NewEngine()
	tool := &plainTool{name: "CreateNftTool"}
	obj := schema.FromStruct(reflect.TypeOf(createNftInput{}))

	got := e.ShouldGenerateForm(tool, obj, map[string]interface{}{})
	assert.True(t, got)
}

func TestShouldGenerateForm_ValidInputNoForm(t *testing.T) {
	e := NewEngine()
	tool := &plainTool{name: "CreateNftTool"}
	obj := schema.FromStruct(reflect.TypeOf(createNftInput{}))

	got := e.ShouldGenerateForm(tool, obj, map[string]interface{}{
		"tokenName": "T", "tokenSymbol": "TT", "maxSupply": float64(100),
	})
	assert.False(t, got)
}

func TestProcessSubmission_RoundTrip(t *testing.T) {
	e := NewEngine()
	sub := Submission{
		FormID:   "form_1_abc",
		ToolName: "CreateNftTool",
		Parameters: map[string]interface{}{
			"tokenName": "T", "tokenSymbol": "TT", "maxSupply": float64(100),
		},
	}
	merged, err := e.ProcessSubmission(sub, map[string]interface{}{"extra": "keep-me"})
	require.NoError(t, err)

	assert.Equal(t, "T", merged["tokenName"])
	assert.Equal(t, "keep-me", merged["extra"])
	assert.Equal(t, true, merged["__fromForm"])
}

func TestProcessSubmission_SubmissionOverridesBaseOnConflict(t *testing.T) {
	e := NewEngine()
	sub := Submission{
		ToolName:   "tool",
		Parameters: map[string]interface{}{"name": "new"},
	}
	merged, err := e.ProcessSubmission(sub, map[string]interface{}{"name": "old"})
	require.NoError(t, err)
	assert.Equal(t, "new", merged["name"])
}

func TestProcessSubmission_MissingToolNameErrors(t *testing.T) {
	e := NewEngine()
	_, err := e.ProcessSubmission(Submission{Parameters: map[string]interface{}{"a": 1}}, nil)
	assert.Error(t, err)
}

func TestGetRegisteredStrategies(t *testing.T) {
	e := NewEngine()
	strategies := e.GetRegisteredStrategies()
	assert.Equal(t, StrategyNone, strategies[len(strategies)-1])
	assert.Equal(t, StrategyFormCapable, strategies[0])
}
