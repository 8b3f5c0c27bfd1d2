package form

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/formflow/schema"
)

type createNftInput struct {
	TokenName   string  `json:"tokenName"`
	TokenSymbol string  `json:"tokenSymbol"`
	MaxSupply   float64 `json:"maxSupply"`
}

func fixedNow() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

func TestGenerateFormFromSchema_AllRequiredEssential(t *testing.T) {
	obj := schema.FromStruct(reflect.TypeOf(createNftInput{}))
	msg, err := GenerateFormFromSchema(obj, map[string]interface{}{}, GenerateOptions{
		ToolName: "CreateNftTool",
		Now:      fixedNow,
	}, nil)
	require.NoError(t, err)

	require.Len(t, msg.FormConfig.Fields, 3)
	names := map[string]Field{}
	for _, f := range msg.FormConfig.Fields {
		names[f.Name] = f
		assert.True(t, f.Required)
		assert.Equal(t, PriorityEssential, f.Priority)
	}
	assert.Contains(t, names, "tokenName")
	assert.Contains(t, names, "tokenSymbol")
	assert.Contains(t, names, "maxSupply")
	assert.Equal(t, "Complete Create Nft Information", msg.FormConfig.Title)
}

func TestGenerateFormFromSchema_SkipsFieldsAlreadyInPartialInput(t *testing.T) {
	obj := schema.FromStruct(reflect.TypeOf(createNftInput{}))
	msg, err := GenerateFormFromSchema(obj, map[string]interface{}{"tokenName": "Foo"}, GenerateOptions{
		ToolName: "CreateNftTool",
		Now:      fixedNow,
	}, nil)
	require.NoError(t, err)
	require.Len(t, msg.FormConfig.Fields, 2)
}

func TestGenerateFormFromSchema_FocusedIncludesAll(t *testing.T) {
	obj := schema.FromStruct(reflect.TypeOf(createNftInput{}))
	msg, err := GenerateFormFromSchema(obj, map[string]interface{}{"tokenName": "Foo"}, GenerateOptions{
		ToolName:      "CreateNftTool",
		FocusedSchema: true,
		Now:           fixedNow,
	}, nil)
	require.NoError(t, err)
	assert.Len(t, msg.FormConfig.Fields, 3)
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "Token Name", Humanize("tokenName"))
	assert.Equal(t, "Max Supply", Humanize("max_supply"))
	assert.Equal(t, "Account Id", Humanize("account.id"))
}

func TestNewFormID_Shape(t *testing.T) {
	id := NewFormID(fixedNow())
	assert.Regexp(t, `^form_\d+_[0-9a-z]+$`, id)
}

func TestGenerateJSONSchemaForm_FiltersToMissingFields(t *testing.T) {
	obj := schema.FromStruct(reflect.TypeOf(createNftInput{}))
	doc, _ := GenerateJSONSchemaForm(obj, nil, []string{"tokenName"})
	props, ok := doc["properties"].(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, props, 1)
	assert.Contains(t, props, "tokenName")
}
