package schema

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reflectType(v interface{}) reflect.Type {
	return reflect.TypeOf(v)
}

type sampleToolInput struct {
	TokenName   string  `json:"tokenName"`
	TokenSymbol string  `json:"tokenSymbol"`
	MaxSupply   float64 `json:"maxSupply"`
	Memo        *string `json:"memo,omitempty"`
}

func TestFromStruct_RequiredVsOptional(t *testing.T) {
	obj := FromStruct(reflectType(sampleToolInput{}))
	require.Len(t, obj.Fields, 4)

	name, ok := obj.Field("tokenName")
	require.True(t, ok)
	assert.True(t, name.IsRequired())

	memo, ok := obj.Field("memo")
	require.True(t, ok)
	assert.False(t, memo.IsRequired())
}

func TestSafeParse_MissingRequired(t *testing.T) {
	obj := FromStruct(reflectType(sampleToolInput{}))
	res := SafeParse(obj, map[string]interface{}{"tokenName": "Foo"})
	assert.False(t, res.OK)
	var gotTokenSymbol bool
	for _, issue := range res.Issues {
		if issue.Path == "tokenSymbol" {
			gotTokenSymbol = true
		}
	}
	assert.True(t, gotTokenSymbol)
}

func TestSafeParse_AllPresent(t *testing.T) {
	obj := FromStruct(reflectType(sampleToolInput{}))
	res := SafeParse(obj, map[string]interface{}{
		"tokenName":   "Foo",
		"tokenSymbol": "FOO",
		"maxSupply":   float64(100),
	})
	assert.True(t, res.OK)
}

func TestToJSONSchemaDraft7_RequiredList(t *testing.T) {
	obj := FromStruct(reflectType(sampleToolInput{}))
	doc := ToJSONSchemaDraft7(obj)
	required, ok := doc["required"].([]string)
	require.True(t, ok)
	assert.Contains(t, required, "tokenName")
	assert.NotContains(t, required, "memo")
}

func TestValidate_RealSchemaLibrary(t *testing.T) {
	obj := FromStruct(reflectType(sampleToolInput{}))
	ok, issues, err := Validate(obj, map[string]interface{}{
		"tokenName":   "Foo",
		"tokenSymbol": "FOO",
		"maxSupply":   float64(100),
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, issues)

	ok, issues, err = Validate(obj, map[string]interface{}{"tokenName": "Foo"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotEmpty(t, issues)
}
