package guidance

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFieldGuidance_ConflictResolution(t *testing.T) {
	r := New()
	r.RegisterToolConfiguration(ToolConfiguration{
		ToolPattern: "CreateNftTool",
		Fields: map[string]FieldGuidance{
			"name": {Suggestions: []string{"static"}, ContextualHelpText: "h"},
		},
	})

	_, err := r.RegisterToolProvider("CreateNftTool", func(tool, field string) (*FieldGuidance, error) {
		return &FieldGuidance{FieldTypeOverride: "textarea"}, nil
	}, ProviderOptions{Priority: 0})
	require.NoError(t, err)

	_, err = r.RegisterToolProvider("CreateNftTool", func(tool, field string) (*FieldGuidance, error) {
		return &FieldGuidance{Suggestions: []string{"provider"}}, nil
	}, ProviderOptions{Priority: 10})
	require.NoError(t, err)

	got := r.GetFieldGuidance("CreateNftTool", "name")
	require.NotNil(t, got)
	assert.Equal(t, []string{"provider"}, got.Suggestions)
	assert.Equal(t, "textarea", got.FieldTypeOverride)
	assert.Equal(t, "h", got.ContextualHelpText)
}

func TestGetFieldGuidance_TieBreakLastRegisteredWins(t *testing.T) {
	r := New()
	_, err := r.RegisterToolProvider("tool", func(tool, field string) (*FieldGuidance, error) {
		return &FieldGuidance{Suggestions: []string{"first"}}, nil
	}, ProviderOptions{Priority: 5})
	require.NoError(t, err)
	_, err = r.RegisterToolProvider("tool", func(tool, field string) (*FieldGuidance, error) {
		return &FieldGuidance{Suggestions: []string{"second"}}, nil
	}, ProviderOptions{Priority: 5})
	require.NoError(t, err)

	got := r.GetFieldGuidance("tool", "field")
	require.NotNil(t, got)
	assert.Equal(t, []string{"second"}, got.Suggestions)
}

func TestGetFieldGuidance_DisabledByEnv(t *testing.T) {
	os.Setenv("CA_FORM_GUIDANCE_ENABLED", "false")
	defer os.Unsetenv("CA_FORM_GUIDANCE_ENABLED")

	r := New()
	r.RegisterToolConfiguration(ToolConfiguration{
		ToolPattern: "tool",
		Fields:      map[string]FieldGuidance{"field": {Suggestions: []string{"x"}}},
	})

	assert.Nil(t, r.GetFieldGuidance("tool", "field"))
	assert.Nil(t, r.GetGlobalGuidance("tool"))
}

func TestRegisterToolProvider_DuplicateID(t *testing.T) {
	r := New()
	_, err := r.RegisterToolProvider("tool", func(string, string) (*FieldGuidance, error) { return nil, nil }, ProviderOptions{ID: "p1"})
	require.NoError(t, err)

	_, err = r.RegisterToolProvider("tool", func(string, string) (*FieldGuidance, error) { return nil, nil }, ProviderOptions{ID: "p1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrDuplicateProviderID)
}

func TestValidateFieldValue_RejectPatterns(t *testing.T) {
	r := New()
	r.RegisterToolConfiguration(ToolConfiguration{
		ToolPattern: "tool",
		Fields: map[string]FieldGuidance{
			"description": {ValidationRules: &ValidationRules{RejectPatterns: []string{"lorem ipsum"}}},
		},
	})

	res := r.ValidateFieldValue("tool", "description", "this is Lorem Ipsum text")
	assert.False(t, res.IsValid)
	assert.NotEmpty(t, res.Errors)
}

func TestValidateFieldValue_NonStringPassesTrivially(t *testing.T) {
	r := New()
	res := r.ValidateFieldValue("tool", "count", 42)
	assert.True(t, res.IsValid)
}

func TestProviderErrorIsolated(t *testing.T) {
	r := New()
	_, err := r.RegisterToolProvider("tool", func(string, string) (*FieldGuidance, error) {
		return nil, assertError("boom")
	}, ProviderOptions{Priority: 1})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		got := r.GetFieldGuidance("tool", "field")
		assert.Nil(t, got)
	})
}

type assertError string

func (e assertError) Error() string { return string(e) }
