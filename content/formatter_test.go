package content

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatResponse_MalformedPassthrough(t *testing.T) {
	f := NewFormatter()
	assert.Equal(t, "{invalid", f.FormatResponse("{invalid"))
}

func TestFormatResponse_UnrecognizedShapePassthrough(t *testing.T) {
	f := NewFormatter()
	raw, _ := json.Marshal(map[string]interface{}{"success": true, "type": "other"})
	assert.Equal(t, string(raw), f.FormatResponse(string(raw)))
}

func TestFormatResponse_InscriptionShape(t *testing.T) {
	f := NewFormatter()
	raw, _ := json.Marshal(map[string]interface{}{
		"success":     true,
		"type":        "inscription",
		"inscription": map[string]interface{}{"topicId": "0.0.123"},
	})
	out := f.FormatResponse(string(raw))
	assert.True(t, strings.HasPrefix(out, "✅ Inscription Complete"))
	assert.Contains(t, out, "0.0.123")
}

func TestFormatResponse_HashLinkBlockShape(t *testing.T) {
	f := NewFormatter()
	raw, _ := json.Marshal(map[string]interface{}{
		"success":       true,
		"type":          "inscription",
		"hashLinkBlock": map[string]interface{}{"topicId": "0.0.999", "name": "Widget"},
	})
	out := f.FormatResponse(string(raw))
	assert.True(t, strings.HasPrefix(out, "✅ Interactive content created successfully!"))
	assert.Contains(t, out, "0.0.999")
	assert.Contains(t, out, "**Widget**")
}

func TestFormatResponse_InscriptionOverridesBlockAttributes(t *testing.T) {
	f := NewFormatter()
	raw, _ := json.Marshal(map[string]interface{}{
		"success":       true,
		"type":          "inscription",
		"hashLinkBlock": map[string]interface{}{"topicId": "0.0.1", "creator": "block-creator"},
		"inscription":   map[string]interface{}{"topicId": "0.0.2"},
	})
	out := f.FormatResponse(string(raw))
	assert.Contains(t, out, "0.0.2")
	assert.NotContains(t, out, "0.0.1")
	assert.Contains(t, out, "block-creator")
}

func TestExtractHashLinkBlock(t *testing.T) {
	raw, _ := json.Marshal(map[string]interface{}{"hashLinkBlock": map[string]interface{}{"topicId": "0.0.5"}})
	meta, ok := ExtractHashLinkBlock(string(raw))
	assert.True(t, ok)
	assert.Contains(t, meta, "hashLinkBlock")
}

func TestExtractHashLinkBlock_Absent(t *testing.T) {
	_, ok := ExtractHashLinkBlock(`{"foo":"bar"}`)
	assert.False(t, ok)
}
