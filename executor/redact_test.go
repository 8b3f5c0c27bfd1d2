package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactParams(t *testing.T) {
	in := map[string]interface{}{
		"tokenName": "T",
		"apiKey":    "sk-live-xyz",
		"nested": map[string]interface{}{
			"Authorization": "Bearer abc",
			"query":         "q",
		},
	}
	out := redactParams(in)
	assert.Equal(t, "T", out["tokenName"])
	assert.Equal(t, redactedValue, out["apiKey"])
	nested := out["nested"].(map[string]interface{})
	assert.Equal(t, redactedValue, nested["Authorization"])
	assert.Equal(t, "q", nested["query"])

	// original is untouched
	assert.Equal(t, "sk-live-xyz", in["apiKey"])
}
