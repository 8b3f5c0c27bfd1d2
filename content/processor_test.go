package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/formflow/refstore"
)

func newTestStore(threshold int) *refstore.Store {
	cfg := refstore.DefaultConfig()
	cfg.SizeThresholdBytes = threshold
	cfg.EnableAutoCleanup = false
	return refstore.New(cfg)
}

func TestRewrite_ReplacesOversizedTextItem(t *testing.T) {
	store := newTestStore(10)
	p := NewProcessor(store)

	raw := map[string]interface{}{
		"content": []interface{}{
			map[string]interface{}{"type": "text", "text": strings.Repeat("x", 200)},
			map[string]interface{}{"type": "text", "text": "short"},
		},
	}

	out, errs := p.Rewrite(raw, "srv1", "toolA")
	require.Empty(t, errs)

	doc := out.(map[string]interface{})
	items := doc["content"].([]interface{})
	first := items[0].(map[string]interface{})
	marker, ok := first["text"].(map[string]interface{})
	require.True(t, ok, "expected oversized item to be replaced by a marker map")
	assert.Equal(t, "content_reference", marker["type"])
	assert.True(t, marker["_isReference"].(bool))
	assert.True(t, refstore.ValidReferenceID(marker["referenceId"].(string)))

	second := items[1].(map[string]interface{})
	assert.Equal(t, "short", second["text"])
}

func TestRewrite_DoesNotMutateOriginal(t *testing.T) {
	store := newTestStore(10)
	p := NewProcessor(store)

	raw := map[string]interface{}{
		"content": []interface{}{
			map[string]interface{}{"type": "text", "text": strings.Repeat("y", 50)},
		},
	}
	_, _ = p.Rewrite(raw, "srv", "tool")

	original := raw["content"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, strings.Repeat("y", 50), original["text"])
}

func TestRewrite_ResolvesBackToOriginalContent(t *testing.T) {
	store := newTestStore(10)
	p := NewProcessor(store)
	payload := strings.Repeat("z", 500)

	raw := map[string]interface{}{
		"content": []interface{}{
			map[string]interface{}{"type": "resource", "blob": payload},
		},
	}
	out, _ := p.Rewrite(raw, "srv", "tool")
	doc := out.(map[string]interface{})
	item := doc["content"].([]interface{})[0].(map[string]interface{})
	marker := item["blob"].(map[string]interface{})

	res := store.ResolveReference(marker["referenceId"].(string))
	assert.True(t, res.Success)
	assert.Equal(t, payload, string(res.Content))
}
