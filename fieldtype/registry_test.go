package fieldtype

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectType_Defaults(t *testing.T) {
	r := New()
	registerDefaults(r)

	assert.Equal(t, "currency", r.DetectType("tokenPrice"))
	assert.Equal(t, "number", r.DetectType("maxSupply"))
	assert.Equal(t, "checkbox", r.DetectType("freeze"))
	assert.Equal(t, "textarea", r.DetectType("memo"))
	assert.Equal(t, "select", r.DetectType("tokenType"))
	assert.Equal(t, "text", r.DetectType("somethingUnmatched"))
}

func TestDetectType_PriorityWins(t *testing.T) {
	r := New()
	r.Register("low", ExactList{"name"}, "text", 5)
	r.Register("high", ExactList{"name"}, "select", 15)

	assert.Equal(t, "select", r.DetectType("name"))
}

func TestDetectType_TieBreakFirstRegistered(t *testing.T) {
	r := New()
	r.Register("first", ExactList{"name"}, "text", 10)
	r.Register("second", ExactList{"name"}, "textarea", 10)

	assert.Equal(t, "text", r.DetectType("name"))
}

func TestUnregister(t *testing.T) {
	r := New()
	r.Register("only", ExactList{"name"}, "select", 10)
	r.Unregister("only")
	assert.Equal(t, "text", r.DetectType("name"))
}
