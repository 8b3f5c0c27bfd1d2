package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/formflow/chat"
)

func TestCount_EmptyAndWhitespace(t *testing.T) {
	c, err := NewCounter("gpt-4")
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, 0, c.Count(""))
	assert.Equal(t, 0, c.Count("   \t\n"))
}

func TestCount_NonEmpty(t *testing.T) {
	c, err := NewCounter("gpt-4")
	require.NoError(t, err)
	defer c.Close()

	assert.Greater(t, c.Count("hello world"), 0)
}

func TestNewCounter_UnknownModelFallsBackToBaseline(t *testing.T) {
	c, err := NewCounter("some-future-model-nobody-has-heard-of")
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, baselineEncoding, c.Model())
	assert.Greater(t, c.Count("hello"), 0)
}

func TestCountMessage_IncludesOverhead(t *testing.T) {
	c, err := NewCounter("gpt-4")
	require.NoError(t, err)
	defer c.Close()

	msg := chat.NewUserMessage("hi")
	contentOnly := c.Count("hi")
	assert.Equal(t, contentOnly+perMessageOverhead+perRoleOverhead, c.CountMessage(msg))
}

func TestEstimateSystemPromptTokens(t *testing.T) {
	c, err := NewCounter("gpt-4")
	require.NoError(t, err)
	defer c.Close()

	prompt := "You are a helpful assistant."
	want := c.Count(prompt) + c.Count("system") + 4
	assert.Equal(t, want, c.EstimateSystemPromptTokens(prompt))
}

func TestClose_FallsBackToWordEstimate(t *testing.T) {
	c, err := NewCounter("gpt-4")
	require.NoError(t, err)
	require.NoError(t, c.Close())

	assert.Equal(t, wordFallback("one two three"), c.Count("one two three"))
}

func TestWordFallback(t *testing.T) {
	assert.Equal(t, 0, wordFallback(""))
	assert.Equal(t, 3, wordFallback("one two")) // ceil(2*1.3) = 3
}
