// Package token provides model-aware token counting for plain strings and
// chat messages, backed by a real BPE tokenizer with a deterministic
// fallback chain when the model-specific encoder is unavailable.
package token

import (
	"errors"
	"log"
	"math"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/viant/formflow/chat"
)

var logger = log.New(log.Writer(), "[token] ", log.LstdFlags)

const (
	perMessageOverhead = 3
	perRoleOverhead    = 1
	baselineEncoding   = "cl100k_base"
)

// Counter counts tokens for strings and chat messages and must be disposed
// once the caller is done with it, releasing the encoder's resources.
type Counter interface {
	Count(text string) int
	CountMessage(msg chat.Message) int
	CountMessages(msgs []chat.Message) int
	EstimateSystemPromptTokens(prompt string) int
	Model() string
	Close() error
}

type tiktokenCounter struct {
	model  string
	enc    *tiktoken.Tiktoken
	closed bool
}

// NewCounter resolves an encoder for the given model name. If no
// model-specific encoding exists, it substitutes the cl100k_base baseline
// encoder and reports the substituted model name via Model().
func NewCounter(model string) (Counter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	resolvedModel := model
	if err != nil {
		enc, err = tiktoken.GetEncoding(baselineEncoding)
		if err != nil {
			return nil, errors.New("token: no baseline encoder available")
		}
		resolvedModel = baselineEncoding
		logger.Printf("model %q has no known encoding, falling back to %s", model, baselineEncoding)
	}
	return &tiktokenCounter{model: resolvedModel, enc: enc}, nil
}

// Count returns the token count of text, 0 for empty/whitespace-only input.
func (c *tiktokenCounter) Count(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	if c.closed || c.enc == nil {
		return wordFallback(text)
	}
	tokens := c.encodeSafely(text)
	if tokens == nil {
		return wordFallback(text)
	}
	return len(tokens)
}

func (c *tiktokenCounter) encodeSafely(text string) (tokens []int) {
	defer func() {
		if r := recover(); r != nil {
			logger.Printf("encoder panicked on input, falling back to word estimate: %v", r)
			tokens = nil
		}
	}()
	return c.enc.Encode(text, nil, nil)
}

// wordFallback estimates tokens as ceil(words * 1.3), used when the encoder
// itself cannot process the string.
func wordFallback(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return int(math.Ceil(float64(words) * 1.3))
}

// CountMessage counts a single message's content plus per-message and
// per-role overhead.
func (c *tiktokenCounter) CountMessage(msg chat.Message) int {
	total := c.Count(msg.Text()) + perMessageOverhead + perRoleOverhead
	if msg.Name != "" {
		total += c.Count(msg.Name)
	}
	for _, tc := range msg.ToolCalls {
		total += c.Count(tc.Name)
		for k, v := range tc.Arguments {
			total += c.Count(k)
			if s, ok := v.(string); ok {
				total += c.Count(s)
			}
		}
	}
	return total
}

// CountMessages sums CountMessage over every message.
func (c *tiktokenCounter) CountMessages(msgs []chat.Message) int {
	total := 0
	for _, m := range msgs {
		total += c.CountMessage(m)
	}
	return total
}

// EstimateSystemPromptTokens implements spec.md §4.1's formula:
// count(prompt) + count("system") + 4.
func (c *tiktokenCounter) EstimateSystemPromptTokens(prompt string) int {
	return c.Count(prompt) + c.Count("system") + 4
}

// Model reports the encoder's resolved model name (which may differ from
// the requested one if a fallback encoder was substituted).
func (c *tiktokenCounter) Model() string {
	return c.model
}

// Close releases the encoder reference. The counter falls back to the
// word-count heuristic for any call made after Close.
func (c *tiktokenCounter) Close() error {
	c.closed = true
	c.enc = nil
	return nil
}
