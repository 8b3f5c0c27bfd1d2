// Package memory implements the token-bounded conversation window (C2) and
// the Smart Memory Manager (C4) that composes it with the token counter and
// content reference store.
package memory

import (
	"log"
	"sync"

	"github.com/viant/formflow/chat"
	"github.com/viant/formflow/token"
)

var logger = log.New(log.Writer(), "[memory] ", log.LstdFlags)

const maxPrunedPerCall = 1000

// AddResult reports the outcome of adding a message to a Window.
type AddResult struct {
	Added             bool
	PrunedMessages    []chat.Message
	CurrentTokenCount int
	RemainingCapacity int
}

// Window is a token-bounded ordered sequence of chat messages with batched
// pruning, per spec.md §4.2.
type Window struct {
	mu            sync.Mutex
	counter       token.Counter
	maxTokens     int
	reserveTokens int
	systemPrompt  string
	messages      []chat.Message
	tokens        []int
	systemTokens  int
}

// NewWindow creates a Window bounded by maxTokens with reserveTokens kept
// free for response generation.
func NewWindow(counter token.Counter, maxTokens, reserveTokens int) *Window {
	return &Window{counter: counter, maxTokens: maxTokens, reserveTokens: reserveTokens}
}

// SetSystemPrompt sets the window's system prompt and recomputes its token
// contribution.
func (w *Window) SetSystemPrompt(prompt string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.systemPrompt = prompt
	w.systemTokens = w.counter.EstimateSystemPromptTokens(prompt)
}

// currentTokenCountLocked computes systemPromptTokens + Σ messageTokens.
// Caller must hold w.mu.
func (w *Window) currentTokenCountLocked() int {
	total := w.systemTokens
	for _, t := range w.tokens {
		total += t
	}
	return total
}

// AddMessage adds m to the window, pruning the oldest messages in batches
// of 2 until the window fits within maxTokens-reserveTokens, or until the
// window holds exactly the newly added message.
func (w *Window) AddMessage(m chat.Message) AddResult {
	w.mu.Lock()
	defer w.mu.Unlock()

	msgTokens := w.counter.CountMessage(m)
	if msgTokens > w.maxTokens {
		return AddResult{
			Added:             false,
			CurrentTokenCount: w.currentTokenCountLocked(),
			RemainingCapacity: w.remainingCapacityLocked(),
		}
	}

	w.messages = append(w.messages, m)
	w.tokens = append(w.tokens, msgTokens)

	var pruned []chat.Message
	target := w.maxTokens - w.reserveTokens
	removedCount := 0
	for w.currentTokenCountLocked() > target && len(w.messages) > 1 && removedCount < maxPrunedPerCall {
		batch := 2
		if len(w.messages)-1 < batch {
			batch = len(w.messages) - 1
		}
		if batch <= 0 {
			break
		}
		pruned = append(pruned, w.messages[:batch]...)
		w.messages = w.messages[batch:]
		w.tokens = w.tokens[batch:]
		removedCount += batch
	}

	return AddResult{
		Added:             true,
		PrunedMessages:    pruned,
		CurrentTokenCount: w.currentTokenCountLocked(),
		RemainingCapacity: w.remainingCapacityLocked(),
	}
}

func (w *Window) remainingCapacityLocked() int {
	rem := w.maxTokens - w.currentTokenCountLocked()
	if rem < 0 {
		rem = 0
	}
	return rem
}

// GetMessages returns a copy of the window's current messages.
func (w *Window) GetMessages() []chat.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]chat.Message, len(w.messages))
	copy(out, w.messages)
	return out
}

// PruneToFit forces pruning until the window fits within maxTokens-reserveTokens.
func (w *Window) PruneToFit() []chat.Message {
	w.mu.Lock()
	defer w.mu.Unlock()

	var pruned []chat.Message
	target := w.maxTokens - w.reserveTokens
	removedCount := 0
	for w.currentTokenCountLocked() > target && len(w.messages) > 1 && removedCount < maxPrunedPerCall {
		batch := 2
		if len(w.messages)-1 < batch {
			batch = len(w.messages) - 1
		}
		if batch <= 0 {
			break
		}
		pruned = append(pruned, w.messages[:batch]...)
		w.messages = w.messages[batch:]
		w.tokens = w.tokens[batch:]
		removedCount += batch
	}
	return pruned
}

// UpdateLimits changes maxTokens/reserveTokens without otherwise mutating
// the window; callers should follow with PruneToFit if the new limits are
// tighter than the current usage.
func (w *Window) UpdateLimits(maxTokens, reserveTokens int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.maxTokens = maxTokens
	w.reserveTokens = reserveTokens
}

// Dispose releases the window's resources. It does not own the counter's
// lifecycle (the manager does), so it is a no-op placeholder kept for
// symmetry with the manager's dispose chain.
func (w *Window) Dispose() error {
	return nil
}
