package memory

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/viant/formflow/chat"
	"github.com/viant/formflow/refstore"
	"github.com/viant/formflow/token"
)

// StoredMessage is a message forwarded to the message index, annotated
// with when it was stored, per spec.md §3.
type StoredMessage struct {
	ID       string
	Message  chat.Message
	StoredAt time.Time
}

// SearchOptions configures SearchHistory.
type SearchOptions struct {
	CaseSensitive bool
	Limit         int
	UseRegex      bool
}

// ContextSummary is a compact snapshot suitable for reporting memory
// pressure to a caller.
type ContextSummary struct {
	ActiveMessageCount int
	IndexedMessageCount int
	CurrentTokenCount   int
	RemainingCapacity   int
}

// ExportedState is the serializable snapshot returned by ExportState.
type ExportedState struct {
	Messages []chat.Message
	Indexed  []StoredMessage
}

// Manager composes the token counter, memory window and content reference
// store into the Smart Memory Manager (C4).
type Manager struct {
	mu       sync.RWMutex
	window   *Window
	refs     *refstore.Store
	counter  token.Counter
	index    []StoredMessage
	entities []EntityAssociation
	seq      int
}

// NewManager wires a Manager from its three constituent components.
func NewManager(counter token.Counter, maxTokens, reserveTokens int, refs *refstore.Store) *Manager {
	return &Manager{
		window:  NewWindow(counter, maxTokens, reserveTokens),
		refs:    refs,
		counter: counter,
	}
}

func (m *Manager) nextID() string {
	m.seq++
	return time.Now().UTC().Format("20060102T150405.000000000") + "-" + itoa(m.seq)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// AddMessage adds a message to the live window; any pruned messages are
// forwarded to the message index in their original order before the new
// message is considered stored, per spec.md §4.4/§5.
func (m *Manager) AddMessage(msg chat.Message) AddResult {
	res := m.window.AddMessage(msg)
	if len(res.PrunedMessages) > 0 {
		m.mu.Lock()
		for _, pm := range res.PrunedMessages {
			m.index = append(m.index, StoredMessage{ID: m.nextID(), Message: pm, StoredAt: time.Now()})
		}
		m.mu.Unlock()
	}
	return res
}

// GetMessages returns the live window's current messages.
func (m *Manager) GetMessages() []chat.Message {
	return m.window.GetMessages()
}

// Clear empties the live window. When clearStorage is true, the message
// index is cleared too.
func (m *Manager) Clear(clearStorage bool) {
	m.window.mu.Lock()
	m.window.messages = nil
	m.window.tokens = nil
	m.window.mu.Unlock()

	if clearStorage {
		m.mu.Lock()
		m.index = nil
		m.entities = nil
		m.mu.Unlock()
	}
}

// SetSystemPrompt sets the window's system prompt.
func (m *Manager) SetSystemPrompt(prompt string) {
	m.window.SetSystemPrompt(prompt)
}

// SearchHistory searches the message index by substring (case-insensitive
// by default) or regex, returning up to opts.Limit results.
func (m *Manager) SearchHistory(query string, opts SearchOptions) []StoredMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matcher func(string) bool
	if opts.UseRegex {
		flags := ""
		if !opts.CaseSensitive {
			flags = "(?i)"
		}
		re, err := regexp.Compile(flags + query)
		if err != nil {
			return nil
		}
		matcher = re.MatchString
	} else {
		needle := query
		if !opts.CaseSensitive {
			needle = strings.ToLower(needle)
		}
		matcher = func(s string) bool {
			if !opts.CaseSensitive {
				s = strings.ToLower(s)
			}
			return strings.Contains(s, needle)
		}
	}

	var out []StoredMessage
	for _, sm := range m.index {
		if matcher(sm.Message.Text()) {
			out = append(out, sm)
			if opts.Limit > 0 && len(out) >= opts.Limit {
				break
			}
		}
	}
	return out
}

// GetRecentHistory returns the last n indexed messages.
func (m *Manager) GetRecentHistory(n int) []StoredMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n <= 0 || n > len(m.index) {
		n = len(m.index)
	}
	start := len(m.index) - n
	out := make([]StoredMessage, n)
	copy(out, m.index[start:])
	return out
}

// GetHistoryByType filters indexed messages by role.
func (m *Manager) GetHistoryByType(role chat.Role) []StoredMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []StoredMessage
	for _, sm := range m.index {
		if sm.Message.Role == role {
			out = append(out, sm)
		}
	}
	return out
}

// GetHistoryFromTimeRange filters indexed messages by StoredAt.
func (m *Manager) GetHistoryFromTimeRange(from, to time.Time) []StoredMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []StoredMessage
	for _, sm := range m.index {
		if !sm.StoredAt.Before(from) && !sm.StoredAt.After(to) {
			out = append(out, sm)
		}
	}
	return out
}

// GetRecentHistoryByTime returns indexed messages stored within the last d.
func (m *Manager) GetRecentHistoryByTime(d time.Duration) []StoredMessage {
	return m.GetHistoryFromTimeRange(time.Now().Add(-d), time.Now())
}

// StoreEntityAssociation records an entity association, storing it both as
// a system message in the active window and as a record in the message
// index so recall survives pruning, per spec.md §4.4.
func (m *Manager) StoreEntityAssociation(a EntityAssociation) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	payload, err := marshalEntityAssociation(a)
	if err != nil {
		return err
	}

	m.window.AddMessage(chat.NewSystemMessage(payload))

	m.mu.Lock()
	m.entities = append(m.entities, a)
	m.index = append(m.index, StoredMessage{ID: m.nextID(), Message: chat.NewSystemMessage(payload), StoredAt: time.Now()})
	m.mu.Unlock()
	return nil
}

// ResolveEntityReference resolves a free-text reference to entity
// associations. Exact-id queries match only by id; otherwise substring
// search over serialized records. Results are de-duplicated by entityId,
// most recent first.
func (m *Manager) ResolveEntityReference(query string) []EntityAssociation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if exactEntityIDPattern.MatchString(query) {
		var out []EntityAssociation
		for _, a := range m.entities {
			if a.EntityID == query {
				out = append(out, a)
			}
		}
		return dedupeAssociationsMostRecentWins(out)
	}

	lower := strings.ToLower(query)
	var out []EntityAssociation
	for _, a := range m.entities {
		payload, err := marshalEntityAssociation(a)
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(payload), lower) {
			out = append(out, a)
		}
	}
	return dedupeAssociationsMostRecentWins(out)
}

// GetEntityAssociations returns every recorded entity association,
// de-duplicated by entityId, most recent first.
func (m *Manager) GetEntityAssociations() []EntityAssociation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return dedupeAssociationsMostRecentWins(append([]EntityAssociation(nil), m.entities...))
}

// ExportState snapshots the manager's window and index for diagnostics or
// external persistence (the manager itself persists nothing).
func (m *Manager) ExportState() ExportedState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return ExportedState{
		Messages: m.window.GetMessages(),
		Indexed:  append([]StoredMessage(nil), m.index...),
	}
}

// GetContextSummary reports a compact memory-pressure snapshot.
func (m *Manager) GetContextSummary() ContextSummary {
	m.window.mu.Lock()
	current := m.window.currentTokenCountLocked()
	remaining := m.window.remainingCapacityLocked()
	active := len(m.window.messages)
	m.window.mu.Unlock()

	m.mu.RLock()
	indexed := len(m.index)
	m.mu.RUnlock()

	return ContextSummary{
		ActiveMessageCount:  active,
		IndexedMessageCount: indexed,
		CurrentTokenCount:   current,
		RemainingCapacity:   remaining,
	}
}

// Dispose tears down window, content store and counter, in that order,
// per spec.md §5.
func (m *Manager) Dispose() error {
	if err := m.window.Dispose(); err != nil {
		return err
	}
	if m.refs != nil {
		if err := m.refs.Close(); err != nil {
			return err
		}
	}
	return m.counter.Close()
}
