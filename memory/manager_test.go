package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/formflow/chat"
	"github.com/viant/formflow/refstore"
)

func newTestManager(maxTokens, reserveTokens int) *Manager {
	c := &fixedCounter{perMessage: 20}
	refs := refstore.New(refstore.Config{SizeThresholdBytes: 1 << 20, EnableAutoCleanup: false})
	return NewManager(c, maxTokens, reserveTokens, refs)
}

func TestManager_PrunedMessagesAreSearchable(t *testing.T) {
	m := newTestManager(100, 10)
	defer m.Dispose()

	for i := 0; i < 30; i++ {
		m.AddMessage(chat.NewUserMessage("hello findme text"))
	}

	found := m.SearchHistory("findme", SearchOptions{})
	assert.NotEmpty(t, found)
}

func TestManager_SearchHistory_CaseInsensitiveByDefault(t *testing.T) {
	m := newTestManager(40, 0)
	defer m.Dispose()

	m.AddMessage(chat.NewUserMessage("Three"))
	m.AddMessage(chat.NewUserMessage("one"))
	m.AddMessage(chat.NewUserMessage("two"))

	found := m.SearchHistory("three", SearchOptions{})
	require.NotEmpty(t, found)
	assert.Equal(t, "Three", found[0].Message.Content)
}

func TestManager_EntityAssociation_DedupeMostRecentWins(t *testing.T) {
	m := newTestManager(10000, 0)
	defer m.Dispose()

	older := EntityAssociation{EntityID: "0.0.123", EntityName: "old-name", EntityType: EntityToken}
	newer := EntityAssociation{EntityID: "0.0.123", EntityName: "new-name", EntityType: EntityToken}
	older.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer.CreatedAt = older.CreatedAt // force tie, then distinguish by transaction id below

	require.NoError(t, m.StoreEntityAssociation(older))
	newer.TransactionID = "tx-1"
	require.NoError(t, m.StoreEntityAssociation(newer))

	assocs := m.GetEntityAssociations()
	require.Len(t, assocs, 1)
	assert.Equal(t, "new-name", assocs[0].EntityName)
}

func TestManager_ResolveEntityReference_ExactID(t *testing.T) {
	m := newTestManager(10000, 0)
	defer m.Dispose()

	require.NoError(t, m.StoreEntityAssociation(EntityAssociation{
		EntityID: "0.0.999", EntityName: "My Topic", EntityType: EntityTopic,
	}))

	got := m.ResolveEntityReference("0.0.999")
	require.Len(t, got, 1)
	assert.Equal(t, "My Topic", got[0].EntityName)
}

func TestManager_GetContextSummary(t *testing.T) {
	m := newTestManager(1000, 0)
	defer m.Dispose()

	m.AddMessage(chat.NewUserMessage("hi"))
	summary := m.GetContextSummary()
	assert.Equal(t, 1, summary.ActiveMessageCount)
}
