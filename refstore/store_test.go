package refstore

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SizeThresholdBytes = 100
	cfg.EnableAutoCleanup = false
	return cfg
}

func TestStoreContentIfLarge_BelowThresholdPassesThrough(t *testing.T) {
	s := New(testConfig())
	defer s.Close()

	ref, err := s.StoreContentIfLarge([]byte("small"), Metadata{Source: SourceMCPTool})
	require.NoError(t, err)
	assert.Nil(t, ref)
}

func TestStoreContentIfLarge_AboveThresholdStores(t *testing.T) {
	s := New(testConfig())
	defer s.Close()

	content := []byte(strings.Repeat("x", 200))
	ref, err := s.StoreContentIfLarge(content, Metadata{Source: SourceMCPTool})
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, StateActive, ref.State)
	assert.LessOrEqual(t, len([]rune(ref.Preview)), 203)
	assert.True(t, strings.HasSuffix(ref.Preview, "..."))
}

func TestReferenceID_ContentAddressed(t *testing.T) {
	s := New(testConfig())
	defer s.Close()

	content := []byte(strings.Repeat("y", 200))
	ref1, err := s.StoreContent(content, Metadata{Source: SourceMCPTool})
	require.NoError(t, err)
	ref2, err := s.StoreContent(content, Metadata{Source: SourceMCPTool})
	require.NoError(t, err)

	assert.Equal(t, ref1.ReferenceID, ref2.ReferenceID)
	assert.Len(t, ref1.ReferenceID, referenceIDLength)
	assert.True(t, ValidReferenceID(ref1.ReferenceID))
}

func TestResolveReference_RoundTrip(t *testing.T) {
	s := New(testConfig())
	defer s.Close()

	content := []byte(strings.Repeat("z", 200))
	ref, err := s.StoreContent(content, Metadata{Source: SourceMCPTool})
	require.NoError(t, err)

	res := s.ResolveReference(ref.ReferenceID)
	require.True(t, res.Success)
	assert.Equal(t, content, res.Content)

	res2 := s.ResolveReference(ref.ReferenceID)
	require.True(t, res2.Success)
	assert.Equal(t, 2, res2.Metadata.AccessCount)
}

func TestResolveReference_NotFound(t *testing.T) {
	s := New(testConfig())
	defer s.Close()

	res := s.ResolveReference("this-is-not-a-valid-reference-id-at-all!!")
	assert.False(t, res.Success)
	assert.Equal(t, ErrNotFound, res.ErrorType)
	assert.NotEmpty(t, res.SuggestedActions)
}

func TestResolveReference_Expired(t *testing.T) {
	cfg := testConfig()
	cfg.SourcePolicies[SourceMCPTool] = SourcePolicy{MaxAge: time.Millisecond, Priority: 30}
	s := New(cfg)
	defer s.Close()

	content := []byte(strings.Repeat("e", 200))
	ref, err := s.StoreContent(content, Metadata{Source: SourceMCPTool})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	res := s.ResolveReference(ref.ReferenceID)
	assert.False(t, res.Success)
	assert.Equal(t, ErrExpired, res.ErrorType)
}

func TestHasReference(t *testing.T) {
	s := New(testConfig())
	defer s.Close()

	content := []byte(strings.Repeat("h", 200))
	ref, err := s.StoreContent(content, Metadata{Source: SourceMCPTool})
	require.NoError(t, err)

	assert.True(t, s.HasReference(ref.ReferenceID))
	require.NoError(t, s.CleanupReference(ref.ReferenceID))
	assert.False(t, s.HasReference(ref.ReferenceID))
}

func TestExtractReferenceID(t *testing.T) {
	id := strings.Repeat("a", 43)
	got, ok := ExtractReferenceID("see ref://" + id + " for details")
	assert.True(t, ok)
	assert.Equal(t, id, got)

	got, ok = ExtractReferenceID("bare " + id + " id")
	assert.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = ExtractReferenceID("nothing here")
	assert.False(t, ok)
}

func TestPerformCleanup_EvictsAgedEntries(t *testing.T) {
	cfg := testConfig()
	cfg.SourcePolicies[SourceMCPTool] = SourcePolicy{MaxAge: time.Millisecond, Priority: 30}
	s := New(cfg)
	defer s.Close()

	content := []byte(strings.Repeat("c", 200))
	ref, err := s.StoreContent(content, Metadata{Source: SourceMCPTool})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	removed := s.PerformCleanup(nil)
	assert.Equal(t, 1, removed)
	assert.False(t, s.HasReference(ref.ReferenceID))
}
