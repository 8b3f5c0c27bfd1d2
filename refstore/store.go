// Package refstore implements the content-addressed, TTL/size-bounded
// reference store: large payloads are swapped for short opaque references
// and resolved back on demand, so the rest of the system can keep
// conversations inside a token budget without losing access to the
// original content.
package refstore

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

var logger = log.New(log.Writer(), "[refstore] ", log.LstdFlags)

// State is a reference's lifecycle stage.
type State string

const (
	StateActive         State = "active"
	StateExpired         State = "expired"
	StateCleanupPending  State = "cleanup_pending"
	StateCorrupted       State = "corrupted"
)

// ContentType classifies the stored payload for preview generation.
type ContentType string

const (
	ContentText     ContentType = "text"
	ContentJSON     ContentType = "json"
	ContentHTML     ContentType = "html"
	ContentMarkdown ContentType = "markdown"
	ContentBinary   ContentType = "binary"
)

// Source identifies who produced the stored content, driving cleanup
// priority.
type Source string

const (
	SourceMCPTool        Source = "mcp_tool"
	SourceUserUpload      Source = "user_upload"
	SourceAgentGenerated  Source = "agent_generated"
	SourceOther           Source = "other"
)

// ErrorType is the semantic failure kind of a resolution attempt.
type ErrorType string

const (
	ErrNotFound    ErrorType = "not_found"
	ErrExpired     ErrorType = "expired"
	ErrCorrupted   ErrorType = "corrupted"
	ErrSystemError ErrorType = "system_error"
)

const referenceIDLength = 43

// Metadata describes a stored reference's provenance and access history.
type Metadata struct {
	ContentType    ContentType
	SizeBytes      int
	Source         Source
	MimeType       string
	FileName       string
	CreatedAt      time.Time
	LastAccessedAt time.Time
	AccessCount    int
	Tags           []string
}

// Reference is the on-wire handle standing in for stored content.
type Reference struct {
	ReferenceID string
	State       State
	Preview     string
	Metadata    Metadata
	CreatedAt   time.Time
	ExpiresAt   *time.Time
}

// Format renders the reference as the `ref://{id}` URI grammar.
func (r *Reference) Format() string {
	return "ref://" + r.ReferenceID
}

// ResolveResult is returned by ResolveReference; it never surfaces as a Go
// error so callers always get a branchable value, per spec.md §7.
type ResolveResult struct {
	Success          bool
	Content          []byte
	Metadata         *Metadata
	Error            string
	ErrorType        ErrorType
	SuggestedActions []string
}

type entry struct {
	ref     Reference
	content []byte
}

// SourcePolicy configures per-source cleanup aging and priority.
type SourcePolicy struct {
	MaxAge   time.Duration
	Priority int // higher runs first during age-based cleanup
}

// Config tunes store thresholds and cleanup behavior.
type Config struct {
	SizeThresholdBytes  int
	MaxReferences        int
	MaxTotalStorageBytes int64
	EnableAutoCleanup     bool
	CleanupInterval       time.Duration
	SourcePolicies        map[Source]SourcePolicy
}

// DefaultConfig mirrors the teacher's "reasonable defaults" convention.
func DefaultConfig() Config {
	return Config{
		SizeThresholdBytes:   1024,
		MaxReferences:        10000,
		MaxTotalStorageBytes: 256 * 1024 * 1024,
		EnableAutoCleanup:    true,
		CleanupInterval:      5 * time.Minute,
		SourcePolicies: map[Source]SourcePolicy{
			SourceMCPTool:       {MaxAge: 30 * time.Minute, Priority: 30},
			SourceUserUpload:    {MaxAge: 24 * time.Hour, Priority: 10},
			SourceAgentGenerated: {MaxAge: 6 * time.Hour, Priority: 20},
			SourceOther:         {MaxAge: time.Hour, Priority: 5},
		},
	}
}

// Stats reports store-wide statistics, per spec.md §4.3.
type Stats struct {
	ActiveReferences        int
	TotalStorageBytes       int64
	TotalResolutions        int64
	FailedResolutions       int64
	RecentlyCleanedUp       int
	AverageContentSize      float64
	StorageUtilizationPct   float64
	MostAccessedReferenceID string
}

// Store is the content-addressed reference store.
type Store struct {
	mu      sync.RWMutex
	cfg     Config
	entries map[string]*entry

	idLocks []sync.Mutex

	totalResolutions  int64
	failedResolutions int64
	lastCleanedUp     int

	creationDurations   *durationWindow
	resolutionDurations *durationWindow
	cleanupDurations    *durationWindow

	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates a Store and starts its cleanup loop if enabled.
func New(cfg Config) *Store {
	s := &Store{
		cfg:                 cfg,
		entries:             map[string]*entry{},
		idLocks:             make([]sync.Mutex, 64),
		creationDurations:   newDurationWindow(100),
		resolutionDurations: newDurationWindow(100),
		cleanupDurations:    newDurationWindow(100),
	}
	s.startCleanup()
	return s
}

func (s *Store) lockFor(id string) *sync.Mutex {
	h := fnv32(id)
	return &s.idLocks[h%uint32(len(s.idLocks))]
}

func fnv32(s string) uint32 {
	const prime = 16777619
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}

// ShouldUseReference reports whether content exceeds the size threshold.
func (s *Store) ShouldUseReference(content []byte) bool {
	s.mu.RLock()
	threshold := s.cfg.SizeThresholdBytes
	s.mu.RUnlock()
	return len(content) > threshold
}

// computeReferenceID derives a deterministic, content-addressed,
//43-character URL-safe id from content bytes.
func computeReferenceID(content []byte) string {
	sum := sha256.Sum256(content)
	id := base64.RawURLEncoding.EncodeToString(sum[:])
	if len(id) > referenceIDLength {
		id = id[:referenceIDLength]
	}
	for len(id) < referenceIDLength {
		id += "A"
	}
	return id
}

// StoreContentIfLarge stores content only when it exceeds the size
// threshold, returning nil otherwise.
func (s *Store) StoreContentIfLarge(content []byte, meta Metadata) (*Reference, error) {
	if !s.ShouldUseReference(content) {
		return nil, nil
	}
	return s.StoreContent(content, meta)
}

// StoreContent always stores content, returning its reference.
func (s *Store) StoreContent(content []byte, meta Metadata) (*Reference, error) {
	start := time.Now()
	id := computeReferenceID(content)
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if meta.ContentType == "" {
		meta.ContentType = detectContentType(content, meta.MimeType)
	}
	meta.SizeBytes = len(content)
	meta.CreatedAt = now
	meta.LastAccessedAt = now
	if meta.Source == "" {
		meta.Source = SourceOther
	}

	if existing, ok := s.entries[id]; ok {
		existing.ref.State = StateActive
		s.creationDurations.add(time.Since(start))
		return cloneRef(&existing.ref), nil
	}

	ref := Reference{
		ReferenceID: id,
		State:       StateActive,
		Preview:     generatePreview(content, meta.ContentType),
		Metadata:    meta,
		CreatedAt:   now,
	}
	if policy, ok := s.cfg.SourcePolicies[meta.Source]; ok && policy.MaxAge > 0 {
		exp := now.Add(policy.MaxAge)
		ref.ExpiresAt = &exp
	}
	s.entries[id] = &entry{ref: ref, content: append([]byte(nil), content...)}
	s.creationDurations.add(time.Since(start))

	if s.totalStorageBytesLocked() > s.cfg.MaxTotalStorageBytes {
		s.performCleanupLocked()
	}
	if len(s.entries) > s.cfg.MaxReferences {
		s.performCleanupLocked()
	}
	return cloneRef(&ref), nil
}

func cloneRef(r *Reference) *Reference {
	cp := *r
	if r.ExpiresAt != nil {
		exp := *r.ExpiresAt
		cp.ExpiresAt = &exp
	}
	return &cp
}

var suggestedActionsByError = map[ErrorType][]string{
	ErrNotFound:    {"Verify the reference ID", "Request fresh content"},
	ErrExpired:     {"Request fresh content", "References expire after their source's retention window"},
	ErrCorrupted:   {"Request fresh content", "Report the corrupted reference"},
	ErrSystemError: {"Retry the request", "Report the issue if it persists"},
}

// ResolveReference resolves a reference id back to its original content.
// It never returns a Go error for expected failures; see ResolveResult.
func (s *Store) ResolveReference(id string) ResolveResult {
	start := time.Now()
	if !ValidReferenceID(id) {
		s.mu.Lock()
		s.failedResolutions++
		s.mu.Unlock()
		return notFoundResult()
	}

	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		s.failedResolutions++
		return notFoundResult()
	}

	s.refreshExpiryLocked(e)

	if e.ref.State != StateActive {
		s.failedResolutions++
		errType := stateToErrorType(e.ref.State)
		return ResolveResult{
			Success:          false,
			Error:            fmt.Sprintf("reference %s is %s", id, e.ref.State),
			ErrorType:        errType,
			SuggestedActions: suggestedActionsByError[errType],
		}
	}

	e.ref.Metadata.LastAccessedAt = time.Now()
	e.ref.Metadata.AccessCount++
	s.totalResolutions++
	s.resolutionDurations.add(time.Since(start))

	return ResolveResult{
		Success:  true,
		Content:  append([]byte(nil), e.content...),
		Metadata: cloneMetadata(&e.ref.Metadata),
	}
}

func cloneMetadata(m *Metadata) *Metadata {
	cp := *m
	cp.Tags = append([]string(nil), m.Tags...)
	return &cp
}

func notFoundResult() ResolveResult {
	return ResolveResult{
		Success:          false,
		Error:            "reference not found",
		ErrorType:        ErrNotFound,
		SuggestedActions: suggestedActionsByError[ErrNotFound],
	}
}

func stateToErrorType(s State) ErrorType {
	switch s {
	case StateExpired:
		return ErrExpired
	case StateCorrupted:
		return ErrCorrupted
	case StateCleanupPending:
		return ErrNotFound
	default:
		return ErrSystemError
	}
}

// refreshExpiryLocked transitions active → expired when the deadline has
// passed. Caller must hold s.mu.
func (s *Store) refreshExpiryLocked(e *entry) {
	if e.ref.State == StateActive && e.ref.ExpiresAt != nil && time.Now().After(*e.ref.ExpiresAt) {
		e.ref.State = StateExpired
	}
}

// HasReference reports whether id names an active, non-expired reference.
func (s *Store) HasReference(id string) bool {
	if !ValidReferenceID(id) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return false
	}
	s.refreshExpiryLocked(e)
	return e.ref.State == StateActive
}

// CleanupReference explicitly marks a reference for cleanup.
func (s *Store) CleanupReference(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return errors.New("refstore: reference not found")
	}
	e.ref.State = StateCleanupPending
	return nil
}

// ValidReferenceID checks the 43-char URL-safe shape spec.md §3/§6 require.
func ValidReferenceID(id string) bool {
	if len(id) != referenceIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}

// GetStats reports store-wide statistics.
func (s *Store) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var totalSize int64
	var active int
	var mostAccessed string
	var maxAccess int
	for id, e := range s.entries {
		if e.ref.State == StateActive {
			active++
		}
		totalSize += int64(e.ref.Metadata.SizeBytes)
		if e.ref.Metadata.AccessCount > maxAccess {
			maxAccess = e.ref.Metadata.AccessCount
			mostAccessed = id
		}
	}
	avg := 0.0
	if len(s.entries) > 0 {
		avg = float64(totalSize) / float64(len(s.entries))
	}
	util := 0.0
	if s.cfg.MaxTotalStorageBytes > 0 {
		util = float64(totalSize) / float64(s.cfg.MaxTotalStorageBytes) * 100
	}
	return Stats{
		ActiveReferences:        active,
		TotalStorageBytes:       totalSize,
		TotalResolutions:        s.totalResolutions,
		FailedResolutions:       s.failedResolutions,
		RecentlyCleanedUp:       s.lastCleanedUp,
		AverageContentSize:      avg,
		StorageUtilizationPct:   util,
		MostAccessedReferenceID: mostAccessed,
	}
}

func (s *Store) totalStorageBytesLocked() int64 {
	var total int64
	for _, e := range s.entries {
		total += int64(e.ref.Metadata.SizeBytes)
	}
	return total
}

// UpdateConfig replaces the store's configuration and restarts the cleanup
// timer, per spec.md §5.
func (s *Store) UpdateConfig(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	s.stopCleanup()
	s.startCleanup()
}
