package refstore

import (
	"context"
	"sort"
	"time"
)

// startCleanup launches the periodic cleanup task when enabled, mirroring
// spec.md §5's "recurring scheduled job at cleanupIntervalMs" that is a
// no-op when auto-cleanup is disabled.
func (s *Store) startCleanup() {
	s.mu.RLock()
	enabled := s.cfg.EnableAutoCleanup
	interval := s.cfg.CleanupInterval
	s.mu.RUnlock()
	if !enabled || interval <= 0 {
		return
	}

	s.stop = make(chan struct{})
	s.wg.Add(1)
	go func(stop chan struct{}) {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.PerformCleanup(context.Background())
			case <-stop:
				return
			}
		}
	}(s.stop)
}

// stopCleanup cancels any running timer; safe to call when none is running.
func (s *Store) stopCleanup() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	s.wg.Wait()
	s.stop = nil
}

// Close stops the cleanup loop. It does not discard stored references.
func (s *Store) Close() error {
	s.stopCleanup()
	return nil
}

// PerformCleanup runs one cleanup pass: expire by deadline, evict by
// source-policy age (highest priority first), evict explicitly pending
// entries, then evict least-recently-accessed entries past MaxReferences.
func (s *Store) PerformCleanup(ctx context.Context) int {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	now := time.Now()

	// 1. Expire by deadline.
	for _, e := range s.entries {
		s.refreshExpiryLocked(e)
	}

	// 2. Remove by source-policy age, highest priority first.
	type candidate struct {
		id       string
		priority int
	}
	var aged []candidate
	for id, e := range s.entries {
		policy, ok := s.cfg.SourcePolicies[e.ref.Metadata.Source]
		if !ok || policy.MaxAge <= 0 {
			continue
		}
		if now.Sub(e.ref.Metadata.CreatedAt) > policy.MaxAge {
			aged = append(aged, candidate{id: id, priority: policy.Priority})
		}
	}
	sort.Slice(aged, func(i, j int) bool { return aged[i].priority > aged[j].priority })
	for _, c := range aged {
		delete(s.entries, c.id)
		removed++
	}

	// 3. Remove explicitly pending / expired entries.
	for id, e := range s.entries {
		if e.ref.State == StateCleanupPending || e.ref.State == StateExpired {
			delete(s.entries, id)
			removed++
		}
	}

	// 4. Evict least-recently-accessed past MaxReferences.
	if s.cfg.MaxReferences > 0 && len(s.entries) > s.cfg.MaxReferences {
		type lru struct {
			id       string
			accessed time.Time
		}
		var all []lru
		for id, e := range s.entries {
			all = append(all, lru{id: id, accessed: e.ref.Metadata.LastAccessedAt})
		}
		sort.Slice(all, func(i, j int) bool { return all[i].accessed.Before(all[j].accessed) })
		excess := len(s.entries) - s.cfg.MaxReferences
		for i := 0; i < excess && i < len(all); i++ {
			delete(s.entries, all[i].id)
			removed++
		}
	}

	s.lastCleanedUp = removed
	s.cleanupDurations.add(time.Since(start))
	return removed
}

// performCleanupLocked runs cleanup assuming s.mu is already held for
// writing (used inline from StoreContent's threshold triggers).
func (s *Store) performCleanupLocked() {
	removed := 0
	for id, e := range s.entries {
		s.refreshExpiryLocked(e)
		if e.ref.State == StateExpired || e.ref.State == StateCleanupPending {
			delete(s.entries, id)
			removed++
		}
	}
	if s.cfg.MaxReferences > 0 && len(s.entries) > s.cfg.MaxReferences {
		type lru struct {
			id       string
			accessed time.Time
		}
		var all []lru
		for id, e := range s.entries {
			all = append(all, lru{id: id, accessed: e.ref.Metadata.LastAccessedAt})
		}
		sort.Slice(all, func(i, j int) bool { return all[i].accessed.Before(all[j].accessed) })
		excess := len(s.entries) - s.cfg.MaxReferences
		for i := 0; i < excess && i < len(all); i++ {
			delete(s.entries, all[i].id)
			removed++
		}
	}
	s.lastCleanedUp = removed
}
