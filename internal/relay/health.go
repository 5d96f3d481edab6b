package relay

import (
	"sync"
	"time"
)

const (
	maxRelayFailures     = 3
	relayBanDuration     = 30 * time.Minute
	relayFailureResetAge = 10 * time.Minute
)

type relayFailureInfo struct {
	failureCount int
	lastFailure  time.Time
	bannedUntil  time.Time
}

// HealthTracker counts relay failures and temporarily bans relays that keep
// failing, so a dead relay doesn't stall every resubscribe.
type HealthTracker struct {
	failedRelays map[string]*relayFailureInfo
	mu           sync.RWMutex
}

// NewHealthTracker creates an empty HealthTracker.
func NewHealthTracker() *HealthTracker {
	return &HealthTracker{
		failedRelays: make(map[string]*relayFailureInfo),
	}
}

// IsBanned checks if a relay is currently banned.
func (t *HealthTracker) IsBanned(relay string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if info, exists := t.failedRelays[relay]; exists {
		if time.Now().Before(info.bannedUntil) {
			return true
		}
	}
	return false
}

// RecordFailure records a failure for a relay and potentially bans it.
// A failure older than the reset age starts the count over.
func (t *HealthTracker) RecordFailure(relay string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	info, exists := t.failedRelays[relay]

	if !exists {
		t.failedRelays[relay] = &relayFailureInfo{
			failureCount: 1,
			lastFailure:  now,
		}
		return
	}

	if now.Sub(info.lastFailure) > relayFailureResetAge {
		info.failureCount = 1
		info.lastFailure = now
		return
	}

	info.failureCount++
	info.lastFailure = now

	if info.failureCount >= maxRelayFailures {
		info.bannedUntil = now.Add(relayBanDuration)
	}
}

// RecordSuccess clears a relay's failure history.
func (t *HealthTracker) RecordSuccess(relay string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.failedRelays, relay)
}

// FilterBanned removes banned relays from the list.
func (t *HealthTracker) FilterBanned(relays []string) []string {
	filtered := make([]string, 0, len(relays))
	for _, relay := range relays {
		if !t.IsBanned(relay) {
			filtered = append(filtered, relay)
		}
	}
	return filtered
}

// Stats returns how many relays have failure history and how many are
// currently banned.
func (t *HealthTracker) Stats() (total int, banned int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := time.Now()
	total = len(t.failedRelays)
	for _, info := range t.failedRelays {
		if now.Before(info.bannedUntil) {
			banned++
		}
	}
	return
}
