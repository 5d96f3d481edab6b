package session

import (
	"sort"

	"zapstream/internal/models"
)

// Session owns the deduplicated, arrival-ordered zap records for one live
// target. The engine actor is the only writer; no locking here.
type Session struct {
	key             string
	generation      uint64
	backlogComplete bool

	records []*models.ZapRecord
	seen    map[string]struct{}
}

// New creates an empty session for the given target key.
func New(key string) *Session {
	return &Session{
		key:  key,
		seen: make(map[string]struct{}),
	}
}

// Key returns the session's target id.
func (s *Session) Key() string { return s.key }

// Generation returns the current session generation. Callbacks captured
// before a Reset compare against it and drop themselves when stale.
func (s *Session) Generation() uint64 { return s.generation }

// BacklogComplete reports whether the end-of-backlog signal has arrived.
func (s *Session) BacklogComplete() bool { return s.backlogComplete }

// Add inserts a record unless its id was already seen. Returns true if the
// record was newly added. Records targeting a different session key are
// dropped; an empty target is accepted (legacy receipts omit the tag).
func (s *Session) Add(record *models.ZapRecord) bool {
	if record.TargetID != "" && record.TargetID != s.key {
		return false
	}
	if _, dup := s.seen[record.ID]; dup {
		return false
	}
	s.seen[record.ID] = struct{}{}
	s.records = append(s.records, record)
	return true
}

// Reset clears all state and rebinds the session to a new target key.
// Must run exactly once per session transition.
func (s *Session) Reset(newKey string) {
	s.key = newKey
	s.generation++
	s.backlogComplete = false
	s.records = nil
	s.seen = make(map[string]struct{})
}

// MarkBacklogComplete records the transport's end-of-backlog signal.
// Records added after this point are live and may notify.
func (s *Session) MarkBacklogComplete() {
	s.backlogComplete = true
}

// Len returns the number of accepted records.
func (s *Session) Len() int { return len(s.records) }

// Records returns the records in arrival order. Callers must not mutate.
func (s *Session) Records() []*models.ZapRecord { return s.records }

// Amounts returns every accepted amount in arrival order.
func (s *Session) Amounts() []int64 {
	amounts := make([]int64, len(s.records))
	for i, r := range s.records {
		amounts[i] = r.AmountSats
	}
	return amounts
}

// RecordsByAmount returns a fresh slice sorted by amount descending,
// ties kept in arrival order. A pure projection, recomputed per call.
func (s *Session) RecordsByAmount() []*models.ZapRecord {
	out := make([]*models.ZapRecord, len(s.records))
	copy(out, s.records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AmountSats > out[j].AmountSats
	})
	return out
}

// RecordsByTime returns a fresh slice sorted by timestamp descending,
// ties kept in arrival order.
func (s *Session) RecordsByTime() []*models.ZapRecord {
	out := make([]*models.ZapRecord, len(s.records))
	copy(out, s.records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TimestampSec > out[j].TimestampSec
	})
	return out
}
