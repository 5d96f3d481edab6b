package api

import (
	"sync"

	"zapstream/internal/grid"
	"zapstream/internal/leaderboard"
	"zapstream/internal/models"
)

// notificationBacklog bounds the notification buffer served over HTTP.
const notificationBacklog = 50

// Store is the thin presentation adapter between the engine and the HTTP
// layer: it keeps the latest snapshots the engine emitted, nothing more.
// It implements engine.Listener.
type Store struct {
	mu            sync.RWMutex
	leaderboard   []models.LeaderboardEntry
	plan          grid.Plan
	notifications []models.Notification
	session       models.SessionView
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// OnLeaderboard replaces the current leaderboard snapshot.
func (s *Store) OnLeaderboard(entries []models.LeaderboardEntry) {
	s.mu.Lock()
	s.leaderboard = entries
	s.mu.Unlock()
}

// OnGrid replaces the current grid plan.
func (s *Store) OnGrid(plan grid.Plan) {
	s.mu.Lock()
	s.plan = plan
	s.mu.Unlock()
}

// OnNotification appends to the bounded notification buffer.
func (s *Store) OnNotification(n models.Notification) {
	s.mu.Lock()
	s.notifications = append(s.notifications, n)
	if len(s.notifications) > notificationBacklog {
		s.notifications = s.notifications[len(s.notifications)-notificationBacklog:]
	}
	s.mu.Unlock()
}

// OnSession replaces the current session view.
func (s *Store) OnSession(view models.SessionView) {
	s.mu.Lock()
	s.session = view
	s.mu.Unlock()
}

// Leaderboard returns the latest snapshot, at most n entries. The engine
// emits the full board; n <= 0 serves the default top-5 cut.
func (s *Store) Leaderboard(n int) []models.LeaderboardEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 {
		n = leaderboard.DefaultTopN
	}
	entries := s.leaderboard
	if len(entries) > n {
		entries = entries[:n]
	}
	out := make([]models.LeaderboardEntry, len(entries))
	copy(out, entries)
	return out
}

// Grid returns the latest plan.
func (s *Store) Grid() grid.Plan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plan
}

// Session returns the latest session view.
func (s *Store) Session() models.SessionView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Notifications returns the buffered notifications, oldest first.
func (s *Store) Notifications() []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}
