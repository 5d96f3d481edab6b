package notify

import (
	"zapstream/internal/leaderboard"
	"zapstream/internal/models"
	"zapstream/internal/session"
)

// EmitFunc receives a fully-resolved notification. Called synchronously from
// the engine loop; implementations must not block.
type EmitFunc func(models.Notification)

// pending pairs a record snapshot with the rank computed at arrival time.
type pending struct {
	record *models.ZapRecord
	rank   int
}

// Scheduler holds zaps whose payer metadata has not resolved yet and emits a
// notification once it does. At most one entry is in flight per payer; a
// later zap from a still-unresolved payer replaces the earlier one.
type Scheduler struct {
	pending map[string]pending
	emit    EmitFunc
}

// NewScheduler creates a Scheduler that delivers through emit.
func NewScheduler(emit EmitFunc) *Scheduler {
	return &Scheduler{
		pending: make(map[string]pending),
		emit:    emit,
	}
}

// OnRecordAdded queues a notification for a freshly-added record. Backlog
// records never notify: only zaps arriving after the end-of-backlog signal
// are live events worth announcing.
func (s *Scheduler) OnRecordAdded(record *models.ZapRecord, sess *session.Session) {
	if !sess.BacklogComplete() {
		return
	}
	s.pending[record.PayerPubkey] = pending{
		record: record,
		rank:   leaderboard.RankOf(record.AmountSats, sess.Amounts()),
	}
}

// OnProfileResolved emits and removes the payer's pending entry, if any.
func (s *Scheduler) OnProfileResolved(payerPubkey string, profile models.Profile) {
	p, ok := s.pending[payerPubkey]
	if !ok {
		return
	}
	delete(s.pending, payerPubkey)

	name := profile.Name
	if name == "" {
		name = leaderboard.PlaceholderName
	}
	s.emit(models.Notification{
		PayerName:    name,
		PayerPicture: profile.Picture,
		Comment:      p.record.Comment,
		AmountSats:   p.record.AmountSats,
		Rank:         p.rank,
	})
}

// OnSessionReset discards every pending entry.
func (s *Scheduler) OnSessionReset() {
	s.pending = make(map[string]pending)
}

// PendingCount returns the number of payers awaiting profile resolution.
func (s *Scheduler) PendingCount() int { return len(s.pending) }
