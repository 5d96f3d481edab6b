package leaderboard

import (
	"sort"

	"zapstream/internal/models"
)

// DefaultTopN is the leaderboard size served when the caller does not ask
// for a specific depth.
const DefaultTopN = 5

// Placeholder identity shown until a payer's kind-0 metadata resolves.
const (
	PlaceholderName = "Anonymous"
)

// Aggregator maintains per-payer running totals for the active session.
// Totals are recomputed into a ranked projection on every read; the entries
// themselves are never stored as independent truth.
type Aggregator struct {
	totals map[string]*models.ZapperTotal
	order  []string // payer pubkeys in first-seen order, the tiebreak
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		totals: make(map[string]*models.ZapperTotal),
	}
}

// Accumulate adds a record's amount to its payer's running total, creating
// the total with placeholder identity on first sight.
func (a *Aggregator) Accumulate(record *models.ZapRecord) {
	total, ok := a.totals[record.PayerPubkey]
	if !ok {
		total = &models.ZapperTotal{
			PayerPubkey: record.PayerPubkey,
			DisplayName: PlaceholderName,
		}
		a.totals[record.PayerPubkey] = total
		a.order = append(a.order, record.PayerPubkey)
	}
	total.AmountSats += record.AmountSats
}

// AttachProfile updates a payer's display identity. No-op when the payer has
// no total yet; profile metadata never creates leaderboard rows.
func (a *Aggregator) AttachProfile(payerPubkey string, profile models.Profile) {
	total, ok := a.totals[payerPubkey]
	if !ok {
		return
	}
	if profile.Name != "" {
		total.DisplayName = profile.Name
	}
	if profile.Picture != "" {
		total.PictureURL = profile.Picture
	}
}

// Total returns the running total for a payer, or nil if unseen.
func (a *Aggregator) Total(payerPubkey string) *models.ZapperTotal {
	return a.totals[payerPubkey]
}

// Len returns the number of distinct payers.
func (a *Aggregator) Len() int { return len(a.order) }

// TopN returns the leaderboard: entries sorted by amount descending, ties
// broken by first-seen order. Ranks are positional (1-based).
func (a *Aggregator) TopN(n int) []models.LeaderboardEntry {
	if n <= 0 {
		n = DefaultTopN
	}

	ranked := make([]*models.ZapperTotal, 0, len(a.order))
	for _, pubkey := range a.order {
		ranked = append(ranked, a.totals[pubkey])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].AmountSats > ranked[j].AmountSats
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}

	entries := make([]models.LeaderboardEntry, len(ranked))
	for i, total := range ranked {
		entries[i] = models.LeaderboardEntry{
			Rank:        i + 1,
			PayerPubkey: total.PayerPubkey,
			AmountSats:  total.AmountSats,
			DisplayName: total.DisplayName,
			PictureURL:  total.PictureURL,
		}
	}
	return entries
}

// Reset drops all totals.
func (a *Aggregator) Reset() {
	a.totals = make(map[string]*models.ZapperTotal)
	a.order = nil
}
