package models

// ZapRecord is a validated, immutable zap derived from a receipt event.
// Id doubles as the dedup key; exactly one record exists per receipt id per session.
type ZapRecord struct {
	ID           string `json:"id"`
	PayerPubkey  string `json:"payerPubkey"`
	AmountSats   int64  `json:"amountSats"`
	Comment      string `json:"comment,omitempty"`
	TimestampSec int64  `json:"timestampSec"`
	TargetID     string `json:"targetId,omitempty"`
}

// ZapperTotal tracks a payer's running total for the session.
// DisplayName and PictureURL update independently when profile metadata arrives.
type ZapperTotal struct {
	PayerPubkey string `json:"payerPubkey"`
	AmountSats  int64  `json:"amountSats"`
	DisplayName string `json:"displayName"`
	PictureURL  string `json:"pictureUrl,omitempty"`
}

// LeaderboardEntry is a pure projection of a ZapperTotal at a point in time.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	PayerPubkey string `json:"payerPubkey"`
	AmountSats  int64  `json:"amountSats"`
	DisplayName string `json:"displayName"`
	PictureURL  string `json:"pictureUrl,omitempty"`
}

// Profile is the payer metadata resolved from a kind-0 event.
type Profile struct {
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// SessionView is the engine's snapshot of the active session for the
// presentation layer.
type SessionView struct {
	Target          string `json:"target"`
	BacklogComplete bool   `json:"backlogComplete"`
	Records         int    `json:"records"`
}

// Notification is emitted once per resolved pending entry.
type Notification struct {
	PayerName    string `json:"payerName"`
	PayerPicture string `json:"payerPicture,omitempty"`
	Comment      string `json:"comment,omitempty"`
	AmountSats   int64  `json:"amountSats"`
	Rank         int    `json:"rank"`
}
