package leaderboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zapstream/internal/models"
)

func zapFrom(payer string, amount int64) *models.ZapRecord {
	return &models.ZapRecord{
		ID:          payer + "-zap",
		PayerPubkey: payer,
		AmountSats:  amount,
	}
}

func TestAccumulateSumsPerPayer(t *testing.T) {
	a := NewAggregator()
	a.Accumulate(zapFrom("p1", 1000))
	a.Accumulate(&models.ZapRecord{ID: "z2", PayerPubkey: "p1", AmountSats: 500})

	total := a.Total("p1")
	require.NotNil(t, total)
	assert.Equal(t, int64(1500), total.AmountSats)
	assert.Equal(t, PlaceholderName, total.DisplayName)
}

func TestTopNStableTies(t *testing.T) {
	a := NewAggregator()
	a.Accumulate(zapFrom("A", 3000))
	a.Accumulate(zapFrom("B", 3000))
	a.Accumulate(zapFrom("C", 1000))

	entries := a.TopN(5)
	require.Len(t, entries, 3)
	assert.Equal(t, "A", entries[0].PayerPubkey)
	assert.Equal(t, "B", entries[1].PayerPubkey)
	assert.Equal(t, "C", entries[2].PayerPubkey)
	assert.Equal(t, []int{1, 2, 3}, []int{entries[0].Rank, entries[1].Rank, entries[2].Rank})
}

func TestTopNTruncates(t *testing.T) {
	a := NewAggregator()
	payers := []string{"a", "b", "c", "d", "e", "f", "g"}
	for i, p := range payers {
		a.Accumulate(zapFrom(p, int64(1000-i)))
	}

	assert.Len(t, a.TopN(5), 5)
	assert.Len(t, a.TopN(0), DefaultTopN)
	assert.Len(t, a.TopN(100), len(payers))
}

func TestAttachProfile(t *testing.T) {
	a := NewAggregator()

	// No total yet: metadata never creates leaderboard rows.
	a.AttachProfile("ghost", models.Profile{Name: "Ghost"})
	assert.Nil(t, a.Total("ghost"))
	assert.Equal(t, 0, a.Len())

	a.Accumulate(zapFrom("p1", 100))
	a.AttachProfile("p1", models.Profile{Name: "Alice", Picture: "https://example.com/a.png"})

	entry := a.TopN(1)[0]
	assert.Equal(t, "Alice", entry.DisplayName)
	assert.Equal(t, "https://example.com/a.png", entry.PictureURL)

	// Empty fields leave the current identity alone.
	a.AttachProfile("p1", models.Profile{})
	assert.Equal(t, "Alice", a.Total("p1").DisplayName)
}

func TestResetEmptiesBoard(t *testing.T) {
	a := NewAggregator()
	a.Accumulate(zapFrom("p1", 100))

	a.Reset()

	assert.Empty(t, a.TopN(5))
	assert.Equal(t, 0, a.Len())
}
