package grid

import "sort"

// SortMode selects the display criterion the caller pre-sorted items by.
type SortMode string

const (
	// SortByAmount is the ranked pane: amount descending, arrival tiebreak.
	SortByAmount SortMode = "amount"
	// SortByTime is the chronological pane: timestamp descending.
	SortByTime SortMode = "time"
)

// Options is the display configuration passed in by the presentation layer.
type Options struct {
	PodiumEnabled bool     `json:"podiumEnabled"`
	GridEnabled   bool     `json:"gridEnabled"`
	SortMode      SortMode `json:"sortMode"`
}

// Item is one display cell: an id plus the amount used for podium marking.
type Item struct {
	ID         string
	AmountSats int64
}

// Row is one grid row in the plan. Members keep the input order.
type Row struct {
	Index    int      `json:"index"`
	Capacity int      `json:"capacity"`
	Members  []string `json:"members"`
}

// Plan is the full layout: rows plus podium markers keyed by item id
// (1, 2 or 3 for the three globally-highest amounts, when enabled).
type Plan struct {
	Rows   []Row          `json:"rows"`
	Podium map[string]int `json:"podium,omitempty"`
}

// Rows double in capacity (1, 2, 4, 8, 16) until this 0-based row index,
// which is terminal: every remaining item lands there however many there are.
const lastRowIndex = 4

// BuildPlan packs the already-sorted items into the doubling-capacity row
// layout. Pure function of its inputs; callers recompute the whole plan on
// any reorder rather than patching it.
func BuildPlan(items []Item, opts Options) Plan {
	plan := Plan{}
	if !opts.GridEnabled || len(items) == 0 {
		return plan
	}

	capacity := 1
	for i := 0; i < len(items); {
		index := len(plan.Rows)

		n := capacity
		if index == lastRowIndex {
			n = len(items) - i // no row beyond the last: dump the remainder
		}
		if n > len(items)-i {
			n = len(items) - i
		}

		members := make([]string, n)
		for j := 0; j < n; j++ {
			members[j] = items[i+j].ID
		}
		plan.Rows = append(plan.Rows, Row{
			Index:    index,
			Capacity: capacity,
			Members:  members,
		})

		i += n
		if index < lastRowIndex {
			capacity *= 2
		}
	}

	if opts.PodiumEnabled {
		plan.Podium = podiumMarks(items)
	}
	return plan
}

// podiumMarks returns the podium position (1-3) for the three items with the
// globally highest amounts, independent of row placement. Ties fall back to
// input order: strictly ordered, unlike the shared-rank notification rank.
func podiumMarks(items []Item) map[string]int {
	ranked := make([]Item, len(items))
	copy(ranked, items)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].AmountSats > ranked[j].AmountSats
	})

	marks := make(map[string]int)
	for i := 0; i < len(ranked) && i < 3; i++ {
		marks[ranked[i].ID] = i + 1
	}
	return marks
}
