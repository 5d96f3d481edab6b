package grid

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func items(n int) []Item {
	out := make([]Item, n)
	for i := range out {
		// Descending amounts: input arrives pre-sorted for the ranked pane.
		out[i] = Item{ID: fmt.Sprintf("z%02d", i), AmountSats: int64(1000 - i)}
	}
	return out
}

func rowSizes(plan Plan) []int {
	sizes := make([]int, len(plan.Rows))
	for i, row := range plan.Rows {
		sizes[i] = len(row.Members)
	}
	return sizes
}

func TestRowDoubling(t *testing.T) {
	tests := []struct {
		count int
		want  []int
	}{
		{count: 1, want: []int{1}},
		{count: 3, want: []int{1, 2}},
		{count: 4, want: []int{1, 2, 1}},
		{count: 15, want: []int{1, 2, 4, 8}},
		{count: 31, want: []int{1, 2, 4, 8, 16}},
		{count: 35, want: []int{1, 2, 4, 8, 20}},
		{count: 100, want: []int{1, 2, 4, 8, 85}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d items", tt.count), func(t *testing.T) {
			plan := BuildPlan(items(tt.count), Options{GridEnabled: true})
			assert.Equal(t, tt.want, rowSizes(plan))
			assert.LessOrEqual(t, len(plan.Rows), 5, "no row beyond the fifth")
		})
	}
}

func TestRowsPreserveInputOrder(t *testing.T) {
	plan := BuildPlan(items(7), Options{GridEnabled: true})
	require.Equal(t, []int{1, 2, 4}, rowSizes(plan))

	assert.Equal(t, []string{"z00"}, plan.Rows[0].Members)
	assert.Equal(t, []string{"z01", "z02"}, plan.Rows[1].Members)
	assert.Equal(t, []string{"z03", "z04", "z05", "z06"}, plan.Rows[2].Members)

	for i, row := range plan.Rows {
		assert.Equal(t, i, row.Index)
	}
}

func TestPodiumMarksTopThreeByAmount(t *testing.T) {
	// Chronological pane: input sorted by time, amounts scattered. Podium
	// must still mark the globally highest amounts, wherever they sit.
	list := []Item{
		{ID: "newest", AmountSats: 10},
		{ID: "big", AmountSats: 9000},
		{ID: "mid", AmountSats: 700},
		{ID: "small", AmountSats: 5},
		{ID: "huge", AmountSats: 21000},
	}

	plan := BuildPlan(list, Options{GridEnabled: true, PodiumEnabled: true, SortMode: SortByTime})

	require.NotNil(t, plan.Podium)
	assert.Equal(t, 1, plan.Podium["huge"])
	assert.Equal(t, 2, plan.Podium["big"])
	assert.Equal(t, 3, plan.Podium["mid"])
	assert.NotContains(t, plan.Podium, "newest")
	assert.NotContains(t, plan.Podium, "small")
}

func TestPodiumTiesAreStrictlyOrdered(t *testing.T) {
	// Unlike the notification rank, podium positions never share: equal
	// amounts place by input order.
	list := []Item{
		{ID: "a", AmountSats: 500},
		{ID: "b", AmountSats: 500},
		{ID: "c", AmountSats: 500},
		{ID: "d", AmountSats: 500},
	}

	plan := BuildPlan(list, Options{GridEnabled: true, PodiumEnabled: true})
	assert.Equal(t, map[string]int{"a": 1, "b": 2, "c": 3}, plan.Podium)
}

func TestPodiumDisabled(t *testing.T) {
	plan := BuildPlan(items(5), Options{GridEnabled: true})
	assert.Nil(t, plan.Podium)
}

func TestGridDisabledOrEmpty(t *testing.T) {
	assert.Empty(t, BuildPlan(items(10), Options{}).Rows)
	assert.Empty(t, BuildPlan(nil, Options{GridEnabled: true}).Rows)
}

func TestPlanIsDeterministic(t *testing.T) {
	list := items(35)
	a := BuildPlan(list, Options{GridEnabled: true, PodiumEnabled: true})
	b := BuildPlan(list, Options{GridEnabled: true, PodiumEnabled: true})
	assert.Equal(t, a, b)
}
