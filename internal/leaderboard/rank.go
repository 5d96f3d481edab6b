package leaderboard

import "sort"

// Unranked is returned when the amount is absent from the session's amount
// list. With the new amount always included this is unreachable in practice.
const Unranked = 0

// RankOf computes a zap's ordinal rank among all amounts seen this session:
// the 1-based position of its value in the sorted-descending list of unique
// amount values, newAmount included. Equal amounts share a rank.
//
// This is deliberately not competition ranking; two 500-sat zaps after a
// 1000-sat zap both rank 2, and a later 700-sat zap would rank 2 while
// pushing them to 3.
func RankOf(newAmount int64, allAmounts []int64) int {
	unique := make(map[int64]struct{}, len(allAmounts)+1)
	unique[newAmount] = struct{}{}
	for _, amount := range allAmounts {
		unique[amount] = struct{}{}
	}

	values := make([]int64, 0, len(unique))
	for v := range unique {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool { return values[i] > values[j] })

	for i, v := range values {
		if v == newAmount {
			return i + 1
		}
	}
	return Unranked
}
