package stats

import (
	"sort"

	"github.com/verte-zerg/nirdswipe/internal/model"
)

// TopItemsBySeen returns the ids of the N most drawn items.
func TopItemsBySeen(aggs []model.ItemAggregate, n int) []string {
	if n <= 0 || len(aggs) == 0 {
		return nil
	}
	sorted := make([]model.ItemAggregate, len(aggs))
	copy(sorted, aggs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Seen == sorted[j].Seen {
			return sorted[i].ItemID < sorted[j].ItemID
		}
		return sorted[i].Seen > sorted[j].Seen
	})
	n = min(n, len(sorted))
	out := make([]string, n)
	for i := range out {
		out[i] = sorted[i].ItemID
	}
	return out
}
