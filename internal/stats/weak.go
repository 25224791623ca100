package stats

import (
	"sort"

	"github.com/verte-zerg/nirdswipe/internal/model"
)

// WeakItems returns the items with the highest wrong-answer rate, most wrong
// first. Items never answered wrong are left out. A limit <= 0 keeps all.
func WeakItems(aggs []model.ItemAggregate, limit int) []model.ItemAggregate {
	candidates := make([]model.ItemAggregate, 0, len(aggs))
	for _, a := range aggs {
		if a.Wrong > 0 {
			candidates = append(candidates, a)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		ri, rj := WrongRate(candidates[i]), WrongRate(candidates[j])
		if ri != rj {
			return ri > rj
		}
		if candidates[i].Wrong != candidates[j].Wrong {
			return candidates[i].Wrong > candidates[j].Wrong
		}
		return candidates[i].ItemID < candidates[j].ItemID
	})
	if limit > 0 && limit < len(candidates) {
		candidates = candidates[:limit]
	}
	return candidates
}

// WrongRate is the share of plays of an item that were wrong.
func WrongRate(agg model.ItemAggregate) float64 {
	if agg.Seen == 0 {
		return 0
	}
	return float64(agg.Wrong) / float64(agg.Seen)
}
