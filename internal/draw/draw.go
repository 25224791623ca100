// Package draw selects the cards shown in a session.
package draw

import (
	"math/rand"
	"time"

	"github.com/verte-zerg/nirdswipe/internal/model"
)

// DefaultCount is the hand size when none is configured.
const DefaultCount = 15

// Drawer produces balanced random draws from a catalog.
type Drawer struct {
	rnd *rand.Rand
}

// New returns a Drawer seeded with the current time.
func New() *Drawer {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a Drawer with a fixed seed, for reproducible draws.
func NewSeeded(seed int64) *Drawer {
	return NewWithRand(rand.New(rand.NewSource(seed)))
}

// NewWithRand returns a Drawer backed by the given source.
func NewWithRand(rnd *rand.Rand) *Drawer {
	return &Drawer{rnd: rnd}
}

// Draw takes ceil(count/2) Big Tech and floor(count/2) NIRD items, each part
// shuffled independently, then shuffles the combined list. A part with too
// few items contributes all it has.
func (d *Drawer) Draw(items []model.TechnologyItem, count int) []model.TechnologyItem {
	if count < 1 || len(items) == 0 {
		return nil
	}
	var bigTech, nird []model.TechnologyItem
	for _, item := range items {
		if item.Classification == model.BigTech {
			bigTech = append(bigTech, item)
		} else {
			nird = append(nird, item)
		}
	}
	d.shuffle(bigTech)
	d.shuffle(nird)

	half := count/2 + count%2
	bt := take(bigTech, half)
	nd := take(nird, count-half)
	selected := make([]model.TechnologyItem, 0, len(bt)+len(nd))
	selected = append(selected, bt...)
	selected = append(selected, nd...)
	d.shuffle(selected)
	return selected
}

func (d *Drawer) shuffle(items []model.TechnologyItem) {
	d.rnd.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}

func take(items []model.TechnologyItem, n int) []model.TechnologyItem {
	if n > len(items) {
		n = len(items)
	}
	return items[:n]
}
