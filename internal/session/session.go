// Package session drives card progression through a drawn hand.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/nirdswipe/internal/model"
)

// Point values awarded per choice.
const (
	PointsRejectBigTech   = 10
	PointsAcceptSovereign = 15
	PointsRejectSovereign = -5
	PointsAcceptBigTech   = 0
)

var (
	// ErrComplete is returned by Choose once every card has been answered.
	ErrComplete = errors.New("session is complete")
	// ErrNoCurrentItem is returned by Choose on a session without cards.
	ErrNoCurrentItem = errors.New("session has no current item")
)

// PointsFor applies the per-choice point rule.
func PointsFor(item model.TechnologyItem, accepted bool) int {
	if item.Classification == model.BigTech {
		if accepted {
			return PointsAcceptBigTech
		}
		return PointsRejectBigTech
	}
	if accepted {
		return PointsAcceptSovereign
	}
	return PointsRejectSovereign
}

// Session is one play-through. It is safe for concurrent use; Choose calls
// are serialized so the choice count always matches the cursor.
type Session struct {
	mu          sync.Mutex
	id          string
	items       []model.TechnologyItem
	index       int
	choices     []model.Choice
	startedAt   time.Time
	completedAt *time.Time
	now         func() time.Time
}

// Start begins a session over the drawn items.
func Start(items []model.TechnologyItem, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	drawn := make([]model.TechnologyItem, len(items))
	copy(drawn, items)
	return &Session{
		id:        uuid.NewString(),
		items:     drawn,
		startedAt: now(),
		now:       now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Choose records a keep (accepted) or replace decision on the current card.
func (s *Session) Choose(accepted bool) (model.Choice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.completedAt != nil {
		return model.Choice{}, ErrComplete
	}
	if s.index >= len(s.items) {
		return model.Choice{}, ErrNoCurrentItem
	}
	item := s.items[s.index]
	ts := s.now()
	choice := model.Choice{
		ItemID:             item.ID,
		ItemName:           item.Name,
		ItemClassification: item.Classification,
		Accepted:           accepted,
		PointsEarned:       PointsFor(item, accepted),
		Timestamp:          ts,
	}
	s.choices = append(s.choices, choice)
	s.index++
	if s.index == len(s.items) {
		s.completedAt = &ts
	}
	return choice, nil
}

// Current returns the card awaiting a decision.
func (s *Session) Current() (model.TechnologyItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index >= len(s.items) {
		return model.TechnologyItem{}, false
	}
	return s.items[s.index], true
}

// Index returns the cursor position.
func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Len returns the number of drawn cards.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Progress returns the answered share in percent.
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return 0
	}
	return float64(s.index) / float64(len(s.items)) * 100
}

// Items returns a copy of the drawn cards.
func (s *Session) Items() []model.TechnologyItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.TechnologyItem, len(s.items))
	copy(out, s.items)
	return out
}

// Choices returns a copy of the decisions made so far.
func (s *Session) Choices() []model.Choice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Choice, len(s.choices))
	copy(out, s.choices)
	return out
}

// RunningPoints sums the points earned so far.
func (s *Session) RunningPoints() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, c := range s.choices {
		total += c.PointsEarned
	}
	return total
}

// IsComplete reports whether every card has been answered.
func (s *Session) IsComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completedAt != nil
}

// StartedAt returns the creation time.
func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// CompletedAt returns the completion time, if any.
func (s *Session) CompletedAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completedAt == nil {
		return time.Time{}, false
	}
	return *s.completedAt, true
}

// Snapshot returns the persistable state. It is only available while the
// session is in progress and has at least one choice.
func (s *Session) Snapshot() (model.SessionSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completedAt != nil || len(s.choices) == 0 {
		return model.SessionSnapshot{}, false
	}
	ids := make([]string, len(s.items))
	for i, item := range s.items {
		ids[i] = item.ID
	}
	choices := make([]model.Choice, len(s.choices))
	copy(choices, s.choices)
	return model.SessionSnapshot{
		ID:           s.id,
		ItemIDs:      ids,
		CurrentIndex: s.index,
		Choices:      choices,
		StartedAt:    s.startedAt,
	}, true
}
