package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/nirdswipe/internal/catalog"
	"github.com/verte-zerg/nirdswipe/internal/model"
)

// ErrNoSession is returned when there is nothing to resume.
var ErrNoSession = errors.New("no session to resume")

// ErrCorruptSnapshot is wrapped by slots whose saved payload cannot be decoded.
var ErrCorruptSnapshot = errors.New("saved session is corrupt")

// Slot is a single overwritable place to keep an unfinished session.
type Slot interface {
	Save(ctx context.Context, snap model.SessionSnapshot) error
	Load(ctx context.Context) (model.SessionSnapshot, bool, error)
	Clear(ctx context.Context) error
}

// Keeper writes session state to a slot after each transition. Slot
// failures are logged and swallowed.
type Keeper struct {
	Slot   Slot
	Logger *zap.Logger
}

// Sync saves an in-progress session or clears the slot once it is complete.
func (k *Keeper) Sync(ctx context.Context, s *Session) {
	if k == nil || k.Slot == nil {
		return
	}
	if s.IsComplete() {
		k.clear(ctx)
		return
	}
	snap, ok := s.Snapshot()
	if !ok {
		return
	}
	if err := k.Slot.Save(ctx, snap); err != nil {
		k.logger().Warn("failed to save session", zap.String("session", snap.ID), zap.Error(err))
	}
}

// Reset discards any saved session.
func (k *Keeper) Reset(ctx context.Context) {
	if k == nil || k.Slot == nil {
		return
	}
	k.clear(ctx)
}

func (k *Keeper) clear(ctx context.Context) {
	if err := k.Slot.Clear(ctx); err != nil {
		k.logger().Warn("failed to clear saved session", zap.Error(err))
	}
}

func (k *Keeper) logger() *zap.Logger {
	if k.Logger == nil {
		return zap.NewNop()
	}
	return k.Logger
}

// Resume restores the saved session. Stale or corrupt snapshots are logged,
// removed from the slot and reported as ErrNoSession. Other slot failures
// are returned as is and leave the slot untouched.
func (k *Keeper) Resume(ctx context.Context, cat *catalog.Catalog, now func() time.Time) (*Session, error) {
	if k == nil || k.Slot == nil {
		return nil, ErrNoSession
	}
	snap, ok, err := k.Slot.Load(ctx)
	if errors.Is(err, ErrCorruptSnapshot) {
		k.logger().Warn("discarding corrupt saved session", zap.Error(err))
		k.clear(ctx)
		return nil, fmt.Errorf("%w: %w", ErrNoSession, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load saved session: %w", err)
	}
	if !ok {
		return nil, ErrNoSession
	}
	s, err := restore(snap, cat, now)
	if err != nil {
		k.logger().Warn("discarding stale saved session", zap.String("session", snap.ID), zap.Error(err))
		k.clear(ctx)
		return nil, err
	}
	return s, nil
}

func restore(snap model.SessionSnapshot, cat *catalog.Catalog, now func() time.Time) (*Session, error) {
	if snap.CompletedAt != nil {
		return nil, fmt.Errorf("%w: saved session is complete", ErrNoSession)
	}
	if len(snap.ItemIDs) == 0 {
		return nil, fmt.Errorf("%w: saved session has no cards", ErrNoSession)
	}
	items, err := cat.Resolve(snap.ItemIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	if snap.CurrentIndex < 0 || snap.CurrentIndex >= len(items) || len(snap.Choices) != snap.CurrentIndex {
		return nil, fmt.Errorf("%w: saved cursor %d does not fit %d cards and %d choices",
			ErrNoSession, snap.CurrentIndex, len(items), len(snap.Choices))
	}
	for i, c := range snap.Choices {
		if c.ItemID != items[i].ID {
			return nil, fmt.Errorf("%w: choice %d is for %s, expected %s", ErrNoSession, i, c.ItemID, items[i].ID)
		}
	}
	if now == nil {
		now = time.Now
	}
	choices := make([]model.Choice, len(snap.Choices))
	copy(choices, snap.Choices)
	return &Session{
		id:        snap.ID,
		items:     items,
		index:     snap.CurrentIndex,
		choices:   choices,
		startedAt: snap.StartedAt,
		now:       now,
	}, nil
}

// MemorySlot is an in-memory Slot.
type MemorySlot struct {
	mu   sync.Mutex
	snap *model.SessionSnapshot
}

// Save implements Slot.
func (m *MemorySlot) Save(_ context.Context, snap model.SessionSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = &snap
	return nil
}

// Load implements Slot.
func (m *MemorySlot) Load(_ context.Context) (model.SessionSnapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return model.SessionSnapshot{}, false, nil
	}
	return *m.snap, true, nil
}

// Clear implements Slot.
func (m *MemorySlot) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = nil
	return nil
}
