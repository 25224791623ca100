package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/verte-zerg/nirdswipe/internal/model"
	"github.com/verte-zerg/nirdswipe/internal/session"
)

// Save overwrites the saved session.
func (s *Store) Save(ctx context.Context, snap model.SessionSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO session_slot (id, saved_at, payload) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET saved_at = excluded.saved_at, payload = excluded.payload`,
		time.Now().UTC().Format(time.RFC3339Nano), string(payload))
	return err
}

// Load returns the saved session, if any. A payload that does not decode is
// reported as session.ErrCorruptSnapshot.
func (s *Store) Load(ctx context.Context) (model.SessionSnapshot, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM session_slot WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SessionSnapshot{}, false, nil
	}
	if err != nil {
		return model.SessionSnapshot{}, false, err
	}
	var snap model.SessionSnapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return model.SessionSnapshot{}, false, fmt.Errorf("%w: %v", session.ErrCorruptSnapshot, err)
	}
	return snap, true, nil
}

// Clear removes the saved session.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_slot WHERE id = 1`)
	return err
}
