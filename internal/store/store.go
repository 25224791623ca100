// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/nirdswipe/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNotFound is returned when a result id is unknown.
var ErrNotFound = errors.New("result not found")

// Store wraps SQLite access for results history and the saved session.
type Store struct {
	db *sql.DB
}

// Result is one stored session with its full report.
type Result struct {
	Summary model.ResultSummary
	Report  model.ResultsReport
	Choices []model.Choice
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS results (
			id TEXT PRIMARY KEY,
			user TEXT NOT NULL,
			started_at TEXT NOT NULL,
			completed_at TEXT NOT NULL,
			overall_score INTEGER NOT NULL,
			inclusion_score INTEGER NOT NULL,
			accountability_score INTEGER NOT NULL,
			sustainability_score INTEGER NOT NULL,
			bigtech_accepted INTEGER NOT NULL,
			sovereign_accepted INTEGER NOT NULL,
			total_cards INTEGER NOT NULL,
			correct_choices INTEGER NOT NULL,
			total_points INTEGER NOT NULL,
			savings_euros REAL NOT NULL,
			savings_co2 REAL NOT NULL,
			duration_ms INTEGER NOT NULL,
			report TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS result_choices (
			result_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			item_id TEXT NOT NULL,
			item_name TEXT NOT NULL,
			classification TEXT NOT NULL,
			accepted INTEGER NOT NULL,
			points INTEGER NOT NULL,
			chosen_at TEXT NOT NULL,
			PRIMARY KEY (result_id, position)
		);`,
		`CREATE TABLE IF NOT EXISTS session_slot (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			saved_at TEXT NOT NULL,
			payload TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_results_completed_at ON results(completed_at);`,
		`CREATE INDEX IF NOT EXISTS idx_results_user ON results(user);`,
		`CREATE INDEX IF NOT EXISTS idx_result_choices_item ON result_choices(item_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertResult stores a completed session, its report and its choices.
func (s *Store) InsertResult(ctx context.Context, id, user string, report model.ResultsReport, choices []model.Choice) (err error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO results (id, user, started_at, completed_at, overall_score, inclusion_score, accountability_score,
			sustainability_score, bigtech_accepted, sovereign_accepted, total_cards, correct_choices, total_points,
			savings_euros, savings_co2, duration_ms, report)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		user,
		report.StartedAt.UTC().Format(time.RFC3339Nano),
		report.CompletedAt.UTC().Format(time.RFC3339Nano),
		report.OverallScore,
		report.PillarScores.Inclusion,
		report.PillarScores.Accountability,
		report.PillarScores.Sustainability,
		report.BigTechAccepted,
		report.SovereignAccepted,
		report.TotalCards,
		report.CorrectChoices,
		report.TotalPoints,
		report.TotalSavingsEuros,
		report.TotalSavingsCO2,
		report.DurationMs,
		string(payload),
	)
	if err != nil {
		return err
	}

	if len(choices) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO result_choices (result_id, position, item_id, item_name, classification, accepted, points, chosen_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for i, c := range choices {
			if _, err = stmt.ExecContext(ctx, id, i, c.ItemID, c.ItemName, string(c.ItemClassification),
				c.Accepted, c.PointsEarned, c.Timestamp.UTC().Format(time.RFC3339Nano)); err != nil {
				return err
			}
		}
	}

	err = tx.Commit()
	return err
}

const summaryColumns = `id, user, started_at, completed_at, overall_score, inclusion_score, accountability_score,
	sustainability_score, bigtech_accepted, sovereign_accepted, total_cards, correct_choices, total_points,
	savings_euros, savings_co2, duration_ms`

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner, extra ...any) (model.ResultSummary, error) {
	var sum model.ResultSummary
	var startedAt, completedAt string
	dest := []any{
		&sum.ID, &sum.User, &startedAt, &completedAt, &sum.OverallScore,
		&sum.PillarScores.Inclusion, &sum.PillarScores.Accountability, &sum.PillarScores.Sustainability,
		&sum.BigTechAccepted, &sum.SovereignAccepted, &sum.TotalCards, &sum.CorrectChoices, &sum.TotalPoints,
		&sum.TotalSavingsEuros, &sum.TotalSavingsCO2, &sum.DurationMs,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return model.ResultSummary{}, err
	}
	var err error
	if sum.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return model.ResultSummary{}, err
	}
	if sum.CompletedAt, err = time.Parse(time.RFC3339Nano, completedAt); err != nil {
		return model.ResultSummary{}, err
	}
	return sum, nil
}

// ListResults returns result summaries filtered by stats config, oldest first.
// Last keeps only the most recent N results.
func (s *Store) ListResults(ctx context.Context, cfg model.StatsConfig) ([]model.ResultSummary, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.User != "" {
		clauses = append(clauses, "user = ?")
		args = append(args, cfg.User)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "completed_at >= ?")
		args = append(args, cfg.Since.UTC().Format(time.RFC3339Nano))
	}
	limit := -1
	if cfg.Last > 0 {
		limit = cfg.Last
	}
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT * FROM (
		SELECT %s FROM results
		WHERE %s
		ORDER BY completed_at DESC
		LIMIT ?
	) ORDER BY completed_at ASC`, summaryColumns, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var results []model.ResultSummary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// GetResult loads one result with its report and choices.
func (s *Store) GetResult(ctx context.Context, id string) (Result, error) {
	var payload string
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s, report FROM results WHERE id = ?`, summaryColumns), id)
	sum, err := scanSummary(row, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Result{}, ErrNotFound
	}
	if err != nil {
		return Result{}, err
	}
	res := Result{Summary: sum}
	if err := json.Unmarshal([]byte(payload), &res.Report); err != nil {
		return Result{}, fmt.Errorf("failed to decode report %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, item_name, classification, accepted, points, chosen_at
		 FROM result_choices WHERE result_id = ? ORDER BY position`, id)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	for rows.Next() {
		var c model.Choice
		var cl, chosenAt string
		if err := rows.Scan(&c.ItemID, &c.ItemName, &cl, &c.Accepted, &c.PointsEarned, &chosenAt); err != nil {
			return Result{}, err
		}
		c.ItemClassification = model.Classification(cl)
		if c.Timestamp, err = time.Parse(time.RFC3339Nano, chosenAt); err != nil {
			return Result{}, err
		}
		res.Choices = append(res.Choices, c)
	}
	if err := rows.Err(); err != nil {
		return Result{}, err
	}
	return res, nil
}

// ListItemAggregates counts, per item, how often it was drawn and answered
// wrong across the given results.
func (s *Store) ListItemAggregates(ctx context.Context, resultIDs []string) ([]model.ItemAggregate, error) {
	if len(resultIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(resultIDs))
	args := make([]any, 0, len(resultIDs)+2)
	args = append(args, string(model.BigTech), string(model.BigTech))
	for i, id := range resultIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}
	query := fmt.Sprintf(`SELECT item_id, MAX(item_name), MAX(classification), COUNT(*) AS seen,
		SUM(CASE WHEN (classification = ? AND accepted = 1) OR (classification <> ? AND accepted = 0) THEN 1 ELSE 0 END) AS wrong
		FROM result_choices
		WHERE result_id IN (%s)
		GROUP BY item_id
		ORDER BY item_id`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.ItemAggregate
	for rows.Next() {
		var agg model.ItemAggregate
		var cl string
		if err := rows.Scan(&agg.ItemID, &agg.ItemName, &cl, &agg.Seen, &agg.Wrong); err != nil {
			return nil, err
		}
		agg.Classification = model.Classification(cl)
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
