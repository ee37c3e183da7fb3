package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/lumen/pkg/lumen/internalerr"
	"github.com/cognicore/lumen/pkg/lumen/store"
)

// timeFormat is a fixed-width RFC3339 layout: created_at values are
// compared lexicographically by ORDER BY, and the variable-width
// RFC3339Nano would sort whole-second timestamps after sub-second
// ones.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS explanations (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	text TEXT NOT NULL,
	class_names TEXT,
	predict_proba TEXT,
	top_labels TEXT
);

CREATE TABLE IF NOT EXISTS explanation_features (
	explanation_id TEXT NOT NULL,
	label INTEGER NOT NULL,
	rank INTEGER NOT NULL,
	feature INTEGER NOT NULL,
	word TEXT NOT NULL,
	weight REAL NOT NULL,
	PRIMARY KEY(explanation_id, label, rank),
	FOREIGN KEY(explanation_id) REFERENCES explanations(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_explanations_created ON explanations(created_at DESC);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveExplanation inserts or replaces a record and its per-label
// feature rows in one transaction.
func (s *sqliteStore) SaveExplanation(ctx context.Context, rec store.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: record has no id", internalerr.ErrInvalidInput)
	}

	classNames, err := json.Marshal(rec.ClassNames)
	if err != nil {
		return err
	}
	proba, err := json.Marshal(rec.PredictProba)
	if err != nil {
		return err
	}
	topLabels, err := json.Marshal(rec.TopLabels)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO explanations (id, created_at, text, class_names, predict_proba, top_labels)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CreatedAt.UTC().Format(timeFormat), rec.Text,
		string(classNames), string(proba), string(topLabels)); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM explanation_features WHERE explanation_id = ?`, rec.ID); err != nil {
		return err
	}

	for label, features := range rec.Labels {
		for rank, fw := range features {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO explanation_features (explanation_id, label, rank, feature, word, weight)
				VALUES (?, ?, ?, ?, ?, ?)`,
				rec.ID, label, rank, fw.Feature, fw.Word, fw.Weight); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// GetExplanation loads one record by id.
func (s *sqliteStore) GetExplanation(ctx context.Context, id string) (store.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, text, class_names, predict_proba, top_labels
		FROM explanations WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return store.Record{}, fmt.Errorf("%w: explanation %s", internalerr.ErrNotFound, id)
	}
	if err != nil {
		return store.Record{}, err
	}

	if err := s.loadFeatures(ctx, &rec); err != nil {
		return store.Record{}, err
	}
	return rec, nil
}

// RecentExplanations returns up to limit records, newest first.
func (s *sqliteStore) RecentExplanations(ctx context.Context, limit int) ([]store.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, text, class_names, predict_proba, top_labels
		FROM explanations ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if err := s.loadFeatures(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *sqliteStore) loadFeatures(ctx context.Context, rec *store.Record) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT label, feature, word, weight
		FROM explanation_features
		WHERE explanation_id = ?
		ORDER BY label, rank`, rec.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	rec.Labels = make(map[int][]store.FeatureWeight)
	for rows.Next() {
		var label int
		var fw store.FeatureWeight
		if err := rows.Scan(&label, &fw.Feature, &fw.Word, &fw.Weight); err != nil {
			return err
		}
		rec.Labels[label] = append(rec.Labels[label], fw)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (store.Record, error) {
	var rec store.Record
	var createdAt, classNames, proba, topLabels string
	if err := row.Scan(&rec.ID, &createdAt, &rec.Text, &classNames, &proba, &topLabels); err != nil {
		return store.Record{}, err
	}

	ts, err := time.Parse(timeFormat, createdAt)
	if err != nil {
		return store.Record{}, fmt.Errorf("parse created_at: %w", err)
	}
	rec.CreatedAt = ts

	if err := json.Unmarshal([]byte(classNames), &rec.ClassNames); err != nil {
		return store.Record{}, err
	}
	if err := json.Unmarshal([]byte(proba), &rec.PredictProba); err != nil {
		return store.Record{}, err
	}
	if err := json.Unmarshal([]byte(topLabels), &rec.TopLabels); err != nil {
		return store.Record{}, err
	}
	return rec, nil
}
