// Package store persists table snapshots and completed hand records in
// SQLite. Snapshots are a key/value table keyed by table id: the engine
// overwrites the same row after every mutation and reads it back on startup.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the SQLite connection.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// The engine is the only writer; a single connection avoids SQLITE_BUSY
	// from the snapshot and hand-record writers interleaving.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			table_id TEXT PRIMARY KEY,
			state BLOB NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating snapshots table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS hands (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			table_id TEXT NOT NULL,
			dealer INTEGER NOT NULL,
			board TEXT NOT NULL,
			pot INTEGER NOT NULL,
			winners TEXT NOT NULL,
			completed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating hands table: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSnapshot upserts the serialized table state under its id.
// Last-write-wins on the same key.
func (s *Store) SaveSnapshot(ctx context.Context, tableID string, state []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (table_id, state, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(table_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at
	`, tableID, state, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads the serialized table state for id. Returns (nil, nil)
// when no snapshot exists.
func (s *Store) LoadSnapshot(ctx context.Context, tableID string) ([]byte, error) {
	var state []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM snapshots WHERE table_id = ?`, tableID).Scan(&state)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	return state, nil
}

// DeleteSnapshot removes the snapshot for id, if any.
func (s *Store) DeleteSnapshot(ctx context.Context, tableID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE table_id = ?`, tableID); err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	return nil
}

// PotWinners records one pot's outcome within a hand record.
type PotWinners struct {
	PotIndex int   `json:"potIndex"`
	Winners  []int `json:"winners"`
}

// HandRecord is the completion record appended after every hand.
type HandRecord struct {
	TableID string       `json:"tableId"`
	Dealer  int          `json:"dealer"`
	Board   []string     `json:"board"`
	Pot     int          `json:"pot"`
	Winners []PotWinners `json:"winners"`
}

// AppendHand appends a completed hand record.
func (s *Store) AppendHand(ctx context.Context, rec HandRecord) error {
	board, err := json.Marshal(rec.Board)
	if err != nil {
		return fmt.Errorf("marshal board: %w", err)
	}
	winners, err := json.Marshal(rec.Winners)
	if err != nil {
		return fmt.Errorf("marshal winners: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO hands (table_id, dealer, board, pot, winners)
		VALUES (?, ?, ?, ?, ?)
	`, rec.TableID, rec.Dealer, board, rec.Pot, winners); err != nil {
		return fmt.Errorf("appending hand record: %w", err)
	}
	return nil
}

// RecentHands returns up to limit of the most recent hand records for a
// table, newest first.
func (s *Store) RecentHands(ctx context.Context, tableID string, limit int) ([]HandRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT table_id, dealer, board, pot, winners
		FROM hands WHERE table_id = ?
		ORDER BY id DESC LIMIT ?
	`, tableID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing hands: %w", err)
	}
	defer rows.Close()

	var records []HandRecord
	for rows.Next() {
		var rec HandRecord
		var board, winners []byte
		if err := rows.Scan(&rec.TableID, &rec.Dealer, &board, &rec.Pot, &winners); err != nil {
			return nil, fmt.Errorf("scanning hand record: %w", err)
		}
		if err := json.Unmarshal(board, &rec.Board); err != nil {
			return nil, fmt.Errorf("decoding board: %w", err)
		}
		if err := json.Unmarshal(winners, &rec.Winners); err != nil {
			return nil, fmt.Errorf("decoding winners: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
