package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arnstad/hugin/internal/apperr"
)

// Snapshot describes one persisted fact table.
type Snapshot struct {
	ID        int64     `json:"id"`
	TakenAt   time.Time `json:"taken_at"`
	Checksum  string    `json:"checksum"`
	FactCount int       `json:"fact_count"`
}

// SnapshotStore defines the persistence operations the fact service needs.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with mocks.
type SnapshotStore interface {
	SaveSnapshot(facts map[string]string, checksum string, takenAt time.Time) (int64, error)
	LatestSnapshot() (*Snapshot, error)
	LatestFacts() (map[string]string, error)
	GetFact(name string) (string, error)
	ListSnapshots(limit int) ([]Snapshot, error)
	Prune(keep int) error
	Close() error
}

// Verify *DB satisfies SnapshotStore at compile time.
var _ SnapshotStore = (*DB)(nil)

// SaveSnapshot inserts a snapshot row and its fact rows in one transaction
// and returns the new snapshot id.
func (db *DB) SaveSnapshot(facts map[string]string, checksum string, takenAt time.Time) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	res, err := tx.Exec(
		`INSERT INTO snapshots (taken_at, checksum, fact_count) VALUES (?, ?, ?)`,
		takenAt, checksum, len(facts),
	)
	if err != nil {
		return 0, fmt.Errorf("store: insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: snapshot id: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO facts (snapshot_id, name, value) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("store: prepare fact insert: %w", err)
	}
	defer stmt.Close()
	for name, value := range facts {
		if _, err := stmt.Exec(id, name, value); err != nil {
			return 0, fmt.Errorf("store: insert fact %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit: %w", err)
	}
	return id, nil
}

// LatestSnapshot returns the most recent snapshot metadata, or
// apperr.ErrNoSnapshot when nothing has been persisted yet.
func (db *DB) LatestSnapshot() (*Snapshot, error) {
	var s Snapshot
	err := db.conn.QueryRow(
		`SELECT id, taken_at, checksum, fact_count FROM snapshots ORDER BY id DESC LIMIT 1`,
	).Scan(&s.ID, &s.TakenAt, &s.Checksum, &s.FactCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("store: latest snapshot: %w", err)
	}
	return &s, nil
}

// LatestFacts returns the fact table of the most recent snapshot. An empty
// store yields an empty map, not an error: "no facts available" is a valid
// result for the caller.
func (db *DB) LatestFacts() (map[string]string, error) {
	latest, err := db.LatestSnapshot()
	if errors.Is(err, apperr.ErrNoSnapshot) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`SELECT name, value FROM facts WHERE snapshot_id = ?`, latest.ID)
	if err != nil {
		return nil, fmt.Errorf("store: query facts: %w", err)
	}
	defer rows.Close()

	facts := make(map[string]string, latest.FactCount)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("store: scan fact: %w", err)
		}
		facts[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate facts: %w", err)
	}
	return facts, nil
}

// GetFact returns a single fact value from the latest snapshot.
func (db *DB) GetFact(name string) (string, error) {
	latest, err := db.LatestSnapshot()
	if errors.Is(err, apperr.ErrNoSnapshot) {
		return "", apperr.ErrNotFound
	}
	if err != nil {
		return "", err
	}

	var value string
	err = db.conn.QueryRow(
		`SELECT value FROM facts WHERE snapshot_id = ? AND name = ?`, latest.ID, name,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: get fact: %w", err)
	}
	return value, nil
}

// ListSnapshots returns snapshot metadata, newest first. limit <= 0 means
// a default page of 50.
func (db *DB) ListSnapshots(limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(
		`SELECT id, taken_at, checksum, fact_count FROM snapshots ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		if err := rows.Scan(&s.ID, &s.TakenAt, &s.Checksum, &s.FactCount); err != nil {
			return nil, fmt.Errorf("store: scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate snapshots: %w", err)
	}
	return out, nil
}

// Prune deletes all but the keep most recent snapshots. Fact rows go with
// their snapshot via the cascading foreign key.
func (db *DB) Prune(keep int) error {
	if keep <= 0 {
		return nil
	}
	_, err := db.conn.Exec(
		`DELETE FROM snapshots WHERE id NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)`, keep,
	)
	if err != nil {
		return fmt.Errorf("store: prune: %w", err)
	}
	return nil
}
