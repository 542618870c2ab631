// Package sqlite persists events into SQLite.
//
// A Store owns the database; a Sink appends every event it receives as a row
// (network, node, seq, ts, payload) with a JSON payload:
//
//	store, err := sqlite.Open("events.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	sink := sqlite.NewSink[int](store, n.Name(), "audit")
//	epn.FromSource(n, src).ConsumedBy(sink, epn.As("audit"))
//
// The driver is modernc.org/sqlite (pure Go, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrStoreClosed is returned by operations on a closed Store.
var ErrStoreClosed = errors.New("sqlite: store closed")

// Record is one stored event.
type Record struct {
	Network   string
	Node      string
	Seq       int64
	Timestamp time.Time
	Payload   []byte
}

// Store is an append-only event table. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// Open opens or creates the database at path. Use ":memory:" for a private
// in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			network TEXT NOT NULL,
			node TEXT NOT NULL,
			seq INTEGER NOT NULL,
			ts TEXT NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (network, node, seq)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_events_network
		ON events(network)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &Store{db: db}, nil
}

// Append stores payload as the next event of (network, node) and returns its
// sequence number, starting at 1.
func (s *Store) Append(ctx context.Context, network, node string, payload []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	var seq int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO events (network, node, seq, ts, payload)
		VALUES (
			?, ?,
			COALESCE((SELECT MAX(seq) FROM events WHERE network = ? AND node = ?), 0) + 1,
			?, ?
		)
		RETURNING seq
	`, network, node, network, node, time.Now().UTC().Format(time.RFC3339Nano), payload).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("append event: %w", err)
	}
	return seq, nil
}

// Events returns the events of (network, node) in sequence order.
func (s *Store) Events(ctx context.Context, network, node string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, ts, payload
		FROM events
		WHERE network = ? AND node = ?
		ORDER BY seq
	`, network, node)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r := Record{Network: network, Node: node}
		var ts string
		if err := rows.Scan(&r.Seq, &ts, &r.Payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if r.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("parse timestamp of event %d: %w", r.Seq, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return records, nil
}

// Nodes returns the nodes that stored events for network.
func (s *Store) Nodes(ctx context.Context, network string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT node FROM events WHERE network = ? ORDER BY node
	`, network)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()

	var nodes []string
	for rows.Next() {
		var node string
		if err := rows.Scan(&node); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}

// DeleteNetwork removes every event of network.
func (s *Store) DeleteNetwork(ctx context.Context, network string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE network = ?`, network); err != nil {
		return fmt.Errorf("delete network events: %w", err)
	}
	return nil
}

// Close closes the database. It is safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
