package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps a SQLite database holding the review audit trail and the
// notification feed.
type Store struct {
	db *sql.DB
}

var pragmas = []string{
	"PRAGMA busy_timeout = 5000",
	"PRAGMA journal_mode = WAL",
	"PRAGMA foreign_keys = ON",
}

func dsnFor(dataDir string) (string, error) {
	if dataDir == ":memory:" {
		return dataDir, nil
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	return filepath.Join(dataDir, "rfpdesk.db"), nil
}

// Open opens the audit database in dataDir, creating it if needed, and
// brings its schema up to date. ":memory:" gives a private in-memory
// database.
func Open(dataDir string) (*Store, error) {
	dsn, err := dsnFor(dataDir)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection: every writer is serialized and an in-memory database
	// is not split across connections.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	if err := s.migrate(); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping() error {
	return s.db.Ping()
}

// --- Review decisions ---

func (s *Store) SaveDecision(d ReviewDecision) error {
	_, err := s.db.Exec(`
		INSERT INTO review_decisions (id, item_id, rfp_id, decision, reason, reviewer, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ItemID, d.RFPID, d.Decision, d.Reason, d.Reviewer, d.DecidedAt.UTC().Format(timeLayout),
	)
	return err
}

// ListDecisions returns decisions newest first.
func (s *Store) ListDecisions(limit, offset int) ([]ReviewDecision, error) {
	rows, err := s.db.Query(`
		SELECT id, item_id, rfp_id, decision, reason, reviewer, decided_at
		FROM review_decisions ORDER BY decided_at DESC, rowid DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	return scanDecisions(rows)
}

// DecisionsForItem returns every decision on one validation item, oldest first.
func (s *Store) DecisionsForItem(itemID string) ([]ReviewDecision, error) {
	rows, err := s.db.Query(`
		SELECT id, item_id, rfp_id, decision, reason, reviewer, decided_at
		FROM review_decisions WHERE item_id = ? ORDER BY decided_at ASC, rowid ASC`, itemID,
	)
	if err != nil {
		return nil, err
	}
	return scanDecisions(rows)
}

func scanDecisions(rows *sql.Rows) ([]ReviewDecision, error) {
	defer rows.Close()

	var results []ReviewDecision
	for rows.Next() {
		var d ReviewDecision
		var decidedAt string
		if err := rows.Scan(&d.ID, &d.ItemID, &d.RFPID, &d.Decision, &d.Reason, &d.Reviewer, &decidedAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(timeLayout, decidedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing decided_at: %w", err)
		}
		d.DecidedAt = t
		results = append(results, d)
	}
	return results, rows.Err()
}

// --- Notifications ---

func (s *Store) SaveNotification(n Notification) error {
	variant := n.Variant
	if variant == "" {
		variant = "default"
	}
	_, err := s.db.Exec(`
		INSERT INTO notifications (id, title, message, variant, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.Title, n.Message, variant, n.CreatedAt.UTC().Format(timeLayout),
	)
	return err
}

// ListNotifications returns notifications newest first.
func (s *Store) ListNotifications(limit, offset int) ([]Notification, error) {
	rows, err := s.db.Query(`
		SELECT id, title, message, variant, created_at
		FROM notifications ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Notification
	for rows.Next() {
		var n Notification
		var createdAt string
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &n.Variant, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		n.CreatedAt = t
		results = append(results, n)
	}
	return results, rows.Err()
}
