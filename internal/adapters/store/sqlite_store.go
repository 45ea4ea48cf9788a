package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/sms-spam-sentinel/internal/core"
	"go.uber.org/zap"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	sender TEXT NOT NULL,
	body TEXT NOT NULL,
	arrived_at TIMESTAMP NOT NULL,
	verdict TEXT NOT NULL DEFAULT 'unclassified',
	confidence REAL NOT NULL DEFAULT 0,
	reason TEXT NOT NULL DEFAULT '',
	classified_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_messages_verdict ON messages(verdict);

CREATE TABLE IF NOT EXISTS notify_queue (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	message_id TEXT NOT NULL,
	sender TEXT NOT NULL,
	body TEXT NOT NULL,
	ts TIMESTAMP NOT NULL,
	attempts INTEGER NOT NULL DEFAULT 0,
	last_attempt TIMESTAMP
);
`

// SQLiteStore is a SQLite implementation of the MessageStore interface
type SQLiteStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (or creates) the database at dbPath
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logger.Info("Connected to SQLite store", zap.String("path", dbPath))

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type messageRow struct {
	ID           string       `db:"id"`
	Sender       string       `db:"sender"`
	Body         string       `db:"body"`
	ArrivedAt    time.Time    `db:"arrived_at"`
	Verdict      string       `db:"verdict"`
	Confidence   float64      `db:"confidence"`
	Reason       string       `db:"reason"`
	ClassifiedAt sql.NullTime `db:"classified_at"`
}

func (r *messageRow) toMessage() *core.Message {
	msg := &core.Message{
		ID:         r.ID,
		Sender:     r.Sender,
		Body:       r.Body,
		ArrivedAt:  r.ArrivedAt,
		Verdict:    core.Verdict(r.Verdict),
		Confidence: r.Confidence,
		Reason:     r.Reason,
	}
	if r.ClassifiedAt.Valid {
		msg.ClassifiedAt = r.ClassifiedAt.Time
	}
	return msg
}

type queueRow struct {
	ID          string       `db:"id"`
	MessageID   string       `db:"message_id"`
	Sender      string       `db:"sender"`
	Body        string       `db:"body"`
	TS          time.Time    `db:"ts"`
	Attempts    int          `db:"attempts"`
	LastAttempt sql.NullTime `db:"last_attempt"`
}

func (r *queueRow) toEntry() *core.QueueEntry {
	entry := &core.QueueEntry{
		ID:        r.ID,
		MessageID: r.MessageID,
		Sender:    r.Sender,
		Body:      r.Body,
		Timestamp: r.TS,
		Attempts:  r.Attempts,
	}
	if r.LastAttempt.Valid {
		entry.LastAttempt = r.LastAttempt.Time
	}
	return entry
}

// Insert stores a new message. Returns ErrDuplicate if the id exists.
func (s *SQLiteStore) Insert(ctx context.Context, msg *core.Message) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO messages (id, sender, body, arrived_at, verdict, confidence, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.Sender, msg.Body, msg.ArrivedAt, string(msg.Verdict), msg.Confidence, msg.Reason)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrDuplicate
	}
	return nil
}

// UpdateVerdict overwrites the classification of a stored message
func (s *SQLiteStore) UpdateVerdict(ctx context.Context, id string, isSpam bool, confidence float64, reason string) error {
	verdict := core.VerdictHam
	if isSpam {
		verdict = core.VerdictSpam
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET verdict = ?, confidence = ?, reason = ?, classified_at = ?
		WHERE id = ?
	`, string(verdict), confidence, reason, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update verdict: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Get retrieves a message by id
func (s *SQLiteStore) Get(ctx context.Context, id string) (*core.Message, error) {
	var row messageRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, sender, body, arrived_at, verdict, confidence, reason, classified_at
		FROM messages WHERE id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query message: %w", err)
	}
	return row.toMessage(), nil
}

// ListUnclassified returns up to limit messages still awaiting a verdict
func (s *SQLiteStore) ListUnclassified(ctx context.Context, limit int) ([]*core.Message, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative limit as unbounded
	}
	var rows []messageRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, sender, body, arrived_at, verdict, confidence, reason, classified_at
		FROM messages WHERE verdict = ? ORDER BY arrived_at LIMIT ?
	`, string(core.VerdictUnclassified), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unclassified messages: %w", err)
	}

	messages := make([]*core.Message, 0, len(rows))
	for i := range rows {
		messages = append(messages, rows[i].toMessage())
	}
	return messages, nil
}

// EnqueueNotification appends a retry entry to the notification queue
func (s *SQLiteStore) EnqueueNotification(ctx context.Context, entry *core.QueueEntry) error {
	var lastAttempt interface{}
	if !entry.LastAttempt.IsZero() {
		lastAttempt = entry.LastAttempt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notify_queue (id, message_id, sender, body, ts, attempts, last_attempt)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.MessageID, entry.Sender, entry.Body, entry.Timestamp, entry.Attempts, lastAttempt)
	if err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}

// ListQueue returns queued entries with fewer than maxAttempts attempts, FIFO
func (s *SQLiteStore) ListQueue(ctx context.Context, maxAttempts int) ([]*core.QueueEntry, error) {
	var rows []queueRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, message_id, sender, body, ts, attempts, last_attempt
		FROM notify_queue WHERE attempts < ? ORDER BY seq
	`, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("failed to query notification queue: %w", err)
	}

	entries := make([]*core.QueueEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, rows[i].toEntry())
	}
	return entries, nil
}

// QueueSize returns the number of queued entries
func (s *SQLiteStore) QueueSize(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM notify_queue`); err != nil {
		return 0, fmt.Errorf("failed to count notification queue: %w", err)
	}
	return n, nil
}

// OldestQueued returns the oldest queued entry
func (s *SQLiteStore) OldestQueued(ctx context.Context) (*core.QueueEntry, error) {
	var row queueRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, message_id, sender, body, ts, attempts, last_attempt
		FROM notify_queue ORDER BY seq LIMIT 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query oldest queue entry: %w", err)
	}
	return row.toEntry(), nil
}

// IncrementAttempt bumps the attempt counter and stamps the attempt time
func (s *SQLiteStore) IncrementAttempt(ctx context.Context, queueID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notify_queue SET attempts = attempts + 1, last_attempt = ? WHERE id = ?
	`, time.Now(), queueID)
	if err != nil {
		return fmt.Errorf("failed to increment attempt: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// RemoveFromQueue deletes a queue entry
func (s *SQLiteStore) RemoveFromQueue(ctx context.Context, queueID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notify_queue WHERE id = ?`, queueID)
	if err != nil {
		return fmt.Errorf("failed to remove queue entry: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}
