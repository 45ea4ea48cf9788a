package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/mikey/sms-spam-sentinel/internal/core"
	"go.uber.org/zap"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS messages (
		id VARCHAR(64) PRIMARY KEY,
		sender VARCHAR(255) NOT NULL,
		body TEXT NOT NULL,
		arrived_at DATETIME NOT NULL,
		verdict VARCHAR(16) NOT NULL DEFAULT 'unclassified',
		confidence DOUBLE NOT NULL DEFAULT 0,
		reason TEXT NOT NULL,
		classified_at DATETIME NULL,
		INDEX idx_messages_verdict (verdict)
	)`,
	`CREATE TABLE IF NOT EXISTS notify_queue (
		seq BIGINT AUTO_INCREMENT PRIMARY KEY,
		id VARCHAR(64) NOT NULL UNIQUE,
		message_id VARCHAR(64) NOT NULL,
		sender VARCHAR(255) NOT NULL,
		body TEXT NOT NULL,
		ts DATETIME NOT NULL,
		attempts INT NOT NULL DEFAULT 0,
		last_attempt DATETIME NULL
	)`,
}

// MySQLStore is a MySQL implementation of the MessageStore interface
type MySQLStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewMySQLStore connects to the database described by dsn. The DSN must
// include parseTime=true so DATETIME columns scan into time.Time.
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	for _, stmt := range mysqlSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	logger.Info("Connected to MySQL store")

	return &MySQLStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

// Insert stores a new message. Returns ErrDuplicate if the id exists.
func (s *MySQLStore) Insert(ctx context.Context, msg *core.Message) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT IGNORE INTO messages (id, sender, body, arrived_at, verdict, confidence, reason)
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
func (s *MySQLStore) UpdateVerdict(ctx context.Context, id string, isSpam bool, confidence float64, reason string) error {
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

	if _, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	return nil
}

// Get retrieves a message by id
func (s *MySQLStore) Get(ctx context.Context, id string) (*core.Message, error) {
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
func (s *MySQLStore) ListUnclassified(ctx context.Context, limit int) ([]*core.Message, error) {
	if limit <= 0 {
		limit = 1000
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
func (s *MySQLStore) EnqueueNotification(ctx context.Context, entry *core.QueueEntry) error {
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
func (s *MySQLStore) ListQueue(ctx context.Context, maxAttempts int) ([]*core.QueueEntry, error) {
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
func (s *MySQLStore) QueueSize(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM notify_queue`); err != nil {
		return 0, fmt.Errorf("failed to count notification queue: %w", err)
	}
	return n, nil
}

// OldestQueued returns the oldest queued entry
func (s *MySQLStore) OldestQueued(ctx context.Context) (*core.QueueEntry, error) {
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
func (s *MySQLStore) IncrementAttempt(ctx context.Context, queueID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notify_queue SET attempts = attempts + 1, last_attempt = ? WHERE id = ?
	`, time.Now(), queueID)
	if err != nil {
		return fmt.Errorf("failed to increment attempt: %w", err)
	}
	return nil
}

// RemoveFromQueue deletes a queue entry
func (s *MySQLStore) RemoveFromQueue(ctx context.Context, queueID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notify_queue WHERE id = ?`, queueID)
	if err != nil {
		return fmt.Errorf("failed to remove queue entry: %w", err)
	}
	return nil
}
