package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/sm2"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB represents a wrapper around the SQL database connection holding the
// review log.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
//
// The pool is limited to a single connection: SQLite serializes writers
// anyway, and it makes Apply's read-then-append transaction exclusive.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const selectColumns = `
	SELECT id, card_key, score, reviewed_at, content_hash, state, interval_days, ease, steps, due
	FROM reviews`

// Append writes a new review log entry and returns its id.
func (db *DB) Append(ctx context.Context, entry domain.ReviewLog) (int64, error) {
	return insertReview(ctx, db.conn, entry)
}

// Latest returns the most recent entry for a card, or nil if the card has
// never been reviewed.
func (db *DB) Latest(ctx context.Context, cardKey string) (*domain.ReviewLog, error) {
	return latestReview(ctx, db.conn, cardKey)
}

// History returns every entry for a card in the order they were appended.
func (db *DB) History(ctx context.Context, cardKey string) ([]domain.ReviewLog, error) {
	rows, err := db.conn.QueryContext(ctx, selectColumns+` WHERE card_key = ? ORDER BY id`, cardKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get history for card %s: %w", cardKey, err)
	}
	defer rows.Close()

	var entries []domain.ReviewLog
	for rows.Next() {
		entry, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review row for card %s: %w", cardKey, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history for card %s: %w", cardKey, err)
	}
	return entries, nil
}

// Apply reads the latest entry for a card, passes it to next (nil for an
// unseen card) and appends the entry next returns, all in one transaction.
// Concurrent reviews of the same card therefore always fold over the most
// recent schedule. If next returns an error nothing is written. next runs
// while the transaction holds the only connection, so it must not call db.
func (db *DB) Apply(ctx context.Context, cardKey string, next func(latest *domain.ReviewLog) (domain.ReviewLog, error)) (domain.ReviewLog, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return domain.ReviewLog{}, fmt.Errorf("failed to begin review of card %s: %w", cardKey, err)
	}
	defer tx.Rollback()

	latest, err := latestReview(ctx, tx, cardKey)
	if err != nil {
		return domain.ReviewLog{}, err
	}

	entry, err := next(latest)
	if err != nil {
		return domain.ReviewLog{}, err
	}
	entry.CardKey = cardKey

	id, err := insertReview(ctx, tx, entry)
	if err != nil {
		return domain.ReviewLog{}, err
	}
	entry.ID = id

	if err := tx.Commit(); err != nil {
		return domain.ReviewLog{}, fmt.Errorf("failed to commit review of card %s: %w", cardKey, err)
	}
	return entry, nil
}

// CardKeys returns the keys of all cards with at least one review.
func (db *DB) CardKeys(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT DISTINCT card_key FROM reviews ORDER BY card_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to get card keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan card key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// DeleteCard removes the whole review history of a card. It is only used
// when the card itself no longer exists.
func (db *DB) DeleteCard(ctx context.Context, cardKey string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM reviews WHERE card_key = ?`, cardKey)
	if err != nil {
		return fmt.Errorf("failed to delete history for card %s: %w", cardKey, err)
	}
	return nil
}

func insertReview(ctx context.Context, q queryer, entry domain.ReviewLog) (int64, error) {
	if entry.CardKey == "" {
		return 0, errors.New("failed to insert review: empty card key")
	}
	if !entry.Score.IsValid() || !entry.Schedule.State.IsValid() {
		return 0, fmt.Errorf("failed to insert review for card %s: invalid score %s or state %s",
			entry.CardKey, entry.Score, entry.Schedule.State)
	}

	var due sql.NullTime
	if entry.Schedule.Due != nil {
		due = sql.NullTime{Time: entry.Schedule.Due.UTC(), Valid: true}
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO reviews (card_key, score, reviewed_at, content_hash, state, interval_days, ease, steps, due)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.CardKey,
		entry.Score.String(),
		entry.ReviewedAt.UTC(),
		entry.ContentHash,
		entry.Schedule.State.String(),
		entry.Schedule.Interval,
		entry.Schedule.Ease,
		int64(entry.Schedule.Steps),
		due,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert review for card %s: %w", entry.CardKey, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for card %s: %w", entry.CardKey, err)
	}
	return id, nil
}

func latestReview(ctx context.Context, q queryer, cardKey string) (*domain.ReviewLog, error) {
	row := q.QueryRowContext(ctx, selectColumns+` WHERE card_key = ? ORDER BY id DESC LIMIT 1`, cardKey)
	entry, err := scanReview(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Card never reviewed
		}
		return nil, fmt.Errorf("failed to find latest review for card %s: %w", cardKey, err)
	}
	return &entry, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReview(s scanner) (domain.ReviewLog, error) {
	var (
		entry      domain.ReviewLog
		score      string
		state      string
		reviewedAt time.Time
		steps      int64
		due        sql.NullTime
	)
	err := s.Scan(
		&entry.ID,
		&entry.CardKey,
		&score,
		&reviewedAt,
		&entry.ContentHash,
		&state,
		&entry.Schedule.Interval,
		&entry.Schedule.Ease,
		&steps,
		&due,
	)
	if err != nil {
		return domain.ReviewLog{}, err
	}

	if entry.Score, err = sm2.ParseScore(score); err != nil {
		return domain.ReviewLog{}, err
	}
	if entry.Schedule.State, err = sm2.ParseState(state); err != nil {
		return domain.ReviewLog{}, err
	}
	entry.ReviewedAt = reviewedAt.UTC()
	entry.Schedule.Steps = uint(steps)
	if due.Valid {
		d := due.Time.UTC()
		entry.Schedule.Due = &d
	}
	return entry, nil
}
