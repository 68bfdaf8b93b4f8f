package phrasedb

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // postgres driver
)

// DB implements Store and BackupStore on a Postgres connection.
type DB struct {
	conn *sql.DB
}

// Open connects to Postgres and verifies the connection. The pool is capped
// at a single connection; processing is strictly sequential and each UPDATE
// commits on its own.
func Open(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close releases the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) CountPending(ctx context.Context, maxAttempts int) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM phrases
		WHERE tts_ok = false
		  AND COALESCE(tts_attempts, 0) < $1`,
		maxAttempts,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("unable to count pending phrases: %w", err)
	}
	return n, nil
}

func (db *DB) FetchPending(ctx context.Context, maxAttempts, limit int) ([]Phrase, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, phrase, COALESCE(tts_attempts, 0)
		FROM phrases
		WHERE tts_ok = false
		  AND COALESCE(tts_attempts, 0) < $1
		ORDER BY id
		LIMIT $2`,
		maxAttempts, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch pending phrases: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var phrases []Phrase
	for rows.Next() {
		var (
			p    Phrase
			text sql.NullString
		)
		if err := rows.Scan(&p.ID, &text, &p.Attempts); err != nil {
			return nil, fmt.Errorf("unable to scan phrase row: %w", err)
		}
		p.Text = text.String
		phrases = append(phrases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("phrase row iteration failed: %w", err)
	}
	return phrases, nil
}

func (db *DB) MarkSynthesized(ctx context.Context, id int64, attempts int) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE phrases
		SET tts_ok = true,
		    tts_attempts = $1,
		    tts_error = NULL
		WHERE id = $2`,
		attempts, id,
	)
	if err != nil {
		return fmt.Errorf("unable to mark phrase %d synthesized: %w", id, err)
	}
	return nil
}

func (db *DB) MarkFailed(ctx context.Context, id int64, attempts int, message string) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE phrases
		SET tts_ok = false,
		    tts_attempts = $1,
		    tts_error = $2
		WHERE id = $3`,
		attempts, message, id,
	)
	if err != nil {
		return fmt.Errorf("unable to mark phrase %d failed: %w", id, err)
	}
	return nil
}

func (db *DB) MarkResolved(ctx context.Context, id int64) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE phrases
		SET tts_ok = true,
		    tts_error = NULL
		WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("unable to mark phrase %d resolved: %w", id, err)
	}
	return nil
}

func (db *DB) CountAll(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM phrases`).Scan(&n); err != nil {
		return 0, fmt.Errorf("unable to count phrases: %w", err)
	}
	return n, nil
}

func (db *DB) ScanAll(ctx context.Context, fn func(id int64, text string) error) error {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, phrase FROM phrases ORDER BY id`)
	if err != nil {
		return fmt.Errorf("unable to query phrases: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var (
			id   int64
			text sql.NullString
		)
		if err := rows.Scan(&id, &text); err != nil {
			return fmt.Errorf("unable to scan phrase row: %w", err)
		}
		if err := fn(id, text.String); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("phrase row iteration failed: %w", err)
	}
	return nil
}
