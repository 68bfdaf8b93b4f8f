// Package phrasedb provides access to the phrases table.
package phrasedb

import "context"

// Phrase is one row of the phrases table as seen by the generator.
type Phrase struct {
	ID       int64
	Text     string
	Attempts int
}

// Store is the subset of phrase-table operations the TTS generator needs.
// The generator only ever flips tts_ok/tts_attempts/tts_error; it never
// creates or deletes rows.
type Store interface {
	// CountPending returns how many rows are still eligible for synthesis:
	// tts_ok = false and fewer than maxAttempts attempts.
	CountPending(ctx context.Context, maxAttempts int) (int, error)

	// FetchPending returns the next page of eligible rows, ordered by id.
	FetchPending(ctx context.Context, maxAttempts, limit int) ([]Phrase, error)

	// MarkSynthesized records a successful synthesis: tts_ok = true, the
	// new attempt count, and a cleared error.
	MarkSynthesized(ctx context.Context, id int64, attempts int) error

	// MarkFailed records a failed attempt: the new attempt count and a
	// human-readable error message.
	MarkFailed(ctx context.Context, id int64, attempts int, message string) error

	// MarkResolved flags a row as done without touching its attempt count,
	// used when an audio file already exists on disk.
	MarkResolved(ctx context.Context, id int64) error
}

// BackupStore is the subset of phrase-table operations the TSV exporter
// needs.
type BackupStore interface {
	// CountAll returns the total number of phrase rows.
	CountAll(ctx context.Context) (int, error)

	// ScanAll streams every row in id order to fn. A non-nil error from fn
	// stops the scan.
	ScanAll(ctx context.Context, fn func(id int64, text string) error) error
}
