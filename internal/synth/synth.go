// Package synth turns phrase text into audio files.
package synth

import "context"

// Provider converts text to an audio file at outPath. Implementations write
// the file only on success; a present, non-empty file is proof that
// synthesis completed.
type Provider interface {
	Synthesize(ctx context.Context, text, outPath string) error
}

// Error is a structured synthesis failure. Its message is what ends up in
// the tts_error column, so it stays human-readable.
type Error struct {
	Reason       string // what went wrong, e.g. "HTTP 429"
	CancelReason string // provider-side cancellation reason, when known
	Details      string // raw detail from the provider response
}

func (e *Error) Error() string {
	msg := "TTS failed, reason=" + e.Reason
	if e.CancelReason != "" {
		msg += ", cancel_reason=" + e.CancelReason
	}
	if e.Details != "" {
		msg += ", details=" + e.Details
	}
	return msg
}
