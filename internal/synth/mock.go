package synth

import (
	"context"
	"fmt"
	"os"
)

// Call records one Synthesize invocation on a Mock.
type Call struct {
	Text string
	Path string
}

// Mock implements Provider for tests. It records every call and either
// writes Audio to the requested path or fails with FailWith.
type Mock struct {
	// FailWith, when non-nil, is returned after the call is recorded.
	FailWith error

	// FailTexts makes only calls for the given texts fail.
	FailTexts map[string]error

	// Audio is the payload written on success. Defaults to a small
	// non-empty placeholder.
	Audio []byte

	calls []Call
}

// Synthesize records the call and writes mock audio.
func (m *Mock) Synthesize(_ context.Context, text, outPath string) error {
	m.calls = append(m.calls, Call{Text: text, Path: outPath})

	if m.FailWith != nil {
		return m.FailWith
	}
	if err, ok := m.FailTexts[text]; ok {
		return err
	}

	audio := m.Audio
	if audio == nil {
		audio = []byte("mock-mp3-audio")
	}
	if err := os.WriteFile(outPath, audio, 0o644); err != nil {
		return fmt.Errorf("unable to write mock audio: %w", err)
	}
	return nil
}

// Calls returns the recorded invocations in order.
func (m *Mock) Calls() []Call {
	return m.calls
}

// CallCount returns how many times Synthesize was invoked.
func (m *Mock) CallCount() int {
	return len(m.calls)
}
