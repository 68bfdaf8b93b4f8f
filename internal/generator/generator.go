// Package generator drives the batch TTS pipeline over pending phrases.
//
// One phrase is synthesized, persisted, and committed before the next
// begins. Every outcome is written back to the database immediately, so the
// run can be killed at any point and resumed; at worst one in-flight phrase
// is retried on the next run, bounded by the attempt cap.
package generator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/dgnsrekt/phrasesynth/internal/phrasedb"
	"github.com/dgnsrekt/phrasesynth/internal/synth"
)

const previewLen = 60

var (
	// ErrNoOutDir indicates the output directory was not configured.
	ErrNoOutDir = errors.New("output directory is required")
	// ErrNoProvider indicates a live run was requested without a provider.
	ErrNoProvider = errors.New("synthesis provider is required unless dry-run")
)

// Config holds the tunables of one generator run.
type Config struct {
	// OutDir receives one MP3 per phrase, named {id:06d}.mp3.
	OutDir string

	// BatchSize is the page size for database reads (default 100).
	BatchSize int

	// MaxPhrases caps how many phrases are processed this run; 0 means no
	// cap. Useful for partial runs.
	MaxPhrases int

	// MaxAttempts is the per-phrase attempt cap (default 5). A phrase that
	// reaches it without success is skipped until its counter is reset
	// externally.
	MaxAttempts int

	// SleepOnError is the pause after a failed synthesis before the run
	// continues.
	SleepOnError time.Duration

	// DryRun previews the work without calling the provider, writing files,
	// or touching the database.
	DryRun bool
}

// Summary reports the outcome of a run.
type Summary struct {
	Target    int // phrases this run set out to process
	Processed int
	Done      int // synthesized successfully
	Skipped   int // Reconciled + Previewed
	Failed    int

	// Skipped, split for observability. The combined counter is what the
	// summary output reports.
	Reconciled int // audio file already existed, database caught up
	Previewed  int // dry-run previews
}

// Option configures a Runner.
type Option func(*Runner)

// WithSleep replaces the post-failure sleep, letting tests skip the wait.
func WithSleep(fn func(time.Duration)) Option {
	return func(r *Runner) { r.sleep = fn }
}

// WithProgress registers a callback invoked after every processed phrase
// with the cumulative count and the run target.
func WithProgress(fn func(done, target int)) Option {
	return func(r *Runner) { r.progress = fn }
}

// Runner processes pending phrases one at a time.
type Runner struct {
	store    phrasedb.Store
	provider synth.Provider
	cfg      Config

	sleep    func(time.Duration)
	progress func(done, target int)
}

// New validates the configuration and builds a Runner. The provider may be
// nil only for dry runs.
func New(store phrasedb.Store, provider synth.Provider, cfg Config, opts ...Option) (*Runner, error) {
	if cfg.OutDir == "" {
		return nil, ErrNoOutDir
	}
	if provider == nil && !cfg.DryRun {
		return nil, ErrNoProvider
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}

	r := &Runner{
		store:    store,
		provider: provider,
		cfg:      cfg,
		sleep:    time.Sleep,
		progress: func(int, int) {},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// ArtifactPath returns the audio file path for a phrase id.
func ArtifactPath(dir string, id int64) string {
	return filepath.Join(dir, fmt.Sprintf("%06d.mp3", id))
}

// artifactExists reports whether a non-empty audio file is already on disk.
// A non-empty file is authoritative evidence of a prior successful
// synthesis, even if the database row was never updated.
func artifactExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Size() > 0
}

// Run executes one batch pass and returns its summary. Store errors abort
// the run; synthesis failures are recorded per phrase and the run
// continues.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	pending, err := r.store.CountPending(ctx, r.cfg.MaxAttempts)
	if err != nil {
		return Summary{}, err
	}

	target := pending
	if r.cfg.MaxPhrases > 0 && r.cfg.MaxPhrases < pending {
		target = r.cfg.MaxPhrases
	}

	log.Info("pending phrases",
		"pending", humanize.Comma(int64(pending)),
		"maxAttempts", r.cfg.MaxAttempts,
		"target", humanize.Comma(int64(target)))

	if target == 0 {
		log.Info("nothing to do")
		return Summary{}, nil
	}

	if err := os.MkdirAll(r.cfg.OutDir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("unable to create output directory: %w", err)
	}

	sum := Summary{Target: target}
	for sum.Processed < target {
		page, err := r.store.FetchPending(ctx, r.cfg.MaxAttempts, r.cfg.BatchSize)
		if err != nil {
			return sum, err
		}
		if len(page) == 0 {
			break
		}

		for _, p := range page {
			if sum.Processed >= target {
				break
			}
			if err := r.processOne(ctx, p, &sum); err != nil {
				return sum, err
			}
		}
	}
	return sum, nil
}

func (r *Runner) processOne(ctx context.Context, p phrasedb.Phrase, sum *Summary) error {
	outPath := ArtifactPath(r.cfg.OutDir, p.ID)

	// Audio already on disk: trust the file, catch the database up, skip
	// the provider entirely.
	if !r.cfg.DryRun && artifactExists(outPath) {
		if err := r.store.MarkResolved(ctx, p.ID); err != nil {
			return err
		}
		log.Debug("audio already present, marked done", "id", p.ID)
		sum.Reconciled++
		r.finish(sum, skip)
		return nil
	}

	if r.cfg.DryRun {
		log.Info("dry-run: would synthesize",
			"id", p.ID, "attempts", p.Attempts, "phrase", preview(p.Text))
		sum.Previewed++
		r.finish(sum, skip)
		return nil
	}

	synthErr := r.provider.Synthesize(ctx, p.Text, outPath)
	attempts := p.Attempts + 1

	if synthErr == nil {
		if err := r.store.MarkSynthesized(ctx, p.ID, attempts); err != nil {
			return err
		}
		r.finish(sum, done)
		return nil
	}

	log.Warn("synthesis failed", "id", p.ID, "attempts", attempts, "err", synthErr)
	if err := r.store.MarkFailed(ctx, p.ID, attempts, synthErr.Error()); err != nil {
		return err
	}
	r.finish(sum, failed)

	if r.cfg.SleepOnError > 0 {
		r.sleep(r.cfg.SleepOnError)
	}
	return nil
}

type outcome int

const (
	done outcome = iota
	skip
	failed
)

func (r *Runner) finish(sum *Summary, o outcome) {
	switch o {
	case done:
		sum.Done++
	case skip:
		sum.Skipped++
	case failed:
		sum.Failed++
	}
	sum.Processed++
	r.progress(sum.Processed, sum.Target)
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLen {
		return text
	}
	return string(runes[:previewLen]) + "..."
}
