// Package backup exports the phrase table to a tab-separated backup file.
package backup

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgnsrekt/phrasesynth/internal/phrasedb"
)

const defaultFileName = "phrases_backup.tsv"

// Phrases may contain anything; the TSV stays one row per phrase.
var sanitizer = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

// ResolveOutput validates the audio directory and resolves the backup file
// path. An empty output defaults to phrases_backup.tsv inside audioDir; a
// relative output resolves against audioDir.
func ResolveOutput(audioDir, output string) (string, error) {
	st, err := os.Stat(audioDir)
	if err != nil {
		return "", fmt.Errorf("audio dir not found: %s", audioDir)
	}
	if !st.IsDir() {
		return "", fmt.Errorf("audio dir is not a directory: %s", audioDir)
	}

	switch {
	case output == "":
		return filepath.Join(audioDir, defaultFileName), nil
	case filepath.IsAbs(output):
		return output, nil
	default:
		return filepath.Join(audioDir, output), nil
	}
}

// Export streams every phrase row to w as TSV, header first. It returns the
// number of data rows written. progress, when non-nil, is called once per
// row.
func Export(ctx context.Context, store phrasedb.BackupStore, w io.Writer, progress func(int)) (int, error) {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("id\tphrase\n"); err != nil {
		return 0, fmt.Errorf("unable to write header: %w", err)
	}

	rows := 0
	err := store.ScanAll(ctx, func(id int64, text string) error {
		if _, err := fmt.Fprintf(bw, "%d\t%s\n", id, sanitizer.Replace(text)); err != nil {
			return fmt.Errorf("unable to write row %d: %w", id, err)
		}
		rows++
		if progress != nil {
			progress(1)
		}
		return nil
	})
	if err != nil {
		return rows, err
	}

	if err := bw.Flush(); err != nil {
		return rows, fmt.Errorf("unable to flush backup: %w", err)
	}
	return rows, nil
}
