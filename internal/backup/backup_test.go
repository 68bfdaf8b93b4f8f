package backup

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

// fakeStore serves fixed rows in insertion order.
type fakeStore struct {
	ids   []int64
	texts []string
}

func (s *fakeStore) CountAll(context.Context) (int, error) {
	return len(s.ids), nil
}

func (s *fakeStore) ScanAll(_ context.Context, fn func(id int64, text string) error) error {
	for i, id := range s.ids {
		if err := fn(id, s.texts[i]); err != nil {
			return err
		}
	}
	return nil
}

// TestExport checks header, ordering, and control-character sanitization.
func TestExport(t *testing.T) {
	store := &fakeStore{
		ids:   []int64{1, 2, 3},
		texts: []string{"hola", "con\ttab y\nsalto", "con\rretorno"},
	}

	var buf bytes.Buffer
	rows, err := Export(context.Background(), store, &buf, nil)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if rows != 3 {
		t.Errorf("rows = %d, want 3", rows)
	}

	want := "id\tphrase\n" +
		"1\thola\n" +
		"2\tcon tab y salto\n" +
		"3\tcon retorno\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

// TestExportEmpty writes just the header.
func TestExportEmpty(t *testing.T) {
	var buf bytes.Buffer
	rows, err := Export(context.Background(), &fakeStore{}, &buf, nil)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if rows != 0 {
		t.Errorf("rows = %d, want 0", rows)
	}
	if buf.String() != "id\tphrase\n" {
		t.Errorf("output = %q", buf.String())
	}
}

// TestExportProgress calls the callback once per row.
func TestExportProgress(t *testing.T) {
	store := &fakeStore{ids: []int64{1, 2}, texts: []string{"a", "b"}}

	calls := 0
	if _, err := Export(context.Background(), store, &bytes.Buffer{}, func(int) { calls++ }); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("progress calls = %d, want 2", calls)
	}
}

// TestResolveOutput covers default, relative, and absolute outputs plus the
// missing-directory error.
func TestResolveOutput(t *testing.T) {
	dir := t.TempDir()

	got, err := ResolveOutput(dir, "")
	if err != nil {
		t.Fatalf("ResolveOutput failed: %v", err)
	}
	if got != filepath.Join(dir, "phrases_backup.tsv") {
		t.Errorf("default output = %q", got)
	}

	got, err = ResolveOutput(dir, "custom.tsv")
	if err != nil {
		t.Fatalf("ResolveOutput failed: %v", err)
	}
	if got != filepath.Join(dir, "custom.tsv") {
		t.Errorf("relative output = %q", got)
	}

	abs := filepath.Join(t.TempDir(), "elsewhere.tsv")
	got, err = ResolveOutput(dir, abs)
	if err != nil {
		t.Fatalf("ResolveOutput failed: %v", err)
	}
	if got != abs {
		t.Errorf("absolute output = %q, want %q", got, abs)
	}

	if _, err := ResolveOutput(filepath.Join(dir, "missing"), ""); err == nil {
		t.Error("missing audio dir should fail")
	}

	file := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ResolveOutput(file, ""); err == nil {
		t.Error("file instead of directory should fail")
	}
}
