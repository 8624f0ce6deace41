package discover

import (
	"os"
	"path/filepath"
	"testing"
)

var litOnly = []string{".lit"}

func paths(entries []FileEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = filepath.ToSlash(e.Path)
	}
	return out
}

func TestDiscoverUnits(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "02-values.lit", "@chapter Values")
	writeFile(t, dir, "01-hello/intro.lit", "@chapter Hello")
	// Other extensions are ignored
	writeFile(t, dir, "readme.md", "hello")
	// Hidden file should be ignored
	writeFile(t, dir, ".draft.lit", "secret")

	entries, err := Files(dir, litOnly)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	got := paths(entries)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %v", got)
	}
	// Sorted by relative path
	if got[0] != "01-hello/intro.lit" || got[1] != "02-values.lit" {
		t.Errorf("entries = %v", got)
	}
	for _, e := range entries {
		if e.Language != "" {
			t.Errorf("entry %q: language = %q, want none", e.Path, e.Language)
		}
	}
}

func TestDiscoverExtensions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.lit", "")
	writeFile(t, dir, "b.md", "")
	writeFile(t, dir, "c.txt", "")

	entries, err := Files(dir, []string{".lit", ".md"})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if got := paths(entries); len(got) != 2 || got[0] != "a.lit" || got[1] != "b.md" {
		t.Errorf("entries = %v", got)
	}

	entries, err = Files(dir, nil)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("no extensions should match nothing, got %v", paths(entries))
	}
}

func TestDiscoverInnerLanguage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.star.lit", "")
	writeFile(t, dir, "b.go.lit", "")
	writeFile(t, dir, "c.v2.lit", "")

	entries, err := Files(dir, litOnly)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	want := map[string]string{"a.star.lit": "starlark", "b.go.lit": "go", "c.v2.lit": ""}
	for _, e := range entries {
		if e.Language != want[e.Path] {
			t.Errorf("%s: language = %q, want %q", e.Path, e.Language, want[e.Path])
		}
	}
}

func TestDiscoverSkipDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "main.lit", "")
	writeFile(t, dir, "node_modules/pkg.lit", "")
	writeFile(t, dir, "_book/copy.lit", "")
	writeFile(t, dir, ".hidden/secret.lit", "")
	writeFile(t, dir, "site/out.lit", "")

	entries, err := Files(dir, litOnly, "site")
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	if got := paths(entries); len(got) != 1 || got[0] != "main.lit" {
		t.Errorf("entries = %v, want [main.lit]", got)
	}
}

func TestDiscoverGitignore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "drafts/\n*.wip.lit\n")
	writeFile(t, dir, "keep.lit", "")
	writeFile(t, dir, "drafts/later.lit", "")
	writeFile(t, dir, "idea.wip.lit", "")

	entries, err := Files(dir, litOnly)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if got := paths(entries); len(got) != 1 || got[0] != "keep.lit" {
		t.Errorf("entries = %v, want [keep.lit]", got)
	}
}

func TestDiscoverSymlinksSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "real.lit", "")

	// Create symlink
	err := os.Symlink(filepath.Join(dir, "real.lit"), filepath.Join(dir, "link.lit"))
	if err != nil {
		t.Skip("symlinks not supported")
	}

	entries, err := Files(dir, litOnly)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry (no symlink), got %d", len(entries))
	}
	if entries[0].Path != "real.lit" {
		t.Errorf("expected real.lit, got %q", entries[0].Path)
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
