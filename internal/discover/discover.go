// Package discover finds source units under a book root.
package discover

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/litbook/internal/lang"
)

// FileEntry represents a discovered source unit.
type FileEntry struct {
	Path     string // Relative to the book root
	Language string // From an inner extension such as intro.star.lit; empty otherwise
}

var skipDirs = map[string]struct{}{
	"node_modules": {},
	"vendor":       {},
	".git":         {},
	".hg":          {},
	".svn":         {},
	"build":        {},
	"dist":         {},
	"_book":        {},
}

// Files discovers files under root whose extension is one of extensions,
// sorted by relative path. That order is the assembly order. Directories
// named in exclude (relative to root) are not entered.
func Files(root string, extensions []string, exclude ...string) ([]FileEntry, error) {
	extSet := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		extSet[e] = struct{}{}
	}
	excluded := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		excluded[filepath.Clean(e)] = struct{}{}
	}

	gitFiles := gitLsFiles(root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(root)
	}

	var results []FileEntry

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if rel, err := filepath.Rel(root, path); err == nil {
				if _, skip := excluded[rel]; skip {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		ext := filepath.Ext(name)
		if _, ok := extSet[ext]; !ok {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		if gitFiles != nil {
			if _, ok := gitFiles[filepath.ToSlash(rel)]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		results = append(results, FileEntry{Path: rel, Language: innerLanguage(name, ext)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return filepath.ToSlash(results[i].Path) < filepath.ToSlash(results[j].Path)
	})

	return results, nil
}

// innerLanguage maps "intro.star.lit" to "starlark" when the inner
// extension names a registered language.
func innerLanguage(name, ext string) string {
	inner := strings.TrimPrefix(filepath.Ext(strings.TrimSuffix(name, ext)), ".")
	if inner == "" {
		return ""
	}
	if l, ok := lang.Lookup(inner); ok {
		return l.Name
	}
	return ""
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
