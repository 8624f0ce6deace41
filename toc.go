package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/phobologic/litbook/internal/config"
	"github.com/phobologic/litbook/internal/logs"
	"github.com/phobologic/litbook/internal/model"
	"github.com/phobologic/litbook/internal/render"
)

const (
	sentinelStart = "<!-- litbook:toc:start -->"
	sentinelEnd   = "<!-- litbook:toc:end -->"
)

// runTOC implements the `litbook toc` subcommand, which writes (or updates)
// a table of contents linking to the rendered pages in a Markdown file.
func runTOC(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("litbook toc", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		dryRun     bool
		root       string
		configPath string
	)
	fs.BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")
	fs.StringVar(&root, "root", ".", "book root")
	fs.StringVar(&configPath, "c", "", "configuration file (default <root>/"+config.FileName+")")
	fs.StringVar(&configPath, "config", "", "configuration file (default <root>/"+config.FileName+")")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: litbook toc [flags] [path-to-README.md]

Write the book's chapter list to a Markdown file. The list is wrapped in
sentinel comments so it can be updated in place on subsequent runs without
touching surrounding content. Creates the file if it does not exist.

path-to-README.md defaults to <root>/README.md.

Flags:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving root: %w", err)
	}
	cfg, err := config.LoadDir(configPath, root)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	outDir := cfg.Output
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(root, outDir)
	}

	logger := logs.New(stderr, slog.LevelWarn, false)
	doc, structural, err := buildDocument(context.Background(), root, outDir, cfg, stderr, logger)
	if err != nil {
		return err
	}
	for _, e := range structural {
		_, _ = fmt.Fprintf(stderr, "Warning: %v\n", e)
	}

	path := filepath.Join(root, "README.md")
	if fs.NArg() > 0 {
		path, err = filepath.Abs(fs.Arg(0))
		if err != nil {
			return err
		}
	}

	prefix, err := filepath.Rel(filepath.Dir(path), outDir)
	if err != nil {
		prefix = outDir
	}
	section := generateTOC(doc, filepath.ToSlash(prefix))

	// --dry-run with no path: just print the section itself.
	if dryRun && fs.NArg() == 0 {
		_, _ = fmt.Fprintln(stdout, section)
		return nil
	}

	existing, _ := os.ReadFile(path)
	updated := applySection(string(existing), section)

	if dryRun {
		_, _ = fmt.Fprint(stdout, updated)
		return nil
	}

	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(stderr, "wrote table of contents to %s\n", path)
	return nil
}

// generateTOC returns the sentinel-wrapped chapter list. Links point into
// the output directory, given relative to the Markdown file as prefix.
func generateTOC(doc *model.Document, prefix string) string {
	var b strings.Builder
	b.WriteString(sentinelStart + "\n## Contents\n\n")
	for i, ch := range doc.Chapters {
		page := render.PageName(i, ch)
		if prefix != "" && prefix != "." {
			page = prefix + "/" + page
		}
		fmt.Fprintf(&b, "%d. [%s](%s)\n", i+1, ch.Title, page)
		for _, sec := range ch.Sections {
			fmt.Fprintf(&b, "   - [%s](%s#%s)\n", sec.Title, page, sec.Anchor)
		}
	}
	b.WriteString(sentinelEnd)
	return b.String()
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not. It is a pure function for easy testing.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
