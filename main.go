// litbook extracts a tutorial from annotated source files, checks every
// example against the output its author wrote down, and renders HTML pages.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/phobologic/litbook/internal/assemble"
	"github.com/phobologic/litbook/internal/config"
	"github.com/phobologic/litbook/internal/discover"
	"github.com/phobologic/litbook/internal/extract"
	"github.com/phobologic/litbook/internal/lang"
	"github.com/phobologic/litbook/internal/logs"
	"github.com/phobologic/litbook/internal/model"
	"github.com/phobologic/litbook/internal/render"
	"github.com/phobologic/litbook/internal/report"
	"github.com/phobologic/litbook/internal/selection"
	"github.com/phobologic/litbook/internal/toolchain"
	"github.com/phobologic/litbook/internal/verify"
)

var version = "dev"

// errFailed is returned when the run completed but found problems; the
// report on stdout has the details.
var errFailed = errors.New("book has errors")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 && args[0] == "toc" {
		return runTOC(args[1:], stdout, stderr)
	}

	fs := flag.NewFlagSet("litbook", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		configPath  string
		output      string
		langName    string
		concurrency int
		timeout     time.Duration
		runPattern  string
		chapters    string
		noVerify    bool
		failFast    bool
		maxFileSize int
		logLevel    string
		showVersion bool
	)

	fs.StringVar(&configPath, "c", "", "configuration file (default <root>/"+config.FileName+")")
	fs.StringVar(&configPath, "config", "", "configuration file (default <root>/"+config.FileName+")")
	fs.StringVar(&output, "o", "", "output directory for HTML pages")
	fs.StringVar(&output, "out", "", "output directory for HTML pages")
	fs.StringVar(&langName, "l", "", "default snippet language")
	fs.StringVar(&langName, "lang", "", "default snippet language")
	fs.IntVar(&concurrency, "j", 0, "maximum parallel workers (0 = GOMAXPROCS)")
	fs.IntVar(&concurrency, "concurrency", 0, "maximum parallel workers (0 = GOMAXPROCS)")
	fs.DurationVar(&timeout, "timeout", 0, "time limit for each snippet run")
	fs.StringVar(&runPattern, "run", "", "verify only snippets whose ID matches this regexp")
	fs.StringVar(&chapters, "chapter", "", "comma-separated chapter titles to build")
	fs.BoolVar(&noVerify, "no-verify", false, "render without running snippets")
	fs.BoolVar(&failFast, "fail-fast", false, "stop at the first structural error or failed snippet")
	fs.IntVar(&maxFileSize, "max-file-size", 0, "skip source files larger than this many bytes")
	fs.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.BoolVar(&showVersion, "V", false, "show version and exit")
	fs.BoolVar(&showVersion, "version", false, "show version and exit")

	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}

	if showVersion {
		_, _ = fmt.Fprintf(stdout, "litbook %s\n", version)
		return nil
	}

	root, err := resolveRoot(fs)
	if err != nil {
		return err
	}

	cfg, err := config.LoadDir(configPath, root)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Flags given on the command line override the file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "o", "out":
			cfg.Output = output
		case "l", "lang":
			cfg.Language = langName
		case "j", "concurrency":
			cfg.Concurrency = concurrency
		case "timeout":
			cfg.Timeout = timeout.String()
		case "run":
			cfg.Run = runPattern
		case "chapter":
			cfg.Chapters = selection.Titles(chapters)
		case "no-verify":
			cfg.Verify = !noVerify
		case "fail-fast":
			cfg.FailFast = failFast
		case "max-file-size":
			cfg.MaxFileSize = maxFileSize
		case "log-level":
			cfg.Logging.Level = logLevel
		}
	})

	if _, ok := lang.Lookup(cfg.Language); !ok {
		return fmt.Errorf("unsupported language %q (have %s)", cfg.Language, strings.Join(lang.Names(), ", "))
	}
	if cfg.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative")
	}
	level, err := logs.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	snippetTimeout, err := cfg.TimeoutDuration()
	if err != nil {
		return err
	}
	filter, err := selection.Matcher(cfg.Run)
	if err != nil {
		return err
	}

	logger := logs.New(stderr, level, cfg.Logging.Journal)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	outDir := cfg.Output
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(root, outDir)
	}

	doc, structural, err := buildDocument(ctx, root, outDir, cfg, stderr, logger)
	if err != nil {
		return err
	}
	doc = selection.Chapters(doc, cfg.Chapters)

	var results []verify.Result
	if cfg.Verify && !(cfg.FailFast && len(structural) > 0) {
		results = verify.Document(ctx, doc, verify.Options{
			Toolchains:  toolchains(cfg),
			Concurrency: cfg.Concurrency,
			Timeout:     snippetTimeout,
			Filter:      filter,
			FailFast:    cfg.FailFast,
			Logger:      logger,
		})
	}

	// Pages are written whatever the verification outcome.
	pages := render.New().Render(doc)
	for _, p := range pages {
		if p.Err != nil {
			_, _ = fmt.Fprintf(stderr, "Warning: %s: rendered empty: %v\n", p.Name, p.Err)
		}
	}
	if err := render.WritePages(outDir, pages); err != nil {
		return err
	}
	logger.Info("pages written", "dir", outDir, "pages", len(pages))

	rep := &report.Report{
		Book:       doc.Title,
		Output:     outDir,
		Structural: structural,
		Results:    results,
		Pages:      pages,
	}
	_, _ = fmt.Fprintln(stdout, report.Encode(rep))

	if rep.Failed() {
		s := verify.Summarize(results)
		return fmt.Errorf("%w: %d structural errors, %d failed snippets", errFailed, len(structural), s.Failed)
	}
	return nil
}

func resolveRoot(fs *flag.FlagSet) (string, error) {
	root := "."
	if fs.NArg() > 0 {
		root = fs.Arg(0)
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s: not a directory", root)
	}
	return root, nil
}

// buildDocument discovers, extracts and assembles the book under root. The
// returned errors are structural; err is set only when nothing could be
// built at all.
func buildDocument(ctx context.Context, root, outDir string, cfg *config.Config, stderr io.Writer, logger *slog.Logger) (*model.Document, []error, error) {
	srcDir := cfg.Source
	if !filepath.IsAbs(srcDir) {
		srcDir = filepath.Join(root, srcDir)
	}

	var exclude []string
	if rel, err := filepath.Rel(srcDir, outDir); err == nil && !strings.HasPrefix(rel, "..") {
		exclude = append(exclude, rel)
	}

	files, err := discover.Files(srcDir, cfg.Extensions, exclude...)
	if err != nil {
		return nil, nil, fmt.Errorf("discovering files: %w", err)
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no source units found (extensions %s)", strings.Join(cfg.Extensions, ", "))
	}

	files = filterBySize(srcDir, files, cfg.MaxFileSize, stderr)
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no source units found (all exceeded size limit)")
	}

	units := readUnits(srcDir, files, stderr)
	logger.Debug("discovered units", "root", srcDir, "units", len(units))

	x := &extract.Extractor{DefaultLanguage: cfg.Language}
	var parsed []*model.ParsedUnit
	var structural []error
	skipped := 0
	for _, r := range extract.Concurrent(ctx, x, units, cfg.Concurrency, cfg.FailFast) {
		switch {
		case r.Skipped:
			skipped++
		case r.Err != nil:
			structural = append(structural, r.Err)
		default:
			parsed = append(parsed, r.Unit)
		}
	}
	if skipped > 0 {
		logger.Warn("units skipped after structural error", "skipped", skipped)
	}

	title := cfg.Title
	if title == "" {
		title = filepath.Base(root)
	}
	doc, errs := assemble.Build(title, parsed)
	structural = append(structural, errs...)

	for _, err := range structural {
		logger.Debug("structural error", "error", err)
	}
	return doc, structural, nil
}

func toolchains(cfg *config.Config) map[string]toolchain.Executor {
	return map[string]toolchain.Executor{
		"go": &toolchain.GoRunner{
			Command: cfg.Toolchains.Go.Command,
			Env:     cfg.Toolchains.Go.Env,
		},
		"starlark": &toolchain.Starlark{
			MaxSteps: cfg.Toolchains.Starlark.MaxSteps,
		},
	}
}

func readUnits(root string, files []discover.FileEntry, stderr io.Writer) []model.SourceUnit {
	units := make([]model.SourceUnit, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(root, f.Path))
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Warning: %s: %v\n", f.Path, err)
			continue
		}
		units = append(units, model.SourceUnit{
			Path:     filepath.ToSlash(f.Path),
			Text:     string(data),
			Ordinal:  len(units),
			Language: f.Language,
		})
	}
	return units
}

func filterBySize(root string, files []discover.FileEntry, maxSize int, stderr io.Writer) []discover.FileEntry {
	if maxSize <= 0 {
		return files
	}
	var kept []discover.FileEntry
	for _, f := range files {
		fi, err := os.Stat(filepath.Join(root, f.Path))
		if err != nil {
			kept = append(kept, f) // keep if can't stat
			continue
		}
		if fi.Size() > int64(maxSize) {
			_, _ = fmt.Fprintf(stderr, "Warning: %s: skipped (>%d bytes)\n", f.Path, maxSize)
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

// flagsWithValue lists flags that take a value argument.
var flagsWithValue = map[string]bool{
	"-c": true, "--c": true,
	"-config": true, "--config": true,
	"-o": true, "--o": true,
	"-out": true, "--out": true,
	"-l": true, "--l": true,
	"-lang": true, "--lang": true,
	"-j": true, "--j": true,
	"-concurrency": true, "--concurrency": true,
	"-timeout": true, "--timeout": true,
	"-run": true, "--run": true,
	"-chapter": true, "--chapter": true,
	"-max-file-size": true, "--max-file-size": true,
	"-log-level": true, "--log-level": true,
}

// reorderArgs moves positional arguments after all flags so Go's flag package
// can parse them correctly (it stops at the first non-flag arg).
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(args[i]) > 0 && args[i][0] == '-' {
			flags = append(flags, args[i])
			if flagsWithValue[args[i]] && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}
