// Package verify runs every snippet's execution form and compares what it
// prints with its oracle.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/phobologic/litbook/internal/model"
	"github.com/phobologic/litbook/internal/toolchain"
)

// ErrNoToolchain is reported for snippets whose language has no executor.
var ErrNoToolchain = errors.New("no toolchain for language")

var errStop = errors.New("stopping after first failure")

// Status classifies a snippet run.
type Status string

const (
	Pass       Status = "pass"
	Mismatch   Status = "mismatch"
	Invocation Status = "invocation"
	Timeout    Status = "timeout"
	Skipped    Status = "skipped"
)

// Result is the verdict for one snippet.
type Result struct {
	Snippet  *model.Snippet
	Status   Status
	Actual   toolchain.Output
	Err      error
	Duration time.Duration
}

// Failed reports whether the result counts against the run.
func (r Result) Failed() bool {
	switch r.Status {
	case Mismatch, Invocation, Timeout:
		return true
	}
	return false
}

// StdoutDiffers reports whether observed stdout differs from the oracle.
func (r Result) StdoutDiffers() bool {
	return r.Status == Mismatch && r.Actual.Stdout != r.Snippet.Oracle.Stdout
}

// StderrDiffers reports whether observed stderr differs from the oracle.
func (r Result) StderrDiffers() bool {
	return r.Status == Mismatch && r.Actual.Stderr != r.Snippet.Oracle.Stderr
}

// Options configures a verification run.
type Options struct {
	// Toolchains maps language names to executors.
	Toolchains map[string]toolchain.Executor
	// Concurrency bounds simultaneous runs; GOMAXPROCS when <= 0.
	Concurrency int
	// Timeout bounds each run; zero means no limit.
	Timeout time.Duration
	// Filter, when set, selects the snippets to run. Others are skipped.
	Filter func(*model.Snippet) bool
	// FailFast stops scheduling after the first failure; unstarted
	// snippets are reported as skipped.
	FailFast bool
	Logger   *slog.Logger
}

// Document verifies every snippet of doc in document order.
func Document(ctx context.Context, doc *model.Document, opts Options) []Result {
	return Run(ctx, doc.Snippets(), opts)
}

// Run verifies snippets concurrently. Runs are isolated from each other: a
// failing snippet does not affect the others unless FailFast is set.
// Results are indexed like snippets.
func Run(ctx context.Context, snippets []*model.Snippet, opts Options) []Result {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(snippets))

	var g *errgroup.Group
	gctx := ctx
	if opts.FailFast {
		g, gctx = errgroup.WithContext(ctx)
	} else {
		g = new(errgroup.Group)
	}
	g.SetLimit(limit)

	for i, sn := range snippets {
		if sn.NoRun || (opts.Filter != nil && !opts.Filter(sn)) {
			results[i] = Result{Snippet: sn, Status: Skipped}
			continue
		}
		exec, ok := opts.Toolchains[sn.Language]
		if !ok {
			results[i] = Result{Snippet: sn, Status: Invocation, Err: fmt.Errorf("%w %q", ErrNoToolchain, sn.Language)}
			logger.Warn("no toolchain", "snippet", sn.ID, "language", sn.Language)
			if opts.FailFast {
				g.Go(func() error { return errStop })
			}
			continue
		}

		g.Go(func() error {
			if gctx.Err() != nil {
				results[i] = Result{Snippet: sn, Status: Skipped, Err: gctx.Err()}
				return nil
			}
			res := one(gctx, sn, exec, opts.Timeout)
			results[i] = res
			logger.Debug("snippet verified",
				"snippet", sn.ID,
				"status", string(res.Status),
				"duration", res.Duration,
			)
			if opts.FailFast && res.Failed() {
				return errStop
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func one(ctx context.Context, sn *model.Snippet, exec toolchain.Executor, timeout time.Duration) Result {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := exec.Execute(runCtx, sn.Exec)
	res := Result{Snippet: sn, Actual: out, Err: err, Duration: time.Since(start)}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		res.Status = Timeout
	case errors.Is(err, context.Canceled):
		res.Status = Skipped
	case err != nil:
		res.Status = Invocation
	case out.Stdout != sn.Oracle.Stdout || out.Stderr != sn.Oracle.Stderr:
		res.Status = Mismatch
	default:
		res.Status = Pass
	}
	return res
}

// Summary counts results by outcome.
type Summary struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

// Summarize tallies results.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Status == Pass:
			s.Passed++
		case r.Status == Skipped:
			s.Skipped++
		case r.Failed():
			s.Failed++
		}
	}
	return s
}
