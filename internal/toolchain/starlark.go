package toolchain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// DefaultFileOptions enables the dialect features snippets commonly use.
var DefaultFileOptions = syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// Starlark interprets programs in process. print writes to stdout and the
// predeclared eprint writes to stderr. A runtime error ends the program with
// its message on stderr; a program that does not compile is an invocation
// error. After the top level runs, a global main is called if it exists and
// the top level did not call it already.
type Starlark struct {
	// Options overrides DefaultFileOptions when non-nil.
	Options *syntax.FileOptions
	// MaxSteps bounds execution; zero means unbounded.
	MaxSteps uint64
}

// Execute runs program on a fresh thread.
func (s *Starlark) Execute(ctx context.Context, program string) (Output, error) {
	opts := s.Options
	if opts == nil {
		opts = &DefaultFileOptions
	}

	var stdout, stderr strings.Builder
	predeclared := starlark.StringDict{
		"eprint": starlark.NewBuiltin("eprint", writer(&stderr)),
	}

	file, prog, err := starlark.SourceProgramOptions(opts, "snippet.star", program, predeclared.Has)
	if err != nil {
		return Output{}, fmt.Errorf("%w: %v", ErrInvocation, err)
	}

	thread := &starlark.Thread{
		Name: "snippet",
		Print: func(_ *starlark.Thread, msg string) {
			stdout.WriteString(msg)
			stdout.WriteByte('\n')
		},
	}
	if s.MaxSteps > 0 {
		thread.SetMaxExecutionSteps(s.MaxSteps)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()

	globals, err := prog.Init(thread, predeclared)
	if err == nil && !callsMain(file) {
		if main, ok := globals["main"].(starlark.Callable); ok {
			_, err = starlark.Call(thread, main, nil, nil)
		}
	}

	if ctx.Err() != nil {
		return Output{Stdout: stdout.String(), Stderr: stderr.String()}, ctx.Err()
	}
	if err != nil {
		var evalErr *starlark.EvalError
		if !errors.As(err, &evalErr) {
			return Output{}, fmt.Errorf("%w: %v", ErrInvocation, err)
		}
		stderr.WriteString(evalErr.Msg)
		stderr.WriteByte('\n')
	}
	return Output{Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

// callsMain reports whether the top level of f calls main itself, outside
// any function body.
func callsMain(f *syntax.File) bool {
	found := false
	for _, stmt := range f.Stmts {
		syntax.Walk(stmt, func(n syntax.Node) bool {
			switch n := n.(type) {
			case *syntax.DefStmt, *syntax.LambdaExpr:
				return false
			case *syntax.CallExpr:
				if id, ok := n.Fn.(*syntax.Ident); ok && id.Name == "main" {
					found = true
				}
			}
			return !found
		})
	}
	return found
}

// writer returns a print-like builtin appending to b.
func writer(b *strings.Builder) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		sep := " "
		if err := starlark.UnpackArgs(fn.Name(), nil, kwargs, "sep?", &sep); err != nil {
			return nil, err
		}
		for i, v := range args {
			if i > 0 {
				b.WriteString(sep)
			}
			if s, ok := starlark.AsString(v); ok {
				b.WriteString(s)
			} else {
				b.WriteString(v.String())
			}
		}
		b.WriteByte('\n')
		return starlark.None, nil
	}
}
