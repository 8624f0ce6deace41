// Package toolchain runs snippet programs and captures what they print.
package toolchain

import (
	"context"
	"errors"
)

// ErrInvocation means the program could not be run at all: it failed to
// compile, or the toolchain itself could not be started.
var ErrInvocation = errors.New("invocation failed")

// Output is what one run of a program wrote, stdout and stderr kept apart.
type Output struct {
	Stdout string
	Stderr string
}

// Executor runs a complete program. A program that runs and exits with a
// failure status is not an error: its output is returned as observed.
// Errors wrap ErrInvocation, or are the context's error when ctx ends first.
type Executor interface {
	Execute(ctx context.Context, program string) (Output, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, program string) (Output, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, program string) (Output, error) {
	return f(ctx, program)
}
