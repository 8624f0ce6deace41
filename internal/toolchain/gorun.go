package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const goModule = "module snippet\n\ngo 1.21\n"

// GoRunner builds each program as its own main package with the go command
// and runs the resulting binary.
type GoRunner struct {
	// Command is the go binary; "go" on PATH when empty.
	Command string
	// Env is appended to the inherited environment for both build and run.
	Env []string
	// TempDir is where scratch modules are created; os.TempDir when empty.
	TempDir string
}

// Available reports whether the go command can be found.
func (g *GoRunner) Available() bool {
	_, err := exec.LookPath(g.command())
	return err == nil
}

func (g *GoRunner) command() string {
	if g.Command != "" {
		return g.Command
	}
	return "go"
}

// Execute writes program to a scratch module, builds it and runs it.
func (g *GoRunner) Execute(ctx context.Context, program string) (Output, error) {
	dir, err := os.MkdirTemp(g.TempDir, "litbook-go-*")
	if err != nil {
		return Output{}, fmt.Errorf("%w: %v", ErrInvocation, err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte(goModule), 0o644); err != nil {
		return Output{}, fmt.Errorf("%w: %v", ErrInvocation, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.go"), []byte(program), 0o644); err != nil {
		return Output{}, fmt.Errorf("%w: %v", ErrInvocation, err)
	}

	bin := filepath.Join(dir, "snippet")
	if runtime.GOOS == "windows" {
		bin += ".exe"
	}

	env := append(os.Environ(), "GOWORK=off", "GOFLAGS=")
	env = append(env, g.Env...)

	var buildOut bytes.Buffer
	build := exec.CommandContext(ctx, g.command(), "build", "-o", bin, ".")
	build.Dir = dir
	build.Env = env
	build.Stdout = &buildOut
	build.Stderr = &buildOut
	if err := build.Run(); err != nil {
		if ctx.Err() != nil {
			return Output{}, ctx.Err()
		}
		msg := strings.TrimSpace(buildOut.String())
		if msg == "" {
			msg = err.Error()
		}
		return Output{}, fmt.Errorf("%w: go build: %s", ErrInvocation, msg)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin)
	cmd.Dir = dir
	cmd.Env = env
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second
	err = cmd.Run()

	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if ctx.Err() != nil {
		return out, ctx.Err()
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return out, fmt.Errorf("%w: %v", ErrInvocation, err)
	}
	return out, nil
}
