package toolchain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phobologic/litbook/internal/lang"
	"github.com/phobologic/litbook/internal/normalize"
	"github.com/phobologic/litbook/internal/parse"
)

func TestStarlarkOutput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		program string
		want    Output
	}{
		{
			name:    "hello world",
			program: "print(\"Hello, World!\")\n",
			want:    Output{Stdout: "Hello, World!\n"},
		},
		{
			name:    "main is called after top level",
			program: "print(\"top\")\n\ndef main():\n    print(\"main\")\n",
			want:    Output{Stdout: "top\nmain\n"},
		},
		{
			name:    "main called by the top level runs once",
			program: "def main():\n    print(\"hi\")\n\nmain()\n",
			want:    Output{Stdout: "hi\n"},
		},
		{
			name:    "main called from another function still runs",
			program: "def main():\n    print(\"main\")\n\ndef again():\n    main()\n",
			want:    Output{Stdout: "main\n"},
		},
		{
			name:    "eprint goes to stderr",
			program: "print(1, 2)\neprint(\"warn\", 3)\n",
			want:    Output{Stdout: "1 2\n", Stderr: "warn 3\n"},
		},
		{
			name:    "runtime error is observable output",
			program: "print(\"before\")\nfail(\"boom\")\nprint(\"after\")\n",
			want:    Output{Stdout: "before\n", Stderr: "fail: boom\n"},
		},
		{
			name:    "dialect options",
			program: "s = set([1])\nfor i in range(2):\n    s = set([i])\nprint(len(s))\n",
			want:    Output{Stdout: "1\n"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := (&Starlark{}).Execute(context.Background(), tt.program)
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestStarlarkCompileError(t *testing.T) {
	t.Parallel()

	_, err := (&Starlark{}).Execute(context.Background(), "def broken(:\n")
	if !errors.Is(err, ErrInvocation) {
		t.Fatalf("err = %v, want ErrInvocation", err)
	}

	_, err = (&Starlark{}).Execute(context.Background(), "print(undefined_name)\n")
	if !errors.Is(err, ErrInvocation) {
		t.Fatalf("unresolved name: err = %v, want ErrInvocation", err)
	}
}

func TestStarlarkTimeout(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := (&Starlark{}).Execute(ctx, "while True:\n    pass\n")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestStarlarkIsolation(t *testing.T) {
	t.Parallel()

	s := &Starlark{}
	if _, err := s.Execute(context.Background(), "x = 1\nprint(x)\n"); err != nil {
		t.Fatal(err)
	}
	_, err := s.Execute(context.Background(), "print(x)\n")
	if !errors.Is(err, ErrInvocation) {
		t.Errorf("globals leaked between runs: err = %v", err)
	}
}

func TestExecutorFunc(t *testing.T) {
	t.Parallel()

	var e Executor = ExecutorFunc(func(_ context.Context, program string) (Output, error) {
		return Output{Stdout: program}, nil
	})
	got, err := e.Execute(context.Background(), "x")
	if err != nil || got.Stdout != "x" {
		t.Errorf("got %+v, %v", got, err)
	}
}

func goRunner(t *testing.T) *GoRunner {
	t.Helper()
	if testing.Short() {
		t.Skip("builds Go programs")
	}
	g := &GoRunner{TempDir: t.TempDir()}
	if !g.Available() {
		t.Skip("go command not found")
	}
	return g
}

func TestGoRunnerOutput(t *testing.T) {
	t.Parallel()
	g := goRunner(t)

	program := `package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("Hello, World!")
	fmt.Fprintln(os.Stderr, "oops")
	os.Exit(3)
}
`
	got, err := g.Execute(context.Background(), program)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := Output{Stdout: "Hello, World!\n", Stderr: "oops\n"}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

// A snippet that only shows a declaration still builds once normalized.
func TestGoRunnerDeclarationOnly(t *testing.T) {
	t.Parallel()
	g := goRunner(t)

	l, _ := lang.Lookup("go")
	forms, err := normalize.Text("type Point struct{ X, Y int }\n", &l.Syntax, parse.EntryPoint{Lang: l})
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	got, err := g.Execute(context.Background(), forms.Exec)
	if err != nil {
		t.Fatalf("Execute(%q): %v", forms.Exec, err)
	}
	if got != (Output{}) {
		t.Errorf("got %+v, want no output", got)
	}
}

func TestGoRunnerBuildFailure(t *testing.T) {
	t.Parallel()
	g := goRunner(t)

	_, err := g.Execute(context.Background(), "package main\n\nfunc main() { undefined() }\n")
	if !errors.Is(err, ErrInvocation) {
		t.Fatalf("err = %v, want ErrInvocation", err)
	}
}

func TestGoRunnerMissingCommand(t *testing.T) {
	t.Parallel()

	g := &GoRunner{Command: "litbook-no-such-go", TempDir: t.TempDir()}
	if g.Available() {
		t.Skip("unexpected command on PATH")
	}
	_, err := g.Execute(context.Background(), "package main\nfunc main() {}\n")
	if !errors.Is(err, ErrInvocation) {
		t.Fatalf("err = %v, want ErrInvocation", err)
	}
}
