// Package config loads litbook.cue: a CUE file checked against a closed
// schema that also supplies every default.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// FileName is the configuration file looked up in the source root.
const FileName = "litbook.cue"

const schemaSrc = `
title?: string
source: *"." | string
output: *"_book" | string
extensions: *[".lit"] | [...=~"^\\."]
language: *"go" | string
concurrency: *0 | int & >=0
timeout: *"1m" | string
failFast: *false | bool
verify: *true | bool
maxFileSize: *1000000 | int & >0
run: *"" | string
chapters: *[] | [...string]
logging: {
	level: *"info" | "debug" | "info" | "warn" | "error"
	journal: *false | bool
}
toolchains: {
	go: {
		command: *"go" | string
		env: *[] | [...string]
	}
	starlark: {
		maxSteps: *0 | int & >=0
	}
}
`

// Config is the decoded configuration.
type Config struct {
	Title       string     `json:"title"`
	Source      string     `json:"source"`
	Output      string     `json:"output"`
	Extensions  []string   `json:"extensions"`
	Language    string     `json:"language"`
	Concurrency int        `json:"concurrency"`
	Timeout     string     `json:"timeout"`
	FailFast    bool       `json:"failFast"`
	Verify      bool       `json:"verify"`
	MaxFileSize int        `json:"maxFileSize"`
	Run         string     `json:"run"`
	Chapters    []string   `json:"chapters"`
	Logging     Logging    `json:"logging"`
	Toolchains  Toolchains `json:"toolchains"`

	// Path is the file the configuration came from, empty for defaults.
	Path string `json:"-"`
}

// Logging configures internal/logs.
type Logging struct {
	Level   string `json:"level"`
	Journal bool   `json:"journal"`
}

// Toolchains configures the executors.
type Toolchains struct {
	Go       GoToolchain       `json:"go"`
	Starlark StarlarkToolchain `json:"starlark"`
}

// GoToolchain configures the go command runner.
type GoToolchain struct {
	Command string   `json:"command"`
	Env     []string `json:"env"`
}

// StarlarkToolchain configures the in-process interpreter.
type StarlarkToolchain struct {
	MaxSteps uint64 `json:"maxSteps"`
}

// TimeoutDuration parses Timeout.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("config timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config timeout: negative duration %s", c.Timeout)
	}
	return d, nil
}

// Default returns the configuration used when no file exists.
func Default() (*Config, error) {
	return decode(cuecontext.New(), "{}", "")
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decode(cuecontext.New(), string(content), path)
}

// Find returns the configuration file in dir, or "" when there is none.
func Find(dir string) string {
	p := filepath.Join(dir, FileName)
	if info, err := os.Stat(p); err == nil && !info.IsDir() {
		return p
	}
	return ""
}

func decode(ctx *cue.Context, src, path string) (*Config, error) {
	schema := ctx.CompileString("close({" + schemaSrc + "})")
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("config schema: %w", err)
	}

	opts := []cue.BuildOption{}
	if path != "" {
		opts = append(opts, cue.Filename(path))
	}
	value := ctx.CompileString(src, opts...)
	if err := value.Err(); err != nil {
		return nil, err
	}

	unified := schema.Unify(value)
	if err := unified.Validate(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return nil, err
	}
	if _, err := cfg.TimeoutDuration(); err != nil {
		return nil, err
	}
	cfg.Path = path
	return &cfg, nil
}

// ErrNotFound is returned by LoadDir when an explicit file is missing.
var ErrNotFound = errors.New("config file not found")

// LoadDir loads path when set, else the file in dir if present, else the
// defaults.
func LoadDir(path, dir string) (*Config, error) {
	if path != "" {
		cfg, err := Load(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return cfg, err
	}
	if found := Find(dir); found != "" {
		return Load(found)
	}
	return Default()
}
