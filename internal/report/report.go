// Package report writes the run report in TOON (Token-Oriented Object
// Notation): structural errors first, then verification failures grouped
// by snippet, then every result and a summary.
package report

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/phobologic/litbook/internal/model"
	"github.com/phobologic/litbook/internal/render"
	"github.com/phobologic/litbook/internal/verify"
)

var (
	needsQuoting = regexp.MustCompile(`[,:"\\{}\[\]]`)
	looksNumeric = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	keywords     = map[string]struct{}{
		"true":  {},
		"false": {},
		"null":  {},
	}
)

// Report gathers everything a run has to say.
type Report struct {
	Book       string
	Output     string
	Structural []error
	Results    []verify.Result
	Pages      []render.Page
}

// Failed reports whether the run should exit with a failure status.
func (r *Report) Failed() bool {
	if len(r.Structural) > 0 {
		return true
	}
	for _, res := range r.Results {
		if res.Failed() {
			return true
		}
	}
	return false
}

// Encode renders r.
func Encode(r *Report) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("book: %s", encodeValue(r.Book)))
	if r.Output != "" {
		parts = append(parts, fmt.Sprintf("output: %s", encodeValue(r.Output)))
	}

	var errRows [][]string
	for _, err := range r.Structural {
		var se *model.StructuralError
		if errors.As(err, &se) {
			errRows = append(errRows, []string{
				se.Unit,
				strconv.Itoa(se.Line),
				strconv.Itoa(se.Offset),
				se.Err.Error(),
			})
			continue
		}
		errRows = append(errRows, []string{"", "", "", err.Error()})
	}
	parts = append(parts, formatTabular("errors", []string{"unit", "line", "offset", "error"}, errRows))

	parts = append(parts, formatFailures(r.Results))

	var resultRows [][]string
	for _, res := range r.Results {
		resultRows = append(resultRows, []string{res.Snippet.ID, string(res.Status)})
	}
	parts = append(parts, formatTabular("results", []string{"snippet", "status"}, resultRows))

	var pageRows [][]string
	for _, p := range r.Pages {
		if p.Err != nil {
			pageRows = append(pageRows, []string{p.Name, p.Err.Error()})
		}
	}
	if len(pageRows) > 0 {
		parts = append(parts, formatTabular("degraded", []string{"page", "error"}, pageRows))
	}

	s := verify.Summarize(r.Results)
	parts = append(parts, formatTabular("summary", []string{"snippets", "passed", "failed", "skipped", "errors"}, [][]string{{
		strconv.Itoa(s.Total),
		strconv.Itoa(s.Passed),
		strconv.Itoa(s.Failed),
		strconv.Itoa(s.Skipped),
		strconv.Itoa(len(r.Structural)),
	}}))

	return strings.Join(parts, "\n")
}

// formatFailures lists failed snippets. Each mismatched stream gets its own
// expected/actual row so stdout and stderr are reported independently.
func formatFailures(results []verify.Result) string {
	var failed []verify.Result
	for _, res := range results {
		if res.Failed() {
			failed = append(failed, res)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "failures[%d]:", len(failed))
	for _, res := range failed {
		sn := res.Snippet
		fmt.Fprintf(&b, "\n  - snippet: %s", encodeValue(sn.ID))
		fmt.Fprintf(&b, "\n    at: %s", encodeValue(fmt.Sprintf("%s:%d", sn.Unit, sn.Line)))
		fmt.Fprintf(&b, "\n    status: %s", res.Status)
		if res.Err != nil {
			fmt.Fprintf(&b, "\n    error: %s", encodeValue(res.Err.Error()))
		}
		if res.StdoutDiffers() {
			fmt.Fprintf(&b, "\n    stdout{expected,actual}:\n      %s,%s", quote(sn.Oracle.Stdout), quote(res.Actual.Stdout))
		}
		if res.StderrDiffers() {
			fmt.Fprintf(&b, "\n    stderr{expected,actual}:\n      %s,%s", quote(sn.Oracle.Stderr), quote(res.Actual.Stderr))
		}
	}
	return b.String()
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		encoded := make([]string, len(row))
		for i, cell := range row {
			encoded[i] = encodeValue(cell)
		}
		fmt.Fprintf(&b, "\n  %s", strings.Join(encoded, ","))
	}
	return b.String()
}

func encodeValue(value string) string {
	if value == "" {
		return `""`
	}

	if value != strings.TrimSpace(value) {
		return quote(value)
	}

	if strings.ContainsAny(value, "\n\r\t") {
		return quote(value)
	}

	if _, ok := keywords[strings.ToLower(value)]; ok {
		return quote(value)
	}

	if looksNumeric.MatchString(value) {
		return value
	}

	if needsQuoting.MatchString(value) {
		return quote(value)
	}

	if strings.HasPrefix(value, "-") {
		return quote(value)
	}

	return value
}

func quote(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\r", `\r`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
