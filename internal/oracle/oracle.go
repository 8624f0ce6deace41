// Package oracle derives a snippet's expected output from its annotation lines.
package oracle

import (
	"strings"

	"github.com/phobologic/litbook/internal/lexer"
	"github.com/phobologic/litbook/internal/model"
)

// Extract lexes exec with syn and collects its oracle lines. Each line
// contributes its remainder after the oracle token, one separating space
// dropped and a newline re-appended, to the matching stream. Lines inside
// string literals or block comments are code, not oracle lines.
func Extract(exec string, syn *lexer.Syntax) model.Oracle {
	var stdout, stderr strings.Builder
	for _, tok := range lexer.Body(exec, syn) {
		if tok.Kind != lexer.OracleLine {
			continue
		}
		trimmed := strings.TrimLeft(tok.Payload, " \t")
		switch {
		case syn.StdoutPrefix != "" && strings.HasPrefix(trimmed, syn.StdoutPrefix):
			writeLine(&stdout, trimmed[len(syn.StdoutPrefix):])
		case syn.StderrPrefix != "" && strings.HasPrefix(trimmed, syn.StderrPrefix):
			writeLine(&stderr, trimmed[len(syn.StderrPrefix):])
		}
	}
	return model.Oracle{Stdout: stdout.String(), Stderr: stderr.String()}
}

func writeLine(b *strings.Builder, rest string) {
	b.WriteString(strings.TrimPrefix(rest, " "))
	b.WriteByte('\n')
}
