package lang

import (
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/phobologic/litbook/internal/lexer"
)

func init() {
	Languages["go"] = &Language{
		Name:    "go",
		Aliases: []string{"golang"},
		Syntax: lexer.Syntax{
			LineComment: "//",
			BlockOpen:   "/*",
			BlockClose:  "*/",
			Quotes: []lexer.Quote{
				{Delim: "`", Multiline: true},
				{Delim: `"`, Escapes: true},
				{Delim: "'", Escapes: true},
			},
			OmitOpen:     "// begin omit",
			OmitClose:    "// end omit",
			StdoutPrefix: "//>",
			StderrPrefix: "//!",
		},
		Entry:    "main",
		Stub:     "\nfunc main() {}\n",
		Preamble: "package main\n\n",
		lang:     golang.GetLanguage(),
	}
}
