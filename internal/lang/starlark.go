package lang

import (
	"github.com/smacker/go-tree-sitter/python"

	"github.com/phobologic/litbook/internal/lexer"
)

// Starlark is close enough to Python that the Python grammar finds its
// top-level definitions.
func init() {
	Languages["starlark"] = &Language{
		Name:    "starlark",
		Aliases: []string{"star", "bzl"},
		Syntax: lexer.Syntax{
			LineComment: "#",
			Quotes: []lexer.Quote{
				{Delim: `"""`, Escapes: true, Multiline: true},
				{Delim: "'''", Escapes: true, Multiline: true},
				{Delim: `"`, Escapes: true},
				{Delim: "'", Escapes: true},
			},
			OmitOpen:     "# begin omit",
			OmitClose:    "# end omit",
			StdoutPrefix: "#>",
			StderrPrefix: "#!",
		},
		Entry: "main",
		Stub:  "\ndef main():\n    pass\n",
		lang:  python.GetLanguage(),
	}
}
