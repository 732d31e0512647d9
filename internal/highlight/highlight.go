// Package highlight defines the boundary to the code-syntax highlighter,
// treated as an external collaborator. The core pipeline only needs to
// know whether a declared language is one it can ask a highlighter
// about; actual tokenization is out of scope.
package highlight

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/hcl"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/sql"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/smacker/go-tree-sitter/yaml"
)

// Highlighter turns a codeblock's language + source into rendered child
// nodes. The default implementation here only validates the language
// name; a real tokenizer is a collaborator the executor's caller wires in.
type Highlighter interface {
	// Highlight returns the rendered text of a <pre><code> body; the
	// resolver stores it as a Text node, which is HTML-escaped when the
	// tree is compressed. Default returns the source verbatim.
	Highlight(lang, source string) (string, error)
	// KnownLanguage reports whether lang has a registered grammar.
	KnownLanguage(lang string) bool
}

var languages = map[string]*sitter.Language{
	"go":         golang.GetLanguage(),
	"golang":     golang.GetLanguage(),
	"javascript": javascript.GetLanguage(),
	"js":         javascript.GetLanguage(),
	"typescript": typescript.GetLanguage(),
	"ts":         typescript.GetLanguage(),
	"python":     python.GetLanguage(),
	"py":         python.GetLanguage(),
	"rust":       rust.GetLanguage(),
	"rs":         rust.GetLanguage(),
	"sql":        sql.GetLanguage(),
	"hcl":        hcl.GetLanguage(),
	"yaml":       yaml.GetLanguage(),
	"yml":        yaml.GetLanguage(),
}

// Default is a pass-through highlighter: it validates the language
// against the registered tree-sitter grammars but performs no
// tokenization, returning the source unhighlighted. A real syntax
// highlighter is an external collaborator.
type Default struct{}

func (Default) KnownLanguage(lang string) bool {
	_, ok := languages[lang]
	return ok
}

func (Default) Highlight(lang, source string) (string, error) {
	return source, nil
}
