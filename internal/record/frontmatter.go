package record

import (
	"bytes"
	"fmt"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/agentic-research/mache/api"
	"github.com/agentic-research/mache/internal/cmserr"
)

// extractFrontmatter decodes one document's bytes per its declared
// syntax. For Markdown, the body text is returned
// separately so the caller can insert it under the configured body
// column (step 2).
func extractFrontmatter(ctx cmserr.Context, syntax api.Syntax, raw []byte) (data map[string]any, body string, err error) {
	switch syntax.Type {
	case api.SyntaxYAML:
		var m map[string]any
		if err := yaml.Unmarshal(raw, &m); err != nil {
			return nil, "", &cmserr.ParseYaml{Ctx: ctx, Err: err}
		}
		return m, "", nil

	case api.SyntaxTOML:
		var m map[string]any
		if err := toml.Unmarshal(raw, &m); err != nil {
			return nil, "", &cmserr.ParseToml{Ctx: ctx, Err: err}
		}
		return m, "", nil

	case api.SyntaxMarkdown:
		return extractMarkdownFrontmatter(ctx, raw)

	default:
		return nil, "", fmt.Errorf("record: unknown syntax %q", syntax.Type)
	}
}

var (
	yamlDelim = []byte("---")
	tomlDelim = []byte("+++")
)

// extractMarkdownFrontmatter splits a document into its `---`/`+++`
// delimited frontmatter and body.
func extractMarkdownFrontmatter(ctx cmserr.Context, raw []byte) (map[string]any, string, error) {
	lines := bytes.Split(raw, []byte("\n"))
	if len(lines) == 0 {
		return map[string]any{}, "", nil
	}

	first := bytes.TrimRight(lines[0], "\r")
	var delim []byte
	switch {
	case bytes.Equal(first, yamlDelim):
		delim = yamlDelim
	case bytes.Equal(first, tomlDelim):
		delim = tomlDelim
	default:
		return map[string]any{}, string(raw), nil
	}

	closeIdx := -1
	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimRight(lines[i], "\r"), delim) {
			closeIdx = i
			break
		}
	}
	if closeIdx < 0 {
		return nil, "", &cmserr.UnclosedFrontmatter{Ctx: ctx}
	}

	fmBytes := bytes.Join(lines[1:closeIdx], []byte("\n"))
	bodyBytes := bytes.Join(lines[closeIdx+1:], []byte("\n"))

	var data map[string]any
	var err error
	if bytes.Equal(delim, yamlDelim) {
		if yerr := yaml.Unmarshal(fmBytes, &data); yerr != nil {
			return nil, "", &cmserr.ParseYaml{Ctx: ctx, Err: yerr}
		}
	} else {
		if terr := toml.Unmarshal(fmBytes, &data); terr != nil {
			return nil, "", &cmserr.ParseToml{Ctx: ctx, Err: terr}
		}
	}
	if data == nil {
		data = map[string]any{}
	}
	_ = err
	return data, string(bodyBytes), nil
}
