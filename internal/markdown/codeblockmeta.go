package markdown

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// CodeblockMeta is a fenced code block's info string split into its
// language token and an attribute bag"), e.g.
//
//	```go {title="main.go", lines=true}
type CodeblockMeta struct {
	Lang  string
	Attrs map[string]string
}

// parseCodeblockMeta splits an info string into language + `{...}` attrs
// and parses the attrs with HCL's attribute-bag syntax, which is a closer
// grammar match than a bespoke key=value splitter (commas, quoted
// strings, bare booleans).
func parseCodeblockMeta(info string) CodeblockMeta {
	info = strings.TrimSpace(info)
	brace := strings.IndexByte(info, '{')
	if brace < 0 {
		return CodeblockMeta{Lang: info, Attrs: map[string]string{}}
	}
	lang := strings.TrimSpace(info[:brace])
	attrs, err := parseAttrBag(info[brace:])
	if err != nil {
		return CodeblockMeta{Lang: lang, Attrs: map[string]string{}}
	}
	return CodeblockMeta{Lang: lang, Attrs: attrs}
}

func parseAttrBag(bag string) (map[string]string, error) {
	bag = strings.TrimPrefix(bag, "{")
	bag = strings.TrimSuffix(bag, "}")
	bag = strings.ReplaceAll(bag, ",", "\n")

	src := []byte("meta {\n" + bag + "\n}\n")
	file, diags := hclsyntax.ParseConfig(src, "codeblock-meta.hcl", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diags
	}

	content, _, diags := file.Body.PartialContent(&hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{{Type: "meta"}},
	})
	if diags.HasErrors() || len(content.Blocks) == 0 {
		return nil, fmt.Errorf("codeblock meta: no attributes found")
	}

	attrs, diags := content.Blocks[0].Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	out := make(map[string]string, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			continue
		}
		switch {
		case val.Type().FriendlyName() == "string":
			out[name] = val.AsString()
		default:
			out[name] = val.GoString()
		}
	}
	return out, nil
}
