// Package typescript emits the `show-schema typescript` artifacts: one
// .ts file per table describing its row shape, its frontmatter shape,
// and the object-reference column types Image/File/Markdown fields
// produce, plus an optional valibot runtime-validator
// sibling per table.
package typescript

import (
	"fmt"
	"strings"

	"github.com/stoewer/go-strcase"

	"github.com/agentic-research/mache/internal/schema"
)

// File is one emitted path plus its contents. FileMap returns a slice
// rather than a map so --save writes files in schema declaration order.
type File struct {
	Path     string
	Contents string
}

// storagePointerName names the rudis.ts type describing where an
// object-reference column's bytes actually live.
func storagePointerName(k schema.StorageKind) string {
	switch k.(type) {
	case schema.R2Storage:
		return "R2StoragePointer"
	case schema.AssetStorage:
		return "AssetStoragePointer"
	case schema.KvStorage:
		return "KvStoragePointer"
	case schema.InlineStorage:
		return "InlineStoragePointer"
	default:
		return "InlineStoragePointer"
	}
}

func upperCamel(name string) string {
	return strcase.UpperCamelCase(name)
}

// generateMarkdownKeepTypes emits the union-of-Keep-variants type that a
// table's markdown column resolves to, parameterizing the image variant
// on its own storage pointer.
func generateMarkdownKeepTypes(out *strings.Builder, typeName string, imageStorage schema.StorageKind) {
	fmt.Fprintf(out, "export type %sKeep =", typeName)
	keeps := []string{
		"AlertKeep",
		"FootnoteReferenceKeep",
		"LinkCardKeep",
		"CodeblockKeep",
		"HeadingKeep",
		"ImageKeep",
	}
	for _, keep := range keeps {
		if keep == "ImageKeep" {
			fmt.Fprintf(out, "\n  | rudis.%s<rudis.%s>", keep, storagePointerName(imageStorage))
		} else {
			fmt.Fprintf(out, "\n  | rudis.%s", keep)
		}
	}
	out.WriteString(";\n")
}

// generateColumnType emits the named per-field support types that an
// Image/File/Markdown field needs before it can appear as a plain column
// reference in the table/frontmatter interfaces below. Scalar fields emit
// nothing here; their TypeScript type is inlined at the call site.
func generateColumnType(out *strings.Builder, f schema.Field) {
	name := upperCamel(f.Name())
	switch field := f.(type) {
	case schema.MarkdownField:
		generateMarkdownKeepTypes(out, name, field.ImageStorage)
		fmt.Fprintf(out, "export type %sRoot = rudis.MarkdownRoot<%sKeep>;\n", name, name)
		if _, inline := field.Storage.(schema.InlineStorage); !inline {
			fmt.Fprintf(out, "export type %sDocument = rudis.MarkdownDocument<Frontmatter, %sKeep>;\n", name, name)
		}
		fmt.Fprintf(out, "export type %sColumn = rudis.MarkdownReference<rudis.%s>;\n", name, storagePointerName(field.Storage))
	case schema.FileField:
		fmt.Fprintf(out, "export type %sColumn = rudis.FileReference<rudis.%s>;\n", name, storagePointerName(field.Storage))
	case schema.ImageField:
		fmt.Fprintf(out, "export type %sColumn = rudis.ImageReference<rudis.%s>;\n", name, storagePointerName(field.Storage))
	}
}

// scalarTypeName is the bare TypeScript type for a field ignoring
// nullability and Records' table-interface special case.
func scalarTypeName(f schema.Field) string {
	switch f.(type) {
	case schema.BooleanField:
		return "boolean"
	case schema.IDField:
		return "string"
	case schema.HashField:
		return "string"
	case schema.StringField:
		return "string"
	case schema.IntegerField:
		return "number"
	case schema.RealField:
		return "number"
	case schema.DateField:
		return "Date"
	case schema.DatetimeField:
		return "Date"
	case schema.ImageField, schema.FileField, schema.MarkdownField:
		return upperCamel(f.Name()) + "Column"
	default:
		return "never"
	}
}

func generateTableTypeField(out *strings.Builder, f schema.Field) {
	fmt.Fprintf(out, "  %s: %s", f.Name(), scalarTypeName(f))
	if !f.IsRequired() {
		out.WriteString(" | null;\n")
	} else {
		out.WriteString(";\n")
	}
}

func generateTableType(out *strings.Builder, t *schema.TableSchema) {
	out.WriteString("export interface Table {\n")
	for _, f := range t.Fields {
		if _, ok := f.(schema.RecordsField); ok {
			continue
		}
		generateTableTypeField(out, f)
	}
	out.WriteString("}\n")
}

// generateFrontmatterVariant emits either the Frontmatter or the
// FrontmatterWithMarkdownColumns interface: both share the same field
// walk, differing only in whether Markdown fields are dropped
// (Frontmatter, the shape the author wrote) or kept as column references
// (FrontmatterWithMarkdownColumns, the shape the pipeline's resolved
// output carries downstream to Records children).
func generateFrontmatterVariant(out *strings.Builder, interfaceName string, t *schema.TableSchema, keepMarkdown bool) {
	fmt.Fprintf(out, "export interface %s {\n", interfaceName)
	for _, f := range t.Fields {
		switch field := f.(type) {
		case schema.MarkdownField:
			if keepMarkdown {
				generateTableTypeField(out, f)
			}
		case schema.RecordsField:
			fmt.Fprintf(out, "  %s: %s.FrontmatterWithMarkdownColumns[];\n", f.Name(), field.Table)
		default:
			generateTableTypeField(out, f)
		}
	}
	out.WriteString("}\n")
}

func generateSubTableImports(out *strings.Builder, t *schema.TableSchema) {
	for _, f := range t.Fields {
		if r, ok := f.(schema.RecordsField); ok {
			fmt.Fprintf(out, "import * as %s from \"./%s.ts\";\n", r.Table, r.Table)
		}
	}
}

// GenerateTable writes one table's complete .ts module.
func GenerateTable(out *strings.Builder, t *schema.TableSchema) {
	out.WriteString("import * as rudis from \"../rudis.ts\";\n")
	generateSubTableImports(out, t)
	for _, f := range t.Fields {
		generateColumnType(out, f)
	}
	generateTableType(out, t)
	generateFrontmatterVariant(out, "Frontmatter", t, false)
	generateFrontmatterVariant(out, "FrontmatterWithMarkdownColumns", t, true)
}

// FileMap renders every table of s under name/<table>.ts, plus
// name/<table>-valibot.ts per table when enableValibot is set.
func FileMap(s *schema.CollectionSchema, name string, enableValibot bool) []File {
	files := make([]File, 0, len(s.Tables)*2)
	for _, t := range s.Tables {
		var b strings.Builder
		GenerateTable(&b, t)
		files = append(files, File{Path: fmt.Sprintf("%s/%s.ts", name, t.Name), Contents: b.String()})
	}
	if enableValibot {
		for _, t := range s.Tables {
			var b strings.Builder
			GenerateValibot(&b, t)
			files = append(files, File{Path: fmt.Sprintf("%s/%s-valibot.ts", name, t.Name), Contents: b.String()})
		}
	}
	return files
}
