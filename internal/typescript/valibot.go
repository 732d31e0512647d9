package typescript

import (
	"fmt"
	"strings"

	"github.com/stoewer/go-strcase"

	"github.com/agentic-research/mache/internal/schema"
)

func lowerCamel(name string) string {
	return strcase.LowerCamelCase(name)
}

// storagePointerValidatorName is storagePointerName's camelCase sibling:
// valibot identifiers are conventionally camelCase where the matching
// TypeScript type is PascalCase.
func storagePointerValidatorName(k schema.StorageKind) string {
	switch k.(type) {
	case schema.R2Storage:
		return "r2StoragePointer"
	case schema.AssetStorage:
		return "assetStoragePointer"
	case schema.KvStorage:
		return "kvStoragePointer"
	case schema.InlineStorage:
		return "inlineStoragePointer"
	default:
		return "inlineStoragePointer"
	}
}

func generateMarkdownKeepValidators(out *strings.Builder, varName string, imageStorage schema.StorageKind) {
	fmt.Fprintf(out, "export const %sKeep = v.union([", varName)
	keeps := []string{
		"alertKeep",
		"footnoteReferenceKeep",
		"linkCardKeep",
		"codeblockKeep",
		"headingKeep",
		"imageKeep",
	}
	for i, keep := range keeps {
		if i > 0 {
			out.WriteString(",")
		}
		if keep == "imageKeep" {
			fmt.Fprintf(out, "\n  rudis.%s(rudis.%s)", keep, storagePointerValidatorName(imageStorage))
		} else {
			fmt.Fprintf(out, "\n  rudis.%s", keep)
		}
	}
	out.WriteString("\n]);\n")
}

func generateValibotColumn(out *strings.Builder, f schema.Field) {
	name := lowerCamel(f.Name())
	switch field := f.(type) {
	case schema.MarkdownField:
		generateMarkdownKeepValidators(out, name, field.ImageStorage)
		fmt.Fprintf(out, "export const %sRoot = rudis.markdownRoot(%sKeep);\n", name, name)
		if _, inline := field.Storage.(schema.InlineStorage); !inline {
			fmt.Fprintf(out, "export const %sDocument = rudis.markdownDocument(frontmatter, %sKeep);\n", name, name)
		}
		fmt.Fprintf(out, "export const %sColumn = rudis.markdownReference(rudis.%s);\n", name, storagePointerValidatorName(field.Storage))
	case schema.FileField:
		fmt.Fprintf(out, "export const %sColumn = rudis.fileReference(rudis.%s);\n", name, storagePointerValidatorName(field.Storage))
	case schema.ImageField:
		fmt.Fprintf(out, "export const %sColumn = rudis.imageReference(rudis.%s);\n", name, storagePointerValidatorName(field.Storage))
	}
}

// scalarValidatorExpr is the bare valibot expression for a field, ignoring
// the nullable() wrap optional fields get.
func scalarValidatorExpr(f schema.Field) string {
	switch f.(type) {
	case schema.BooleanField:
		return "v.boolean()"
	case schema.IDField, schema.HashField, schema.StringField:
		return "v.string()"
	case schema.IntegerField:
		return "v.pipe(v.number(), v.integer())"
	case schema.RealField:
		return "v.number()"
	case schema.DateField, schema.DatetimeField:
		return "v.date()"
	case schema.ImageField, schema.FileField, schema.MarkdownField:
		name := lowerCamel(f.Name())
		return fmt.Sprintf("v.pipe(v.string(), v.parseJson(), %sColumn)", name)
	default:
		return "v.unknown()"
	}
}

func generateValibotField(out *strings.Builder, f schema.Field) {
	expr := scalarValidatorExpr(f)
	if !f.IsRequired() {
		fmt.Fprintf(out, "  %s: v.nullable(%s),\n", f.Name(), expr)
	} else {
		fmt.Fprintf(out, "  %s: %s,\n", f.Name(), expr)
	}
}

func generateTableValidator(out *strings.Builder, t *schema.TableSchema) {
	out.WriteString("export const table = v.object({\n")
	for _, f := range t.Fields {
		if _, ok := f.(schema.RecordsField); ok {
			continue
		}
		generateValibotField(out, f)
	}
	out.WriteString("});\n")
}

// generateFrontmatterValidatorVariant mirrors generateFrontmatterVariant:
// Frontmatter (Markdown fields dropped) and frontmatterWithMarkdownColumns
// (Markdown fields validated as their resolved column shape) share the
// same field walk.
func generateFrontmatterValidatorVariant(out *strings.Builder, varName string, t *schema.TableSchema, keepMarkdown bool) {
	fmt.Fprintf(out, "export const %s = v.object({\n", varName)
	for _, f := range t.Fields {
		switch field := f.(type) {
		case schema.MarkdownField:
			if keepMarkdown {
				generateValibotField(out, f)
			}
		case schema.RecordsField:
			fmt.Fprintf(out, "  %s: v.array(%s.frontmatterWithMarkdownColumns),\n", f.Name(), field.Table)
		default:
			generateValibotField(out, f)
		}
	}
	out.WriteString("});\n")
}

func generateValibotSubTableImports(out *strings.Builder, t *schema.TableSchema) {
	for _, f := range t.Fields {
		if r, ok := f.(schema.RecordsField); ok {
			fmt.Fprintf(out, "import * as %s from \"./%s-valibot.ts\";\n", r.Table, r.Table)
		}
	}
}

// GenerateValibot writes one table's complete runtime-validator module.
func GenerateValibot(out *strings.Builder, t *schema.TableSchema) {
	out.WriteString("import * as rudis from \"../rudis-valibot.ts\";\n")
	out.WriteString("import * as v from \"valibot\";\n")
	generateValibotSubTableImports(out, t)
	for _, f := range t.Fields {
		generateValibotColumn(out, f)
	}
	generateTableValidator(out, t)
	generateFrontmatterValidatorVariant(out, "frontmatter", t, false)
	generateFrontmatterValidatorVariant(out, "frontmatterWithMarkdownColumns", t, true)
}
