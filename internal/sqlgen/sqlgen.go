// Package sqlgen emits SQLite statement text from a compiled schema.
// Emission is a pure function of the schema: no template engine sits
// between the schema and the SQL string, building queries directly with
// strings.Builder rather than pulling in a query builder library.
package sqlgen

import (
	"fmt"
	"strings"

	"github.com/agentic-research/mache/api"
	"github.com/agentic-research/mache/internal/schema"
)

// sqlType maps a field kind to its SQLite column type.
func sqlType(k api.FieldKind) string {
	switch k {
	case api.FieldInteger, api.FieldBoolean:
		return "INTEGER"
	case api.FieldReal:
		return "REAL"
	default:
		return "TEXT"
	}
}

// DDL emits one CREATE TABLE and its indexes for every table in the
// schema, in declaration order (parent tables precede their Records
// children, so foreign keys always reference an already-created table),
// concatenated for `show-schema sql` printing.
func DDL(s *schema.CollectionSchema) string {
	return strings.Join(DDLStatements(s), "")
}

// DDLStatements is DDL split into individually executable statements, for
// the executor's "create tables" phase, which runs
// one statement per Exec call.
func DDLStatements(s *schema.CollectionSchema) []string {
	var out []string
	for _, t := range s.Tables {
		var b strings.Builder
		writeCreateTable(&b, t)
		out = append(out, b.String())
		for _, f := range t.Fields {
			if !f.RequiresIndex() || f.IsObjectField() {
				continue
			}
			out = append(out, fmt.Sprintf(
				"CREATE INDEX IF NOT EXISTS index_%s_%s ON %s(%s);\n",
				t.Name, f.Name(), t.Name, indexExpr(f),
			))
		}
	}
	return out
}

func writeCreateTable(b *strings.Builder, t *schema.TableSchema) {
	fmt.Fprintf(b, "CREATE TABLE IF NOT EXISTS %s (\n", t.Name)

	var cols []string
	for _, name := range t.InheritIDs {
		cols = append(cols, fmt.Sprintf("  %s TEXT NOT NULL", name))
	}
	for _, f := range t.Fields {
		if f.Kind() == api.FieldRecords {
			continue
		}
		col := fmt.Sprintf("  %s %s", f.Name(), sqlType(f.Kind()))
		if f.IsRequired() {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}

	pk := append(append([]string{}, t.InheritIDs...), t.IDName)
	cols = append(cols, fmt.Sprintf("  PRIMARY KEY (%s)", strings.Join(pk, ", ")))

	if t.Parent != nil {
		parentPK := strings.Join(pk[:len(pk)-1], ", ")
		cols = append(cols, fmt.Sprintf(
			"  FOREIGN KEY (%s) REFERENCES %s(%s) ON DELETE CASCADE",
			strings.Join(t.InheritIDs, ", "), t.Parent.Table, parentPK,
		))
	}

	b.WriteString(strings.Join(cols, ",\n"))
	b.WriteString("\n);\n")
}

// indexExpr is the CREATE INDEX ON expression for a field: the bare
// column for most kinds, a date()/datetime() cast for Date/Datetime so
// the index is useful for range queries over the stored TEXT column
//.
func indexExpr(f schema.Field) string {
	switch f.Kind() {
	case api.FieldDate:
		return fmt.Sprintf("date(%s)", f.Name())
	case api.FieldDatetime:
		return fmt.Sprintf("datetime(%s)", f.Name())
	default:
		return f.Name()
	}
}

// Upsert emits one INSERT ... ON CONFLICT statement per table, reading
// rows out of a single JSON parameter keyed by table name. Tables with no scalar
// columns beyond the primary key upsert with DO NOTHING since there is
// nothing to update on conflict.
func Upsert(s *schema.CollectionSchema) []string {
	out := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		out = append(out, upsertOne(t))
	}
	return out
}

func upsertOne(t *schema.TableSchema) string {
	pk := append(append([]string{}, t.InheritIDs...), t.IDName)

	var cols, dataCols []string
	cols = append(cols, pk...)
	for _, f := range t.Fields {
		if f.Kind() == api.FieldRecords || f.Kind() == api.FieldID {
			continue
		}
		cols = append(cols, f.Name())
		dataCols = append(dataCols, f.Name())
	}

	var sel []string
	for _, c := range cols {
		sel = append(sel, fmt.Sprintf("value->>'%s' AS %s", c, c))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s)\n", t.Name, strings.Join(cols, ", "))
	fmt.Fprintf(&b, "SELECT %s FROM json_each(?1->>'%s') WHERE true\n", strings.Join(sel, ", "), t.Name)
	fmt.Fprintf(&b, "ON CONFLICT(%s) DO ", strings.Join(pk, ", "))
	if len(dataCols) == 0 {
		b.WriteString("NOTHING;\n")
		return b.String()
	}
	var sets []string
	for _, c := range dataCols {
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
	}
	fmt.Fprintf(&b, "UPDATE SET %s;\n", strings.Join(sets, ", "))
	return b.String()
}

// Cleanup emits one DELETE statement per table that drops every row
// whose primary key is absent from the same JSON blob Upsert reads
//.
func Cleanup(s *schema.CollectionSchema) []string {
	out := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		out = append(out, cleanupOne(t))
	}
	return out
}

func cleanupOne(t *schema.TableSchema) string {
	pk := append(append([]string{}, t.InheritIDs...), t.IDName)

	var sel []string
	for _, c := range pk {
		sel = append(sel, fmt.Sprintf("value->>'%s' AS %s", c, c))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "DELETE FROM %s\n", t.Name)
	fmt.Fprintf(&b, "WHERE (%s) NOT IN (\n", strings.Join(pk, ", "))
	fmt.Fprintf(&b, "  SELECT %s FROM json_each(?1->>'%s')\n", strings.Join(sel, ", "), t.Name)
	b.WriteString(");\n")
	return b.String()
}

// FetchObjects emits a UNION ALL selecting {hash, pointer} out of every
// object-bearing column in every table, for the
// executor's present/appeared snapshots.
func FetchObjects(s *schema.CollectionSchema) string {
	var parts []string
	for _, t := range s.Tables {
		for _, f := range t.Fields {
			if !f.IsObjectField() {
				continue
			}
			parts = append(parts, fmt.Sprintf(
				"SELECT %s->>'hash' AS hash, %s->>'pointer' AS pointer FROM %s WHERE %s IS NOT NULL",
				f.Name(), f.Name(), t.Name, f.Name(),
			))
		}
	}
	if len(parts) == 0 {
		return "SELECT NULL AS hash, NULL AS pointer WHERE 0;\n"
	}
	return strings.Join(parts, "\nUNION ALL\n") + ";\n"
}

// DropAll emits one DROP TABLE per table, in reverse declaration order
// so children drop before the parents they reference.
func DropAll(s *schema.CollectionSchema) []string {
	out := make([]string, 0, len(s.Tables))
	for i := len(s.Tables) - 1; i >= 0; i-- {
		out = append(out, fmt.Sprintf("DROP TABLE IF EXISTS %s;\n", s.Tables[i].Name))
	}
	return out
}
