//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Catalog is the structured schema of the tables visible to a connection,
// in schema/table name order.
type Catalog struct {
	Tables []Table `json:"tables"`
}

// Table describes one table or view. Columns are in declaration order.
type Table struct {
	Schema      string       `json:"schema"`
	Name        string       `json:"name"`
	Kind        string       `json:"kind"` // "BASE TABLE" or "VIEW"
	Columns     []Column     `json:"columns"`
	PrimaryKey  []string     `json:"primary_key,omitempty"`
	ForeignKeys []ForeignKey `json:"foreign_keys,omitempty"`
}

// Column describes one column.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Default  string `json:"default,omitempty"`
}

// ForeignKey describes a single-column reference to another table.
type ForeignKey struct {
	Column    string `json:"column"`
	RefSchema string `json:"ref_schema"`
	RefTable  string `json:"ref_table"`
	RefColumn string `json:"ref_column"`
}

// QualifiedName returns the table name as it should appear in SQL. Tables
// in the public schema are left unqualified.
func (t Table) QualifiedName() string {
	if t.Schema == "" || t.Schema == "public" {
		return pgx.Identifier{t.Name}.Sanitize()
	}
	return pgx.Identifier{t.Schema, t.Name}.Sanitize()
}

// ColumnNames returns the column names in declaration order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Related returns the names of the tables this table references.
func (t Table) Related() []string {
	seen := make(map[string]bool)
	var out []string
	for _, fk := range t.ForeignKeys {
		name := fk.RefTable
		if fk.RefSchema != "" && fk.RefSchema != t.Schema {
			name = fk.RefSchema + "." + fk.RefTable
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// Render produces a DDL-style description of the catalog, one CREATE
// statement per table, for inclusion in a prompt.
func (c *Catalog) Render() string {
	var sb strings.Builder
	for i, t := range c.Tables {
		if i > 0 {
			sb.WriteString("\n")
		}
		kind := "TABLE"
		if t.Kind == "VIEW" {
			kind = "VIEW"
		}
		fmt.Fprintf(&sb, "CREATE %s %s (\n", kind, t.QualifiedName())

		lines := make([]string, 0, len(t.Columns)+len(t.ForeignKeys)+1)
		for _, col := range t.Columns {
			line := "\t" + pgx.Identifier{col.Name}.Sanitize() + " " + col.Type
			if !col.Nullable {
				line += " NOT NULL"
			}
			if col.Default != "" {
				line += " DEFAULT " + col.Default
			}
			lines = append(lines, line)
		}
		if len(t.PrimaryKey) > 0 {
			lines = append(lines, "\tPRIMARY KEY ("+joinIdentifiers(t.PrimaryKey)+")")
		}
		for _, fk := range t.ForeignKeys {
			ref := Table{Schema: fk.RefSchema, Name: fk.RefTable}
			lines = append(lines, fmt.Sprintf("\tFOREIGN KEY (%s) REFERENCES %s (%s)",
				pgx.Identifier{fk.Column}.Sanitize(),
				ref.QualifiedName(),
				pgx.Identifier{fk.RefColumn}.Sanitize()))
		}

		sb.WriteString(strings.Join(lines, ",\n"))
		sb.WriteString("\n);\n")
	}
	return sb.String()
}

func joinIdentifiers(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = pgx.Identifier{n}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}

const tablesQuery = `
SELECT table_schema, table_name, table_type
FROM information_schema.tables
WHERE table_type IN ('BASE TABLE', 'VIEW')
  AND table_schema IN (%s)
ORDER BY table_schema, table_name`

const columnsQuery = `
SELECT table_schema, table_name, column_name, data_type, is_nullable, column_default
FROM information_schema.columns
WHERE table_schema IN (%s)
ORDER BY table_schema, table_name, ordinal_position`

// The key queries read pg_constraint rather than information_schema, whose
// constraint views hide tables the current role does not own. Multi-column
// keys are paired position by position through conkey/confkey.
const primaryKeysQuery = `
SELECT n.nspname, c.relname, a.attname
FROM pg_catalog.pg_constraint con
JOIN pg_catalog.pg_class c ON c.oid = con.conrelid
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
CROSS JOIN LATERAL unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord)
JOIN pg_catalog.pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
WHERE con.contype = 'p'
  AND n.nspname IN (%s)
ORDER BY n.nspname, c.relname, k.ord`

const foreignKeysQuery = `
SELECT n.nspname, c.relname, a.attname,
       fn.nspname, fc.relname, fa.attname
FROM pg_catalog.pg_constraint con
JOIN pg_catalog.pg_class c ON c.oid = con.conrelid
JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
JOIN pg_catalog.pg_class fc ON fc.oid = con.confrelid
JOIN pg_catalog.pg_namespace fn ON fn.oid = fc.relnamespace
CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(attnum, fattnum, ord)
JOIN pg_catalog.pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
JOIN pg_catalog.pg_attribute fa ON fa.attrelid = con.confrelid AND fa.attnum = k.fattnum
WHERE con.contype = 'f'
  AND n.nspname IN (%s)
ORDER BY n.nspname, c.relname, con.conname, k.ord`

// schemaFilter returns the placeholder list and arguments for an IN clause
// over the given schemas.
func schemaFilter(schemas []string) (string, []interface{}) {
	placeholders := make([]string, len(schemas))
	args := make([]interface{}, len(schemas))
	for i, s := range schemas {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = s
	}
	return strings.Join(placeholders, ", "), args
}

// readCatalog runs the catalog queries on db.
func readCatalog(ctx context.Context, db *sql.DB, schemas []string) (*Catalog, error) {
	in, args := schemaFilter(schemas)

	catalog := &Catalog{}
	index := make(map[string]int)
	key := func(schema, table string) string { return schema + "." + table }

	rows, err := db.QueryContext(ctx, fmt.Sprintf(tablesQuery, in), args...)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.Schema, &t.Name, &t.Kind); err != nil {
			_ = rows.Close()
			return nil, err
		}
		index[key(t.Schema, t.Name)] = len(catalog.Tables)
		catalog.Tables = append(catalog.Tables, t)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	if len(catalog.Tables) == 0 {
		return catalog, nil
	}

	rows, err = db.QueryContext(ctx, fmt.Sprintf(columnsQuery, in), args...)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var schema, table, nullable string
		var col Column
		var def sql.NullString
		if err := rows.Scan(&schema, &table, &col.Name, &col.Type, &nullable, &def); err != nil {
			_ = rows.Close()
			return nil, err
		}
		i, ok := index[key(schema, table)]
		if !ok {
			continue
		}
		col.Nullable = nullable == "YES"
		col.Default = def.String
		catalog.Tables[i].Columns = append(catalog.Tables[i].Columns, col)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = db.QueryContext(ctx, fmt.Sprintf(primaryKeysQuery, in), args...)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var schema, table, column string
		if err := rows.Scan(&schema, &table, &column); err != nil {
			_ = rows.Close()
			return nil, err
		}
		if i, ok := index[key(schema, table)]; ok {
			catalog.Tables[i].PrimaryKey = append(catalog.Tables[i].PrimaryKey, column)
		}
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = db.QueryContext(ctx, fmt.Sprintf(foreignKeysQuery, in), args...)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var schema, table string
		var fk ForeignKey
		if err := rows.Scan(&schema, &table, &fk.Column,
			&fk.RefSchema, &fk.RefTable, &fk.RefColumn); err != nil {
			_ = rows.Close()
			return nil, err
		}
		if i, ok := index[key(schema, table)]; ok {
			catalog.Tables[i].ForeignKeys = append(catalog.Tables[i].ForeignKeys, fk)
		}
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	return catalog, nil
}

// closeRows closes rows and returns any iteration error.
func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	return rows.Close()
}
