//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package schema

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pgEdge/pgedge-nl2sql-server/internal/database"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/inference"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/llm"
)

// Invoker is the part of the inference gateway the formatter uses.
type Invoker interface {
	Invoke(ctx context.Context, inst inference.Instruction, messages []llm.Message, out inference.Validator) error
}

// Formatter asks the model to describe a raw catalog and aligns the
// answer with the catalog it came from.
type Formatter struct {
	inference Invoker
	logger    *slog.Logger
}

// NewFormatter creates a new schema formatter.
func NewFormatter(inv Invoker, logger *slog.Logger) *Formatter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Formatter{inference: inv, logger: logger}
}

// Format describes the catalog. rawText is the rendered catalog sent to the
// model. An empty catalog yields an empty schema without an inference call.
// Inference failures are returned as *inference.Error.
func (f *Formatter) Format(
	ctx context.Context,
	catalog *database.Catalog,
	rawText string,
) (*Schema, error) {
	if catalog == nil || len(catalog.Tables) == 0 {
		return &Schema{Tables: []Table{}}, nil
	}

	var described Schema
	err := f.inference.Invoke(ctx, FormatInstruction,
		[]llm.Message{llm.UserMessage("DDL string: \n\n " + rawText)},
		&described)
	if err != nil {
		return nil, err
	}

	aligned, dropped := Align(catalog, &described)
	if dropped > 0 {
		f.logger.Debug("dropped schema entries not present in the catalog",
			"count", dropped)
	}
	return aligned, nil
}

// Align rebuilds the described schema on top of the catalog: tables follow
// catalog order, columns follow declaration order, names the model omitted
// are filled from the catalog and names it invented are dropped. It returns
// the aligned schema and the number of dropped entries.
func Align(catalog *database.Catalog, described *Schema) (*Schema, int) {
	type tableDesc struct {
		table   *Table
		columns map[string]Column
	}

	byName := make(map[string]*tableDesc)
	for i := range described.Tables {
		t := &described.Tables[i]
		cols := make(map[string]Column, len(t.Columns))
		for _, c := range t.Columns {
			cols[strings.ToLower(c.Name)] = c
		}
		byName[strings.ToLower(t.TableName)] = &tableDesc{table: t, columns: cols}
	}

	out := &Schema{Tables: make([]Table, 0, len(catalog.Tables))}
	usedTables := 0
	usedColumns := 0

	for _, ct := range catalog.Tables {
		name := ct.Name
		if ct.Schema != "" && ct.Schema != "public" {
			name = ct.Schema + "." + ct.Name
		}

		desc, ok := byName[strings.ToLower(name)]
		if !ok {
			desc, ok = byName[strings.ToLower(ct.Name)]
		}

		table := Table{
			TableName:    name,
			Columns:      make([]Column, 0, len(ct.Columns)),
			Relationship: relationship(ct),
		}
		if ok {
			usedTables++
			table.Description = desc.table.Description
			if r := strings.TrimSpace(desc.table.Relationship); r != "" && len(ct.ForeignKeys) == 0 {
				table.Relationship = r
			}
		}

		for _, cc := range ct.Columns {
			col := Column{Name: cc.Name, Type: cc.Type}
			if ok {
				if dc, found := desc.columns[strings.ToLower(cc.Name)]; found {
					usedColumns++
					col.Explanation = dc.Explanation
				}
			}
			table.Columns = append(table.Columns, col)
		}

		out.Tables = append(out.Tables, table)
	}

	describedColumns := 0
	for _, t := range byName {
		describedColumns += len(t.columns)
	}
	dropped := (len(byName) - usedTables) + (describedColumns - usedColumns)
	if dropped < 0 {
		dropped = 0
	}
	return out, dropped
}

// relationship lists the tables referenced by foreign keys, or "None".
func relationship(t database.Table) string {
	related := t.Related()
	if len(related) == 0 {
		return "None"
	}
	return strings.Join(related, ", ")
}
