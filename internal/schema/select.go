//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package schema

import (
	"strings"

	"github.com/pgEdge/pgedge-nl2sql-server/internal/bm25"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/database"
)

// SelectTables keeps the limit tables most relevant to question. Tables
// referenced by a foreign key follow the referencing table in priority so
// that join targets survive. The result keeps catalog order. A limit of
// zero or less, or a catalog within the limit, is returned unchanged.
func SelectTables(catalog *database.Catalog, question string, limit int) *database.Catalog {
	if catalog == nil || limit <= 0 || len(catalog.Tables) <= limit {
		return catalog
	}

	byKey := make(map[string]int, len(catalog.Tables))
	docs := make([]bm25.Document, len(catalog.Tables))
	for i, t := range catalog.Tables {
		key := tableKey(t.Schema, t.Name)
		byKey[key] = i
		docs[i] = bm25.Document{ID: key, Text: tableText(t)}
	}

	keep := make(map[int]bool, limit)
	add := func(i int) {
		if len(keep) < limit {
			keep[i] = true
		}
	}

	for _, res := range bm25.NewRanker(docs).Rank(question) {
		if len(keep) >= limit {
			break
		}
		i := byKey[res.ID]
		add(i)
		for _, fk := range catalog.Tables[i].ForeignKeys {
			if j, ok := byKey[tableKey(fk.RefSchema, fk.RefTable)]; ok {
				add(j)
			}
		}
	}

	selected := &database.Catalog{Tables: make([]database.Table, 0, limit)}
	for i, t := range catalog.Tables {
		if keep[i] {
			selected.Tables = append(selected.Tables, t)
		}
	}
	return selected
}

func tableKey(schemaName, table string) string {
	return schemaName + "." + table
}

// tableText is the searchable text of a table: its name, its column names
// and the tables it references.
func tableText(t database.Table) string {
	parts := make([]string, 0, 1+len(t.Columns)+len(t.ForeignKeys))
	parts = append(parts, t.Name)
	for _, c := range t.Columns {
		parts = append(parts, c.Name)
	}
	for _, fk := range t.ForeignKeys {
		parts = append(parts, fk.RefTable)
	}
	return strings.Join(parts, " ")
}
