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
	"reflect"
	"testing"

	"github.com/pgEdge/pgedge-nl2sql-server/internal/database"
)

func wideCatalog() *database.Catalog {
	table := func(name string, fks []database.ForeignKey, cols ...string) database.Table {
		t := database.Table{Schema: "public", Name: name, Kind: "BASE TABLE", ForeignKeys: fks}
		for _, c := range cols {
			t.Columns = append(t.Columns, database.Column{Name: c, Type: "text"})
		}
		return t
	}
	ref := func(col, target string) []database.ForeignKey {
		return []database.ForeignKey{{Column: col, RefSchema: "public", RefTable: target, RefColumn: col}}
	}

	return &database.Catalog{Tables: []database.Table{
		table("audit_log", nil, "log_id", "message"),
		table("categories", nil, "category_id", "label"),
		table("invoices", ref("order_id", "orders"), "invoice_id", "order_id", "due_date"),
		table("orders", ref("user_id", "users"), "order_id", "user_id", "total_amount"),
		table("products", ref("category_id", "categories"), "product_id", "title", "price", "category_id"),
		table("users", nil, "user_id", "first_name", "last_name"),
	}}
}

func tableNames(c *database.Catalog) []string {
	names := make([]string, 0, len(c.Tables))
	for _, t := range c.Tables {
		names = append(names, t.Name)
	}
	return names
}

func TestSelectTables(t *testing.T) {
	tests := []struct {
		name     string
		question string
		limit    int
		want     []string
	}{
		{
			name:     "no limit",
			question: "total spent per customer",
			limit:    0,
			want:     []string{"audit_log", "categories", "invoices", "orders", "products", "users"},
		},
		{
			name:     "within limit",
			question: "anything",
			limit:    10,
			want:     []string{"audit_log", "categories", "invoices", "orders", "products", "users"},
		},
		{
			name:     "keeps foreign key target",
			question: "average price of products",
			limit:    2,
			want:     []string{"categories", "products"},
		},
		{
			name:     "ranks by relevance",
			question: "Which invoices are due per user?",
			limit:    3,
			want:     []string{"invoices", "orders", "users"},
		},
		{
			name:     "no match falls back to catalog order",
			question: "weather forecast",
			limit:    2,
			want:     []string{"audit_log", "categories"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tableNames(SelectTables(wideCatalog(), tt.question, tt.limit))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SelectTables() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectTables_NilCatalog(t *testing.T) {
	if SelectTables(nil, "question", 3) != nil {
		t.Error("expected nil catalog to pass through")
	}
}
