//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package schema turns a raw database catalog into a normalized, described
// schema that the query generator can reason about.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Schema is the normalized description of a database.
type Schema struct {
	Tables []Table `json:"tables"`
}

// Table describes one table. Columns are in database declaration order.
type Table struct {
	TableName    string   `json:"table_name"`
	Description  string   `json:"description"`
	Columns      []Column `json:"columns"`
	Relationship string   `json:"relation_ship"`
}

// Column describes one column.
type Column struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Explanation string `json:"explanation"`
}

// Validate implements inference.Validator.
func (s *Schema) Validate() error {
	if s.Tables == nil {
		return fmt.Errorf("tables is required")
	}
	for i, t := range s.Tables {
		if strings.TrimSpace(t.TableName) == "" {
			return fmt.Errorf("tables[%d].table_name is required", i)
		}
		for j, c := range t.Columns {
			if strings.TrimSpace(c.Name) == "" {
				return fmt.Errorf("tables[%d].columns[%d].name is required", i, j)
			}
		}
	}
	return nil
}

// JSON returns the schema as indented JSON.
func (s *Schema) JSON() string {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
