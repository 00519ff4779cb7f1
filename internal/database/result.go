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
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"unicode/utf8"
)

// ResultSet holds the rows returned by a statement. Columns and rows keep
// the order the database returned them in.
type ResultSet struct {
	Columns   []string `json:"columns"`
	Rows      []Row    `json:"rows"`
	Truncated bool     `json:"truncated"`
}

// Field is one column value in a row.
type Field struct {
	Name  string
	Value interface{}
}

// Row is an ordered record. It encodes as a JSON object whose keys follow
// the column order.
type Row []Field

// MarshalJSON encodes the row as an object with keys in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(encodeValue(f.Value))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// scanResult reads at most maxRows rows. A maxRows of zero means no limit.
func scanResult(rows *sql.Rows, maxRows int) (*ResultSet, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &ResultSet{
		Columns: columns,
		Rows:    []Row{},
	}

	for rows.Next() {
		if maxRows > 0 && len(result.Rows) >= maxRows {
			result.Truncated = true
			break
		}

		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(Row, len(columns))
		for i, name := range columns {
			row[i] = Field{Name: name, Value: normalizeValue(values[i])}
		}
		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// normalizeValue turns textual byte slices into strings so they encode as
// text rather than base64, and non-finite floats into PostgreSQL's text
// spelling since JSON has no literal for them. Binary data is left as is.
func normalizeValue(v interface{}) interface{} {
	switch x := v.(type) {
	case []byte:
		if utf8.Valid(x) {
			return string(x)
		}
	case float64:
		if s, ok := nonFinite(x); ok {
			return s
		}
	case float32:
		if s, ok := nonFinite(float64(x)); ok {
			return s
		}
	}
	return v
}

func nonFinite(f float64) (string, bool) {
	switch {
	case math.IsNaN(f):
		return "NaN", true
	case math.IsInf(f, 1):
		return "Infinity", true
	case math.IsInf(f, -1):
		return "-Infinity", true
	}
	return "", false
}

// encodeValue encodes a single column value. Values encoding/json rejects
// fall back to their printed form so a row always encodes completely.
func encodeValue(v interface{}) []byte {
	data, err := json.Marshal(normalizeValue(v))
	if err != nil {
		data, _ = json.Marshal(fmt.Sprint(v))
	}
	return data
}
