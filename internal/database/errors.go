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
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ConnectionError reports a failure to open or verify a connection. Message
// is the driver's text, unmodified.
type ConnectionError struct {
	Message  string
	SQLState string
	Err      error
}

func (e *ConnectionError) Error() string {
	return e.Message
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// StatementError reports a failure while running a statement. Message is
// the driver's text, unmodified.
type StatementError struct {
	Query    string
	Message  string
	SQLState string
	Err      error
}

func (e *StatementError) Error() string {
	return e.Message
}

func (e *StatementError) Unwrap() error {
	return e.Err
}

// CatalogError reports a failure while reading the catalog of a schema
// list. Message is the driver's text, unmodified.
type CatalogError struct {
	Schemas  []string
	Message  string
	SQLState string
	Err      error
}

func (e *CatalogError) Error() string {
	return e.Message
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

func newConnectionError(err error) *ConnectionError {
	return &ConnectionError{
		Message:  err.Error(),
		SQLState: sqlState(err),
		Err:      err,
	}
}

func newStatementError(query string, err error) *StatementError {
	return &StatementError{
		Query:    query,
		Message:  err.Error(),
		SQLState: sqlState(err),
		Err:      err,
	}
}

func newCatalogError(schemas []string, err error) *CatalogError {
	return &CatalogError{
		Schemas:  schemas,
		Message:  err.Error(),
		SQLState: sqlState(err),
		Err:      err,
	}
}

// SQLState returns the SQLSTATE code carried by any gateway error in err's
// chain, or "" when there is none.
func SQLState(err error) string {
	var ce *ConnectionError
	var se *StatementError
	var cat *CatalogError
	switch {
	case errors.As(err, &se):
		return se.SQLState
	case errors.As(err, &cat):
		return cat.SQLState
	case errors.As(err, &ce):
		return ce.SQLState
	}
	return ""
}

// sqlState extracts the SQLSTATE code from a server error, if there is one.
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
