//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package database provides short-lived PostgreSQL access for the query
// pipeline: connection checks, catalog discovery and statement execution.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver

	"github.com/pgEdge/pgedge-nl2sql-server/internal/config"
)

// DefaultTimeout bounds a single database call when none is configured.
const DefaultTimeout = 30 * time.Second

// Opener opens a database handle for a connection string.
type Opener func(ctx context.Context, connStr string) (*sql.DB, error)

// OpenPgx opens a handle using the pgx driver.
func OpenPgx(_ context.Context, connStr string) (*sql.DB, error) {
	return sql.Open("pgx", connStr)
}

// GatewayConfig configures a Gateway.
type GatewayConfig struct {
	Opener   Opener        // Nil means OpenPgx
	Timeout  time.Duration // Zero means DefaultTimeout
	ReadOnly bool          // Run statements in a read-only transaction
	MaxRows  int           // Zero means no limit
	Logger   *slog.Logger
}

// Gateway runs database operations against connection parameters supplied
// per call. Each call opens its own connection and closes it before
// returning; nothing is pooled across calls.
type Gateway struct {
	open     Opener
	timeout  time.Duration
	readOnly bool
	maxRows  int
	logger   *slog.Logger
}

// NewGateway creates a new database gateway.
func NewGateway(cfg GatewayConfig) *Gateway {
	open := cfg.Opener
	if open == nil {
		open = OpenPgx
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		open:     open,
		timeout:  timeout,
		readOnly: cfg.ReadOnly,
		maxRows:  cfg.MaxRows,
		logger:   logger,
	}
}

// connect opens a single-connection handle and verifies it.
func (g *Gateway) connect(ctx context.Context, params config.DatabaseConfig) (*sql.DB, error) {
	db, err := g.open(ctx, buildConnectionString(params))
	if err != nil {
		return nil, newConnectionError(err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, newConnectionError(err)
	}
	return db, nil
}

// Ping opens a connection, verifies it and closes it. Failures are
// returned as *ConnectionError.
func (g *Gateway) Ping(ctx context.Context, params config.DatabaseConfig) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	db, err := g.connect(ctx, params)
	if err != nil {
		g.logger.Debug("connection check failed",
			"target", describe(params), "error", err)
		return err
	}
	_ = db.Close()
	return nil
}

// FetchCatalog reads the tables, columns and keys of the given schemas.
// Connection failures are returned as *ConnectionError, query failures as
// *CatalogError.
func (g *Gateway) FetchCatalog(
	ctx context.Context,
	params config.DatabaseConfig,
	schemas []string,
) (*Catalog, error) {
	if len(schemas) == 0 {
		schemas = []string{config.DefaultSchema}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	db, err := g.connect(ctx, params)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	catalog, err := readCatalog(ctx, db, schemas)
	if err != nil {
		return nil, newCatalogError(schemas, err)
	}

	g.logger.Debug("catalog fetched",
		"target", describe(params), "tables", len(catalog.Tables))
	return catalog, nil
}

// Execute runs query verbatim and returns its rows. When the gateway is
// read-only the statement runs in a read-only transaction that is rolled
// back afterwards.
func (g *Gateway) Execute(
	ctx context.Context,
	params config.DatabaseConfig,
	query string,
) (*ResultSet, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	db, err := g.connect(ctx, params)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: g.readOnly})
	if err != nil {
		return nil, newConnectionError(err)
	}

	start := time.Now()
	result, err := g.run(ctx, tx, query)
	if err != nil {
		_ = tx.Rollback()
		return nil, newStatementError(query, err)
	}

	if g.readOnly {
		err = tx.Rollback()
	} else {
		err = tx.Commit()
	}
	if err != nil {
		return nil, newStatementError(query, fmt.Errorf("failed to end transaction: %w", err))
	}

	g.logger.Debug("statement executed",
		"target", describe(params),
		"rows", len(result.Rows),
		"truncated", result.Truncated,
		"duration", time.Since(start),
	)
	return result, nil
}

func (g *Gateway) run(ctx context.Context, tx *sql.Tx, query string) (*ResultSet, error) {
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanResult(rows, g.maxRows)
}
