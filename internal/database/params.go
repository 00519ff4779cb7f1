//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package database

import (
	"fmt"
	"os"
	"strings"

	"github.com/pgEdge/pgedge-nl2sql-server/internal/config"
)

// buildConnectionString constructs a PostgreSQL key/value connection string.
// Values are quoted so that passwords containing spaces or quotes survive.
func buildConnectionString(cfg config.DatabaseConfig) string {
	var parts []string

	parts = append(parts, kv("host", cfg.Host))
	if cfg.Port != 0 {
		parts = append(parts, fmt.Sprintf("port=%d", cfg.Port))
	}
	parts = append(parts, kv("dbname", cfg.Database))

	// Username: config > PGUSER > USER
	username := cfg.Username
	if username == "" {
		username = os.Getenv("PGUSER")
	}
	if username == "" {
		username = os.Getenv("USER")
	}
	if username != "" {
		parts = append(parts, kv("user", username))
	}

	if cfg.Password != "" {
		parts = append(parts, kv("password", cfg.Password))
	}

	if cfg.SSLMode != "" {
		parts = append(parts, kv("sslmode", cfg.SSLMode))
	}

	// Certificate-based authentication
	if cfg.SSLCert != "" {
		parts = append(parts, kv("sslcert", cfg.SSLCert))
	}
	if cfg.SSLKey != "" {
		parts = append(parts, kv("sslkey", cfg.SSLKey))
	}
	if cfg.SSLRootCA != "" {
		parts = append(parts, kv("sslrootcert", cfg.SSLRootCA))
	}

	return strings.Join(parts, " ")
}

// kv formats one key/value pair, quoting the value when needed.
func kv(key, value string) string {
	if value != "" && !strings.ContainsAny(value, ` '\`) {
		return key + "=" + value
	}
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value)
	return key + "='" + escaped + "'"
}

// describe returns a password-free description of the target for logs.
func describe(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("%s@%s:%d/%s", cfg.Username, cfg.Host, cfg.Port, cfg.Database)
}
