//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Portions copyright (c) 2025, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

const validConfig = `
server:
  listen_address: 127.0.0.1
  port: 9090
llm:
  provider: openai
  model: gpt-4o
  timeout_seconds: 20
query:
  timeout_seconds: 5
  max_rows: 50
  max_tables: 25
  read_only: false
  schemas: [public, sales]
connections:
  - name: online_store
    description: Demo store
    host: localhost
    port: 6432
    database: online_store
    username: admin
    password: password
`

func TestLoad_ValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("failed to load valid config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.Model != "gpt-4o" {
		t.Errorf("unexpected llm config: %+v", cfg.LLM)
	}
	if cfg.LLM.Timeout().Seconds() != 20 {
		t.Errorf("expected 20s inference timeout, got %s", cfg.LLM.Timeout())
	}
	if cfg.Query.MaxRows != 50 {
		t.Errorf("expected max_rows 50, got %d", cfg.Query.MaxRows)
	}
	if cfg.Query.MaxTables != 25 {
		t.Errorf("expected max_tables 25, got %d", cfg.Query.MaxTables)
	}
	if cfg.Query.IsReadOnly() {
		t.Error("expected read_only to be false")
	}
	if len(cfg.Query.Schemas) != 2 || cfg.Query.Schemas[1] != "sales" {
		t.Errorf("unexpected schemas: %v", cfg.Query.Schemas)
	}

	if len(cfg.Connections) != 1 {
		t.Fatalf("expected 1 connection, got %d", len(cfg.Connections))
	}
	conn := cfg.Connections[0]
	if conn.Name != "online_store" {
		t.Errorf("expected connection name 'online_store', got '%s'", conn.Name)
	}
	if conn.Database.Port != 6432 {
		t.Errorf("expected port 6432, got %d", conn.Database.Port)
	}
	if conn.Database.Username != "admin" {
		t.Errorf("expected username admin, got %s", conn.Database.Username)
	}
	if conn.Database.SSLMode != DefaultSSLMode {
		t.Errorf("expected default ssl_mode, got %s", conn.Database.SSLMode)
	}
}

func TestLoad_MinimalConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, "llm:\n  provider: ollama\n"))
	if err != nil {
		t.Fatalf("failed to load minimal config: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.LLM.TimeoutSeconds != DefaultInferenceTimeout {
		t.Errorf("expected default inference timeout, got %d", cfg.LLM.TimeoutSeconds)
	}
	if cfg.Query.TimeoutSeconds != DefaultQueryTimeout {
		t.Errorf("expected default query timeout, got %d", cfg.Query.TimeoutSeconds)
	}
	if cfg.Query.MaxRows != DefaultMaxRows {
		t.Errorf("expected default max_rows, got %d", cfg.Query.MaxRows)
	}
	if !cfg.Query.IsReadOnly() {
		t.Error("expected read_only to default to true")
	}
	if len(cfg.Query.Schemas) != 1 || cfg.Query.Schemas[0] != DefaultSchema {
		t.Errorf("expected default schema list, got %v", cfg.Query.Schemas)
	}
	if len(cfg.Connections) != 0 {
		t.Errorf("expected no connections, got %d", len(cfg.Connections))
	}
}

func TestLoad_InvalidConfigs(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		errContains string
	}{
		{
			name:        "missing provider",
			content:     "server:\n  port: 8080\n",
			errContains: "llm.provider: required",
		},
		{
			name:        "unknown provider",
			content:     "llm:\n  provider: voyage\n",
			errContains: "llm.provider: must be one of",
		},
		{
			name:        "bad port",
			content:     "server:\n  port: 70000\nllm:\n  provider: ollama\n",
			errContains: "server.port",
		},
		{
			name: "duplicate connection",
			content: `llm:
  provider: ollama
connections:
  - name: a
    host: h
    database: d
  - name: a
    host: h
    database: d
`,
			errContains: "duplicate connection name: a",
		},
		{
			name: "connection without host",
			content: `llm:
  provider: ollama
connections:
  - name: a
    database: d
`,
			errContains: "connections[0].host: required",
		},
		{
			name: "bad ssl mode",
			content: `llm:
  provider: ollama
connections:
  - name: a
    host: h
    database: d
    ssl_mode: sometimes
`,
			errContains: "connections[0].ssl_mode",
		},
		{
			name:        "negative max rows",
			content:     "llm:\n  provider: ollama\nquery:\n  max_rows: -1\n",
			errContains: "query.max_rows",
		},
		{
			name:        "negative max tables",
			content:     "llm:\n  provider: ollama\nquery:\n  max_tables: -3\n",
			errContains: "query.max_tables",
		},
		{
			name:        "malformed yaml",
			content:     "llm: [unterminated\n",
			errContains: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("expected error containing %q, got %q", tt.errContains, err.Error())
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 0
	cfg.Connections = []Connection{{Name: "x"}}

	err := cfg.Validate()
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}

	// server.port, llm.provider, host, database, port
	if len(verrs) != 5 {
		t.Errorf("expected 5 validation errors, got %d: %v", len(verrs), verrs)
	}
}

func TestFindConnection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Connections = []Connection{
		{Name: "a", Database: DatabaseConfig{Host: "ha"}},
		{Name: "b", Database: DatabaseConfig{Host: "hb"}},
	}

	conn, ok := cfg.FindConnection("b")
	if !ok {
		t.Fatal("expected connection b to be found")
	}
	if conn.Database.Host != "hb" {
		t.Errorf("expected host hb, got %s", conn.Database.Host)
	}

	if _, ok := cfg.FindConnection("c"); ok {
		t.Error("expected connection c to be missing")
	}
}

func TestApplyDatabaseDefaults(t *testing.T) {
	db := DatabaseConfig{Host: "localhost", Database: "d"}
	ApplyDatabaseDefaults(&db)

	if db.Port != DefaultDatabasePort {
		t.Errorf("expected port %d, got %d", DefaultDatabasePort, db.Port)
	}
	if db.SSLMode != DefaultSSLMode {
		t.Errorf("expected ssl_mode %s, got %s", DefaultSSLMode, db.SSLMode)
	}

	db = DatabaseConfig{Port: 6432, SSLMode: "disable"}
	ApplyDatabaseDefaults(&db)
	if db.Port != 6432 || db.SSLMode != "disable" {
		t.Errorf("explicit values overwritten: %+v", db)
	}
}
