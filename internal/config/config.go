//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration loading and validation for the
// pgEdge NL2SQL Server.
package config

import "time"

// Config is the root configuration structure for the server.
type Config struct {
	Server      ServerConfig  `yaml:"server"`
	APIKeys     APIKeysConfig `yaml:"api_keys"`
	LLM         LLMConfig     `yaml:"llm"`
	Query       QueryConfig   `yaml:"query"`
	Connections []Connection  `yaml:"connections"`
}

// APIKeysConfig contains paths to files containing API keys for LLM providers.
// If not specified, keys are loaded from environment variables or default
// file locations (~/.anthropic-api-key, ~/.openai-api-key).
type APIKeysConfig struct {
	Anthropic string `yaml:"anthropic"` // Path to file containing Anthropic API key
	OpenAI    string `yaml:"openai"`    // Path to file containing OpenAI API key
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	ListenAddress string     `yaml:"listen_address"`
	Port          int        `yaml:"port"`
	TLS           TLSConfig  `yaml:"tls"`
	CORS          CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS (Cross-Origin Resource Sharing) settings.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"` // Origins to allow, or ["*"] for all
}

// TLSConfig contains TLS/HTTPS settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// LLMConfig contains settings for the inference provider used by every
// pipeline stage.
type LLMConfig struct {
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	BaseURL        string `yaml:"base_url"`        // Optional provider endpoint override
	TimeoutSeconds int    `yaml:"timeout_seconds"` // Bound on a single inference call
	MaxTokens      int    `yaml:"max_tokens"`
}

// Timeout returns the inference timeout as a duration.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// QueryConfig controls how generated SQL is executed and how results are
// handed to the explainer.
type QueryConfig struct {
	TimeoutSeconds int      `yaml:"timeout_seconds"` // Bound on a single database call
	ReadOnly       *bool    `yaml:"read_only"`       // Run statements in a read-only transaction (default: true)
	MaxRows        int      `yaml:"max_rows"`        // Rows kept from a result set
	TokenBudget    int      `yaml:"token_budget"`    // Approximate tokens of row data sent to the explainer
	Schemas        []string `yaml:"schemas"`         // Schemas included in schema discovery
	MaxTables      int      `yaml:"max_tables"`      // Tables described to the model, most relevant first (0: all)
}

// Timeout returns the database timeout as a duration.
func (c QueryConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// IsReadOnly reports whether statements run in a read-only transaction.
func (c QueryConfig) IsReadOnly() bool {
	if c.ReadOnly == nil {
		return true
	}
	return *c.ReadOnly
}

// Connection is a named set of PostgreSQL connection parameters that
// requests can refer to instead of sending credentials inline.
type Connection struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Database    DatabaseConfig `yaml:",inline"`
}

// DatabaseConfig contains PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Database string `yaml:"database" json:"database"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	SSLMode  string `yaml:"ssl_mode" json:"ssl_mode,omitempty"`

	// Certificate-based authentication
	SSLCert   string `yaml:"ssl_cert" json:"ssl_cert,omitempty"`
	SSLKey    string `yaml:"ssl_key" json:"ssl_key,omitempty"`
	SSLRootCA string `yaml:"ssl_root_ca" json:"ssl_root_ca,omitempty"`
}

// Default values applied when the configuration leaves a setting empty.
const (
	DefaultInferenceTimeout = 60
	DefaultQueryTimeout     = 30
	DefaultMaxRows          = 1000
	DefaultTokenBudget      = 4000
	DefaultDatabasePort     = 5432
	DefaultSSLMode          = "prefer"
	DefaultSchema           = "public"
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddress: "0.0.0.0",
			Port:          8080,
			TLS: TLSConfig{
				Enabled: false,
			},
		},
		LLM: LLMConfig{
			TimeoutSeconds: DefaultInferenceTimeout,
		},
		Query: QueryConfig{
			TimeoutSeconds: DefaultQueryTimeout,
			MaxRows:        DefaultMaxRows,
			TokenBudget:    DefaultTokenBudget,
		},
	}
}

// FindConnection returns the named connection profile.
func (c *Config) FindConnection(name string) (Connection, bool) {
	for _, conn := range c.Connections {
		if conn.Name == name {
			return conn, true
		}
	}
	return Connection{}, false
}
