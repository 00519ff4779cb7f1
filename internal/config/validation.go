//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidProviders lists the inference providers the server can use.
var ValidProviders = []string{"anthropic", "openai", "ollama"}

// validSSLModes lists the libpq sslmode values.
var validSSLModes = map[string]bool{
	"disable":     true,
	"allow":       true,
	"prefer":      true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// ValidationError represents a single configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}

	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for errors and returns all validation
// errors found.
func (c *Config) Validate() error {
	var errs ValidationErrors

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateLLM()...)
	errs = append(errs, c.validateQuery()...)
	errs = append(errs, c.validateConnections()...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// validateServer validates server configuration.
func (c *Config) validateServer() ValidationErrors {
	var errs ValidationErrors

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "server.port",
			Message: "must be between 1 and 65535",
		})
	}

	if c.Server.TLS.Enabled {
		if c.Server.TLS.CertFile == "" {
			errs = append(errs, ValidationError{
				Field:   "server.tls.cert_file",
				Message: "required when TLS is enabled",
			})
		} else if _, err := os.Stat(expandPath(c.Server.TLS.CertFile)); err != nil {
			errs = append(errs, ValidationError{
				Field:   "server.tls.cert_file",
				Message: fmt.Sprintf("file not found: %s", c.Server.TLS.CertFile),
			})
		}

		if c.Server.TLS.KeyFile == "" {
			errs = append(errs, ValidationError{
				Field:   "server.tls.key_file",
				Message: "required when TLS is enabled",
			})
		} else if _, err := os.Stat(expandPath(c.Server.TLS.KeyFile)); err != nil {
			errs = append(errs, ValidationError{
				Field:   "server.tls.key_file",
				Message: fmt.Sprintf("file not found: %s", c.Server.TLS.KeyFile),
			})
		}
	}

	return errs
}

// validateLLM validates the inference provider configuration.
func (c *Config) validateLLM() ValidationErrors {
	var errs ValidationErrors

	if c.LLM.Provider == "" {
		errs = append(errs, ValidationError{
			Field:   "llm.provider",
			Message: "required",
		})
	} else {
		provider := strings.ToLower(c.LLM.Provider)
		valid := false
		for _, vp := range ValidProviders {
			if provider == vp {
				valid = true
				break
			}
		}
		if !valid {
			errs = append(errs, ValidationError{
				Field:   "llm.provider",
				Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidProviders, ", ")),
			})
		}
	}

	if c.LLM.TimeoutSeconds < 0 {
		errs = append(errs, ValidationError{
			Field:   "llm.timeout_seconds",
			Message: "must be non-negative",
		})
	}

	if c.LLM.MaxTokens < 0 {
		errs = append(errs, ValidationError{
			Field:   "llm.max_tokens",
			Message: "must be non-negative",
		})
	}

	return errs
}

// validateQuery validates the query execution settings.
func (c *Config) validateQuery() ValidationErrors {
	var errs ValidationErrors

	if c.Query.TimeoutSeconds < 0 {
		errs = append(errs, ValidationError{
			Field:   "query.timeout_seconds",
			Message: "must be non-negative",
		})
	}

	if c.Query.MaxRows < 0 {
		errs = append(errs, ValidationError{
			Field:   "query.max_rows",
			Message: "must be non-negative",
		})
	}

	if c.Query.TokenBudget < 0 {
		errs = append(errs, ValidationError{
			Field:   "query.token_budget",
			Message: "must be non-negative",
		})
	}

	if c.Query.MaxTables < 0 {
		errs = append(errs, ValidationError{
			Field:   "query.max_tables",
			Message: "must be non-negative",
		})
	}

	for i, s := range c.Query.Schemas {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("query.schemas[%d]", i),
				Message: "must not be empty",
			})
		}
	}

	return errs
}

// validateConnections validates the named connection profiles. Profiles
// are optional; requests may carry connection parameters inline.
func (c *Config) validateConnections() ValidationErrors {
	var errs ValidationErrors

	names := make(map[string]bool)
	for i, conn := range c.Connections {
		prefix := fmt.Sprintf("connections[%d]", i)

		if conn.Name == "" {
			errs = append(errs, ValidationError{
				Field:   prefix + ".name",
				Message: "required",
			})
		} else if names[conn.Name] {
			errs = append(errs, ValidationError{
				Field:   prefix + ".name",
				Message: fmt.Sprintf("duplicate connection name: %s", conn.Name),
			})
		}
		names[conn.Name] = true

		errs = append(errs, ValidateDatabase(prefix, conn.Database)...)
	}

	return errs
}

// ValidateDatabase validates a set of connection parameters. The prefix is
// used to name the offending fields.
func ValidateDatabase(prefix string, db DatabaseConfig) ValidationErrors {
	var errs ValidationErrors

	if db.Host == "" {
		errs = append(errs, ValidationError{
			Field:   prefix + ".host",
			Message: "required",
		})
	}

	if db.Database == "" {
		errs = append(errs, ValidationError{
			Field:   prefix + ".database",
			Message: "required",
		})
	}

	if db.Port < 1 || db.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   prefix + ".port",
			Message: "must be between 1 and 65535",
		})
	}

	if db.SSLMode != "" && !validSSLModes[db.SSLMode] {
		errs = append(errs, ValidationError{
			Field:   prefix + ".ssl_mode",
			Message: "must be one of: disable, allow, prefer, require, verify-ca, verify-full",
		})
	}

	return errs
}
