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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Environment variable names for API keys.
const (
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
)

// Default API key file paths (relative to home directory).
const (
	DefaultAnthropicKeyFile = ".anthropic-api-key"
	DefaultOpenAIKeyFile    = ".openai-api-key"
)

// LoadedKeys holds the API keys loaded for the configured provider.
type LoadedKeys struct {
	Anthropic string
	OpenAI    string
}

// keySource describes where one provider's key may be found.
type keySource struct {
	label       string
	envVar      string
	defaultFile string
	configured  func(APIKeysConfig) string
	store       func(*LoadedKeys, string)
}

// keySources lists the providers that need an API key. Ollama runs locally
// and has no entry.
var keySources = map[string]keySource{
	"anthropic": {
		label:       "Anthropic",
		envVar:      EnvAnthropicAPIKey,
		defaultFile: DefaultAnthropicKeyFile,
		configured:  func(c APIKeysConfig) string { return c.Anthropic },
		store:       func(k *LoadedKeys, key string) { k.Anthropic = key },
	},
	"openai": {
		label:       "OpenAI",
		envVar:      EnvOpenAIAPIKey,
		defaultFile: DefaultOpenAIKeyFile,
		configured:  func(c APIKeysConfig) string { return c.OpenAI },
		store:       func(k *LoadedKeys, key string) { k.OpenAI = key },
	},
}

// APIKeyLoader handles loading API keys from configured paths, environment
// variables, or default file locations.
type APIKeyLoader struct {
	config APIKeysConfig
}

// NewAPIKeyLoader creates a new API key loader with the given configuration.
func NewAPIKeyLoader(cfg APIKeysConfig) *APIKeyLoader {
	return &APIKeyLoader{config: cfg}
}

// LoadKeysForProvider loads only the API key the given inference provider
// needs. Providers without a key source get an empty LoadedKeys.
func (l *APIKeyLoader) LoadKeysForProvider(provider string) (*LoadedKeys, error) {
	keys := &LoadedKeys{}

	src, ok := keySources[strings.ToLower(provider)]
	if !ok {
		return keys, nil
	}

	key, err := l.loadKey(src)
	if err != nil {
		return nil, err
	}
	src.store(keys, key)
	return keys, nil
}

// loadKey loads an API key with the following priority:
// 1. Configured file path (if specified in config)
// 2. Environment variable
// 3. Default file location (~/.provider-api-key)
func (l *APIKeyLoader) loadKey(src keySource) (string, error) {
	if configPath := src.configured(l.config); configPath != "" {
		return readKeyFile(expandPath(configPath), src.label)
	}

	if key := strings.TrimSpace(os.Getenv(src.envVar)); key != "" {
		return key, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	path := filepath.Join(homeDir, src.defaultFile)

	key, err := readKeyFile(path, src.label)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf(
			"%s API key not found: set %s environment variable or create %s",
			src.label, src.envVar, path)
	}
	return key, err
}

// readKeyFile reads an API key from a file.
func readKeyFile(path, label string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s API key file not found: %s: %w", label, path, err)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s API key: %w", label, err)
	}

	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", fmt.Errorf("%s API key file is empty: %s", label, path)
	}

	return key, nil
}
