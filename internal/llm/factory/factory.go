//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package factory provides functions to create LLM providers from configuration.
package factory

import (
	"fmt"
	"strings"

	"github.com/pgEdge/pgedge-nl2sql-server/internal/config"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/llm"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/llm/anthropic"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/llm/ollama"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/llm/openai"
)

// Provider constants for matching configuration values.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// NewCompletionProvider creates a completion provider based on configuration.
func NewCompletionProvider(
	cfg config.LLMConfig,
	apiKeys *config.LoadedKeys,
) (llm.CompletionProvider, error) {
	if apiKeys == nil {
		apiKeys = &config.LoadedKeys{}
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		if apiKeys.OpenAI == "" {
			return nil, fmt.Errorf("OpenAI API key not configured")
		}
		clientOpts := []openai.ClientOption{}
		if cfg.BaseURL != "" {
			clientOpts = append(clientOpts, openai.WithBaseURL(cfg.BaseURL))
		}
		if cfg.TimeoutSeconds > 0 {
			clientOpts = append(clientOpts, openai.WithTimeout(cfg.TimeoutSeconds))
		}
		opts := []openai.CompletionOption{
			openai.WithCompletionClient(openai.NewClient(apiKeys.OpenAI, clientOpts...)),
		}
		if cfg.Model != "" {
			opts = append(opts, openai.WithCompletionModel(cfg.Model))
		}
		if cfg.MaxTokens > 0 {
			opts = append(opts, openai.WithMaxTokens(cfg.MaxTokens))
		}
		return openai.NewCompletionProvider(apiKeys.OpenAI, opts...), nil

	case ProviderAnthropic:
		if apiKeys.Anthropic == "" {
			return nil, fmt.Errorf("Anthropic API key not configured")
		}
		clientOpts := []anthropic.ClientOption{}
		if cfg.BaseURL != "" {
			clientOpts = append(clientOpts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		if cfg.TimeoutSeconds > 0 {
			clientOpts = append(clientOpts, anthropic.WithTimeout(cfg.TimeoutSeconds))
		}
		opts := []anthropic.CompletionOption{
			anthropic.WithCompletionClient(anthropic.NewClient(apiKeys.Anthropic, clientOpts...)),
		}
		if cfg.Model != "" {
			opts = append(opts, anthropic.WithCompletionModel(cfg.Model))
		}
		if cfg.MaxTokens > 0 {
			opts = append(opts, anthropic.WithMaxTokens(cfg.MaxTokens))
		}
		return anthropic.NewCompletionProvider(apiKeys.Anthropic, opts...), nil

	case ProviderOllama:
		clientOpts := []ollama.ClientOption{}
		if cfg.BaseURL != "" {
			clientOpts = append(clientOpts, ollama.WithBaseURL(cfg.BaseURL))
		}
		if cfg.TimeoutSeconds > 0 {
			clientOpts = append(clientOpts, ollama.WithTimeout(cfg.TimeoutSeconds))
		}
		opts := []ollama.CompletionOption{
			ollama.WithCompletionClient(ollama.NewClient(clientOpts...)),
		}
		if cfg.Model != "" {
			opts = append(opts, ollama.WithCompletionModel(cfg.Model))
		}
		if cfg.MaxTokens > 0 {
			opts = append(opts, ollama.WithMaxTokens(cfg.MaxTokens))
		}
		return ollama.NewCompletionProvider(opts...), nil

	default:
		return nil, fmt.Errorf("unknown completion provider: %s", cfg.Provider)
	}
}
