//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package inference turns a completion provider into a typed call: a fixed
// instruction plus conversation goes in, a validated Go value comes out.
package inference

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/pgEdge/pgedge-nl2sql-server/internal/llm"
	"github.com/pgEdge/pgedge-nl2sql-server/internal/metrics"
)

// DefaultTimeout bounds a single inference call when none is configured.
const DefaultTimeout = 60 * time.Second

// Validator is implemented by every decoded output type. Validate reports
// output that parsed as JSON but does not satisfy the declared shape.
type Validator interface {
	Validate() error
}

// Instruction is a fixed system instruction together with the JSON shape
// the model must answer with.
type Instruction struct {
	// Name identifies the instruction in logs and metrics.
	Name string

	// System is the instruction text.
	System string

	// Shape describes the expected JSON object. It is appended to the
	// system prompt.
	Shape string
}

// systemPrompt returns the instruction text followed by the output shape.
func (i Instruction) systemPrompt() string {
	if i.Shape == "" {
		return i.System
	}
	var sb strings.Builder
	sb.WriteString(strings.TrimRight(i.System, " \n\t"))
	sb.WriteString("\n\nRespond with a single JSON object and nothing else, using exactly this shape:\n")
	sb.WriteString(i.Shape)
	return sb.String()
}

// Config configures a Gateway.
type Config struct {
	Provider  llm.CompletionProvider
	Timeout   time.Duration // Zero means DefaultTimeout
	MaxTokens int           // Zero means the provider's default
	Logger    *slog.Logger
}

// Gateway invokes instructions against a completion provider. It is safe
// for concurrent use as long as the provider is.
type Gateway struct {
	provider  llm.CompletionProvider
	timeout   time.Duration
	maxTokens int
	logger    *slog.Logger
}

// NewGateway creates a new inference gateway.
func NewGateway(cfg Config) *Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{
		provider:  cfg.Provider,
		timeout:   timeout,
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}
}

// ModelName returns the model behind the gateway.
func (g *Gateway) ModelName() string {
	return g.provider.ModelName()
}

// Invoke sends the instruction and messages to the provider and decodes the
// reply into out. Every failure is returned as *Error.
func (g *Gateway) Invoke(
	ctx context.Context,
	inst Instruction,
	messages []llm.Message,
	out Validator,
) error {
	start := time.Now()
	err := g.invoke(ctx, inst, messages, out)
	elapsed := time.Since(start)

	result := "ok"
	var ierr *Error
	if errors.As(err, &ierr) {
		result = string(ierr.Kind)
	}
	metrics.ObserveInference(inst.Name, result, elapsed)

	if err != nil {
		g.logger.Warn("inference call failed",
			"instruction", inst.Name,
			"model", g.provider.ModelName(),
			"duration", elapsed,
			"error", err,
		)
		return err
	}

	g.logger.Debug("inference call completed",
		"instruction", inst.Name,
		"duration", elapsed,
	)
	return nil
}

func (g *Gateway) invoke(
	ctx context.Context,
	inst Instruction,
	messages []llm.Message,
	out Validator,
) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: inst.systemPrompt(),
		Messages:     messages,
		MaxTokens:    g.maxTokens,
		Temperature:  0,
		JSON:         true,
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &Error{
				Kind:        KindUnavailable,
				Instruction: inst.Name,
				Message:     "inference timed out after " + g.timeout.String(),
				Err:         err,
			}
		}
		return &Error{
			Kind:        KindUnavailable,
			Instruction: inst.Name,
			Message:     "inference provider unavailable",
			Err:         err,
		}
	}

	payload, ok := ExtractJSONObject(resp.Content)
	if !ok {
		return &Error{
			Kind:        KindMalformed,
			Instruction: inst.Name,
			Message:     "reply does not contain a JSON object",
			Raw:         resp.Content,
		}
	}

	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return &Error{
			Kind:        KindMalformed,
			Instruction: inst.Name,
			Message:     "reply is not valid JSON for the declared shape",
			Raw:         resp.Content,
			Err:         err,
		}
	}

	if err := out.Validate(); err != nil {
		return &Error{
			Kind:        KindMalformed,
			Instruction: inst.Name,
			Message:     "reply does not satisfy the declared shape",
			Raw:         resp.Content,
			Err:         err,
		}
	}

	return nil
}

// StripCodeFence removes a surrounding markdown code fence, with or without
// a language tag.
func StripCodeFence(value string) string {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 {
		tag := strings.TrimSpace(trimmed[:nl])
		if !strings.ContainsAny(tag, " {") {
			trimmed = trimmed[nl+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// ExtractJSONObject returns the outermost JSON object in a model reply,
// ignoring code fences and any prose around it.
func ExtractJSONObject(content string) (string, bool) {
	s := StripCodeFence(content)
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return "", false
	}
	return s[start : end+1], true
}
