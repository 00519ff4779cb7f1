//-------------------------------------------------------------------------
//
// pgEdge NL2SQL Server
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package llmtest provides a scripted completion provider for tests.
package llmtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pgEdge/pgedge-nl2sql-server/internal/llm"
)

// MockCompletionProvider is a llm.CompletionProvider for tests. If
// CompleteFunc is set it handles every call; otherwise replies are taken
// from the routes registered with On.
type MockCompletionProvider struct {
	CompleteFunc func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
	ModelNameVal string

	mu       sync.Mutex
	routes   []*route
	requests []llm.CompletionRequest
}

type route struct {
	match   string
	replies []Reply
	next    int
}

// Reply is one scripted provider reply.
type Reply struct {
	Content string
	Err     error
}

// Text returns a successful reply.
func Text(content string) Reply {
	return Reply{Content: content}
}

// Fail returns a failing reply.
func Fail(err error) Reply {
	return Reply{Err: err}
}

// On registers replies for calls whose system prompt contains match. The
// replies are used in order; the last one repeats once they run out.
func (m *MockCompletionProvider) On(match string, replies ...Reply) *MockCompletionProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = append(m.routes, &route{match: match, replies: replies})
	return m
}

// Complete implements llm.CompletionProvider.
func (m *MockCompletionProvider) Complete(
	ctx context.Context,
	req llm.CompletionRequest,
) (*llm.CompletionResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.routes {
		if !strings.Contains(req.SystemPrompt, r.match) || len(r.replies) == 0 {
			continue
		}
		reply := r.replies[r.next]
		if r.next < len(r.replies)-1 {
			r.next++
		}
		if reply.Err != nil {
			return nil, reply.Err
		}
		return &llm.CompletionResponse{
			Content:      reply.Content,
			FinishReason: "stop",
			Usage: llm.TokenUsage{
				PromptTokens:     100,
				CompletionTokens: 20,
				TotalTokens:      120,
			},
		}, nil
	}

	return nil, fmt.Errorf("llmtest: no scripted reply for system prompt %.60q", req.SystemPrompt)
}

// ModelName implements llm.CompletionProvider.
func (m *MockCompletionProvider) ModelName() string {
	if m.ModelNameVal == "" {
		return "mock-model"
	}
	return m.ModelNameVal
}

// Requests returns a copy of every request received so far.
func (m *MockCompletionProvider) Requests() []llm.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.CompletionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// CallCount returns the number of calls whose system prompt contains match.
func (m *MockCompletionProvider) CallCount(match string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, req := range m.requests {
		if strings.Contains(req.SystemPrompt, match) {
			n++
		}
	}
	return n
}

// Ensure MockCompletionProvider implements the interface.
var _ llm.CompletionProvider = (*MockCompletionProvider)(nil)
