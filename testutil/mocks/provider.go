// MockProvider 的 LLM 提供商测试模拟实现。
//
// 按脚本依次返回回复，支持错误注入、token 用量与请求记录。
package mocks

import (
	"context"
	"sync"

	"github.com/Adhikkesh/Erflog/llm"
)

// DefaultReply 脚本耗尽后返回的回复
const DefaultReply = "Tell me more."

// MockProvider 是 llm.Provider 的模拟实现
type MockProvider struct {
	mu sync.Mutex

	replies []string
	err     error
	usage   llm.ChatUsage

	requests []*llm.ChatRequest
}

// NewMockProvider 创建新的 MockProvider
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// WithReplies 追加按顺序返回的回复
func (m *MockProvider) WithReplies(replies ...string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, replies...)
	return m
}

// WithError 让之后的每次调用都失败
func (m *MockProvider) WithError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithUsage 设置返回的 token 用量
func (m *MockProvider) WithUsage(prompt, completion int) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage = llm.ChatUsage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: prompt + completion}
	return m
}

// Name implements llm.Provider.
func (m *MockProvider) Name() string { return "mock" }

// Completion implements llm.Provider.
func (m *MockProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	text := DefaultReply
	if len(m.replies) > 0 {
		text = m.replies[0]
		m.replies = m.replies[1:]
	}
	return &llm.ChatResponse{
		Provider: "mock",
		Model:    req.Model,
		Choices:  []llm.ChatChoice{{Message: llm.Message{Role: llm.RoleAssistant, Content: text}}},
		Usage:    m.usage,
	}, nil
}

// CallCount 返回调用次数
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastRequest 返回最近一次请求，未调用时为 nil
func (m *MockProvider) LastRequest() *llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}
