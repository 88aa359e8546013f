package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Adhikkesh/Erflog/llm"
	"github.com/Adhikkesh/Erflog/types"
)

func TestConvertContents(t *testing.T) {
	sys, contents := convertContents([]llm.Message{
		{Role: llm.RoleSystem, Content: "You are an interviewer."},
		{Role: llm.RoleSystem, Content: "Be concise."},
		{Role: llm.RoleAssistant, Content: "Hello!"},
		{Role: llm.RoleUser, Content: "Hi"},
		{Role: llm.RoleUser, Content: "I am ready"},
		{Role: llm.RoleAssistant, Content: ""},
	})

	require.NotNil(t, sys)
	assert.Equal(t, "You are an interviewer.\n\nBe concise.", sys.Parts[0].Text)
	require.Len(t, contents, 2)
	assert.Equal(t, "model", contents[0].Role)
	assert.Equal(t, "user", contents[1].Role)
	assert.Len(t, contents[1].Parts, 2)
}

func TestProvider_Completion(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "g-key", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{
			"candidates":[{"index":0,"finishReason":"STOP","content":{"role":"model","parts":[{"text":"{\"a\":"},{"text":"1}"}]}}],
			"usageMetadata":{"promptTokenCount":30,"candidatesTokenCount":4,"totalTokenCount":34},
			"responseId":"r-1"
		}`))
	}))
	defer srv.Close()

	p := New(Config{APIKey: "g-key", BaseURL: srv.URL}, srv.Client(), zaptest.NewLogger(t))
	resp, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages:    []llm.Message{{Role: llm.RoleSystem, Content: "sys"}, {Role: llm.RoleUser, Content: "go"}},
		Temperature: 0.7,
		MaxTokens:   256,
		JSONMode:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"a":1}`, resp.Text())
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
	assert.Equal(t, 34, resp.Usage.TotalTokens)
	assert.Equal(t, "r-1", resp.ID)
	assert.Equal(t, "gemini-2.0-flash", resp.Model)

	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "sys", got.SystemInstruction.Parts[0].Text)
	require.NotNil(t, got.GenerationConfig)
	assert.Equal(t, "application/json", got.GenerationConfig.ResponseMimeType)
	assert.Equal(t, 256, got.GenerationConfig.MaxOutputTokens)
	require.NotNil(t, got.GenerationConfig.Temperature)
	assert.InDelta(t, 0.7, *got.GenerationConfig.Temperature, 1e-6)
}

func TestProvider_ModelOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-1.5-pro:generateContent", r.URL.Path)
		_, _ = w.Write([]byte(`{"candidates":[],"modelVersion":"gemini-1.5-pro-002"}`))
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL, Model: "gemini-1.5-pro"}, srv.Client(), nil)
	resp, err := p.Completion(context.Background(), &llm.ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-pro-002", resp.Model)
	assert.Empty(t, resp.Text())
}

func TestProvider_ErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL}, srv.Client(), nil)
	_, err := p.Completion(context.Background(), &llm.ChatRequest{})
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
	assert.False(t, types.IsRetryable(err))
}
