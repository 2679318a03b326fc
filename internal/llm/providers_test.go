package llm

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestCompleteAnthropic(t *testing.T) {
	doer := &fakeDoer{body: `{
		"content": [
			{"type": "text", "text": "hello "},
			{"type": "tool_use", "text": "ignored"},
			{"type": "text", "text": "world"}
		],
		"model": "claude-haiku-4-5-20251001"
	}`}
	client := &Client{
		provider:   ProviderAnthropic,
		model:      "claude-haiku-4-5-20251001",
		apiKey:     "test-key",
		httpClient: doer,
	}

	resp, err := client.Complete(context.Background(), Request{System: "be brief", Prompt: "hi"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "hello world" {
		t.Errorf("content = %q, want text blocks concatenated", resp.Content)
	}

	if got := doer.lastReq.URL.String(); got != "https://api.anthropic.com/v1/messages" {
		t.Errorf("URL = %q", got)
	}
	if doer.lastReq.Header.Get("x-api-key") != "test-key" {
		t.Error("missing x-api-key header")
	}
	if doer.lastReq.Header.Get("anthropic-version") != "2023-06-01" {
		t.Error("missing anthropic-version header")
	}

	var sent anthropicRequest
	if err := json.Unmarshal(doer.lastRaw, &sent); err != nil {
		t.Fatalf("unmarshaling sent body: %v", err)
	}
	if sent.System != "be brief" || sent.MaxTokens != defaultMaxTokens {
		t.Errorf("sent = %+v, want system prompt and default max tokens", sent)
	}
}

func TestCompleteOpenAI(t *testing.T) {
	doer := &fakeDoer{body: `{
		"choices": [{"message": {"content": "sure thing"}}],
		"model": "gpt-5-nano"
	}`}
	client := &Client{
		provider:   ProviderOpenAI,
		model:      "gpt-5-nano",
		apiKey:     "test-key",
		httpClient: doer,
	}

	resp, err := client.Complete(context.Background(), Request{System: "be brief", Prompt: "hi", MaxTokens: 128})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "sure thing" || resp.Model != "gpt-5-nano" {
		t.Errorf("resp = %+v", resp)
	}

	if doer.lastReq.Header.Get("Authorization") != "Bearer test-key" {
		t.Error("missing bearer token")
	}

	var sent openAIRequest
	if err := json.Unmarshal(doer.lastRaw, &sent); err != nil {
		t.Fatalf("unmarshaling sent body: %v", err)
	}
	if len(sent.Messages) != 2 || sent.Messages[0].Role != "system" {
		t.Errorf("messages = %+v, want system then user", sent.Messages)
	}
	if sent.MaxCompletionTokens != 128 {
		t.Errorf("max tokens = %d, want 128", sent.MaxCompletionTokens)
	}
}

func TestCompleteOpenAI_NoChoices(t *testing.T) {
	doer := &fakeDoer{body: `{"choices": []}`}
	client := &Client{provider: ProviderOpenAI, model: "gpt-5-nano", apiKey: "k", httpClient: doer}

	if _, err := client.Complete(context.Background(), Request{Prompt: "hi"}); err == nil {
		t.Error("Complete() should fail on empty choices")
	}
}

func TestCompleteGoogle(t *testing.T) {
	doer := &fakeDoer{body: `{
		"candidates": [{"content": {"parts": [{"text": "answer "}, {"text": "here"}]}}],
		"modelVersion": "gemini-3-flash-preview"
	}`}
	client := &Client{
		provider:   ProviderGoogle,
		model:      "gemini-3-flash-preview",
		apiKey:     "test-key",
		httpClient: doer,
	}

	resp, err := client.Complete(context.Background(), Request{System: "be brief", Prompt: "hi", MaxTokens: 64})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "answer here" {
		t.Errorf("content = %q, want parts concatenated", resp.Content)
	}

	wantURL := "https://generativelanguage.googleapis.com/v1beta/models/gemini-3-flash-preview:generateContent"
	if got := doer.lastReq.URL.String(); got != wantURL {
		t.Errorf("URL = %q", got)
	}
	if doer.lastReq.Header.Get("x-goog-api-key") != "test-key" {
		t.Error("missing x-goog-api-key header")
	}

	var sent googleRequest
	if err := json.Unmarshal(doer.lastRaw, &sent); err != nil {
		t.Fatalf("unmarshaling sent body: %v", err)
	}
	if sent.SystemInstruction == nil || sent.SystemInstruction.Parts[0].Text != "be brief" {
		t.Errorf("systemInstruction = %+v", sent.SystemInstruction)
	}
	if sent.GenerationConfig == nil || sent.GenerationConfig.MaxOutputTokens != 64 {
		t.Errorf("generationConfig = %+v", sent.GenerationConfig)
	}
}

func TestCompleteLocal(t *testing.T) {
	t.Setenv("LOCAL_LLM_URL", "http://localhost:9999/v1")

	doer := &fakeDoer{body: `{"choices": [{"message": {"content": "local says hi"}}]}`}
	client := &Client{
		provider:   ProviderLocal,
		model:      "default",
		apiKey:     "not-needed",
		httpClient: doer,
	}

	resp, err := client.Complete(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "local says hi" {
		t.Errorf("content = %q", resp.Content)
	}

	if got := doer.lastReq.URL.String(); !strings.HasPrefix(got, "http://localhost:9999/v1") {
		t.Errorf("URL = %q, want LOCAL_LLM_URL honored", got)
	}

	// The "default" sentinel must not reach the server as a model name.
	var sent openAIRequest
	if err := json.Unmarshal(doer.lastRaw, &sent); err != nil {
		t.Fatalf("unmarshaling sent body: %v", err)
	}
	if sent.Model != "" {
		t.Errorf("model = %q, want empty for server default", sent.Model)
	}
}
