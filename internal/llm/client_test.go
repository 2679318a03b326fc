package llm

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
)

// fakeDoer records the last request and returns a canned response.
type fakeDoer struct {
	status  int
	body    string
	lastReq *http.Request
	lastRaw []byte
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	f.lastReq = req
	if req.Body != nil {
		f.lastRaw, _ = io.ReadAll(req.Body)
	}
	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(f.body))),
	}, nil
}

func TestNew_ProviderInference(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("GOOGLE_API_KEY", "test-key")

	tests := []struct {
		name         string
		model        string
		provider     Provider
		wantProvider Provider
		wantModel    string
	}{
		{
			name:         "combined prefix with alias",
			model:        "claude-haiku",
			wantProvider: ProviderAnthropic,
			wantModel:    "claude-haiku-4-5-20251001",
		},
		{
			name:         "gemini prefix",
			model:        "gemini-flash",
			wantProvider: ProviderGoogle,
			wantModel:    "gemini-3-flash-preview",
		},
		{
			name:         "substring inference",
			model:        "gpt-5-nano",
			wantProvider: ProviderOpenAI,
			wantModel:    "gpt-5-nano",
		},
		{
			name:         "explicit provider wins",
			model:        "mini",
			provider:     ProviderOpenAI,
			wantProvider: ProviderOpenAI,
			wantModel:    "gpt-5-mini",
		},
		{
			name:         "unknown model defaults to anthropic",
			model:        "mystery-model",
			wantProvider: ProviderAnthropic,
			wantModel:    "mystery-model",
		},
		{
			name:         "local needs no key",
			model:        "local-qwen3",
			wantProvider: ProviderLocal,
			wantModel:    "qwen3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.model, tt.provider)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if client.provider != tt.wantProvider {
				t.Errorf("provider = %s, want %s", client.provider, tt.wantProvider)
			}
			if client.model != tt.wantModel {
				t.Errorf("model = %s, want %s", client.model, tt.wantModel)
			}
		})
	}
}

func TestNew_MissingAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := New("haiku", ProviderAnthropic)
	if err == nil {
		t.Fatal("New() should fail without ANTHROPIC_API_KEY")
	}
	if !strings.Contains(err.Error(), "ANTHROPIC_API_KEY") {
		t.Errorf("error = %v, want mention of the env var", err)
	}
}

func TestComplete_UnsupportedProvider(t *testing.T) {
	client := &Client{provider: Provider("nonsense")}
	if _, err := client.Complete(context.Background(), Request{Prompt: "hi"}); err == nil {
		t.Error("Complete() should reject an unknown provider")
	}
}

func TestDoRequest_APIError(t *testing.T) {
	doer := &fakeDoer{status: http.StatusTooManyRequests, body: strings.Repeat("x", 600)}
	client := &Client{provider: ProviderAnthropic, httpClient: doer}

	_, err := client.doRequest(context.Background(), "https://example.com", map[string]string{}, nil)
	if err == nil {
		t.Fatal("doRequest() should fail on non-200 status")
	}
	if !strings.Contains(err.Error(), "status 429") {
		t.Errorf("error = %v, want status code in message", err)
	}
	// Error bodies are truncated to 500 characters.
	if len(err.Error()) > 600 {
		t.Errorf("error message length = %d, want truncated body", len(err.Error()))
	}
}

func TestLocalServerURL(t *testing.T) {
	t.Setenv("LOCAL_LLM_URL", "")
	if got := LocalServerURL(); got != "http://localhost:1234/v1" {
		t.Errorf("LocalServerURL() = %q", got)
	}

	t.Setenv("LOCAL_LLM_URL", "http://gpu-box:8080/v1/")
	if got := LocalServerURL(); got != "http://gpu-box:8080/v1" {
		t.Errorf("LocalServerURL() = %q, want trailing slash trimmed", got)
	}
}

func TestConfigured(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("LOCAL_LLM_URL", "")

	if Configured() {
		t.Error("Configured() = true with no keys set")
	}

	t.Setenv("OPENAI_API_KEY", "sk-test")
	if !Configured() {
		t.Error("Configured() = false with OPENAI_API_KEY set")
	}
}
