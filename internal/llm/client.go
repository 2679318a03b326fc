// Package llm provides a minimal multi-provider LLM completion client.
//
// The decision engine delegates judgment calls (task selection, failure
// diagnosis, decomposition) to a Completer; this package supplies the real
// one. Providers are thin HTTP bindings behind a shared request helper.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorewood/cadence/internal/output"
)

// Provider represents an LLM provider.
type Provider string

// Supported LLM providers.
const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGoogle    Provider = "google"
	ProviderLocal     Provider = "local"
)

// Request represents a completion request.
type Request struct {
	System    string // System prompt
	Prompt    string // User prompt
	MaxTokens int    // Max tokens (0 uses the provider default)
}

// Response represents a completion response.
type Response struct {
	Content string // Generated content
	Model   string // Model used
}

// Completer generates a completion. The decision engine depends on this
// interface so tests can use canned completions.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// HTTPDoer defines the HTTP operations required by Client.
// This allows injection of test doubles for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// requestTimeout bounds a single completion call.
const requestTimeout = 5 * time.Minute

// Client is a provider-agnostic LLM client.
type Client struct {
	provider   Provider
	model      string
	apiKey     string
	httpClient HTTPDoer
}

// New creates a client for the given model. Model can be a combined format
// like "claude-haiku" or "gemini-flash"; provider is inferred from the model
// name when not specified, and shorthand aliases expand to full model names.
func New(model string, provider Provider) (*Client, error) {
	if provider == "" {
		provider, model = parseProviderPrefix(model)
	}
	if provider == "" {
		provider = inferProvider(model)
	}
	model = resolveModelAlias(model, provider)

	apiKey, err := apiKeyFor(provider)
	if err != nil {
		return nil, err
	}

	return &Client{
		provider:   provider,
		model:      model,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: requestTimeout},
	}, nil
}

// Model returns the resolved model name.
func (c *Client) Model() string {
	return c.model
}

// Complete generates a completion for the given request.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	switch c.provider {
	case ProviderAnthropic:
		return c.completeAnthropic(ctx, req)
	case ProviderOpenAI:
		return c.completeOpenAI(ctx, req)
	case ProviderGoogle:
		return c.completeGoogle(ctx, req)
	case ProviderLocal:
		return c.completeLocal(ctx, req)
	default:
		return nil, output.NewUserError(fmt.Sprintf("unsupported provider: %s", c.provider))
	}
}

// Configured reports whether any provider has an API key available, or a
// local server is explicitly configured. Used to pick offline mode.
func Configured() bool {
	for _, envVar := range APIKeyEnvVars() {
		if os.Getenv(envVar) != "" {
			return true
		}
	}
	return os.Getenv("LOCAL_LLM_URL") != ""
}

// doRequest performs an HTTP POST request with a JSON body and returns the
// response body. Error bodies are truncated to keep messages readable and
// avoid leaking large payloads.
func (c *Client) doRequest(ctx context.Context, url string, body any, headers map[string]string) ([]byte, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, output.NewSystemErrorWithCause("failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, output.NewSystemErrorWithCause("failed to create request", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, output.NewSystemErrorWithCause("request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, output.NewSystemErrorWithCause("failed to read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		errBody := string(respBody)
		if len(errBody) > 500 {
			errBody = errBody[:500]
		}
		return nil, output.NewSystemError(fmt.Sprintf("API error (status %d): %s", resp.StatusCode, errBody))
	}

	return respBody, nil
}

// LocalServerURL returns the URL for the local LLM server.
// Defaults to http://localhost:1234/v1 (LM Studio default).
func LocalServerURL() string {
	if url := os.Getenv("LOCAL_LLM_URL"); url != "" {
		return strings.TrimRight(url, "/")
	}
	return "http://localhost:1234/v1"
}
