package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/gorewood/cadence/internal/output"
)

// defaultMaxTokens is used when the request does not set a limit.
const defaultMaxTokens = 4096

// anthropicRequest is the Anthropic Messages API request body.
type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model string `json:"model"`
}

func (c *Client) completeAnthropic(ctx context.Context, req Request) (*Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	body := anthropicRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages:  []anthropicMessage{{Role: "user", Content: req.Prompt}},
	}
	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": "2023-06-01",
	}

	respBody, err := c.doRequest(ctx, "https://api.anthropic.com/v1/messages", body, headers)
	if err != nil {
		return nil, err
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, output.NewSystemErrorWithCause("failed to parse response", err)
	}

	var content strings.Builder
	for _, block := range apiResp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return &Response{Content: content.String(), Model: apiResp.Model}, nil
}

// openAIRequest is the OpenAI chat completions request body, also spoken by
// local servers such as LM Studio and llama.cpp.
type openAIRequest struct {
	Model               string          `json:"model,omitempty"`
	Messages            []openAIMessage `json:"messages"`
	MaxCompletionTokens int             `json:"max_completion_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Model string `json:"model"`
}

func (c *Client) completeOpenAI(ctx context.Context, req Request) (*Response, error) {
	body := openAIRequest{
		Model:               c.model,
		Messages:            openAIMessages(req),
		MaxCompletionTokens: req.MaxTokens,
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}

	respBody, err := c.doRequest(ctx, "https://api.openai.com/v1/chat/completions", body, headers)
	if err != nil {
		return nil, err
	}
	return parseOpenAIResponse(respBody)
}

func (c *Client) completeLocal(ctx context.Context, req Request) (*Response, error) {
	model := c.model
	if model == "default" {
		model = "" // Empty model lets the server use whatever is loaded
	}

	body := openAIRequest{
		Model:               model,
		Messages:            openAIMessages(req),
		MaxCompletionTokens: req.MaxTokens,
	}

	respBody, err := c.doRequest(ctx, LocalServerURL()+"/chat/completions", body, nil)
	if err != nil {
		return nil, err
	}
	return parseOpenAIResponse(respBody)
}

func openAIMessages(req Request) []openAIMessage {
	var messages []openAIMessage
	if req.System != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.System})
	}
	return append(messages, openAIMessage{Role: "user", Content: req.Prompt})
}

func parseOpenAIResponse(respBody []byte) (*Response, error) {
	var apiResp openAIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, output.NewSystemErrorWithCause("failed to parse response", err)
	}
	if len(apiResp.Choices) == 0 {
		return nil, output.NewSystemError("response contained no choices")
	}
	return &Response{Content: apiResp.Choices[0].Message.Content, Model: apiResp.Model}, nil
}

// googleRequest is the Gemini generateContent request body.
type googleRequest struct {
	SystemInstruction *googleContent   `json:"systemInstruction,omitempty"`
	Contents          []googleContent  `json:"contents"`
	GenerationConfig  *googleGenConfig `json:"generationConfig,omitempty"`
}

type googleContent struct {
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text string `json:"text"`
}

type googleGenConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

type googleResponse struct {
	Candidates []struct {
		Content struct {
			Parts []googlePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	ModelVersion string `json:"modelVersion"`
}

func (c *Client) completeGoogle(ctx context.Context, req Request) (*Response, error) {
	body := googleRequest{
		Contents: []googleContent{{Parts: []googlePart{{Text: req.Prompt}}}},
	}
	if req.System != "" {
		body.SystemInstruction = &googleContent{Parts: []googlePart{{Text: req.System}}}
	}
	if req.MaxTokens > 0 {
		body.GenerationConfig = &googleGenConfig{MaxOutputTokens: req.MaxTokens}
	}

	url := "https://generativelanguage.googleapis.com/v1beta/models/" + c.model + ":generateContent"
	headers := map[string]string{"x-goog-api-key": c.apiKey}

	respBody, err := c.doRequest(ctx, url, body, headers)
	if err != nil {
		return nil, err
	}

	var apiResp googleResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, output.NewSystemErrorWithCause("failed to parse response", err)
	}
	if len(apiResp.Candidates) == 0 {
		return nil, output.NewSystemError("response contained no candidates")
	}

	var content strings.Builder
	for _, part := range apiResp.Candidates[0].Content.Parts {
		content.WriteString(part.Text)
	}

	return &Response{Content: content.String(), Model: apiResp.ModelVersion}, nil
}
