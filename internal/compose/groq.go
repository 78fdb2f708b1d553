// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package compose

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mesh-intelligence/outreach-engine/internal/httputil"
	"github.com/mesh-intelligence/outreach-engine/pkg/types"
)

// groqAPIURL is the Groq OpenAI-compatible chat completions endpoint.
// Package-level var for test substitution.
var groqAPIURL = "https://api.groq.com/openai/v1/chat/completions"

// GroqBackend calls the Groq chat completions API to generate an
// outreach email for one lead.
type GroqBackend struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Profile     types.SenderProfile
	Client      *http.Client
}

// groqRequest is the request body for the chat completions API.
type groqRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	Stream      bool          `json:"stream"`
}

// groqMessage is a single message in the chat conversation.
type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// groqResponse is the response body from the chat completions API.
type groqResponse struct {
	Choices []groqChoice `json:"choices"`
	Usage   groqUsage    `json:"usage"`
}

type groqChoice struct {
	Message groqMessage `json:"message"`
}

type groqUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Compose renders the prompt for the lead and calls the Groq API. HTTP
// 429 responses are retried with Retry-After-aware backoff before the
// call is reported as failed.
func (g *GroqBackend) Compose(ctx context.Context, lead types.Lead) (AIResult, error) {
	prompt, err := renderPrompt(lead, g.Profile)
	if err != nil {
		return AIResult{}, fmt.Errorf("rendering prompt: %w", err)
	}

	maxTokens := g.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	temperature := g.Temperature
	if temperature <= 0 {
		temperature = 0.7
	}

	reqBody := groqRequest{
		Model: g.Model,
		Messages: []groqMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        1,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return AIResult{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, groqAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return AIResult{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.APIKey)

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, 3)
	if err != nil {
		return AIResult{}, fmt.Errorf("calling Groq API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return AIResult{}, fmt.Errorf("Groq API returned %d: %s", resp.StatusCode, string(body))
	}

	var gResp groqResponse
	if err := json.NewDecoder(resp.Body).Decode(&gResp); err != nil {
		return AIResult{}, fmt.Errorf("decoding Groq response: %w", err)
	}

	if len(gResp.Choices) == 0 {
		return AIResult{}, fmt.Errorf("Groq API returned no choices")
	}

	content := gResp.Choices[0].Message.Content
	if content == "" {
		return AIResult{}, fmt.Errorf("Groq API returned empty content")
	}

	return AIResult{
		Content:    content,
		Model:      g.Model,
		TokensUsed: gResp.Usage.TotalTokens,
	}, nil
}
