package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"brain/config"
)

const openaiSystemPrompt = "You are a helpful assistant that responds using the user's personal context."

// AzureOpenAI calls the hosted chat-completions API.
type AzureOpenAI struct {
	endpoint   string
	apiKey     string
	apiVersion string
	deployment string
	client     *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func NewAzureOpenAI(cfg *config.Config) *AzureOpenAI {
	return &AzureOpenAI{
		endpoint:   strings.TrimRight(cfg.AzureEndpoint, "/"),
		apiKey:     cfg.AzureAPIKey,
		apiVersion: cfg.AzureAPIVersion,
		deployment: cfg.AzureChatDeployment,
		client:     &http.Client{Timeout: 60 * time.Second},
	}
}

func (o *AzureOpenAI) Name() string { return "openai" }

func (o *AzureOpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := withRetry(ctx, func(ctx context.Context) (string, error) {
		return o.generate(ctx, prompt)
	})
	if err != nil {
		return "", &CallError{Provider: o.Name(), Err: err}
	}
	return out, nil
}

func (o *AzureOpenAI) generate(ctx context.Context, prompt string) (string, error) {
	reqBody, err := json.Marshal(chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: openaiSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   1500,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		o.endpoint, o.deployment, o.apiVersion)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &statusError{status: resp.StatusCode, body: string(body)}
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}
	return chatResp.Choices[0].Message.Content, nil
}
