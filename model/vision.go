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
)

const captionPrompt = `Describe the image in one or two concise sentences.
Mention the main subjects and what is happening.
Do not add introductions or explanations, return the caption only.`

// Captioner turns an image into a one-shot text caption.
type Captioner interface {
	Caption(ctx context.Context, imageBase64 string) (string, error)
}

// LLaVA captions images through an Ollama vision model.
type LLaVA struct {
	url    string
	model  string
	client *http.Client
}

type llavaRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	Temperature float32  `json:"temperature"`
	Images      []string `json:"images"`
}

type llavaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func NewLLaVA(url, model string) *LLaVA {
	return &LLaVA{
		url:    url,
		model:  model,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

func (l *LLaVA) Caption(ctx context.Context, imageBase64 string) (string, error) {
	out, err := withRetry(ctx, func(ctx context.Context) (string, error) {
		return l.caption(ctx, imageBase64)
	})
	if err != nil {
		return "", &CallError{Provider: "vision", Err: err}
	}
	return out, nil
}

func (l *LLaVA) caption(ctx context.Context, imageBase64 string) (string, error) {
	reqBody, err := json.Marshal(llavaRequest{
		Model:       l.model,
		Prompt:      captionPrompt,
		Temperature: 0.2,
		Images:      []string{imageBase64},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", l.url, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &statusError{status: resp.StatusCode, body: string(body)}
	}

	var sb strings.Builder
	decoder := json.NewDecoder(resp.Body)
	for {
		var chunk llavaResponse
		if err := decoder.Decode(&chunk); err == io.EOF {
			break
		} else if err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		sb.WriteString(chunk.Response)
		if chunk.Done {
			break
		}
	}

	caption := strings.TrimSpace(sb.String())
	if caption == "" {
		return "", fmt.Errorf("empty caption in response")
	}
	return caption, nil
}
