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

// Ollama calls a locally-run model through the Ollama generate API.
// The gemma and llama registry keys are Ollama clients with different
// model names.
type Ollama struct {
	url    string
	model  string
	client *http.Client
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func NewOllama(url, model string) *Ollama {
	return &Ollama{
		url:    url,
		model:  model,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

func (o *Ollama) Name() string { return o.model }

func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := withRetry(ctx, func(ctx context.Context) (string, error) {
		return o.generate(ctx, prompt)
	})
	if err != nil {
		return "", &CallError{Provider: o.Name(), Err: err}
	}
	return out, nil
}

func (o *Ollama) generate(ctx context.Context, prompt string) (string, error) {
	reqBody, err := json.Marshal(ollamaGenerateRequest{
		Model:  o.model,
		Prompt: prompt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.url, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", &statusError{status: resp.StatusCode, body: string(body)}
	}

	// The generate endpoint answers with a single object or a stream
	// of chunks depending on server settings. Collect either.
	var sb strings.Builder
	decoder := json.NewDecoder(resp.Body)
	for {
		var chunk ollamaGenerateResponse
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
	return sb.String(), nil
}
