package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrPollTimeout means the transcription job reached no terminal
// status before the polling deadline.
var ErrPollTimeout = errors.New("transcription did not finish before the deadline")

// TranscriptionError is the upstream service reporting an error status
// for a submitted job.
type TranscriptionError struct {
	Message string
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed: %s", e.Message)
}

// Transcript is the terminal result of a transcription job.
type Transcript struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Client talks to the hosted transcription API: upload bytes, submit a
// job, poll for a terminal status. Polling is bounded by a deadline
// and stops when the request context is cancelled.
type Client struct {
	baseURL      string
	apiKey       string
	client       *http.Client
	pollInterval time.Duration
	pollDeadline time.Duration
	logger       *slog.Logger
}

func NewClient(baseURL, apiKey string, pollInterval, pollDeadline time.Duration) *Client {
	return &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		client:       &http.Client{Timeout: 30 * time.Second},
		pollInterval: pollInterval,
		pollDeadline: pollDeadline,
		logger:       slog.Default(),
	}
}

// Transcribe runs the whole upload/submit/poll flow for raw audio bytes.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader) (*Transcript, error) {
	audioURL, err := c.Upload(ctx, audio)
	if err != nil {
		return nil, err
	}

	jobID, err := c.Submit(ctx, audioURL)
	if err != nil {
		return nil, err
	}

	return c.Poll(ctx, jobID)
}

// Upload pushes raw audio bytes and returns the hosted audio URL.
func (c *Client) Upload(ctx context.Context, audio io.Reader) (string, error) {
	data, err := io.ReadAll(audio)
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}

	var out struct {
		UploadURL string `json:"upload_url"`
	}
	if err := c.do(ctx, "POST", c.baseURL+"/upload", data, "application/octet-stream", &out); err != nil {
		return "", fmt.Errorf("upload audio: %w", err)
	}
	return out.UploadURL, nil
}

// Submit creates a transcription job and returns its id.
func (c *Client) Submit(ctx context.Context, audioURL string) (string, error) {
	reqBody, err := json.Marshal(map[string]any{
		"audio_url":     audioURL,
		"auto_chapters": true,
	})
	if err != nil {
		return "", fmt.Errorf("marshal transcript request: %w", err)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, "POST", c.baseURL+"/transcript", reqBody, "application/json", &out); err != nil {
		return "", fmt.Errorf("submit transcript job: %w", err)
	}

	c.logger.Info("transcription job submitted", "job_id", out.ID)
	return out.ID, nil
}

// Poll checks the job status at a fixed interval until it is completed
// or errored. It returns ErrPollTimeout past the deadline and the
// context error when the caller goes away.
func (c *Client) Poll(ctx context.Context, jobID string) (*Transcript, error) {
	statusURL := fmt.Sprintf("%s/transcript/%s", c.baseURL, jobID)
	start := time.Now()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		var status struct {
			ID     string `json:"id"`
			Status string `json:"status"`
			Text   string `json:"text"`
			Error  string `json:"error"`
		}
		if err := c.do(ctx, "GET", statusURL, nil, "", &status); err != nil {
			return nil, fmt.Errorf("poll transcript status: %w", err)
		}

		switch status.Status {
		case "completed":
			return &Transcript{ID: status.ID, Text: status.Text}, nil
		case "error":
			return nil, &TranscriptionError{Message: status.Error}
		}

		if time.Since(start) > c.pollDeadline {
			return nil, fmt.Errorf("%w (job %s after %v)", ErrPollTimeout, jobID, c.pollDeadline)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, contentType string, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("authorization", c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("transcription API error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
