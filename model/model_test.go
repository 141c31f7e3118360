package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"brain/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(endpoint string) *config.Config {
	return &config.Config{
		AzureEndpoint:       endpoint,
		AzureAPIKey:         "test-key",
		AzureAPIVersion:     "2023-07-01-preview",
		AzureChatDeployment: "gpt-35-turbo",
		OllamaURL:           endpoint,
		OllamaModel:         "mistral",
		OllamaGemmaModel:    "gemma",
		OllamaLlamaModel:    "llama3",
	}
}

func TestRegistryUnsupportedModel(t *testing.T) {
	r := NewRegistry(testConfig("http://localhost"))

	_, err := r.Get("not-a-model")
	var umErr *UnsupportedModelError
	require.ErrorAs(t, err, &umErr)
	assert.Equal(t, "not-a-model", umErr.Key)
	assert.Equal(t, []string{"gemma", "llama", "ollama", "openai"}, umErr.Available)
	assert.Contains(t, err.Error(), "openai")
}

func TestRegistryLazyAndCached(t *testing.T) {
	r := NewRegistry(testConfig("http://localhost"))

	first, err := r.Get("ollama")
	require.NoError(t, err)
	second, err := r.Get("ollama")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestRegistryDefaultModel(t *testing.T) {
	r := NewRegistry(testConfig("http://localhost"))
	c, err := r.Get("")
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Name())
}

func TestAzureOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("api-key"))
		assert.Contains(t, r.URL.Path, "/openai/deployments/gpt-35-turbo/chat/completions")

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "what is the total?", req.Messages[1].Content)

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "The total is $42.00."}},
			},
		})
	}))
	defer srv.Close()

	c := NewAzureOpenAI(testConfig(srv.URL))
	out, err := c.Generate(context.Background(), "what is the total?")
	require.NoError(t, err)
	assert.Equal(t, "The total is $42.00.", out)
}

func TestAzureOpenAIAuthErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewAzureOpenAI(testConfig(srv.URL))
	_, err := c.Generate(context.Background(), "prompt")

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, "openai", callErr.Provider)
	assert.EqualValues(t, 1, calls.Load(), "4xx must not be retried")
}

func TestAzureOpenAIServerErrorRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewAzureOpenAI(testConfig(srv.URL))
	_, err := c.Generate(context.Background(), "prompt")

	require.Error(t, err)
	assert.EqualValues(t, maxAttempts, calls.Load(), "5xx must be retried")
}

func TestOllamaStreamedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"response":"Hello ","done":false}`)
		fmt.Fprintln(w, `{"response":"world","done":true}`)
	}))
	defer srv.Close()

	c := NewOllama(srv.URL, "mistral")
	out, err := c.Generate(context.Background(), "greet")
	require.NoError(t, err)
	assert.Equal(t, "Hello world", out)
}

func TestOllamaEmbedderNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{3, 4}})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "nomic-embed-text")
	vec, err := e.Embed(context.Background(), "some text")
	require.NoError(t, err)
	require.Len(t, vec, 2)

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)
}

func TestOllamaEmbedderUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "nope")
	_, err := e.Embed(context.Background(), "text")

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, "embeddings", callErr.Provider)
}

func TestLLaVACaption(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req llavaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Images, 1)
		fmt.Fprintln(w, `{"response":"A cat on a sofa.","done":true}`)
	}))
	defer srv.Close()

	c := NewLLaVA(srv.URL, "llava")
	out, err := c.Caption(context.Background(), "aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "A cat on a sofa.", out)
}

func TestRetryableClassification(t *testing.T) {
	assert.True(t, retryable(&statusError{status: 500}))
	assert.True(t, retryable(&statusError{status: 429}))
	assert.False(t, retryable(&statusError{status: 400}))
	assert.False(t, retryable(&statusError{status: 401}))
	assert.False(t, retryable(errors.New("decode response: bad json")))
	assert.True(t, retryable(context.DeadlineExceeded))
}
