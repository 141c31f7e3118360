package config

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Config carries every setting the service reads from the environment.
// It is loaded once in main and passed down, so a missing credential
// fails at startup instead of deep inside a request.
type Config struct {
	ServerAddr  string
	CORSOrigins string

	PGHost   string
	PGPort   int
	PGUser   string
	PGPass   string
	PGDBName string

	AzureAPIKey         string
	AzureEndpoint       string
	AzureAPIVersion     string
	AzureChatDeployment string

	OllamaURL            string
	OllamaModel          string
	OllamaGemmaModel     string
	OllamaLlamaModel     string
	OllamaEmbeddingURL   string
	OllamaEmbeddingModel string
	OllamaVisionURL      string
	OllamaVisionModel    string

	AssemblyAIKey     string
	AssemblyAIBaseURL string

	GoogleAPIKey         string
	GoogleSearchEngineID string

	UploadDir string
	UploadTTL time.Duration

	ChunkSize    int
	TopK         int
	PromptBudget int

	PollInterval time.Duration
	PollDeadline time.Duration
}

// Error reports the environment variables that are required but unset.
type Error struct {
	Missing []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Missing, ", "))
}

// Load reads the environment into a Config. Required keys are the
// credentials for Postgres, the hosted chat API and the transcription
// API; everything else has a default.
func Load() (*Config, error) {
	cfg := &Config{
		ServerAddr:  getEnv("SERVER_ADDR", ":8080"),
		CORSOrigins: getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173"),

		PGHost:   os.Getenv("PG_HOST"),
		PGUser:   os.Getenv("PG_USER"),
		PGPass:   os.Getenv("PG_PASS"),
		PGDBName: os.Getenv("PG_DB_NAME"),

		AzureAPIKey:         os.Getenv("AZURE_OPENAI_API_KEY"),
		AzureEndpoint:       os.Getenv("AZURE_OPENAI_ENDPOINT"),
		AzureAPIVersion:     getEnv("AZURE_OPENAI_API_VERSION", "2023-07-01-preview"),
		AzureChatDeployment: getEnv("AZURE_OPENAI_CHAT_DEPLOYMENT_NAME", "gpt-35-turbo"),

		OllamaURL:            getEnv("OLLAMA_URL", "http://localhost:11434/api/generate"),
		OllamaModel:          getEnv("OLLAMA_MODEL", "mistral"),
		OllamaGemmaModel:     getEnv("OLLAMA_GEMMA_MODEL", "gemma"),
		OllamaLlamaModel:     getEnv("OLLAMA_LLAMA_MODEL", "llama3"),
		OllamaEmbeddingURL:   getEnv("OLLAMA_EMBEDDING_URL", "http://localhost:11434/api/embeddings"),
		OllamaEmbeddingModel: getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
		OllamaVisionURL:      getEnv("OLLAMA_VL_URL", "http://localhost:11434/api/generate"),
		OllamaVisionModel:    getEnv("OLLAMA_VL_MODEL", "llava"),

		AssemblyAIKey:     os.Getenv("ASSEMBLYAI_API_KEY"),
		AssemblyAIBaseURL: getEnv("ASSEMBLYAI_BASE_URL", "https://api.assemblyai.com/v2"),

		GoogleAPIKey:         os.Getenv("GOOGLE_API_KEY"),
		GoogleSearchEngineID: os.Getenv("GOOGLE_SEARCH_ENGINE_ID"),

		UploadDir: getEnv("UPLOAD_DIR", "temp_pdfs"),
		UploadTTL: getDuration("UPLOAD_TTL", 24*time.Hour),

		ChunkSize:    getInt("CHUNK_SIZE", 500),
		TopK:         getInt("SEARCH_TOP_K", 5),
		PromptBudget: getInt("PROMPT_TOKEN_BUDGET", 3000),

		PollInterval: getDuration("TRANSCRIBE_POLL_INTERVAL", 3*time.Second),
		PollDeadline: getDuration("TRANSCRIBE_POLL_DEADLINE", 5*time.Minute),
	}
	cfg.PGPort = getInt("PG_PORT", 5432)

	required := map[string]string{
		"PG_HOST":               cfg.PGHost,
		"PG_USER":               cfg.PGUser,
		"PG_PASS":               cfg.PGPass,
		"PG_DB_NAME":            cfg.PGDBName,
		"AZURE_OPENAI_API_KEY":  cfg.AzureAPIKey,
		"AZURE_OPENAI_ENDPOINT": cfg.AzureEndpoint,
		"ASSEMBLYAI_API_KEY":    cfg.AssemblyAIKey,
	}

	var missing []string
	for key, val := range required {
		if val == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &Error{Missing: missing}
	}

	return cfg, nil
}

// MustLoad is Load for main: configuration errors are fatal at startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// PostgresDSN builds the connection string for the embedding store.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.PGHost, c.PGPort, c.PGUser, c.PGPass, c.PGDBName)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
