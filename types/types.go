package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Chunk struct {
	ID        uuid.UUID
	DocID     uuid.UUID
	Position  int
	Content   string
	Embedding []float32
	Distance  float64
}

type Document struct {
	ID         uuid.UUID
	Title      string
	Pages      []string
	Chunks     []Chunk
	Source     string // pdf, audio, video, ...
	SourcePath string
	CreatedAt  time.Time
}

// FullText joins the page texts in order.
func (d Document) FullText() string {
	return strings.Join(d.Pages, "\n")
}

// Turn is one question/answer exchange in a user's conversation history.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Message is a single entry of a chatbot conversation as sent by the client.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
