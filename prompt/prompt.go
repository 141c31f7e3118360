package prompt

import (
	"fmt"
	"strings"
	"sync"

	"brain/types"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultMaxTurns caps how many past turns are replayed into a prompt.
// The history store itself keeps everything for the process lifetime.
const DefaultMaxTurns = 20

// Input is everything that goes into one question prompt.
type Input struct {
	DocumentContent string
	History         []types.Turn
	SelectedContext string
	Question        string
}

// Assembler builds question prompts under a token budget. Sections are
// concatenated in a fixed order: document content, conversation
// history, selected context, question. When the result exceeds the
// budget, the oldest history turns are dropped first, then the
// document content is trimmed from the end.
type Assembler struct {
	budget   int
	maxTurns int
	count    func(string) int
}

func NewAssembler(budget int) *Assembler {
	return &Assembler{
		budget:   budget,
		maxTurns: DefaultMaxTurns,
		count:    TokenCount,
	}
}

// NewAssemblerWithCounter allows a custom token counter, used by tests.
func NewAssemblerWithCounter(budget int, count func(string) int) *Assembler {
	a := NewAssembler(budget)
	a.count = count
	return a
}

func (a *Assembler) Assemble(in Input) string {
	history := in.History
	if len(history) > a.maxTurns {
		history = history[len(history)-a.maxTurns:]
	}

	doc := in.DocumentContent
	prompt := render(doc, history, in.SelectedContext, in.Question)
	if a.budget <= 0 || a.count(prompt) <= a.budget {
		return prompt
	}

	// Drop oldest turns first.
	for len(history) > 0 && a.count(prompt) > a.budget {
		history = history[1:]
		prompt = render(doc, history, in.SelectedContext, in.Question)
	}

	// Then trim the document content from the end.
	for a.count(prompt) > a.budget && len(doc) > 0 {
		runes := []rune(doc)
		doc = string(runes[:len(runes)*9/10])
		prompt = render(doc, history, in.SelectedContext, in.Question)
	}

	return prompt
}

func render(doc string, history []types.Turn, selected, question string) string {
	lines := make([]string, len(history))
	for i, turn := range history {
		lines[i] = fmt.Sprintf("Q: %s A: %s", turn.Question, turn.Answer)
	}

	return fmt.Sprintf(`Based on the following PDF content, conversation history, and selected context, please answer the question:

PDF Content:
%s

Conversation History:
%s

Selected Context:
%s

Question: %s`, doc, strings.Join(lines, "\n"), selected, question)
}

// FormatConversation renders a chatbot message history the way the
// chatbot endpoint feeds it to the model.
func FormatConversation(messages []types.Message, query string) string {
	var sb strings.Builder
	for _, msg := range messages {
		role := msg.Role
		if role != "" {
			r := []rune(role)
			role = strings.ToUpper(string(r[:1])) + string(r[1:])
		}
		sb.WriteString(fmt.Sprintf("%s: %s\n", role, msg.Content))
	}
	sb.WriteString(fmt.Sprintf("User: %s\nChatbot:", query))
	return sb.String()
}

// TrimTokens cuts text from the end until it fits the token budget.
// Used for the one-shot summary and bullet-point prompts that carry a
// whole document without history.
func TrimTokens(text string, budget int) string {
	if budget <= 0 {
		return text
	}
	for TokenCount(text) > budget && len(text) > 0 {
		runes := []rune(text)
		text = string(runes[:len(runes)*9/10])
	}
	return text
}

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// TokenCount counts tokens with the gpt-3.5-turbo encoding. If the
// encoding cannot be loaded it falls back to a rough estimate of four
// characters per token.
func TokenCount(text string) int {
	encOnce.Do(func() {
		e, err := tiktoken.EncodingForModel("gpt-3.5-turbo")
		if err == nil {
			enc = e
		}
	})
	if enc == nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
