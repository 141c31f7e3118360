package api

import (
	"context"
	"log/slog"

	"brain/model"
	"brain/prompt"
	"brain/store"
	"brain/types"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// WebSearcher runs a web search and returns "title: link" lines.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]string, error)
}

type SearchHandler struct {
	searcher WebSearcher
	models   ModelRegistry
	embedder model.Embedder
	indexer  store.Indexer
	topK     int
	logger   *slog.Logger
}

func NewSearchHandler(searcher WebSearcher, models ModelRegistry, embedder model.Embedder, indexer store.Indexer, topK int) *SearchHandler {
	if topK <= 0 {
		topK = 5
	}
	return &SearchHandler{
		searcher: searcher,
		models:   models,
		embedder: embedder,
		indexer:  indexer,
		topK:     topK,
		logger:   slog.Default(),
	}
}

func (h *SearchHandler) HandleGoogleSearch(c *fiber.Ctx) error {
	query := c.Query("query")
	if query == "" {
		return ErrMissingField("query")
	}

	results, err := h.searcher.Search(c.Context(), query)
	if err != nil {
		return err
	}
	return c.JSON(results)
}

// HandleRAGSearch returns the chunks of an indexed document nearest to
// a query, without going through the answer-generation step.
func (h *SearchHandler) HandleRAGSearch(c *fiber.Ctx) error {
	var params types.RAGSearchParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errs := types.Validate(&params); len(errs) > 0 {
		return NewValidationError(errs)
	}

	docID, err := uuid.Parse(params.PDFID)
	if err != nil {
		return NewError(fiber.StatusBadRequest, "invalid pdf_id")
	}

	queryVec, err := h.embedder.Embed(c.Context(), params.Query)
	if err != nil {
		return err
	}

	chunks, err := h.indexer.Search(c.Context(), docID, queryVec, h.topK)
	if err != nil {
		return err
	}

	results := make([]string, len(chunks))
	for i, chunk := range chunks {
		results[i] = chunk.Content
	}
	return c.JSON(types.RAGSearchResponse{Results: results})
}

// HandleChatbot answers a free-form query with the client-supplied
// conversation replayed in front of it.
func (h *SearchHandler) HandleChatbot(c *fiber.Ctx) error {
	var params types.ChatbotParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errs := types.Validate(&params); len(errs) > 0 {
		return NewValidationError(errs)
	}

	client, err := h.models.Get(model.DefaultModel)
	if err != nil {
		return err
	}

	fullPrompt := prompt.FormatConversation(params.Conversation, params.Query)
	h.logger.Info("chatbot query", "query", params.Query, "history_len", len(params.Conversation))

	response, err := client.Generate(c.Context(), fullPrompt)
	if err != nil {
		return err
	}
	return c.JSON(types.ChatbotResponse{Response: response})
}
