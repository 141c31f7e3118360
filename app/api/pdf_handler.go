package api

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"brain/document"
	"brain/memory"
	"brain/model"
	"brain/prompt"
	"brain/store"
	"brain/types"
	"brain/uploads"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// PageExtractor produces page texts from a stored PDF file.
type PageExtractor interface {
	ExtractPages(path string) ([]string, error)
}

// ModelRegistry resolves backend keys to model clients.
type ModelRegistry interface {
	Get(key string) (model.Client, error)
	Keys() []string
}

const defaultUserID = "default_user"

// PDFHandler owns the upload → extract → chunk → index flow and the
// retrieval-backed question answering on top of it.
type PDFHandler struct {
	extractor PageExtractor
	embedder  model.Embedder
	indexer   store.Indexer
	cache     *memory.PageCache
	history   *memory.History
	assembler *prompt.Assembler
	models    ModelRegistry
	files     *uploads.Store
	chunkSize int
	topK      int
	budget    int
	logger    *slog.Logger
}

type PDFHandlerDeps struct {
	Extractor PageExtractor
	Embedder  model.Embedder
	Indexer   store.Indexer
	Cache     *memory.PageCache
	History   *memory.History
	Assembler *prompt.Assembler
	Models    ModelRegistry
	Files     *uploads.Store
	ChunkSize int
	TopK      int
	Budget    int
}

func NewPDFHandler(deps PDFHandlerDeps) *PDFHandler {
	if deps.ChunkSize <= 0 {
		deps.ChunkSize = 500
	}
	if deps.TopK <= 0 {
		deps.TopK = 5
	}
	return &PDFHandler{
		extractor: deps.Extractor,
		embedder:  deps.Embedder,
		indexer:   deps.Indexer,
		cache:     deps.Cache,
		history:   deps.History,
		assembler: deps.Assembler,
		models:    deps.Models,
		files:     deps.Files,
		chunkSize: deps.ChunkSize,
		topK:      deps.TopK,
		budget:    deps.Budget,
		logger:    slog.Default(),
	}
}

// HandleUpload stores the PDF, extracts pages, builds the embedding
// index and answers with LLM bullet points. Processing failures come
// back as {"success": false, "error": ...} like the rest of the PDF
// endpoints, not as a transport error.
func (h *PDFHandler) HandleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return ErrBadRequest()
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	docID := uuid.New()
	path, err := h.files.Save(docID.String(), fileHeader.Filename, file)
	if err != nil {
		return err
	}

	pages, err := h.extractor.ExtractPages(path)
	if err != nil {
		if errors.Is(err, document.ErrNoText) {
			h.logger.Error("no text extracted from uploaded PDF", "file", fileHeader.Filename)
			return c.JSON(types.UploadResponse{Success: false, Error: "No extractable text found in the uploaded PDF."})
		}
		return c.JSON(types.UploadResponse{Success: false, Error: err.Error()})
	}

	h.cache.Put(docID.String(), pages)

	doc := types.Document{
		ID:         docID,
		Title:      fileHeader.Filename,
		Pages:      pages,
		Source:     "pdf",
		SourcePath: path,
		CreatedAt:  time.Now(),
	}
	fullText := doc.FullText()
	h.logger.Info("extracted text from PDF", "file", fileHeader.Filename, "pages", len(pages), "chars", len(fullText))

	if err := h.buildIndex(c, &doc, fullText); err != nil {
		return c.JSON(types.UploadResponse{Success: false, Error: err.Error()})
	}

	points := h.summaryPoints(c, fullText)

	return c.JSON(types.UploadResponse{
		Success:  true,
		PDFID:    docID.String(),
		NumPages: len(pages),
		Points:   points,
		FullText: fullText,
	})
}

// buildIndex embeds every chunk and persists the whole index in one
// shot. Any embedding failure aborts the build before anything is
// written.
func (h *PDFHandler) buildIndex(c *fiber.Ctx, doc *types.Document, fullText string) error {
	pieces := document.SplitText(fullText, h.chunkSize)
	chunks := make([]types.Chunk, 0, len(pieces))
	for i, content := range pieces {
		embedding, err := h.embedder.Embed(c.Context(), content)
		if err != nil {
			return fmt.Errorf("embed chunk %d: %w", i, err)
		}
		chunks = append(chunks, types.Chunk{
			ID:        uuid.New(),
			DocID:     doc.ID,
			Position:  i,
			Content:   content,
			Embedding: embedding,
		})
	}
	doc.Chunks = chunks
	return h.indexer.BuildIndex(c.Context(), *doc)
}

func (h *PDFHandler) summaryPoints(c *fiber.Ctx, fullText string) []string {
	client, err := h.models.Get(model.DefaultModel)
	if err != nil {
		return nil
	}

	summaryPrompt := fmt.Sprintf("Read the following document and extract the most important points as concise bullet points. "+
		"Additionally, include related points that are not explicitly mentioned in the document but are relevant to the topic:\n\n%s\n\nBullet Points:",
		prompt.TrimTokens(fullText, h.budget))

	out, err := client.Generate(c.Context(), summaryPrompt)
	if err != nil {
		h.logger.Error("summary points generation failed", "error", err)
		return nil
	}

	var points []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.Trim(line, "-•* \t")
		if line != "" {
			points = append(points, line)
		}
	}
	h.logger.Info("generated summary points", "count", len(points))
	return points
}

// HandleAsk answers a question about a document, either through the
// embedding index (pdf_id) or against inline text (pdfText). The turn
// is appended to the user's long-term history afterwards.
func (h *PDFHandler) HandleAsk(c *fiber.Ctx) error {
	var params types.AskParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errs := types.Validate(&params); len(errs) > 0 {
		return NewValidationError(errs)
	}

	var docContent string
	switch {
	case params.PDFID != "":
		content, err := h.retrieveContext(c, params.PDFID, params.Question)
		if err != nil {
			return err
		}
		docContent = content
	case params.PDFText != "":
		docContent = params.PDFText
	default:
		return ErrMissingField("pdf_id or pdfText")
	}

	userID := params.UserID
	if userID == "" {
		userID = defaultUserID
	}

	questionPrompt := h.assembler.Assemble(prompt.Input{
		DocumentContent: docContent,
		History:         h.history.GetInteractions(userID),
		SelectedContext: params.SelectedContext,
		Question:        params.Question,
	})

	client, err := h.models.Get(model.DefaultModel)
	if err != nil {
		return err
	}
	answer, err := client.Generate(c.Context(), questionPrompt)
	if err != nil {
		return err
	}

	h.history.AddInteraction(userID, params.Question, answer)
	return c.JSON(types.AskResponse{Answer: answer})
}

// retrieveContext embeds the question and pulls the nearest chunks of
// the document out of its index.
func (h *PDFHandler) retrieveContext(c *fiber.Ctx, pdfID, question string) (string, error) {
	docID, err := uuid.Parse(pdfID)
	if err != nil {
		return "", NewError(fiber.StatusBadRequest, "invalid pdf_id")
	}

	queryVec, err := h.embedder.Embed(c.Context(), question)
	if err != nil {
		return "", err
	}

	chunks, err := h.indexer.Search(c.Context(), docID, queryVec, h.topK)
	if err != nil {
		return "", err
	}

	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		parts[i] = chunk.Content
	}
	return strings.Join(parts, "\n"), nil
}

// HandleSummary summarizes a document: an explicit pdf_id query param
// resolves through the embedding index and works after the page cache
// has evicted the document, otherwise the most recently uploaded PDF
// still in the cache is used. A missing PDF without pdf_id is an error
// body on a success status, mirroring the upstream contract.
func (h *PDFHandler) HandleSummary(c *fiber.Ctx) error {
	var fullText string
	if pdfID := c.Query("pdf_id"); pdfID != "" {
		docID, err := uuid.Parse(pdfID)
		if err != nil {
			return NewError(fiber.StatusBadRequest, "invalid pdf_id")
		}
		doc, err := h.indexer.GetDocumentByID(c.Context(), docID)
		if err != nil {
			return err
		}
		parts := make([]string, len(doc.Chunks))
		for i, chunk := range doc.Chunks {
			parts[i] = chunk.Content
		}
		fullText = strings.Join(parts, "")
	} else {
		_, pages, ok := h.cache.Latest()
		if !ok {
			return c.JSON(fiber.Map{"error": "No PDF uploaded"})
		}
		fullText = strings.Join(pages, "\n")
	}
	summaryPrompt := fmt.Sprintf("Please provide a concise summary of the following document:\n\n%s\n\nSummary:",
		prompt.TrimTokens(fullText, h.budget))

	client, err := h.models.Get(model.DefaultModel)
	if err != nil {
		return err
	}
	summary, err := client.Generate(c.Context(), summaryPrompt)
	if err != nil {
		return err
	}

	return c.JSON(types.SummaryResponse{Summary: summary})
}

var fallbackRecommendations = []string{
	"What are the key practical applications of this concept?",
	"How does this compare to similar approaches?",
	"Can you provide specific examples from real-world scenarios?",
	"What are the main benefits and limitations?",
	"How would you implement this in practice?",
}

// HandleRecommendations generates follow-up questions for a query.
// Never fails: a dead model backend degrades to the static list.
func (h *PDFHandler) HandleRecommendations(c *fiber.Ctx) error {
	var params types.RecommendationParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if params.Query == "" {
		return c.JSON(types.RecommendationsResponse{Recommendations: []string{}})
	}

	recommendations := h.generateRecommendations(c, params)
	return c.JSON(types.RecommendationsResponse{Recommendations: recommendations})
}

func (h *PDFHandler) generateRecommendations(c *fiber.Ctx, params types.RecommendationParams) []string {
	client, err := h.models.Get(model.DefaultModel)
	if err != nil {
		return fallbackRecommendations
	}

	contextText := params.Context
	if contextText == "" {
		contextText = params.Query
	}

	recPrompt := fmt.Sprintf(`Based on the following content and user query, generate smart follow-up questions that would help the user explore the topic deeper.

Content/Context: %s
User's Last Query/Answer: %s

Requirements:
- Make questions specific and actionable
- Avoid generic questions like "tell me more"
- Each question should be 8-15 words
- Focus on practical value for learning

Generate exactly 5 recommendations, one per line:`,
		prompt.TrimTokens(contextText, h.budget), params.Query)

	out, err := client.Generate(c.Context(), recPrompt)
	if err != nil {
		h.logger.Error("recommendation generation failed", "error", err)
		return fallbackRecommendations
	}

	var recommendations []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimLeft(strings.TrimSpace(line), "0123456789.-• ")
		if len(line) > 10 {
			recommendations = append(recommendations, line)
		}
	}
	if len(recommendations) < 3 {
		recommendations = append(recommendations, fallbackRecommendations...)
	}
	if len(recommendations) > 5 {
		recommendations = recommendations[:5]
	}
	return recommendations
}

// HandleGetPDF streams back an uploaded PDF by id. Unknown ids come
// back as 404 with the requested id and a directory size for
// debugging, mapped by the error handler.
func (h *PDFHandler) HandleGetPDF(c *fiber.Ctx) error {
	pdfID := c.Params("pdf_id")
	if pdfID == "" {
		return ErrMissingField("pdf_id")
	}

	path, err := h.files.Lookup(pdfID)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	return c.SendFile(path)
}
