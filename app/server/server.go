package server

import (
	"context"
	"log/slog"
	"time"

	"brain/app/api"
	"brain/audio"
	"brain/config"
	"brain/document"
	"brain/memory"
	"brain/model"
	"brain/prompt"
	"brain/search"
	"brain/store"
	"brain/uploads"
	"brain/video"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

const sweepInterval = 10 * time.Minute

type Server struct {
	listenAddr string
	app        *fiber.App
	files      *uploads.Store
	logger     *slog.Logger
	cancel     context.CancelFunc
}

// New wires every component against the loaded configuration and
// registers the routes. Model backends stay unconnected until first
// use.
func New(cfg *config.Config, indexer store.Indexer) (*Server, error) {
	files, err := uploads.NewStore(cfg.UploadDir, cfg.UploadTTL)
	if err != nil {
		return nil, err
	}

	var (
		logger      = slog.Default()
		registry    = model.NewRegistry(cfg)
		embedder    = model.NewOllamaEmbedder(cfg.OllamaEmbeddingURL, cfg.OllamaEmbeddingModel)
		captioner   = model.NewLLaVA(cfg.OllamaVisionURL, cfg.OllamaVisionModel)
		transcriber = audio.NewClient(cfg.AssemblyAIBaseURL, cfg.AssemblyAIKey, cfg.PollInterval, cfg.PollDeadline)
		videos      = video.NewExtractor("yt-dlp", "temp_audio")
		searcher    = search.NewGoogleClient(search.DefaultGoogleBaseURL, cfg.GoogleAPIKey, cfg.GoogleSearchEngineID)
		extractor   = document.NewExtractor(logger)
		cache       = memory.NewPageCache(100, cfg.UploadTTL, nil)
		history     = memory.NewHistory()
		assembler   = prompt.NewAssembler(cfg.PromptBudget)
	)

	pdfHandler := api.NewPDFHandler(api.PDFHandlerDeps{
		Extractor: extractor,
		Embedder:  embedder,
		Indexer:   indexer,
		Cache:     cache,
		History:   history,
		Assembler: assembler,
		Models:    registry,
		Files:     files,
		ChunkSize: cfg.ChunkSize,
		TopK:      cfg.TopK,
		Budget:    cfg.PromptBudget,
	})

	var (
		app               = fiber.New(fiber.Config{ErrorHandler: api.ErrorHandler, BodyLimit: 50 * 1024 * 1024})
		checkHandler      = api.NewCheckHandler()
		promptHandler     = api.NewPromptHandler(registry)
		multimodalHandler = api.NewMultimodalHandler(transcriber, videos, captioner, registry, cfg.PromptBudget)
		searchHandler     = api.NewSearchHandler(searcher, registry, embedder, indexer, cfg.TopK)
	)

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: true,
	}))

	app.Post("/prompt", promptHandler.HandlePrompt)

	check := app.Group("/check")
	check.Get("/healthy", checkHandler.HandleHealthy)

	pdf := app.Group("/pdf")
	pdf.Post("/upload", pdfHandler.HandleUpload)
	pdf.Post("/ask", pdfHandler.HandleAsk)
	pdf.Get("/summary", pdfHandler.HandleSummary)
	pdf.Post("/recommendations", pdfHandler.HandleRecommendations)
	pdf.Get("/get-pdf/:pdf_id", pdfHandler.HandleGetPDF)

	multimodal := app.Group("/multimodal")
	multimodal.Post("/transcribe-audio", multimodalHandler.HandleTranscribeAudio)
	multimodal.Post("/extract-from-video", multimodalHandler.HandleExtractFromVideo)
	multimodal.Post("/analyze-image", multimodalHandler.HandleAnalyzeImage)

	searchGroup := app.Group("/search")
	searchGroup.Get("/google-search", searchHandler.HandleGoogleSearch)
	searchGroup.Post("/rag-search", searchHandler.HandleRAGSearch)
	searchGroup.Post("/chatbot", searchHandler.HandleChatbot)

	return &Server{
		listenAddr: cfg.ServerAddr,
		app:        app,
		files:      files,
		logger:     logger,
	}, nil
}

func (s *Server) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.files.Run(ctx, sweepInterval)

	s.logger.Info("server listening", "addr", s.listenAddr)
	if err := s.app.Listen(s.listenAddr); err != nil {
		s.logger.Error("error to start server", "error", err.Error())
		return err
	}
	return nil
}

func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if err := s.app.Shutdown(); err != nil {
		s.logger.Error("server shutdown failed", "error", err.Error())
	}
	s.logger.Info("server stopped")
}
