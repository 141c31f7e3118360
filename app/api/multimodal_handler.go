package api

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"brain/audio"
	"brain/model"
	"brain/prompt"
	"brain/types"
	"brain/video"

	"github.com/gofiber/fiber/v2"
)

// Transcriber is the transcription gateway used by the audio and
// video endpoints.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader) (*audio.Transcript, error)
}

// VideoExtractor pulls the audio track and metadata out of a video URL.
type VideoExtractor interface {
	ExtractAudio(ctx context.Context, videoURL string) (*video.Media, error)
}

type MultimodalHandler struct {
	transcriber Transcriber
	videos      VideoExtractor
	captioner   model.Captioner
	models      ModelRegistry
	budget      int
	logger      *slog.Logger
}

func NewMultimodalHandler(transcriber Transcriber, videos VideoExtractor, captioner model.Captioner, models ModelRegistry, budget int) *MultimodalHandler {
	return &MultimodalHandler{
		transcriber: transcriber,
		videos:      videos,
		captioner:   captioner,
		models:      models,
		budget:      budget,
		logger:      slog.Default(),
	}
}

// HandleTranscribeAudio transcribes an uploaded audio file. An upstream
// error status becomes an error body on a success status, matching the
// service's contract; only timeouts and transport failures surface as
// HTTP errors.
func (h *MultimodalHandler) HandleTranscribeAudio(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return ErrBadRequest()
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	transcript, err := h.transcriber.Transcribe(c.Context(), file)
	if err != nil {
		var trErr *audio.TranscriptionError
		if errors.As(err, &trErr) {
			return c.JSON(fiber.Map{"error": trErr.Message})
		}
		return err
	}

	return c.JSON(types.TranscriptResponse{Text: transcript.Text})
}

// HandleExtractFromVideo downloads a video's audio track, transcribes
// it and summarizes the transcript.
func (h *MultimodalHandler) HandleExtractFromVideo(c *fiber.Ctx) error {
	videoURL := c.FormValue("video_url")
	if videoURL == "" {
		return ErrMissingField("video_url")
	}

	media, err := h.videos.ExtractAudio(c.Context(), videoURL)
	if err != nil {
		return c.JSON(fiber.Map{"error": err.Error()})
	}
	defer os.Remove(media.AudioPath)

	audioFile, err := os.Open(media.AudioPath)
	if err != nil {
		return c.JSON(fiber.Map{"error": err.Error()})
	}
	defer audioFile.Close()

	transcript, err := h.transcriber.Transcribe(c.Context(), audioFile)
	if err != nil {
		var trErr *audio.TranscriptionError
		if errors.As(err, &trErr) {
			return c.JSON(fiber.Map{"error": trErr.Message})
		}
		return err
	}

	summary, err := h.summarizeTranscript(c, transcript.Text)
	if err != nil {
		h.logger.Error("transcript summary failed", "error", err)
		summary = ""
	}

	return c.JSON(types.VideoResponse{
		Summary:    summary,
		Transcript: transcript.Text,
		Title:      media.Title,
		Duration:   media.Duration,
	})
}

func (h *MultimodalHandler) summarizeTranscript(c *fiber.Ctx, transcript string) (string, error) {
	client, err := h.models.Get(model.DefaultModel)
	if err != nil {
		return "", err
	}
	summaryPrompt := fmt.Sprintf("Please provide a concise summary of the following video transcript:\n\n%s\n\nSummary:",
		prompt.TrimTokens(transcript, h.budget))
	return client.Generate(c.Context(), summaryPrompt)
}

// HandleAnalyzeImage captions an uploaded image.
func (h *MultimodalHandler) HandleAnalyzeImage(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return ErrBadRequest()
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	caption, err := h.captioner.Caption(c.Context(), base64.StdEncoding.EncodeToString(data))
	if err != nil {
		return c.JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(types.CaptionResponse{Caption: caption})
}
