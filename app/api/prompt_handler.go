package api

import (
	"log/slog"
	"time"

	"brain/types"

	"github.com/gofiber/fiber/v2"
)

// PromptHandler routes a free-form prompt to a selectable backend.
type PromptHandler struct {
	models ModelRegistry
	logger *slog.Logger
}

func NewPromptHandler(models ModelRegistry) *PromptHandler {
	return &PromptHandler{
		models: models,
		logger: slog.Default(),
	}
}

// HandlePrompt sends the prompt to the requested model. An unknown
// model key is a 400 listing the valid keys, mapped by the error
// handler.
func (h *PromptHandler) HandlePrompt(c *fiber.Ctx) error {
	var params types.PromptParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	if errs := types.Validate(&params); len(errs) > 0 {
		return NewValidationError(errs)
	}

	client, err := h.models.Get(params.Model)
	if err != nil {
		return err
	}

	response, err := client.Generate(c.Context(), params.Prompt)
	if err != nil {
		return err
	}

	return c.JSON(types.PromptResponse{
		Response:  response,
		Model:     client.Name(),
		Timestamp: time.Now(),
	})
}
