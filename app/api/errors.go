package api

import (
	"errors"
	"fmt"
	"log/slog"

	"brain/audio"
	"brain/document"
	"brain/model"
	"brain/store"
	"brain/uploads"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler converts every error escaping a handler into a
// well-formed JSON payload. Nothing crosses this boundary as a bare
// stack trace.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if apiErr, ok := err.(Error); ok {
		return c.Status(apiErr.Code).JSON(apiErr)
	}
	if valErr, ok := err.(ValidationError); ok {
		return c.Status(valErr.Status).JSON(valErr)
	}

	var nfErr *uploads.NotFoundError
	if errors.As(err, &nfErr) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":      nfErr.Error(),
			"pdf_id":     nfErr.ID,
			"candidates": nfErr.Candidates,
		})
	}

	var umErr *model.UnsupportedModelError
	if errors.As(err, &umErr) {
		return c.Status(fiber.StatusBadRequest).JSON(NewError(fiber.StatusBadRequest, umErr.Error()))
	}

	var apiErr Error
	switch {
	case errors.Is(err, store.ErrIndexNotFound):
		apiErr = NewError(fiber.StatusNotFound, "PDF not found or expired.")
	case errors.Is(err, document.ErrNoText):
		apiErr = NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, audio.ErrPollTimeout):
		apiErr = NewError(fiber.StatusGatewayTimeout, err.Error())
	default:
		var callErr *model.CallError
		if errors.As(err, &callErr) {
			apiErr = NewError(fiber.StatusBadGateway, callErr.Error())
		} else if fiberErr, ok := err.(*fiber.Error); ok {
			apiErr = NewError(fiberErr.Code, fiberErr.Message)
		} else {
			apiErr = NewError(fiber.StatusInternalServerError, err.Error())
		}
	}

	slog.Error("request failed", "code", apiErr.Code, "error", apiErr.Message)
	return c.Status(apiErr.Code).JSON(apiErr)
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

// Error implements the error interface
func (e Error) Error() string {
	return e.Message
}

func NewError(code int, err string) Error {
	return Error{
		Code:    code,
		Message: err,
	}
}

type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

func NewValidationError(errors map[string]string) ValidationError {
	return ValidationError{
		Status: fiber.StatusUnprocessableEntity,
		Errors: errors,
	}
}

func ErrBadRequest() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid JSON request",
	}
}

func ErrMissingField(field string) Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: fmt.Sprintf("missing %s", field),
	}
}
