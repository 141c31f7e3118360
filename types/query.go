package types

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

type Validater interface {
	Validate() map[string]string
}

func Validate(v Validater) map[string]string {
	return v.Validate()
}

type PromptParams struct {
	Prompt string `json:"prompt" validate:"required"`
	Model  string `json:"model"`
}

// AskParams covers both ask variants: retrieval by pdf_id, or inline
// pdfText as sent by the chat frontend.
type AskParams struct {
	PDFID           string `json:"pdf_id"`
	Question        string `json:"question" validate:"required"`
	PDFText         string `json:"pdfText"`
	SelectedContext string `json:"selectedContext"`
	UserID          string `json:"userId"`
}

type RecommendationParams struct {
	Query   string `json:"query"`
	Context string `json:"context"`
	PDFID   string `json:"pdf_id"`
}

type ChatbotParams struct {
	Query        string    `json:"query" validate:"required"`
	Conversation []Message `json:"conversation"`
}

type RAGSearchParams struct {
	Query string `json:"query" validate:"required"`
	PDFID string `json:"pdf_id" validate:"required"`
}

func (params *PromptParams) Validate() map[string]string    { return validateStruct(params) }
func (params *AskParams) Validate() map[string]string       { return validateStruct(params) }
func (params *ChatbotParams) Validate() map[string]string   { return validateStruct(params) }
func (params *RAGSearchParams) Validate() map[string]string { return validateStruct(params) }

func validateStruct(v any) map[string]string {
	validate := validator.New()
	if err := validate.Struct(v); err != nil {
		errs := err.(validator.ValidationErrors)
		errors := make(map[string]string)
		for _, e := range errs {
			errors[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return errors
	}
	return nil
}

type UploadResponse struct {
	Success  bool     `json:"success"`
	PDFID    string   `json:"pdf_id,omitempty"`
	NumPages int      `json:"num_pages,omitempty"`
	Points   []string `json:"points,omitempty"`
	FullText string   `json:"fullText,omitempty"`
	Error    string   `json:"error,omitempty"`
}

type AskResponse struct {
	Answer string `json:"answer"`
}

type SummaryResponse struct {
	Summary string `json:"summary"`
}

type RecommendationsResponse struct {
	Recommendations []string `json:"recommendations"`
}

type TranscriptResponse struct {
	Text string `json:"text"`
}

type VideoResponse struct {
	Summary    string  `json:"summary"`
	Transcript string  `json:"transcript"`
	Title      string  `json:"title"`
	Duration   float64 `json:"duration"`
}

type CaptionResponse struct {
	Caption string `json:"caption"`
}

type RAGSearchResponse struct {
	Results []string `json:"results"`
}

type ChatbotResponse struct {
	Response string `json:"response"`
}

type PromptResponse struct {
	Response  string    `json:"response"`
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
}
