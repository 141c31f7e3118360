package document

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
)

// ErrNoText means the file was a readable PDF but no page yielded any
// text. Callers must surface this to the user instead of proceeding
// with an empty document.
var ErrNoText = errors.New("no extractable text found in the PDF")

// Extractor produces page-level text from PDF files.
type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// ExtractPages returns the text of each page in order. Pages with no
// text are logged and skipped. The returned slice is empty only when
// ErrNoText is returned.
func (e *Extractor) ExtractPages(path string) ([]string, error) {
	// Catch corrupt uploads before parsing.
	if err := pdfapi.ValidateFile(path, nil); err != nil {
		return nil, fmt.Errorf("invalid PDF %s: %w", path, err)
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open PDF %s: %w", path, err)
	}
	defer f.Close()

	total := r.NumPage()
	e.logger.Info("opened PDF", "path", path, "pages", total)

	var pages []string
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			e.logger.Warn("unreadable page skipped", "path", path, "page", i)
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Warn("page text extraction failed, skipping", "path", path, "page", i, "error", err)
			continue
		}

		text = normalizeWhitespace(text)
		if text == "" {
			e.logger.Warn("no text found on page", "path", path, "page", i)
			continue
		}

		e.logger.Info("extracted page text", "page", i, "chars", len(text))
		pages = append(pages, text)
	}

	if len(pages) == 0 {
		return nil, ErrNoText
	}
	return pages, nil
}

var spaceRe = regexp.MustCompile(`\s+`)

func normalizeWhitespace(text string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}
