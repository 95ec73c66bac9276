package docproc

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/ioan-nomad/finante-engine/internal/common"
)

// PDFExtractor implements service.TextExtractionService over native PDF text
// layers.
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF text extraction collaborator.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// PageCount reports the number of pages in the document.
func (e *PDFExtractor) PageCount(_ context.Context, data []byte) (int, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("failed to open pdf: %w", err)
	}
	return r.NumPage(), nil
}

// Extract returns the text layer of the given page (1-based).
func (e *PDFExtractor) Extract(_ context.Context, data []byte, page int) (string, bool, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", false, fmt.Errorf("failed to open pdf: %w", err)
	}
	if page < 1 || page > r.NumPage() {
		return "", false, fmt.Errorf("page %d out of range (1-%d)", page, r.NumPage())
	}

	p := r.Page(page)
	if p.V.IsNull() {
		return "", false, nil
	}

	text, err := p.GetPlainText(nil)
	if err != nil {
		// A page without a readable text layer is not an error; it just
		// means OCR is needed.
		return "", false, nil
	}

	return text, strings.TrimSpace(text) != "", nil
}

// RenderPage is not supported by the native extractor; scanned PDFs degrade
// to the normalizer's low-confidence fallback.
func (e *PDFExtractor) RenderPage(_ context.Context, _ []byte, _ int) (image.Image, error) {
	return nil, fmt.Errorf("%w: pdf rasterization not supported", common.ErrUnsupportedFormat)
}
