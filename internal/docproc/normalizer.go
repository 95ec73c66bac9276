package docproc

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"

	"github.com/ioan-nomad/finante-engine/internal/common"
	"github.com/ioan-nomad/finante-engine/internal/service"
)

// DefaultMinNativeTextChars is the probe threshold: a first page with at
// least this many extracted characters marks the whole document as native.
const DefaultMinNativeTextChars = 50

// fallbackConfidence marks output produced without a working OCR engine.
const fallbackConfidence = 0.3

// Normalizer turns raw documents into normalized plain text.
type Normalizer struct {
	extractor          service.TextExtractionService
	ocr                *OCRQueue
	cache              *resultCache
	minNativeTextChars int
}

// NewNormalizer creates a Normalizer using the given collaborators. The OCR
// queue may be shared across documents; pass the one owned by the engine.
func NewNormalizer(extractor service.TextExtractionService, ocr *OCRQueue) *Normalizer {
	return &Normalizer{
		extractor:          extractor,
		ocr:                ocr,
		cache:              newResultCache(),
		minNativeTextChars: DefaultMinNativeTextChars,
	}
}

// Normalize converts a raw document into corrected plain text. Identical
// content is served from cache. Unreadable input is a terminal error; a
// missing OCR engine degrades to a low-confidence fallback instead.
func (n *Normalizer) Normalize(ctx context.Context, doc *RawDocument) (*NormalizedDocument, error) {
	if len(doc.Data) == 0 {
		return nil, fmt.Errorf("%w: empty document", common.ErrDocumentUnreadable)
	}

	hash := doc.ContentHash()
	if cached := n.cache.get(hash); cached != nil {
		slog.Debug("normalizer cache hit", "name", doc.Name, "hash", hash[:12])
		return cached, nil
	}

	start := time.Now()
	mime := doc.DetectMIME()

	var result *NormalizedDocument
	var err error

	switch {
	case strings.HasPrefix(mime, "image/"):
		result, err = n.normalizeImage(ctx, doc)
	case mime == "application/pdf":
		result, err = n.normalizePDF(ctx, doc)
	case strings.HasPrefix(mime, "text/"):
		result = &NormalizedDocument{
			Text:       string(doc.Data),
			Method:     MethodPlain,
			Confidence: 1.0,
			Pages:      1,
		}
	default:
		return nil, fmt.Errorf("%w: %s", common.ErrUnsupportedFormat, mime)
	}
	if err != nil {
		return nil, err
	}

	result.Text = applyCorrections(result.Text)

	common.LogStage("normalize", result.Method, time.Since(start), result.Confidence)
	n.cache.put(hash, result)
	return result, nil
}

func (n *Normalizer) normalizeImage(ctx context.Context, doc *RawDocument) (*NormalizedDocument, error) {
	img, _, err := image.Decode(bytes.NewReader(doc.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDocumentUnreadable, err)
	}

	text, confidence, err := n.recognizePage(ctx, img)
	if err != nil {
		return nil, err
	}
	return &NormalizedDocument{
		Text:       text,
		Method:     MethodOCR,
		Confidence: confidence,
		Pages:      1,
	}, nil
}

func (n *Normalizer) normalizePDF(ctx context.Context, doc *RawDocument) (*NormalizedDocument, error) {
	pages, err := n.extractor.PageCount(ctx, doc.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDocumentUnreadable, err)
	}
	if pages == 0 {
		return nil, fmt.Errorf("%w: document has no pages", common.ErrDocumentUnreadable)
	}

	// Probe the first page: enough native text means the whole document
	// carries a text layer.
	probe, hasText, err := n.extractor.Extract(ctx, doc.Data, 1)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDocumentUnreadable, err)
	}

	if hasText && len(strings.TrimSpace(probe)) >= n.minNativeTextChars {
		return n.extractNative(ctx, doc.Data, pages)
	}

	return n.ocrPages(ctx, doc.Data, pages)
}

func (n *Normalizer) extractNative(ctx context.Context, data []byte, pages int) (*NormalizedDocument, error) {
	var b strings.Builder
	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, _, err := n.extractor.Extract(ctx, data, page)
		if err != nil {
			return nil, fmt.Errorf("failed to extract page %d: %w", page, err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	return &NormalizedDocument{
		Text:       b.String(),
		Method:     MethodNative,
		Confidence: 0.95,
		Pages:      pages,
	}, nil
}

// ocrPages converts each page to an image and OCRs it sequentially, averaging
// per-page confidence. Cancellation is checked between pages.
func (n *Normalizer) ocrPages(ctx context.Context, data []byte, pages int) (*NormalizedDocument, error) {
	var b strings.Builder
	var confidenceSum float64
	processed := 0

	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := n.extractor.RenderPage(ctx, data, page)
		if err != nil {
			slog.Warn("page rasterization unavailable, degrading",
				"page", page, "error", err)
			return n.fallback(ctx, data, pages)
		}

		text, confidence, err := n.recognizePage(ctx, img)
		if err != nil {
			return nil, err
		}

		b.WriteString(text)
		b.WriteString("\n")
		confidenceSum += confidence
		processed++
	}

	avg := 0.0
	if processed > 0 {
		avg = confidenceSum / float64(processed)
	}

	return &NormalizedDocument{
		Text:       b.String(),
		Method:     MethodOCR,
		Confidence: avg,
		Pages:      pages,
	}, nil
}

func (n *Normalizer) recognizePage(ctx context.Context, img image.Image) (string, float64, error) {
	if n.ocr == nil || !n.ocr.Available() {
		slog.Warn("ocr engine unavailable, using low-confidence fallback")
		return "", fallbackConfidence, nil
	}

	text, confidence, err := n.ocr.Submit(ctx, img)
	if err != nil {
		if ctx.Err() != nil {
			return "", 0, ctx.Err()
		}
		slog.Warn("ocr failed, using low-confidence fallback", "error", err)
		return "", fallbackConfidence, nil
	}
	return text, confidence, nil
}

// fallback salvages whatever native text exists, marked low-confidence.
func (n *Normalizer) fallback(ctx context.Context, data []byte, pages int) (*NormalizedDocument, error) {
	var b strings.Builder
	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, _, err := n.extractor.Extract(ctx, data, page)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	return &NormalizedDocument{
		Text:       b.String(),
		Method:     MethodFallback,
		Confidence: fallbackConfidence,
		Pages:      pages,
	}, nil
}
