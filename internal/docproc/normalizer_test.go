package docproc

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ioan-nomad/finante-engine/internal/common"
)

// fakeExtractor serves canned page text; RenderPage succeeds only when
// renderable is set.
type fakeExtractor struct {
	pages      []string
	hasText    bool
	renderable bool
}

func (f *fakeExtractor) Extract(_ context.Context, _ []byte, page int) (string, bool, error) {
	if page < 1 || page > len(f.pages) {
		return "", false, fmt.Errorf("page %d out of range", page)
	}
	return f.pages[page-1], f.hasText, nil
}

func (f *fakeExtractor) PageCount(_ context.Context, _ []byte) (int, error) {
	return len(f.pages), nil
}

func (f *fakeExtractor) RenderPage(_ context.Context, _ []byte, _ int) (image.Image, error) {
	if !f.renderable {
		return nil, common.ErrUnsupportedFormat
	}
	return testImage(), nil
}

func pdfDoc(name string) *RawDocument {
	return &RawDocument{Name: name, Data: []byte("%PDF-1.7 fake body")}
}

func newOCRQueueForTest(t *testing.T, engine *fakeOCR) *OCRQueue {
	t.Helper()
	q := NewOCRQueue(engine, 4)
	t.Cleanup(q.Close)
	return q
}

func TestNormalizeNativePDF(t *testing.T) {
	extractor := &fakeExtractor{
		pages: []string{
			"BANCA TRANSILVANIA Extras de cont pentru luna septembrie 2025",
			"05.09.2025 LIDL BUCURESTI -125.40 RON",
		},
		hasText: true,
	}
	n := NewNormalizer(extractor, nil)

	doc, err := n.Normalize(context.Background(), pdfDoc("statement.pdf"))
	require.NoError(t, err)

	assert.Equal(t, MethodNative, doc.Method)
	assert.Equal(t, 0.95, doc.Confidence)
	assert.Equal(t, 2, doc.Pages)
	assert.Contains(t, doc.Text, "BANCA TRANSILVANIA")
	assert.Contains(t, doc.Text, "LIDL BUCURESTI")
	assert.False(t, doc.FromCache)
}

func TestNormalizeScannedPDFWithOCR(t *testing.T) {
	extractor := &fakeExtractor{
		pages:      []string{"", ""},
		hasText:    false,
		renderable: true,
	}
	ocr := &fakeOCR{text: "05.09.2025 LIDL -125,40", available: true}
	n := NewNormalizer(extractor, newOCRQueueForTest(t, ocr))

	doc, err := n.Normalize(context.Background(), pdfDoc("scan.pdf"))
	require.NoError(t, err)

	assert.Equal(t, MethodOCR, doc.Method)
	assert.Equal(t, 0.9, doc.Confidence)
	assert.Equal(t, 2, ocr.callCount(), "one OCR call per page")
	assert.Contains(t, doc.Text, "LIDL")
}

func TestNormalizeScannedPDFWithoutRasterizerDegrades(t *testing.T) {
	// No page rasterizer: the normalizer salvages whatever native text
	// exists and marks the result low-confidence instead of failing.
	extractor := &fakeExtractor{
		pages:      []string{"faint text layer"},
		hasText:    false,
		renderable: false,
	}
	ocr := &fakeOCR{text: "unused", available: true}
	n := NewNormalizer(extractor, newOCRQueueForTest(t, ocr))

	doc, err := n.Normalize(context.Background(), pdfDoc("scan.pdf"))
	require.NoError(t, err)

	assert.Equal(t, MethodFallback, doc.Method)
	assert.Equal(t, 0.3, doc.Confidence)
	assert.Contains(t, doc.Text, "faint text layer")
	assert.Zero(t, ocr.callCount())
}

func TestNormalizeScannedPDFWithoutOCREngine(t *testing.T) {
	extractor := &fakeExtractor{
		pages:      []string{""},
		hasText:    false,
		renderable: true,
	}
	n := NewNormalizer(extractor, newOCRQueueForTest(t, &fakeOCR{available: false}))

	doc, err := n.Normalize(context.Background(), pdfDoc("scan.pdf"))
	require.NoError(t, err)
	assert.Equal(t, 0.3, doc.Confidence)
}

func TestNormalizePlainText(t *testing.T) {
	n := NewNormalizer(&fakeExtractor{}, nil)
	doc, err := n.Normalize(context.Background(), &RawDocument{
		Name: "statement.txt",
		MIME: "text/plain",
		Data: []byte("05.09.2025 Plata P0S LIDL -125.40"),
	})
	require.NoError(t, err)

	assert.Equal(t, MethodPlain, doc.Method)
	assert.Equal(t, 1.0, doc.Confidence)
	// The correction layer runs regardless of how the text was obtained.
	assert.Contains(t, doc.Text, "POS")
}

func TestNormalizeImage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage()))

	ocr := &fakeOCR{text: "05.09.2025 LIDL -10,00", available: true}
	n := NewNormalizer(&fakeExtractor{}, newOCRQueueForTest(t, ocr))

	doc, err := n.Normalize(context.Background(), &RawDocument{Name: "scan.png", Data: buf.Bytes()})
	require.NoError(t, err)
	assert.Equal(t, MethodOCR, doc.Method)
	assert.Contains(t, doc.Text, "LIDL")
}

func TestNormalizeCacheHit(t *testing.T) {
	extractor := &fakeExtractor{
		pages:   []string{strings.Repeat("native statement text ", 5)},
		hasText: true,
	}
	n := NewNormalizer(extractor, nil)
	raw := pdfDoc("statement.pdf")

	first, err := n.Normalize(context.Background(), raw)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	// Same bytes under a different name still hit the cache.
	again := &RawDocument{Name: "copy.pdf", Data: raw.Data}
	second, err := n.Normalize(context.Background(), again)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Text, second.Text)
}

func TestNormalizeErrors(t *testing.T) {
	n := NewNormalizer(&fakeExtractor{}, nil)
	ctx := context.Background()

	_, err := n.Normalize(ctx, &RawDocument{Name: "empty.pdf"})
	assert.ErrorIs(t, err, common.ErrDocumentUnreadable)

	_, err = n.Normalize(ctx, &RawDocument{Name: "a.zip", MIME: "application/zip", Data: []byte("PK")})
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)

	_, err = n.Normalize(ctx, &RawDocument{Name: "none.pdf", MIME: "application/pdf", Data: []byte("x")})
	assert.ErrorIs(t, err, common.ErrDocumentUnreadable)
}

func TestNormalizeCanceledContext(t *testing.T) {
	extractor := &fakeExtractor{pages: []string{"", ""}, hasText: false, renderable: true}
	ocr := &fakeOCR{text: "page", available: true}
	n := NewNormalizer(extractor, newOCRQueueForTest(t, ocr))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := n.Normalize(ctx, pdfDoc("scan.pdf"))
	assert.ErrorIs(t, err, context.Canceled)
}
