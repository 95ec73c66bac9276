package docproc

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// minOCRHeight is the height below which pages are upscaled before OCR.
const minOCRHeight = 1200

// TesseractEngine implements service.OCREngine using a local Tesseract
// installation via gosseract.
type TesseractEngine struct {
	language  string
	checkOnce sync.Once
	available bool
}

// NewTesseractEngine creates an OCR engine for the given language
// (e.g. "ron+eng").
func NewTesseractEngine(language string) *TesseractEngine {
	if language == "" {
		language = "ron+eng"
	}
	return &TesseractEngine{language: language}
}

// Available reports whether a Tesseract installation is usable.
func (t *TesseractEngine) Available() bool {
	t.checkOnce.Do(func() {
		langs, err := gosseract.GetAvailableLanguages()
		t.available = err == nil && len(langs) > 0
	})
	return t.available
}

// Recognize preprocesses one page image and runs Tesseract over it.
func (t *TesseractEngine) Recognize(ctx context.Context, page image.Image) (string, float64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	prepared := t.preprocess(page)

	var buf bytes.Buffer
	if err := png.Encode(&buf, prepared); err != nil {
		return "", 0, fmt.Errorf("failed to encode page: %w", err)
	}

	client := gosseract.NewClient()
	defer func() { _ = client.Close() }()

	if err := client.SetLanguage(t.language); err != nil {
		return "", 0, fmt.Errorf("failed to set ocr language: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", 0, fmt.Errorf("failed to set ocr image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", 0, fmt.Errorf("ocr failed: %w", err)
	}

	return text, t.confidence(client), nil
}

// preprocess converts to grayscale and upscales small pages, which measurably
// improves Tesseract accuracy on phone photos of statements.
func (t *TesseractEngine) preprocess(img image.Image) image.Image {
	gray := imaging.Grayscale(img)
	if gray.Bounds().Dy() < minOCRHeight {
		gray = imaging.Resize(gray, 0, minOCRHeight, imaging.Lanczos)
	}
	return gray
}

// confidence averages Tesseract's per-word confidences, scaled to [0,1].
func (t *TesseractEngine) confidence(client *gosseract.Client) float64 {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0.5
	}

	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return sum / float64(len(boxes)) / 100.0
}
