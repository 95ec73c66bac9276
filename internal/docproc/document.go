// Package docproc turns raw statement documents into normalized plain text.
package docproc

import (
	"crypto/sha256"
	"fmt"
	"net/http"
	"strings"
)

// RawDocument is an uploaded statement before any processing.
type RawDocument struct {
	Name string
	MIME string
	Data []byte
}

// ContentHash returns the cache key for this document's bytes.
func (d *RawDocument) ContentHash() string {
	hash := sha256.Sum256(d.Data)
	return fmt.Sprintf("%x", hash)
}

// DetectMIME returns the declared MIME type, or sniffs one from content.
func (d *RawDocument) DetectMIME() string {
	if d.MIME != "" {
		return d.MIME
	}
	if len(d.Data) >= 5 && string(d.Data[:5]) == "%PDF-" {
		return "application/pdf"
	}
	return http.DetectContentType(d.Data)
}

// Extraction methods.
const (
	MethodNative   = "native-text"
	MethodOCR      = "ocr"
	MethodPlain    = "plain-text"
	MethodFallback = "fallback"
)

// NormalizedDocument is the plain-text result of document normalization.
type NormalizedDocument struct {
	Text       string
	Method     string
	Confidence float64
	Pages      int
	FromCache  bool
}

// Lines splits the normalized text into trimmed, non-empty lines.
func (n *NormalizedDocument) Lines() []string {
	raw := strings.Split(n.Text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
