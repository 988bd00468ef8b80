// Package pdfextract pulls plain text out of PDF files. Extraction is
// page by page so chunk citations can point a reader to the right page.
package pdfextract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractText reads all of r and extracts plain text, prefixing each
// page with a "--- Page N ---" marker. Pages without extractable text
// are skipped. Encrypted or malformed PDFs fail the initial parse.
func ExtractText(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read pdf failed: %w", err)
	}
	return extract(b)
}

// ExtractBytes is ExtractText for an in-memory PDF.
func ExtractBytes(b []byte) (string, error) {
	return extract(b)
}

// Validate reports whether b carries the PDF magic header. Full
// structural validation happens during extraction.
func Validate(b []byte) bool {
	return bytes.HasPrefix(b, []byte("%PDF-"))
}

func extract(b []byte) (string, error) {
	if len(b) == 0 {
		return "", fmt.Errorf("empty pdf input")
	}
	reader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", fmt.Errorf("parse pdf failed: %w", err)
	}

	var sb strings.Builder
	fonts := make(map[string]*pdf.Font)
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			// A single broken page should not sink the document.
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&sb, "\n--- Page %d ---\n%s", pageNum, text)
	}
	return strings.TrimSpace(sb.String()), nil
}
