// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package textract

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFReader extracts the embedded text layer with the pure-Go
// ledongthuc/pdf parser. Scanned, image-only pages yield no text.
type PDFReader struct{}

// ReadText reads every page's plain text, separated by blank lines.
func (PDFReader) ReadText(ctx context.Context, path string) (text string, pages int, err error) {
	// The parser panics on some malformed files; surface that as an error.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parsing pdf %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	pages = r.NumPage()
	parts := make([]string, 0, pages)

	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			return "", 0, fmt.Errorf("reading pdf page %d: %w", i, err)
		}
		if trimmed := strings.TrimSpace(pageText); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}

	return strings.Join(parts, "\n\n"), pages, nil
}
