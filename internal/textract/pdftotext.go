// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package textract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

const binPdftotext = "pdftotext"

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunPiped(ctx context.Context, name string, args []string, stdout io.Writer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunPiped(ctx context.Context, name string, args []string, stdout io.Writer) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

// PdftotextReader shells out to poppler's pdftotext, which keeps column
// layout better than the native parser on multi-column textbooks.
type PdftotextReader struct {
	exec executor
}

// NewPdftotextReader returns a reader backed by the pdftotext binary on PATH.
func NewPdftotextReader() *PdftotextReader {
	return &PdftotextReader{exec: &osExecutor{}}
}

// Available reports whether pdftotext is installed.
func (p *PdftotextReader) Available() bool {
	_, err := p.exec.LookPath(binPdftotext)
	return err == nil
}

// ReadText runs "pdftotext -layout <path> -". Pages are counted from the
// form feeds pdftotext writes between pages.
func (p *PdftotextReader) ReadText(ctx context.Context, path string) (string, int, error) {
	if !p.Available() {
		return "", 0, fmt.Errorf("%s not found on PATH", binPdftotext)
	}

	var out bytes.Buffer
	args := []string{"-layout", path, "-"}
	if err := p.exec.RunPiped(ctx, binPdftotext, args, &out); err != nil {
		return "", 0, fmt.Errorf("running %s on %s: %w", binPdftotext, path, err)
	}

	text := out.String()
	pages := strings.Count(text, "\f")
	if pages == 0 && strings.TrimSpace(text) != "" {
		pages = 1
	}
	return strings.ReplaceAll(text, "\f", "\n\n"), pages, nil
}
