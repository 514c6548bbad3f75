// Package source loads raw FAQ text from local files, PDFs, and web pages.
// Sources only produce text; parsing stays with the faq package.
package source

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// maxRemoteSize caps how much of a remote page is read.
const maxRemoteSize = 10 << 20

// Loader resolves a FAQ source reference to its text content.
type Loader struct {
	httpClient *http.Client
}

// New creates a Loader with a 30s HTTP timeout for remote sources.
func New() *Loader {
	return &Loader{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Load dispatches on the reference: http:// and https:// URLs are fetched
// and reduced to visible text, paths ending in .pdf are extracted as plain
// text, and anything else is read as a UTF-8 text file.
func (l *Loader) Load(ctx context.Context, ref string) (string, error) {
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return l.fetchPage(ctx, ref)
	case strings.HasSuffix(strings.ToLower(ref), ".pdf"):
		return loadPDF(ref)
	default:
		return loadFile(ref)
	}
}

func loadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

func loadPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	text, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(text); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return buf.String(), nil
}
