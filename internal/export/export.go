package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mkoval/faqforge/internal/faq"
)

// DefaultFileName is the well-known export file name inside the data directory.
const DefaultFileName = "chatbot_export.json"

// Business identifies the business a chatbot was built for.
type Business struct {
	Name     string `json:"name"`
	Industry string `json:"industry"`
}

// Document is the exported integration payload: business metadata plus the
// user's QA pairs in input order.
type Document struct {
	BusinessInfo Business   `json:"business_info"`
	QAPairs      []faq.Pair `json:"qa_pairs"`
}

// Exporter writes chatbot data as JSON for downstream integrations. The
// directory is the default destination; startup creates it, not the exporter.
type Exporter struct {
	dir string
}

// New creates an Exporter that defaults to writing into dir.
func New(dir string) *Exporter {
	return &Exporter{dir: dir}
}

// Export writes the business metadata and QA pairs to dest as indented UTF-8
// JSON. An empty dest selects DefaultFileName inside the exporter's
// directory. An existing file at the destination is overwritten without
// warning; there is no merge and no versioning. Returns the path written.
func (e *Exporter) Export(biz Business, pairs []faq.Pair, dest string) (string, error) {
	if dest == "" {
		dest = filepath.Join(e.dir, DefaultFileName)
	}

	doc := Document{BusinessInfo: biz, QAPairs: pairs}
	if doc.QAPairs == nil {
		// Serialize an empty list, not null.
		doc.QAPairs = []faq.Pair{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding export document: %w", err)
	}

	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("writing export file: %w", err)
	}
	return dest, nil
}
