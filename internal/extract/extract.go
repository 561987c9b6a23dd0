// Package extract normalizes candidate documents into scoreable content:
// plain text where the format allows it, a binary payload plus mime type
// where it does not.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/vtikhonov/cv-screener/internal/candidate"
)

// Content is the normalized payload produced from one document.
type Content struct {
	// Text holds the decoded content when PlainText is true.
	Text string
	// Data and MIME describe the binary payload when PlainText is false.
	Data      []byte
	MIME      string
	PlainText bool
	// Pages is set for paginated formats, zero otherwise.
	Pages int
}

// Extract normalizes the document content based on its file extension.
// It is deterministic for a given document and never mutates it.
func Extract(doc *candidate.Document) (*Content, error) {
	if doc == nil {
		return nil, errors.New("document is required")
	}

	if len(doc.Data) == 0 {
		return nil, fmt.Errorf("document %q is empty", doc.Name)
	}

	switch strings.ToLower(filepath.Ext(doc.Name)) {
	case ".txt", ".md", ".json":
		return fromText(doc)
	case ".html", ".htm":
		return fromHTML(doc)
	case ".pdf":
		return fromPDF(doc)
	default:
		return nil, fmt.Errorf("unsupported document type %q", filepath.Ext(doc.Name))
	}
}

func fromText(doc *candidate.Document) (*Content, error) {
	if !utf8.Valid(doc.Data) {
		return nil, fmt.Errorf("document %q is not valid utf-8 text", doc.Name)
	}

	text := strings.TrimSpace(string(doc.Data))
	if text == "" {
		return nil, fmt.Errorf("document %q contains no text", doc.Name)
	}

	return &Content{
		Text:      text,
		MIME:      "text/plain",
		PlainText: true,
	}, nil
}
