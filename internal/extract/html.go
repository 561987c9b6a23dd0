package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/vtikhonov/cv-screener/internal/candidate"
)

func fromHTML(doc *candidate.Document) (*Content, error) {
	parsed, err := goquery.NewDocumentFromReader(bytes.NewReader(doc.Data))
	if err != nil {
		return nil, fmt.Errorf("parsing html document %q: %w", doc.Name, err)
	}

	parsed.Find("script, style, noscript").Remove()

	text := normalizeWhitespace(parsed.Text())
	if text == "" {
		return nil, fmt.Errorf("document %q contains no text", doc.Name)
	}

	return &Content{
		Text:      text,
		MIME:      "text/plain",
		PlainText: true,
	}, nil
}

// normalizeWhitespace collapses runs of spaces within lines and drops
// blank lines, keeping line structure intact.
func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
