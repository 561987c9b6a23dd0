package extract

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/vtikhonov/cv-screener/internal/candidate"
)

// PDFs are passed to the scorer as-is; extraction only proves the file
// is a readable pdf and records its page count.
func fromPDF(doc *candidate.Document) (*Content, error) {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed

	if err := api.ValidateFile(doc.Path, cfg); err != nil {
		return nil, fmt.Errorf("validating pdf document %q: %w", doc.Name, err)
	}

	pages, err := api.PageCountFile(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("counting pdf pages for %q: %w", doc.Name, err)
	}

	if pages == 0 {
		return nil, fmt.Errorf("pdf document %q has no pages", doc.Name)
	}

	return &Content{
		Data:  doc.Data,
		MIME:  "application/pdf",
		Pages: pages,
	}, nil
}
