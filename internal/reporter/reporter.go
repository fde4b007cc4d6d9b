// Package reporter renders results and correlation reports as exportable documents.
package reporter

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"spyosint/internal/models"
	"strings"
	"time"
)

// Format export document format
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatExcel    Format = "xlsx"
	FormatDOCX     Format = "docx"
	FormatPDF      Format = "pdf"
)

// Formats every supported format, in display order
var Formats = []Format{FormatJSON, FormatMarkdown, FormatHTML, FormatExcel, FormatDOCX, FormatPDF}

// Document what gets exported: a titled set of results and an optional report
type Document struct {
	Title     string                    `json:"title"`
	Generated time.Time                 `json:"generatedAt"`
	Results   []models.Result           `json:"results"`
	Report    *models.CorrelationReport `json:"report,omitempty"`
}

// NewDocument stamps the generation time and defaults the title
func NewDocument(title string, results []models.Result, report *models.CorrelationReport) *Document {
	if strings.TrimSpace(title) == "" {
		title = "OSINT Investigation"
	}
	if results == nil {
		results = []models.Result{}
	}
	return &Document{Title: title, Generated: time.Now().UTC(), Results: results, Report: report}
}

// ParseFormat accepts format names and common aliases ("md", "excel", "htm")
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	case "xlsx", "excel":
		return FormatExcel, nil
	case "docx", "word":
		return FormatDOCX, nil
	case "pdf":
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: unsupported export format %q", models.ErrInvalidInput, s)
}

// ContentType MIME type served for the format
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/json"
}

// Extension file extension including the dot
func (f Format) Extension() string {
	if f == FormatMarkdown {
		return ".md"
	}
	return "." + string(f)
}

// Write renders doc in the given format
func Write(w io.Writer, format Format, doc *Document) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, doc)
	case FormatMarkdown:
		return WriteMarkdown(w, doc)
	case FormatHTML:
		return WriteHTML(w, doc)
	case FormatExcel:
		return WriteExcel(w, doc)
	case FormatDOCX:
		return WriteDOCX(w, doc)
	case FormatPDF:
		return WritePDF(w, doc)
	}
	return fmt.Errorf("%w: unsupported export format %q", models.ErrInvalidInput, format)
}

// WriteFile renders doc to filename, creating its directory.
// An empty filename writes text formats to stdout.
func WriteFile(filename string, format Format, doc *Document) error {
	if filename == "" {
		switch format {
		case FormatJSON, FormatMarkdown, FormatHTML:
			return Write(os.Stdout, format, doc)
		}
		return fmt.Errorf("filename is required for %s output", format)
	}

	var buf bytes.Buffer
	if err := Write(&buf, format, doc); err != nil {
		return err
	}

	dir := filepath.Dir(filename)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", filename, err)
		}
	}
	return os.WriteFile(filename, buf.Bytes(), 0644)
}

// Filename suggested download name for the document
func Filename(doc *Document, format Format) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '_'
	}, doc.Title)
	slug = strings.Trim(slug, "_.")
	if slug == "" {
		slug = "osint"
	}
	return fmt.Sprintf("%s_%s%s", slug, doc.Generated.Format("20060102_150405"), format.Extension())
}
