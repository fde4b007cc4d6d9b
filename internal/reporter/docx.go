package reporter

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

//go:embed template.docx
var docxTemplate []byte

const docxRule = "-------------------------------------------------------------"

// WriteDOCX fills the embedded Word template with the document text
func WriteDOCX(w io.Writer, doc *Document) error {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(docxTemplate), int64(len(docxTemplate)))
	if err != nil {
		return fmt.Errorf("failed to read template file: %w", err)
	}
	defer r.Close()

	editable := r.Editable()
	if err := editable.Replace("{{TITLE}}", doc.Title, -1); err != nil {
		return fmt.Errorf("failed to fill template: %w", err)
	}
	if err := editable.Replace("{{TIMESTAMP}}", formatTime(doc.Generated), -1); err != nil {
		return fmt.Errorf("failed to fill template: %w", err)
	}
	if err := editable.Replace("{{REPORT_CONTENT}}", docxContent(doc), -1); err != nil {
		return fmt.Errorf("failed to fill template: %w", err)
	}
	return editable.Write(w)
}

// docxContent plain-text body; the template run turns newlines into breaks
func docxContent(doc *Document) string {
	var content strings.Builder

	for _, f := range overview(doc) {
		content.WriteString(f.Label + ": " + f.Value + "\n")
	}
	content.WriteString("\n" + docxRule + "\n\n")

	if doc.Report != nil {
		content.WriteString("Correlation Analysis\n\n")
		if doc.Report.SummaryText != "" {
			content.WriteString(doc.Report.SummaryText + "\n\n")
		}
		for _, row := range correlationRows(doc) {
			content.WriteString(fmt.Sprintf("  • [%s %s] %s <-> %s via %s\n", row[0], row[1], row[2], row[3], row[4]))
		}
		if len(doc.Report.Entities) > 0 {
			content.WriteString("\nEntities\n")
			for _, e := range doc.Report.Entities {
				content.WriteString(fmt.Sprintf("  • %s (%s): %s\n", e.Name, e.Type, e.RiskLevel))
			}
		}
		content.WriteString("\n" + docxRule + "\n\n")
	}

	for _, r := range doc.Results {
		s := describe(r)
		content.WriteString(s.Title + "\n\n")
		for _, f := range s.Fields {
			content.WriteString(f.Label + ": " + f.Value + "\n")
		}
		for _, t := range s.Tables {
			content.WriteString(fmt.Sprintf("\n%s (%d)\n", t.Name, len(t.Rows)))
			for _, row := range t.Rows {
				content.WriteString("  • " + strings.Join(nonEmpty(row), " | ") + "\n")
			}
		}
		content.WriteString("\n")
	}
	return content.String()
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
