package reporter

import (
	"fmt"
	"io"
	"strings"
)

// WriteMarkdown Markdown export of the document
func WriteMarkdown(w io.Writer, doc *Document) error {
	var md strings.Builder

	md.WriteString(fmt.Sprintf("# %s\n\n", doc.Title))
	for _, f := range overview(doc) {
		md.WriteString(fmt.Sprintf("- **%s:** %s\n", f.Label, escapeMarkdown(f.Value)))
	}
	md.WriteString("\n")

	if doc.Report != nil {
		md.WriteString("## Correlation Analysis\n\n")
		if doc.Report.SummaryText != "" {
			md.WriteString(doc.Report.SummaryText)
			md.WriteString("\n\n")
		}
		writeMarkdownTable(&md, correlationHeader, correlationRows(doc))
		if rows := entityRows(doc); len(rows) > 0 {
			md.WriteString("### Entities\n\n")
			writeMarkdownTable(&md, entityHeader, rows)
		}
	}

	if len(doc.Results) > 0 {
		md.WriteString(fmt.Sprintf("## Results (%d)\n\n", len(doc.Results)))
	}
	for _, r := range doc.Results {
		s := describe(r)
		md.WriteString(fmt.Sprintf("### %s\n\n", s.Title))
		for _, f := range s.Fields {
			md.WriteString(fmt.Sprintf("- **%s:** %s\n", f.Label, escapeMarkdown(f.Value)))
		}
		md.WriteString("\n")
		for _, t := range s.Tables {
			md.WriteString(fmt.Sprintf("#### %s\n\n", t.Name))
			writeMarkdownTable(&md, t.Header, t.Rows)
		}
	}

	md.WriteString("---\n\n")
	md.WriteString(fmt.Sprintf("*Report generated by spyosint on %s*\n", formatTime(doc.Generated)))

	_, err := io.WriteString(w, md.String())
	return err
}

func writeMarkdownTable(md *strings.Builder, header []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	md.WriteString("| " + strings.Join(header, " | ") + " |\n")
	md.WriteString("|" + strings.Repeat("------|", len(header)) + "\n")
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = escapeMarkdown(cell)
		}
		md.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	md.WriteString("\n")
}

var markdownEscaper = strings.NewReplacer("|", "\\|", "\n", " ", "\r", "")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
