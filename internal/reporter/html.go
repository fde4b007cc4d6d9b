package reporter

import (
	"fmt"
	"html"
	"io"
	"spyosint/internal/models"
	"strings"
)

const htmlStyle = `
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Ubuntu, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 1200px;
            margin: 0 auto;
            padding: 20px;
            background: #f5f5f5;
        }
        .container {
            background: white;
            padding: 30px;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
        }
        h1 { color: #2c3e50; border-bottom: 3px solid #3498db; padding-bottom: 10px; }
        h2 { color: #34495e; margin-top: 30px; border-left: 4px solid #3498db; padding-left: 15px; }
        h3 { color: #7f8c8d; margin-top: 20px; }
        .info-grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(250px, 1fr));
            gap: 15px;
            margin: 20px 0;
        }
        .info-card { background: #ecf0f1; padding: 15px; border-radius: 5px; border-left: 4px solid #3498db; }
        .info-card strong { color: #2c3e50; display: block; margin-bottom: 5px; }
        .summary { white-space: pre-wrap; background: #f8f9fa; padding: 15px; border-left: 3px solid #95a5a6; }
        .badge { display: inline-block; padding: 4px 8px; border-radius: 3px; font-size: 0.85em; color: white; }
        .risk-low { background: #27ae60; }
        .risk-medium { background: #f39c12; }
        .risk-high { background: #e67e22; }
        .risk-critical { background: #c0392b; }
        .timestamp { color: #7f8c8d; font-size: 0.9em; }
        table { width: 100%; border-collapse: collapse; margin: 15px 0; }
        th, td { padding: 10px; text-align: left; border-bottom: 1px solid #ddd; word-break: break-all; }
        th { background: #3498db; color: white; }
        tr:hover { background: #f5f5f5; }
    </style>`

// WriteHTML standalone HTML export of the document
func WriteHTML(w io.Writer, doc *Document) error {
	var b strings.Builder
	esc := html.EscapeString

	b.WriteString(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>` + esc(doc.Title) + `</title>` + htmlStyle + `
</head>
<body>
    <div class="container">
`)
	b.WriteString(fmt.Sprintf("<h1>%s</h1>\n", esc(doc.Title)))
	b.WriteString(fmt.Sprintf(`<p class="timestamp">Generated: %s</p>`+"\n", formatTime(doc.Generated)))

	b.WriteString(`<div class="info-grid">`)
	for _, f := range overview(doc) {
		b.WriteString(fmt.Sprintf(`<div class="info-card"><strong>%s</strong>%s</div>`, esc(f.Label), esc(f.Value)))
	}
	b.WriteString("</div>\n")

	if doc.Report != nil {
		b.WriteString("<h2>Correlation Analysis</h2>\n")
		if doc.Report.SummaryText != "" {
			b.WriteString(fmt.Sprintf(`<div class="summary">%s</div>`+"\n", esc(doc.Report.SummaryText)))
		}
		writeHTMLTable(&b, correlationHeader, correlationRows(doc))

		if len(doc.Report.Entities) > 0 {
			b.WriteString("<h3>Entities</h3>\n<table><thead><tr>")
			for _, h := range entityHeader {
				b.WriteString("<th>" + esc(h) + "</th>")
			}
			b.WriteString("</tr></thead><tbody>\n")
			for _, e := range doc.Report.Entities {
				b.WriteString(fmt.Sprintf(`<tr><td>%s</td><td>%s</td><td><span class="badge %s">%s</span></td></tr>`+"\n",
					esc(e.Name), esc(string(e.Type)), riskClass(e.RiskLevel), esc(string(e.RiskLevel))))
			}
			b.WriteString("</tbody></table>\n")
		}
	}

	if len(doc.Results) > 0 {
		b.WriteString(fmt.Sprintf("<h2>Results (%d)</h2>\n", len(doc.Results)))
	}
	for _, r := range doc.Results {
		s := describe(r)
		b.WriteString(fmt.Sprintf(`<h3 data-kind="%s">%s</h3>`+"\n", esc(string(s.Kind)), esc(s.Title)))
		if len(s.Fields) > 0 {
			b.WriteString(`<div class="info-grid">`)
			for _, f := range s.Fields {
				b.WriteString(fmt.Sprintf(`<div class="info-card"><strong>%s</strong>%s</div>`, esc(f.Label), esc(f.Value)))
			}
			b.WriteString("</div>\n")
		}
		for _, t := range s.Tables {
			b.WriteString(fmt.Sprintf("<h4>%s</h4>\n", esc(t.Name)))
			writeHTMLTable(&b, t.Header, t.Rows)
		}
	}

	b.WriteString(`    </div>
</body>
</html>
`)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeHTMLTable(b *strings.Builder, header []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	b.WriteString("<table><thead><tr>")
	for _, h := range header {
		b.WriteString("<th>" + html.EscapeString(h) + "</th>")
	}
	b.WriteString("</tr></thead><tbody>\n")
	for _, row := range rows {
		b.WriteString("<tr>")
		for _, cell := range row {
			b.WriteString("<td>" + html.EscapeString(cell) + "</td>")
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</tbody></table>\n")
}

func riskClass(l models.RiskLevel) string {
	switch l {
	case models.RiskCritical, models.RiskHigh, models.RiskMedium:
		return "risk-" + string(l)
	}
	return "risk-low"
}
