package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"spyosint/internal/aggregator"
	"spyosint/internal/models"
	"spyosint/internal/reporter"

	"github.com/spf13/cobra"
)

var (
	correlateLLM      bool
	correlateAnalysis string
	correlateOutput   string
	correlateFormat   string

	exportTitle  string
	exportFormat string
	exportOutput string
)

// bundle results file: an investigation, an export request or a bare result list
type bundle struct {
	Title   string                    `json:"title"`
	Results models.ResultList         `json:"results"`
	Report  *models.CorrelationReport `json:"report"`
}

func readBundle(path string) (*bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var b bundle
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &b.Results); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return &b, nil
	}
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &b, nil
}

var correlateCmd = &cobra.Command{
	Use:   "correlate <results.json>...",
	Short: "Correlate saved results and compute the risk report",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		format, err := reporter.ParseFormat(correlateFormat)
		if err != nil {
			return err
		}

		var results []models.Result
		for _, path := range args {
			b, err := readBundle(path)
			if err != nil {
				return err
			}
			results = append(results, b.Results...)
		}

		a, err := newApp(ctx, fixtureMode)
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Printf("[*] Correlating %d result(s)\n", len(results))
		report, err := a.aggregator.Run(ctx, aggregator.Request{
			Results:      results,
			UseLLM:       correlateLLM,
			AnalysisType: correlateAnalysis,
		})
		if err != nil {
			return err
		}

		fmt.Printf("[+] Risk score: %d/100 (%s)\n", report.RiskScore, aggregator.Level(report.RiskScore))
		fmt.Printf("[+] %d correlation(s), %d entit(ies)\n", len(report.Correlations), len(report.Entities))

		doc := reporter.NewDocument("Correlation Report", results, report)
		if correlateOutput != "" {
			if err := reporter.WriteFile(correlateOutput, format, doc); err != nil {
				return err
			}
			fmt.Printf("[+] Report written to %s\n", correlateOutput)
			return nil
		}
		fmt.Println()
		fmt.Println(report.SummaryText)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <results.json>",
	Short: "Render saved results as a report document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := reporter.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		b, err := readBundle(args[0])
		if err != nil {
			return err
		}

		title := b.Title
		if exportTitle != "" {
			title = exportTitle
		}
		doc := reporter.NewDocument(title, b.Results, b.Report)

		output := exportOutput
		if output == "-" {
			output = ""
		} else if output == "" {
			output = reporter.Filename(doc, format)
		}
		if err := reporter.WriteFile(output, format, doc); err != nil {
			return err
		}
		if output != "" {
			fmt.Printf("[+] %s report written to %s\n", format, output)
		}
		return nil
	},
}

func init() {
	correlateCmd.Flags().BoolVar(&correlateLLM, "llm", false, "delegate the summary to the LLM provider")
	correlateCmd.Flags().StringVar(&correlateAnalysis, "analysis-type", "complete", "analysis focus passed to the LLM")
	correlateCmd.Flags().StringVarP(&correlateOutput, "output", "o", "", "write the report to this file")
	correlateCmd.Flags().StringVarP(&correlateFormat, "format", "f", "markdown", "report format: json, markdown, html, xlsx, docx, pdf")

	exportCmd.Flags().StringVar(&exportTitle, "title", "", "report title")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "pdf", "report format: json, markdown, html, xlsx, docx, pdf")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: generated name, - for stdout)")
}
