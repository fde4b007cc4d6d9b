package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"spyosint/internal/classifier"
	"spyosint/internal/collector"
	"spyosint/internal/models"
	"spyosint/internal/reporter"
	"spyosint/internal/storage"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	classifyContext string

	lookupType      string
	lookupProviders []string
	lookupMode      string
	lookupPlatforms []string
	lookupOutput    string
	lookupFormat    string
	lookupSave      bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify <query>",
	Short: "Show the query type inferred for an input",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := classifier.FromContext(args[0], classifyContext)
		fmt.Printf("[+] %q is a %s query\n", q.RawValue, q.InferredType)
		return nil
	},
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <query>",
	Short: "Query every provider that accepts the input and print the outcomes",
	Args:  cobra.ExactArgs(1),
	RunE:  runLookup,
}

func init() {
	classifyCmd.Flags().StringVar(&classifyContext, "context", "search", "call site: search or profile")

	lookupCmd.Flags().StringVarP(&lookupType, "type", "t", "", "override the inferred query type (url, ip, domain, hash, username, search)")
	lookupCmd.Flags().StringSliceVarP(&lookupProviders, "providers", "p", nil, "providers to query (default: every provider accepting the type)")
	lookupCmd.Flags().StringVar(&lookupMode, "mode", "parallel", "fan-out mode: parallel or sequential")
	lookupCmd.Flags().StringSliceVar(&lookupPlatforms, "platforms", nil, "social platforms to probe")
	lookupCmd.Flags().StringVarP(&lookupOutput, "output", "o", "", "write a report to this file")
	lookupCmd.Flags().StringVarP(&lookupFormat, "format", "f", "json", "report format: json, markdown, html, xlsx, docx, pdf")
	lookupCmd.Flags().BoolVar(&lookupSave, "save", false, "save the results as an investigation")
}

func runLookup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, fixtureMode)
	if err != nil {
		return err
	}
	defer a.Close()

	q := classifier.ForSearch(args[0])
	if lookupType != "" {
		t := models.QueryType(lookupType)
		if !t.Valid() {
			return fmt.Errorf("unknown query type %q", lookupType)
		}
		q.InferredType = t
	}
	mode, err := collector.ParseMode(lookupMode)
	if err != nil {
		return err
	}
	format, err := reporter.ParseFormat(lookupFormat)
	if err != nil {
		return err
	}

	var ids []models.ProviderID
	for _, p := range lookupProviders {
		ids = append(ids, models.ProviderID(strings.ToLower(p)))
	}
	if len(lookupPlatforms) > 0 {
		ctx = collector.WithPlatforms(ctx, lookupPlatforms)
	}

	targets := a.registry.Targets(q, ids)
	fmt.Printf("[*] Looking up %q as %s on %d provider(s)\n", q.RawValue, q.InferredType, len(targets))

	outcomes := a.registry.RunAll(ctx, q, targets, mode)
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Printf("[!] %s: %s (%s)\n", o.Provider, o.Error.Message, o.Error.Kind)
			continue
		}
		fmt.Printf("[+] %s: %s result in %s\n", o.Provider, o.Result.Header().Kind, o.Duration.Round(time.Millisecond))
	}

	results := collector.Succeeded(outcomes)
	fmt.Printf("[*] %d/%d provider(s) succeeded\n", len(results), len(outcomes))

	if lookupSave {
		repo, err := storage.Open(ctx, a.cfg.Database.URL, a.logger)
		if err != nil {
			return err
		}
		defer repo.Close()
		inv := &models.Investigation{Query: q, Results: results}
		if err := repo.Save(ctx, inv); err != nil {
			return err
		}
		fmt.Printf("[+] Investigation saved: %s\n", inv.ID)
	}

	doc := reporter.NewDocument(q.RawValue, results, nil)
	if lookupOutput != "" {
		if err := reporter.WriteFile(lookupOutput, format, doc); err != nil {
			return err
		}
		fmt.Printf("[+] Report written to %s\n", lookupOutput)
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(outcomes)
}
