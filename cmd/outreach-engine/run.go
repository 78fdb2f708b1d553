// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/outreach-engine/internal/campaign"
	"github.com/mesh-intelligence/outreach-engine/internal/compose"
	"github.com/mesh-intelligence/outreach-engine/internal/leads"
	"github.com/mesh-intelligence/outreach-engine/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run [queries...]",
	Short: "Run lead search, composition, and campaign indexing in sequence",
	Long: `Run executes the pipeline stages in order: search for leads, compose
an email per lead, and index the results into the campaign store. The
run stops at the first failed stage.

Sending is deliberately excluded; deliver the campaign with
"outreach-engine send" after reviewing a test email.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringSlice("query", nil, "keyword query (repeatable)")
	runCmd.Flags().Float64("lat", 0, "search area center latitude")
	runCmd.Flags().Float64("lng", 0, "search area center longitude")
	runCmd.Flags().Int("zoom", 0, "map zoom level defining the search radius (default 10)")
	runCmd.Flags().String("language", "", "result language code (e.g. en)")
	runCmd.Flags().String("region", "", "region bias code (e.g. de)")
	runCmd.Flags().StringSlice("subtypes", nil, "business category filter (repeatable)")
	runCmd.Flags().Int("max-results", 0, "per-query result limit (API max 100)")
	runCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	runCmd.Flags().Duration("delay", 0, "delay between launching per-query requests (default 1s)")
	runCmd.Flags().String("api-key", "", "RapidAPI key (default: .secrets/rapidapi-key)")
	runCmd.Flags().Bool("no-contacts", false, "skip email and social contact extraction")
	runCmd.Flags().String("model", "", "AI model identifier (default "+defaultModel+")")
	runCmd.Flags().Int("max-tokens", 0, "response token cap (default 1024)")
	runCmd.Flags().Float64("temperature", 0, "sampling temperature (default 0.7)")
	runCmd.Flags().Int("tokens-per-minute", 0, "AI API token budget per minute (default 6000)")
	runCmd.Flags().Int("max-retries", 0, "retry attempts for failed API calls (default 3)")
	runCmd.Flags().String("groq-api-key", "", "Groq API key (default: .secrets/groq-api-key)")
	runCmd.Flags().String("from", "", "sender address recorded on each draft")

	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// Stage 1: lead search.
	leadsCfg, err := leadsConfig(cmd, args)
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, "=== leads ===")
	start := time.Now()

	backend := &leads.LocalBusinessBackend{
		Client: &http.Client{Timeout: leadsCfg.Timeout},
		APIKey: leadsCfg.APIKey,
	}
	out, err := leads.Search(ctx, backend, leadsCfg, os.Stderr)
	if err != nil {
		return fmt.Errorf("leads stage: %w", err)
	}
	if err := leads.WriteCSV(out.Leads, compose.LeadsCSVPath(leadsCfg.DataDir)); err != nil {
		return fmt.Errorf("leads stage: %w", err)
	}
	fmt.Fprintf(os.Stdout, "collected %d leads in %s\n\n", len(out.Leads), time.Since(start).Round(time.Second))

	// Stage 2: composition. --api-key is the RapidAPI key here, so the
	// Groq key comes in through --groq-api-key.
	composeCfg, err := composeConfigFromKey(cmd, "groq-api-key")
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, "=== compose ===")
	start = time.Now()

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	aiBackend := &compose.GroqBackend{
		APIKey:      composeCfg.APIKey,
		Model:       composeCfg.Model,
		MaxTokens:   composeCfg.MaxTokens,
		Temperature: composeCfg.Temperature,
		Profile:     composeCfg.Sender,
		Client:      &http.Client{Timeout: timeout},
	}
	limiter := compose.NewTokenRateLimiter(composeCfg.TokensPerMinute)

	summary, err := compose.ComposeAll(ctx, aiBackend, limiter, composeCfg, os.Stdout)
	if err != nil {
		return fmt.Errorf("compose stage: %w", err)
	}
	if summary.HasFailures() {
		return fmt.Errorf("compose stage: %d email(s) failed", summary.Failed)
	}
	fmt.Fprintf(os.Stdout, "composed in %s\n\n", time.Since(start).Round(time.Second))

	// Stage 3: campaign indexing.
	fmt.Fprintln(os.Stdout, "=== campaign ===")
	store, err := campaign.NewStore(types.CampaignConfig{DataDir: dataDir(cmd)})
	if err != nil {
		return fmt.Errorf("campaign stage: %w", err)
	}
	defer store.Close()

	ingestSummary, err := store.Ingest(ctx, os.Stdout)
	if err != nil {
		return fmt.Errorf("campaign stage: %w", err)
	}
	if ingestSummary.Failed > 0 {
		return fmt.Errorf("campaign stage: %d source(s) failed indexing", ingestSummary.Failed)
	}

	fmt.Fprintln(os.Stdout, "\npipeline complete; review with 'outreach-engine send --test' before delivering")
	return nil
}
