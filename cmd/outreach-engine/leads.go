// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/outreach-engine/internal/compose"
	"github.com/mesh-intelligence/outreach-engine/internal/leads"
	"github.com/mesh-intelligence/outreach-engine/pkg/types"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultDelay     = 1 * time.Second
	defaultUserAgent = "outreach-engine/0.1"
)

var leadsCmd = &cobra.Command{
	Use:   "leads [queries...]",
	Short: "Search the business-data API for leads",
	Long: `Leads queries the local business data API for each configured keyword
query, fans the requests out concurrently, deduplicates results across
queries, and ranks them by reputation (rating weighted with review
count). The merged set is written to data/leads/leads.csv together with
a YAML query record.

Queries come from arguments, the --query flag, or the leads.queries list
in the config file.`,
	RunE: runLeads,
}

func init() {
	leadsCmd.Flags().StringSlice("query", nil, "keyword query (repeatable)")
	leadsCmd.Flags().Float64("lat", 0, "search area center latitude")
	leadsCmd.Flags().Float64("lng", 0, "search area center longitude")
	leadsCmd.Flags().Int("zoom", 0, "map zoom level defining the search radius (default 10)")
	leadsCmd.Flags().String("language", "", "result language code (e.g. en)")
	leadsCmd.Flags().String("region", "", "region bias code (e.g. de)")
	leadsCmd.Flags().StringSlice("subtypes", nil, "business category filter (repeatable)")
	leadsCmd.Flags().Int("max-results", 0, "per-query result limit (API max 100)")
	leadsCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	leadsCmd.Flags().Duration("delay", 0, "delay between launching per-query requests (default 1s)")
	leadsCmd.Flags().String("api-key", "", "RapidAPI key (default: .secrets/rapidapi-key)")
	leadsCmd.Flags().Bool("no-contacts", false, "skip email and social contact extraction")
	leadsCmd.Flags().Bool("json", false, "output results as JSON instead of a table")

	rootCmd.AddCommand(leadsCmd)
}

func runLeads(cmd *cobra.Command, args []string) error {
	cfg, err := leadsConfig(cmd, args)
	if err != nil {
		return err
	}

	backend := &leads.LocalBusinessBackend{
		Client: &http.Client{Timeout: cfg.Timeout},
		APIKey: cfg.APIKey,
	}

	out, err := leads.Search(context.Background(), backend, cfg, os.Stderr)
	if err != nil {
		return err
	}

	csvPath := compose.LeadsCSVPath(cfg.DataDir)
	if err := leads.WriteCSV(out.Leads, csvPath); err != nil {
		return fmt.Errorf("writing leads CSV: %w", err)
	}

	queryPath := filepath.Join(cfg.DataDir, "leads", "queries.yaml")
	if err := leads.WriteQueryFile(queryPath, cfg, out); err != nil {
		return fmt.Errorf("writing query record: %w", err)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		return leads.FormatJSON(out, os.Stdout)
	}
	leads.FormatTable(out, os.Stdout)
	fmt.Fprintf(os.Stdout, "\nSaved %d leads to %s\n", len(out.Leads), csvPath)
	return nil
}

// leadsConfig merges flags, config file values, and secrets into the
// stage configuration. Flags win over the config file.
func leadsConfig(cmd *cobra.Command, args []string) (types.LeadsConfig, error) {
	queries, _ := cmd.Flags().GetStringSlice("query")
	queries = append(queries, args...)
	if len(queries) == 0 {
		queries = viper.GetStringSlice("leads.queries")
	}
	if len(queries) == 0 {
		return types.LeadsConfig{}, fmt.Errorf("no queries: pass arguments, --query, or set leads.queries in the config file")
	}

	apiKey, _ := cmd.Flags().GetString("api-key")
	apiKey = secretDefault("rapidapi-key", apiKey)
	if apiKey == "" {
		return types.LeadsConfig{}, fmt.Errorf("no RapidAPI key: put it in .secrets/rapidapi-key or pass --api-key")
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	delay, _ := cmd.Flags().GetDuration("delay")
	if delay == 0 {
		delay = viper.GetDuration("leads.inter_query_delay")
	}
	if delay == 0 {
		delay = defaultDelay
	}

	lat, _ := cmd.Flags().GetFloat64("lat")
	if lat == 0 {
		lat = viper.GetFloat64("leads.latitude")
	}
	lng, _ := cmd.Flags().GetFloat64("lng")
	if lng == 0 {
		lng = viper.GetFloat64("leads.longitude")
	}
	if lat == 0 && lng == 0 {
		return types.LeadsConfig{}, fmt.Errorf("no search area: pass --lat/--lng or set leads.latitude/leads.longitude in the config file")
	}

	zoom, _ := cmd.Flags().GetInt("zoom")
	if zoom == 0 {
		zoom = viper.GetInt("leads.zoom")
	}
	language, _ := cmd.Flags().GetString("language")
	if language == "" {
		language = viper.GetString("leads.language")
	}
	region, _ := cmd.Flags().GetString("region")
	if region == "" {
		region = viper.GetString("leads.region")
	}
	subtypes, _ := cmd.Flags().GetStringSlice("subtypes")
	if len(subtypes) == 0 {
		subtypes = viper.GetStringSlice("leads.subtypes")
	}
	maxResults, _ := cmd.Flags().GetInt("max-results")
	if maxResults == 0 {
		maxResults = viper.GetInt("leads.max_results")
	}
	noContacts, _ := cmd.Flags().GetBool("no-contacts")

	return types.LeadsConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   timeout,
			UserAgent: defaultUserAgent,
		},
		APIKey:          apiKey,
		Queries:         queries,
		Subtypes:        subtypes,
		Latitude:        lat,
		Longitude:       lng,
		Zoom:            zoom,
		Language:        language,
		Region:          region,
		MaxResults:      maxResults,
		ExtractContacts: !noContacts,
		InterQueryDelay: delay,
		DataDir:         dataDir(cmd),
	}, nil
}
