// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/outreach-engine/internal/campaign"
	"github.com/mesh-intelligence/outreach-engine/pkg/types"
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Manage the campaign store (ingest, retrieve, export)",
	Long: `Campaign manages a local SQLite store built from collected leads, the
draft outbox, and recorded deliveries. Use subcommands to index the
pipeline files, query leads, or export snapshots.`,
}

// --- ingest subcommand ---

var campaignIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index the leads CSV and the draft outbox into the campaign store",
	Long: `Ingest reads data/leads/leads.csv and data/outbox/outreach_emails.json,
indexes them into a SQLite database with FTS5 search over lead names,
business types, and descriptions, and refreshes the export snapshot.
Unchanged files are skipped on subsequent runs.`,
	RunE: runCampaignIngest,
}

func runCampaignIngest(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := store.Ingest(context.Background(), os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d source(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- retrieve subcommand ---

var campaignRetrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Query the campaign store with full-text search and filters",
	Long: `Retrieve searches lead names, business types, and descriptions with
FTS5 full-text search, structured filters (business type, minimum
rating, contactability, delivery status), or a combination of both.
Results include the draft subject and latest delivery status.`,
	RunE: runCampaignRetrieve,
}

func runCampaignRetrieve(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := campaignOptsFromFlags(cmd, args)
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide a search query, --type, --min-rating, --has-email, or --status")
	}

	results, err := store.Retrieve(context.Background(), opts)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatRetrieveOutput(results, jsonOutput)
}

func formatRetrieveOutput(results []campaign.LeadRecord, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-30s  %-22s  %-6s  %-28s  %s\n",
		"Rank", "Name", "Type", "Score", "Email", "Status")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 104))

	for i, r := range results {
		name := r.Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		bizType := r.BusinessType
		if len(bizType) > 22 {
			bizType = bizType[:19] + "..."
		}
		email := r.ContactEmail()
		if len(email) > 28 {
			email = email[:25] + "..."
		}
		status := string(r.DeliveryStatus)
		if status == "" {
			status = "-"
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-30s  %-22s  %-6.2f  %-28s  %s\n",
			i+1, name, bizType, r.ReputationScore, email, status)
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

// --- export subcommand ---

var campaignExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the campaign store to YAML or JSON",
	Long: `Export writes the full campaign store (or a filtered subset) to
data/index/export.yaml or export.json. Supports the same filter flags
as retrieve for partial exports.`,
	RunE: runCampaignExport,
}

func runCampaignExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := campaignOptsFromFlags(cmd, args)

	switch format {
	case "yaml", "":
		if err := store.ExportYAML(context.Background(), opts); err != nil {
			return err
		}
		fmt.Printf("Exported to %s/index/export.yaml\n", dataDir(cmd))
	case "json":
		if err := store.ExportJSON(context.Background(), opts); err != nil {
			return err
		}
		fmt.Printf("Exported to %s/index/export.json\n", dataDir(cmd))
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	return nil
}

// --- shared helpers ---

func openStore(cmd *cobra.Command) (*campaign.Store, error) {
	maxResults, _ := cmd.Flags().GetInt("max-results")
	return campaign.NewStore(types.CampaignConfig{
		DataDir:    dataDir(cmd),
		MaxResults: maxResults,
	})
}

func campaignOptsFromFlags(cmd *cobra.Command, args []string) campaign.QueryOptions {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}

	bizType, _ := cmd.Flags().GetString("type")
	minRating, _ := cmd.Flags().GetFloat64("min-rating")
	hasEmail, _ := cmd.Flags().GetBool("has-email")
	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")

	return campaign.QueryOptions{
		Query:          queryText,
		BusinessType:   bizType,
		MinRating:      minRating,
		HasEmail:       hasEmail,
		DeliveryStatus: types.DeliveryStatus(status),
		MaxResults:     limit,
	}
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	campaignCmd.PersistentFlags().Int("max-results", 20, "maximum number of query results")

	// Retrieve flags.
	campaignRetrieveCmd.Flags().String("query", "", "full-text search query")
	campaignRetrieveCmd.Flags().String("type", "", "filter by business type")
	campaignRetrieveCmd.Flags().Float64("min-rating", 0, "minimum rating filter")
	campaignRetrieveCmd.Flags().Bool("has-email", false, "only leads with a contact email")
	campaignRetrieveCmd.Flags().String("status", "", "filter by latest delivery status: pending, sent, failed")
	campaignRetrieveCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	campaignRetrieveCmd.Flags().Bool("json", false, "output results as JSON")

	// Export flags.
	campaignExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	campaignExportCmd.Flags().String("query", "", "full-text search filter for partial export")
	campaignExportCmd.Flags().String("type", "", "filter by business type for partial export")
	campaignExportCmd.Flags().Float64("min-rating", 0, "minimum rating filter for partial export")
	campaignExportCmd.Flags().Bool("has-email", false, "only leads with a contact email")
	campaignExportCmd.Flags().String("status", "", "filter by latest delivery status for partial export")
	campaignExportCmd.Flags().Int("limit", 0, "maximum leads to export (0 = all)")

	// Wire subcommands.
	campaignCmd.AddCommand(campaignIngestCmd)
	campaignCmd.AddCommand(campaignRetrieveCmd)
	campaignCmd.AddCommand(campaignExportCmd)

	rootCmd.AddCommand(campaignCmd)
}
