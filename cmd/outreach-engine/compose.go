// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/outreach-engine/internal/compose"
	"github.com/mesh-intelligence/outreach-engine/pkg/types"
)

const defaultModel = "llama-3.3-70b-versatile"

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Generate personalized outreach emails for collected leads",
	Long: `Compose reads leads from data/leads/leads.csv and generates a
personalized German cold email for each one through the Groq chat
completions API. Drafts are written as text files under data/emails/
and appended to the JSON outbox at data/outbox/outreach_emails.json.

Leads without a contact email are skipped, as are leads whose draft is
newer than the leads file. API calls respect a per-minute token budget
and retry with exponential backoff.

The sender profile injected into every prompt comes from the
compose.sender section of the config file.`,
	RunE: runCompose,
}

func init() {
	composeCmd.Flags().String("model", "", "AI model identifier (default "+defaultModel+")")
	composeCmd.Flags().Int("max-tokens", 0, "response token cap (default 1024)")
	composeCmd.Flags().Float64("temperature", 0, "sampling temperature (default 0.7)")
	composeCmd.Flags().Int("tokens-per-minute", 0, "AI API token budget per minute (default 6000)")
	composeCmd.Flags().Int("max-retries", 0, "retry attempts for failed API calls (default 3)")
	composeCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 60s)")
	composeCmd.Flags().String("api-key", "", "Groq API key (default: .secrets/groq-api-key)")
	composeCmd.Flags().String("from", "", "sender address recorded on each draft")

	rootCmd.AddCommand(composeCmd)
}

func runCompose(cmd *cobra.Command, args []string) error {
	cfg, err := composeConfig(cmd)
	if err != nil {
		return err
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}

	backend := &compose.GroqBackend{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Profile:     cfg.Sender,
		Client:      &http.Client{Timeout: timeout},
	}
	limiter := compose.NewTokenRateLimiter(cfg.TokensPerMinute)

	start := time.Now()
	summary, err := compose.ComposeAll(context.Background(), backend, limiter, cfg, os.Stdout)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "finished in %s\n", time.Since(start).Round(time.Second))
	if summary.HasFailures() {
		return fmt.Errorf("%d email(s) failed composition", summary.Failed)
	}
	return nil
}

// composeConfig merges flags, config file values, and secrets into the
// stage configuration.
func composeConfig(cmd *cobra.Command) (types.ComposeConfig, error) {
	return composeConfigFromKey(cmd, "api-key")
}

// composeConfigFromKey builds the compose configuration reading the Groq
// key from the named flag; the run command renames it to groq-api-key.
func composeConfigFromKey(cmd *cobra.Command, keyFlag string) (types.ComposeConfig, error) {
	apiKey, _ := cmd.Flags().GetString(keyFlag)
	apiKey = secretDefault("groq-api-key", apiKey)
	if apiKey == "" {
		return types.ComposeConfig{}, fmt.Errorf("no Groq API key: put it in .secrets/groq-api-key or pass --api-key")
	}

	model, _ := cmd.Flags().GetString("model")
	if model == "" {
		model = viper.GetString("compose.model")
	}
	if model == "" {
		model = defaultModel
	}

	maxTokens, _ := cmd.Flags().GetInt("max-tokens")
	if maxTokens == 0 {
		maxTokens = viper.GetInt("compose.max_tokens")
	}
	temperature, _ := cmd.Flags().GetFloat64("temperature")
	if temperature == 0 {
		temperature = viper.GetFloat64("compose.temperature")
	}
	tokensPerMinute, _ := cmd.Flags().GetInt("tokens-per-minute")
	if tokensPerMinute == 0 {
		tokensPerMinute = viper.GetInt("compose.tokens_per_minute")
	}
	maxRetries, _ := cmd.Flags().GetInt("max-retries")
	if maxRetries == 0 {
		maxRetries = viper.GetInt("compose.max_retries")
	}

	fromEmail, _ := cmd.Flags().GetString("from")
	if fromEmail == "" {
		fromEmail = viper.GetString("compose.from_email")
	}

	var profile types.SenderProfile
	if err := viper.UnmarshalKey("compose.sender", &profile); err != nil {
		return types.ComposeConfig{}, fmt.Errorf("reading compose.sender from config: %w", err)
	}

	return types.ComposeConfig{
		AIConfig: types.AIConfig{
			Model:       model,
			APIKey:      apiKey,
			MaxTokens:   maxTokens,
			Temperature: temperature,
			MaxRetries:  maxRetries,
		},
		TokensPerMinute: tokensPerMinute,
		Sender:          profile,
		FromEmail:       fromEmail,
		DataDir:         dataDir(cmd),
	}, nil
}
