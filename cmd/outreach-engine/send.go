// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/outreach-engine/internal/campaign"
	"github.com/mesh-intelligence/outreach-engine/internal/compose"
	"github.com/mesh-intelligence/outreach-engine/internal/send"
	"github.com/mesh-intelligence/outreach-engine/pkg/types"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Deliver composed emails over SMTP or AWS SES",
	Long: `Send reads the JSON outbox and delivers each draft through the
configured transport (SMTP relay or AWS SES).

With --test, the first draft is sent to the configured test recipient
with a "[TEST] " subject prefix and a banner naming the original
recipient; nothing else is delivered. A full campaign run asks for
confirmation unless --yes is passed. Delivery outcomes are recorded in
the campaign store.`,
	RunE: runSend,
}

func init() {
	sendCmd.Flags().Bool("test", false, "send only a test email to the test recipient")
	sendCmd.Flags().Bool("yes", false, "skip the confirmation prompt for the full campaign")
	sendCmd.Flags().String("backend", "", "delivery transport: smtp or ses (default smtp)")
	sendCmd.Flags().String("from", "", "envelope sender address")
	sendCmd.Flags().String("from-name", "", "display name on the From header")
	sendCmd.Flags().String("reply-to", "", "Reply-To address")
	sendCmd.Flags().String("test-recipient", "", "recipient for test sends")
	sendCmd.Flags().Duration("send-delay", 0, "pause between consecutive deliveries (default 1s)")

	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg := sendConfig(cmd)
	ctx := context.Background()

	drafts, err := compose.ReadOutbox(compose.OutboxPath(cfg.DataDir))
	if err != nil {
		return fmt.Errorf("reading outbox: %w", err)
	}
	if len(drafts) == 0 {
		return fmt.Errorf("outbox is empty: run compose first")
	}

	sender, err := send.NewSender(ctx, cfg)
	if err != nil {
		return err
	}

	store, err := campaign.NewStore(types.CampaignConfig{DataDir: cfg.DataDir})
	if err != nil {
		return fmt.Errorf("opening campaign store: %w", err)
	}
	defer store.Close()

	testMode, _ := cmd.Flags().GetBool("test")
	if testMode {
		delivery, err := send.SendTest(ctx, sender, drafts, cfg, os.Stdout)
		if delivery.Status != "" {
			if recErr := store.RecordDelivery(ctx, delivery); recErr != nil {
				fmt.Fprintf(os.Stderr, "warning: recording delivery: %v\n", recErr)
			}
		}
		return err
	}

	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		fmt.Fprintf(os.Stdout, "About to send %d emails via %s. Continue? (yes/no): ", len(drafts), sender.Name())
		if !confirm(os.Stdin) {
			fmt.Fprintln(os.Stdout, "Campaign cancelled.")
			return nil
		}
	}

	deliveries, summary, err := send.SendAll(ctx, sender, drafts, cfg, os.Stdout)
	for _, d := range deliveries {
		if recErr := store.RecordDelivery(ctx, d); recErr != nil {
			fmt.Fprintf(os.Stderr, "warning: recording delivery: %v\n", recErr)
		}
	}
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d email(s) failed delivery", summary.Failed)
	}
	return nil
}

// confirm reads a yes/no answer, re-prompting on anything else.
func confirm(r *os.File) bool {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "yes", "y":
			return true
		case "no", "n":
			return false
		default:
			fmt.Fprint(os.Stdout, "Please enter 'yes' or 'no': ")
		}
	}
	return false
}

// sendConfig merges flags, config file values, and secrets into the
// stage configuration.
func sendConfig(cmd *cobra.Command) types.SendConfig {
	backend, _ := cmd.Flags().GetString("backend")
	if backend == "" {
		backend = viper.GetString("send.backend")
	}

	fromEmail, _ := cmd.Flags().GetString("from")
	if fromEmail == "" {
		fromEmail = viper.GetString("send.from_email")
	}
	fromName, _ := cmd.Flags().GetString("from-name")
	if fromName == "" {
		fromName = viper.GetString("send.from_name")
	}
	replyTo, _ := cmd.Flags().GetString("reply-to")
	if replyTo == "" {
		replyTo = viper.GetString("send.reply_to")
	}
	testRecipient, _ := cmd.Flags().GetString("test-recipient")
	if testRecipient == "" {
		testRecipient = viper.GetString("send.test_recipient")
	}
	sendDelay, _ := cmd.Flags().GetDuration("send-delay")
	if sendDelay == 0 {
		sendDelay = viper.GetDuration("send.send_delay")
	}

	return types.SendConfig{
		Backend: types.SendBackend(backend),
		SMTP: types.SMTPConfig{
			Host:     viper.GetString("send.smtp.host"),
			Port:     viper.GetInt("send.smtp.port"),
			Username: secretDefault("smtp-username", viper.GetString("send.smtp.username")),
			Password: secretDefault("smtp-password", ""),
		},
		SES: types.SESConfig{
			Region:    viper.GetString("send.ses.region"),
			AccessKey: secretDefault("aws-access-key-id", ""),
			SecretKey: secretDefault("aws-secret-access-key", ""),
		},
		FromEmail:     fromEmail,
		FromName:      fromName,
		ReplyTo:       replyTo,
		TestRecipient: testRecipient,
		SendDelay:     sendDelay,
		DataDir:       dataDir(cmd),
	}
}
