// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package send delivers composed outreach emails through a configurable
// transport.
package send

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mesh-intelligence/outreach-engine/pkg/types"
)

// Message is one fully-addressed email ready for a transport.
type Message struct {
	From     string
	FromName string
	To       string
	ReplyTo  string
	Subject  string
	Text     string
	HTML     string
}

// Sender delivers a single message. Each implementation wraps one
// transport (SMTP relay, AWS SES) per the Strategy pattern. Send returns
// the provider message ID when the transport reports one.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message) (string, error)
}

// SendSummary holds counts from a campaign delivery run.
type SendSummary struct {
	Sent    int
	Failed  int
	Skipped int
}

// Total returns the number of drafts processed.
func (s SendSummary) Total() int {
	return s.Sent + s.Failed + s.Skipped
}

// HasFailures reports whether any deliveries failed.
func (s SendSummary) HasFailures() bool {
	return s.Failed > 0
}

const defaultSendDelay = time.Second

// NewSender creates the transport selected by the configuration. An
// empty backend defaults to SMTP.
func NewSender(ctx context.Context, cfg types.SendConfig) (Sender, error) {
	switch cfg.Backend {
	case types.SendSMTP, "":
		return NewSMTPSender(cfg.SMTP)
	case types.SendSES:
		return NewSESSender(ctx, cfg.SES)
	default:
		return nil, fmt.Errorf("unknown send backend %q (want smtp or ses)", cfg.Backend)
	}
}

// testSubjectPrefix marks test deliveries so they are unmistakable in a
// shared inbox.
const testSubjectPrefix = "[TEST] "

// BuildMessage turns an outbox draft into a transport message. In test
// mode the message is readdressed to the configured test recipient, the
// subject gains the test prefix, and the HTML body carries a banner
// naming the original recipient.
func BuildMessage(draft types.EmailDraft, cfg types.SendConfig, testMode bool) (Message, error) {
	msg := Message{
		From:     cfg.FromEmail,
		FromName: cfg.FromName,
		ReplyTo:  cfg.ReplyTo,
		To:       draft.To,
		Subject:  draft.Subject,
		Text:     draft.Body,
	}
	if msg.From == "" {
		msg.From = draft.From
	}
	if msg.From == "" {
		return Message{}, fmt.Errorf("no sender address configured for %s", draft.LeadName)
	}

	var testNote string
	if testMode {
		if cfg.TestRecipient == "" {
			return Message{}, fmt.Errorf("no test recipient configured")
		}
		msg.To = cfg.TestRecipient
		msg.Subject = testSubjectPrefix + msg.Subject
		testNote = draft.To
		if testNote == "" {
			testNote = "N/A"
		}
	}
	if msg.To == "" {
		return Message{}, fmt.Errorf("draft for %s has no recipient", draft.LeadName)
	}

	html, err := RenderHTML(draft.Body, testNote)
	if err != nil {
		return Message{}, fmt.Errorf("rendering HTML body: %w", err)
	}
	msg.HTML = html

	return msg, nil
}

// SendAll delivers every outbox draft through the sender, pausing between
// deliveries. Drafts that cannot be addressed are skipped; transport
// failures are recorded and the run continues. The returned deliveries
// parallel the drafts that were attempted or skipped.
func SendAll(ctx context.Context, sender Sender, drafts []types.EmailDraft, cfg types.SendConfig, w io.Writer) ([]types.Delivery, SendSummary, error) {
	delay := cfg.SendDelay
	if delay <= 0 {
		delay = defaultSendDelay
	}

	var summary SendSummary
	deliveries := make([]types.Delivery, 0, len(drafts))

	for i, draft := range drafts {
		if i > 0 {
			select {
			case <-ctx.Done():
				return deliveries, summary, ctx.Err()
			case <-time.After(delay):
			}
		}

		msg, err := BuildMessage(draft, cfg, false)
		if err != nil {
			fmt.Fprintf(w, "skipped %s: %v\n", draft.LeadName, err)
			summary.Skipped++
			deliveries = append(deliveries, types.Delivery{
				LeadID: draft.LeadID,
				To:     draft.To,
				Status: types.DeliveryPending,
				Error:  err.Error(),
			})
			continue
		}

		delivery := types.Delivery{
			LeadID: draft.LeadID,
			To:     msg.To,
			SentAt: time.Now(),
		}

		id, err := sender.Send(ctx, msg)
		if err != nil {
			fmt.Fprintf(w, "failed  %s (%s): %v\n", draft.LeadName, msg.To, err)
			delivery.Status = types.DeliveryFailed
			delivery.Error = err.Error()
			summary.Failed++
		} else {
			fmt.Fprintf(w, "sent    %s -> %s\n", draft.LeadName, msg.To)
			delivery.Status = types.DeliverySent
			delivery.MessageID = id
			summary.Sent++
		}
		deliveries = append(deliveries, delivery)
	}

	fmt.Fprintf(w, "\nsent: %d, failed: %d, skipped: %d (via %s)\n",
		summary.Sent, summary.Failed, summary.Skipped, sender.Name())

	return deliveries, summary, nil
}

// SendTest delivers the first draft to the configured test recipient so
// the campaign content can be verified before the real run.
func SendTest(ctx context.Context, sender Sender, drafts []types.EmailDraft, cfg types.SendConfig, w io.Writer) (types.Delivery, error) {
	if len(drafts) == 0 {
		return types.Delivery{}, fmt.Errorf("outbox is empty")
	}
	draft := drafts[0]

	msg, err := BuildMessage(draft, cfg, true)
	if err != nil {
		return types.Delivery{}, err
	}

	fmt.Fprintf(w, "sending test email to %s (original recipient: %s)\n", msg.To, draft.To)

	delivery := types.Delivery{
		LeadID: draft.LeadID,
		To:     msg.To,
		SentAt: time.Now(),
	}

	id, err := sender.Send(ctx, msg)
	if err != nil {
		delivery.Status = types.DeliveryFailed
		delivery.Error = err.Error()
		return delivery, fmt.Errorf("sending test email: %w", err)
	}

	delivery.Status = types.DeliverySent
	delivery.MessageID = id
	fmt.Fprintf(w, "test email sent (subject: %s)\n", msg.Subject)
	return delivery, nil
}
