// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package send

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/mesh-intelligence/outreach-engine/pkg/types"
)

// mockSender records delivered messages and can fail for chosen
// recipients.
type mockSender struct {
	sent    []Message
	failFor map[string]bool
}

func (m *mockSender) Name() string {
	return "mock"
}

func (m *mockSender) Send(_ context.Context, msg Message) (string, error) {
	if m.failFor[msg.To] {
		return "", fmt.Errorf("relay rejected recipient")
	}
	m.sent = append(m.sent, msg)
	return fmt.Sprintf("msg-%d", len(m.sent)), nil
}

func sendTestConfig() types.SendConfig {
	return types.SendConfig{
		Backend:       types.SendSMTP,
		FromEmail:     "outreach@beispiel.example",
		FromName:      "Beispiel GmbH",
		ReplyTo:       "kontakt@beispiel.example",
		TestRecipient: "team@beispiel.example",
		SendDelay:     1, // nanosecond, keeps the loop fast
	}
}

func sampleDrafts() []types.EmailDraft {
	return []types.EmailDraft{
		{LeadID: "biz-1", LeadName: "Acme Immobilien", To: "info@acme.example",
			Subject: "Ihre Projekte", Body: "Sehr geehrte Damen und Herren,\n\nText.\n\nMit freundlichen Grüßen,\n\nMax Muster"},
		{LeadID: "biz-2", LeadName: "Beta Bau", To: "kontakt@beta.example",
			Subject: "Angebot", Body: "Hallo.\n\nMit freundlichen Grüßen,\n\nMax Muster"},
	}
}

func TestBuildMessage(t *testing.T) {
	msg, err := BuildMessage(sampleDrafts()[0], sendTestConfig(), false)
	if err != nil {
		t.Fatalf("BuildMessage() error: %v", err)
	}
	if msg.To != "info@acme.example" || msg.From != "outreach@beispiel.example" {
		t.Errorf("addressing = %q -> %q", msg.From, msg.To)
	}
	if msg.Subject != "Ihre Projekte" {
		t.Errorf("subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.HTML, "<p>") || strings.Contains(msg.HTML, "TEST EMAIL") {
		t.Errorf("HTML = %q", msg.HTML)
	}
}

func TestBuildMessageTestMode(t *testing.T) {
	msg, err := BuildMessage(sampleDrafts()[0], sendTestConfig(), true)
	if err != nil {
		t.Fatalf("BuildMessage() error: %v", err)
	}
	if msg.To != "team@beispiel.example" {
		t.Errorf("To = %q, want test recipient", msg.To)
	}
	if !strings.HasPrefix(msg.Subject, "[TEST] ") {
		t.Errorf("subject = %q, want [TEST] prefix", msg.Subject)
	}
	if !strings.Contains(msg.HTML, "info@acme.example") {
		t.Error("test banner should name the original recipient")
	}
}

func TestBuildMessageErrors(t *testing.T) {
	cfg := sendTestConfig()

	t.Run("no recipient", func(t *testing.T) {
		if _, err := BuildMessage(types.EmailDraft{LeadName: "X"}, cfg, false); err == nil {
			t.Fatal("expected error for draft without recipient")
		}
	})

	t.Run("no sender", func(t *testing.T) {
		bare := types.SendConfig{TestRecipient: "t@example.com"}
		if _, err := BuildMessage(types.EmailDraft{To: "a@example.com"}, bare, false); err == nil {
			t.Fatal("expected error when no sender address is available")
		}
	})

	t.Run("no test recipient", func(t *testing.T) {
		noTest := cfg
		noTest.TestRecipient = ""
		if _, err := BuildMessage(sampleDrafts()[0], noTest, true); err == nil {
			t.Fatal("expected error in test mode without test recipient")
		}
	})
}

func TestSendAll(t *testing.T) {
	drafts := append(sampleDrafts(), types.EmailDraft{LeadID: "biz-3", LeadName: "No Address"})
	m := &mockSender{}
	var out bytes.Buffer

	deliveries, summary, err := SendAll(context.Background(), m, drafts, sendTestConfig(), &out)
	if err != nil {
		t.Fatalf("SendAll() error: %v", err)
	}

	if summary.Sent != 2 || summary.Skipped != 1 || summary.Failed != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if len(deliveries) != 3 {
		t.Fatalf("len(deliveries) = %d, want 3", len(deliveries))
	}
	if deliveries[0].Status != types.DeliverySent || deliveries[0].MessageID != "msg-1" {
		t.Errorf("deliveries[0] = %+v", deliveries[0])
	}
	if deliveries[2].Status != types.DeliveryPending {
		t.Errorf("deliveries[2] = %+v, skipped draft should stay pending", deliveries[2])
	}
	if len(m.sent) != 2 {
		t.Errorf("sent %d messages, want 2", len(m.sent))
	}
}

func TestSendAllRecordsFailures(t *testing.T) {
	m := &mockSender{failFor: map[string]bool{"info@acme.example": true}}
	var out bytes.Buffer

	deliveries, summary, err := SendAll(context.Background(), m, sampleDrafts(), sendTestConfig(), &out)
	if err != nil {
		t.Fatalf("SendAll() error: %v", err)
	}

	if summary.Sent != 1 || summary.Failed != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if deliveries[0].Status != types.DeliveryFailed || deliveries[0].Error == "" {
		t.Errorf("deliveries[0] = %+v", deliveries[0])
	}
	if !summary.HasFailures() {
		t.Error("HasFailures() = false")
	}
}

func TestSendTest(t *testing.T) {
	m := &mockSender{}
	var out bytes.Buffer

	delivery, err := SendTest(context.Background(), m, sampleDrafts(), sendTestConfig(), &out)
	if err != nil {
		t.Fatalf("SendTest() error: %v", err)
	}
	if delivery.To != "team@beispiel.example" || delivery.Status != types.DeliverySent {
		t.Errorf("delivery = %+v", delivery)
	}
	if len(m.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(m.sent))
	}
	if !strings.HasPrefix(m.sent[0].Subject, "[TEST] ") {
		t.Errorf("subject = %q", m.sent[0].Subject)
	}
}

func TestSendTestEmptyOutbox(t *testing.T) {
	if _, err := SendTest(context.Background(), &mockSender{}, nil, sendTestConfig(), &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for empty outbox")
	}
}

func TestNewSenderUnknownBackend(t *testing.T) {
	cfg := sendTestConfig()
	cfg.Backend = "pigeon"
	if _, err := NewSender(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
