// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// DeliveryStatus indicates the state of an outbox draft.
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

// EmailDraft is an AI-generated outreach email for a single lead.
// Drafts accumulate in the JSON outbox and are delivered by the send stage.
type EmailDraft struct {
	// LeadID is the business identifier of the targeted lead.
	LeadID string `json:"lead_id" yaml:"lead_id"`

	// LeadName is the business name, kept for readable outbox files.
	LeadName string `json:"lead_name" yaml:"lead_name"`

	// Subject is the generated subject line.
	Subject string `json:"subject" yaml:"subject"`

	// From is the sender address the draft will be delivered from.
	From string `json:"from" yaml:"from"`

	// To is the recipient address.
	To string `json:"to" yaml:"to"`

	// Body is the plain-text email body including the signature block.
	Body string `json:"body" yaml:"body"`

	// Model is the AI model that generated the draft.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// TokensUsed is the total token count reported by the AI API.
	TokensUsed int `json:"tokens_used,omitempty" yaml:"tokens_used,omitempty"`

	// CreatedAt is the draft generation time.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Delivery records the outcome of sending one draft.
type Delivery struct {
	// LeadID is the business identifier of the recipient lead.
	LeadID string `json:"lead_id" yaml:"lead_id"`

	// To is the address the email was delivered to.
	To string `json:"to" yaml:"to"`

	// Status is pending, sent, or failed.
	Status DeliveryStatus `json:"status" yaml:"status"`

	// MessageID is the provider message identifier, when one is returned.
	MessageID string `json:"message_id,omitempty" yaml:"message_id,omitempty"`

	// Error holds the failure reason for failed deliveries.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// SentAt is the delivery attempt time.
	SentAt time.Time `json:"sent_at" yaml:"sent_at"`
}
