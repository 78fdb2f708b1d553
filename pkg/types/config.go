// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "outreach-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// LeadsConfig holds settings for the lead-search stage.
type LeadsConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey authenticates against the business-data API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// APIHost is the business-data API host header value.
	APIHost string `json:"api_host,omitempty" yaml:"api_host,omitempty"`

	// Queries are the keyword queries fanned out to the backend.
	Queries []string `json:"queries" yaml:"queries"`

	// Subtypes narrows results to specific business categories.
	Subtypes []string `json:"subtypes,omitempty" yaml:"subtypes,omitempty"`

	// Latitude and Longitude center the search area.
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`

	// Zoom is the map zoom level defining the search radius (default 10).
	Zoom int `json:"zoom" yaml:"zoom"`

	// Language is the result language code (e.g. "en").
	Language string `json:"language" yaml:"language"`

	// Region is the region bias code (e.g. "de").
	Region string `json:"region" yaml:"region"`

	// MaxResults is the per-query result limit (default 100, API max 100).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// ExtractContacts requests email and social extraction from listings.
	ExtractContacts bool `json:"extract_contacts" yaml:"extract_contacts"`

	// InterQueryDelay is the delay between launching per-query requests
	// (default 1s).
	InterQueryDelay time.Duration `json:"inter_query_delay" yaml:"inter_query_delay"`

	// DataDir is the base directory for pipeline data (contains leads/,
	// emails/, outbox/, index/).
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "llama3-70b-8192").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxTokens caps the generated response length (default 1024).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Temperature controls sampling randomness (default 0.7).
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// SenderProfile describes the company on whose behalf emails are written.
// The compose prompt injects these fields verbatim.
type SenderProfile struct {
	// CompanyName is the sending company name.
	CompanyName string `json:"company_name" yaml:"company_name"`

	// Website is the sending company website URL.
	Website string `json:"website" yaml:"website"`

	// Services is a short description of the offered services.
	Services string `json:"services" yaml:"services"`

	// ValueProposition is the pitch paragraph injected into the prompt.
	ValueProposition string `json:"value_proposition" yaml:"value_proposition"`

	// SignatureName is the person signing the email.
	SignatureName string `json:"signature_name" yaml:"signature_name"`

	// SignatureEmail is the contact address in the signature block.
	SignatureEmail string `json:"signature_email" yaml:"signature_email"`
}

// ComposeConfig holds settings for the email-composition stage.
type ComposeConfig struct {
	AIConfig `yaml:",inline"`

	// TokensPerMinute is the AI API token budget per one-minute window
	// (default 6000).
	TokensPerMinute int `json:"tokens_per_minute" yaml:"tokens_per_minute"`

	// Sender is the company profile injected into every prompt.
	Sender SenderProfile `json:"sender" yaml:"sender"`

	// FromEmail is the address recorded on each draft.
	FromEmail string `json:"from_email" yaml:"from_email"`

	// DataDir is the base directory for pipeline data.
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// SendBackend identifies the delivery transport.
type SendBackend string

const (
	SendSMTP SendBackend = "smtp"
	SendSES  SendBackend = "ses"
)

// SMTPConfig holds SMTP relay settings.
type SMTPConfig struct {
	// Host is the SMTP server hostname.
	Host string `json:"host" yaml:"host"`

	// Port is the SMTP submission port (default 587).
	Port int `json:"port" yaml:"port"`

	// Username and Password authenticate against the relay.
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
}

// SESConfig holds AWS SES settings.
type SESConfig struct {
	// Region is the AWS region (default "us-east-1").
	Region string `json:"region" yaml:"region"`

	// AccessKey and SecretKey are static AWS credentials. When empty the
	// default AWS credential chain is used.
	AccessKey string `json:"access_key,omitempty" yaml:"access_key,omitempty"`
	SecretKey string `json:"secret_key,omitempty" yaml:"secret_key,omitempty"`
}

// SendConfig holds settings for the delivery stage.
type SendConfig struct {
	// Backend selects the transport: smtp or ses.
	Backend SendBackend `json:"backend" yaml:"backend"`

	SMTP SMTPConfig `json:"smtp" yaml:"smtp"`
	SES  SESConfig  `json:"ses" yaml:"ses"`

	// FromEmail is the envelope sender address.
	FromEmail string `json:"from_email" yaml:"from_email"`

	// FromName is the display name on the From header.
	FromName string `json:"from_name,omitempty" yaml:"from_name,omitempty"`

	// ReplyTo is an optional Reply-To address.
	ReplyTo string `json:"reply_to,omitempty" yaml:"reply_to,omitempty"`

	// TestRecipient receives test sends before a campaign run.
	TestRecipient string `json:"test_recipient" yaml:"test_recipient"`

	// SendDelay is the pause between consecutive deliveries (default 1s).
	SendDelay time.Duration `json:"send_delay" yaml:"send_delay"`

	// DataDir is the base directory for pipeline data.
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// CampaignConfig holds settings for the campaign store stage.
type CampaignConfig struct {
	// DataDir is the base directory for pipeline data (contains index/).
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Leads    LeadsConfig    `json:"leads" yaml:"leads"`
	Compose  ComposeConfig  `json:"compose" yaml:"compose"`
	Send     SendConfig     `json:"send" yaml:"send"`
	Campaign CampaignConfig `json:"campaign" yaml:"campaign"`
}
