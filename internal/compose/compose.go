// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package compose drafts personalized outreach emails for leads via a
// Generative AI API.
package compose

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mesh-intelligence/outreach-engine/internal/leads"
	"github.com/mesh-intelligence/outreach-engine/pkg/types"
)

const (
	leadsDir   = "leads"
	emailsDir  = "emails"
	outboxDir  = "outbox"
	leadsFile  = "leads.csv"
	outboxFile = "outreach_emails.json"
)

// AIBackend generates one outreach email for a lead. Each implementation
// handles prompt construction for its API per the Strategy pattern.
type AIBackend interface {
	Compose(ctx context.Context, lead types.Lead) (AIResult, error)
}

// AIResult is the raw generation outcome for one lead.
type AIResult struct {
	// Content is the generated email text, expected to start with a
	// "Betreff:" subject line.
	Content string

	// Model is the model that produced the content.
	Model string

	// TokensUsed is the total token count reported by the API, zero when
	// the API did not report usage.
	TokensUsed int
}

// BatchSummary holds counts from a batch composition run.
type BatchSummary struct {
	Composed int
	Skipped  int
	Failed   int
}

// Total returns the number of leads processed.
func (s BatchSummary) Total() int {
	return s.Composed + s.Skipped + s.Failed
}

// HasFailures reports whether any leads failed.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// LeadsCSVPath returns the canonical leads CSV location under dataDir.
func LeadsCSVPath(dataDir string) string {
	return filepath.Join(dataDir, leadsDir, leadsFile)
}

// OutboxPath returns the canonical JSON outbox location under dataDir.
func OutboxPath(dataDir string) string {
	return filepath.Join(dataDir, outboxDir, outboxFile)
}

// ComposeAll reads leads from dataDir/leads/leads.csv, generates an email
// per lead through the AI backend, writes a per-lead .txt draft under
// dataDir/emails/, and appends each draft to the JSON outbox incrementally
// so a crash loses at most one email. Leads without a name or contact
// email are skipped, as are leads whose draft is newer than the leads file.
func ComposeAll(ctx context.Context, backend AIBackend, limiter *TokenRateLimiter, cfg types.ComposeConfig, w io.Writer) (BatchSummary, error) {
	csvPath := LeadsCSVPath(cfg.DataDir)
	draftDir := filepath.Join(cfg.DataDir, emailsDir)
	outboxPath := OutboxPath(cfg.DataDir)

	allLeads, err := leads.ReadCSV(csvPath)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("reading leads: %w", err)
	}

	if err := os.MkdirAll(draftDir, 0o755); err != nil {
		return BatchSummary{}, fmt.Errorf("creating drafts directory: %w", err)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	var summary BatchSummary

	for _, lead := range allLeads {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		if lead.Name == "" {
			fmt.Fprintf(w, "skipped lead without a name\n")
			summary.Skipped++
			continue
		}
		recipient := lead.ContactEmail()
		if recipient == "" {
			fmt.Fprintf(w, "skipped %s: no contact email\n", lead.Name)
			summary.Skipped++
			continue
		}

		draftPath := filepath.Join(draftDir, safeFilename(lead.Name)+"_email.txt")
		changed, err := hasChanged(csvPath, draftPath)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", lead.Name, err)
			summary.Failed++
			continue
		}
		if !changed {
			fmt.Fprintf(w, "skipped %s: draft up to date\n", lead.Name)
			summary.Skipped++
			continue
		}

		// Reserve token budget before calling the API.
		if limiter != nil {
			estimated := EstimateTokens(lead, cfg.Sender, maxTokens)
			if wait := limiter.Reserve(estimated); wait > 0 {
				fmt.Fprintf(w, "rate limit: waiting %v before next request\n", wait.Round(time.Second))
				select {
				case <-ctx.Done():
					return summary, ctx.Err()
				case <-time.After(wait):
				}
			}
		}

		fmt.Fprintf(w, "composing %s\n", lead.Name)

		result, err := callWithRetry(ctx, backend, lead, maxRetries)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", lead.Name, err)
			summary.Failed++
			continue
		}

		if limiter != nil && result.TokensUsed > 0 {
			limiter.Record(result.TokensUsed)
		}

		content := stripMetaPreamble(result.Content)
		subject, body := ParseEmailContent(content)
		if subject == "" {
			fmt.Fprintf(w, "failed  %s: response has no subject line\n", lead.Name)
			summary.Failed++
			continue
		}

		if err := os.WriteFile(draftPath, []byte(content), 0o644); err != nil {
			fmt.Fprintf(w, "failed  %s: write error: %v\n", lead.Name, err)
			summary.Failed++
			continue
		}

		draft := types.EmailDraft{
			LeadID:     lead.ID,
			LeadName:   lead.Name,
			Subject:    subject,
			From:       cfg.FromEmail,
			To:         recipient,
			Body:       body,
			Model:      result.Model,
			TokensUsed: result.TokensUsed,
			CreatedAt:  time.Now(),
		}

		total, err := AppendOutbox(outboxPath, draft)
		if err != nil {
			// Drop the draft file too, or the mtime skip would treat the
			// lead as up to date on the next run.
			os.Remove(draftPath)
			fmt.Fprintf(w, "failed  %s: outbox write: %v\n", lead.Name, err)
			summary.Failed++
			continue
		}

		fmt.Fprintf(w, "composed %s (outbox: %d, subject: %s)\n", lead.Name, total, subject)
		summary.Composed++
	}

	fmt.Fprintf(w, "\ncomposed: %d, skipped: %d, failed: %d\n",
		summary.Composed, summary.Skipped, summary.Failed)

	return summary, nil
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// callWithRetry calls the AI backend with exponential backoff.
func callWithRetry(ctx context.Context, backend AIBackend, lead types.Lead, maxRetries int) (AIResult, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return AIResult{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		result, err := backend.Compose(ctx, lead)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	return AIResult{}, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// metaPreambles are lowercase prefixes the model sometimes emits despite
// instructions; everything before the subject marker is dropped when the
// content starts with one of them.
var metaPreambles = []string{"hier ist", "hier ist die", "das ist", "ich habe"}

const subjectMarker = "Betreff:"

// stripMetaPreamble removes introductory meta-commentary before the
// subject line.
func stripMetaPreamble(content string) string {
	lower := strings.ToLower(strings.TrimSpace(content))
	for _, p := range metaPreambles {
		if strings.HasPrefix(lower, p) {
			if idx := strings.Index(strings.ToLower(content), strings.ToLower(subjectMarker)); idx != -1 {
				return content[idx:]
			}
		}
	}
	return strings.TrimSpace(content)
}

// ParseEmailContent splits generated content into subject and body. The
// subject is the remainder of the "Betreff:" line; the body is everything
// after it. Content without a subject marker yields an empty subject and
// the full text as body.
func ParseEmailContent(content string) (subject, body string) {
	idx := strings.Index(content, subjectMarker)
	if idx == -1 {
		return "", content
	}

	rest := strings.TrimSpace(content[idx+len(subjectMarker):])
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		return strings.TrimSpace(rest[:nl]), strings.TrimSpace(rest[nl:])
	}
	return rest, ""
}

// safeFilename derives a filesystem-safe name from a business name.
func safeFilename(name string) string {
	replaced := strings.Map(func(r rune) rune {
		switch {
		case r == ' ', r == '/', r == '\\':
			return '_'
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return -1
		}
	}, name)
	if replaced == "" {
		return "unknown"
	}
	return replaced
}

// AppendOutbox appends a draft to the JSON outbox file, creating it when
// absent. An unreadable or invalid existing file starts a fresh list.
// Returns the new outbox length.
func AppendOutbox(path string, draft types.EmailDraft) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("creating outbox directory: %w", err)
	}

	var drafts []types.EmailDraft
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &drafts); err != nil {
			drafts = nil
		}
	}

	drafts = append(drafts, draft)

	data, err := json.MarshalIndent(drafts, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("marshaling outbox: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("writing outbox: %w", err)
	}
	return len(drafts), nil
}

// ReadOutbox loads all drafts from the JSON outbox.
func ReadOutbox(path string) ([]types.EmailDraft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading outbox: %w", err)
	}
	var drafts []types.EmailDraft
	if err := json.Unmarshal(data, &drafts); err != nil {
		return nil, fmt.Errorf("parsing outbox %s: %w", path, err)
	}
	return drafts, nil
}

// hasChanged reports whether the leads file is newer than the draft.
// Returns true if the draft does not exist.
func hasChanged(leadsPath, draftPath string) (bool, error) {
	leadsInfo, err := os.Stat(leadsPath)
	if err != nil {
		return false, fmt.Errorf("stat leads %s: %w", leadsPath, err)
	}

	draftInfo, err := os.Stat(draftPath)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("stat draft %s: %w", draftPath, err)
	}

	return leadsInfo.ModTime().After(draftInfo.ModTime()), nil
}
