// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package campaign persists leads, drafts, and delivery outcomes in a
// searchable SQLite index.
package campaign

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mesh-intelligence/outreach-engine/internal/compose"
	"github.com/mesh-intelligence/outreach-engine/internal/leads"
	"github.com/mesh-intelligence/outreach-engine/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "campaign.db"
)

// Ingest source names, used as keys in ingest_status.
const (
	sourceLeads  = "leads"
	sourceOutbox = "outbox"
)

// Store manages the campaign SQLite database.
type Store struct {
	db         *sql.DB
	dataDir    string
	maxResults int
}

// NewStore opens or creates the campaign database at
// dataDir/index/campaign.db and creates the schema if it does not exist.
func NewStore(cfg types.CampaignConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.DataDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:         db,
		dataDir:    cfg.DataDir,
		maxResults: maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS leads (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			name TEXT,
			owner_name TEXT,
			full_address TEXT,
			business_type TEXT,
			rating REAL,
			review_count INTEGER,
			verified INTEGER,
			business_status TEXT,
			website TEXT,
			about TEXT,
			emails TEXT,
			phone_numbers TEXT,
			social_media TEXT,
			source TEXT,
			query TEXT,
			reputation_score REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_type ON leads(business_type)`,
		`CREATE TABLE IF NOT EXISTS drafts (
			lead_id TEXT PRIMARY KEY REFERENCES leads(id),
			subject TEXT,
			sender TEXT,
			recipient TEXT,
			body TEXT,
			model TEXT,
			tokens_used INTEGER,
			created_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS deliveries (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			lead_id TEXT NOT NULL REFERENCES leads(id),
			recipient TEXT,
			status TEXT NOT NULL,
			message_id TEXT,
			error TEXT,
			sent_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deliveries_lead_id ON deliveries(lead_id)`,
		`CREATE TABLE IF NOT EXISTS ingest_status (
			source TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='leads_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE leads_fts USING fts5(name, business_type, about, content=leads, content_rowid=rowid)`,
			`CREATE TRIGGER leads_ai AFTER INSERT ON leads BEGIN
				INSERT INTO leads_fts(rowid, name, business_type, about)
				VALUES (new.rowid, new.name, new.business_type, new.about);
			END`,
			`CREATE TRIGGER leads_ad AFTER DELETE ON leads BEGIN
				INSERT INTO leads_fts(leads_fts, rowid, name, business_type, about)
				VALUES('delete', old.rowid, old.name, old.business_type, old.about);
			END`,
			`CREATE TRIGGER leads_au AFTER UPDATE ON leads BEGIN
				INSERT INTO leads_fts(leads_fts, rowid, name, business_type, about)
				VALUES('delete', old.rowid, old.name, old.business_type, old.about);
				INSERT INTO leads_fts(rowid, name, business_type, about)
				VALUES (new.rowid, new.name, new.business_type, new.about);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// IngestSummary holds per-source counts from an indexing run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of sources processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Ingest indexes the leads CSV and the JSON outbox into the database.
// Each source is tracked by file modification time so unchanged files
// are skipped on repeat runs. A missing outbox is not an error; the
// compose stage may not have run yet.
func (s *Store) Ingest(ctx context.Context, w io.Writer) (IngestSummary, error) {
	var summary IngestSummary

	leadsPath := compose.LeadsCSVPath(s.dataDir)
	outboxPath := compose.OutboxPath(s.dataDir)

	sources := []struct {
		name     string
		path     string
		optional bool
		index    func(ctx context.Context, path, modTime string, isUpdate bool) (int, error)
	}{
		{sourceLeads, leadsPath, false, s.indexLeads},
		{sourceOutbox, outboxPath, true, s.indexOutbox},
	}

	for _, src := range sources {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		info, err := os.Stat(src.path)
		if err != nil {
			if src.optional && os.IsNotExist(err) {
				fmt.Fprintf(w, "skipped %s: %s not present\n", src.name, filepath.Base(src.path))
				summary.Skipped++
				continue
			}
			if src.optional {
				fmt.Fprintf(w, "failed  %s: %v\n", src.name, err)
				summary.Failed++
				continue
			}
			return summary, fmt.Errorf("stat %s: %w", src.path, err)
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		var storedModTime string
		err = s.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM ingest_status WHERE source = ?`, src.name,
		).Scan(&storedModTime)

		if err == nil && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s: unchanged\n", src.name)
			summary.Skipped++
			continue
		}
		isUpdate := err == nil

		count, err := src.index(ctx, src.path, modTime, isUpdate)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", src.name, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d records)\n", src.name, count)
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexed %s (%d records)\n", src.name, count)
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)

	// Refresh the export snapshot after changes.
	if summary.Indexed > 0 || summary.Updated > 0 {
		if err := s.ExportYAML(ctx, QueryOptions{}); err != nil {
			fmt.Fprintf(w, "warning: export.yaml write failed: %v\n", err)
		}
	}

	return summary, nil
}

func (s *Store) indexLeads(ctx context.Context, path, modTime string, _ bool) (int, error) {
	records, err := leads.ReadCSV(path)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO leads (id, name, owner_name, full_address, business_type, rating,
			review_count, verified, business_status, website, about, emails,
			phone_numbers, social_media, source, query, reputation_score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, owner_name=excluded.owner_name,
			full_address=excluded.full_address, business_type=excluded.business_type,
			rating=excluded.rating, review_count=excluded.review_count,
			verified=excluded.verified, business_status=excluded.business_status,
			website=excluded.website, about=excluded.about, emails=excluded.emails,
			phone_numbers=excluded.phone_numbers, social_media=excluded.social_media,
			source=excluded.source, query=excluded.query,
			reputation_score=excluded.reputation_score`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for _, lead := range records {
		// A hand-edited CSV can carry rows without an id; the unique id
		// column would collapse them all into one record.
		if lead.ID == "" {
			continue
		}
		emailsJSON, _ := json.Marshal(lead.Emails)
		phonesJSON, _ := json.Marshal(lead.PhoneNumbers)
		socialJSON, _ := json.Marshal(lead.SocialMedia)
		_, err := stmt.ExecContext(ctx,
			lead.ID, lead.Name, lead.OwnerName, lead.FullAddress, lead.BusinessType,
			lead.Rating, lead.ReviewCount, lead.Verified, lead.BusinessStatus,
			lead.Website, lead.About, string(emailsJSON), string(phonesJSON),
			string(socialJSON), lead.Source, lead.Query, lead.ReputationScore,
		)
		if err != nil {
			return 0, fmt.Errorf("inserting lead %s: %w", lead.ID, err)
		}
		count++
	}

	if err := setIngestStatus(ctx, tx, sourceLeads, modTime); err != nil {
		return 0, err
	}
	return count, tx.Commit()
}

func (s *Store) indexOutbox(ctx context.Context, path, modTime string, _ bool) (int, error) {
	drafts, err := compose.ReadOutbox(path)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO drafts (lead_id, subject, sender, recipient, body, model, tokens_used, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, draft := range drafts {
		// Outbox drafts may reference leads not yet indexed.
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO leads (id, name) VALUES (?, ?)`,
			draft.LeadID, draft.LeadName,
		); err != nil {
			return 0, fmt.Errorf("inserting lead stub %s: %w", draft.LeadID, err)
		}

		_, err := stmt.ExecContext(ctx,
			draft.LeadID, draft.Subject, draft.From, draft.To, draft.Body,
			draft.Model, draft.TokensUsed, draft.CreatedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return 0, fmt.Errorf("inserting draft for %s: %w", draft.LeadID, err)
		}
	}

	if err := setIngestStatus(ctx, tx, sourceOutbox, modTime); err != nil {
		return 0, err
	}
	return len(drafts), tx.Commit()
}

func setIngestStatus(ctx context.Context, tx *sql.Tx, source, modTime string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO ingest_status (source, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(source) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		source, modTime,
	)
	if err != nil {
		return fmt.Errorf("updating ingest status: %w", err)
	}
	return nil
}

// RecordDelivery appends one delivery outcome. The lead is stubbed when
// it is not yet indexed so the foreign key holds.
func (s *Store) RecordDelivery(ctx context.Context, d types.Delivery) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO leads (id) VALUES (?)`, d.LeadID,
	); err != nil {
		return fmt.Errorf("inserting lead stub: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO deliveries (lead_id, recipient, status, message_id, error, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		d.LeadID, d.To, string(d.Status), d.MessageID, d.Error,
		d.SentAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting delivery: %w", err)
	}

	return tx.Commit()
}
