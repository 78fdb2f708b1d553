package campaign

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mesh-intelligence/outreach-engine/internal/compose"
	"github.com/mesh-intelligence/outreach-engine/internal/leads"
	"github.com/mesh-intelligence/outreach-engine/pkg/types"
)

// --- test helpers ---

func testSetup(t *testing.T) (*Store, string) {
	t.Helper()
	tmpDir := t.TempDir()

	cfg := types.CampaignConfig{
		DataDir:    tmpDir,
		MaxResults: 20,
	}
	store, err := NewStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return store, tmpDir
}

func writeLeadsCSV(t *testing.T, dataDir string, records []types.Lead) {
	t.Helper()
	if err := leads.WriteCSV(records, compose.LeadsCSVPath(dataDir)); err != nil {
		t.Fatal(err)
	}
}

func writeOutbox(t *testing.T, dataDir string, drafts []types.EmailDraft) {
	t.Helper()
	for _, draft := range drafts {
		if _, err := compose.AppendOutbox(compose.OutboxPath(dataDir), draft); err != nil {
			t.Fatal(err)
		}
	}
}

func sampleLeads() []types.Lead {
	return []types.Lead{
		{
			ID: "biz-1", Name: "Acme Immobilien", BusinessType: "Immobilienagentur",
			FullAddress: "Beispielstraße 1, 10115 Berlin",
			Rating:      4.8, ReviewCount: 120, Verified: true,
			Website: "https://acme.example",
			Emails:  []string{"info@acme.example"},
			About:   "Familiengeführte Agentur für Wohnimmobilien in Berlin",
			Source:  "local-business-data", Query: "immobilienmakler berlin",
			ReputationScore: 0.85,
		},
		{
			ID: "biz-2", Name: "Beta Hausverwaltung", BusinessType: "Hausverwaltung",
			Rating: 3.9, ReviewCount: 12,
			PhoneNumbers:    []string{"+49 30 1234567"},
			About:           "Verwaltung von Gewerbeobjekten",
			ReputationScore: 0.6,
		},
	}
}

func sampleOutbox() []types.EmailDraft {
	return []types.EmailDraft{
		{
			LeadID: "biz-1", LeadName: "Acme Immobilien",
			Subject: "Ihre Immobilienprojekte verdienen mehr",
			From:    "outreach@beispiel.example", To: "info@acme.example",
			Body: "Sehr geehrte Damen und Herren,", Model: "test-model",
			TokensUsed: 700, CreatedAt: time.Now(),
		},
	}
}

// ingestHelper writes the CSV and outbox fixtures, then ingests.
func ingestHelper(t *testing.T, store *Store, dataDir string) {
	t.Helper()
	writeLeadsCSV(t, dataDir, sampleLeads())
	writeOutbox(t, dataDir, sampleOutbox())
	var buf strings.Builder
	if _, err := store.Ingest(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}
}

// --- schema tests ---

func TestNewStoreCreatesSchema(t *testing.T) {
	store, _ := testSetup(t)

	tables := []string{"leads", "drafts", "deliveries", "leads_fts", "ingest_status"}
	for _, table := range tables {
		var count int
		err := store.db.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type IN ('table','view') AND name = ?`, table,
		).Scan(&count)
		if err != nil {
			t.Fatalf("checking table %s: %v", table, err)
		}
		if count == 0 {
			t.Errorf("table %s does not exist", table)
		}
	}
}

func TestNewStoreCreatesDBFile(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, indexDir, dbFile)

	store, err := NewStore(types.CampaignConfig{DataDir: tmpDir})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("database file not created at %s", dbPath)
	}
}

// --- ingest tests ---

func TestIngest(t *testing.T) {
	store, tmpDir := testSetup(t)
	writeLeadsCSV(t, tmpDir, sampleLeads())
	writeOutbox(t, tmpDir, sampleOutbox())

	var buf strings.Builder
	summary, err := store.Ingest(context.Background(), &buf)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if summary.Indexed != 2 {
		t.Errorf("Indexed = %d, want 2 (leads and outbox); output: %s", summary.Indexed, buf.String())
	}
	if summary.Failed != 0 {
		t.Errorf("Failed = %d, want 0; output: %s", summary.Failed, buf.String())
	}
}

func TestIngestWithoutOutbox(t *testing.T) {
	store, tmpDir := testSetup(t)
	writeLeadsCSV(t, tmpDir, sampleLeads())

	var buf strings.Builder
	summary, err := store.Ingest(context.Background(), &buf)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if summary.Indexed != 1 || summary.Skipped != 1 {
		t.Errorf("summary = %+v, want leads indexed and missing outbox skipped", summary)
	}
}

func TestIngestDropsLeadsWithoutID(t *testing.T) {
	store, tmpDir := testSetup(t)
	writeLeadsCSV(t, tmpDir, []types.Lead{
		{ID: "biz-1", Name: "Acme Immobilien"},
		{Name: "Ohne Kennung GmbH"},
		{Name: "Auch Ohne Kennung AG"},
	})

	var buf strings.Builder
	if _, err := store.Ingest(context.Background(), &buf); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	// ID-less rows must not be collapsed into a single record by the
	// unique id column; they are dropped instead.
	var count int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM leads`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("leads rows = %d, want only the keyed lead", count)
	}
}

func TestIngestMissingLeadsCSV(t *testing.T) {
	store, _ := testSetup(t)
	var buf strings.Builder
	if _, err := store.Ingest(context.Background(), &buf); err == nil {
		t.Fatal("expected error when the leads CSV is absent")
	}
}

func TestIngestStoresAllFields(t *testing.T) {
	store, tmpDir := testSetup(t)
	ingestHelper(t, store, tmpDir)

	results, err := store.Retrieve(context.Background(), QueryOptions{BusinessType: "Immobilienagentur"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}

	r := results[0]
	if r.ID != "biz-1" {
		t.Errorf("ID = %q, want biz-1", r.ID)
	}
	if r.Name != "Acme Immobilien" {
		t.Errorf("Name = %q", r.Name)
	}
	if r.Rating != 4.8 || r.ReviewCount != 120 || !r.Verified {
		t.Errorf("reputation fields = %v/%d/%v", r.Rating, r.ReviewCount, r.Verified)
	}
	if len(r.Emails) != 1 || r.Emails[0] != "info@acme.example" {
		t.Errorf("Emails = %v", r.Emails)
	}
	if r.ReputationScore != 0.85 {
		t.Errorf("ReputationScore = %v", r.ReputationScore)
	}
	if r.DraftSubject != "Ihre Immobilienprojekte verdienen mehr" {
		t.Errorf("DraftSubject = %q", r.DraftSubject)
	}
	if r.DeliveryStatus != "" {
		t.Errorf("DeliveryStatus = %q, want empty before any send", r.DeliveryStatus)
	}
}

func TestIngestPopulatesDraftsTable(t *testing.T) {
	store, tmpDir := testSetup(t)
	ingestHelper(t, store, tmpDir)

	var subject, model string
	var tokens int
	err := store.db.QueryRow(
		`SELECT subject, model, tokens_used FROM drafts WHERE lead_id = ?`, "biz-1",
	).Scan(&subject, &model, &tokens)
	if err != nil {
		t.Fatal(err)
	}
	if subject != "Ihre Immobilienprojekte verdienen mehr" || model != "test-model" || tokens != 700 {
		t.Errorf("draft row = %q/%q/%d", subject, model, tokens)
	}
}

func TestIngestWritesExportYAML(t *testing.T) {
	store, tmpDir := testSetup(t)
	ingestHelper(t, store, tmpDir)

	path := filepath.Join(tmpDir, indexDir, "export.yaml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("export.yaml not written after ingestion")
	}
}

// --- incremental update tests ---

func TestIngestSkipsUnchanged(t *testing.T) {
	store, tmpDir := testSetup(t)
	ingestHelper(t, store, tmpDir)

	var buf strings.Builder
	summary, err := store.Ingest(context.Background(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2; output: %s", summary.Skipped, buf.String())
	}
	if summary.Indexed != 0 {
		t.Errorf("Indexed = %d, want 0", summary.Indexed)
	}
}

func TestIngestUpdatesChanged(t *testing.T) {
	store, tmpDir := testSetup(t)
	ingestHelper(t, store, tmpDir)

	// Rewrite the CSV with a changed name and a newer mod time.
	changed := sampleLeads()
	changed[0].Name = "Acme Immobilien Neu"
	writeLeadsCSV(t, tmpDir, changed)
	csvPath := compose.LeadsCSVPath(tmpDir)
	future := time.Now().Add(time.Second)
	os.Chtimes(csvPath, future, future)

	var buf strings.Builder
	summary, err := store.Ingest(context.Background(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Updated != 1 {
		t.Errorf("Updated = %d, want 1; output: %s", summary.Updated, buf.String())
	}

	results, err := store.Retrieve(context.Background(), QueryOptions{Query: "Neu"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Name != "Acme Immobilien Neu" {
		t.Errorf("results = %+v, FTS should see the updated name", results)
	}
}

// --- retrieve tests ---

func TestRetrieveFullText(t *testing.T) {
	store, tmpDir := testSetup(t)
	ingestHelper(t, store, tmpDir)

	results, err := store.Retrieve(context.Background(), QueryOptions{Query: "Wohnimmobilien"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "biz-1" {
		t.Errorf("results = %+v, want biz-1 via about text", results)
	}
}

func TestRetrieveFilters(t *testing.T) {
	store, tmpDir := testSetup(t)
	ingestHelper(t, store, tmpDir)

	tests := []struct {
		name    string
		opts    QueryOptions
		wantIDs []string
	}{
		{"min rating", QueryOptions{MinRating: 4.0}, []string{"biz-1"}},
		{"has email", QueryOptions{HasEmail: true}, []string{"biz-1"}},
		{"business type", QueryOptions{BusinessType: "Hausverwaltung"}, []string{"biz-2"}},
		{"no filters ranked", QueryOptions{}, []string{"biz-1", "biz-2"}},
		{"fts with filter", QueryOptions{Query: "Verwaltung", BusinessType: "Hausverwaltung"}, []string{"biz-2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := store.Retrieve(context.Background(), tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if len(results) != len(tt.wantIDs) {
				t.Fatalf("got %d results, want %d: %+v", len(results), len(tt.wantIDs), results)
			}
			for i, id := range tt.wantIDs {
				if results[i].ID != id {
					t.Errorf("results[%d].ID = %q, want %q", i, results[i].ID, id)
				}
			}
		})
	}
}

func TestRetrieveMaxResults(t *testing.T) {
	store, tmpDir := testSetup(t)
	records := make([]types.Lead, 30)
	for i := range records {
		records[i] = types.Lead{
			ID:   fmt.Sprintf("biz-%02d", i),
			Name: fmt.Sprintf("Firma %02d", i),
		}
	}
	writeLeadsCSV(t, tmpDir, records)
	var buf strings.Builder
	if _, err := store.Ingest(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}

	results, err := store.Retrieve(context.Background(), QueryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 20 {
		t.Errorf("got %d results, want store default 20", len(results))
	}

	results, err = store.Retrieve(context.Background(), QueryOptions{MaxResults: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 5 {
		t.Errorf("got %d results, want 5", len(results))
	}
}

// --- delivery tests ---

func TestRecordDelivery(t *testing.T) {
	store, tmpDir := testSetup(t)
	ingestHelper(t, store, tmpDir)

	err := store.RecordDelivery(context.Background(), types.Delivery{
		LeadID: "biz-1", To: "info@acme.example",
		Status: types.DeliverySent, MessageID: "msg-1", SentAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}

	results, err := store.Retrieve(context.Background(), QueryOptions{DeliveryStatus: types.DeliverySent})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ID != "biz-1" {
		t.Errorf("results = %+v, want biz-1 marked sent", results)
	}
}

func TestRecordDeliveryLatestStatusWins(t *testing.T) {
	store, tmpDir := testSetup(t)
	ingestHelper(t, store, tmpDir)

	base := time.Now()
	for i, status := range []types.DeliveryStatus{types.DeliveryFailed, types.DeliverySent} {
		err := store.RecordDelivery(context.Background(), types.Delivery{
			LeadID: "biz-1", To: "info@acme.example",
			Status: status, SentAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	results, err := store.Retrieve(context.Background(), QueryOptions{DeliveryStatus: types.DeliveryFailed})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("results = %+v, failed filter should not match after a later success", results)
	}

	results, err = store.Retrieve(context.Background(), QueryOptions{DeliveryStatus: types.DeliverySent})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("results = %+v, want biz-1 with latest status sent", results)
	}
}

func TestRecordDeliveryStubsUnknownLead(t *testing.T) {
	store, _ := testSetup(t)

	err := store.RecordDelivery(context.Background(), types.Delivery{
		LeadID: "biz-unknown", To: "x@example.com",
		Status: types.DeliveryFailed, Error: "relay rejected", SentAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}

	var count int
	if err := store.db.QueryRow(`SELECT count(*) FROM deliveries`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("deliveries count = %d, want 1", count)
	}
}

// --- export tests ---

func TestExportJSON(t *testing.T) {
	store, tmpDir := testSetup(t)
	ingestHelper(t, store, tmpDir)

	if err := store.ExportJSON(context.Background(), QueryOptions{}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, indexDir, "export.json"))
	if err != nil {
		t.Fatal(err)
	}

	var entries []ExportEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("export.json is not valid JSON: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].ID != "biz-1" || entries[0].Draft == nil {
		t.Errorf("entries[0] = %+v, want biz-1 with draft", entries[0])
	}
	if entries[1].Draft != nil {
		t.Errorf("entries[1] = %+v, biz-2 has no draft", entries[1])
	}
}

func TestExportHonorsFilters(t *testing.T) {
	store, tmpDir := testSetup(t)
	ingestHelper(t, store, tmpDir)

	if err := store.ExportJSON(context.Background(), QueryOptions{HasEmail: true}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, indexDir, "export.json"))
	if err != nil {
		t.Fatal(err)
	}
	var entries []ExportEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ID != "biz-1" {
		t.Errorf("entries = %+v, want only leads with emails", entries)
	}
}
