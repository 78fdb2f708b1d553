// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package leads

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mesh-intelligence/outreach-engine/pkg/types"
)

func sampleLeads() []types.Lead {
	return []types.Lead{
		{
			ID:              "biz-1",
			Name:            "Acme Immobilien",
			OwnerName:       "Anna Schmidt",
			FullAddress:     "Hauptstraße 1, 10115 Berlin",
			BusinessType:    "Real estate agency",
			Rating:          4.6,
			ReviewCount:     87,
			Verified:        true,
			BusinessStatus:  "OPEN",
			Website:         "https://acme.example",
			About:           "Family-run agency.",
			Emails:          []string{"info@acme.example", "sales@acme.example"},
			PhoneNumbers:    []string{"+49301234567"},
			SocialMedia:     map[string]string{"facebook": "https://facebook.com/acme"},
			Source:          "localbusiness",
			Query:           "real estate",
			ReputationScore: 0.77,
		},
		{
			ID:   "biz-2",
			Name: "Berlin Homes",
		},
	}
}

func TestWriteCSVHeaderOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "leads.csv")
	if err := WriteCSV(sampleLeads(), path); err != nil {
		t.Fatalf("WriteCSV() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading CSV: %v", err)
	}
	firstLine := strings.SplitN(string(data), "\n", 2)[0]
	if !strings.HasPrefix(firstLine, "business_id,name,phone_numbers,emails,social_media") {
		t.Errorf("header = %q, contact columns should come first", firstLine)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.csv")
	want := sampleLeads()
	if err := WriteCSV(want, path); err != nil {
		t.Fatalf("WriteCSV() error: %v", err)
	}

	got, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV() error: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}

	acme := got[0]
	if acme.ID != "biz-1" || acme.Name != "Acme Immobilien" {
		t.Errorf("lead = %+v", acme)
	}
	if acme.Rating != 4.6 || acme.ReviewCount != 87 || !acme.Verified {
		t.Errorf("numeric fields lost: %+v", acme)
	}
	if len(acme.Emails) != 2 || acme.Emails[0] != "info@acme.example" {
		t.Errorf("emails = %v", acme.Emails)
	}
	if acme.SocialMedia["facebook"] != "https://facebook.com/acme" {
		t.Errorf("social = %v", acme.SocialMedia)
	}

	// Sparse lead survives with empty optional fields.
	if got[1].ID != "biz-2" || got[1].ContactEmail() != "" {
		t.Errorf("sparse lead = %+v", got[1])
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	if err := WriteCSV(nil, filepath.Join(t.TempDir(), "leads.csv")); err == nil {
		t.Fatal("expected error for empty lead set")
	}
}

func TestReadCSVUnknownColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.csv")
	content := "name,emails,extra_column,business_id\nAcme,info@acme.example,ignored,biz-9\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV() error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].ID != "biz-9" || got[0].Name != "Acme" || got[0].ContactEmail() != "info@acme.example" {
		t.Errorf("lead = %+v, columns should be matched by header name", got[0])
	}
}

func TestReadCSVMissing(t *testing.T) {
	if _, err := ReadCSV(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
