// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package campaign

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// ExportEntry holds a lead with its campaign state for export.
type ExportEntry struct {
	ID              string       `json:"id" yaml:"id"`
	Name            string       `json:"name" yaml:"name"`
	BusinessType    string       `json:"business_type,omitempty" yaml:"business_type,omitempty"`
	FullAddress     string       `json:"full_address,omitempty" yaml:"full_address,omitempty"`
	Rating          float64      `json:"rating,omitempty" yaml:"rating,omitempty"`
	ReviewCount     int          `json:"review_count,omitempty" yaml:"review_count,omitempty"`
	Website         string       `json:"website,omitempty" yaml:"website,omitempty"`
	Emails          []string     `json:"emails,omitempty" yaml:"emails,omitempty"`
	ReputationScore float64      `json:"reputation_score" yaml:"reputation_score"`
	Draft           *ExportDraft `json:"draft,omitempty" yaml:"draft,omitempty"`
	DeliveryStatus  string       `json:"delivery_status,omitempty" yaml:"delivery_status,omitempty"`
}

// ExportDraft holds the draft-level fields included in an export entry.
type ExportDraft struct {
	Subject string `json:"subject" yaml:"subject"`
}

const exportLimit = 100000

// ExportYAML writes the campaign store to dataDir/index/export.yaml.
// It supports the same filters as Retrieve.
func (s *Store) ExportYAML(ctx context.Context, opts QueryOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}

	path := filepath.Join(s.dataDir, indexDir, "export.yaml")
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ExportJSON writes the campaign store to dataDir/index/export.json.
// It supports the same filters as Retrieve.
func (s *Store) ExportJSON(ctx context.Context, opts QueryOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}

	path := filepath.Join(s.dataDir, indexDir, "export.json")
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Store) exportEntries(ctx context.Context, opts QueryOptions) ([]ExportEntry, error) {
	opts.MaxResults = exportLimit
	results, err := s.Retrieve(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	entries := make([]ExportEntry, len(results))
	for i, r := range results {
		entries[i] = ExportEntry{
			ID:              r.ID,
			Name:            r.Name,
			BusinessType:    r.BusinessType,
			FullAddress:     r.FullAddress,
			Rating:          r.Rating,
			ReviewCount:     r.ReviewCount,
			Website:         r.Website,
			Emails:          r.Emails,
			ReputationScore: r.ReputationScore,
		}
		if r.DraftSubject != "" {
			entries[i].Draft = &ExportDraft{Subject: r.DraftSubject}
		}
		if r.DeliveryStatus != "" {
			entries[i].DeliveryStatus = string(r.DeliveryStatus)
		}
	}

	return entries, nil
}
