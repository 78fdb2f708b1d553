// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package leads

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/mesh-intelligence/outreach-engine/pkg/types"
)

// QueryFile is the on-disk representation of a lead search and its
// results. A search can be saved to a file and reloaded later without
// re-querying the API.
type QueryFile struct {
	Queries []string        `yaml:"queries"`
	Config  QueryFileConfig `yaml:"config"`
	Leads   []types.Lead    `yaml:"leads"`
	Summary QuerySummary    `yaml:"summary"`
}

// QueryFileConfig stores the search configuration that produced the results.
type QueryFileConfig struct {
	Latitude   float64  `yaml:"latitude"`
	Longitude  float64  `yaml:"longitude"`
	Zoom       int      `yaml:"zoom"`
	Region     string   `yaml:"region,omitempty"`
	Language   string   `yaml:"language,omitempty"`
	Subtypes   []string `yaml:"subtypes,omitempty"`
	MaxResults int      `yaml:"max_results"`
}

// QuerySummary stores result statistics and a timestamp.
type QuerySummary struct {
	Total             int       `yaml:"total"`
	DuplicatesRemoved int       `yaml:"duplicates_removed"`
	QueryErrors       []string  `yaml:"query_errors,omitempty"`
	Timestamp         time.Time `yaml:"timestamp"`
}

// WriteQueryFile saves the query parameters and results to a YAML file.
func WriteQueryFile(path string, cfg types.LeadsConfig, out SearchOutput) error {
	qf := QueryFile{
		Queries: cfg.Queries,
		Config: QueryFileConfig{
			Latitude:   cfg.Latitude,
			Longitude:  cfg.Longitude,
			Zoom:       cfg.Zoom,
			Region:     cfg.Region,
			Language:   cfg.Language,
			Subtypes:   cfg.Subtypes,
			MaxResults: cfg.MaxResults,
		},
		Leads: out.Leads,
		Summary: QuerySummary{
			Total:             len(out.Leads),
			DuplicatesRemoved: out.DupsRemoved,
			QueryErrors:       out.QueryErrors,
			Timestamp:         time.Now(),
		},
	}

	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a previously saved query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	return &qf, nil
}
