// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package leads

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/outreach-engine/pkg/types"
)

// csvHeader is the leads CSV column order. Contact columns come first so
// the file is skimmable; profile context follows.
var csvHeader = []string{
	"business_id",
	"name",
	"phone_numbers",
	"emails",
	"social_media",
	"owner_name",
	"full_address",
	"type",
	"rating",
	"review_count",
	"verified",
	"business_status",
	"website",
	"about",
	"source",
	"query",
	"reputation_score",
}

// WriteCSV saves leads to a CSV file, creating parent directories as
// needed. Email and phone lists are comma-joined; the social-media map is
// stored as a JSON object.
func WriteCSV(leads []types.Lead, path string) error {
	if len(leads) == 0 {
		return fmt.Errorf("no leads to save")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", filepath.Dir(path), err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, l := range leads {
		social := ""
		if len(l.SocialMedia) > 0 {
			data, err := json.Marshal(l.SocialMedia)
			if err == nil {
				social = string(data)
			}
		}

		record := []string{
			l.ID,
			l.Name,
			strings.Join(l.PhoneNumbers, ","),
			strings.Join(l.Emails, ","),
			social,
			l.OwnerName,
			l.FullAddress,
			l.BusinessType,
			formatFloat(l.Rating),
			strconv.Itoa(l.ReviewCount),
			strconv.FormatBool(l.Verified),
			l.BusinessStatus,
			l.Website,
			l.About,
			l.Source,
			l.Query,
			formatFloat(l.ReputationScore),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing lead %s: %w", l.ID, err)
		}
	}

	w.Flush()
	return w.Error()
}

// ReadCSV loads leads from a CSV written by WriteCSV. Columns are matched
// by header name so files with reordered or extra columns still parse.
func ReadCSV(path string) ([]types.Lead, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("%s: empty CSV", path)
	}

	col := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		col[name] = i
	}

	field := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	var leads []types.Lead
	for _, row := range records[1:] {
		l := types.Lead{
			ID:             field(row, "business_id"),
			Name:           field(row, "name"),
			OwnerName:      field(row, "owner_name"),
			FullAddress:    field(row, "full_address"),
			BusinessType:   field(row, "type"),
			BusinessStatus: field(row, "business_status"),
			Website:        field(row, "website"),
			About:          field(row, "about"),
			Source:         field(row, "source"),
			Query:          field(row, "query"),
		}

		l.Rating, _ = strconv.ParseFloat(field(row, "rating"), 64)
		l.ReviewCount, _ = strconv.Atoi(field(row, "review_count"))
		l.Verified, _ = strconv.ParseBool(field(row, "verified"))
		l.ReputationScore, _ = strconv.ParseFloat(field(row, "reputation_score"), 64)

		l.Emails = splitList(field(row, "emails"))
		l.PhoneNumbers = splitList(field(row, "phone_numbers"))

		if social := field(row, "social_media"); social != "" {
			var m map[string]string
			if err := json.Unmarshal([]byte(social), &m); err == nil && len(m) > 0 {
				l.SocialMedia = m
			}
		}

		leads = append(leads, l)
	}
	return leads, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func formatFloat(f float64) string {
	if f == 0 {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
