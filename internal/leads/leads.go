// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package leads queries business-data APIs and returns unified, deduplicated leads.
package leads

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/mesh-intelligence/outreach-engine/pkg/types"
)

// Backend searches a single business-data API. Each backend implements
// this interface per the Strategy pattern so the pipeline can swap lead
// sources without touching the fan-out logic.
type Backend interface {
	Name() string
	Search(ctx context.Context, query string, cfg types.LeadsConfig) ([]types.Lead, error)
}

// SearchOutput holds the deduplicated leads and fan-out statistics.
type SearchOutput struct {
	Leads       []types.Lead
	DupsRemoved int
	QueryErrors []string
}

// Search fans out one request per configured keyword query concurrently,
// deduplicates leads across queries, ranks them by reputation, and
// returns the merged set. A failing query logs a warning to w and the
// remaining queries proceed.
func Search(ctx context.Context, backend Backend, cfg types.LeadsConfig, w io.Writer) (SearchOutput, error) {
	queries := nonEmptyQueries(cfg.Queries)
	if len(queries) == 0 {
		return SearchOutput{}, fmt.Errorf("no queries configured: provide at least one keyword query")
	}
	if backend == nil {
		return SearchOutput{}, fmt.Errorf("no lead backend configured")
	}

	type queryResult struct {
		leads []types.Lead
		err   error
		query string
	}

	ch := make(chan queryResult, len(queries))
	var wg sync.WaitGroup

	for i, q := range queries {
		if i > 0 && cfg.InterQueryDelay > 0 {
			time.Sleep(cfg.InterQueryDelay)
		}
		wg.Add(1)
		go func(q string) {
			defer wg.Done()
			found, err := backend.Search(ctx, q, cfg)
			ch <- queryResult{leads: found, err: err, query: q}
		}(q)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	var all []types.Lead
	var queryErrors []string
	for qr := range ch {
		if qr.err != nil {
			msg := fmt.Sprintf("%q: %v", qr.query, qr.err)
			queryErrors = append(queryErrors, msg)
			fmt.Fprintf(w, "warning: query %q failed: %v\n", qr.query, qr.err)
			continue
		}
		all = append(all, qr.leads...)
	}

	if len(all) == 0 && len(queryErrors) == len(queries) {
		return SearchOutput{QueryErrors: queryErrors}, fmt.Errorf("all %d queries failed", len(queries))
	}

	deduped, removed := deduplicate(all)

	for i := range deduped {
		deduped[i].ReputationScore = reputationScore(deduped[i])
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].ReputationScore > deduped[j].ReputationScore
	})

	// MaxResults caps the merged set, not just the per-query API limit.
	if cfg.MaxResults > 0 && len(deduped) > cfg.MaxResults {
		deduped = deduped[:cfg.MaxResults]
	}

	return SearchOutput{
		Leads:       deduped,
		DupsRemoved: removed,
		QueryErrors: queryErrors,
	}, nil
}

// deduplicate merges leads that share a business ID or normalized name.
func deduplicate(all []types.Lead) ([]types.Lead, int) {
	seen := make(map[string]int) // dedup key → index in deduped
	var deduped []types.Lead
	removed := 0

	for _, l := range all {
		key := dedupKey(l)
		if idx, ok := seen[key]; ok && key != "" {
			mergeInto(&deduped[idx], l)
			removed++
			continue
		}

		// Also check by normalized name.
		nameKey := "name:" + normalizeName(l.Name)
		if nameKey != "name:" {
			if idx, ok := seen[nameKey]; ok {
				mergeInto(&deduped[idx], l)
				removed++
				continue
			}
		}

		idx := len(deduped)
		deduped = append(deduped, l)
		if key != "" {
			seen[key] = idx
		}
		if nameKey != "name:" {
			seen[nameKey] = idx
		}
	}
	return deduped, removed
}

// dedupKey returns a key for identifier-based dedup.
func dedupKey(l types.Lead) string {
	if l.ID != "" {
		return "id:" + l.ID
	}
	return ""
}

// mergeInto fills empty fields of dst from src and keeps the union of
// contact details. The query fields are combined so provenance survives.
func mergeInto(dst *types.Lead, src types.Lead) {
	if dst.Name == "" && src.Name != "" {
		dst.Name = src.Name
	}
	if dst.OwnerName == "" {
		dst.OwnerName = src.OwnerName
	}
	if dst.FullAddress == "" {
		dst.FullAddress = src.FullAddress
	}
	if dst.BusinessType == "" {
		dst.BusinessType = src.BusinessType
	}
	if dst.Website == "" {
		dst.Website = src.Website
	}
	if dst.About == "" {
		dst.About = src.About
	}
	if src.Rating > dst.Rating {
		dst.Rating = src.Rating
	}
	if src.ReviewCount > dst.ReviewCount {
		dst.ReviewCount = src.ReviewCount
	}
	if src.Verified {
		dst.Verified = true
	}
	if dst.BusinessStatus == "" {
		dst.BusinessStatus = src.BusinessStatus
	}

	dst.Emails = mergeStrings(dst.Emails, src.Emails)
	dst.PhoneNumbers = mergeStrings(dst.PhoneNumbers, src.PhoneNumbers)
	for k, v := range src.SocialMedia {
		if dst.SocialMedia == nil {
			dst.SocialMedia = make(map[string]string)
		}
		if _, ok := dst.SocialMedia[k]; !ok {
			dst.SocialMedia[k] = v
		}
	}

	if dst.Query != src.Query && src.Query != "" && !strings.Contains(dst.Query, src.Query) {
		if dst.Query == "" {
			dst.Query = src.Query
		} else {
			dst.Query = dst.Query + "," + src.Query
		}
	}
	if dst.Source != src.Source && src.Source != "" && !strings.Contains(dst.Source, src.Source) {
		dst.Source = dst.Source + "," + src.Source
	}
}

// mergeStrings appends values from src that dst does not already contain.
func mergeStrings(dst, src []string) []string {
	seen := make(map[string]bool, len(dst))
	for _, v := range dst {
		seen[v] = true
	}
	for _, v := range src {
		if v != "" && !seen[v] {
			dst = append(dst, v)
			seen[v] = true
		}
	}
	return dst
}

// normalizeName returns a lowercased, punctuation-stripped version of the
// business name.
func normalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// reviewSaturation is the review count at which the volume component of
// the reputation score maxes out.
const reviewSaturation = 200

// reputationScore derives a 0..1 ranking score from rating and review
// volume. Rating dominates; review count saturates at reviewSaturation so
// a huge chain does not bury a well-rated small business.
func reputationScore(l types.Lead) float64 {
	rating := math.Max(0, math.Min(l.Rating, 5)) / 5.0
	volume := math.Min(float64(l.ReviewCount), reviewSaturation) / reviewSaturation
	return 0.7*rating + 0.3*volume
}

// nonEmptyQueries trims and drops blank entries.
func nonEmptyQueries(queries []string) []string {
	var out []string
	for _, q := range queries {
		if t := strings.TrimSpace(q); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// FormatTable writes leads as a human-readable table to w.
func FormatTable(out SearchOutput, w io.Writer) {
	if len(out.Leads) == 0 {
		fmt.Fprintln(w, "No leads found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-40s  %-26s  %-6s  %-7s  %s\n",
		"Rank", "Name", "Type", "Rating", "Reviews", "Email")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for i, l := range out.Leads {
		name := l.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		bizType := l.BusinessType
		if len(bizType) > 26 {
			bizType = bizType[:23] + "..."
		}
		fmt.Fprintf(w, "%-4d  %-40s  %-26s  %-6.1f  %-7d  %s\n",
			i+1, name, bizType, l.Rating, l.ReviewCount, l.ContactEmail())
	}

	fmt.Fprintf(w, "\n%d leads", len(out.Leads))
	if out.DupsRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates removed)", out.DupsRemoved)
	}
	fmt.Fprintln(w)
}

// FormatJSON writes leads as indented JSON to w.
func FormatJSON(out SearchOutput, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out.Leads)
}
