// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package leads

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/outreach-engine/pkg/types"
)

// localBusinessSearchBase is the Local Business Data search-in-area
// endpoint. Declared as a var so tests can substitute an httptest server.
var localBusinessSearchBase = "https://local-business-data.p.rapidapi.com/search-in-area"

// LocalBusinessBackend queries the RapidAPI Local Business Data API.
type LocalBusinessBackend struct {
	Client *http.Client
	APIKey string
	// APIHost is the x-rapidapi-host header value. Defaults to the
	// production host when empty.
	APIHost string
}

const defaultAPIHost = "local-business-data.p.rapidapi.com"

// Name returns the backend identifier.
func (b *LocalBusinessBackend) Name() string { return "localbusiness" }

// Search queries the search-in-area endpoint for one keyword query.
func (b *LocalBusinessBackend) Search(ctx context.Context, query string, cfg types.LeadsConfig) ([]types.Lead, error) {
	if b.APIKey == "" {
		return nil, fmt.Errorf("missing API key for Local Business Data")
	}

	limit := cfg.MaxResults
	if limit <= 0 {
		limit = 100
	}
	if limit > 100 {
		limit = 100
	}
	zoom := cfg.Zoom
	if zoom <= 0 {
		zoom = 10
	}

	params := url.Values{
		"query": {query},
		"lat":   {strconv.FormatFloat(cfg.Latitude, 'f', -1, 64)},
		"lng":   {strconv.FormatFloat(cfg.Longitude, 'f', -1, 64)},
		"zoom":  {strconv.Itoa(zoom)},
		"limit": {strconv.Itoa(limit)},
	}
	if cfg.Language != "" {
		params.Set("language", cfg.Language)
	}
	if cfg.Region != "" {
		params.Set("region", cfg.Region)
	}
	if len(cfg.Subtypes) > 0 {
		params.Set("subtypes", strings.Join(cfg.Subtypes, ","))
	}
	if cfg.ExtractContacts {
		params.Set("extract_emails_and_contacts", "true")
	}

	reqURL := localBusinessSearchBase + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	req.Header.Set("x-rapidapi-key", b.APIKey)
	host := b.APIHost
	if host == "" {
		host = defaultAPIHost
	}
	req.Header.Set("x-rapidapi-host", host)

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Local Business Data API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := resp.Header.Get("Retry-After")
		if retryAfter != "" {
			return nil, fmt.Errorf("Local Business Data rate limit exceeded, retry after %s seconds", retryAfter)
		}
		return nil, fmt.Errorf("Local Business Data rate limit exceeded (HTTP 429)")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Local Business Data API returned HTTP %d", resp.StatusCode)
	}

	var lbr localBusinessResponse
	if err := json.NewDecoder(resp.Body).Decode(&lbr); err != nil {
		return nil, fmt.Errorf("parsing Local Business Data response: %w", err)
	}

	var results []types.Lead
	for _, biz := range lbr.Data {
		if biz.BusinessID == "" && biz.Name == "" {
			continue
		}

		l := types.Lead{
			ID:             biz.BusinessID,
			Name:           biz.Name,
			OwnerName:      biz.OwnerName,
			FullAddress:    biz.FullAddress,
			BusinessType:   biz.Type,
			Rating:         biz.Rating,
			ReviewCount:    biz.ReviewCount,
			Verified:       biz.Verified,
			BusinessStatus: biz.BusinessStatus,
			Website:        biz.Website,
			About:          biz.About.Summary,
			Source:         b.Name(),
			Query:          query,
		}

		l.Emails, l.PhoneNumbers, l.SocialMedia = flattenContacts(biz.Contacts)

		// The API occasionally omits business_id. Key such leads by
		// normalized name so stores with a unique id column do not
		// collapse them into one row.
		if l.ID == "" {
			l.ID = "name:" + normalizeName(l.Name)
		}

		results = append(results, l)
	}
	return results, nil
}

// flattenContacts splits the emails_and_contacts object into email and
// phone lists plus a social-media map. Every key other than emails and
// phone_numbers is treated as a social platform link.
func flattenContacts(raw map[string]json.RawMessage) (emails, phones []string, social map[string]string) {
	if len(raw) == 0 {
		return nil, nil, nil
	}

	for key, val := range raw {
		switch key {
		case "emails":
			emails = decodeStringList(val)
		case "phone_numbers":
			phones = decodeStringList(val)
		default:
			var s string
			if err := json.Unmarshal(val, &s); err != nil || s == "" {
				continue
			}
			if social == nil {
				social = make(map[string]string)
			}
			social[key] = s
		}
	}
	return emails, phones, social
}

// decodeStringList unmarshals a JSON array of strings, dropping empties.
func decodeStringList(raw json.RawMessage) []string {
	var vals []string
	if err := json.Unmarshal(raw, &vals); err != nil {
		return nil
	}
	var out []string
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Local Business Data API JSON structures.
type localBusinessResponse struct {
	Status string              `json:"status"`
	Data   []localBusinessItem `json:"data"`
}

type localBusinessItem struct {
	BusinessID     string                     `json:"business_id"`
	Name           string                     `json:"name"`
	OwnerName      string                     `json:"owner_name"`
	FullAddress    string                     `json:"full_address"`
	Type           string                     `json:"type"`
	Rating         float64                    `json:"rating"`
	ReviewCount    int                        `json:"review_count"`
	Verified       bool                       `json:"verified"`
	BusinessStatus string                     `json:"business_status"`
	Website        string                     `json:"website"`
	About          localBusinessAbout         `json:"about"`
	Contacts       map[string]json.RawMessage `json:"emails_and_contacts"`
}

type localBusinessAbout struct {
	Summary string `json:"summary"`
}
