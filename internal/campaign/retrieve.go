// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package campaign

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/outreach-engine/pkg/types"
)

// QueryOptions holds parameters for campaign store queries.
type QueryOptions struct {
	// Query is the FTS5 full-text search string, matched against lead
	// name, business type, and about text.
	Query string

	// BusinessType filters by exact business type.
	BusinessType string

	// MinRating filters to leads rated at or above the value.
	MinRating float64

	// HasEmail keeps only leads with at least one contact email.
	HasEmail bool

	// DeliveryStatus filters by the status of the most recent delivery.
	DeliveryStatus types.DeliveryStatus

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.BusinessType == "" && q.MinRating == 0 &&
		!q.HasEmail && q.DeliveryStatus == ""
}

// LeadRecord is a lead with its draft and latest delivery state.
type LeadRecord struct {
	types.Lead
	DraftSubject   string               `json:"draft_subject,omitempty" yaml:"draft_subject,omitempty"`
	DeliveryStatus types.DeliveryStatus `json:"delivery_status,omitempty" yaml:"delivery_status,omitempty"`
}

// Retrieve queries the campaign store with optional full-text search and
// structured filters. Full-text queries rank by relevance; structured
// queries sort by reputation score descending.
func (s *Store) Retrieve(ctx context.Context, opts QueryOptions) ([]LeadRecord, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb     strings.Builder
		args   []any
		useFTS = opts.Query != ""
	)

	const columns = `l.id, l.name, l.owner_name, l.full_address, l.business_type,
		l.rating, l.review_count, l.verified, l.business_status, l.website,
		l.about, l.emails, l.phone_numbers, l.social_media, l.source, l.query,
		l.reputation_score, d.subject,
		(SELECT dv.status FROM deliveries dv WHERE dv.lead_id = l.id
		 ORDER BY dv.sent_at DESC, dv.rowid DESC LIMIT 1)`

	if useFTS {
		qb.WriteString(`SELECT ` + columns + `, leads_fts.rank
			FROM leads_fts
			JOIN leads l ON l.rowid = leads_fts.rowid
			LEFT JOIN drafts d ON d.lead_id = l.id
			WHERE leads_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		qb.WriteString(`SELECT ` + columns + `, 0 AS rank
			FROM leads l
			LEFT JOIN drafts d ON d.lead_id = l.id
			WHERE 1=1`)
	}

	if opts.BusinessType != "" {
		qb.WriteString(` AND l.business_type = ?`)
		args = append(args, opts.BusinessType)
	}

	if opts.MinRating > 0 {
		qb.WriteString(` AND l.rating >= ?`)
		args = append(args, opts.MinRating)
	}

	if opts.HasEmail {
		qb.WriteString(` AND l.emails IS NOT NULL AND json_array_length(l.emails) > 0`)
	}

	if opts.DeliveryStatus != "" {
		qb.WriteString(` AND (SELECT dv.status FROM deliveries dv WHERE dv.lead_id = l.id
			ORDER BY dv.sent_at DESC, dv.rowid DESC LIMIT 1) = ?`)
		args = append(args, string(opts.DeliveryStatus))
	}

	if useFTS {
		qb.WriteString(` ORDER BY leads_fts.rank`)
	} else {
		qb.WriteString(` ORDER BY l.reputation_score DESC, l.name`)
	}

	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying campaign store: %w", err)
	}
	defer rows.Close()

	var results []LeadRecord
	for rows.Next() {
		// Stub leads created for orphan drafts leave most columns NULL.
		var (
			lr          LeadRecord
			rating      sql.NullFloat64
			reviewCount sql.NullInt64
			verified    sql.NullBool
			repScore    sql.NullFloat64
			emailsJSON  sql.NullString
			phonesJSON  sql.NullString
			socialJSON  sql.NullString
			subject     sql.NullString
			status      sql.NullString
			name        sql.NullString
			ownerName   sql.NullString
			fullAddress sql.NullString
			bizType     sql.NullString
			bizStatus   sql.NullString
			website     sql.NullString
			about       sql.NullString
			source      sql.NullString
			query       sql.NullString
			rank        float64
		)

		if err := rows.Scan(
			&lr.ID, &name, &ownerName, &fullAddress, &bizType,
			&rating, &reviewCount, &verified, &bizStatus, &website,
			&about, &emailsJSON, &phonesJSON, &socialJSON, &source, &query,
			&repScore, &subject, &status, &rank,
		); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		lr.Rating = rating.Float64
		lr.ReviewCount = int(reviewCount.Int64)
		lr.Verified = verified.Bool
		lr.ReputationScore = repScore.Float64
		lr.Name = name.String
		lr.OwnerName = ownerName.String
		lr.FullAddress = fullAddress.String
		lr.BusinessType = bizType.String
		lr.BusinessStatus = bizStatus.String
		lr.Website = website.String
		lr.About = about.String
		lr.Source = source.String
		lr.Query = query.String

		if emailsJSON.Valid {
			json.Unmarshal([]byte(emailsJSON.String), &lr.Emails)
		}
		if phonesJSON.Valid {
			json.Unmarshal([]byte(phonesJSON.String), &lr.PhoneNumbers)
		}
		if socialJSON.Valid {
			json.Unmarshal([]byte(socialJSON.String), &lr.SocialMedia)
		}
		if subject.Valid {
			lr.DraftSubject = subject.String
		}
		if status.Valid {
			lr.DeliveryStatus = types.DeliveryStatus(status.String)
		}

		results = append(results, lr)
	}

	return results, rows.Err()
}
