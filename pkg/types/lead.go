// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the outreach-engine pipeline.
package types

// Lead represents a business record returned by a lead-search backend.
// Each lead carries the contact details extracted from the source API
// plus enough profile context for personalized email composition.
type Lead struct {
	// ID is the canonical business identifier from the source API.
	ID string `json:"id" yaml:"id"`

	// Name is the business name.
	Name string `json:"name" yaml:"name"`

	// OwnerName is the listed owner or contact person, when available.
	OwnerName string `json:"owner_name,omitempty" yaml:"owner_name,omitempty"`

	// FullAddress is the complete street address.
	FullAddress string `json:"full_address,omitempty" yaml:"full_address,omitempty"`

	// BusinessType is the primary category (e.g. "Real estate agency").
	BusinessType string `json:"business_type,omitempty" yaml:"business_type,omitempty"`

	// Rating is the average review rating out of 5, zero if unrated.
	Rating float64 `json:"rating,omitempty" yaml:"rating,omitempty"`

	// ReviewCount is the number of reviews behind the rating.
	ReviewCount int `json:"review_count,omitempty" yaml:"review_count,omitempty"`

	// Verified reports whether the listing is verified by its owner.
	Verified bool `json:"verified,omitempty" yaml:"verified,omitempty"`

	// BusinessStatus is the operational status (e.g. "OPEN").
	BusinessStatus string `json:"business_status,omitempty" yaml:"business_status,omitempty"`

	// Website is the business website URL.
	Website string `json:"website,omitempty" yaml:"website,omitempty"`

	// About is free-form profile text describing the business.
	About string `json:"about,omitempty" yaml:"about,omitempty"`

	// Emails lists contact addresses extracted from the listing.
	Emails []string `json:"emails,omitempty" yaml:"emails,omitempty"`

	// PhoneNumbers lists contact phone numbers extracted from the listing.
	PhoneNumbers []string `json:"phone_numbers,omitempty" yaml:"phone_numbers,omitempty"`

	// SocialMedia maps platform names to profile URLs.
	SocialMedia map[string]string `json:"social_media,omitempty" yaml:"social_media,omitempty"`

	// Source identifies which backend found this lead (e.g. "localbusiness").
	Source string `json:"source" yaml:"source"`

	// Query is the keyword query that produced this lead.
	Query string `json:"query,omitempty" yaml:"query,omitempty"`

	// ReputationScore is a value between 0.0 and 1.0 derived from rating
	// and review count, used for ranking.
	ReputationScore float64 `json:"reputation_score" yaml:"reputation_score"`
}

// ContactEmail returns the first contact address, or "" when the lead
// carries none. Leads without a contact email are skipped at compose time.
func (l Lead) ContactEmail() string {
	if len(l.Emails) == 0 {
		return ""
	}
	return l.Emails[0]
}
