package model

import (
	"fmt"
	"strings"
)

// Category sentinels recognised by the query planner.
const (
	CategoryAll    = "All"
	CategoryCustom = "Custom"
)

// Scope narrows the location a search targets.
type Scope string

const (
	ScopeCity          Scope = "city"
	ScopeNeighbourhood Scope = "neighbourhood"
	ScopeSpecific      Scope = "specific"
)

// ParseScope maps user input onto a Scope. Empty input means city.
func ParseScope(s string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "city":
		return ScopeCity, nil
	case "neighbourhood", "neighborhood":
		return ScopeNeighbourhood, nil
	case "specific":
		return ScopeSpecific, nil
	}
	return "", &ValidationError{Field: "scope", Reason: fmt.Sprintf("unknown scope %q", s)}
}

// ValidationError reports a request that was rejected before any provider call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// SearchRequest is the immutable input of a single search.
type SearchRequest struct {
	Keyword  string `json:"keyword"`
	Category string `json:"category"`
	Location string `json:"location"`
	Scope    Scope  `json:"scope"`
	SubArea  string `json:"subArea"`
}

// NewSearchRequest trims its inputs and rejects an empty keyword or location.
func NewSearchRequest(keyword, category, location string, scope Scope, subArea string) (SearchRequest, error) {
	req := SearchRequest{
		Keyword:  strings.TrimSpace(keyword),
		Category: strings.TrimSpace(category),
		Location: strings.TrimSpace(location),
		Scope:    scope,
		SubArea:  strings.TrimSpace(subArea),
	}
	if req.Scope == "" {
		req.Scope = ScopeCity
	}
	if err := req.Validate(); err != nil {
		return SearchRequest{}, err
	}
	return req, nil
}

// Validate checks what NewSearchRequest enforces. It is exported so
// that requests decoded from JSON can be checked too.
func (r SearchRequest) Validate() error {
	if strings.TrimSpace(r.Keyword) == "" {
		return &ValidationError{Field: "keyword", Reason: "must not be empty"}
	}
	if strings.TrimSpace(r.Location) == "" {
		return &ValidationError{Field: "location", Reason: "must not be empty"}
	}
	switch r.Scope {
	case ScopeCity, ScopeNeighbourhood, ScopeSpecific:
	default:
		return &ValidationError{Field: "scope", Reason: fmt.Sprintf("unknown scope %q", r.Scope)}
	}
	return nil
}

// IsAllCategory reports whether the request asks for every business type.
func (r SearchRequest) IsAllCategory() bool {
	return strings.EqualFold(r.Category, CategoryAll)
}

// IsCustomCategory reports whether the request is keyword-only. An empty
// category counts as custom.
func (r SearchRequest) IsCustomCategory() bool {
	return r.Category == "" || strings.EqualFold(r.Category, CategoryCustom)
}

// PlanLocation is the location token embedded in every query variant.
func (r SearchRequest) PlanLocation() string {
	if r.Scope != ScopeCity && r.SubArea != "" {
		return r.SubArea + ", " + r.Location
	}
	return r.Location
}
