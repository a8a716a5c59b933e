package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Coordinates is a WGS84 point as reported by the provider.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RawResult is one provider record from a single query page.
type RawResult struct {
	PlaceID     string       `json:"place_id"`
	Name        string       `json:"name"`
	Address     string       `json:"formatted_address"`
	Phone       *string      `json:"phone,omitempty"`
	Website     *string      `json:"website,omitempty"`
	Rating      *float64     `json:"rating,omitempty"`
	RatingCount *int         `json:"user_ratings_total,omitempty"`
	Status      string       `json:"business_status"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

var folder = cases.Lower(language.Und)

// FoldName lower-cases a business name for comparisons.
func FoldName(name string) string {
	return folder.String(strings.TrimSpace(name))
}

// DedupKey identifies a record across query variants. The provider's place
// id is used when present; otherwise the phone number and then the folded
// name stand in, which can merge distinct businesses sharing a name.
func (r RawResult) DedupKey() string {
	if r.PlaceID != "" {
		return "id:" + r.PlaceID
	}
	if r.Phone != nil {
		if digits := phoneDigits(*r.Phone); digits != "" {
			return "phone:" + digits
		}
	}
	return "name:" + FoldName(r.Name)
}

func phoneDigits(phone string) string {
	var b strings.Builder
	for _, c := range phone {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// Lead is the externally visible shape of a business. Optional values are
// always present and encode as null.
type Lead struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Address     string       `json:"address"`
	Phone       *string      `json:"phone"`
	Website     *string      `json:"website"`
	Rating      *float64     `json:"rating"`
	RatingCount *int         `json:"ratingCount"`
	Status      string       `json:"status"`
	Coordinates *Coordinates `json:"coordinates"`
}

// Normalize converts a provider record into a Lead.
func Normalize(r RawResult) Lead {
	return Lead{
		ID:          r.PlaceID,
		Name:        strings.TrimSpace(r.Name),
		Address:     strings.TrimSpace(r.Address),
		Phone:       nonEmpty(r.Phone),
		Website:     nonEmpty(r.Website),
		Rating:      r.Rating,
		RatingCount: r.RatingCount,
		Status:      r.Status,
		Coordinates: r.Coordinates,
	}
}

// NormalizeAll converts records in order. It never returns nil so that an
// empty result set encodes as [].
func NormalizeAll(results []RawResult) []Lead {
	leads := make([]Lead, 0, len(results))
	for _, r := range results {
		leads = append(leads, Normalize(r))
	}
	return leads
}

// GoogleMapsURL links to the lead on Google Maps, or "" without a place id.
func (l Lead) GoogleMapsURL() string {
	if l.ID == "" {
		return ""
	}
	return "https://www.google.com/maps/place/?q=place_id:" + l.ID
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// Ptr returns a pointer to v. Parsers use it for optional fields.
func Ptr[T any](v T) *T {
	return &v
}
