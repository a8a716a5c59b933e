package provider

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/kvora49/Lead-finder-sub001/internal/model"
)

// ParseMapResponse parses a tbm=map JSON response. The second return value
// is false when the body is not a recognisable result document.
func ParseMapResponse(body []byte) ([]model.RawResult, bool) {
	// Strip anti-XSS prefix )]}'\n
	if idx := bytes.IndexByte(body, '\n'); idx >= 0 && idx < 10 {
		body = body[idx+1:]
	}

	var raw []any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, false
	}

	// Business items are at root[0][1][1..N][14]; index 0 is search metadata.
	items := safeSlice(safeGet(raw, 0, 1))

	var results []model.RawResult
	for i := 1; i < len(items); i++ {
		biz := safeSlice(safeGet(items, i, 14))
		if len(biz) == 0 {
			continue
		}

		name := strings.TrimSpace(safeString(safeGet(biz, 11)))
		if name == "" {
			continue
		}

		r := model.RawResult{
			PlaceID: safeString(safeGet(biz, 78)),
			Name:    name,
			Address: safeString(safeGet(biz, 18)),
			Phone:   optString(safeGet(biz, 178, 0, 0)),
			Website: optString(safeGet(biz, 7, 0)),
		}
		if v, ok := safeFloat(safeGet(biz, 4, 7)); ok {
			r.Rating = model.Ptr(v)
		}
		if v, ok := safeFloat(safeGet(biz, 4, 8)); ok {
			r.RatingCount = model.Ptr(int(v))
		}
		lat, okLat := safeFloat(safeGet(biz, 9, 2))
		lng, okLng := safeFloat(safeGet(biz, 9, 3))
		if okLat && okLng {
			r.Coordinates = &model.Coordinates{Lat: lat, Lng: lng}
		}

		results = append(results, r)
	}

	return results, true
}

// safeGet navigates nested []any arrays by index path without panicking.
func safeGet(data any, path ...int) any {
	current := data
	for _, idx := range path {
		slice, ok := current.([]any)
		if !ok || idx < 0 || idx >= len(slice) {
			return nil
		}
		current = slice[idx]
	}
	return current
}

func safeSlice(data any) []any {
	slice, _ := data.([]any)
	return slice
}

// safeString extracts a string from any. Handles string and numbers.
func safeString(data any) string {
	switch v := data.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func optString(data any) *string {
	if s := strings.TrimSpace(safeString(data)); s != "" {
		return &s
	}
	return nil
}

// safeFloat extracts a float64 from numbers and numeric strings.
func safeFloat(data any) (float64, bool) {
	switch v := data.(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}
