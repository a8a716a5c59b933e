package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/kvora49/Lead-finder-sub001/internal/model"
)

const (
	DefaultPlacesURL = "https://maps.googleapis.com"
	textSearchPath   = "/maps/api/place/textsearch/json"
)

// PlacesExecutor queries the Google Places Text Search API with an API key.
type PlacesExecutor struct {
	baseURL string
	apiKey  string
	lang    string
	http    *http.Client
	log     *zap.Logger
}

func NewPlacesExecutor(baseURL, apiKey, lang string, client *http.Client, log *zap.Logger) *PlacesExecutor {
	if baseURL == "" {
		baseURL = DefaultPlacesURL
	}
	if client == nil {
		client = NewHTTPClient(TransportOptions{})
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PlacesExecutor{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		lang:    lang,
		http:    client,
		log:     log.Named("places"),
	}
}

func (p *PlacesExecutor) Name() string { return "places" }

// Begin has nothing to prepare; the location is already part of each query.
func (p *PlacesExecutor) Begin(context.Context, string) (Session, error) {
	return p, nil
}

func (p *PlacesExecutor) Close() error { return nil }

func (p *PlacesExecutor) FetchPage(ctx context.Context, query, pageToken string) (Page, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("key", p.apiKey)
	if p.lang != "" {
		params.Set("language", p.lang)
	}
	if pageToken != "" {
		params.Set("pagetoken", pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+textSearchPath+"?"+params.Encode(), nil)
	if err != nil {
		return Page{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return Page{}, &Error{Status: StatusHTTP, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("reading body: %w", err)
	}
	return p.parse(body)
}

func (p *PlacesExecutor) parse(body []byte) (Page, error) {
	if !gjson.ValidBytes(body) {
		return Page{}, &Error{Status: StatusBadResponse, Message: "response is not valid JSON"}
	}
	doc := gjson.ParseBytes(body)

	switch status := doc.Get("status").String(); status {
	case "OK":
	case "ZERO_RESULTS":
		return Page{ZeroResults: true}, nil
	default:
		return Page{}, &Error{Status: status, Message: doc.Get("error_message").String()}
	}

	var results []model.RawResult
	doc.Get("results").ForEach(func(_, rec gjson.Result) bool {
		r, ok := parsePlace(rec)
		if !ok {
			p.log.Debug("skipping malformed record", zap.String("raw", truncate(rec.Raw, 200)))
			return true
		}
		results = append(results, r)
		return true
	})

	return Page{
		Results:   results,
		NextToken: doc.Get("next_page_token").String(),
	}, nil
}

func parsePlace(rec gjson.Result) (model.RawResult, bool) {
	id := rec.Get("place_id").String()
	name := strings.TrimSpace(rec.Get("name").String())
	if id == "" || name == "" {
		return model.RawResult{}, false
	}

	r := model.RawResult{
		PlaceID: id,
		Name:    name,
		Address: rec.Get("formatted_address").String(),
		Status:  rec.Get("business_status").String(),
	}
	if v := rec.Get("formatted_phone_number"); v.Exists() && v.String() != "" {
		r.Phone = model.Ptr(v.String())
	} else if v := rec.Get("international_phone_number"); v.Exists() && v.String() != "" {
		r.Phone = model.Ptr(v.String())
	}
	if v := rec.Get("website"); v.Exists() && v.String() != "" {
		r.Website = model.Ptr(v.String())
	}
	if v := rec.Get("rating"); v.Type == gjson.Number {
		r.Rating = model.Ptr(v.Float())
	}
	if v := rec.Get("user_ratings_total"); v.Type == gjson.Number {
		r.RatingCount = model.Ptr(int(v.Int()))
	}
	lat, lng := rec.Get("geometry.location.lat"), rec.Get("geometry.location.lng")
	if lat.Type == gjson.Number && lng.Type == gjson.Number {
		r.Coordinates = &model.Coordinates{Lat: lat.Float(), Lng: lng.Float()}
	}
	return r, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
