package provider

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kvora49/Lead-finder-sub001/internal/engine/geo"
)

const DefaultMapsURL = "https://www.google.com"

// Locator resolves a free-text location to a map viewport.
type Locator interface {
	Locate(ctx context.Context, q string) (geo.Place, error)
}

// MapsExecutor scrapes the keyless tbm=map endpoint that backs the Google
// Maps web client.
type MapsExecutor struct {
	baseURL string
	lang    string
	http    *http.Client
	locator Locator
	log     *zap.Logger
}

func NewMapsExecutor(baseURL, lang string, client *http.Client, locator Locator, log *zap.Logger) *MapsExecutor {
	if baseURL == "" {
		baseURL = DefaultMapsURL
	}
	if lang == "" {
		lang = "en"
	}
	if client == nil {
		client = NewHTTPClient(TransportOptions{Fingerprint: FingerprintChrome})
	}
	if log == nil {
		log = zap.NewNop()
	}

	baseURL = strings.TrimRight(baseURL, "/")
	jar, _ := cookiejar.New(nil)
	if u, err := url.Parse(baseURL); err == nil {
		jar.SetCookies(u, []*http.Cookie{
			{Name: "CONSENT", Value: "YES+cb", Path: "/"},
		})
	}

	c := *client
	c.Jar = jar
	// Google answers throttled clients with a redirect to its sorry page.
	c.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &MapsExecutor{
		baseURL: baseURL,
		lang:    lang,
		http:    &c,
		locator: locator,
		log:     log.Named("maps"),
	}
}

func (m *MapsExecutor) Name() string { return "maps" }

// Begin centres the viewport on location. When it cannot be geocoded the
// search runs against a world view and relies on the query text alone.
func (m *MapsExecutor) Begin(ctx context.Context, location string) (Session, error) {
	s := &mapsSession{exec: m, view: worldView}
	if m.locator == nil {
		return s, nil
	}
	place, err := m.locator.Locate(ctx, location)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		m.log.Warn("geocoding failed, using world view", zap.String("location", location), zap.Error(err))
		return s, nil
	}
	s.view = viewport{center: place.Center, zoom: geo.ZoomForBound(place.Bound)}
	m.log.Debug("viewport ready", zap.String("place", place.Name), zap.Float64("lat", place.Center.Lat()),
		zap.Float64("lng", place.Center.Lon()), zap.Int("zoom", s.view.zoom))
	return s, nil
}

type mapsSession struct {
	exec *MapsExecutor
	view viewport
}

func (s *mapsSession) Close() error { return nil }

// FetchPage uses the result offset as page token.
func (s *mapsSession) FetchPage(ctx context.Context, query, pageToken string) (Page, error) {
	offset := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil || n < 0 {
			return Page{}, fmt.Errorf("invalid page token %q", pageToken)
		}
		offset = n
	}

	params := url.Values{}
	params.Set("tbm", "map")
	params.Set("authuser", "0")
	params.Set("hl", s.exec.lang)
	params.Set("q", query)
	params.Set("pb", s.view.pb(offset))

	body, err := s.exec.do(ctx, s.exec.baseURL+"/search?"+params.Encode())
	if err != nil {
		return Page{}, err
	}

	results, ok := ParseMapResponse(body)
	if !ok {
		return Page{}, &Error{Status: StatusBadResponse, Message: "unrecognised map response"}
	}
	if len(results) == 0 {
		return Page{ZeroResults: offset == 0}, nil
	}

	page := Page{Results: results}
	if len(results) >= mapPageSize {
		page.NextToken = strconv.Itoa(offset + mapPageSize)
	}
	return page, nil
}

func (m *MapsExecutor) do(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgents[rand.IntN(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", m.lang+";q=0.9,en;q=0.8")
	req.Header.Set("Accept-Encoding", "identity")
	req.Header.Set("Referer", m.baseURL+"/")

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusFound,
		resp.StatusCode == http.StatusMovedPermanently,
		resp.StatusCode == http.StatusTemporaryRedirect:
		io.Copy(io.Discard, resp.Body)
		return nil, &Error{Status: StatusRateLimited, Message: fmt.Sprintf("status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return nil, &Error{Status: StatusHTTP, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}
