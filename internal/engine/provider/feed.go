package provider

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kvora49/Lead-finder-sub001/internal/model"
)

var (
	placeIDRe = regexp.MustCompile(`!19s([^!?&]+)`)
	coordsRe  = regexp.MustCompile(`!3d(-?\d+(?:\.\d+)?)!4d(-?\d+(?:\.\d+)?)`)
	countRe   = regexp.MustCompile(`[\d.,]+`)
)

var noResultsMarkers = []string{
	"Google Maps can't find",
	"No results found",
}

// ParseFeed extracts result cards from the HTML of a Maps results feed.
// Cards without a name are skipped.
func ParseFeed(html string) ([]model.RawResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var results []model.RawResult
	doc.Find("a.hfpxzc").Each(func(_ int, link *goquery.Selection) {
		card := link.Parent()

		name := strings.TrimSpace(link.AttrOr("aria-label", ""))
		if name == "" {
			name = strings.TrimSpace(card.Find(".qBF1Pd").First().Text())
		}
		if name == "" {
			return
		}

		r := model.RawResult{Name: name, Status: cardStatus(card.Text())}

		href := link.AttrOr("href", "")
		if m := placeIDRe.FindStringSubmatch(href); m != nil {
			r.PlaceID = m[1]
		}
		if m := coordsRe.FindStringSubmatch(href); m != nil {
			lat, errLat := strconv.ParseFloat(m[1], 64)
			lng, errLng := strconv.ParseFloat(m[2], 64)
			if errLat == nil && errLng == nil {
				r.Coordinates = &model.Coordinates{Lat: lat, Lng: lng}
			}
		}

		if v, err := strconv.ParseFloat(strings.TrimSpace(card.Find("span.MW4etd").First().Text()), 64); err == nil {
			r.Rating = model.Ptr(v)
		}
		if m := countRe.FindString(card.Find("span.UY7F9").First().Text()); m != "" {
			if n, err := strconv.Atoi(strings.NewReplacer(",", "", ".", "").Replace(m)); err == nil {
				r.RatingCount = model.Ptr(n)
			}
		}
		if phone := strings.TrimSpace(card.Find("span.UsdlK").First().Text()); phone != "" {
			r.Phone = model.Ptr(phone)
		}
		if site, ok := card.Find(`a[data-value="Website"]`).First().Attr("href"); ok && site != "" {
			r.Website = model.Ptr(site)
		}
		r.Address = cardAddress(card)

		results = append(results, r)
	})
	return results, nil
}

// cardAddress takes the last "·" separated segment of the first detail row,
// which reads "Category · Address".
func cardAddress(card *goquery.Selection) string {
	row := card.Find(".W4Efsd .W4Efsd").First()
	if row.Length() == 0 {
		return ""
	}
	parts := strings.Split(row.Text(), "·")
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[len(parts)-1])
}

func cardStatus(text string) string {
	switch {
	case strings.Contains(text, "Permanently closed"):
		return "CLOSED_PERMANENTLY"
	case strings.Contains(text, "Temporarily closed"):
		return "CLOSED_TEMPORARILY"
	}
	return "OPERATIONAL"
}

// HasNoResults reports whether a Maps page says the search matched nothing.
func HasNoResults(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	text := doc.Text()
	for _, m := range noResultsMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
