package tui

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kvora49/Lead-finder-sub001/internal/model"
)

const maxRecent = 10

// RecentSearch is one line of the search history kept between sessions.
type RecentSearch struct {
	Request    model.SearchRequest `json:"request"`
	Results    int                 `json:"results"`
	Cached     bool                `json:"cached"`
	SearchedAt time.Time           `json:"searched_at"`
}

// RecentPath is where the history lives. It is a variable so tests can
// redirect it.
var RecentPath = func() string {
	cfg, err := os.UserConfigDir()
	if err != nil {
		cfg = os.TempDir()
	}
	return filepath.Join(cfg, "leadfinder", "recent.json")
}

// LoadRecent returns the history, newest first. A missing or unreadable
// file is an empty history.
func LoadRecent() []RecentSearch {
	data, err := os.ReadFile(RecentPath())
	if err != nil {
		return nil
	}
	var entries []RecentSearch
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil
	}
	return entries
}

func sameSearch(a, b model.SearchRequest) bool {
	return strings.EqualFold(a.Keyword, b.Keyword) &&
		strings.EqualFold(a.Location, b.Location) &&
		strings.EqualFold(a.Category, b.Category) &&
		a.Scope == b.Scope &&
		strings.EqualFold(a.SubArea, b.SubArea)
}

// SaveRecent moves req to the top of the history.
func SaveRecent(req model.SearchRequest, results int, cached bool) error {
	entries := LoadRecent()

	filtered := make([]RecentSearch, 0, len(entries)+1)
	filtered = append(filtered, RecentSearch{Request: req, Results: results, Cached: cached, SearchedAt: time.Now()})
	for _, e := range entries {
		if !sameSearch(e.Request, req) {
			filtered = append(filtered, e)
		}
	}
	if len(filtered) > maxRecent {
		filtered = filtered[:maxRecent]
	}

	data, err := json.MarshalIndent(filtered, "", "  ")
	if err != nil {
		return err
	}
	path := RecentPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
