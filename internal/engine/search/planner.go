package search

import (
	"fmt"
	"strings"

	"github.com/kvora49/Lead-finder-sub001/internal/model"
)

// MaxVariants caps the number of query phrasings per search.
const MaxVariants = 6

var businessTypes = []string{"retailer", "wholesaler", "manufacturer", "distributor", "dealer", "shop"}

// Plan expands a request into the ordered, de-duplicated query variants to
// send to the provider.
func Plan(req model.SearchRequest) []string {
	kw := strings.TrimSpace(req.Keyword)
	loc := req.PlanLocation()
	cat := strings.TrimSpace(req.Category)

	var candidates []string
	switch {
	case req.IsAllCategory():
		for _, t := range businessTypes {
			candidates = append(candidates,
				fmt.Sprintf("%s %s in %s", kw, t, loc),
				fmt.Sprintf("%s of %s in %s", t, kw, loc),
			)
		}
	case req.IsCustomCategory():
		candidates = []string{
			fmt.Sprintf("%s shop in %s", kw, loc),
			fmt.Sprintf("%s store in %s", kw, loc),
			fmt.Sprintf("%s seller in %s", kw, loc),
			fmt.Sprintf("%s dealer in %s", kw, loc),
			fmt.Sprintf("buy %s in %s", kw, loc),
			fmt.Sprintf("%s in %s", kw, loc),
		}
	default:
		candidates = []string{
			fmt.Sprintf("%s %s in %s", cat, kw, loc),
			fmt.Sprintf("%s %s in %s", kw, cat, loc),
			fmt.Sprintf("%s %s near %s", cat, kw, loc),
			fmt.Sprintf("%s - %s in %s", kw, cat, loc),
			fmt.Sprintf("%s %s %s", kw, strings.ToLower(cat), loc),
			fmt.Sprintf("%s %s %s", cat, kw, loc),
		}
	}

	seen := make(map[string]struct{}, len(candidates))
	variants := make([]string, 0, MaxVariants)
	for _, c := range candidates {
		k := strings.ToLower(c)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		variants = append(variants, c)
		if len(variants) == MaxVariants {
			break
		}
	}
	return variants
}
