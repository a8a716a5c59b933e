package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvora49/Lead-finder-sub001/internal/model"
)

func request(t *testing.T, kw, cat, loc string, scope model.Scope, sub string) model.SearchRequest {
	t.Helper()
	req, err := model.NewSearchRequest(kw, cat, loc, scope, sub)
	require.NoError(t, err)
	return req
}

func TestPlanCustom(t *testing.T) {
	got := Plan(request(t, "bakery", "Custom", "Pune", model.ScopeCity, ""))
	assert.Equal(t, []string{
		"bakery shop in Pune",
		"bakery store in Pune",
		"bakery seller in Pune",
		"bakery dealer in Pune",
		"buy bakery in Pune",
		"bakery in Pune",
	}, got)
}

func TestPlanEmptyCategoryIsCustom(t *testing.T) {
	assert.Equal(t,
		Plan(request(t, "bakery", "Custom", "Pune", model.ScopeCity, "")),
		Plan(request(t, "bakery", "", "Pune", model.ScopeCity, "")))
}

func TestPlanAll(t *testing.T) {
	got := Plan(request(t, "saree", "all", "Surat", model.ScopeCity, ""))
	assert.Equal(t, []string{
		"saree retailer in Surat",
		"retailer of saree in Surat",
		"saree wholesaler in Surat",
		"wholesaler of saree in Surat",
		"saree manufacturer in Surat",
		"manufacturer of saree in Surat",
	}, got)
	for _, v := range got {
		assert.Contains(t, v, "saree")
		assert.Contains(t, v, "Surat")
	}
}

func TestPlanSpecificCategory(t *testing.T) {
	got := Plan(request(t, "cake", "Bakery", "Pune", model.ScopeCity, ""))
	assert.Equal(t, []string{
		"Bakery cake in Pune",
		"cake Bakery in Pune",
		"Bakery cake near Pune",
		"cake - Bakery in Pune",
		"cake bakery Pune",
		"Bakery cake Pune",
	}, got)
}

func TestPlanSubArea(t *testing.T) {
	for _, scope := range []model.Scope{model.ScopeNeighbourhood, model.ScopeSpecific} {
		for _, cat := range []string{"All", "Custom", "Bakery"} {
			got := Plan(request(t, "cake", cat, "Pune", scope, "Kothrud"))
			require.NotEmpty(t, got)
			for _, v := range got {
				assert.Contains(t, v, "Kothrud, Pune")
			}
		}
	}

	city := Plan(request(t, "cake", "Custom", "Pune", model.ScopeCity, "Kothrud"))
	for _, v := range city {
		assert.NotContains(t, v, "Kothrud")
	}

	noSub := Plan(request(t, "cake", "Custom", "Pune", model.ScopeNeighbourhood, ""))
	assert.Equal(t, "cake shop in Pune", noSub[0])
}

func TestPlanDropsCaseInsensitiveDuplicates(t *testing.T) {
	got := Plan(request(t, "bakery", "bakery", "Pune", model.ScopeCity, ""))
	assert.Equal(t, []string{
		"bakery bakery in Pune",
		"bakery bakery near Pune",
		"bakery - bakery in Pune",
		"bakery bakery Pune",
	}, got)
	seen := map[string]bool{}
	for _, v := range got {
		k := strings.ToLower(v)
		assert.False(t, seen[k], "duplicate variant %q", v)
		seen[k] = true
	}
}

func TestPlanDeterministic(t *testing.T) {
	req := request(t, "shoes", "All", "Mumbai", model.ScopeSpecific, "Bandra")
	assert.Equal(t, Plan(req), Plan(req))
	assert.LessOrEqual(t, len(Plan(req)), MaxVariants)
}

func TestDeduplicator(t *testing.T) {
	a := []model.RawResult{{PlaceID: "1", Name: "A"}, {PlaceID: "2", Name: "B"}}
	b := []model.RawResult{{PlaceID: "3", Name: "C"}, {PlaceID: "1", Name: "A again"}}

	merged := Merge(a, b)
	require.Len(t, merged, 3)
	assert.Equal(t, "A", merged[0].Name)
	assert.Equal(t, "B", merged[1].Name)
	assert.Equal(t, "C", merged[2].Name)

	d := NewDeduplicator()
	assert.Len(t, d.Add(a), 2)
	added := d.Add(b)
	require.Len(t, added, 1)
	assert.Equal(t, "3", added[0].PlaceID)
	assert.Equal(t, 3, d.Len())
}

func TestDeduplicatorWeakKeys(t *testing.T) {
	merged := Merge(
		[]model.RawResult{
			{Name: "Sweet Crumbs", Phone: model.Ptr("+91 20 1234 5678")},
			{Name: "Daily Bread"},
		},
		[]model.RawResult{
			{Name: "Sweet Crumbs Bakery", Phone: model.Ptr("+91-20-1234-5678")},
			{Name: "DAILY BREAD "},
			{Name: "Daily Bread", Phone: model.Ptr("999")},
		},
	)
	require.Len(t, merged, 3)
	assert.Equal(t, "Sweet Crumbs", merged[0].Name)
	assert.Equal(t, "Daily Bread", merged[1].Name)
	require.NotNil(t, merged[2].Phone)
	assert.Equal(t, "999", *merged[2].Phone)
}

func TestDeduplicatorConcurrentAdd(t *testing.T) {
	d := NewDeduplicator()
	done := make(chan struct{})
	for w := 0; w < 4; w++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 100; i++ {
				d.Add([]model.RawResult{{PlaceID: string(rune('a' + i%26)), Name: "x"}})
			}
		}()
	}
	for w := 0; w < 4; w++ {
		<-done
	}
	assert.Equal(t, 26, d.Len())
}
