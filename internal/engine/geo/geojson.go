package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/kvora49/Lead-finder-sub001/internal/model"
)

// FeatureCollection renders leads with coordinates as point features. Leads
// without coordinates are left out. The collection's bbox covers all points.
func FeatureCollection(leads []model.Lead) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, l := range leads {
		if l.Coordinates == nil {
			continue
		}
		f := geojson.NewFeature(orb.Point{l.Coordinates.Lng, l.Coordinates.Lat})
		f.ID = l.ID
		f.Properties["name"] = l.Name
		f.Properties["address"] = l.Address
		f.Properties["status"] = l.Status
		if l.Phone != nil {
			f.Properties["phone"] = *l.Phone
		}
		if l.Website != nil {
			f.Properties["website"] = *l.Website
		}
		if l.Rating != nil {
			f.Properties["rating"] = *l.Rating
		}
		if l.RatingCount != nil {
			f.Properties["ratingCount"] = *l.RatingCount
		}
		if u := l.GoogleMapsURL(); u != "" {
			f.Properties["url"] = u
		}
		fc.Append(f)
	}
	if b, ok := Bounds(leads); ok {
		fc.BBox = geojson.NewBBox(b)
	}
	return fc
}

// Bounds returns the bounding box of all located leads and false when none
// has coordinates.
func Bounds(leads []model.Lead) (orb.Bound, bool) {
	var (
		b     orb.Bound
		found bool
	)
	for _, l := range leads {
		if l.Coordinates == nil {
			continue
		}
		p := orb.Point{l.Coordinates.Lng, l.Coordinates.Lat}
		if !found {
			b = p.Bound()
			found = true
			continue
		}
		b = b.Extend(p)
	}
	return b, found
}
