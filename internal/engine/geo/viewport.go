package geo

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	minZoom = 3
	maxZoom = 17
	// DefaultZoom frames a mid-sized city.
	DefaultZoom = 13
)

// ZoomToSpanDegrees converts a zoom level to the approximate longitude span
// of a 1024px wide map viewport.
func ZoomToSpanDegrees(zoom int) float64 {
	tileSpan := 360.0 / math.Pow(2, float64(zoom))
	return tileSpan * 1024.0 / 256.0
}

// ZoomForBound picks the largest zoom whose viewport still covers b.
func ZoomForBound(b orb.Bound) int {
	span := math.Max(b.Max.Lon()-b.Min.Lon(), b.Max.Lat()-b.Min.Lat())
	if span <= 0 {
		return DefaultZoom
	}
	for z := maxZoom; z > minZoom; z-- {
		if ZoomToSpanDegrees(z) >= span {
			return z
		}
	}
	return minZoom
}
