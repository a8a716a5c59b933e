package provider

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

const mapPageSize = 20

// Camera sizes sent with every tbm=map request, in pixels.
const (
	screenW = 1024
	screenH = 768
)

// worldView is used when a location cannot be geocoded.
var worldView = viewport{zoom: 3}

// viewport is the map camera a tbm=map search is issued from. The provider
// ranks results by distance to its centre.
type viewport struct {
	center orb.Point
	zoom   int
}

// height is the camera distance in metres that shows zoom at center's
// latitude on a screenH tall screen.
func (v viewport) height() float64 {
	const earthRadius = 6371010.0
	lat := v.center.Lat() * math.Pi / 180
	return 2 * math.Pi * earthRadius * screenH * math.Cos(lat) / (512 * math.Exp2(float64(v.zoom)))
}

// pb encodes the camera and the result window starting at offset as the pb=
// URL parameter. The field layout mirrors what the Maps web client sends.
func (v viewport) pb(offset int) string {
	camera := fmt.Sprintf("!4m12!1m3!1d%.4f!2d%.7f!3d%.7f!2m3!1f0!2f0!3f0!3m2!1i%d!2i%d!4f13.1",
		v.height(), v.center.Lon(), v.center.Lat(), screenW, screenH)
	window := fmt.Sprintf("!7i%d!8i%d!10b1", mapPageSize, offset)
	const options = "!12m22!1m3!18b1!30b1!34e1!2m3!5m1!6e2!20e3!4b0!10b1!12b1!13b1!16b1!17m1!3e1!20m3!5e2!6b1!14b1!46m1!1b0!96b1" +
		"!19m4!2m3!1i360!2i120!4i8"
	return camera + window + options
}
