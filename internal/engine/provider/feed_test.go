package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedFixture = `
<div role="feed" aria-label="Results for bakery in Pune">
  <div>
    <div class="Nv2PK">
      <a class="hfpxzc" aria-label="Sweet Crumbs"
         href="https://www.google.com/maps/place/Sweet+Crumbs/data=!4m7!3m6!1s0x3bc2:0x1!8m2!3d18.5204!4d73.8567!16s%2Fg%2F11!19sChIJsweet?authuser=0"></a>
      <div class="qBF1Pd">Sweet Crumbs</div>
      <span class="MW4etd">4.6</span><span class="UY7F9">(1,234)</span>
      <div class="W4Efsd">
        <div class="W4Efsd"><span>Bakery</span><span> · </span><span>12 MG Road, Pune</span></div>
        <div class="W4Efsd"><span>Open</span><span> · </span><span class="UsdlK">020 5550 1234</span></div>
      </div>
      <a data-value="Website" href="https://sweetcrumbs.example/"></a>
    </div>
  </div>
  <div>
    <div class="Nv2PK">
      <a class="hfpxzc" aria-label="Old Mill Bakery" href="https://www.google.com/maps/place/Old+Mill/data=!4m7"></a>
      <div class="W4Efsd"><div class="W4Efsd"><span>Bakery</span></div></div>
      <span>Permanently closed</span>
    </div>
  </div>
  <div>
    <div class="Nv2PK"><a class="hfpxzc" aria-label="" href="#"></a></div>
  </div>
</div>`

func TestParseFeed(t *testing.T) {
	results, err := ParseFeed(feedFixture)
	require.NoError(t, err)
	require.Len(t, results, 2)

	r := results[0]
	assert.Equal(t, "Sweet Crumbs", r.Name)
	assert.Equal(t, "ChIJsweet", r.PlaceID)
	assert.Equal(t, "12 MG Road, Pune", r.Address)
	assert.Equal(t, "OPERATIONAL", r.Status)
	require.NotNil(t, r.Rating)
	assert.Equal(t, 4.6, *r.Rating)
	require.NotNil(t, r.RatingCount)
	assert.Equal(t, 1234, *r.RatingCount)
	require.NotNil(t, r.Phone)
	assert.Equal(t, "020 5550 1234", *r.Phone)
	require.NotNil(t, r.Website)
	assert.Equal(t, "https://sweetcrumbs.example/", *r.Website)
	require.NotNil(t, r.Coordinates)
	assert.InDelta(t, 18.5204, r.Coordinates.Lat, 1e-9)
	assert.InDelta(t, 73.8567, r.Coordinates.Lng, 1e-9)

	closed := results[1]
	assert.Equal(t, "Old Mill Bakery", closed.Name)
	assert.Empty(t, closed.PlaceID)
	assert.Empty(t, closed.Address)
	assert.Equal(t, "CLOSED_PERMANENTLY", closed.Status)
	assert.Nil(t, closed.Rating)
	assert.Nil(t, closed.Coordinates)
}

func TestHasNoResults(t *testing.T) {
	assert.True(t, HasNoResults(`<body><div>Google Maps can't find unobtainium in Atlantis</div></body>`))
	assert.False(t, HasNoResults(feedFixture))
}
