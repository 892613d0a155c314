package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLon(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"already western convention", -97.7, -97.7},
		{"zero", 0, 0},
		{"eastern convention over 180", 250, -110},
		{"exactly 180", 180, 180},
		{"just over 180", 180.5, -179.5},
		{"359.9 wraps to west", 359.9, -0.1},
		{"below -180", -190, 170},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, NormalizeLon(tt.in), 1e-9)
		})
	}
}

func TestCanonicalRecord_DedupKey(t *testing.T) {
	ts := time.Date(2015, 6, 1, 12, 0, 0, 0, time.UTC)

	a := CanonicalRecord{Lat: 10.12345, Lon: -45.67891, Timestamp: ts}
	b := CanonicalRecord{Lat: 10.12349, Lon: -45.67893, Timestamp: ts}
	c := CanonicalRecord{Lat: 10.12449, Lon: -45.67893, Timestamp: ts}

	// Within 3-decimal rounding a and b collide; c does not.
	assert.Equal(t, a.DedupKey(3), b.DedupKey(3))
	assert.NotEqual(t, a.DedupKey(3), c.DedupKey(3))

	// At higher precision a and b are distinct observations.
	assert.NotEqual(t, a.DedupKey(5), b.DedupKey(5))
}

func TestCanonicalRecord_HasMeasurement(t *testing.T) {
	assert.False(t, CanonicalRecord{}.HasMeasurement())
	assert.True(t, CanonicalRecord{Temperature: Float(12.5)}.HasMeasurement())
	assert.True(t, CanonicalRecord{Salinity: Float(35)}.HasMeasurement())
	assert.True(t, CanonicalRecord{Pressure: Float(500)}.HasMeasurement())
	// Oxygen alone does not satisfy the ingestion invariant.
	assert.False(t, CanonicalRecord{Oxygen: Float(4.2)}.HasMeasurement())
}

func TestFetchRequest_Validate(t *testing.T) {
	valid := FetchRequest{
		LonMin: 20, LonMax: 120, LatMin: -60, LatMax: 30,
		Start: time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2015, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, valid.Validate())

	bad := valid
	bad.LatMin, bad.LatMax = 40, -40
	assert.Error(t, bad.Validate())

	bad = valid
	bad.LonMin = -361
	assert.Error(t, bad.Validate())

	bad = valid
	bad.Start, bad.End = valid.End, valid.Start
	assert.Error(t, bad.Validate())

	bad = valid
	bad.DepthCeiling = Float(-5)
	assert.Error(t, bad.Validate())
}

func TestFetchRequest_Signature_Canonicalizes(t *testing.T) {
	base := FetchRequest{
		LonMin: 20, LonMax: 120, LatMin: -60, LatMax: 30,
		Start: time.Date(2015, 1, 1, 9, 30, 0, 0, time.UTC),
		End:   time.Date(2015, 12, 31, 23, 59, 0, 0, time.UTC),
		Ocean: "Indian",
	}
	sameDay := base
	sameDay.Start = time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	sameDay.Ocean = "indian"

	assert.Equal(t, base.Signature(), sameDay.Signature())

	shifted := base
	shifted.LonMin = 20.5
	assert.NotEqual(t, base.Signature(), shifted.Signature())
}

func TestFetchRequest_Years(t *testing.T) {
	req := FetchRequest{
		Start: time.Date(2006, 11, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2009, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, []int{2006, 2007, 2008, 2009}, req.Years())
}

func TestFetchRequest_Contains_EitherLonConvention(t *testing.T) {
	// Pacific box expressed in [0,360) coordinates.
	req := FetchRequest{LonMin: 120, LonMax: 289, LatMin: -60, LatMax: 60}

	assert.True(t, req.Contains(10, 150))
	assert.True(t, req.Contains(10, -160)) // -160 == 200 in the box's convention
	assert.False(t, req.Contains(10, 0))
	assert.False(t, req.Contains(-75, 150))
}
