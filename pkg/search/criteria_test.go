package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/geo"
)

func f64(v float64) *float64 { return &v }

func TestNormalizeDefaults(t *testing.T) {
	q, err := Criteria{}.Normalize()
	require.NoError(t, err)

	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 20, q.Limit)
	assert.Nil(t, q.Geo)
	assert.Equal(t, "created_at", q.SortColumn)
	assert.True(t, q.SortDesc)
}

func TestNormalizeSortAllowlist(t *testing.T) {
	t.Run("known column passes through", func(t *testing.T) {
		q, err := Criteria{SortBy: "min_amount", SortOrder: "asc"}.Normalize()
		require.NoError(t, err)
		assert.Equal(t, "min_amount", q.SortColumn)
		assert.False(t, q.SortDesc)
	})

	t.Run("unknown column is replaced, never passed to sql", func(t *testing.T) {
		q, err := Criteria{SortBy: "rating; DROP TABLE properties"}.Normalize()
		require.NoError(t, err)
		assert.Equal(t, "created_at", q.SortColumn)
	})

	t.Run("distance sort requires geo", func(t *testing.T) {
		q, err := Criteria{SortBy: "distance"}.Normalize()
		require.NoError(t, err)
		assert.Equal(t, "created_at", q.SortColumn)

		q, err = Criteria{SortBy: "distance", Lng: f64(77.59), Lat: f64(12.97)}.Normalize()
		require.NoError(t, err)
		assert.Equal(t, "distance_meters", q.SortColumn)
		assert.False(t, q.SortDesc)
	})

	t.Run("geo with no explicit sort defaults to nearest first", func(t *testing.T) {
		q, err := Criteria{Lng: f64(77.59), Lat: f64(12.97)}.Normalize()
		require.NoError(t, err)
		assert.Equal(t, "distance_meters", q.SortColumn)
		assert.False(t, q.SortDesc)
	})
}

func TestNormalizeGeo(t *testing.T) {
	t.Run("default radius", func(t *testing.T) {
		q, err := Criteria{Lng: f64(77.59), Lat: f64(12.97)}.Normalize()
		require.NoError(t, err)
		require.NotNil(t, q.Geo)
		assert.Equal(t, 5000.0, q.Geo.RadiusMeters)
	})

	t.Run("value and unit", func(t *testing.T) {
		q, err := Criteria{Lng: f64(77.59), Lat: f64(12.97), DistanceValue: f64(2), DistanceUnit: "KM"}.Normalize()
		require.NoError(t, err)
		require.NotNil(t, q.Geo)
		assert.Equal(t, 2000.0, q.Geo.RadiusMeters)
	})

	t.Run("compact token wins over value and unit", func(t *testing.T) {
		q, err := Criteria{Lng: f64(77.59), Lat: f64(12.97), MaxDistance: "750m", DistanceValue: f64(2), DistanceUnit: "km"}.Normalize()
		require.NoError(t, err)
		require.NotNil(t, q.Geo)
		assert.Equal(t, 750.0, q.Geo.RadiusMeters)
	})

	t.Run("malformed token is rejected", func(t *testing.T) {
		_, err := Criteria{Lng: f64(77.59), Lat: f64(12.97), MaxDistance: "fivekm"}.Normalize()
		assert.ErrorIs(t, err, geo.ErrInvalidDistance)
	})

	t.Run("unknown unit is rejected", func(t *testing.T) {
		_, err := Criteria{Lng: f64(77.59), Lat: f64(12.97), DistanceValue: f64(5), DistanceUnit: "mi"}.Normalize()
		assert.ErrorIs(t, err, geo.ErrInvalidDistance)
	})

	t.Run("partial coordinates are rejected", func(t *testing.T) {
		_, err := Criteria{Lng: f64(77.59)}.Normalize()
		assert.ErrorIs(t, err, geo.ErrInvalidCoordinates)
	})

	t.Run("out of range coordinates are rejected", func(t *testing.T) {
		_, err := Criteria{Lng: f64(181), Lat: f64(12.97)}.Normalize()
		assert.ErrorIs(t, err, geo.ErrInvalidCoordinates)
	})

	t.Run("distance inputs without coordinates are ignored", func(t *testing.T) {
		q, err := Criteria{MaxDistance: "5km"}.Normalize()
		require.NoError(t, err)
		assert.Nil(t, q.Geo)
	})
}

func TestNormalizeEnums(t *testing.T) {
	_, err := Criteria{PropertyType: "castle"}.Normalize()
	assert.Error(t, err)

	_, err = Criteria{Furnishing: "opulent"}.Normalize()
	assert.Error(t, err)

	_, err = Criteria{PropertyType: "flat", Furnishing: "semi-furnished"}.Normalize()
	assert.NoError(t, err)
}

func TestNewResult(t *testing.T) {
	r := NewResult(2, 20, 45, nil)
	assert.True(t, r.Success)
	assert.Equal(t, 2, r.Page)
	assert.Equal(t, 3, r.TotalPages)
	assert.NotNil(t, r.Data)

	r = NewResult(1, 20, 0, nil)
	assert.Equal(t, 0, r.TotalPages)
}
