package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversineMeters(t *testing.T) {
	t.Run("zero distance for identical points", func(t *testing.T) {
		assert.Zero(t, HaversineMeters(77.5946, 12.9716, 77.5946, 12.9716))
	})

	t.Run("bangalore to chennai", func(t *testing.T) {
		// MG Road, Bengaluru to Chennai Central, roughly 290km apart.
		d := HaversineMeters(77.5946, 12.9716, 80.2707, 13.0827)
		assert.InDelta(t, 290_000, d, 5_000)
	})

	t.Run("short hop", func(t *testing.T) {
		// One degree of longitude at the equator is about 111.19km.
		d := HaversineMeters(0, 0, 1, 0)
		assert.InDelta(t, 111_195, d, 100)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := HaversineMeters(77.5946, 12.9716, 72.8777, 19.0760)
		b := HaversineMeters(72.8777, 19.0760, 77.5946, 12.9716)
		assert.Equal(t, a, b)
	})
}

func TestValidateCoordinates(t *testing.T) {
	assert.NoError(t, ValidateCoordinates(77.5946, 12.9716))
	assert.NoError(t, ValidateCoordinates(-180, -90))
	assert.NoError(t, ValidateCoordinates(180, 90))

	assert.ErrorIs(t, ValidateCoordinates(180.1, 0), ErrInvalidCoordinates)
	assert.ErrorIs(t, ValidateCoordinates(-181, 0), ErrInvalidCoordinates)
	assert.ErrorIs(t, ValidateCoordinates(0, 90.5), ErrInvalidCoordinates)
	assert.ErrorIs(t, ValidateCoordinates(0, -91), ErrInvalidCoordinates)
}

func TestToMeters(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		unit    string
		want    float64
		wantErr bool
	}{
		{name: "meters", value: 750, unit: "m", want: 750},
		{name: "kilometers", value: 5, unit: "km", want: 5000},
		{name: "uppercase unit", value: 2, unit: "KM", want: 2000},
		{name: "padded unit", value: 2, unit: " km ", want: 2000},
		{name: "fractional", value: 2.5, unit: "km", want: 2500},
		{name: "zero value", value: 0, unit: "m", wantErr: true},
		{name: "negative value", value: -1, unit: "km", wantErr: true},
		{name: "unknown unit", value: 5, unit: "mi", wantErr: true},
		{name: "empty unit", value: 5, unit: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToMeters(tt.value, tt.unit)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDistance)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDistanceToken(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		want    float64
		wantErr bool
	}{
		{name: "meters", token: "750m", want: 750},
		{name: "kilometers", token: "5km", want: 5000},
		{name: "fractional kilometers", token: "2.5km", want: 2500},
		{name: "uppercase", token: "5KM", want: 5000},
		{name: "spaced", token: " 5 km ", want: 5000},
		{name: "empty", token: "", wantErr: true},
		{name: "missing unit", token: "5000", wantErr: true},
		{name: "non numeric", token: "abckm", wantErr: true},
		{name: "unit only", token: "km", wantErr: true},
		{name: "zero", token: "0km", wantErr: true},
		{name: "negative", token: "-2km", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDistanceToken(tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDistance)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
