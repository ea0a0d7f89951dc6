package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func geoTarget() *models.Property {
	return property(func(p *models.Property) {
		p.LocationLng = f64(77.5946)
		p.LocationLat = f64(12.9716)
	})
}

func areaTarget(locality, city, state string) *models.Property {
	return property(func(p *models.Property) {
		if locality != "" {
			p.AddressSnapshot.Locality = str(locality)
		}
		if city != "" {
			p.AddressSnapshot.City = str(city)
		}
		if state != "" {
			p.AddressSnapshot.State = str(state)
		}
	})
}

func TestBuildCandidateQueryStrict(t *testing.T) {
	target := geoTarget()
	q := BuildCandidateQuery(target, Options{}, PhaseStrict, 500)

	assert.Equal(t, "tenant-1", q.TenantID)
	assert.Equal(t, "p-1", q.ExcludeID)
	assert.Empty(t, q.ExcludeOwnerID)
	assert.False(t, q.IncludeArchived)
	assert.False(t, q.IncludeDeleted)
	assert.Equal(t, 500, q.MaxCandidates)

	require.NotNil(t, q.PropertyType)
	assert.Equal(t, models.PropertyTypeFlat, *q.PropertyType)

	require.NotNil(t, q.Geo)
	assert.Nil(t, q.Area)
	assert.Equal(t, 77.5946, q.Geo.Lng)
	assert.Equal(t, 12.9716, q.Geo.Lat)
	assert.Equal(t, 10000.0, q.Geo.MaxDistanceMeters)
	assert.Equal(t, 10000.0, q.EffectiveMaxDistance())
}

func TestBuildCandidateQueryRelaxedDropsTypeAndDoublesRadius(t *testing.T) {
	target := geoTarget()
	q := BuildCandidateQuery(target, Options{MaxDistanceMeters: 3000}, PhaseRelaxed, 500)

	assert.Nil(t, q.PropertyType)
	require.NotNil(t, q.Geo)
	assert.Equal(t, 6000.0, q.Geo.MaxDistanceMeters)
}

func TestBuildCandidateQueryExcludeOwner(t *testing.T) {
	target := geoTarget()
	target.OwnerID = "owner-9"

	q := BuildCandidateQuery(target, Options{ExcludeOwner: true}, PhaseStrict, 500)
	assert.Equal(t, "owner-9", q.ExcludeOwnerID)

	q = BuildCandidateQuery(target, Options{}, PhaseStrict, 500)
	assert.Empty(t, q.ExcludeOwnerID)
}

func TestBuildCandidateQueryAreaFallback(t *testing.T) {
	t.Run("strict prefers locality", func(t *testing.T) {
		q := BuildCandidateQuery(areaTarget("Indiranagar", "Bengaluru", "Karnataka"), Options{}, PhaseStrict, 500)
		assert.Nil(t, q.Geo)
		require.NotNil(t, q.Area)
		assert.Equal(t, AreaTierLocality, q.Area.Tier)
		assert.Equal(t, "Indiranagar", q.Area.Value)
		assert.Empty(t, q.Area.OrValue)
		assert.Equal(t, 0.0, q.EffectiveMaxDistance())
	})

	t.Run("strict falls through locality to city to state", func(t *testing.T) {
		q := BuildCandidateQuery(areaTarget("", "Bengaluru", "Karnataka"), Options{}, PhaseStrict, 500)
		require.NotNil(t, q.Area)
		assert.Equal(t, AreaTierCity, q.Area.Tier)

		q = BuildCandidateQuery(areaTarget("", "", "Karnataka"), Options{}, PhaseStrict, 500)
		require.NotNil(t, q.Area)
		assert.Equal(t, AreaTierState, q.Area.Tier)
	})

	t.Run("relaxed widens to city or state and never reuses locality", func(t *testing.T) {
		q := BuildCandidateQuery(areaTarget("Indiranagar", "Bengaluru", "Karnataka"), Options{}, PhaseRelaxed, 500)
		require.NotNil(t, q.Area)
		assert.Equal(t, AreaTierCity, q.Area.Tier)
		assert.Equal(t, "Bengaluru", q.Area.Value)
		assert.Equal(t, AreaTierState, q.Area.OrTier)
		assert.Equal(t, "Karnataka", q.Area.OrValue)
	})

	t.Run("relaxed with a single tier uses it alone", func(t *testing.T) {
		q := BuildCandidateQuery(areaTarget("", "Bengaluru", ""), Options{}, PhaseRelaxed, 500)
		require.NotNil(t, q.Area)
		assert.Equal(t, AreaTierCity, q.Area.Tier)
		assert.Empty(t, q.Area.OrValue)
	})

	t.Run("no geo and no admin area leaves both filters nil", func(t *testing.T) {
		q := BuildCandidateQuery(areaTarget("", "", ""), Options{}, PhaseStrict, 500)
		assert.Nil(t, q.Geo)
		assert.Nil(t, q.Area)
	})
}

func TestOptionsDefaults(t *testing.T) {
	t.Run("zero value gets production defaults", func(t *testing.T) {
		o := Options{}.withDefaults()
		assert.Equal(t, 10, o.Limit)
		require.NotNil(t, o.MinResults)
		assert.Equal(t, 6, *o.MinResults)
		assert.Equal(t, 10000.0, o.MaxDistanceMeters)
	})

	t.Run("min results is capped by limit", func(t *testing.T) {
		o := Options{Limit: 3}.withDefaults()
		require.NotNil(t, o.MinResults)
		assert.Equal(t, 3, *o.MinResults)
	})

	t.Run("explicit zero min results is honored", func(t *testing.T) {
		zero := 0
		o := Options{MinResults: &zero}.withDefaults()
		require.NotNil(t, o.MinResults)
		assert.Equal(t, 0, *o.MinResults)
	})
}

func TestPhaseFloors(t *testing.T) {
	assert.Equal(t, 0.35, PhaseStrict.Floor())
	assert.Equal(t, 0.20, PhaseRelaxed.Floor())
}
