package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
)

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }

func property(mutate func(p *models.Property)) *models.Property {
	p := &models.Property{
		ID:           "p-1",
		TenantID:     "tenant-1",
		PropertyType: models.PropertyTypeFlat,
		BhkType:      str("2BHK"),
		Furnishing:   models.FurnishingFull,
		MinAmount:    f64(20000),
		MaxAmount:    f64(24000),
		Features:     database.NewJSONB([]string{"ac", "lift"}),
		Rating:       f64(4.0),
	}
	if mutate != nil {
		mutate(p)
	}
	return p
}

func TestScorerReferenceScenario(t *testing.T) {
	target := property(nil)
	candidate := property(func(p *models.Property) {
		p.ID = "p-2"
		p.MinAmount = f64(21000)
		p.MaxAmount = f64(25000)
		p.Features = database.NewJSONB([]string{"ac", "lift", "parking"})
		p.Rating = f64(4.2)
	})

	scorer := NewScorer(DefaultWeights())
	b := scorer.Score(target, candidate, nil, 0)

	assert.Equal(t, 1.0, b.Type)
	assert.InDelta(t, 1.0-1000.0/22000.0, b.Price, 1e-9) // target mid 22000, candidate mid 23000
	assert.Equal(t, 1.0, b.Bhk)
	assert.Equal(t, 1.0, b.Furnishing)
	assert.InDelta(t, 2.0/3.0, b.Features, 1e-9)
	assert.InDelta(t, 1.0-0.2/5.0, b.Rating, 1e-9)
	assert.Equal(t, 0.0, b.Distance) // no geo distance, no snapshot

	w := DefaultWeights()
	expected := b.Type*w.Type + b.Price*w.Price + b.Bhk*w.Bhk +
		b.Furnishing*w.Furnishing + b.Features*w.Features +
		b.Distance*w.Distance + b.Rating*w.Rating
	assert.InDelta(t, expected, b.Final, 1e-9)
}

func TestScorerDeterminism(t *testing.T) {
	target := property(nil)
	candidate := property(func(p *models.Property) {
		p.ID = "p-2"
		p.Rating = f64(3.1)
	})

	scorer := NewScorer(DefaultWeights())
	first := scorer.Score(target, candidate, f64(2500), 10000)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, scorer.Score(target, candidate, f64(2500), 10000))
	}
}

func TestScorerBounds(t *testing.T) {
	target := property(nil)

	candidates := []*models.Property{
		property(func(p *models.Property) { p.ID = "a" }),
		property(func(p *models.Property) {
			p.ID = "b"
			p.PropertyType = models.PropertyTypeVilla
			p.BhkType = nil
			p.Furnishing = models.FurnishingUnfurnished
			p.MinAmount = f64(900000)
			p.MaxAmount = nil
			p.Features = database.NewJSONB([]string{"pool"})
			p.Rating = nil
		}),
		property(func(p *models.Property) {
			p.ID = "c"
			p.PropertyType = ""
			p.MinAmount = nil
			p.MaxAmount = nil
			p.Features = database.NewJSONB([]string(nil))
		}),
	}

	scorer := NewScorer(DefaultWeights())
	for _, candidate := range candidates {
		b := scorer.Score(target, candidate, nil, 0)
		for name, sub := range map[string]float64{
			"type": b.Type, "price": b.Price, "bhk": b.Bhk,
			"furnishing": b.Furnishing, "features": b.Features,
			"distance": b.Distance, "rating": b.Rating, "final": b.Final,
		} {
			assert.GreaterOrEqual(t, sub, 0.0, "%s for %s", name, candidate.ID)
			assert.LessOrEqual(t, sub, 1.0, "%s for %s", name, candidate.ID)
		}
	}
}

func TestMidPrice(t *testing.T) {
	t.Run("both bounds averages", func(t *testing.T) {
		mid, ok := MidPrice(property(nil))
		require.True(t, ok)
		assert.Equal(t, 22000.0, mid)
	})

	t.Run("single bound used directly", func(t *testing.T) {
		mid, ok := MidPrice(property(func(p *models.Property) { p.MaxAmount = nil }))
		require.True(t, ok)
		assert.Equal(t, 20000.0, mid)

		mid, ok = MidPrice(property(func(p *models.Property) { p.MinAmount = nil }))
		require.True(t, ok)
		assert.Equal(t, 24000.0, mid)
	})

	t.Run("no bounds reports absent", func(t *testing.T) {
		_, ok := MidPrice(property(func(p *models.Property) {
			p.MinAmount = nil
			p.MaxAmount = nil
		}))
		assert.False(t, ok)
	})
}

// A candidate with no rent bounds inherits the target's mid-price and scores
// a perfect 1.0. This rewards incomplete listings, but it is long-standing
// ranking behavior; this test documents it rather than fixing it.
func TestPriceScoreMissingCandidateBoundsIsNeutral(t *testing.T) {
	target := property(nil)
	candidate := property(func(p *models.Property) {
		p.ID = "p-2"
		p.MinAmount = nil
		p.MaxAmount = nil
	})

	b := NewScorer(DefaultWeights()).Score(target, candidate, nil, 0)
	assert.Equal(t, 1.0, b.Price)
}

// A target with no rent bounds compares at mid-price 1, so normally-priced
// candidates score near zero on price. Documented edge case.
func TestPriceScoreTargetWithoutBounds(t *testing.T) {
	target := property(func(p *models.Property) {
		p.MinAmount = nil
		p.MaxAmount = nil
	})
	candidate := property(func(p *models.Property) { p.ID = "p-2" })

	b := NewScorer(DefaultWeights()).Score(target, candidate, nil, 0)
	assert.Equal(t, 0.0, b.Price)
}

func TestFurnishingTiers(t *testing.T) {
	score := func(targetTier, candidateTier models.Furnishing) float64 {
		target := property(func(p *models.Property) { p.Furnishing = targetTier })
		candidate := property(func(p *models.Property) {
			p.ID = "p-2"
			p.Furnishing = candidateTier
		})
		return NewScorer(DefaultWeights()).Score(target, candidate, nil, 0).Furnishing
	}

	assert.Equal(t, 1.0, score(models.FurnishingFull, models.FurnishingFull))
	assert.Equal(t, 1.0, score(models.FurnishingUnfurnished, models.FurnishingUnfurnished))
	assert.Equal(t, 0.6, score(models.FurnishingSemi, models.FurnishingFull))
	assert.Equal(t, 0.6, score(models.FurnishingFull, models.FurnishingSemi))
	assert.Equal(t, 0.3, score(models.FurnishingUnfurnished, models.FurnishingFull))
	assert.Equal(t, 0.3, score(models.FurnishingSemi, models.FurnishingUnfurnished))

	// missing furnishing compares as the literal tier "none"
	assert.Equal(t, 1.0, score("", ""))
	assert.Equal(t, 0.3, score(models.FurnishingFull, ""))
}

func TestJaccard(t *testing.T) {
	t.Run("identical sets score 1", func(t *testing.T) {
		assert.Equal(t, 1.0, jaccard([]string{"ac", "lift"}, []string{"lift", "ac"}))
	})

	t.Run("disjoint sets score 0", func(t *testing.T) {
		assert.Equal(t, 0.0, jaccard([]string{"ac"}, []string{"pool"}))
	})

	t.Run("empty union scores 0 not NaN", func(t *testing.T) {
		assert.Equal(t, 0.0, jaccard(nil, nil))
		assert.Equal(t, 0.0, jaccard([]string{}, []string{}))
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		assert.Equal(t, 1.0, jaccard([]string{"ac", "ac"}, []string{"ac"}))
	})
}

func TestBhkScoreCaseInsensitive(t *testing.T) {
	target := property(func(p *models.Property) { p.BhkType = str("2bhk") })
	candidate := property(func(p *models.Property) {
		p.ID = "p-2"
		p.BhkType = str("2BHK")
	})

	b := NewScorer(DefaultWeights()).Score(target, candidate, nil, 0)
	assert.Equal(t, 1.0, b.Bhk)
}

func TestDistanceScore(t *testing.T) {
	t.Run("geo distance decays linearly", func(t *testing.T) {
		target := property(nil)
		candidate := property(func(p *models.Property) { p.ID = "p-2" })
		scorer := NewScorer(DefaultWeights())

		assert.InDelta(t, 0.75, scorer.Score(target, candidate, f64(2500), 10000).Distance, 1e-9)
		assert.Equal(t, 0.0, scorer.Score(target, candidate, f64(20000), 10000).Distance)
	})

	t.Run("administrative fallback tiers", func(t *testing.T) {
		scorer := NewScorer(DefaultWeights())
		score := func(target, candidate models.AddressSnapshot) float64 {
			tp := property(func(p *models.Property) { p.AddressSnapshot = target })
			cp := property(func(p *models.Property) {
				p.ID = "p-2"
				p.AddressSnapshot = candidate
			})
			return scorer.Score(tp, cp, nil, 0).Distance
		}

		assert.Equal(t, 1.0, score(
			models.AddressSnapshot{Locality: str("Indiranagar"), City: str("Bengaluru")},
			models.AddressSnapshot{Locality: str("indiranagar"), City: str("Mysuru")},
		))
		assert.Equal(t, 0.7, score(
			models.AddressSnapshot{Locality: str("Indiranagar"), City: str("Bengaluru")},
			models.AddressSnapshot{Locality: str("Koramangala"), City: str("Bengaluru")},
		))
		assert.Equal(t, 0.4, score(
			models.AddressSnapshot{City: str("Bengaluru"), State: str("Karnataka")},
			models.AddressSnapshot{City: str("Mysuru"), State: str("Karnataka")},
		))
		assert.Equal(t, 0.0, score(
			models.AddressSnapshot{City: str("Bengaluru"), State: str("Karnataka")},
			models.AddressSnapshot{City: str("Pune"), State: str("Maharashtra")},
		))
	})
}

func TestWeightsNormalized(t *testing.T) {
	w := Weights{Type: 2, Price: 2, Bhk: 1, Furnishing: 1, Features: 2, Distance: 1, Rating: 1}
	assert.InDelta(t, 1.0, w.Normalized().Sum(), 1e-9)

	d := DefaultWeights()
	assert.InDelta(t, 1.0, d.Sum(), 1e-9)
}
