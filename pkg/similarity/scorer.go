// Package similarity implements the property similarity engine: a weighted
// multi-criteria scorer over a phased, geo-aware candidate search.
package similarity

import (
	"math"
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
)

// ratingScale is the maximum property rating; rating distance is normalized
// against it.
const ratingScale = 5.0

// Breakdown holds the per-criterion sub-scores for one candidate. Every
// sub-score is in [0,1]; Final is the weighted blend.
type Breakdown struct {
	Type       float64 `json:"type"`
	Price      float64 `json:"price"`
	Bhk        float64 `json:"bhk"`
	Furnishing float64 `json:"furnishing"`
	Features   float64 `json:"features"`
	Distance   float64 `json:"distance"`
	Rating     float64 `json:"rating"`
	Final      float64 `json:"final"`
}

// Scorer computes similarity scores between a target property and candidates.
// It is a pure value type; the same inputs always produce the same breakdown.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with the given blending profile.
func NewScorer(weights Weights) *Scorer {
	return &Scorer{weights: weights}
}

// Weights returns the profile the scorer blends with.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score produces the full breakdown for a candidate. distanceMeters is the
// store-computed geo distance when the query ran in geo mode, nil otherwise;
// maxDistanceMeters is the radius the distance sub-score normalizes against.
func (s *Scorer) Score(target, candidate *models.Property, distanceMeters *float64, maxDistanceMeters float64) Breakdown {
	b := Breakdown{
		Type:       typeScore(target, candidate),
		Price:      priceScore(target, candidate),
		Bhk:        bhkScore(target, candidate),
		Furnishing: furnishingScore(target, candidate),
		Features:   jaccard(target.FeatureList(), candidate.FeatureList()),
		Distance:   distanceScore(target, candidate, distanceMeters, maxDistanceMeters),
		Rating:     ratingScore(target, candidate),
	}

	b.Final = b.Type*s.weights.Type +
		b.Price*s.weights.Price +
		b.Bhk*s.weights.Bhk +
		b.Furnishing*s.weights.Furnishing +
		b.Features*s.weights.Features +
		b.Distance*s.weights.Distance +
		b.Rating*s.weights.Rating

	return b
}

// MidPrice resolves the single comparison price point for a property: the
// average of both bounds, or whichever bound is present. The second return
// is false when the property has no bounds at all.
func MidPrice(p *models.Property) (float64, bool) {
	switch {
	case p.MinAmount != nil && p.MaxAmount != nil:
		return (*p.MinAmount + *p.MaxAmount) / 2, true
	case p.MinAmount != nil:
		return *p.MinAmount, true
	case p.MaxAmount != nil:
		return *p.MaxAmount, true
	default:
		return 0, false
	}
}

// targetMidPrice is MidPrice with the divide-by-zero guard applied: a target
// with no rent bounds compares at 1.
func targetMidPrice(p *models.Property) float64 {
	mid, ok := MidPrice(p)
	if !ok || mid < 1 {
		return math.Max(mid, 1)
	}
	return mid
}

func typeScore(target, candidate *models.Property) float64 {
	if candidate.PropertyType == "" {
		return 0
	}
	if candidate.PropertyType == target.PropertyType {
		return 1
	}
	return 0
}

// priceScore compares mid-prices relative to the target's mid. A candidate
// with no rent bounds inherits the target's mid and therefore scores 1.0;
// this mirrors the long-standing behavior of the ranking and is covered by a
// test documenting it.
func priceScore(target, candidate *models.Property) float64 {
	targetMid := targetMidPrice(target)

	candidateMid, ok := MidPrice(candidate)
	if !ok {
		candidateMid = targetMid
	}

	return math.Max(0, 1-math.Abs(candidateMid-targetMid)/math.Max(targetMid, 1))
}

func bhkScore(target, candidate *models.Property) float64 {
	targetBhk := ""
	if target.BhkType != nil {
		targetBhk = strings.ToUpper(*target.BhkType)
	}
	candidateBhk := ""
	if candidate.BhkType != nil {
		candidateBhk = strings.ToUpper(*candidate.BhkType)
	}
	if candidateBhk == targetBhk {
		return 1
	}
	return 0
}

// furnishingScore gives full credit for an exact tier match, partial credit
// when both sides are at least semi-furnished, and a floor of 0.3 otherwise.
// A listing with no furnishing recorded is treated as the literal tier
// "none" before comparison.
func furnishingScore(target, candidate *models.Property) float64 {
	targetTier := normalizeFurnishing(target.Furnishing)
	candidateTier := normalizeFurnishing(candidate.Furnishing)

	if candidateTier == targetTier {
		return 1
	}
	if isFurnished(targetTier) && isFurnished(candidateTier) {
		return 0.6
	}
	return 0.3
}

func normalizeFurnishing(f models.Furnishing) models.Furnishing {
	if f == "" {
		return models.FurnishingNone
	}
	return f
}

func isFurnished(f models.Furnishing) bool {
	return f == models.FurnishingSemi || f == models.FurnishingFull
}

// jaccard is intersection over union on the two tag sets. An empty union is
// defined as 0, not NaN.
func jaccard(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, v := range a {
		setA[v] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, v := range b {
		setB[v] = struct{}{}
	}

	intersection := 0
	for v := range setA {
		if _, ok := setB[v]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func ratingScore(target, candidate *models.Property) float64 {
	targetRating := 0.0
	if target.Rating != nil {
		targetRating = *target.Rating
	}
	candidateRating := 0.0
	if candidate.Rating != nil {
		candidateRating = *candidate.Rating
	}
	return math.Max(0, 1-math.Abs(candidateRating-targetRating)/ratingScale)
}

// distanceScore uses the geo distance when the store provided one, else the
// administrative-area fallback over the address snapshots: locality, then
// city, then state; the first tier that matches wins and tiers are never
// combined.
func distanceScore(target, candidate *models.Property, distanceMeters *float64, maxDistanceMeters float64) float64 {
	if distanceMeters != nil && maxDistanceMeters > 0 {
		return math.Max(0, 1-*distanceMeters/maxDistanceMeters)
	}

	if areaEqual(target.AddressSnapshot.Locality, candidate.AddressSnapshot.Locality) {
		return 1
	}
	if areaEqual(target.AddressSnapshot.City, candidate.AddressSnapshot.City) {
		return 0.7
	}
	if areaEqual(target.AddressSnapshot.State, candidate.AddressSnapshot.State) {
		return 0.4
	}
	return 0
}

func areaEqual(a, b *string) bool {
	if a == nil || b == nil {
		return false
	}
	av := strings.TrimSpace(*a)
	bv := strings.TrimSpace(*b)
	if av == "" || bv == "" {
		return false
	}
	return strings.EqualFold(av, bv)
}
