package similarity

import "math"

// Weights is the blending profile for the seven match criteria. It is passed
// explicitly into the scorer so tests can substitute alternate profiles;
// there is no package-level default in effect anywhere.
type Weights struct {
	Type       float64 `json:"type"`
	Price      float64 `json:"price"`
	Bhk        float64 `json:"bhk"`
	Furnishing float64 `json:"furnishing"`
	Features   float64 `json:"features"`
	Distance   float64 `json:"distance"`
	Rating     float64 `json:"rating"`
}

// DefaultWeights returns the production blending profile. The weights sum to
// 1.0, which keeps final scores inside [0,1].
func DefaultWeights() Weights {
	return Weights{
		Type:       0.25,
		Price:      0.25,
		Bhk:        0.15,
		Furnishing: 0.10,
		Features:   0.15,
		Distance:   0.05,
		Rating:     0.05,
	}
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Type + w.Price + w.Bhk + w.Furnishing + w.Features + w.Distance + w.Rating
}

// Normalized returns a copy scaled so the weights sum to 1.0. A zero profile
// is returned unchanged.
func (w Weights) Normalized() Weights {
	sum := w.Sum()
	if sum == 0 || math.IsNaN(sum) {
		return w
	}
	return Weights{
		Type:       w.Type / sum,
		Price:      w.Price / sum,
		Bhk:        w.Bhk / sum,
		Furnishing: w.Furnishing / sum,
		Features:   w.Features / sum,
		Distance:   w.Distance / sum,
		Rating:     w.Rating / sum,
	}
}
