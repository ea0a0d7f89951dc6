// Package search defines the criteria and result shapes for the property
// search and autocomplete surface.
package search

import (
	"fmt"
	"strings"

	"github.com/Ramsey-B/fern/pkg/geo"
	"github.com/Ramsey-B/fern/pkg/models"
)

const (
	defaultPage   = 1
	defaultLimit  = 20
	maxLimit      = 100
	defaultRadius = 5000.0
)

// sortColumns is the allowlist of sortable fields. Anything outside it is
// silently replaced with the default; sort input never reaches SQL verbatim.
var sortColumns = map[string]string{
	"created_at":    "created_at",
	"updated_at":    "updated_at",
	"property_name": "property_name",
	"min_amount":    "min_amount",
	"max_amount":    "max_amount",
	"rating":        "rating",
	"distance":      "distance_meters",
}

// Criteria is the caller-facing search input, bound straight from query
// params. Normalize must be called before it reaches the store.
type Criteria struct {
	Query        string              `query:"q"`
	PropertyType models.PropertyType `query:"property_type"`
	Furnishing   models.Furnishing   `query:"furnishing"`
	BhkType      string              `query:"bhk_type"`
	MinAmount    *float64            `query:"min_amount"`
	MaxAmount    *float64            `query:"max_amount"`
	City         string              `query:"city"`
	Locality     string              `query:"locality"`
	State        string              `query:"state"`

	IncludeArchived bool `query:"include_archived"`

	// Geo-radius search: both coordinates required; the radius comes from
	// either DistanceValue+DistanceUnit or the compact MaxDistance token.
	Lng           *float64 `query:"lng"`
	Lat           *float64 `query:"lat"`
	DistanceValue *float64 `query:"distance_value"`
	DistanceUnit  string   `query:"distance_unit"`
	MaxDistance   string   `query:"max_distance"`

	Page      int    `query:"page"`
	Limit     int    `query:"limit"`
	SortBy    string `query:"sort_by"`
	SortOrder string `query:"sort_order"`
}

// Query is the normalized, store-ready form of a Criteria.
type Query struct {
	Text         string
	PropertyType models.PropertyType
	Furnishing   models.Furnishing
	BhkType      string
	MinAmount    *float64
	MaxAmount    *float64
	City         string
	Locality     string
	State        string

	IncludeArchived bool

	Geo *GeoQuery

	Page       int
	Limit      int
	SortColumn string
	SortDesc   bool
}

// GeoQuery is the resolved radius filter.
type GeoQuery struct {
	Lng          float64
	Lat          float64
	RadiusMeters float64
}

// Normalize validates the criteria and resolves defaults. Distance and
// coordinate problems are rejected here, before any query is issued.
func (c Criteria) Normalize() (Query, error) {
	q := Query{
		Text:            strings.TrimSpace(c.Query),
		PropertyType:    c.PropertyType,
		Furnishing:      c.Furnishing,
		BhkType:         strings.TrimSpace(c.BhkType),
		MinAmount:       c.MinAmount,
		MaxAmount:       c.MaxAmount,
		City:            strings.TrimSpace(c.City),
		Locality:        strings.TrimSpace(c.Locality),
		State:           strings.TrimSpace(c.State),
		IncludeArchived: c.IncludeArchived,
		Page:            c.Page,
		Limit:           c.Limit,
	}

	if q.Page < 1 {
		q.Page = defaultPage
	}
	if q.Limit < 1 || q.Limit > maxLimit {
		q.Limit = defaultLimit
	}

	if c.PropertyType != "" && !c.PropertyType.Valid() {
		return Query{}, fmt.Errorf("unknown property type %q", c.PropertyType)
	}
	if c.Furnishing != "" && !c.Furnishing.Valid() {
		return Query{}, fmt.Errorf("unknown furnishing %q", c.Furnishing)
	}

	geoQuery, err := c.resolveGeo()
	if err != nil {
		return Query{}, err
	}
	q.Geo = geoQuery

	q.SortColumn, q.SortDesc = resolveSort(c.SortBy, c.SortOrder, q.Geo != nil)
	return q, nil
}

// resolveGeo turns the coordinate and distance inputs into a radius filter.
// A partial coordinate pair is invalid; distance inputs without coordinates
// are ignored.
func (c Criteria) resolveGeo() (*GeoQuery, error) {
	if c.Lng == nil && c.Lat == nil {
		return nil, nil
	}
	if c.Lng == nil || c.Lat == nil {
		return nil, fmt.Errorf("%w: both lng and lat are required", geo.ErrInvalidCoordinates)
	}
	if err := geo.ValidateCoordinates(*c.Lng, *c.Lat); err != nil {
		return nil, err
	}

	radius := defaultRadius
	switch {
	case strings.TrimSpace(c.MaxDistance) != "":
		meters, err := geo.ParseDistanceToken(c.MaxDistance)
		if err != nil {
			return nil, err
		}
		radius = meters
	case c.DistanceValue != nil:
		meters, err := geo.ToMeters(*c.DistanceValue, c.DistanceUnit)
		if err != nil {
			return nil, err
		}
		radius = meters
	}

	return &GeoQuery{Lng: *c.Lng, Lat: *c.Lat, RadiusMeters: radius}, nil
}

// resolveSort maps the requested sort onto the allowlist. With geo active and
// no explicit sort, results default to nearest-first; otherwise newest-first.
func resolveSort(sortBy, sortOrder string, hasGeo bool) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(sortBy))

	column, ok := sortColumns[key]
	if !ok || (key == "distance" && !hasGeo) {
		if hasGeo && key == "" {
			return sortColumns["distance"], false
		}
		column = sortColumns["created_at"]
		key = "created_at"
	}

	switch strings.ToLower(strings.TrimSpace(sortOrder)) {
	case "asc":
		return column, false
	case "desc":
		return column, true
	default:
		// ascending feels natural for distance, descending for everything else
		return column, key != "distance"
	}
}

// Suggestion is one autocomplete entry. PropertyID is set only for
// property-name suggestions.
type Suggestion struct {
	Type       string `json:"type"` // "property" or "address"
	Text       string `json:"text"`
	PropertyID string `json:"property_id,omitempty"`
}

// Result is the paginated search response shape.
type Result struct {
	Success    bool              `json:"success"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	Total      int               `json:"total"`
	TotalPages int               `json:"total_pages"`
	Data       []models.Property `json:"data"`
}

// NewResult assembles the response envelope around one page of rows.
func NewResult(page, limit, total int, data []models.Property) *Result {
	totalPages := 0
	if total > 0 {
		totalPages = (total + limit - 1) / limit
	}
	if data == nil {
		data = []models.Property{}
	}
	return &Result{
		Success:    true,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		Data:       data,
	}
}
