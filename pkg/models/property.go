package models

import (
	"time"

	"github.com/Ramsey-B/fern/pkg/database"
)

// PropertyType is the structural category of a listing
type PropertyType string

const (
	PropertyTypeFlat             PropertyType = "flat"
	PropertyTypeVilla            PropertyType = "villa"
	PropertyTypeIndependentHouse PropertyType = "independent_house"
	PropertyTypeOther            PropertyType = "other"
)

// Valid reports whether the value is one of the known property types
func (t PropertyType) Valid() bool {
	switch t {
	case PropertyTypeFlat, PropertyTypeVilla, PropertyTypeIndependentHouse, PropertyTypeOther:
		return true
	}
	return false
}

// Furnishing is the furnishing tier of a listing
type Furnishing string

const (
	FurnishingNone        Furnishing = "none" // placeholder used when a listing has no furnishing recorded
	FurnishingUnfurnished Furnishing = "unfurnished"
	FurnishingSemi        Furnishing = "semi-furnished"
	FurnishingFull        Furnishing = "fully-furnished"
)

// Valid reports whether the value is one of the known furnishing tiers
func (f Furnishing) Valid() bool {
	switch f {
	case FurnishingUnfurnished, FurnishingSemi, FurnishingFull:
		return true
	}
	return false
}

// GeoPoint is a WGS84 coordinate pair. A property either has both
// coordinates or neither; a partial pair is rejected on write.
type GeoPoint struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// AddressSnapshot is the denormalized slice of the address cached on the
// property. It is the fallback used for administrative-area matching when the
// address join is unavailable.
type AddressSnapshot struct {
	City        *string `json:"city,omitempty" db:"snapshot_city"`
	Locality    *string `json:"locality,omitempty" db:"snapshot_locality"`
	State       *string `json:"state,omitempty" db:"snapshot_state"`
	HouseNumber *string `json:"house_number,omitempty" db:"snapshot_house_number"`
}

// Property is a rental listing. It is both the similarity target and the
// candidate unit for the matching engine.
type Property struct {
	ID           string  `json:"id" db:"id"`
	TenantID     string  `json:"tenant_id" db:"tenant_id"`
	OwnerID      string  `json:"owner_id" db:"owner_id"`
	AddressID    *string `json:"address_id,omitempty" db:"address_id"`
	PropertyName string  `json:"property_name" db:"property_name"`
	Description  *string `json:"description,omitempty" db:"description"`

	PropertyType PropertyType `json:"property_type" db:"property_type"`
	BhkType      *string      `json:"bhk_type,omitempty" db:"bhk_type"`
	Furnishing   Furnishing   `json:"furnishing" db:"furnishing"`

	// Rent bounds. Nullable; when both are present minAmount <= maxAmount is
	// enforced at creation and not re-checked by the scorer.
	MinAmount *float64 `json:"min_amount,omitempty" db:"min_amount"`
	MaxAmount *float64 `json:"max_amount,omitempty" db:"max_amount"`

	Features   database.JSONB[[]string] `json:"features" db:"features"`
	Images     database.JSONB[[]string] `json:"images" db:"images"`
	Highlights database.JSONB[[]string] `json:"highlights" db:"highlights"`

	Rating *float64 `json:"rating,omitempty" db:"rating"`

	LocationLng *float64 `json:"location_lng,omitempty" db:"location_lng"`
	LocationLat *float64 `json:"location_lat,omitempty" db:"location_lat"`

	AddressSnapshot `json:"address_snapshot"`

	UniquePropertyCode string `json:"unique_property_code" db:"unique_property_code"`

	IsActive   bool       `json:"is_active" db:"is_active"`
	IsArchived bool       `json:"is_archived" db:"is_archived"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Location returns the geo point when both coordinates are present.
func (p *Property) Location() (GeoPoint, bool) {
	if p.LocationLng == nil || p.LocationLat == nil {
		return GeoPoint{}, false
	}
	return GeoPoint{Lng: *p.LocationLng, Lat: *p.LocationLat}, true
}

// FeatureList returns the feature tags, never nil.
func (p *Property) FeatureList() []string {
	if p.Features.Data == nil {
		return []string{}
	}
	return p.Features.Data
}

// CreatePropertyRequest is the request body for creating a property
type CreatePropertyRequest struct {
	OwnerID            string           `json:"owner_id" validate:"required"`
	AddressID          *string          `json:"address_id,omitempty"`
	PropertyName       string           `json:"property_name" validate:"required"`
	Description        *string          `json:"description,omitempty"`
	PropertyType       PropertyType     `json:"property_type" validate:"required"`
	BhkType            *string          `json:"bhk_type,omitempty"`
	Furnishing         Furnishing       `json:"furnishing,omitempty"`
	MinAmount          *float64         `json:"min_amount,omitempty" validate:"omitempty,gte=0"`
	MaxAmount          *float64         `json:"max_amount,omitempty" validate:"omitempty,gte=0"`
	Features           []string         `json:"features,omitempty"`
	Images             []string         `json:"images,omitempty"`
	Highlights         []string         `json:"highlights,omitempty"`
	Location           *GeoPoint        `json:"location,omitempty"`
	Snapshot           *AddressSnapshot `json:"address_snapshot,omitempty"`
	UniquePropertyCode string           `json:"unique_property_code" validate:"required"`
}

// UpdatePropertyRequest is the request body for updating a property. Nil
// fields are left untouched.
type UpdatePropertyRequest struct {
	PropertyName *string          `json:"property_name,omitempty"`
	Description  *string          `json:"description,omitempty"`
	PropertyType *PropertyType    `json:"property_type,omitempty"`
	BhkType      *string          `json:"bhk_type,omitempty"`
	Furnishing   *Furnishing      `json:"furnishing,omitempty"`
	MinAmount    *float64         `json:"min_amount,omitempty"`
	MaxAmount    *float64         `json:"max_amount,omitempty"`
	Features     []string         `json:"features,omitempty"`
	Highlights   []string         `json:"highlights,omitempty"`
	Location     *GeoPoint        `json:"location,omitempty"`
	Snapshot     *AddressSnapshot `json:"address_snapshot,omitempty"`
	IsActive     *bool            `json:"is_active,omitempty"`
}

// PropertyStats is the aggregate view returned by the stats endpoint
type PropertyStats struct {
	Total         int            `json:"total"`
	ByType        map[string]int `json:"by_type"`
	AverageRating float64        `json:"average_rating"`
	ActiveCount   int            `json:"active_count"`
	ArchivedCount int            `json:"archived_count"`
}

// CodeAvailability is the result of a unique-code availability check
type CodeAvailability struct {
	Code      string `json:"code"`
	Available bool   `json:"available"`
}
