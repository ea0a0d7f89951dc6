package similarity

import (
	"github.com/Ramsey-B/fern/pkg/models"
)

// Phase is one strictness tier of the two-tier search.
type Phase int

const (
	// PhaseStrict hard-filters on property type and uses the caller's
	// distance radius.
	PhaseStrict Phase = 1
	// PhaseRelaxed drops the type gate, doubles the radius, and widens the
	// administrative-area filter to city-or-state.
	PhaseRelaxed Phase = 2
)

// Floor is the minimum final score a candidate needs to survive the phase.
// Candidates below the floor are discarded before ranking so low-quality
// matches never consume result slots.
func (p Phase) Floor() float64 {
	if p == PhaseRelaxed {
		return relaxedScoreFloor
	}
	return strictScoreFloor
}

const (
	strictScoreFloor  = 0.35
	relaxedScoreFloor = 0.20

	defaultLimit             = 10
	defaultMinResults        = 6
	defaultMaxDistanceMeters = 10000
)

// Options are the caller-facing knobs for a similarity lookup. The zero
// value is usable; every field is defaulted.
type Options struct {
	// Limit caps the returned item count. Default 10.
	Limit int `json:"limit"`
	// MinResults is the phase-1 sufficiency threshold; below it phase 2
	// runs. Defaults to min(Limit, 6). An explicit 0 is honored: phase 1 is
	// then always sufficient, even when empty.
	MinResults *int `json:"min_results,omitempty"`
	// MaxDistanceMeters bounds the phase-1 geo radius. Default 10000.
	MaxDistanceMeters float64 `json:"max_distance_meters"`
	IncludeArchived   bool    `json:"include_archived"`
	IncludeDeleted    bool    `json:"include_deleted"`
	ExcludeOwner      bool    `json:"exclude_owner"`
}

func (o Options) withDefaults() Options {
	if o.Limit <= 0 {
		o.Limit = defaultLimit
	}
	if o.MinResults == nil {
		minResults := o.Limit
		if minResults > defaultMinResults {
			minResults = defaultMinResults
		}
		o.MinResults = &minResults
	}
	if o.MaxDistanceMeters <= 0 {
		o.MaxDistanceMeters = defaultMaxDistanceMeters
	}
	return o
}

// AreaTier names the administrative-area level a non-geo filter matches on.
type AreaTier string

const (
	AreaTierLocality AreaTier = "locality"
	AreaTierCity     AreaTier = "city"
	AreaTierState    AreaTier = "state"
)

// GeoFilter asks the store for candidates within MaxDistanceMeters of the
// point, annotated with their distance.
type GeoFilter struct {
	Lng               float64
	Lat               float64
	MaxDistanceMeters float64
}

// AreaFilter asks the store for candidates whose snapshot matches one of the
// given tier values. Exactly one tier is active per phase; tiers are never
// combined.
type AreaFilter struct {
	Tier   AreaTier
	Value  string
	// OrTier widens phase 2 to city-or-state when both are present on the
	// target. Empty otherwise.
	OrTier  AreaTier
	OrValue string
}

// CandidateQuery is the store-facing description of one phase's candidate
// set. Filtering is deliberately coarse: scoring happens in-process on the
// materialized rows, never inside the store.
type CandidateQuery struct {
	TenantID        string
	ExcludeID       string
	ExcludeOwnerID  string
	IncludeArchived bool
	IncludeDeleted  bool

	// PropertyType is the hard type gate; nil in the relaxed phase, where
	// type is a scored criterion only.
	PropertyType *models.PropertyType

	// Geo is set when the target has coordinates; Area is the
	// administrative fallback otherwise. At most one is non-nil.
	Geo  *GeoFilter
	Area *AreaFilter

	// MaxCandidates caps the rows fetched for scoring.
	MaxCandidates int
}

// EffectiveMaxDistance is the radius the distance sub-score normalizes
// against for this query; zero in non-geo mode.
func (q CandidateQuery) EffectiveMaxDistance() float64 {
	if q.Geo == nil {
		return 0
	}
	return q.Geo.MaxDistanceMeters
}

// BuildCandidateQuery constructs the filter set for one phase against one
// target. Visibility filters are always applied here, before scoring;
// excluded properties never enter the candidate set.
func BuildCandidateQuery(target *models.Property, opts Options, phase Phase, maxCandidates int) CandidateQuery {
	opts = opts.withDefaults()

	q := CandidateQuery{
		TenantID:        target.TenantID,
		ExcludeID:       target.ID,
		IncludeArchived: opts.IncludeArchived,
		IncludeDeleted:  opts.IncludeDeleted,
		MaxCandidates:   maxCandidates,
	}

	if opts.ExcludeOwner {
		q.ExcludeOwnerID = target.OwnerID
	}

	if phase == PhaseStrict {
		propertyType := target.PropertyType
		q.PropertyType = &propertyType
	}

	if point, ok := target.Location(); ok {
		radius := opts.MaxDistanceMeters
		if phase == PhaseRelaxed {
			radius *= 2
		}
		q.Geo = &GeoFilter{Lng: point.Lng, Lat: point.Lat, MaxDistanceMeters: radius}
		return q
	}

	q.Area = buildAreaFilter(target, phase)
	return q
}

// buildAreaFilter picks the administrative filter for a target with no geo
// point. Phase 1 uses the narrowest present tier (locality, else city, else
// state). Phase 2 never reuses locality: it was already exhausted, so the
// filter widens to city-or-state.
func buildAreaFilter(target *models.Property, phase Phase) *AreaFilter {
	locality := snapshotValue(target.AddressSnapshot.Locality)
	city := snapshotValue(target.AddressSnapshot.City)
	state := snapshotValue(target.AddressSnapshot.State)

	if phase == PhaseStrict {
		switch {
		case locality != "":
			return &AreaFilter{Tier: AreaTierLocality, Value: locality}
		case city != "":
			return &AreaFilter{Tier: AreaTierCity, Value: city}
		case state != "":
			return &AreaFilter{Tier: AreaTierState, Value: state}
		default:
			return nil
		}
	}

	switch {
	case city != "" && state != "":
		return &AreaFilter{Tier: AreaTierCity, Value: city, OrTier: AreaTierState, OrValue: state}
	case city != "":
		return &AreaFilter{Tier: AreaTierCity, Value: city}
	case state != "":
		return &AreaFilter{Tier: AreaTierState, Value: state}
	default:
		return nil
	}
}

func snapshotValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
