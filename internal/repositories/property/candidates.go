package property

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/similarity"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// candidateRow is a property row annotated with the store-computed haversine
// distance. The distance column is only present in geo mode.
type candidateRow struct {
	models.Property
	DistanceMeters *float64 `db:"distance_meters"`
}

// haversineSQL renders the great-circle distance in meters between a bound
// point and the row's coordinates. Arguments: lat, lat, lng.
const haversineSQL = `6371000 * acos(LEAST(1.0, GREATEST(-1.0,
		sin(radians(%s)) * sin(radians(location_lat)) +
		cos(radians(%s)) * cos(radians(location_lat)) * cos(radians(location_lng) - radians(%s)))))`

// TargetByID resolves a similarity target. Absence returns (nil, nil): a
// missing target is an outcome the engine reports, not an error.
func (r *Repository) TargetByID(ctx context.Context, tenantID, id string) (*models.Property, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.TargetByID")
	defer span.End()

	p, err := r.fetchTarget(ctx, "id", id, tenantID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to resolve similarity target")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve target property")
	}
	return p, nil
}

// TargetByCode resolves a similarity target by its tenant-unique code.
func (r *Repository) TargetByCode(ctx context.Context, tenantID, code string) (*models.Property, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.TargetByCode")
	defer span.End()

	p, err := r.fetchTarget(ctx, "unique_property_code", code, tenantID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to resolve similarity target by code")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve target property")
	}
	return p, nil
}

func (r *Repository) fetchTarget(ctx context.Context, column, value, tenantID string) (*models.Property, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(propertyColumns...)
	sb.From("properties")
	sb.Where(
		sb.Equal(column, value),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var p models.Property
	if err := r.db.GetContext(ctx, &p, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Candidates materializes one phase's candidate set. Filtering here is
// deliberately coarse; scoring happens in-process on the returned rows.
func (r *Repository) Candidates(ctx context.Context, query similarity.CandidateQuery) ([]similarity.Candidate, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.Candidates")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()

	columns := make([]string, len(propertyColumns), len(propertyColumns)+1)
	copy(columns, propertyColumns)
	if query.Geo != nil {
		distance := fmt.Sprintf(haversineSQL,
			sb.Var(query.Geo.Lat), sb.Var(query.Geo.Lat), sb.Var(query.Geo.Lng))
		columns = append(columns, sb.As(distance, "distance_meters"))
	}
	sb.Select(columns...)
	sb.From("properties")

	sb.Where(
		sb.Equal("tenant_id", query.TenantID),
		sb.NotEqual("id", query.ExcludeID),
	)
	if query.ExcludeOwnerID != "" {
		sb.Where(sb.NotEqual("owner_id", query.ExcludeOwnerID))
	}
	if !query.IncludeDeleted {
		sb.Where(sb.IsNull("deleted_at"))
	}
	if !query.IncludeArchived {
		sb.Where(sb.Equal("is_archived", false))
	}
	if query.PropertyType != nil {
		sb.Where(sb.Equal("property_type", *query.PropertyType))
	}

	switch {
	case query.Geo != nil:
		sb.Where(
			sb.IsNotNull("location_lng"),
			sb.IsNotNull("location_lat"),
		)
		radius := fmt.Sprintf(haversineSQL,
			sb.Var(query.Geo.Lat), sb.Var(query.Geo.Lat), sb.Var(query.Geo.Lng))
		sb.Where(fmt.Sprintf("%s <= %s", radius, sb.Var(query.Geo.MaxDistanceMeters)))
		sb.OrderBy("distance_meters ASC")
	case query.Area != nil:
		sb.Where(areaCondition(sb, query.Area))
		sb.OrderBy("created_at DESC")
	default:
		sb.OrderBy("created_at DESC")
	}

	sb.Limit(query.MaxCandidates)

	sqlQuery, args := sb.Build()
	rows := []candidateRow{}
	if err := r.db.SelectContext(ctx, &rows, sqlQuery, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tenant_id": query.TenantID,
		}).Error("Failed to query similarity candidates")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to query candidates")
	}

	candidates := make([]similarity.Candidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, similarity.Candidate{
			Property:       row.Property,
			DistanceMeters: row.DistanceMeters,
		})
	}
	return candidates, nil
}

// areaCondition matches the snapshot tier(s) case-insensitively. At most two
// tiers are combined, and only with OR.
func areaCondition(sb *sqlbuilder.SelectBuilder, area *similarity.AreaFilter) string {
	primary := tierCondition(sb, area.Tier, area.Value)
	if area.OrValue == "" {
		return primary
	}
	return sb.Or(primary, tierCondition(sb, area.OrTier, area.OrValue))
}

func tierCondition(sb *sqlbuilder.SelectBuilder, tier similarity.AreaTier, value string) string {
	column := map[similarity.AreaTier]string{
		similarity.AreaTierLocality: "snapshot_locality",
		similarity.AreaTierCity:     "snapshot_city",
		similarity.AreaTierState:    "snapshot_state",
	}[tier]
	return fmt.Sprintf("LOWER(TRIM(%s)) = %s", column, sb.Var(strings.ToLower(strings.TrimSpace(value))))
}
