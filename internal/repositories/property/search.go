package property

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/search"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Search runs the filtered, sorted, paginated listing query, with an optional
// geo-radius bound. Criteria must be normalized by the caller.
func (r *Repository) Search(ctx context.Context, tenantID string, q search.Query) (*search.Result, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.Search")
	defer span.End()

	start := time.Now()
	geoLabel := "false"
	if q.Geo != nil {
		geoLabel = "true"
	}
	defer func() {
		metrics.SearchDuration.WithLabelValues(tenantID, geoLabel).Observe(time.Since(start).Seconds())
	}()

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From("properties")
	applySearchFilters(countSb, tenantID, q)

	countQuery, countArgs := countSb.Build()
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count search results")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to search properties")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	columns := make([]string, len(propertyColumns), len(propertyColumns)+1)
	copy(columns, propertyColumns)
	if q.Geo != nil {
		distance := fmt.Sprintf(haversineSQL,
			sb.Var(q.Geo.Lat), sb.Var(q.Geo.Lat), sb.Var(q.Geo.Lng))
		columns = append(columns, sb.As(distance, "distance_meters"))
	}
	sb.Select(columns...)
	sb.From("properties")
	applySearchFilters(sb, tenantID, q)

	direction := "ASC"
	if q.SortDesc {
		direction = "DESC"
	}
	sb.OrderBy(fmt.Sprintf("%s %s", q.SortColumn, direction))
	sb.Limit(q.Limit)
	sb.Offset((q.Page - 1) * q.Limit)

	query, args := sb.Build()
	rows := []candidateRow{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to search properties")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to search properties")
	}

	data := make([]models.Property, 0, len(rows))
	for _, row := range rows {
		data = append(data, row.Property)
	}

	return search.NewResult(q.Page, q.Limit, total, data), nil
}

func applySearchFilters(sb *sqlbuilder.SelectBuilder, tenantID string, q search.Query) {
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
		sb.Equal("is_active", true),
	)
	if !q.IncludeArchived {
		sb.Where(sb.Equal("is_archived", false))
	}

	if q.Text != "" {
		pattern := "%" + q.Text + "%"
		sb.Where(sb.Or(
			sb.ILike("property_name", pattern),
			sb.ILike("description", pattern),
		))
	}
	if q.PropertyType != "" {
		sb.Where(sb.Equal("property_type", q.PropertyType))
	}
	if q.Furnishing != "" {
		sb.Where(sb.Equal("furnishing", q.Furnishing))
	}
	if q.BhkType != "" {
		sb.Where(sb.Equal("bhk_type", strings.ToUpper(q.BhkType)))
	}
	if q.MinAmount != nil {
		sb.Where(sb.GreaterEqualThan("max_amount", *q.MinAmount))
	}
	if q.MaxAmount != nil {
		sb.Where(sb.LessEqualThan("min_amount", *q.MaxAmount))
	}
	if q.City != "" {
		sb.Where(fmt.Sprintf("LOWER(TRIM(snapshot_city)) = %s", sb.Var(strings.ToLower(q.City))))
	}
	if q.Locality != "" {
		sb.Where(fmt.Sprintf("LOWER(TRIM(snapshot_locality)) = %s", sb.Var(strings.ToLower(q.Locality))))
	}
	if q.State != "" {
		sb.Where(fmt.Sprintf("LOWER(TRIM(snapshot_state)) = %s", sb.Var(strings.ToLower(q.State))))
	}

	if q.Geo != nil {
		sb.Where(
			sb.IsNotNull("location_lng"),
			sb.IsNotNull("location_lat"),
		)
		radius := fmt.Sprintf(haversineSQL,
			sb.Var(q.Geo.Lat), sb.Var(q.Geo.Lat), sb.Var(q.Geo.Lng))
		sb.Where(fmt.Sprintf("%s <= %s", radius, sb.Var(q.Geo.RadiusMeters)))
	}
}

// NearbyProperty is a listing annotated with its distance from the query
// point.
type NearbyProperty struct {
	models.Property
	DistanceKm float64 `json:"distance_km"`
}

// Nearby lists active properties within the radius, nearest first.
func (r *Repository) Nearby(ctx context.Context, tenantID string, lng, lat, radiusMeters float64, limit int) ([]NearbyProperty, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.Nearby")
	defer span.End()

	if limit < 1 || limit > 100 {
		limit = 20
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	columns := make([]string, len(propertyColumns), len(propertyColumns)+1)
	copy(columns, propertyColumns)
	distance := fmt.Sprintf(haversineSQL, sb.Var(lat), sb.Var(lat), sb.Var(lng))
	columns = append(columns, sb.As(distance, "distance_meters"))
	sb.Select(columns...)
	sb.From("properties")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
		sb.Equal("is_active", true),
		sb.Equal("is_archived", false),
		sb.IsNotNull("location_lng"),
		sb.IsNotNull("location_lat"),
	)
	radiusExpr := fmt.Sprintf(haversineSQL, sb.Var(lat), sb.Var(lat), sb.Var(lng))
	sb.Where(fmt.Sprintf("%s <= %s", radiusExpr, sb.Var(radiusMeters)))
	sb.OrderBy("distance_meters ASC")
	sb.Limit(limit)

	query, args := sb.Build()
	rows := []candidateRow{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to query nearby properties")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to query nearby properties")
	}

	nearby := make([]NearbyProperty, 0, len(rows))
	for _, row := range rows {
		n := NearbyProperty{Property: row.Property}
		if row.DistanceMeters != nil {
			n.DistanceKm = *row.DistanceMeters / 1000
		}
		nearby = append(nearby, n)
	}
	return nearby, nil
}

// AutoComplete returns up to limit suggestions across three tiers checked in
// order: property names, then address rows, then the denormalized snapshot
// fields. Each tier deduplicates on lowercased text, and later tiers are
// skipped once the limit is reached.
func (r *Repository) AutoComplete(ctx context.Context, tenantID, text string, limit int) ([]search.Suggestion, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.AutoComplete")
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return []search.Suggestion{}, nil
	}
	if limit < 1 || limit > 50 {
		limit = 10
	}

	suggestions := make([]search.Suggestion, 0, limit)

	names, err := r.suggestPropertyNames(ctx, tenantID, text, limit)
	if err != nil {
		return nil, err
	}
	suggestions = append(suggestions, names...)
	if len(suggestions) >= limit {
		return suggestions[:limit], nil
	}

	addresses, err := r.suggestAddresses(ctx, tenantID, text, limit-len(suggestions))
	if err != nil {
		return nil, err
	}
	suggestions = append(suggestions, addresses...)
	if len(suggestions) >= limit {
		return suggestions[:limit], nil
	}

	snapshots, err := r.suggestSnapshots(ctx, tenantID, text, limit-len(suggestions))
	if err != nil {
		return nil, err
	}
	suggestions = append(suggestions, snapshots...)
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

func (r *Repository) suggestPropertyNames(ctx context.Context, tenantID, text string, limit int) ([]search.Suggestion, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "property_name")
	sb.From("properties")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
		sb.Equal("is_active", true),
		sb.ILike("property_name", "%"+text+"%"),
	)
	sb.OrderBy("property_name ASC")
	sb.Limit(limit * 2) // headroom for dedup

	query, args := sb.Build()
	rows := []struct {
		ID           string `db:"id"`
		PropertyName string `db:"property_name"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to autocomplete property names")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to autocomplete")
	}

	seen := map[string]struct{}{}
	suggestions := make([]search.Suggestion, 0, limit)
	for _, row := range rows {
		key := strings.ToLower(row.PropertyName)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		suggestions = append(suggestions, search.Suggestion{
			Type:       "property",
			Text:       row.PropertyName,
			PropertyID: row.ID,
		})
		if len(suggestions) == limit {
			break
		}
	}
	return suggestions, nil
}

func (r *Repository) suggestAddresses(ctx context.Context, tenantID, text string, limit int) ([]search.Suggestion, error) {
	pattern := "%" + text + "%"
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		"COALESCE(city, '') AS city",
		"COALESCE(full_address, '') AS full_address",
		"COALESCE(pincode, '') AS pincode",
	)
	sb.From("addresses")
	sb.Where(sb.Equal("tenant_id", tenantID))
	sb.Where(sb.Or(
		sb.ILike("city", pattern),
		sb.ILike("full_address", pattern),
		sb.ILike("pincode", pattern),
	))
	sb.Limit(limit * 3)

	query, args := sb.Build()
	rows := []struct {
		City        string `db:"city"`
		FullAddress string `db:"full_address"`
		Pincode     string `db:"pincode"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to autocomplete addresses")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to autocomplete")
	}

	lowered := strings.ToLower(text)
	seen := map[string]struct{}{}
	suggestions := make([]search.Suggestion, 0, limit)
	for _, row := range rows {
		for _, value := range []string{row.City, row.FullAddress, row.Pincode} {
			if value == "" || !strings.Contains(strings.ToLower(value), lowered) {
				continue
			}
			key := strings.ToLower(value)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			suggestions = append(suggestions, search.Suggestion{Type: "address", Text: value})
			if len(suggestions) == limit {
				return suggestions, nil
			}
		}
	}
	return suggestions, nil
}

func (r *Repository) suggestSnapshots(ctx context.Context, tenantID, text string, limit int) ([]search.Suggestion, error) {
	pattern := "%" + text + "%"
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(
		"COALESCE(snapshot_city, '') AS snapshot_city",
		"COALESCE(snapshot_locality, '') AS snapshot_locality",
	)
	sb.From("properties")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
		sb.Equal("is_active", true),
	)
	sb.Where(sb.Or(
		sb.ILike("snapshot_city", pattern),
		sb.ILike("snapshot_locality", pattern),
	))
	sb.Limit(limit * 3)

	query, args := sb.Build()
	rows := []struct {
		SnapshotCity     string `db:"snapshot_city"`
		SnapshotLocality string `db:"snapshot_locality"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to autocomplete snapshot fields")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to autocomplete")
	}

	lowered := strings.ToLower(text)
	seen := map[string]struct{}{}
	suggestions := make([]search.Suggestion, 0, limit)
	for _, row := range rows {
		for _, value := range []string{row.SnapshotLocality, row.SnapshotCity} {
			if value == "" || !strings.Contains(strings.ToLower(value), lowered) {
				continue
			}
			key := strings.ToLower(value)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			suggestions = append(suggestions, search.Suggestion{Type: "address", Text: value})
			if len(suggestions) == limit {
				return suggestions, nil
			}
		}
	}
	return suggestions, nil
}
