// Package property persists rental listings and serves the candidate and
// search queries built on top of them.
package property

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var propertyColumns = []string{
	"id", "tenant_id", "owner_id", "address_id", "property_name", "description",
	"property_type", "bhk_type", "furnishing", "min_amount", "max_amount",
	"features", "images", "highlights", "rating", "location_lng", "location_lat",
	"snapshot_city", "snapshot_locality", "snapshot_state", "snapshot_house_number",
	"unique_property_code", "is_active", "is_archived", "deleted_at",
	"created_at", "updated_at",
}

// Repository handles property persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new property repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new property. The unique property code is enforced per
// tenant by the database; a collision surfaces as a 409.
func (r *Repository) Create(ctx context.Context, tenantID string, req *models.CreatePropertyRequest) (*models.Property, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.Create")
	defer span.End()

	now := time.Now().UTC()
	p := &models.Property{
		ID:                 uuid.New().String(),
		TenantID:           tenantID,
		OwnerID:            req.OwnerID,
		AddressID:          req.AddressID,
		PropertyName:       req.PropertyName,
		Description:        req.Description,
		PropertyType:       req.PropertyType,
		BhkType:            req.BhkType,
		Furnishing:         req.Furnishing,
		MinAmount:          req.MinAmount,
		MaxAmount:          req.MaxAmount,
		Features:           database.NewJSONB(emptyIfNil(req.Features)),
		Images:             database.NewJSONB(emptyIfNil(req.Images)),
		Highlights:         database.NewJSONB(emptyIfNil(req.Highlights)),
		UniquePropertyCode: req.UniquePropertyCode,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if req.Location != nil {
		p.LocationLng = &req.Location.Lng
		p.LocationLat = &req.Location.Lat
	}
	if req.Snapshot != nil {
		p.AddressSnapshot = *req.Snapshot
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("properties")
	sb.Cols(propertyColumns...)
	sb.Values(
		p.ID, p.TenantID, p.OwnerID, p.AddressID, p.PropertyName, p.Description,
		p.PropertyType, p.BhkType, p.Furnishing, p.MinAmount, p.MaxAmount,
		p.Features, p.Images, p.Highlights, p.Rating, p.LocationLng, p.LocationLat,
		p.City, p.Locality, p.State, p.HouseNumber,
		p.UniquePropertyCode, p.IsActive, p.IsArchived, p.DeletedAt,
		p.CreatedAt, p.UpdatedAt,
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return nil, httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("property code %s already in use", p.UniquePropertyCode))
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"property_id": p.ID}).Error("Failed to create property")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create property")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"property_id": p.ID,
		"owner_id":    p.OwnerID,
	}).Debug("Created property")

	return p, nil
}

// Get retrieves a property by ID. Soft-deleted rows are returned only when
// includeDeleted is set.
func (r *Repository) Get(ctx context.Context, tenantID, id string, includeDeleted bool) (*models.Property, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(propertyColumns...)
	sb.From("properties")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)
	if !includeDeleted {
		sb.Where(sb.IsNull("deleted_at"))
	}

	query, args := sb.Build()
	var p models.Property
	if err := r.db.GetContext(ctx, &p, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("property %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get property")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get property")
	}

	return &p, nil
}

// GetByCode retrieves a property by its tenant-unique code.
func (r *Repository) GetByCode(ctx context.Context, tenantID, code string) (*models.Property, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.GetByCode")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(propertyColumns...)
	sb.From("properties")
	sb.Where(
		sb.Equal("unique_property_code", code),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	var p models.Property
	if err := r.db.GetContext(ctx, &p, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("property with code %s not found", code))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get property by code")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get property")
	}

	return &p, nil
}

// Update applies the non-nil fields of the request. Returns the updated row.
func (r *Repository) Update(ctx context.Context, tenantID, id string, req *models.UpdatePropertyRequest) (*models.Property, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.Update")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("properties")

	assignments := []string{sb.Assign("updated_at", time.Now().UTC())}
	if req.PropertyName != nil {
		assignments = append(assignments, sb.Assign("property_name", *req.PropertyName))
	}
	if req.Description != nil {
		assignments = append(assignments, sb.Assign("description", *req.Description))
	}
	if req.PropertyType != nil {
		assignments = append(assignments, sb.Assign("property_type", *req.PropertyType))
	}
	if req.BhkType != nil {
		assignments = append(assignments, sb.Assign("bhk_type", *req.BhkType))
	}
	if req.Furnishing != nil {
		assignments = append(assignments, sb.Assign("furnishing", *req.Furnishing))
	}
	if req.MinAmount != nil {
		assignments = append(assignments, sb.Assign("min_amount", *req.MinAmount))
	}
	if req.MaxAmount != nil {
		assignments = append(assignments, sb.Assign("max_amount", *req.MaxAmount))
	}
	if req.Features != nil {
		assignments = append(assignments, sb.Assign("features", database.NewJSONB(req.Features)))
	}
	if req.Highlights != nil {
		assignments = append(assignments, sb.Assign("highlights", database.NewJSONB(req.Highlights)))
	}
	if req.Location != nil {
		assignments = append(assignments,
			sb.Assign("location_lng", req.Location.Lng),
			sb.Assign("location_lat", req.Location.Lat),
		)
	}
	if req.Snapshot != nil {
		assignments = append(assignments,
			sb.Assign("snapshot_city", req.Snapshot.City),
			sb.Assign("snapshot_locality", req.Snapshot.Locality),
			sb.Assign("snapshot_state", req.Snapshot.State),
			sb.Assign("snapshot_house_number", req.Snapshot.HouseNumber),
		)
	}
	if req.IsActive != nil {
		assignments = append(assignments, sb.Assign("is_active", *req.IsActive))
	}

	sb.Set(assignments...)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update property")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update property")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("property %s not found", id))
	}

	return r.Get(ctx, tenantID, id, false)
}

// SoftDelete stamps deleted_at and deactivates the listing. Soft-deleted
// properties drop out of search, similarity, and autocomplete immediately.
func (r *Repository) SoftDelete(ctx context.Context, tenantID, id string) error {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.SoftDelete")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("properties")
	sb.Set(
		sb.Assign("deleted_at", now),
		sb.Assign("is_active", false),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	return r.execExpectingRow(ctx, sb, id, "soft delete")
}

// Restore clears deleted_at and reactivates the listing.
func (r *Repository) Restore(ctx context.Context, tenantID, id string) error {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.Restore")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("properties")
	sb.Set(
		sb.Assign("deleted_at", nil),
		sb.Assign("is_active", true),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNotNull("deleted_at"),
	)

	return r.execExpectingRow(ctx, sb, id, "restore")
}

// SetArchived flips the archived flag. Archived listings stay readable but
// leave the default search and similarity candidate sets.
func (r *Repository) SetArchived(ctx context.Context, tenantID, id string, archived bool) error {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.SetArchived")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("properties")
	sb.Set(
		sb.Assign("is_archived", archived),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	return r.execExpectingRow(ctx, sb, id, "archive")
}

// HardDelete removes the row permanently.
func (r *Repository) HardDelete(ctx context.Context, tenantID, id string) error {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.HardDelete")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom("properties")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to hard delete property")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete property")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("property %s not found", id))
	}

	return nil
}

// OwnerListOptions widens the owner listing beyond live listings.
type OwnerListOptions struct {
	IncludeArchived bool
	IncludeDeleted  bool
}

// ListByOwner retrieves an owner's listings, newest first.
func (r *Repository) ListByOwner(ctx context.Context, tenantID, ownerID string, page, limit int, opts OwnerListOptions) ([]models.Property, int, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.ListByOwner")
	defer span.End()

	page, limit = normalizePage(page, limit)

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From("properties")
	countSb.Where(
		countSb.Equal("tenant_id", tenantID),
		countSb.Equal("owner_id", ownerID),
	)
	if !opts.IncludeDeleted {
		countSb.Where(countSb.IsNull("deleted_at"))
	}
	if !opts.IncludeArchived {
		countSb.Where(countSb.Equal("is_archived", false))
	}

	query, args := countSb.Build()
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count owner properties")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list properties")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(propertyColumns...)
	sb.From("properties")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("owner_id", ownerID),
	)
	if !opts.IncludeDeleted {
		sb.Where(sb.IsNull("deleted_at"))
	}
	if !opts.IncludeArchived {
		sb.Where(sb.Equal("is_archived", false))
	}
	sb.OrderBy("created_at DESC")
	sb.Limit(limit)
	sb.Offset((page - 1) * limit)

	query, args = sb.Build()
	properties := []models.Property{}
	if err := r.db.SelectContext(ctx, &properties, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list owner properties")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list properties")
	}

	return properties, total, nil
}

// AddImages appends image URLs to the listing's gallery.
func (r *Repository) AddImages(ctx context.Context, tenantID, id string, images []string) (*models.Property, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.AddImages")
	defer span.End()

	if len(images) == 0 {
		return r.Get(ctx, tenantID, id, false)
	}

	p, err := r.Get(ctx, tenantID, id, false)
	if err != nil {
		return nil, err
	}

	merged := append(p.Images.Data, images...)
	return r.setImages(ctx, tenantID, id, merged)
}

// RemoveImage deletes one image URL from the gallery.
func (r *Repository) RemoveImage(ctx context.Context, tenantID, id, imageURL string) (*models.Property, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.RemoveImage")
	defer span.End()

	p, err := r.Get(ctx, tenantID, id, false)
	if err != nil {
		return nil, err
	}

	remaining := make([]string, 0, len(p.Images.Data))
	for _, img := range p.Images.Data {
		if img != imageURL {
			remaining = append(remaining, img)
		}
	}
	if len(remaining) == len(p.Images.Data) {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "image not found on property")
	}

	return r.setImages(ctx, tenantID, id, remaining)
}

// CodeAvailable checks whether a unique property code is free for the tenant.
func (r *Repository) CodeAvailable(ctx context.Context, tenantID, code string) (*models.CodeAvailability, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.CodeAvailable")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From("properties")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("unique_property_code", code),
	)

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to check code availability")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to check code availability")
	}

	return &models.CodeAvailability{Code: code, Available: count == 0}, nil
}

// SetRating stores a recomputed aggregate rating for the listing. The
// aggregation itself happens upstream; this only persists the result.
func (r *Repository) SetRating(ctx context.Context, tenantID, id string, rating float64) (*models.Property, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.SetRating")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("properties")
	sb.Set(
		sb.Assign("rating", rating),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	if err := r.execExpectingRow(ctx, sb, id, "set rating"); err != nil {
		return nil, err
	}

	return r.Get(ctx, tenantID, id, false)
}

// Stats aggregates the tenant's listings by type, activity, and rating.
func (r *Repository) Stats(ctx context.Context, tenantID string) (*models.PropertyStats, error) {
	ctx, span := tracing.StartSpan(ctx, "property.Repository.Stats")
	defer span.End()

	query := `
		SELECT property_type, COUNT(*) AS count,
			COUNT(*) FILTER (WHERE is_active) AS active_count,
			COUNT(*) FILTER (WHERE is_archived) AS archived_count,
			COALESCE(AVG(rating), 0) AS avg_rating
		FROM properties
		WHERE tenant_id = $1 AND deleted_at IS NULL
		GROUP BY property_type
	`

	rows, err := r.db.QueryxContext(ctx, query, tenantID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to aggregate property stats")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get property stats")
	}
	defer rows.Close()

	stats := &models.PropertyStats{ByType: map[string]int{}}
	ratingSum := 0.0
	for rows.Next() {
		var (
			propertyType  string
			count         int
			activeCount   int
			archivedCount int
			avgRating     float64
		)
		if err := rows.Scan(&propertyType, &count, &activeCount, &archivedCount, &avgRating); err != nil {
			r.logger.WithContext(ctx).WithError(err).Error("Failed to scan property stats row")
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get property stats")
		}
		stats.ByType[propertyType] = count
		stats.Total += count
		stats.ActiveCount += activeCount
		stats.ArchivedCount += archivedCount
		ratingSum += avgRating * float64(count)
	}
	if err := rows.Err(); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to read property stats rows")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get property stats")
	}

	if stats.Total > 0 {
		stats.AverageRating = ratingSum / float64(stats.Total)
	}

	return stats, nil
}

func (r *Repository) setImages(ctx context.Context, tenantID, id string, images []string) (*models.Property, error) {
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("properties")
	sb.Set(
		sb.Assign("images", database.NewJSONB(images)),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update property images")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update property images")
	}

	return r.Get(ctx, tenantID, id, false)
}

func (r *Repository) execExpectingRow(ctx context.Context, sb *sqlbuilder.UpdateBuilder, id, action string) error {
	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error(fmt.Sprintf("Failed to %s property", action))
		return httperror.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to %s property", action))
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("property %s not found", id))
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}
