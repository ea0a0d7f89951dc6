// Package address persists the address entities properties may reference.
package address

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

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var addressColumns = []string{
	"id", "tenant_id", "state", "city", "locality", "pincode", "full_address",
	"lng", "lat", "created_at", "updated_at",
}

// Repository handles address persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new address repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new address.
func (r *Repository) Create(ctx context.Context, tenantID string, address *models.Address) (*models.Address, error) {
	ctx, span := tracing.StartSpan(ctx, "address.Repository.Create")
	defer span.End()

	if address.ID == "" {
		address.ID = uuid.New().String()
	}
	address.TenantID = tenantID
	address.CreatedAt = time.Now().UTC()
	address.UpdatedAt = address.CreatedAt

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("addresses")
	sb.Cols(addressColumns...)
	sb.Values(
		address.ID, address.TenantID, address.State, address.City, address.Locality,
		address.Pincode, address.FullAddress, address.Lng, address.Lat,
		address.CreatedAt, address.UpdatedAt,
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"address_id": address.ID}).Error("Failed to create address")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create address")
	}

	return address, nil
}

// Get retrieves an address by ID.
func (r *Repository) Get(ctx context.Context, tenantID, id string) (*models.Address, error) {
	ctx, span := tracing.StartSpan(ctx, "address.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(addressColumns...)
	sb.From("addresses")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	var address models.Address
	if err := r.db.GetContext(ctx, &address, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("address %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get address")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get address")
	}

	return &address, nil
}

// Update replaces the mutable fields of an address and refreshes the
// denormalized snapshot on every property that references it. Both writes
// happen in one transaction so listings never observe a half-updated address.
func (r *Repository) Update(ctx context.Context, tenantID, id string, address *models.Address) (*models.Address, error) {
	ctx, span := tracing.StartSpan(ctx, "address.Repository.Update")
	defer span.End()

	now := time.Now().UTC()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update address")
	}
	defer tx.Rollback(ctx)

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("addresses")
	sb.Set(
		sb.Assign("state", address.State),
		sb.Assign("city", address.City),
		sb.Assign("locality", address.Locality),
		sb.Assign("pincode", address.Pincode),
		sb.Assign("full_address", address.FullAddress),
		sb.Assign("lng", address.Lng),
		sb.Assign("lat", address.Lat),
		sb.Assign("updated_at", now),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to update address")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update address")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("address %s not found", id))
	}

	snapshot := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	snapshot.Update("properties")
	snapshot.Set(
		snapshot.Assign("snapshot_city", address.City),
		snapshot.Assign("snapshot_locality", address.Locality),
		snapshot.Assign("snapshot_state", address.State),
		snapshot.Assign("updated_at", now),
	)
	snapshot.Where(
		snapshot.Equal("address_id", id),
		snapshot.Equal("tenant_id", tenantID),
	)

	query, args = snapshot.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to refresh property snapshots")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update address")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update address")
	}

	return r.Get(ctx, tenantID, id)
}

// Delete removes an address. Properties referencing it keep their snapshot.
func (r *Repository) Delete(ctx context.Context, tenantID, id string) error {
	ctx, span := tracing.StartSpan(ctx, "address.Repository.Delete")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom("addresses")
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("tenant_id", tenantID),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete address")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete address")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("address %s not found", id))
	}

	return nil
}
