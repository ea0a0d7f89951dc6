// Package property exposes the property HTTP surface: CRUD, lifecycle,
// search, autocomplete, and the similarity lookups.
package property

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/internal/repositories/property"
	"github.com/Ramsey-B/fern/pkg/cache"
	"github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/models"
)

var validate = validator.New()

// Register registers property routes
func Register(g *echo.Group) {
	g.POST("", CreateProperty)
	g.GET("/search", SearchProperties)
	g.GET("/autocomplete", AutoComplete)
	g.GET("/nearby", NearbyProperties)
	g.GET("/stats", PropertyStats)
	g.GET("/code-availability/:code", CodeAvailability)
	g.GET("/code/:code", GetPropertyByCode)
	g.GET("/code/:code/similar", SimilarByCode)
	g.GET("/owner/:ownerId", ListOwnerProperties)
	g.GET("/:id", GetProperty)
	g.PUT("/:id", UpdateProperty)
	g.PUT("/:id/rating", UpdatePropertyRating)
	g.DELETE("/:id", DeleteProperty)
	g.DELETE("/:id/permanent", PermanentlyDeleteProperty)
	g.POST("/:id/restore", RestoreProperty)
	g.POST("/:id/archive", ArchiveProperty)
	g.POST("/:id/unarchive", UnarchiveProperty)
	g.GET("/:id/similar", SimilarByID)
	g.POST("/:id/images", AddPropertyImages)
	g.DELETE("/:id/images", RemovePropertyImage)
}

func requireTenant(c echo.Context) (string, error) {
	tenantID := context.GetTenantID(c.Request().Context())
	if tenantID == "" {
		return "", httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}
	return tenantID, nil
}

// CreateProperty creates a new property listing
func CreateProperty(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID, err := requireTenant(c)
	if err != nil {
		return err
	}

	var req models.CreatePropertyRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if !req.PropertyType.Valid() {
		return httperror.NewHTTPError(http.StatusBadRequest, "unknown property type")
	}
	if req.Furnishing != "" && !req.Furnishing.Valid() {
		return httperror.NewHTTPError(http.StatusBadRequest, "unknown furnishing")
	}
	if req.MinAmount != nil && req.MaxAmount != nil && *req.MinAmount > *req.MaxAmount {
		return httperror.NewHTTPError(http.StatusBadRequest, "min_amount must not exceed max_amount")
	}
	if err := validateLocation(req.Location); err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*property.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	created, err := repo.Create(ctx, tenantID, &req)
	if err != nil {
		return err
	}

	notifyWrite(c, tenantID, func(e *events.Emitter) {
		e.EmitPropertyCreated(ctx, created)
	})

	return c.JSON(http.StatusCreated, created)
}

// GetProperty gets a property by ID
func GetProperty(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID, err := requireTenant(c)
	if err != nil {
		return err
	}

	includeDeleted, _ := strconv.ParseBool(c.QueryParam("include_deleted"))

	ctx, repo, err := ectoinject.GetContext[*property.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	p, err := repo.Get(ctx, tenantID, c.Param("id"), includeDeleted)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, p)
}

// GetPropertyByCode gets a property by its tenant-unique code
func GetPropertyByCode(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID, err := requireTenant(c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*property.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	p, err := repo.GetByCode(ctx, tenantID, c.Param("code"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, p)
}

// UpdateProperty applies a partial update to a property
func UpdateProperty(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID, err := requireTenant(c)
	if err != nil {
		return err
	}

	var req models.UpdatePropertyRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.PropertyType != nil && !req.PropertyType.Valid() {
		return httperror.NewHTTPError(http.StatusBadRequest, "unknown property type")
	}
	if req.Furnishing != nil && !req.Furnishing.Valid() {
		return httperror.NewHTTPError(http.StatusBadRequest, "unknown furnishing")
	}
	if req.MinAmount != nil && req.MaxAmount != nil && *req.MinAmount > *req.MaxAmount {
		return httperror.NewHTTPError(http.StatusBadRequest, "min_amount must not exceed max_amount")
	}
	if err := validateLocation(req.Location); err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*property.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	updated, err := repo.Update(ctx, tenantID, c.Param("id"), &req)
	if err != nil {
		return err
	}

	notifyWrite(c, tenantID, func(e *events.Emitter) {
		e.EmitPropertyUpdated(ctx, updated)
	})

	return c.JSON(http.StatusOK, updated)
}

// DeleteProperty soft-deletes a property
func DeleteProperty(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID, err := requireTenant(c)
	if err != nil {
		return err
	}
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*property.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.SoftDelete(ctx, tenantID, id); err != nil {
		return err
	}

	notifyWrite(c, tenantID, func(e *events.Emitter) {
		e.EmitPropertyDeleted(ctx, tenantID, id)
	})

	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

// PermanentlyDeleteProperty removes a property row for good
func PermanentlyDeleteProperty(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID, err := requireTenant(c)
	if err != nil {
		return err
	}
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*property.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.HardDelete(ctx, tenantID, id); err != nil {
		return err
	}

	notifyWrite(c, tenantID, func(e *events.Emitter) {
		e.EmitPropertyDeleted(ctx, tenantID, id)
	})

	return c.NoContent(http.StatusNoContent)
}

// RestoreProperty reverses a soft delete
func RestoreProperty(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID, err := requireTenant(c)
	if err != nil {
		return err
	}
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*property.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.Restore(ctx, tenantID, id); err != nil {
		return err
	}

	notifyWrite(c, tenantID, func(e *events.Emitter) {
		e.EmitPropertyRestored(ctx, tenantID, id)
	})

	return c.JSON(http.StatusOK, map[string]string{"status": "restored"})
}

// ArchiveProperty archives a property
func ArchiveProperty(c echo.Context) error {
	return setArchived(c, true)
}

// UnarchiveProperty unarchives a property
func UnarchiveProperty(c echo.Context) error {
	return setArchived(c, false)
}

func setArchived(c echo.Context, archived bool) error {
	ctx := c.Request().Context()
	tenantID, err := requireTenant(c)
	if err != nil {
		return err
	}
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*property.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.SetArchived(ctx, tenantID, id, archived); err != nil {
		return err
	}

	status := "unarchived"
	if archived {
		status = "archived"
		notifyWrite(c, tenantID, func(e *events.Emitter) {
			e.EmitPropertyArchived(ctx, tenantID, id)
		})
	} else {
		notifyWrite(c, tenantID, func(e *events.Emitter) {
			e.EmitPropertyRestored(ctx, tenantID, id)
		})
	}

	return c.JSON(http.StatusOK, map[string]string{"status": status})
}

// ListOwnerProperties lists an owner's properties, newest first
func ListOwnerProperties(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID, err := requireTenant(c)
	if err != nil {
		return err
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	includeArchived, _ := strconv.ParseBool(c.QueryParam("include_archived"))
	includeDeleted, _ := strconv.ParseBool(c.QueryParam("include_deleted"))

	ctx, repo, err := ectoinject.GetContext[*property.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	properties, total, err := repo.ListByOwner(ctx, tenantID, c.Param("ownerId"), page, limit, property.OwnerListOptions{
		IncludeArchived: includeArchived,
		IncludeDeleted:  includeDeleted,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"total": total,
		"data":  properties,
	})
}

// AddPropertyImages appends images to a property's gallery
func AddPropertyImages(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID, err := requireTenant(c)
	if err != nil {
		return err
	}

	var req struct {
		Images []string `json:"images" validate:"required,min=1"`
	}
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*property.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	updated, err := repo.AddImages(ctx, tenantID, c.Param("id"), req.Images)
	if err != nil {
		return err
	}

	notifyWrite(c, tenantID, func(e *events.Emitter) {
		e.EmitPropertyUpdated(ctx, updated)
	})

	return c.JSON(http.StatusOK, updated)
}

// RemovePropertyImage removes one image from a property's gallery
func RemovePropertyImage(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID, err := requireTenant(c)
	if err != nil {
		return err
	}

	imageURL := c.QueryParam("image_url")
	if imageURL == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "image_url query parameter is required")
	}

	ctx, repo, err := ectoinject.GetContext[*property.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	updated, err := repo.RemoveImage(ctx, tenantID, c.Param("id"), imageURL)
	if err != nil {
		return err
	}

	notifyWrite(c, tenantID, func(e *events.Emitter) {
		e.EmitPropertyUpdated(ctx, updated)
	})

	return c.JSON(http.StatusOK, updated)
}

// UpdatePropertyRating persists a recomputed aggregate rating
func UpdatePropertyRating(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID, err := requireTenant(c)
	if err != nil {
		return err
	}

	var req struct {
		Rating *float64 `json:"rating" validate:"required,gte=0,lte=5"`
	}
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*property.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	updated, err := repo.SetRating(ctx, tenantID, c.Param("id"), *req.Rating)
	if err != nil {
		return err
	}

	notifyWrite(c, tenantID, func(e *events.Emitter) {
		e.EmitPropertyUpdated(ctx, updated)
	})

	return c.JSON(http.StatusOK, updated)
}

// PropertyStats returns aggregate listing stats for the tenant
func PropertyStats(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID, err := requireTenant(c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*property.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	stats, err := repo.Stats(ctx, tenantID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, stats)
}

// CodeAvailability checks whether a unique property code is free
func CodeAvailability(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID, err := requireTenant(c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*property.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	availability, err := repo.CodeAvailable(ctx, tenantID, c.Param("code"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, availability)
}

// notifyWrite emits the lifecycle event and invalidates the tenant's cached
// reads. Both are best-effort; the write has already committed.
func notifyWrite(c echo.Context, tenantID string, emit func(*events.Emitter)) {
	ctx := c.Request().Context()

	if _, emitter, err := ectoinject.GetContext[*events.Emitter](ctx); err == nil && emitter != nil {
		emit(emitter)
	}
	if ctx, store, err := ectoinject.GetContext[*cache.Cache](ctx); err == nil && store != nil {
		store.InvalidateTenant(ctx, tenantID)
	}
}

func validateLocation(point *models.GeoPoint) error {
	if point == nil {
		return nil
	}
	if point.Lng < -180 || point.Lng > 180 || point.Lat < -90 || point.Lat > 90 {
		return httperror.NewHTTPError(http.StatusBadRequest, "coordinates out of range")
	}
	return nil
}
