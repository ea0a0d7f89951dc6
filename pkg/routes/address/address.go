// Package address exposes the address HTTP surface.
package address

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/internal/repositories/address"
	"github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/geo"
	"github.com/Ramsey-B/fern/pkg/models"
)

var validate = validator.New()

// Register registers address routes
func Register(g *echo.Group) {
	g.POST("", CreateAddress)
	g.GET("/:id", GetAddress)
	g.PUT("/:id", UpdateAddress)
	g.DELETE("/:id", DeleteAddress)
}

func requireTenant(c echo.Context) (string, error) {
	tenantID := context.GetTenantID(c.Request().Context())
	if tenantID == "" {
		return "", httperror.NewHTTPError(http.StatusUnauthorized, "tenant_id is required")
	}
	return tenantID, nil
}

func bindAddress(c echo.Context) (*models.Address, error) {
	var addr models.Address
	if err := c.Bind(&addr); err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(&addr); err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if (addr.Lng == nil) != (addr.Lat == nil) {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "lng and lat must be provided together")
	}
	if addr.Lng != nil {
		if err := geo.ValidateCoordinates(*addr.Lng, *addr.Lat); err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return &addr, nil
}

// CreateAddress creates a new address
func CreateAddress(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID, err := requireTenant(c)
	if err != nil {
		return err
	}

	addr, err := bindAddress(c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*address.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	created, err := repo.Create(ctx, tenantID, addr)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

// GetAddress gets an address by ID
func GetAddress(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID, err := requireTenant(c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*address.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	addr, err := repo.Get(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, addr)
}

// UpdateAddress replaces the mutable fields of an address
func UpdateAddress(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID, err := requireTenant(c)
	if err != nil {
		return err
	}

	addr, err := bindAddress(c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*address.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	updated, err := repo.Update(ctx, tenantID, c.Param("id"), addr)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, updated)
}

// DeleteAddress removes an address. Properties referencing it keep their
// denormalized snapshot.
func DeleteAddress(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID, err := requireTenant(c)
	if err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*address.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	if err := repo.Delete(ctx, tenantID, c.Param("id")); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
