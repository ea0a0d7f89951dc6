package property

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/internal/repositories/property"
	"github.com/Ramsey-B/fern/pkg/cache"
	"github.com/Ramsey-B/fern/pkg/geo"
	"github.com/Ramsey-B/fern/pkg/search"
	"github.com/Ramsey-B/fern/pkg/similarity"
)

// SimilarByID finds listings similar to the given property
func SimilarByID(c echo.Context) error {
	return findSimilar(c, "id:"+c.Param("id"), func(engine *similarity.Engine) similarFunc {
		return engine.FindSimilarByID
	}, c.Param("id"))
}

// SimilarByCode finds listings similar to the property with the given code
func SimilarByCode(c echo.Context) error {
	return findSimilar(c, "code:"+c.Param("code"), func(engine *similarity.Engine) similarFunc {
		return engine.FindSimilarByCode
	}, c.Param("code"))
}

type similarFunc func(ctx context.Context, tenantID, key string, opts similarity.Options) (*similarity.Result, error)

func findSimilar(c echo.Context, cacheKey string, resolve func(*similarity.Engine) similarFunc, lookupKey string) error {
	ctx := c.Request().Context()
	tenantID, err := requireTenant(c)
	if err != nil {
		return err
	}

	opts, err := parseSimilarOptions(c)
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var store *cache.Cache
	if cctx, cached, cerr := ectoinject.GetContext[*cache.Cache](ctx); cerr == nil && cached != nil {
		store = cached
		if result := store.GetSimilar(cctx, tenantID, cacheKey, opts); result != nil {
			return c.JSON(http.StatusOK, similarResponse(result))
		}
	}

	ctx, engine, err := ectoinject.GetContext[*similarity.Engine](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := resolve(engine)(ctx, tenantID, lookupKey, opts)
	if err != nil {
		return err
	}

	if result.Target == nil {
		return httperror.NewHTTPError(http.StatusNotFound, "property not found")
	}

	if store != nil {
		store.SetSimilar(ctx, tenantID, cacheKey, opts, result)
	}

	return c.JSON(http.StatusOK, similarResponse(result))
}

func similarResponse(result *similarity.Result) map[string]any {
	return map[string]any{
		"target":        result.Target,
		"items":         result.Items,
		"used_fallback": result.UsedFallback,
	}
}

// parseSimilarOptions binds the similarity knobs from query parameters. The
// radius accepts distance_value+distance_unit or a compact max_distance
// token; malformed input is rejected before any query runs.
func parseSimilarOptions(c echo.Context) (similarity.Options, error) {
	opts := similarity.Options{}

	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return opts, errors.New("limit must be an integer")
		}
		opts.Limit = limit
	}
	if raw := c.QueryParam("min_results"); raw != "" {
		minResults, err := strconv.Atoi(raw)
		if err != nil || minResults < 0 {
			return opts, errors.New("min_results must be a non-negative integer")
		}
		opts.MinResults = &minResults
	}

	switch {
	case c.QueryParam("max_distance") != "":
		meters, err := geo.ParseDistanceToken(c.QueryParam("max_distance"))
		if err != nil {
			return opts, err
		}
		opts.MaxDistanceMeters = meters
	case c.QueryParam("distance_value") != "":
		value, err := strconv.ParseFloat(c.QueryParam("distance_value"), 64)
		if err != nil {
			return opts, errors.New("distance_value must be numeric")
		}
		meters, err := geo.ToMeters(value, c.QueryParam("distance_unit"))
		if err != nil {
			return opts, err
		}
		opts.MaxDistanceMeters = meters
	case c.QueryParam("max_distance_meters") != "":
		meters, err := strconv.ParseFloat(c.QueryParam("max_distance_meters"), 64)
		if err != nil || meters <= 0 {
			return opts, errors.New("max_distance_meters must be a positive number")
		}
		opts.MaxDistanceMeters = meters
	}

	opts.IncludeArchived, _ = strconv.ParseBool(c.QueryParam("include_archived"))
	opts.IncludeDeleted, _ = strconv.ParseBool(c.QueryParam("include_deleted"))
	opts.ExcludeOwner, _ = strconv.ParseBool(c.QueryParam("exclude_owner"))

	return opts, nil
}

// SearchProperties runs the filtered, paginated search
func SearchProperties(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID, err := requireTenant(c)
	if err != nil {
		return err
	}

	var criteria search.Criteria
	if err := c.Bind(&criteria); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid search criteria")
	}

	query, err := criteria.Normalize()
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, repo, err := ectoinject.GetContext[*property.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := repo.Search(ctx, tenantID, query)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// AutoComplete returns typeahead suggestions across properties and addresses
func AutoComplete(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID, err := requireTenant(c)
	if err != nil {
		return err
	}

	text := c.QueryParam("q")
	if text == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "q query parameter is required")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	var store *cache.Cache
	if cctx, cached, cerr := ectoinject.GetContext[*cache.Cache](ctx); cerr == nil && cached != nil {
		store = cached
		if suggestions := store.GetAutocomplete(cctx, tenantID, text, limit); suggestions != nil {
			return c.JSON(http.StatusOK, suggestions)
		}
	}

	ctx, repo, err := ectoinject.GetContext[*property.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	suggestions, err := repo.AutoComplete(ctx, tenantID, text, limit)
	if err != nil {
		return err
	}

	if store != nil {
		store.SetAutocomplete(ctx, tenantID, text, limit, suggestions)
	}

	return c.JSON(http.StatusOK, suggestions)
}

// NearbyProperties lists active listings around a point, nearest first
func NearbyProperties(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID, err := requireTenant(c)
	if err != nil {
		return err
	}

	lng, lngErr := strconv.ParseFloat(c.QueryParam("lng"), 64)
	lat, latErr := strconv.ParseFloat(c.QueryParam("lat"), 64)
	if lngErr != nil || latErr != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "lng and lat query parameters are required")
	}
	if err := geo.ValidateCoordinates(lng, lat); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	radius := 5000.0
	if raw := c.QueryParam("max_distance"); raw != "" {
		meters, err := geo.ParseDistanceToken(raw)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		radius = meters
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, repo, err := ectoinject.GetContext[*property.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	nearby, err := repo.Nearby(ctx, tenantID, lng, lat, radius, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, nearby)
}
