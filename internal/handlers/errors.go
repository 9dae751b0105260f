package handlers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/vexport/vexport/internal/assets"
	"github.com/vexport/vexport/internal/contacts"
	"github.com/vexport/vexport/internal/remotestore"
	"github.com/vexport/vexport/internal/staging"
	"github.com/vexport/vexport/internal/vehicles"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Message string `json:"message"`
}

// httpError maps service errors onto distinguishable status codes: 400 for
// validation, 404 for missing records or assets, 409 for ambiguous asset
// names, 503 when the remote store is unreachable, 500 otherwise.
func httpError(err error) *echo.HTTPError {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, staging.ErrUnsupportedType),
		errors.Is(err, staging.ErrFileTooLarge),
		errors.Is(err, staging.ErrUnknownCategory),
		errors.As(err, &validationErrs):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, vehicles.ErrNotFound),
		errors.Is(err, contacts.ErrNotFound),
		errors.Is(err, assets.ErrAssetNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, assets.ErrAmbiguousAsset):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, remotestore.ErrUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
