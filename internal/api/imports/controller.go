package imports

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sratabix/gifselector/internal/importer"
)

type (
	// ImportService runs the whole URL import pipeline for a batch.
	ImportService interface {
		Import(ctx context.Context, urls []string, ownerID *uuid.UUID) []importer.ImportResult
	}

	AuthProvider interface {
		GetJwtVerifierMiddleware() echo.MiddlewareFunc
		GetUserIDFromContext(ec echo.Context) (*uuid.UUID, error)
	}

	importRequest struct {
		URLs []string `json:"urls"`
	}

	importResponse struct {
		Results []importer.ImportResult `json:"results"`
	}

	Controller struct {
		importService ImportService
		authProvider  AuthProvider
	}
)

func New(importService ImportService, authProvider AuthProvider) *Controller {
	return &Controller{importService, authProvider}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.POST("/", controller.create, controller.authProvider.GetJwtVerifierMiddleware())
}

// create accepts a JSON body containing an array of URLs and runs the
// import pipeline over each one. A malformed body is the ONLY way this
// endpoint fails; per-URL problems are reported inside the 200 response
// so one bad URL can never mask the outcome of its siblings.
func (controller *Controller) create(ec echo.Context) error {
	var request importRequest
	if err := ec.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request body must be a JSON object with a 'urls' string array")
	}
	if request.URLs == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request body must contain a 'urls' string array")
	}

	ownerID, _ := controller.authProvider.GetUserIDFromContext(ec)
	results := controller.importService.Import(ec.Request().Context(), request.URLs, ownerID)

	return ec.JSON(http.StatusOK, importResponse{Results: results})
}
