package categories

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sratabix/gifselector/internal/api/util"
	"github.com/sratabix/gifselector/internal/gallery"
)

type (
	Store interface {
		ListCategories() ([]*gallery.Category, error)
		CreateCategory(label string) (*gallery.Category, error)
		DeleteCategory(id uuid.UUID) error
	}

	createRequest struct {
		Label string `json:"label" validate:"required,max=64"`
	}

	categoryDto struct {
		ID    uuid.UUID `json:"id"`
		Label string    `json:"label"`
	}

	AuthProvider interface {
		GetJwtVerifierMiddleware() echo.MiddlewareFunc
	}

	Controller struct {
		store        Store
		validate     *validator.Validate
		authProvider AuthProvider
	}
)

func New(validate *validator.Validate, store Store, authProvider AuthProvider) *Controller {
	return &Controller{store, validate, authProvider}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	verified := controller.authProvider.GetJwtVerifierMiddleware()

	eg.GET("/", controller.list)
	eg.POST("/", controller.create, verified)
	eg.DELETE("/:id/", controller.delete, verified)
}

func (controller *Controller) list(ec echo.Context) error {
	categories, err := controller.store.ListCategories()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return ec.JSON(http.StatusOK, util.ApplyConversion(categories, newDto))
}

func (controller *Controller) create(ec echo.Context) error {
	var request createRequest
	if err := ec.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request body could not be parsed")
	}
	if err := controller.validate.Struct(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	category, err := controller.store.CreateCategory(request.Label)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return ec.JSON(http.StatusCreated, newDto(category))
}

func (controller *Controller) delete(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "category ID is not a valid UUID")
	}

	if err := controller.store.DeleteCategory(id); err != nil {
		if errors.Is(err, gallery.ErrCategoryNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "category does not exist")
		}

		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return ec.NoContent(http.StatusOK)
}

func newDto(model *gallery.Category) categoryDto {
	return categoryDto{ID: model.ID, Label: model.Label}
}
