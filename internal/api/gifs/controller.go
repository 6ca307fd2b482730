package gifs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/mitchellh/mapstructure"
	"github.com/sratabix/gifselector/internal/api/util"
	"github.com/sratabix/gifselector/internal/gallery"
	"github.com/sratabix/gifselector/pkg/logger"
)

var log = logger.Get("GifsController")

// Extensions accepted for direct uploads; everything else must go
// through the URL import pipeline.
var uploadableExtensions = map[string]bool{
	".gif":  true,
	".webp": true,
}

type (
	Store interface {
		ListGifs() ([]*gallery.Gif, error)
		GetGifWithSlug(slug string) (*gallery.Gif, error)
		GetGifWithID(id uuid.UUID) (*gallery.Gif, error)
		GifFilePath(gif *gallery.Gif) string
		UpdateGif(id uuid.UUID, title *string, categories *[]string) (*gallery.Gif, error)
		DeleteGif(id uuid.UUID) error
	}

	// ImportService is the slice of the import pipeline used to run
	// uploaded files through the same classify/convert/persist tail
	// that remote imports use.
	ImportService interface {
		ImportLocalFile(ctx context.Context, path string, ownerID *uuid.UUID) (string, error)
	}

	AuthProvider interface {
		GetJwtVerifierMiddleware() echo.MiddlewareFunc
		GetUserIDFromContext(ec echo.Context) (*uuid.UUID, error)
	}

	updateRequest struct {
		Title      *string   `mapstructure:"title"`
		Categories *[]string `mapstructure:"categories"`
	}

	Controller struct {
		store         Store
		importService ImportService
		authProvider  AuthProvider
		validate      *validator.Validate
		maxUploadSize int64
	}
)

func New(validate *validator.Validate, store Store, importService ImportService, authProvider AuthProvider, maxUploadSize int64) *Controller {
	return &Controller{store, importService, authProvider, validate, maxUploadSize}
}

// SetRoutes registers the gif routes. All mutating routes require an
// authenticated user; the file route stays public so share links work
// without a session.
func (controller *Controller) SetRoutes(eg *echo.Group) {
	verified := controller.authProvider.GetJwtVerifierMiddleware()

	eg.GET("/", controller.list)
	eg.POST("/upload/", controller.upload, verified)
	eg.GET("/:slug/", controller.get)
	eg.GET("/:slug/file/", controller.serveFile)
	eg.PATCH("/:id/", controller.update, verified)
	eg.DELETE("/:id/", controller.delete, verified)
}

// list returns all stored gifs; when a 'search' query parameter is
// present the results are filtered and ranked by similarity of their
// title (and containment within their categories) instead of being
// returned in recency order.
func (controller *Controller) list(ec echo.Context) error {
	gifs, err := controller.store.ListGifs()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("Error occurred while listing gifs: %v", err))
	}

	if term := ec.QueryParam("search"); term != "" {
		gifs = gallery.RankBySearchTerm(gifs, term)
	}

	return ec.JSON(http.StatusOK, util.ApplyConversion(gifs, newDto))
}

func (controller *Controller) get(ec echo.Context) error {
	gif, err := controller.store.GetGifWithSlug(ec.Param("slug"))
	if err != nil {
		return gifError(err)
	}

	return ec.JSON(http.StatusOK, newDto(gif))
}

// serveFile streams the stored artifact using the mime type recorded
// at import time; the on-disk filename is never exposed to the client.
func (controller *Controller) serveFile(ec echo.Context) error {
	gif, err := controller.store.GetGifWithSlug(ec.Param("slug"))
	if err != nil {
		return gifError(err)
	}

	file, err := os.Open(controller.store.GifFilePath(gif))
	if err != nil {
		log.Errorf("Failed to open stored file for gif %s: %v\n", gif.ID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "stored file is unavailable")
	}
	defer file.Close()

	ec.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	return ec.Stream(http.StatusOK, gif.MimeType, file)
}

// upload accepts a multipart form containing a single 'file' part. The
// uploaded file is staged to a temporary location and run through the
// same pipeline tail used for remote imports.
func (controller *Controller) upload(ec echo.Context) error {
	header, err := ec.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request must contain a 'file' form part")
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !uploadableExtensions[ext] {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("file type '%s' cannot be uploaded", ext))
	}
	if header.Size >= controller.maxUploadSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "uploaded file exceeds the maximum allowed size")
	}

	staged, err := controller.stageUpload(header.Filename, header)
	if err != nil {
		log.Errorf("Failed to stage upload %s: %v\n", header.Filename, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to stage uploaded file")
	}
	defer os.RemoveAll(filepath.Dir(staged))

	ownerID, _ := controller.authProvider.GetUserIDFromContext(ec)
	slug, err := controller.importService.ImportLocalFile(ec.Request().Context(), staged, ownerID)
	if err != nil {
		log.Errorf("Failed to import uploaded file %s: %v\n", header.Filename, err)
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	gif, err := controller.store.GetGifWithSlug(slug)
	if err != nil {
		return gifError(err)
	}

	return ec.JSON(http.StatusCreated, newDto(gif))
}

// update applies a partial update to the gif. The body is decoded in
// to a map first so that absent keys can be distinguished from zero
// values; unknown keys are rejected.
func (controller *Controller) update(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "gif ID is not a valid UUID")
	}

	var body map[string]any
	if err := ec.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request body must be a JSON object")
	}

	var request updateRequest
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{ErrorUnused: true, Result: &request})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to create map decoder: %s", err))
	}
	if err := decoder.Decode(body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Failed to update gif: body malformed: %s", err))
	}

	if request.Title != nil {
		if err := controller.validate.Var(*request.Title, "max=256"); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "title must be at most 256 characters")
		}
	}

	gif, err := controller.store.UpdateGif(id, request.Title, request.Categories)
	if err != nil {
		return gifError(err)
	}

	return ec.JSON(http.StatusOK, newDto(gif))
}

func (controller *Controller) delete(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "gif ID is not a valid UUID")
	}

	if err := controller.store.DeleteGif(id); err != nil {
		return gifError(err)
	}

	return ec.NoContent(http.StatusOK)
}

// stageUpload copies the multipart part to a throwaway directory,
// preserving the original filename so classification sees the uploaded
// extension.
func (controller *Controller) stageUpload(filename string, header *multipart.FileHeader) (string, error) {
	source, err := header.Open()
	if err != nil {
		return "", err
	}
	defer source.Close()

	stagingDir, err := os.MkdirTemp("", "gifselector-upload-")
	if err != nil {
		return "", err
	}

	staged := filepath.Join(stagingDir, filepath.Base(filename))
	target, err := os.Create(staged)
	if err != nil {
		os.RemoveAll(stagingDir)
		return "", err
	}
	defer target.Close()

	if _, err := io.Copy(target, source); err != nil {
		os.RemoveAll(stagingDir)
		return "", err
	}

	return staged, target.Close()
}

func gifError(err error) *echo.HTTPError {
	if errors.Is(err, gallery.ErrGifNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "gif does not exist")
	}

	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
