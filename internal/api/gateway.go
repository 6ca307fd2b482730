package api

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sratabix/gifselector/internal/api/activity"
	"github.com/sratabix/gifselector/internal/api/auth"
	"github.com/sratabix/gifselector/internal/api/categories"
	"github.com/sratabix/gifselector/internal/api/gifs"
	"github.com/sratabix/gifselector/internal/api/imports"
	"github.com/sratabix/gifselector/internal/event"
	"github.com/sratabix/gifselector/internal/importer"
	"github.com/sratabix/gifselector/internal/user"
	"github.com/sratabix/gifselector/pkg/logger"
)

var log = logger.Get("API")

const (
	basePath = "/api/gifselector/v1"

	loginAttemptLimit  = 5
	loginAttemptWindow = time.Minute * 15
)

type (
	RestConfig struct {
		HostAddr           string `yaml:"host_address" env:"API_HOST_ADDR" env-default:"0.0.0.0:8080"`
		AuthTokenSecret    string `yaml:"auth_token_secret" env:"API_AUTH_TOKEN_SECRET" env-required:"true"`
		RefreshTokenSecret string `yaml:"refresh_token_secret" env:"API_REFRESH_TOKEN_SECRET" env-required:"true"`
	}

	controller interface {
		SetRoutes(*echo.Group)
	}

	// dataStore is the union of every controller's store requirements,
	// satisfied by the store orchestrator.
	dataStore interface {
		auth.Store
		gifs.Store
		categories.Store
	}

	// importService is the union of the pipeline surfaces the import
	// and upload endpoints need.
	importService interface {
		Import(ctx context.Context, urls []string, ownerID *uuid.UUID) []importer.ImportResult
		ImportLocalFile(ctx context.Context, path string, ownerID *uuid.UUID) (string, error)
	}

	// RestGateway is a thin wrapper around the Echo HTTP router. Its sole
	// responsibility is to create the routes the service exposes, manage
	// ongoing websocket connections, and enforce auth middleware where
	// applicable.
	RestGateway struct {
		config               *RestConfig
		ec                   *echo.Echo
		activityHub          *activity.Hub
		authController       controller
		gifsController       controller
		categoriesController controller
		importsController    controller
	}
)

// NewRestGateway constructs the Echo router and populates it with all
// the routes defined by the various controllers.
func NewRestGateway(
	config *RestConfig,
	importService importService,
	store dataStore,
	eventBus event.EventHandler,
	maxUploadSize int64,
) *RestGateway {
	ec := echo.New()
	ec.OnAddRouteHandler = func(host string, route echo.Route, handler echo.HandlerFunc, middleware []echo.MiddlewareFunc) {
		log.Emit(logger.DEBUG, "Registered new route %s %s\n", route.Method, route.Path)
	}
	ec.HidePort = true
	ec.HideBanner = true

	validate := validator.New()
	authProvider := auth.NewJwtAuth(store, config.AuthTokenSecret, config.RefreshTokenSecret)
	throttler := user.NewLoginThrottler(loginAttemptLimit, loginAttemptWindow)

	gateway := &RestGateway{
		config:               config,
		ec:                   ec,
		activityHub:          activity.New(eventBus),
		authController:       auth.New(authProvider, store, throttler),
		gifsController:       gifs.New(validate, store, importService, authProvider, maxUploadSize),
		categoriesController: categories.New(validate, store, authProvider),
		importsController:    imports.New(importService, authProvider),
	}

	ec.Use(middleware.Logger())
	ec.Use(middleware.Recover())
	ec.Pre(middleware.AddTrailingSlash())

	ec.GET(basePath+"/activity/ws/", gateway.activityHub.Upgrade)

	gateway.authController.SetRoutes(ec.Group(basePath + "/auth"))
	gateway.gifsController.SetRoutes(ec.Group(basePath + "/gifs"))
	gateway.categoriesController.SetRoutes(ec.Group(basePath + "/categories"))
	gateway.importsController.SetRoutes(ec.Group(basePath + "/imports"))

	return gateway
}

// Run starts the HTTP router and the websocket activity hub, blocking
// until the context is cancelled or the router fails.
func (gateway *RestGateway) Run(parentCtx context.Context) error {
	ctx, ctxCancel := context.WithCancelCause(parentCtx)
	wg := &sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gateway.ec.Start(gateway.config.HostAddr); err != nil {
			ctxCancel(err)
		}
	}()

	go func(ec *echo.Echo) {
		<-ctx.Done()
		ec.Close()
	}(gateway.ec)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gateway.activityHub.Run(ctx); err != nil {
			ctxCancel(err)
		}
	}()

	wg.Wait()

	// Parent context cancellation is a normal shutdown, not an error.
	if cause := context.Cause(ctx); cause != ctx.Err() {
		return cause
	}

	return nil
}
