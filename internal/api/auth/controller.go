package auth

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sratabix/gifselector/internal/user"
)

type (
	Store interface {
		RecordUserLogin(userID uuid.UUID) error
		RecordUserRefresh(userID uuid.UUID) error
		GetUserWithUsernameAndPassword(username []byte, rawPassword []byte) (*user.User, error)
		GetUserWithID(id uuid.UUID) (*user.User, error)
	}

	AuthProvider interface {
		GetJwtVerifierMiddleware() echo.MiddlewareFunc
		Refresh(ec echo.Context) error
		GenerateTokensAndSetCookies(ec echo.Context, userID uuid.UUID) error
		RevokeTokensInContext(ec echo.Context)
		GetUserIDFromContext(ec echo.Context) (*uuid.UUID, error)
	}

	LoginRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	Controller struct {
		store        Store
		authProvider AuthProvider
		throttler    *user.LoginThrottler
	}
)

func New(authProvider AuthProvider, store Store, throttler *user.LoginThrottler) *Controller {
	return &Controller{store, authProvider, throttler}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.POST("/login/", controller.login)
	eg.POST("/refresh/", controller.refresh)
	eg.POST("/logout/", controller.logout, controller.authProvider.GetJwtVerifierMiddleware())
	eg.GET("/current-user/", controller.currentUser, controller.authProvider.GetJwtVerifierMiddleware())
}

// login accepts a POST request containing the alleged username and
// password in the body and:
//   - Asserts the remote address has not exceeded its failed attempts
//   - Asserts that the user with the username provided exists
//   - The provided password is valid
//   - Generates an auth token, and a refresh token, and stores
//     these in the requests cookies
func (controller *Controller) login(ec echo.Context) error {
	remoteAddr := ec.RealIP()
	if !controller.throttler.Allowed(remoteAddr) {
		log.Warnf("Rejecting login attempt from throttled address %s\n", remoteAddr)
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many failed login attempts")
	}

	var request LoginRequest
	if err := ec.Bind(&request); err != nil {
		log.Warnf("Failed to authenticate due to error: %v\n", err)
		return errUnauthorized
	}

	authedUser, err := controller.store.GetUserWithUsernameAndPassword([]byte(request.Username), []byte(request.Password))
	if err != nil {
		log.Warnf("Failed to authenticate due to error: %v\n", err)
		controller.throttler.RecordFailure(remoteAddr)
		return errUnauthorized
	}

	if err := controller.authProvider.GenerateTokensAndSetCookies(ec, authedUser.ID); err != nil {
		log.Warnf("Failed to authenticate due to error: %v\n", err)
		return errUnauthorized
	}

	controller.throttler.RecordSuccess(remoteAddr)
	return ec.JSON(http.StatusOK, authedUser)
}

// refresh allows a client to obtain a new auth and refresh token by
// providing a valid refresh token. The new tokens are stored
// in the requests cookies, same as login.
func (controller *Controller) refresh(ec echo.Context) error {
	if err := controller.authProvider.Refresh(ec); err != nil {
		log.Errorf("Failed to refresh: %s\n", err)
		return errUnauthorized
	}

	return ec.NoContent(http.StatusOK)
}

// logout revokes the tokens in the request cookies so they can no
// longer be used, and clears the cookies.
func (controller *Controller) logout(ec echo.Context) error {
	controller.authProvider.RevokeTokensInContext(ec)
	return ec.NoContent(http.StatusOK)
}

func (controller *Controller) currentUser(ec echo.Context) error {
	userID, err := controller.authProvider.GetUserIDFromContext(ec)
	if err != nil {
		log.Errorf("Failed to get current user due to error: %v\n", err)
		return errUnauthorized
	}

	u, err := controller.store.GetUserWithID(*userID)
	if err != nil {
		log.Errorf("Failed to get current user due to error: %v\n", err)
		return errUnauthorized
	}

	return ec.JSON(http.StatusOK, u)
}
