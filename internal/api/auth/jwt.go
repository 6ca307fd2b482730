package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sratabix/gifselector/pkg/logger"
	"github.com/sratabix/gifselector/pkg/sync"
)

var (
	log             = logger.Get("Auth")
	errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized)
)

const (
	authTokenCookieName    = "auth-token"
	refreshTokenCookieName = "refresh-token"

	authTokenLifespan    = time.Minute * 30
	refreshTokenLifespan = time.Hour * 24 * 30
)

type jwtAuthProvider struct {
	store              Store
	authTokenSecret    []byte
	refreshTokenSecret []byte

	// Tokens explicitly revoked (logout) before their expiry. Entries
	// are dropped again once the token would have expired anyway.
	blacklistedTokens *sync.TypedSyncMap[string, struct{}]
}

func NewJwtAuth(store Store, authTokenSecret string, refreshTokenSecret string) *jwtAuthProvider {
	return &jwtAuthProvider{
		store:              store,
		authTokenSecret:    []byte(authTokenSecret),
		refreshTokenSecret: []byte(refreshTokenSecret),
		blacklistedTokens:  new(sync.TypedSyncMap[string, struct{}]),
	}
}

// GenerateTokensAndSetCookies generates an auth token and a refresh
// token using the appropriate secrets and expiries, before storing both
// of the tokens in the requests cookies.
func (auth *jwtAuthProvider) GenerateTokensAndSetCookies(ec echo.Context, userID uuid.UUID) error {
	accessToken, exp, err := generateToken(userID, time.Now().Add(authTokenLifespan), auth.authTokenSecret)
	if err != nil {
		return err
	}
	setTokenCookie(ec, authTokenCookieName, accessToken, exp)

	refreshToken, exp, err := generateToken(userID, time.Now().Add(refreshTokenLifespan), auth.refreshTokenSecret)
	if err != nil {
		return err
	}
	setTokenCookie(ec, refreshTokenCookieName, refreshToken, exp)

	// Don't block the request waiting for these
	go func() {
		if err := auth.store.RecordUserLogin(userID); err != nil {
			log.Warnf("Failed to record user login for %v: %v\n", userID, err)
		}
		if err := auth.store.RecordUserRefresh(userID); err != nil {
			log.Warnf("Failed to record user refresh for %v: %v\n", userID, err)
		}
	}()

	return nil
}

// Refresh generates new auth and refresh tokens and stores them in the
// request cookies IF the request contains a valid refresh token.
func (auth *jwtAuthProvider) Refresh(ec echo.Context) error {
	token, err := auth.validateToken(ec, refreshTokenCookieName, auth.refreshTokenSecret)
	if err != nil {
		return fmt.Errorf("failed to refresh: %w", err)
	}

	claims := token.Claims.(*jwt.MapClaims)
	userID, err := getUserIDFromClaims(*claims)
	if err != nil {
		return fmt.Errorf("failed to refresh: %w", err)
	}

	return auth.GenerateTokensAndSetCookies(ec, *userID)
}

// RevokeTokensInContext blacklists the auth and refresh tokens present
// in the request cookies (if any) and clears the cookies themselves.
func (auth *jwtAuthProvider) RevokeTokensInContext(ec echo.Context) {
	for _, name := range []string{authTokenCookieName, refreshTokenCookieName} {
		if cookie, err := ec.Cookie(name); err == nil && cookie != nil {
			auth.revokeToken(cookie.Value)
		}

		setTokenCookie(ec, name, "", time.Unix(0, 0))
	}
}

// GetJwtVerifierMiddleware returns an echo middleware which rejects any
// request lacking a valid, unrevoked auth token cookie. On success the
// authenticated user ID is stored in the request context.
func (auth *jwtAuthProvider) GetJwtVerifierMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ec echo.Context) error {
			token, err := auth.validateToken(ec, authTokenCookieName, auth.authTokenSecret)
			if err != nil {
				log.Debugf("Rejecting request to %s: %v\n", ec.Request().RequestURI, err)
				return errUnauthorized
			}

			claims := token.Claims.(*jwt.MapClaims)
			userID, err := getUserIDFromClaims(*claims)
			if err != nil {
				log.Warnf("Rejecting request to %s: %v\n", ec.Request().RequestURI, err)
				return errUnauthorized
			}

			ec.Set("userID", *userID)
			return next(ec)
		}
	}
}

// GetUserIDFromContext extracts the authenticated user's ID which the
// verifier middleware stored in the request context.
func (auth *jwtAuthProvider) GetUserIDFromContext(ec echo.Context) (*uuid.UUID, error) {
	userID, ok := ec.Get("userID").(uuid.UUID)
	if !ok {
		return nil, errors.New("no authenticated user found in request context")
	}

	return &userID, nil
}

// validateToken extracts the named cookie and parses/verifies the JWT it
// holds, additionally checking the token has not been revoked.
func (auth *jwtAuthProvider) validateToken(ec echo.Context, tokenName string, secret []byte) (*jwt.Token, error) {
	cookieToken, err := ec.Cookie(tokenName)
	if err != nil {
		return nil, fmt.Errorf("failed to extract cookie %s: %w", tokenName, err)
	}

	tokenClaims := &jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(
		cookieToken.Value,
		tokenClaims,
		func(token *jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s JWT: %w", tokenName, err)
	}

	if tkn == nil || !tkn.Valid {
		return nil, fmt.Errorf("failed to verify %s JWT: token is expired or invalid", tokenName)
	}

	if _, revoked := auth.blacklistedTokens.Load(cookieToken.Value); revoked {
		return nil, fmt.Errorf("failed to verify %s JWT: token has been revoked", tokenName)
	}

	return tkn, nil
}

func (auth *jwtAuthProvider) revokeToken(token string) {
	auth.blacklistedTokens.Store(token, struct{}{})

	// The blacklist entry is only useful while the token could still
	// verify; drop it once the longest possible lifespan has passed.
	go func() {
		time.Sleep(refreshTokenLifespan)
		auth.blacklistedTokens.Delete(token)
	}()
}

func generateToken(userID uuid.UUID, expiry time.Time, secret []byte) (string, time.Time, error) {
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"exp":     jwt.NewNumericDate(expiry),
		"iat":     jwt.NewNumericDate(time.Now()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Now(), fmt.Errorf("failed to sign JWT: %w", err)
	}

	return signed, expiry, nil
}

func getUserIDFromClaims(claims jwt.MapClaims) (*uuid.UUID, error) {
	userID, ok := claims["user_id"]
	if !ok {
		return nil, errors.New("failed to extract user ID from JWT claims: missing")
	}

	raw, ok := userID.(string)
	if !ok {
		return nil, errors.New("failed to extract user ID from JWT claims: not a string")
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to extract user ID from JWT claims: %w", err)
	}

	return &id, nil
}

func setTokenCookie(ec echo.Context, name string, token string, expiry time.Time) {
	ec.SetCookie(&http.Cookie{
		Name:     name,
		Value:    token,
		Expires:  expiry,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}
