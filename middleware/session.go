// Package middleware implements the signed cookie session: a JWT carried
// by the client identifies the user across requests, and a second
// one-shot signed cookie carries flash messages over redirects.
package middleware

import (
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const sessionCookieName = "session"

// SessionClaims extends jwt.RegisteredClaims with the signed-in identity.
type SessionClaims struct {
	Username string `json:"username"`
	UserID   int64  `json:"user_id"`
	jwt.RegisteredClaims
}

// SetSession signs a session token for the given identity and attaches it
// as a cookie. Sessions do not expire; they last until logout.
func SetSession(c echo.Context, key []byte, username string, userID int64) error {
	claims := &SessionClaims{
		Username: username,
		UserID:   userID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearSession expires the session cookie.
func ClearSession(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ParseSession validates the session cookie and returns its claims.
func ParseSession(c echo.Context, key []byte) (*SessionClaims, error) {
	cookie, err := c.Cookie(sessionCookieName)
	if err != nil {
		return nil, err
	}

	claims := &SessionClaims{}
	tkn, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, fmt.Errorf("invalid session token")
	}
	return claims, nil
}

// RequireSession returns an Echo middleware that gates a route on a valid
// session cookie. Anonymous requests are sent to /login with a flash
// message; authenticated ones get username and user_id in the context.
func RequireSession(key []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := ParseSession(c, key)
			if err != nil {
				AddFlash(c, key, "Log in to continue")
				return c.Redirect(http.StatusSeeOther, "/login")
			}

			c.Set("username", claims.Username)
			c.Set("user_id", claims.UserID)
			return next(c)
		}
	}
}
