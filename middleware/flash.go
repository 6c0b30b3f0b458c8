package middleware

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const flashCookieName = "flash"

type flashClaims struct {
	Messages []string `json:"messages"`
	jwt.RegisteredClaims
}

// AddFlash queues a one-shot status message for the next page the client
// loads. Messages accumulate if more than one is added before a read.
func AddFlash(c echo.Context, key []byte, message string) {
	messages := append(peekFlashes(c, key), message)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &flashClaims{Messages: messages})
	signed, err := token.SignedString(key)
	if err != nil {
		return
	}

	c.SetCookie(&http.Cookie{
		Name:     flashCookieName,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// PopFlashes returns the pending flash messages and clears the cookie so
// they show at most once. Tampered or absent cookies read as no messages.
func PopFlashes(c echo.Context, key []byte) []string {
	messages := peekFlashes(c, key)

	c.SetCookie(&http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return messages
}

func peekFlashes(c echo.Context, key []byte) []string {
	cookie, err := c.Cookie(flashCookieName)
	if err != nil {
		return nil
	}

	claims := &flashClaims{}
	tkn, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil || !tkn.Valid {
		return nil
	}
	return claims.Messages
}
