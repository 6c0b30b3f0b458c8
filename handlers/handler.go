package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	mw "github.com/dkoval/microblog/middleware"
	"github.com/dkoval/microblog/store"
)

// Handler holds shared dependencies used by all route handlers.
type Handler struct {
	store *store.Store
	Key   []byte
}

// New creates a Handler with the given store and session signing key.
func New(st *store.Store, key []byte) *Handler {
	return &Handler{store: st, Key: key}
}

// flashRedirect queues a status message and sends the client to url.
func (h *Handler) flashRedirect(c echo.Context, message, url string) error {
	mw.AddFlash(c, h.Key, message)
	return c.Redirect(http.StatusSeeOther, url)
}

// sessionUserID returns the user id placed in the context by RequireSession.
func sessionUserID(c echo.Context) int64 {
	id, _ := c.Get("user_id").(int64)
	return id
}

func pathID(c echo.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
