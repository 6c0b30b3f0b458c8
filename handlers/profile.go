package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	mw "github.com/dkoval/microblog/middleware"
	"github.com/dkoval/microblog/store"
)

type editProfileRequest struct {
	Username string `form:"username" json:"username"`
	Email    string `form:"email" json:"email"`
}

// Profile shows the signed-in user's row and their articles, newest first.
// A session whose user row is gone reads as logged out.
func (h *Handler) Profile(c echo.Context) error {
	ctx := c.Request().Context()
	userID := sessionUserID(c)

	user, err := h.store.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			mw.ClearSession(c)
			return h.flashRedirect(c, "Log in to continue", "/login")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	articles, err := h.store.ArticlesByUser(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"user":     user,
		"articles": articles,
		"flash":    mw.PopFlashes(c, h.Key),
	})
}

// EditProfileForm returns the signed-in user's row for the edit form.
func (h *Handler) EditProfileForm(c echo.Context) error {
	user, err := h.store.UserByID(c.Request().Context(), sessionUserID(c))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			mw.ClearSession(c)
			return h.flashRedirect(c, "Log in to continue", "/login")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"user":  user,
		"flash": mw.PopFlashes(c, h.Key),
	})
}

// EditProfile overwrites the signed-in user's username and email. The
// session cookie is re-issued so it carries the new username.
func (h *Handler) EditProfile(c echo.Context) error {
	var req editProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if req.Username == "" {
		return h.flashRedirect(c, "Username is required", "/edit_profile")
	}

	userID := sessionUserID(c)
	var email *string
	if req.Email != "" {
		email = &req.Email
	}

	if err := h.store.UpdateUser(c.Request().Context(), userID, req.Username, email); err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			return h.flashRedirect(c, "A user with that name already exists", "/edit_profile")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := mw.SetSession(c, h.Key, req.Username, userID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return h.flashRedirect(c, "Profile updated", "/profile")
}
