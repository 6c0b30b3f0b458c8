package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	mw "github.com/dkoval/microblog/middleware"
	"github.com/dkoval/microblog/store"
)

type registerRequest struct {
	Username        string `form:"username" json:"username"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

type credentials struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// RegisterForm returns the pending flash messages for the register page.
func (h *Handler) RegisterForm(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"flash": mw.PopFlashes(c, h.Key),
	})
}

// Register creates a new user. Password confirmation mismatch and duplicate
// usernames are rejected with a flash message; success sends the client to
// the login page. The duplicate check is the database's unique constraint,
// so two concurrent registrations cannot both win.
func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.Username = strings.TrimSpace(req.Username)

	if req.Username == "" || req.Password == "" {
		return h.flashRedirect(c, "Username and password are required", "/register")
	}
	if req.Password != req.ConfirmPassword {
		return h.flashRedirect(c, "Passwords do not match", "/register")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if _, err := h.store.InsertUser(c.Request().Context(), req.Username, string(hash)); err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			return h.flashRedirect(c, "A user with that name already exists", "/register")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return h.flashRedirect(c, "Registration successful", "/login")
}

// LoginForm returns the pending flash messages for the login page.
func (h *Handler) LoginForm(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"flash": mw.PopFlashes(c, h.Key),
	})
}

// Login verifies credentials and establishes the session cookie. Unknown
// users and wrong passwords get the same message so the response does not
// reveal which usernames exist.
func (h *Handler) Login(c echo.Context) error {
	var creds credentials
	if err := c.Bind(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	creds.Username = strings.TrimSpace(creds.Username)

	user, err := h.store.UserByName(c.Request().Context(), creds.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return h.flashRedirect(c, "Incorrect username or password", "/login")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(creds.Password)); err != nil {
		return h.flashRedirect(c, "Incorrect username or password", "/login")
	}

	if err := mw.SetSession(c, h.Key, user.Username, user.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return h.flashRedirect(c, "Logged in", "/profile")
}

// Logout clears the session cookie.
func (h *Handler) Logout(c echo.Context) error {
	mw.ClearSession(c)
	return c.Redirect(http.StatusSeeOther, "/login")
}
