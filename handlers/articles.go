package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	mw "github.com/dkoval/microblog/middleware"
	"github.com/dkoval/microblog/store"
)

type articleRequest struct {
	Title   string `form:"title" json:"title"`
	Content string `form:"content" json:"content"`
}

// Index lists every article with its author's name, newest first.
func (h *Handler) Index(c echo.Context) error {
	articles, err := h.store.AllArticlesWithAuthor(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	username, _ := c.Get("username").(string)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"username": username,
		"articles": articles,
		"flash":    mw.PopFlashes(c, h.Key),
	})
}

// AddArticleForm returns the pending flash messages for the add form.
func (h *Handler) AddArticleForm(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"flash": mw.PopFlashes(c, h.Key),
	})
}

// AddArticle inserts a new article owned by the session user.
func (h *Handler) AddArticle(c echo.Context) error {
	var req articleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.Title = strings.TrimSpace(req.Title)

	if req.Title == "" || req.Content == "" {
		return h.flashRedirect(c, "Title and content are required", "/add_article")
	}

	if _, err := h.store.InsertArticle(c.Request().Context(), req.Title, req.Content, sessionUserID(c)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return h.flashRedirect(c, "Article added", "/")
}

// EditArticleView returns a single article for the edit form. Any
// authenticated user may view; mutation is owner-only.
func (h *Handler) EditArticleView(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid article id")
	}

	article, err := h.store.ArticleByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return h.flashRedirect(c, "Article not found", "/")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"article": article,
		"flash":   mw.PopFlashes(c, h.Key),
	})
}

// EditArticle updates the title and content of an article owned by the
// session user.
func (h *Handler) EditArticle(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid article id")
	}

	var req articleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.Title = strings.TrimSpace(req.Title)

	if req.Title == "" || req.Content == "" {
		return h.flashRedirect(c, "Title and content are required", "/edit_article/"+c.Param("id"))
	}

	ctx := c.Request().Context()
	article, err := h.store.ArticleByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return h.flashRedirect(c, "Article not found", "/")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if article.UserID != sessionUserID(c) {
		return echo.NewHTTPError(http.StatusForbidden, "you do not own this article")
	}

	if err := h.store.UpdateArticle(ctx, id, req.Title, req.Content); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return h.flashRedirect(c, "Article updated", "/profile")
}

// DeleteArticle removes an article owned by the session user. A missing id
// is treated as already deleted and succeeds.
func (h *Handler) DeleteArticle(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid article id")
	}

	ctx := c.Request().Context()
	article, err := h.store.ArticleByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return h.flashRedirect(c, "Article deleted", "/profile")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if article.UserID != sessionUserID(c) {
		return echo.NewHTTPError(http.StatusForbidden, "you do not own this article")
	}

	if err := h.store.DeleteArticle(ctx, id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return h.flashRedirect(c, "Article deleted", "/profile")
}
