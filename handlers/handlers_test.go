package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/dkoval/microblog/db"
	mw "github.com/dkoval/microblog/middleware"
	"github.com/dkoval/microblog/store"
)

var testKey = []byte("handlers-test-key")

// testApp drives the full route table against an in-memory database,
// carrying cookies between requests like a browser would.
type testApp struct {
	t       *testing.T
	e       *echo.Echo
	st      *store.Store
	cookies map[string]*http.Cookie
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	bdb := db.Open(dsn, false)
	t.Cleanup(func() { _ = bdb.Close() })

	st := store.New(bdb)
	require.NoError(t, st.CreateTables(context.Background()))

	h := New(st, testKey)
	e := echo.New()

	e.GET("/register", h.RegisterForm)
	e.POST("/register", h.Register)
	e.GET("/login", h.LoginForm)
	e.POST("/login", h.Login)
	e.GET("/logout", h.Logout)

	auth := e.Group("", mw.RequireSession(testKey))
	auth.GET("/", h.Index)
	auth.GET("/profile", h.Profile)
	auth.GET("/edit_profile", h.EditProfileForm)
	auth.POST("/edit_profile", h.EditProfile)
	auth.GET("/add_article", h.AddArticleForm)
	auth.POST("/add_article", h.AddArticle)
	auth.GET("/edit_article/:id", h.EditArticleView)
	auth.POST("/edit_article/:id", h.EditArticle)
	auth.POST("/delete_article/:id", h.DeleteArticle)

	return &testApp{t: t, e: e, st: st, cookies: map[string]*http.Cookie{}}
}

func (a *testApp) request(method, path string, form url.Values) *httptest.ResponseRecorder {
	a.t.Helper()

	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, ck := range a.cookies {
		req.AddCookie(ck)
	}

	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(a.cookies, ck.Name)
			continue
		}
		a.cookies[ck.Name] = ck
	}
	return rec
}

func (a *testApp) register(username, password string) *httptest.ResponseRecorder {
	return a.request(http.MethodPost, "/register", url.Values{
		"username":         {username},
		"password":         {password},
		"confirm_password": {password},
	})
}

func (a *testApp) login(username, password string) *httptest.ResponseRecorder {
	return a.request(http.MethodPost, "/login", url.Values{
		"username": {username},
		"password": {password},
	})
}

func (a *testApp) signUp(username, password string) {
	a.t.Helper()

	rec := a.register(username, password)
	require.Equal(a.t, http.StatusSeeOther, rec.Code)
	rec = a.login(username, password)
	require.Equal(a.t, http.StatusSeeOther, rec.Code)
	require.Equal(a.t, "/profile", rec.Header().Get("Location"))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

type articlePayload struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Author  string `json:"author"`
}

type userPayload struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	Email    *string `json:"email"`
}

type pagePayload struct {
	Username string           `json:"username"`
	User     userPayload      `json:"user"`
	Articles []articlePayload `json:"articles"`
	Article  articlePayload   `json:"article"`
	Flash    []string         `json:"flash"`
}

func TestRegisterThenLogin(t *testing.T) {
	app := newTestApp(t)
	app.signUp("alice", "secret")

	rec := app.request(http.MethodGet, "/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	page := decode[pagePayload](t, rec)
	require.Equal(t, "alice", page.User.Username)
	require.NotZero(t, page.User.ID)
	require.Contains(t, page.Flash, "Logged in")
}

func TestRegisterPasswordMismatch(t *testing.T) {
	app := newTestApp(t)

	rec := app.request(http.MethodPost, "/register", url.Values{
		"username":         {"alice"},
		"password":         {"secret"},
		"confirm_password": {"different"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/register", rec.Header().Get("Location"))

	page := decode[pagePayload](t, app.request(http.MethodGet, "/register", nil))
	require.Contains(t, page.Flash, "Passwords do not match")

	_, err := app.st.UserByName(context.Background(), "alice")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDuplicateRegistrationRejected(t *testing.T) {
	app := newTestApp(t)

	rec := app.register("alice", "secret")
	require.Equal(t, "/login", rec.Header().Get("Location"))

	rec = app.register("alice", "other")
	require.Equal(t, "/register", rec.Header().Get("Location"))

	page := decode[pagePayload](t, app.request(http.MethodGet, "/register", nil))
	require.Contains(t, page.Flash, "A user with that name already exists")

	// The first registration's password still wins.
	rec = app.login("alice", "secret")
	require.Equal(t, "/profile", rec.Header().Get("Location"))
}

func TestLoginRejectionsDoNotLeakExistence(t *testing.T) {
	app := newTestApp(t)
	app.register("alice", "secret")
	// Drain the registration flash so only rejection messages remain.
	app.request(http.MethodGet, "/login", nil)

	rec := app.login("alice", "wrong")
	require.Equal(t, "/login", rec.Header().Get("Location"))
	wrongPassword := decode[pagePayload](t, app.request(http.MethodGet, "/login", nil)).Flash

	rec = app.login("nobody", "whatever")
	require.Equal(t, "/login", rec.Header().Get("Location"))
	unknownUser := decode[pagePayload](t, app.request(http.MethodGet, "/login", nil)).Flash

	require.Equal(t, wrongPassword, unknownUser)
	require.Contains(t, wrongPassword, "Incorrect username or password")
}

func TestAnonymousRedirectedToLogin(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/", "/profile", "/add_article", "/edit_profile"} {
		rec := app.request(http.MethodGet, path, nil)
		require.Equal(t, http.StatusSeeOther, rec.Code, path)
		require.Equal(t, "/login", rec.Header().Get("Location"), path)
	}
}

func TestAddArticleAppearsNewestFirst(t *testing.T) {
	app := newTestApp(t)
	app.signUp("alice", "secret")

	for _, title := range []string{"older", "newer"} {
		rec := app.request(http.MethodPost, "/add_article", url.Values{
			"title":   {title},
			"content": {"C"},
		})
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/", rec.Header().Get("Location"))
	}

	index := decode[pagePayload](t, app.request(http.MethodGet, "/", nil))
	require.Equal(t, "alice", index.Username)
	require.Len(t, index.Articles, 2)
	require.Equal(t, "newer", index.Articles[0].Title)
	require.Equal(t, "alice", index.Articles[0].Author)

	profile := decode[pagePayload](t, app.request(http.MethodGet, "/profile", nil))
	require.Len(t, profile.Articles, 2)
	require.Equal(t, "newer", profile.Articles[0].Title)
}

func TestEditProfileReflected(t *testing.T) {
	app := newTestApp(t)
	app.signUp("alice", "secret")

	rec := app.request(http.MethodPost, "/edit_profile", url.Values{
		"username": {"bob"},
		"email":    {"b@x.com"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/profile", rec.Header().Get("Location"))

	page := decode[pagePayload](t, app.request(http.MethodGet, "/profile", nil))
	require.Equal(t, "bob", page.User.Username)
	require.NotNil(t, page.User.Email)
	require.Equal(t, "b@x.com", *page.User.Email)
}

func TestEditArticleUpdatesContent(t *testing.T) {
	app := newTestApp(t)
	app.signUp("alice", "secret")

	app.request(http.MethodPost, "/add_article", url.Values{
		"title":   {"T"},
		"content": {"C"},
	})
	profile := decode[pagePayload](t, app.request(http.MethodGet, "/profile", nil))
	require.Len(t, profile.Articles, 1)
	id := profile.Articles[0].ID

	rec := app.request(http.MethodPost, fmt.Sprintf("/edit_article/%d", id), url.Values{
		"title":   {"T2"},
		"content": {"C2"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/profile", rec.Header().Get("Location"))

	view := decode[pagePayload](t, app.request(http.MethodGet, fmt.Sprintf("/edit_article/%d", id), nil))
	require.Equal(t, "T2", view.Article.Title)
	require.Equal(t, "C2", view.Article.Content)
}

func TestEditMissingArticleRedirectsHome(t *testing.T) {
	app := newTestApp(t)
	app.signUp("alice", "secret")

	rec := app.request(http.MethodGet, "/edit_article/999", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))

	index := decode[pagePayload](t, app.request(http.MethodGet, "/", nil))
	require.Contains(t, index.Flash, "Article not found")
}

func TestDeleteMissingArticleNoOp(t *testing.T) {
	app := newTestApp(t)
	app.signUp("alice", "secret")

	rec := app.request(http.MethodPost, "/delete_article/999", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/profile", rec.Header().Get("Location"))
}

func TestDeleteOwnArticle(t *testing.T) {
	app := newTestApp(t)
	app.signUp("alice", "secret")

	app.request(http.MethodPost, "/add_article", url.Values{
		"title":   {"T"},
		"content": {"C"},
	})
	profile := decode[pagePayload](t, app.request(http.MethodGet, "/profile", nil))
	id := profile.Articles[0].ID

	rec := app.request(http.MethodPost, fmt.Sprintf("/delete_article/%d", id), nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	profile = decode[pagePayload](t, app.request(http.MethodGet, "/profile", nil))
	require.Empty(t, profile.Articles)
}

func TestCrossUserMutationForbidden(t *testing.T) {
	app := newTestApp(t)

	app.signUp("alice", "secret")
	app.request(http.MethodPost, "/add_article", url.Values{
		"title":   {"alice's"},
		"content": {"C"},
	})
	profile := decode[pagePayload](t, app.request(http.MethodGet, "/profile", nil))
	id := profile.Articles[0].ID

	// Fresh cookie jar for the second user.
	app.cookies = map[string]*http.Cookie{}
	app.signUp("mallory", "secret")

	rec := app.request(http.MethodPost, fmt.Sprintf("/delete_article/%d", id), nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.request(http.MethodPost, fmt.Sprintf("/edit_article/%d", id), url.Values{
		"title":   {"hijacked"},
		"content": {"C"},
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	article, err := app.st.ArticleByID(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "alice's", article.Title)
}

func TestLogoutClearsSession(t *testing.T) {
	app := newTestApp(t)
	app.signUp("alice", "secret")

	rec := app.request(http.MethodGet, "/logout", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))

	rec = app.request(http.MethodGet, "/profile", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))
}
