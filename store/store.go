// Package store issues the SQL statements behind every user and article
// operation. Callers receive ErrNotFound for missing rows and
// ErrDuplicateUsername for username conflicts; anything else is a storage
// fault passed through unwrapped.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"github.com/dkoval/microblog/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicateUsername is returned when an insert or update collides
	// with the unique constraint on users.username.
	ErrDuplicateUsername = errors.New("store: username already taken")
)

// ArticleWithAuthor is an article row joined with its author's username.
type ArticleWithAuthor struct {
	ID      int64  `bun:"id" json:"id"`
	Title   string `bun:"title" json:"title"`
	Content string `bun:"content" json:"content"`
	UserID  int64  `bun:"user_id" json:"userID"`
	Author  string `bun:"author" json:"author"`
}

// Store wraps the bun connection with the application's query set.
type Store struct {
	db *bun.DB
}

// New creates a Store over the given database.
func New(db *bun.DB) *Store {
	return &Store{db: db}
}

// CreateTables creates the users and articles tables if absent. Safe to
// run at every startup.
func (s *Store) CreateTables(ctx context.Context) error {
	tables := []interface{}{
		(*models.User)(nil),
		(*models.Article)(nil),
	}
	for _, model := range tables {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("creating table for %T: %w", model, err)
		}
	}
	return nil
}

// UserByName returns the user with the exact username, or ErrNotFound.
func (s *Store) UserByName(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}
	err := s.db.NewSelect().Model(user).
		Where("username = ?", username).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// UserByID returns the user with the given id, or ErrNotFound. Sessions
// can outlive their user row, so callers must handle the miss.
func (s *Store) UserByID(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	err := s.db.NewSelect().Model(user).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// InsertUser stores a new user with an already-hashed password. The unique
// constraint on username makes concurrent registrations race-safe:
// exactly one wins, the rest get ErrDuplicateUsername.
func (s *Store) InsertUser(ctx context.Context, username, hashedPassword string) (*models.User, error) {
	user := &models.User{
		Username: username,
		Password: hashedPassword,
	}
	if _, err := s.db.NewInsert().Model(user).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}
	return user, nil
}

// UpdateUser overwrites the username and email of the given user row.
// No concurrency check: last write wins.
func (s *Store) UpdateUser(ctx context.Context, id int64, username string, email *string) error {
	_, err := s.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("username = ?", username).
		Set("email = ?", email).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateUsername
	}
	return err
}

// ArticlesByUser returns the user's articles, newest first.
func (s *Store) ArticlesByUser(ctx context.Context, userID int64) ([]models.Article, error) {
	articles := make([]models.Article, 0)
	err := s.db.NewSelect().Model(&articles).
		Where("user_id = ?", userID).
		OrderExpr("a.id DESC").
		Scan(ctx)
	return articles, err
}

// AllArticlesWithAuthor returns every article joined with its author's
// username, newest first. Articles whose owner row is gone drop out of
// the inner join.
func (s *Store) AllArticlesWithAuthor(ctx context.Context) ([]ArticleWithAuthor, error) {
	rows := make([]ArticleWithAuthor, 0)
	err := s.db.NewSelect().
		TableExpr("articles AS a").
		ColumnExpr("a.id, a.title, a.content, a.user_id").
		ColumnExpr("u.username AS author").
		Join("INNER JOIN users AS u ON u.id = a.user_id").
		OrderExpr("a.id DESC").
		Scan(ctx, &rows)
	return rows, err
}

// ArticleByID returns the article with the given id, or ErrNotFound.
func (s *Store) ArticleByID(ctx context.Context, id int64) (*models.Article, error) {
	article := &models.Article{}
	err := s.db.NewSelect().Model(article).
		Where("a.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return article, nil
}

// InsertArticle stores a new article owned by the given user.
func (s *Store) InsertArticle(ctx context.Context, title, content string, userID int64) (*models.Article, error) {
	article := &models.Article{
		Title:   title,
		Content: content,
		UserID:  userID,
	}
	if _, err := s.db.NewInsert().Model(article).Exec(ctx); err != nil {
		return nil, err
	}
	return article, nil
}

// UpdateArticle overwrites the title and content of an article.
func (s *Store) UpdateArticle(ctx context.Context, id int64, title, content string) error {
	_, err := s.db.NewUpdate().
		Model((*models.Article)(nil)).
		Set("title = ?", title).
		Set("content = ?", content).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// DeleteArticle removes an article by id. Deleting a missing id is not an
// error; zero rows affected reads as success.
func (s *Store) DeleteArticle(ctx context.Context, id int64) error {
	_, err := s.db.NewDelete().
		Model((*models.Article)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// isUniqueViolation reports whether err is a unique-constraint failure.
// Both sqlite drivers behind sqliteshim spell it "UNIQUE constraint failed".
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
