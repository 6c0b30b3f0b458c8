package models

import "github.com/uptrace/bun"

// Article is a short text post owned by a user.
type Article struct {
	bun.BaseModel `bun:"table:articles,alias:a"`

	ID      int64  `bun:"id,pk,autoincrement" json:"id"`
	Title   string `bun:"title,notnull" json:"title"`
	Content string `bun:"content,notnull" json:"content"`
	UserID  int64  `bun:"user_id" json:"userID"`
}
