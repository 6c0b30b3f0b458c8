package db

import (
	"context"
	"database/sql"
	"log"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/dkoval/microblog/config"
)

// Setup opens the SQLite database file using the provided config.
func Setup(cfg *config.Config) *bun.DB {
	return Open(cfg.DBPath, cfg.Debug)
}

// Open opens a SQLite database using the given DSN. SQLite serializes
// writers at the file level; the application adds no locking of its own.
func Open(dsn string, debug bool) *bun.DB {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		log.Fatal("failed to open database:", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())

	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if err := db.PingContext(context.Background()); err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	return db
}
