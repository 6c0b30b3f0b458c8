// cmd/adduser/main.go
// Creates a user in the database without going through the HTTP surface.
//
// Usage:
//
//	go run ./cmd/adduser -username alice -password testing
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"

	"github.com/dkoval/microblog/config"
	bundb "github.com/dkoval/microblog/db"
	"github.com/dkoval/microblog/store"
)

func main() {
	username := flag.String("username", "", "username (required)")
	password := flag.String("password", "", "plain-text password (required)")
	flag.Parse()

	if *username == "" || *password == "" {
		log.Fatal("both -username and -password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("bcrypt:", err)
	}

	cfg := config.Load()
	db := bundb.Setup(cfg)
	defer db.Close()

	st := store.New(db)
	ctx := context.Background()

	if err := st.CreateTables(ctx); err != nil {
		log.Fatal("create tables:", err)
	}

	if _, err := st.InsertUser(ctx, *username, string(hash)); err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			log.Fatalf("user %q already exists", *username)
		}
		log.Fatal("insert user:", err)
	}

	fmt.Printf("user %q created\n", *username)
}
