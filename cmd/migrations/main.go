package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"

	_ "github.com/lib/pq"
	"github.com/vncsmyrnk/poll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/poll/internal/config"
)

// Usage:
//
//	migrations 000001_create_polls.up
//	migrations -all
func main() {
	all := flag.Bool("all", false, "apply every up migration in order")
	flag.Parse()

	if !*all && flag.NArg() < 1 {
		log.Fatal("a migration name is required.")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := sql.Open("postgres", cfg.DB.ConnString())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	if *all {
		if err := postgres.ApplyMigrations(ctx, db); err != nil {
			log.Fatal(err)
		}
		fmt.Println("All migrations executed successfully.")
		return
	}

	fileContent, err := postgres.MigrationFile(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	if _, err := db.ExecContext(ctx, string(fileContent)); err != nil {
		log.Fatalf("Failed to execute SQL file: %v", err)
	}

	fmt.Println("Migration file executed successfully.")
}
