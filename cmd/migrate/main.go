// Command migrate manages the database schema from the embedded
// migration files.
//
// Usage:
//
//	migrate -action up
//	migrate -action down
//	migrate -action version
//	migrate -action force -version 1
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/pairwise-app/faceverify/internal/config"
	"github.com/pairwise-app/faceverify/internal/database"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	action := flag.String("action", "up", "up, down, version or force")
	version := flag.Int("version", 0, "schema version for the force action")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// golang-migrate drives a database/sql connection, not a pgx pool.
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	migrator, err := database.NewMigrator(db, "faceverify")
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() { _ = migrator.Close() }()

	switch *action {
	case "up":
		if err := migrator.Up(); err != nil {
			return err
		}
		log.Println("schema is up to date")

	case "down":
		if err := migrator.Down(); err != nil {
			return err
		}
		log.Println("rolled back one migration")

	case "version":
		v, dirty, err := migrator.Version()
		if err != nil {
			return err
		}
		if dirty {
			log.Printf("version %d (dirty, needs force)", v)
		} else {
			log.Printf("version %d", v)
		}

	case "force":
		if *version <= 0 {
			return fmt.Errorf("force requires -version")
		}
		if err := migrator.Force(*version); err != nil {
			return err
		}
		log.Printf("forced schema version to %d", *version)

	default:
		return fmt.Errorf("unknown action %q (use up, down, version or force)", *action)
	}

	return nil
}
