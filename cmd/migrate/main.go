package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/phonemap/internal/adapters/postgres"
	"github.com/samirrijal/phonemap/internal/pkg/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const trackingTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version    TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down|status>")
	}

	cfg, err := config.Load("phonemap-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Storage.Database.DSN(), cfg.Storage.Database.MaxConns)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	if _, err := db.Pool.Exec(ctx, trackingTable); err != nil {
		log.Fatalf("create schema_migrations: %v", err)
	}

	versions, err := listVersions(migrationsFS)
	if err != nil {
		log.Fatalf("list migrations: %v", err)
	}
	applied, err := appliedVersions(ctx, db)
	if err != nil {
		log.Fatalf("read schema_migrations: %v", err)
	}

	switch os.Args[1] {
	case "up":
		for _, v := range pending(versions, applied) {
			if err := apply(ctx, db, v, "up"); err != nil {
				log.Fatalf("up %s: %v", v, err)
			}
			fmt.Printf("OK  %s\n", v)
		}
		log.Println("all migrations applied")
	case "down":
		v, ok := latest(versions, applied)
		if !ok {
			log.Println("nothing to roll back")
			return
		}
		if err := apply(ctx, db, v, "down"); err != nil {
			log.Fatalf("down %s: %v", v, err)
		}
		fmt.Printf("OK  %s rolled back\n", v)
	case "status":
		for _, v := range versions {
			state := "pending"
			if applied[v] {
				state = "applied"
			}
			fmt.Printf("%-8s %s\n", state, v)
		}
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

// listVersions returns the migration versions found in fsys, sorted. A
// version is the file name without its .up.sql or .down.sql suffix.
func listVersions(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for _, e := range entries {
		name := e.Name()
		if v, ok := strings.CutSuffix(name, ".up.sql"); ok {
			seen[v] = true
		}
	}
	versions := make([]string, 0, len(seen))
	for v := range seen {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions, nil
}

// pending returns versions not yet applied, oldest first.
func pending(versions []string, applied map[string]bool) []string {
	var out []string
	for _, v := range versions {
		if !applied[v] {
			out = append(out, v)
		}
	}
	return out
}

// latest returns the newest applied version.
func latest(versions []string, applied map[string]bool) (string, bool) {
	for i := len(versions) - 1; i >= 0; i-- {
		if applied[versions[i]] {
			return versions[i], true
		}
	}
	return "", false
}

func appliedVersions(ctx context.Context, db *postgres.DB) (map[string]bool, error) {
	rows, err := db.Pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	applied := make(map[string]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}

// apply runs one migration file and records the result in a single transaction.
func apply(ctx context.Context, db *postgres.DB, version, direction string) error {
	data, err := migrationsFS.ReadFile(fmt.Sprintf("migrations/%s.%s.sql", version, direction))
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, string(data)); err != nil {
			return err
		}
		if direction == "up" {
			_, err = tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version)
		} else {
			_, err = tx.Exec(ctx, `DELETE FROM schema_migrations WHERE version = $1`, version)
		}
		return err
	})
}
