// cmd/migrate/main.go
// Copies a local SQLite snapshot of the racing database (the ETL pipeline's
// working store) into the hosted PostgreSQL database. Ids differ between the
// two, so rows are matched on natural keys: track name, then meeting date,
// then race number. Re-running is safe; existing rows are left untouched.
//
// Usage:
//
//	SQLITE_SNAPSHOT=data/hipica.db \
//	DATABASE_URL="postgres://..." \
//	go run ./cmd/migrate [-create]
package main

import (
	"context"
	"flag"
	"log"

	"github.com/pistainteligente/pista/config"
	bundb "github.com/pistainteligente/pista/db"
)

func main() {
	create := flag.Bool("create", false, "create missing tables in the destination first")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	// --- SQLite ---
	src, err := bundb.OpenSQLite(cfg.SnapshotPath, false)
	if err != nil {
		log.Fatalf("open snapshot: %v", err)
	}
	defer src.Close()
	if err := src.PingContext(ctx); err != nil {
		log.Fatalf("ping snapshot: %v", err)
	}
	log.Printf("opened snapshot %s", cfg.SnapshotPath)

	// --- PostgreSQL ---
	dst := bundb.OpenPostgres(cfg.PostgresDSN(), cfg.Debug)
	defer dst.Close()
	if err := dst.PingContext(ctx); err != nil {
		log.Fatalf("ping postgres: %v", err)
	}
	log.Println("connected to PostgreSQL")

	if *create {
		if err := bundb.CreateTables(ctx, dst); err != nil {
			log.Fatalf("create tables: %v", err)
		}
	}

	counts, err := newMigrator(src, dst).run(ctx)
	for _, c := range counts {
		log.Printf("%-15s  %d read, %d inserted, %d unmapped", c.table, c.read, c.inserted, c.unmapped)
	}
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("migration complete")
}
