package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-orders/internal/config"
	"ms-orders/internal/database/migrations"
)

// Standalone migration tool: `migrate -dir ./migrations up|down|version`.
func main() {
	dir := flag.String("dir", "./migrations", "migrations directory")
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	_ = godotenv.Load()
	cfg := config.Load()

	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer sqldb.Close()

	if err := sqldb.Ping(); err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, pgdialect.New())
	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{MigrationsDir: *dir})
	defer runner.Close()

	switch command {
	case "up":
		if err := runner.MigrateUp(); err != nil {
			log.Fatalf("migrate up failed: %v", err)
		}
		fmt.Println("migrations applied")
	case "down":
		if err := runner.MigrateDown(); err != nil {
			log.Fatalf("migrate down failed: %v", err)
		}
		fmt.Println("migrations rolled back")
	case "version":
		version, dirty, err := runner.Version()
		if err != nil {
			log.Fatalf("failed to read version: %v", err)
		}
		fmt.Printf("schema version %d (dirty=%v)\n", version, dirty)
	default:
		log.Fatalf("unknown command %q, want up, down or version", command)
	}
}
