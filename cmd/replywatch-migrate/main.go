package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"replywatch/internal/platform/config"
	"replywatch/migrations"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: replywatch-migrate <command>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  up       Migrate to the latest version")
		fmt.Fprintln(os.Stderr, "  up-one   Migrate one version up")
		fmt.Fprintln(os.Stderr, "  down     Roll back one version")
		fmt.Fprintln(os.Stderr, "  status   Show migration status")
		fmt.Fprintln(os.Stderr, "  version  Show current version")
		os.Exit(1)
	}

	dburl := config.New().Prefix("SERVICE_PGSQL_").MustString("DBURL")

	db, err := sql.Open("pgx", dburl)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("set dialect: %v", err)
	}

	cmd := os.Args[1]
	switch cmd {
	case "up":
		err = goose.Up(db, ".")
	case "up-one":
		err = goose.UpByOne(db, ".")
	case "down":
		err = goose.Down(db, ".")
	case "status":
		err = goose.Status(db, ".")
	case "version":
		err = goose.Version(db, ".")
	default:
		log.Fatalf("unknown command: %s", cmd)
	}

	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}
