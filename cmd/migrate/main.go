package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"gridnet.org/internal/migrate"
)

func main() {
	dsn := flag.String("dsn", os.Getenv("GRIDNET_PG_DSN"), "PostgreSQL DSN (defaults to GRIDNET_PG_DSN)")
	dir := flag.String("dir", "ops/migrations", "migrations root holding sql/ and seeds/")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate [flags] <up|down|seed|status>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(flag.Arg(0), *dsn, *dir); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(action, dsn, dir string) error {
	if dsn == "" {
		return fmt.Errorf("no DSN: pass -dsn or set GRIDNET_PG_DSN")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mgr := migrate.NewManager(db, filepath.Join(dir, "sql"), filepath.Join(dir, "seeds"))
	switch action {
	case "up":
		return mgr.Up(ctx)
	case "down":
		return mgr.Down(ctx)
	case "seed":
		return mgr.Seed(ctx)
	case "status":
		applied, err := mgr.Status(ctx)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Println("no migrations applied")
			return nil
		}
		for _, name := range applied {
			fmt.Println(name)
		}
		return nil
	}
	return fmt.Errorf("unknown action %q", action)
}
