package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"

	"github.com/nuwe/site-forms/internal/config"
	"github.com/nuwe/site-forms/internal/pkg/distlock"
)

// migrationLockKey names the advisory lock held while migrations run.
const migrationLockKey = "site-forms:migrate"

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	dsn := cfg.Database.ConnString()
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	dir := "migrations"
	listOnly := false
	for _, a := range os.Args[1:] {
		if a == "--list" {
			listOnly = true
		} else {
			dir = a
		}
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()
	// One connection holds the advisory lock; the transactions need another.
	db.SetMaxOpenConns(2)

	if err := db.Ping(); err != nil {
		log.Fatalf("ping: %v", err)
	}
	log.Println("Connected to database")

	if listOnly {
		if err := listTables(db); err != nil {
			log.Fatal(err)
		}
		return
	}

	okCount, errCount, err := run(context.Background(), db, dir)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Done: %d OK, %d errors", okCount, errCount)
	if errCount > 0 {
		os.Exit(1)
	}
}

// run applies every migration in dir while holding an advisory lock, so two
// deploys cannot migrate at once.
func run(ctx context.Context, db *sql.DB, dir string) (okCount, errCount int, err error) {
	files, err := migrationFiles(dir)
	if err != nil {
		return 0, 0, err
	}

	lock := distlock.NewPGAdvisoryLock(db, migrationLockKey)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return 0, 0, err
	}
	if !acquired {
		return 0, 0, errors.New("another migration is already running")
	}
	defer func() {
		if relErr := lock.Release(ctx); relErr != nil {
			log.Printf("release migration lock: %v", relErr)
		}
	}()

	for _, f := range files {
		path := filepath.Join(dir, f)
		data, err := os.ReadFile(path)
		if err != nil {
			return okCount, errCount, fmt.Errorf("read %s: %w", path, err)
		}
		content := string(data)
		if strings.TrimSpace(content) == "" {
			continue
		}
		fmt.Printf("  %s ... ", f)

		if err := apply(ctx, db, content); err != nil {
			fmt.Printf("ERROR: %v\n", err)
			errCount++
			continue
		}
		fmt.Println("OK")
		okCount++
	}
	return okCount, errCount, nil
}

// migrationFiles returns the *.sql files in dir in lexical order.
func migrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// apply runs one migration file in its own transaction.
func apply(ctx context.Context, db *sql.DB, content string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if _, err := tx.ExecContext(ctx, content); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func listTables(db *sql.DB) error {
	rows, err := db.Query(`SELECT tablename FROM pg_tables
		WHERE schemaname = 'public' AND tablename IN ('contact_messages', 'newsletter_subscriptions')
		ORDER BY tablename`)
	if err != nil {
		return err
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return err
		}
		fmt.Println(" ", t)
		n++
	}
	fmt.Printf("Total: %d tables\n", n)
	return rows.Err()
}
