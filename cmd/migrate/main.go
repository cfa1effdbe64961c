package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"

	"pos-backend/internal/config"
)

func main() {
	_ = godotenv.Load()

	mode := flag.String("mode", "up", "migration mode: up or down")
	dir := flag.String("dir", "./migrations", "directory with migration files")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
	)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("pinging database: %v", err)
	}

	if err := run(db, *mode, *dir); err != nil {
		log.Fatal(err)
	}
}

func run(db *sql.DB, mode, migrationsDir string) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("ensuring schema_migrations table: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.sql"))
	if err != nil {
		return fmt.Errorf("reading migrations: %w", err)
	}
	sort.Strings(files)

	switch mode {
	case "up":
		return migrateUp(db, files)
	case "down":
		return migrateDown(db, files)
	default:
		return fmt.Errorf("unknown mode: %s (use 'up' or 'down')", mode)
	}
}

func migrateUp(db *sql.DB, files []string) error {
	for _, file := range files {
		version := filepath.Base(file)

		var applied int
		err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&applied)
		if err != nil {
			return fmt.Errorf("checking migration status: %w", err)
		}
		if applied > 0 {
			fmt.Printf("skipping applied migration: %s\n", version)
			continue
		}

		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("reading %s: %w", file, err)
		}

		fmt.Printf("applying migration: %s\n", version)
		if _, err := db.Exec(migrationSection(string(content), "Up")); err != nil {
			return fmt.Errorf("migration failed (%s): %w", version, err)
		}

		if _, err := db.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("recording migration version: %w", err)
		}
	}
	fmt.Println("all migrations applied")
	return nil
}

func migrateDown(db *sql.DB, files []string) error {
	var lastVersion string
	err := db.QueryRow(`SELECT version FROM schema_migrations ORDER BY applied_at DESC, version DESC LIMIT 1`).Scan(&lastVersion)
	if err == sql.ErrNoRows {
		fmt.Println("no migrations to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("finding last applied migration: %w", err)
	}

	var filePath string
	for _, f := range files {
		if filepath.Base(f) == lastVersion {
			filePath = f
			break
		}
	}
	if filePath == "" {
		return fmt.Errorf("migration file not found for version: %s", lastVersion)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filePath, err)
	}

	fmt.Printf("rolling back migration: %s\n", lastVersion)
	if _, err := db.Exec(migrationSection(string(content), "Down")); err != nil {
		return fmt.Errorf("rollback failed (%s): %w", lastVersion, err)
	}

	if _, err := db.Exec(`DELETE FROM schema_migrations WHERE version = ?`, lastVersion); err != nil {
		return fmt.Errorf("removing migration record: %w", err)
	}

	fmt.Println("rollback successful")
	return nil
}

// migrationSection extracts the statements between "-- +migrate <section>"
// and the next "-- +migrate" marker.
func migrationSection(content, section string) string {
	var part strings.Builder
	inPart := false

	for _, line := range strings.Split(content, "\n") {
		if strings.Contains(line, "-- +migrate "+section) {
			inPart = true
			continue
		}
		if inPart && strings.HasPrefix(line, "-- +migrate") {
			break
		}
		if inPart {
			part.WriteString(line)
			part.WriteString("\n")
		}
	}
	return part.String()
}
