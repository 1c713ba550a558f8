package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"
	"transferhub/internal/core/domain"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// transferTables lists the schema in dependency order, children first
var transferTables = []string{"completed_part", "outbox", "download_task", "upload_session"}

// findMigrations walks up from the working directory to the db/migrations folder next to go.mod
func findMigrations() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(wd, "go.mod")); err == nil {
			return filepath.Join(wd, "db", "migrations"), nil
		}
		if wd == filepath.Dir(wd) {
			return "", errors.New("go.mod not found in any parent directory")
		}
		wd = filepath.Dir(wd)
	}
}

// NewTestDB starts a migrated transferhub database in a container. It returns the connection,
// a cleanup func terminating the container and a reset func emptying every transfer table.
func NewTestDB(t *testing.T) (*sql.DB, func(), func()) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "transferhub",
			"POSTGRES_PASSWORD": "transferhub",
			"POSTGRES_DB":       "transferhub_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("could not start postgres container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("could not resolve container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("could not resolve container port: %v", err)
	}
	dbURL := fmt.Sprintf("postgres://transferhub:transferhub@%s:%s/transferhub_test?sslmode=disable", host, port.Port())

	migrationsPath, err := findMigrations()
	if err != nil {
		t.Fatalf("could not find migrations: %v", err)
	}
	source := &url.URL{Scheme: "file", Path: filepath.ToSlash(migrationsPath)}

	m, err := migrate.New(source.String(), dbURL)
	if err != nil {
		t.Fatalf("failed to init migrate with URL %s: %v", source.String(), err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("failed to run up migrations: %v", err)
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}

	cleanup := func() {
		db.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Fatalf("failed to terminate postgres container: %v", err)
		}
	}
	reset := func() {
		ResetTables(t, db)
	}
	return db, cleanup, reset
}

// ResetTables empties the transfer tables, keeping the migration state
func ResetTables(t *testing.T, db *sql.DB) {
	t.Helper()
	query := "TRUNCATE TABLE " + transferTables[0]
	for _, table := range transferTables[1:] {
		query += ", " + table
	}
	if _, err := db.Exec(query + " CASCADE"); err != nil {
		t.Fatalf("failed to reset transfer tables: %v", err)
	}
}

// SeedSession stores a session together with its recorded parts
func SeedSession(t *testing.T, db *sql.DB, session domain.TransferSession) {
	t.Helper()
	ctx := context.Background()
	if err := NewSQLSessionRepository(db).Create(ctx, session); err != nil {
		t.Fatalf("failed to seed session %s: %v", session.ID, err)
	}
	if session.Multipart == nil {
		return
	}
	for _, part := range session.Multipart.Parts {
		if err := NewSQLPartRepository(db).Add(ctx, session.ID, part); err != nil {
			t.Fatalf("failed to seed part %d of session %s: %v", part.PartNumber, session.ID, err)
		}
	}
}

// SeedDownloadTask stores a download task
func SeedDownloadTask(t *testing.T, db *sql.DB, task domain.DownloadTask) {
	t.Helper()
	if err := NewSQLDownloadTaskRepository(db).Create(context.Background(), task); err != nil {
		t.Fatalf("failed to seed download task %s: %v", task.ID, err)
	}
}

// SeedOutboxEntry stores an outbox entry
func SeedOutboxEntry(t *testing.T, db *sql.DB, entry domain.OutboxEntry) {
	t.Helper()
	if err := NewSQLOutboxRepository(db).Create(context.Background(), entry); err != nil {
		t.Fatalf("failed to seed outbox entry %s: %v", entry.ID, err)
	}
}

// CountRows returns the number of rows of a transfer table
func CountRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	known := false
	for _, name := range transferTables {
		known = known || name == table
	}
	if !known {
		t.Fatalf("unknown table %q", table)
	}
	var count int
	if err := db.QueryRow("SELECT count(*) FROM " + table).Scan(&count); err != nil {
		t.Fatalf("failed to count %s: %v", table, err)
	}
	return count
}
