package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Dialect names the SQL flavour of an open database.
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite"
)

// OpenMySQL connects to MySQL and verifies the connection.
func OpenMySQL(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// clientFoundRows makes RowsAffected count matched rows, so a no-op
	// status update is not mistaken for a missing ticket.
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := ping(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens (or creates) a SQLite database file.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: wal: %w", err)
	}
	if err := ping(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func ping(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

var schema = map[Dialect][]string{
	MySQL: {
		`CREATE TABLE IF NOT EXISTS tickets (
			id          VARCHAR(36)  NOT NULL PRIMARY KEY,
			owner_id    VARCHAR(255) NOT NULL,
			title       MEDIUMTEXT   NOT NULL,
			description MEDIUMTEXT   NOT NULL,
			status      VARCHAR(16)  NOT NULL,
			created_at  BIGINT       NULL,
			updated_at  BIGINT       NULL,
			INDEX idx_tickets_owner (owner_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	},
	SQLite: {
		`CREATE TABLE IF NOT EXISTS tickets (
			id          TEXT PRIMARY KEY,
			owner_id    TEXT NOT NULL,
			title       TEXT NOT NULL,
			description TEXT NOT NULL,
			status      TEXT NOT NULL,
			created_at  INTEGER,
			updated_at  INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_owner ON tickets(owner_id)`,
	},
}

// Migrate creates the tickets table if it does not exist.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	stmts, ok := schema[d]
	if !ok {
		return fmt.Errorf("migrate: unknown dialect %q", d)
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
