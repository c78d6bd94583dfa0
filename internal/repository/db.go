package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect names a supported SQL database
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

//go:embed migrations
var migrationsFS embed.FS

// Open opens the database and brings its schema up to date
func Open(ctx context.Context, dialect Dialect, dsn string) (*sql.DB, error) {
	var db *sql.DB
	var err error
	switch dialect {
	case DialectSQLite:
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("while opening sqlite database: %w", err)
		}
		// one connection: writes are serialized and ':memory:' stays a single database
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("while running '%s': %w", pragma, err)
			}
		}
	case DialectPostgres:
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("while opening postgres database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("while connecting to postgres: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported database dialect: %s", dialect)
	}

	if err := Migrate(db, dialect); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies the embedded migrations of the dialect
func Migrate(db *sql.DB, dialect Dialect) error {
	source, err := iofs.New(migrationsFS, "migrations/"+string(dialect))
	if err != nil {
		return fmt.Errorf("while loading migrations: %w", err)
	}
	var driver database.Driver
	switch dialect {
	case DialectSQLite:
		driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	case DialectPostgres:
		driver, err = migratepgx.WithInstance(db, &migratepgx.Config{})
	default:
		return fmt.Errorf("unsupported database dialect: %s", dialect)
	}
	if err != nil {
		return fmt.Errorf("while preparing migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, string(dialect), driver)
	if err != nil {
		return fmt.Errorf("while preparing migrations: %w", err)
	}
	// m.Close() would also close db, so it is left to the caller
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("while applying migrations: %w", err)
	}
	log.Printf("Migrate: %s schema updated", dialect)
	return nil
}

// rebind rewrites '?' placeholders into the dialect's style
func rebind(dialect Dialect, query string) string {
	if dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
