// Package postgres implements store.Store against a Postgres database using
// github.com/jinzhu/gorm, the ORM the teacher's apiserver layer is built on,
// with schema migrations run through golang-migrate/migrate/v4. Grounded on
// apiserver/main.go (database.Connect) and apiserver/utils/error.go (gorm
// error classification).
package postgres

import (
	"database/sql"
	"embed"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	"github.com/pkg/errors"

	"github.com/simonpierreboucher02/cadcoin-ledger/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a *gorm.DB and implements store.Store.
type Store struct {
	db  *gorm.DB
	log *slog.Logger
}

// Connect opens the database, runs pending migrations, and returns a ready
// Store. Mirrors apiserver/main.go's "connect then migrate" startup order.
func Connect(databaseURL string, log *slog.Logger) (*Store, error) {
	db, err := gorm.Open("postgres", databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "opening database connection")
	}
	db.LogMode(false)

	if err := runMigrations(db.DB(), databaseURL); err != nil {
		return nil, errors.Wrap(err, "running migrations")
	}

	return &Store{db: db, log: log}, nil
}

func runMigrations(conn *sql.DB, databaseURL string) error {
	driver, err := pgmigrate.WithInstance(conn, &pgmigrate.Config{})
	if err != nil {
		return errors.Wrap(err, "creating migration driver")
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errors.Wrap(err, "reading embedded migrations")
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return errors.Wrap(err, "initializing migrator")
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "applying migrations")
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ store.Store = (*Store)(nil)
