package db

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var openSQLFn = sql.Open

// Migrations returns the embedded goose migration files.
func Migrations() (fs.FS, error) {
	return fs.Sub(migrationsFS, "migrations")
}

// Migrate applies every pending embedded migration to the database at url.
func Migrate(ctx context.Context, url string) error {
	migrations, err := Migrations()
	if err != nil {
		return err
	}

	conn, err := openSQLFn("pgx", url)
	if err != nil {
		return err
	}
	defer conn.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, conn, migrations)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}
