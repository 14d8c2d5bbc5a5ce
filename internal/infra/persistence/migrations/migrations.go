// Package migrations applies the mobile session schema from embedded SQL files using golang-migrate.
package migrations

import (
	"embed"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
)

//go:embed sql/*.sql
var migrationFS embed.FS

// Direction selects which way Run migrates.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ErrNoChange is returned by golang-migrate when there is nothing to apply.
var ErrNoChange = migrate.ErrNoChange

// Run applies the embedded migrations against dsn. Already being at the
// target version is not an error.
func Run(dsn string, direction Direction) error {
	if dsn == "" {
		return errors.New("database url is required")
	}
	if direction != Up && direction != Down {
		return errors.Errorf("direction must be up or down, got %q", direction)
	}

	sourceDriver, err := iofs.New(migrationFS, "sql")
	if err != nil {
		return errors.Wrap(err, "migrate source")
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, dsn)
	if err != nil {
		return errors.Wrap(err, "migrate")
	}
	defer func() { _, _ = m.Close() }()

	switch direction {
	case Up:
		err = m.Up()
	case Down:
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrapf(err, "migrate %s", direction)
	}

	return nil
}

// Versions lists the migration versions shipped in the binary.
func Versions() ([]uint, error) {
	sourceDriver, err := iofs.New(migrationFS, "sql")
	if err != nil {
		return nil, errors.Wrap(err, "migrate source")
	}
	defer func() { _ = sourceDriver.Close() }()

	version, err := sourceDriver.First()
	if err != nil {
		return nil, errors.Wrap(err, "first migration")
	}

	versions := []uint{version}
	for {
		next, err := sourceDriver.Next(version)
		if err != nil {
			break
		}
		versions = append(versions, next)
		version = next
	}

	return versions, nil
}
