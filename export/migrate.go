package export

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/clickhouse" // ClickHouse driver.
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
)

// The snapshot table schema ships with the library; sql/ holds one
// versioned pair per schema change.
//
//go:embed sql/*.sql
var migrations embed.FS

// Migrator keeps the snapshot table schema of the configured ClickHouse
// database up to date.
type Migrator struct {
	log logrus.FieldLogger
	cfg ClickHouseConfig
}

// NewMigrator creates a Migrator for the database the exporter writes to.
func NewMigrator(log logrus.FieldLogger, cfg ClickHouseConfig) *Migrator {
	cfg.ApplyDefaults()

	return &Migrator{
		log: log.WithField("component", "migrate"),
		cfg: cfg,
	}
}

// Ensure applies any pending schema migrations and returns the resulting
// schema version. A schema left dirty by an earlier failed run is reported
// as an error rather than migrated over.
func (m *Migrator) Ensure() (uint, error) {
	mig, err := m.open()
	if err != nil {
		return 0, err
	}
	defer m.close(mig)

	if _, dirty, err := m.version(mig); err != nil {
		return 0, err
	} else if dirty {
		return 0, fmt.Errorf("snapshot schema is dirty; resolve the failed migration before exporting")
	}

	if err := mig.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrating snapshot schema: %w", err)
	}

	version, _, err := m.version(mig)
	if err != nil {
		return 0, err
	}

	m.log.WithFields(logrus.Fields{
		"table":   m.cfg.Table,
		"version": version,
	}).Info("Snapshot schema up to date")

	return version, nil
}

// Rollback undoes the most recent schema migration.
func (m *Migrator) Rollback() error {
	mig, err := m.open()
	if err != nil {
		return err
	}
	defer m.close(mig)

	if err := mig.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rolling back snapshot schema: %w", err)
	}

	m.log.Info("Snapshot schema rolled back")

	return nil
}

func (m *Migrator) open() (*migrate.Migrate, error) {
	source, err := iofs.New(migrations, "sql")
	if err != nil {
		return nil, fmt.Errorf("loading embedded migrations: %w", err)
	}

	// Let a migration file hold more than one statement; the ClickHouse
	// driver only splits a file into statements when asked to.
	dsn := m.cfg.DSN() + "?x-multi-statement=true"

	mig, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting migrator to %s: %w", m.cfg.Endpoint, err)
	}

	return mig, nil
}

// version reads the current schema version, treating a never-migrated
// database as version 0.
func (m *Migrator) version(mig *migrate.Migrate) (uint, bool, error) {
	version, dirty, err := mig.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}

	if err != nil {
		return 0, false, fmt.Errorf("reading snapshot schema version: %w", err)
	}

	return version, dirty, nil
}

func (m *Migrator) close(mig *migrate.Migrate) {
	srcErr, dbErr := mig.Close()

	if srcErr != nil {
		m.log.WithError(srcErr).Warn("Closing migration source failed")
	}

	if dbErr != nil {
		m.log.WithError(dbErr).Warn("Closing migration database failed")
	}
}
