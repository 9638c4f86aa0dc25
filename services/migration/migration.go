package migration

import (
	"github.com/go-pg/migrations/v8"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	services "github.com/webtor-io/common-services"
)

const sqlDir = "migrations"

// PGMigration applies sql migrations from the migrations directory together with
// go migrations registered on the collection.
type PGMigration struct {
	db  *services.PG
	col *migrations.Collection
	dir string
}

func NewPGMigration(db *services.PG, col *migrations.Collection) *PGMigration {
	return &PGMigration{
		db:  db,
		col: col,
		dir: sqlDir,
	}
}

func (s *PGMigration) Run(a ...string) error {
	db := s.db.Get()
	if db == nil {
		log.Info("db not initialized, skipping migration")
		return nil
	}
	if err := s.col.DiscoverSQLMigrations(s.dir); err != nil {
		return errors.Wrapf(err, "failed to discover migrations in %v", s.dir)
	}
	if _, _, err := s.col.Run(db, "init"); err != nil {
		return errors.Wrap(err, "failed to init migrations table")
	}
	oldVersion, newVersion, err := s.col.Run(db, a...)
	if err != nil {
		return errors.Wrapf(err, "failed to migrate from %v to %v", oldVersion, newVersion)
	}
	l := log.WithFields(log.Fields{
		"old_version": oldVersion,
		"new_version": newVersion,
	})
	if newVersion != oldVersion {
		l.Info("db migrated")
	} else {
		l.Info("db is up to date")
	}
	return nil
}
