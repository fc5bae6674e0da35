// Package postgres implements the storage.Backend interface on PostgreSQL
// through the shared GORM backend.
package postgres

import (
	"fmt"

	"github.com/gridclash/arena/internal/database"
	"github.com/gridclash/arena/internal/logging"
	"github.com/gridclash/arena/internal/storage"
	gormstorage "github.com/gridclash/arena/internal/storage/gorm"

	"gorm.io/gorm"
)

var _ storage.Backend = (*Backend)(nil)

// Opener returns a database connection. It is swapped in tests.
type Opener func() (*gorm.DB, error)

// Backend wraps the GORM backend with connection setup for PostgreSQL.
type Backend struct {
	*gormstorage.Backend
	open Opener
	log  *logging.SlogManager
}

// New creates a postgres backend using the db.* settings.
func New(logManager *logging.SlogManager) *Backend {
	return NewWithOpener(logManager, database.GetPostgresDBStandalone)
}

// NewWithOpener creates a backend that connects through open.
func NewWithOpener(logManager *logging.SlogManager, open Opener) *Backend {
	return &Backend{open: open, log: logManager}
}

// Init connects, validates the connection and starts the writer.
func (b *Backend) Init() error {
	db, err := b.open()
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err = sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)

	b.Backend = gormstorage.New(gormstorage.Dependencies{DB: db, LogManager: b.log})
	return b.Backend.Init()
}

// Close stops the writer and closes the pool.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	err := b.Backend.Close()
	if sqlDB, dbErr := b.DB().DB(); dbErr == nil {
		sqlDB.Close()
	}
	return err
}
