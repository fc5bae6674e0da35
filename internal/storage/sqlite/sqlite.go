// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend; the only SQLite-specific concerns are creating
// the in-memory DB and the periodic dump.
package sqlitestorage

import (
	"fmt"
	"sync"
	"time"

	"github.com/gridclash/arena/internal/database"
	"github.com/gridclash/arena/internal/logging"
	"github.com/gridclash/arena/internal/storage"
	gormstorage "github.com/gridclash/arena/internal/storage/gorm"
	"github.com/gridclash/arena/pkg/core"

	"gorm.io/gorm"
)

var _ storage.Backend = (*Backend)(nil)
var _ storage.Uploadable = (*Backend)(nil)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	Name         string // in-memory database name; defaults to "arena"
	DumpInterval time.Duration
	DumpPath     string // Path for periodic VACUUM INTO dumps
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      Config
	log      *logging.SlogManager
	stopChan chan struct{}
	done     chan struct{}

	dumpMu sync.Mutex
	mu     sync.RWMutex
	match  *core.Match
	result *core.MatchResult
}

// New creates a new SQLite storage backend.
func New(cfg Config, logManager *logging.SlogManager) (*Backend, error) {
	if cfg.Name == "" {
		cfg.Name = "arena"
	}
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}
	db, err := database.GetSqliteMemoryDB(cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	return &Backend{
		Backend:  gormstorage.New(gormstorage.Dependencies{DB: db, LogManager: logManager}),
		db:       db,
		cfg:      cfg,
		log:      logManager,
		stopChan: make(chan struct{}),
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.done = make(chan struct{})
		go b.dumpLoop()
	}
	return nil
}

// Close stops the dump goroutine, closes the embedded GORM backend and
// writes a final dump.
func (b *Backend) Close() error {
	select {
	case <-b.stopChan:
		return nil
	default:
	}
	close(b.stopChan)
	if b.done != nil {
		<-b.done
	}

	err := b.Backend.Close()
	if b.cfg.DumpPath != "" {
		if dumpErr := b.Dump(); dumpErr != nil && err == nil {
			err = dumpErr
		}
	}
	return err
}

// Dump flushes queued rows and writes the database to DumpPath.
func (b *Backend) Dump() error {
	b.dumpMu.Lock()
	defer b.dumpMu.Unlock()
	if err := b.Flush(); err != nil {
		return err
	}
	return database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath)
}

func (b *Backend) StartMatch(m *core.Match) error {
	if err := b.Backend.StartMatch(m); err != nil {
		return err
	}
	b.mu.Lock()
	b.match, b.result = m, nil
	b.mu.Unlock()
	return nil
}

// EndMatch records the result and dumps immediately so the file is ready
// for upload.
func (b *Backend) EndMatch(r *core.MatchResult) error {
	if err := b.Backend.EndMatch(r); err != nil {
		return err
	}
	b.mu.Lock()
	b.result = r
	b.mu.Unlock()
	if b.cfg.DumpPath == "" {
		return nil
	}
	return b.Dump()
}

// GetExportedFilePath returns the dump file once the match has ended.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.result == nil {
		return ""
	}
	return b.cfg.DumpPath
}

func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.match == nil || b.result == nil {
		return core.UploadMetadata{}
	}
	meta := core.UploadMetadata{
		MatchID:       b.match.ID,
		HostName:      b.match.HostName,
		MatchDuration: b.result.EndTime.Sub(b.match.StartTime).Seconds(),
		PlayerCount:   len(b.result.Players),
	}
	if b.result.WinnerID != nil {
		meta.WinnerID = *b.result.WinnerID
	}
	return meta
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := b.Dump(); err != nil {
				b.log.WriteLog("sqlite:dumpLoop", fmt.Sprintf("Error dumping to disk: %v", err), "ERROR")
			} else {
				b.log.WriteLog("sqlite:dumpLoop", fmt.Sprintf("Dumped to disk in %s", time.Since(start)), "DEBUG")
			}
		}
	}
}
