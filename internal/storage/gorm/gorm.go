// Package gormstorage implements the storage.Backend interface on GORM with
// internal queues and a background DB writer goroutine. The postgres and
// sqlite backends embed it.
package gormstorage

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gridclash/arena/internal/database"
	"github.com/gridclash/arena/internal/logging"
	"github.com/gridclash/arena/internal/model"
	"github.com/gridclash/arena/internal/model/convert"
	"github.com/gridclash/arena/internal/queue"
	"github.com/gridclash/arena/internal/storage"
	"github.com/gridclash/arena/pkg/core"

	"gorm.io/gorm"
)

var _ storage.Backend = (*Backend)(nil)

// DefaultFlushInterval is how often the writer drains the queues.
const DefaultFlushInterval = 2 * time.Second

// ErrNoMatch is returned when EndMatch arrives before StartMatch.
var ErrNoMatch = errors.New("no match started")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	LogManager    *logging.SlogManager
	FlushInterval time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Players   *queue.Queue[model.Player]
	Actions   *queue.Queue[model.Action]
	Kills     *queue.Queue[model.KillEvent]
	Evictions *queue.Queue[model.EvictionEvent]
}

func newQueues() *queues {
	return &queues{
		Players:   queue.New[model.Player](),
		Actions:   queue.New[model.Action](),
		Kills:     queue.New[model.KillEvent](),
		Evictions: queue.New[model.EvictionEvent](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	queues    *queues
	matchID   atomic.Uint64
	lastWrite atomic.Int64

	writeMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm backend has no database")
	}
	if err := database.Setup(b.deps.DB); err != nil {
		b.deps.LogManager.WriteLog("gorm:setup", fmt.Sprintf("Failed to set up DB: %v", err), "ERROR")
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.deps.LogManager.WriteLog("gorm:setup", "Database setup complete", "INFO")

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writerLoop()
	return nil
}

// Close stops the writer and flushes whatever is still queued.
func (b *Backend) Close() error {
	b.stopOnce.Do(func() {
		if b.stopChan != nil {
			close(b.stopChan)
			<-b.done
		}
	})
	return b.Flush()
}

// StartMatch inserts the match row synchronously so later rows can
// reference it.
func (b *Backend) StartMatch(m *core.Match) error {
	row := convert.CoreToMatch(*m)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	b.matchID.Store(uint64(row.ID))
	return nil
}

// SetMatchID points the writer at an existing match row (used by tools
// that append to a stored match).
func (b *Backend) SetMatchID(id uint) {
	b.matchID.Store(uint64(id))
}

// MatchRowID returns the database id of the current match, 0 if none.
func (b *Backend) MatchRowID() uint {
	return uint(b.matchID.Load())
}

// EndMatch flushes the queues and then records the result and each
// surviving player's final state.
func (b *Backend) EndMatch(result *core.MatchResult) error {
	id := b.MatchRowID()
	if id == 0 {
		return ErrNoMatch
	}
	if err := b.Flush(); err != nil {
		return err
	}

	var row model.Match
	if err := b.deps.DB.First(&row, id).Error; err != nil {
		return fmt.Errorf("failed to load match %d: %w", id, err)
	}
	convert.ApplyResult(&row, *result)
	err := b.deps.DB.Model(&row).Updates(map[string]any{
		"end_time":  row.EndTime,
		"winner_id": row.WinnerID,
		"decided":   row.Decided,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update match result: %w", err)
	}

	for _, p := range result.Players {
		var death sql.NullTime
		if !p.DeathTime.IsZero() {
			death = sql.NullTime{Time: p.DeathTime, Valid: true}
		}
		updates := map[string]any{
			"final_x":    p.X,
			"final_y":    p.Y,
			"health":     p.Health,
			"is_dead":    p.IsDead,
			"death_time": death,
		}
		err := b.deps.DB.Model(&model.Player{}).
			Where("match_id = ? AND player_id = ?", id, p.ID).
			Updates(updates).Error
		if err != nil {
			return fmt.Errorf("failed to update player %s: %w", p.ID, err)
		}
	}
	return nil
}

// AddPlayer converts a core player to GORM and pushes to the write queue.
func (b *Backend) AddPlayer(p *core.Player) error {
	b.queues.Players.Push(convert.CoreToPlayer(*p, time.Now()))
	return nil
}

// RecordAction converts and queues an action record.
func (b *Backend) RecordAction(a *core.ActionRecord) error {
	b.queues.Actions.Push(convert.CoreToAction(*a))
	return nil
}

// RecordKill converts and queues a kill event.
func (b *Backend) RecordKill(k *core.KillEvent) error {
	b.queues.Kills.Push(convert.CoreToKillEvent(*k))
	return nil
}

// RecordEviction converts and queues an eviction event.
func (b *Backend) RecordEviction(e *core.EvictionEvent) error {
	b.queues.Evictions.Push(convert.CoreToEvictionEvent(*e))
	return nil
}

// GetLastDBWriteDuration returns how long the last write cycle took.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	return time.Duration(b.lastWrite.Load())
}

// QueueLengths reports how many rows are waiting per queue.
func (b *Backend) QueueLengths() map[string]int {
	return map[string]int{
		"players":   b.queues.Players.Len(),
		"actions":   b.queues.Actions.Len(),
		"kills":     b.queues.Kills.Len(),
		"evictions": b.queues.Evictions.Len(),
	}
}

// Flush drains every queue into the database. Rows queued before a match
// row exists stay queued.
func (b *Backend) Flush() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	matchID := b.MatchRowID()
	if matchID == 0 {
		return nil
	}

	start := time.Now()
	log := b.deps.LogManager.WriteLog
	errs := []error{
		writeQueue(b.deps.DB, b.queues.Players, "players", log, func(items []model.Player) {
			for i := range items {
				items[i].MatchID = matchID
			}
		}),
		writeQueue(b.deps.DB, b.queues.Actions, "actions", log, func(items []model.Action) {
			for i := range items {
				items[i].MatchID = matchID
			}
		}),
		writeQueue(b.deps.DB, b.queues.Kills, "kill events", log, func(items []model.KillEvent) {
			for i := range items {
				items[i].MatchID = matchID
			}
		}),
		writeQueue(b.deps.DB, b.queues.Evictions, "eviction events", log, func(items []model.EvictionEvent) {
			for i := range items {
				items[i].MatchID = matchID
			}
		}),
	}
	b.lastWrite.Store(int64(time.Since(start)))
	return errors.Join(errs...)
}

// writeQueue writes all items from a queue to the database in a transaction.
// On failure the items go back on the queue for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log func(string, string, string), prepare func([]T)) error {
	if q.Empty() {
		return nil
	}

	items := q.Drain()
	if prepare != nil {
		prepare(items)
	}

	tx := db.Begin()
	if err := tx.Create(&items).Error; err != nil {
		log(":DB:WRITER:", fmt.Sprintf("Error creating %s: %v", name, err), "ERROR")
		tx.Rollback()
		q.Requeue(items)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tx.Commit().Error; err != nil {
		q.Requeue(items)
		return fmt.Errorf("commit %s: %w", name, err)
	}
	return nil
}

func (b *Backend) writerLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.deps.LogManager.WriteLog(":DB:WRITER:", fmt.Sprintf("Flush failed: %v", err), "WARN")
			}
		}
	}
}
