package monitor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gridclash/arena/internal/authority"
	"github.com/gridclash/arena/internal/logging"
	"github.com/gridclash/arena/internal/match"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// StatusFileName is written inside Dependencies.StatusDir.
const StatusFileName = "status.txt"

// Bucket is the InfluxDB bucket status points are written to.
const Bucket = "arena_performance"

// StatsProvider exposes the host counters.
type StatsProvider interface {
	Stats() authority.Stats
}

// WriteDurationProvider exposes the last journal write duration.
type WriteDurationProvider interface {
	GetLastDBWriteDuration() time.Duration
}

// QueueLengthProvider exposes pending journal write queues.
type QueueLengthProvider interface {
	QueueLengths() map[string]int
}

// PointWriter accepts InfluxDB points.
type PointWriter interface {
	WritePoint(ctx context.Context, bucket string, point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	LogManager    *logging.SlogManager
	MatchContext  *match.Context
	Host          StatsProvider
	WorkerManager WriteDurationProvider
	Queues        QueueLengthProvider // optional
	Sessions      func() int          // optional
	Influx        PointWriter         // optional
	StatusDir     string
	Interval      time.Duration
	Now           func() time.Time
}

// Status is one snapshot of the host.
type Status struct {
	Time                time.Time      `json:"time"`
	MatchID             string         `json:"matchId"`
	MatchDurationSec    float64        `json:"matchDurationSec"`
	Players             int            `json:"players"`
	Alive               int            `json:"alive"`
	Endpoints           int            `json:"endpoints"`
	Sessions            int            `json:"sessions"`
	Pending             int            `json:"pending"`
	Applied             uint64         `json:"applied"`
	Rejected            uint64         `json:"rejected"`
	Dropped             uint64         `json:"dropped"`
	Evicted             uint64         `json:"evicted"`
	GameEnded           bool           `json:"gameEnded"`
	WinnerID            string         `json:"winnerId,omitempty"`
	WriteQueues         map[string]int `json:"writeQueues,omitempty"`
	LastWriteDurationMs float64        `json:"lastWriteDurationMs"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = 10 * time.Second
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus collects a snapshot from every configured provider.
func (s *Service) GetStatus() Status {
	now := s.deps.Now()
	st := Status{Time: now}

	if s.deps.MatchContext != nil {
		st.MatchID = s.deps.MatchContext.ID()
		st.MatchDurationSec = s.deps.MatchContext.Duration(now).Seconds()
	}
	if s.deps.Host != nil {
		hs := s.deps.Host.Stats()
		st.Players = hs.Players
		st.Alive = hs.Alive
		st.Endpoints = hs.Endpoints
		st.Pending = hs.Pending
		st.Applied = hs.Applied
		st.Rejected = hs.Rejected
		st.Dropped = hs.Dropped
		st.Evicted = hs.Evicted
		st.GameEnded = hs.GameEnded
		if hs.WinnerID != nil {
			st.WinnerID = *hs.WinnerID
		}
	}
	if s.deps.Sessions != nil {
		st.Sessions = s.deps.Sessions()
	}
	if s.deps.Queues != nil {
		st.WriteQueues = s.deps.Queues.QueueLengths()
	}
	if s.deps.WorkerManager != nil {
		st.LastWriteDurationMs = float64(s.deps.WorkerManager.GetLastDBWriteDuration().Microseconds()) / 1000
	}
	return st
}

// Point converts a status snapshot into an InfluxDB point.
func Point(st Status) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement("arena_status").
		AddTag("matchId", st.MatchID).
		AddField("players", st.Players).
		AddField("alive", st.Alive).
		AddField("endpoints", st.Endpoints).
		AddField("sessions", st.Sessions).
		AddField("pending", st.Pending).
		AddField("applied", st.Applied).
		AddField("rejected", st.Rejected).
		AddField("dropped", st.Dropped).
		AddField("evicted", st.Evicted).
		AddField("game_ended", st.GameEnded).
		AddField("last_write_ms", st.LastWriteDurationMs).
		SetTime(st.Time)
	for name, n := range st.WriteQueues {
		p.AddField("queue_"+name, n)
	}
	return p
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	var statusPath string
	if s.deps.StatusDir != "" {
		if err := os.MkdirAll(s.deps.StatusDir, 0o755); err != nil {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			close(done)
			return err
		}
		statusPath = filepath.Join(s.deps.StatusDir, StatusFileName)
	}

	go func() {
		defer close(done)

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine", "function", "startStatusMonitor", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.tick(statusPath)
			}
		}
	}()

	return nil
}

func (s *Service) tick(statusPath string) {
	logger := s.deps.LogManager.Logger()
	st := s.GetStatus()

	if statusPath != "" {
		if err := writeStatusFile(statusPath, st); err != nil {
			logger.Error("Error writing status file", "error", err, "path", statusPath)
		}
	}

	if s.deps.Influx != nil {
		if err := s.deps.Influx.WritePoint(context.Background(), Bucket, Point(st)); err != nil {
			logger.Error("Error writing status point", "error", err)
		}
	}
}

func writeStatusFile(path string, st Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Stop stops the status monitor and waits for the goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
