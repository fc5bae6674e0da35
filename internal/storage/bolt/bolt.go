// Package boltstorage keeps the match journal in a single bbolt file, one
// bucket per match.
package boltstorage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gridclash/arena/internal/storage"
	v1 "github.com/gridclash/arena/internal/storage/memory/export/v1"
	"github.com/gridclash/arena/pkg/core"
	bolt "go.etcd.io/bbolt"
)

var _ storage.Backend = (*Backend)(nil)
var _ storage.Uploadable = (*Backend)(nil)

var (
	// ErrNoMatch is returned when events arrive before StartMatch.
	ErrNoMatch = errors.New("no match started")
	// ErrMatchNotFound is returned by ReadMatch for an unknown id.
	ErrMatchNotFound = errors.New("match not found")
)

var (
	bucketMatches   = []byte("matches")
	bucketPlayers   = []byte("players")
	bucketActions   = []byte("actions")
	bucketKills     = []byte("kills")
	bucketEvictions = []byte("evictions")
	keyMatch        = []byte("match")
	keyResult       = []byte("result")
)

// Config holds bbolt settings.
type Config struct {
	Path    string
	Timeout time.Duration // how long to wait for the file lock
}

// Backend writes every record straight into the bolt file.
type Backend struct {
	cfg Config
	db  *bolt.DB

	mu     sync.RWMutex
	match  *core.Match
	result *core.MatchResult
	count  int
}

// New creates a bolt backend. The file is opened by Init.
func New(cfg Config) *Backend {
	return &Backend{cfg: cfg}
}

func (b *Backend) Init() error {
	if b.cfg.Path == "" {
		return fmt.Errorf("bolt path not set")
	}
	if err := os.MkdirAll(filepath.Dir(b.cfg.Path), 0755); err != nil {
		return fmt.Errorf("failed to create bolt directory: %w", err)
	}
	db, err := bolt.Open(b.cfg.Path, 0600, &bolt.Options{Timeout: b.cfg.Timeout})
	if err != nil {
		return fmt.Errorf("failed to open bolt file %s: %w", b.cfg.Path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketMatches)
		return err
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create matches bucket: %w", err)
	}
	b.db = db
	return nil
}

func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

// StartMatch creates the match bucket and its sub-buckets.
func (b *Backend) StartMatch(m *core.Match) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	err = b.db.Update(func(tx *bolt.Tx) error {
		mb, err := tx.Bucket(bucketMatches).CreateBucketIfNotExists([]byte(m.ID))
		if err != nil {
			return err
		}
		for _, name := range [][]byte{bucketPlayers, bucketActions, bucketKills, bucketEvictions} {
			if _, err := mb.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return mb.Put(keyMatch, data)
	})
	if err != nil {
		return fmt.Errorf("failed to start match %s: %w", m.ID, err)
	}

	b.mu.Lock()
	b.match, b.result, b.count = m, nil, 0
	b.mu.Unlock()
	return nil
}

func (b *Backend) EndMatch(r *core.MatchResult) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	err = b.update(func(mb *bolt.Bucket) error {
		return mb.Put(keyResult, data)
	})
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.result = r
	b.mu.Unlock()
	return b.db.Sync()
}

// AddPlayer stores players in registration order.
func (b *Backend) AddPlayer(p *core.Player) error {
	if err := b.append(bucketPlayers, p); err != nil {
		return err
	}
	b.mu.Lock()
	b.count++
	b.mu.Unlock()
	return nil
}

// RecordAction keys actions by their sequence number.
func (b *Backend) RecordAction(a *core.ActionRecord) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return b.update(func(mb *bolt.Bucket) error {
		return mb.Bucket(bucketActions).Put(seqKey(a.Seq), data)
	})
}

func (b *Backend) RecordKill(k *core.KillEvent) error {
	return b.append(bucketKills, k)
}

func (b *Backend) RecordEviction(e *core.EvictionEvent) error {
	return b.append(bucketEvictions, e)
}

// GetExportedFilePath returns the bolt file once the match has ended.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.result == nil {
		return ""
	}
	return b.cfg.Path
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
		PlayerCount:   b.count,
	}
	if b.result.WinnerID != nil {
		meta.WinnerID = *b.result.WinnerID
	}
	return meta
}

// update runs fn on the current match bucket in a write transaction.
func (b *Backend) update(fn func(mb *bolt.Bucket) error) error {
	b.mu.RLock()
	m := b.match
	b.mu.RUnlock()
	if m == nil || b.db == nil {
		return ErrNoMatch
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		mb := tx.Bucket(bucketMatches).Bucket([]byte(m.ID))
		if mb == nil {
			return ErrNoMatch
		}
		return fn(mb)
	})
}

// append stores v under the sub-bucket's next sequence.
func (b *Backend) append(sub []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.update(func(mb *bolt.Bucket) error {
		bucket := mb.Bucket(sub)
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		return bucket.Put(seqKey(seq), data)
	})
}

// seqKey encodes n big-endian so cursor order is numeric order.
func seqKey(n uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, n)
	return key
}

// ListMatches returns the metadata of all matches in the file at path.
func ListMatches(path string) ([]core.Match, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var matches []core.Match
	err = db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketMatches)
		if root == nil {
			return nil
		}
		return root.ForEachBucket(func(k []byte) error {
			var m core.Match
			if data := root.Bucket(k).Get(keyMatch); data != nil {
				if err := json.Unmarshal(data, &m); err != nil {
					return err
				}
			}
			matches = append(matches, m)
			return nil
		})
	})
	return matches, err
}

// ReadMatch loads one match journal from the file at path.
func ReadMatch(path, matchID string) (*v1.MatchData, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	defer db.Close()

	data := &v1.MatchData{}
	err = db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(bucketMatches)
		if root == nil {
			return ErrMatchNotFound
		}
		mb := root.Bucket([]byte(matchID))
		if mb == nil {
			return ErrMatchNotFound
		}

		data.Match = &core.Match{}
		if err := json.Unmarshal(mb.Get(keyMatch), data.Match); err != nil {
			return fmt.Errorf("decode match: %w", err)
		}
		if raw := mb.Get(keyResult); raw != nil {
			data.Result = &core.MatchResult{}
			if err := json.Unmarshal(raw, data.Result); err != nil {
				return fmt.Errorf("decode result: %w", err)
			}
		}
		if err := decodeAll(mb.Bucket(bucketPlayers), &data.Players); err != nil {
			return err
		}
		if err := decodeAll(mb.Bucket(bucketActions), &data.Actions); err != nil {
			return err
		}
		if err := decodeAll(mb.Bucket(bucketKills), &data.Kills); err != nil {
			return err
		}
		return decodeAll(mb.Bucket(bucketEvictions), &data.Evictions)
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func decodeAll[T any](bucket *bolt.Bucket, out *[]T) error {
	if bucket == nil {
		return nil
	}
	return bucket.ForEach(func(_, v []byte) error {
		var item T
		if err := json.Unmarshal(v, &item); err != nil {
			return err
		}
		*out = append(*out, item)
		return nil
	})
}
