package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gridclash/arena/internal/config"
	"github.com/gridclash/arena/internal/database"
	"github.com/gridclash/arena/internal/model"
	"github.com/gridclash/arena/internal/model/convert"
	boltstorage "github.com/gridclash/arena/internal/storage/bolt"
	"github.com/gridclash/arena/internal/storage/memory"
	v1 "github.com/gridclash/arena/internal/storage/memory/export/v1"
	"github.com/gridclash/arena/pkg/core"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"gorm.io/gorm"
)

// source reads recorded matches from one journal.
type source interface {
	List() ([]core.Match, error)
	Load(matchID string) (*v1.MatchData, error)
	Close() error
}

type options struct {
	configDir string
	sqlite    string
	bolt      string
	outDir    string
	raw       bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	var opts options
	fs := pflag.NewFlagSet("arena-replay", pflag.ContinueOnError)
	fs.StringVarP(&opts.configDir, "config-dir", "c", ".", "directory containing "+config.FileName+" (postgres settings)")
	fs.StringVar(&opts.sqlite, "sqlite", "", "read a dumped SQLite journal instead of postgres")
	fs.StringVar(&opts.bolt, "bolt", "", "read a bolt journal instead of postgres")
	fs.StringVarP(&opts.outDir, "out", "o", ".", "directory for exported files")
	fs.BoolVar(&opts.raw, "raw", false, "write plain JSON instead of gzip")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return errors.New("no command provided (getjson <matchID>... | list)")
	}

	if opts.sqlite == "" && opts.bolt == "" {
		if err := config.Load(opts.configDir); err != nil {
			fmt.Fprintf(os.Stderr, "config not loaded, using defaults: %v\n", err)
		}
	}

	src, err := openSource(opts)
	if err != nil {
		return err
	}
	defer src.Close()

	switch strings.ToLower(rest[0]) {
	case "list":
		return listMatches(src, out)
	case "getjson":
		ids := rest[1:]
		if len(ids) == 0 {
			return errors.New("no match IDs provided")
		}
		return exportMatches(src, ids, opts, out)
	default:
		return fmt.Errorf("unknown command %q", rest[0])
	}
}

func openSource(opts options) (source, error) {
	if opts.bolt != "" {
		return boltSource{path: opts.bolt}, nil
	}

	mgr := database.NewManager(zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger())
	if err := mgr.Connect(opts.sqlite); err != nil {
		return nil, err
	}
	return dbSource{db: mgr.DB, mgr: mgr}, nil
}

func listMatches(src source, out io.Writer) error {
	matches, err := src.List()
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Fprintln(out, "No matches recorded.")
		return nil
	}
	for _, m := range matches {
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", m.ID, m.StartTime.UTC().Format(time.RFC3339), m.HostName, m.Version)
	}
	return nil
}

func exportMatches(src source, ids []string, opts options, out io.Writer) error {
	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	for _, id := range ids {
		txStart := time.Now()
		data, err := src.Load(id)
		if err != nil {
			return fmt.Errorf("loading match %s: %w", id, err)
		}
		export := v1.Build(data)

		name := fmt.Sprintf("%s_%s.json", export.HostName, id)
		if data.Match != nil {
			name = fmt.Sprintf("%s_%s_%s.json", export.HostName, data.Match.StartTime.Format("20060102_150405"), id)
		}
		name = strings.NewReplacer(" ", "_", ":", "_", "/", "_").Replace(name)
		if !opts.raw {
			name += ".gz"
		}
		path := filepath.Join(opts.outDir, name)

		if err := memory.WriteExport(path, export, !opts.raw); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Fprintf(out, "Wrote match %s (%d events) to %s in %s\n", id, len(export.Events), path, time.Since(txStart).Round(time.Millisecond))
	}
	return nil
}

type boltSource struct{ path string }

func (s boltSource) List() ([]core.Match, error) { return boltstorage.ListMatches(s.path) }

func (s boltSource) Load(id string) (*v1.MatchData, error) { return boltstorage.ReadMatch(s.path, id) }

func (boltSource) Close() error { return nil }

type dbSource struct {
	db  *gorm.DB
	mgr *database.Manager
}

func (s dbSource) Close() error {
	if s.mgr == nil {
		return nil
	}
	return s.mgr.Close()
}

func (s dbSource) List() ([]core.Match, error) {
	var rows []model.Match
	if err := s.db.Order("start_time ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("error getting matches: %w", err)
	}
	out := make([]core.Match, 0, len(rows))
	for _, m := range rows {
		out = append(out, convert.MatchToCore(m))
	}
	return out, nil
}

func (s dbSource) Load(matchID string) (*v1.MatchData, error) {
	var m model.Match
	if err := s.db.Where("match_uuid = ?", matchID).First(&m).Error; err != nil {
		return nil, fmt.Errorf("error getting match: %w", err)
	}

	var players []model.Player
	if err := s.db.Where("match_id = ?", m.ID).Order("id ASC").Find(&players).Error; err != nil {
		return nil, fmt.Errorf("error getting players: %w", err)
	}
	var actions []model.Action
	if err := s.db.Where("match_id = ?", m.ID).Order("seq ASC").Find(&actions).Error; err != nil {
		return nil, fmt.Errorf("error getting actions: %w", err)
	}
	var kills []model.KillEvent
	if err := s.db.Where("match_id = ?", m.ID).Order("seq ASC").Find(&kills).Error; err != nil {
		return nil, fmt.Errorf("error getting kill events: %w", err)
	}
	var evictions []model.EvictionEvent
	if err := s.db.Where("match_id = ?", m.ID).Order("id ASC").Find(&evictions).Error; err != nil {
		return nil, fmt.Errorf("error getting eviction events: %w", err)
	}

	match := convert.MatchToCore(m)
	data := &v1.MatchData{
		Match:  &match,
		Result: convert.MatchToResult(m, players),
	}
	for _, p := range players {
		data.Players = append(data.Players, convert.PlayerToCore(p))
	}
	for _, a := range actions {
		data.Actions = append(data.Actions, convert.ActionToCore(a))
	}
	for _, k := range kills {
		data.Kills = append(data.Kills, convert.KillEventToCore(k))
	}
	for _, e := range evictions {
		data.Evictions = append(data.Evictions, convert.EvictionEventToCore(e))
	}
	return data, nil
}
