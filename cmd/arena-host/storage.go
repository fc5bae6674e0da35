package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/gridclash/arena/internal/config"
	"github.com/gridclash/arena/internal/logging"
	"github.com/gridclash/arena/internal/storage"
	boltstorage "github.com/gridclash/arena/internal/storage/bolt"
	"github.com/gridclash/arena/internal/storage/memory"
	pgstorage "github.com/gridclash/arena/internal/storage/postgres"
	redisstorage "github.com/gridclash/arena/internal/storage/redis"
	sqlitestorage "github.com/gridclash/arena/internal/storage/sqlite"
	wsstorage "github.com/gridclash/arena/internal/storage/websocket"
)

// storageEnv carries what the backend factory needs besides the config.
type storageEnv struct {
	LogManager *logging.SlogManager
	Logger     *slog.Logger
	ServerURL  string
	APIKey     string
	DataDir    string
	Start      time.Time
}

// createStorageBackend builds the journal selected by storage.type. The
// caller runs Init.
func createStorageBackend(storageCfg config.StorageConfig, env storageEnv) (storage.Backend, error) {
	logger := env.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch strings.ToLower(storageCfg.Type) {
	case "postgres":
		logger.Info("Postgres storage backend selected")
		return pgstorage.New(env.LogManager), nil

	case "sqlite":
		dumpPath := storageCfg.SQLite.DumpPath
		if dumpPath == "" {
			dumpPath = filepath.Join(env.DataDir, fmt.Sprintf("%s_%s.db", ProcessName, env.Start.Format("20060102_150405")))
		}
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpPath:     dumpPath,
		}, env.LogManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		logger.Info("SQLite storage backend selected", "dumpPath", dumpPath)
		return backend, nil

	case "websocket":
		wsURL := httpToWS(env.ServerURL) + "/api"
		logger.Info("WebSocket storage backend selected", "url", wsURL)
		return wsstorage.New(wsstorage.Config{
			URL:    wsURL,
			Secret: env.APIKey,
			Logger: logger,
		}), nil

	case "bolt":
		logger.Info("Bolt storage backend selected", "path", storageCfg.Bolt.Path)
		return boltstorage.New(boltstorage.Config{
			Path:    storageCfg.Bolt.Path,
			Timeout: storageCfg.Bolt.Timeout,
		}), nil

	case "redis":
		logger.Info("Redis storage backend selected", "addr", storageCfg.Redis.Addr)
		return redisstorage.New(redisstorage.Config{
			Addr:     storageCfg.Redis.Addr,
			Password: storageCfg.Redis.Password,
			DB:       storageCfg.Redis.DB,
			Prefix:   storageCfg.Redis.Prefix,
		}), nil

	case "none":
		logger.Info("Match journal disabled")
		return storage.Nop{}, nil

	case "", "memory":
		logger.Info("Memory storage backend selected", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
