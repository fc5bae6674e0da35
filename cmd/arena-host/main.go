package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gridclash/arena/internal/api"
	"github.com/gridclash/arena/internal/authority"
	"github.com/gridclash/arena/internal/config"
	"github.com/gridclash/arena/internal/dispatcher"
	"github.com/gridclash/arena/internal/influx"
	"github.com/gridclash/arena/internal/logging"
	"github.com/gridclash/arena/internal/match"
	"github.com/gridclash/arena/internal/monitor"
	intOtel "github.com/gridclash/arena/internal/otel"
	"github.com/gridclash/arena/internal/storage"
	"github.com/gridclash/arena/internal/storage/memory"
	"github.com/gridclash/arena/internal/transport"
	"github.com/gridclash/arena/internal/wire"
	"github.com/gridclash/arena/internal/worker"
	"github.com/gridclash/arena/pkg/core"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.1.0"
	BuildDate      string = "unknown"

	ProcessName string = "arena_host"
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionStartTime time.Time = time.Now()
)

type flags struct {
	configDir string
	spectate  bool
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := pflag.NewFlagSet(ProcessName, pflag.ContinueOnError)
	fs.StringVarP(&f.configDir, "config-dir", "c", ".", "directory containing "+config.FileName)
	fs.BoolVar(&f.spectate, "spectate", false, "log every fan-out delivery at info level")
	fs.String("listen", "", "listen address, overrides server.listenAddr")
	fs.String("storage", "", "journal backend, overrides storage.type")
	fs.String("log-level", "", "log level, overrides logLevel")

	if err := fs.Parse(args); err != nil {
		return f, err
	}

	for key, name := range map[string]string{
		"server.listenAddr": "listen",
		"storage.type":      "storage",
		"logLevel":          "log-level",
	} {
		if fl := fs.Lookup(name); fl != nil && fl.Changed {
			if err := viper.BindPFlag(key, fl); err != nil {
				return f, err
			}
		}
	}
	return f, nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil)
	Logger = SlogManager.Logger()

	f, err := parseFlags(args)
	if err != nil {
		return err
	}

	if err := config.Load(f.configDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config", "dir", f.configDir)
	}

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}
	logFilePath := logging.LogFilePath(logsDir, ProcessName, SessionStartTime)
	logFile, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	OTelProvider, err = intOtel.New(intOtel.FromConfig(config.GetOTelConfig(), logFile))
	if err != nil {
		Logger.Error("Failed to initialize OTel provider", "error", err)
		OTelProvider, _ = intOtel.New(intOtel.Config{})
	}
	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider.Enabled() {
		otelLogProvider = OTelProvider.LoggerProvider()
	}

	level := viper.GetString("logLevel")
	if gl := config.GetGraylogConfig(); gl.Enabled {
		h, closer, err := logging.NewGraylogHandler(gl.Address, level)
		if err != nil {
			Logger.Error("Failed to initialize Graylog handler", "error", err, "address", gl.Address)
		} else {
			SlogManager.AddHandler(h)
			defer closer.Close()
		}
	}

	serverCfg := config.GetServerConfig()
	matchCtx := match.NewContext(serverCfg.HostName, CurrentVersion, SessionStartTime)
	SlogManager.SetContextProvider(matchCtx.LogAttrs)
	SlogManager.Setup(io.MultiWriter(os.Stdout, logFile), level, otelLogProvider)
	Logger = SlogManager.Logger()
	Logger.Info("Starting arena host",
		"version", CurrentVersion,
		"buildDate", BuildDate,
		"matchId", matchCtx.ID(),
		"logFile", logFilePath,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	influxManager := influx.NewManager(
		zerolog.New(logFile).With().Timestamp().Str("component", "influx").Logger(),
		filepath.Join(logsDir, fmt.Sprintf("%s_influx_backup.log.gz", ProcessName)),
	)
	var points monitor.PointWriter
	if err := influxManager.Connect(ctx, config.GetInfluxConfig()); err != nil {
		if !errors.Is(err, influx.ErrDisabled) {
			Logger.Error("Failed to initialize InfluxDB", "error", err)
		}
	} else {
		points = influxManager
	}
	defer influxManager.Close()

	storageCfg := config.GetStorageConfig()
	backend, err := createStorageBackend(storageCfg, storageEnv{
		LogManager: SlogManager,
		Logger:     Logger,
		ServerURL:  viper.GetString("api.serverUrl"),
		APIKey:     viper.GetString("api.apiKey"),
		DataDir:    logsDir,
		Start:      SessionStartTime,
	})
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend, falling back to memory", "type", storageCfg.Type, "error", err)
		backend = memory.New(storageCfg.Memory)
		_ = backend.Init()
	}

	var rng *rand.Rand
	if seed := config.GetGameConfig().Seed; seed != 0 {
		rng = rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	}
	host, err := authority.New(authority.Dependencies{
		Logger:          Logger,
		Codec:           wire.NewCodec(config.GetWireConfig().ScrambleKey),
		Journal:         backend,
		Match:           matchCtx,
		Rand:            rng,
		DeliveryTimeout: serverCfg.DeliveryTimeout,
	})
	if err != nil {
		return err
	}
	host.Start()

	watcher := newSpectator(Logger, f.spectate)
	host.RegisterEndpoint(ctx, core.ReservedClientID, watcher)

	eventDispatcher, err := dispatcher.New(logging.NewDispatcherLogger(Logger))
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}
	workerManager := worker.NewManager(worker.Dependencies{
		Host:       host,
		LogManager: SlogManager,
	}, backend)
	workerManager.RegisterHandlers(eventDispatcher)

	srv := transport.New(transport.Config{
		ListenAddr:   serverCfg.ListenAddr,
		WriteTimeout: serverCfg.DeliveryTimeout,
		RateLimit:    serverCfg.RateLimit,
		RateBurst:    serverCfg.RateBurst,
		ReadLimit:    serverCfg.ReadLimit,
	}, host, eventDispatcher, Logger)

	monitorDeps := monitor.Dependencies{
		LogManager:    SlogManager,
		MatchContext:  matchCtx,
		Host:          host,
		WorkerManager: workerManager,
		Sessions:      srv.Sessions,
		Influx:        points,
		StatusDir:     logsDir,
		Interval:      viper.GetDuration("monitor.interval"),
	}
	if q, ok := backend.(monitor.QueueLengthProvider); ok {
		monitorDeps.Queues = q
	}
	monitorService := monitor.NewService(monitorDeps)
	if err := monitorService.Start(); err != nil {
		Logger.Warn("Failed to start status monitor", "error", err)
	}

	archive := api.New(viper.GetString("api.serverUrl"), viper.GetString("api.apiKey"))
	go checkServerStatus(ctx, archive)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()

	var uploadOnce sync.Once
	upload := func() {
		uploadOnce.Do(func() { uploadMatch(context.Background(), archive, backend) })
	}

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			Logger.Info("Shutdown requested")
			break loop
		case err := <-serveErr:
			runErr = err
			break loop
		case <-watcher.GameEnded():
			go upload()
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		Logger.Warn("Transport shutdown incomplete", "error", err)
	}
	eventDispatcher.Close()
	host.Shutdown()
	monitorService.Stop()
	if err := backend.Close(); err != nil {
		Logger.Error("Failed to close storage backend", "error", err)
	}
	upload()

	Logger.Info("Arena host stopped", "duration", matchCtx.Duration(time.Now()))
	if err := OTelProvider.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return runErr
}

// checkServerStatus logs whether the archive server is reachable.
func checkServerStatus(ctx context.Context, client *api.Client) {
	if !viper.GetBool("api.upload") {
		return
	}
	if err := client.Healthcheck(ctx); err != nil {
		Logger.Info("Archive server is offline", "error", err)
		return
	}
	Logger.Info("Archive server is online")
}

// uploadMatch sends the exported match file when the backend produced one
// and uploads are enabled.
func uploadMatch(ctx context.Context, client *api.Client, backend storage.Backend) {
	if !viper.GetBool("api.upload") {
		return
	}
	up, ok := backend.(storage.Uploadable)
	if !ok {
		Logger.Debug("Storage backend does not export files, skipping upload")
		return
	}
	path := up.GetExportedFilePath()
	if path == "" {
		Logger.Warn("No exported match file to upload")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	meta := up.GetExportMetadata()
	if err := client.Upload(ctx, path, meta); err != nil {
		Logger.Error("Failed to upload match", "error", err, "path", path)
		return
	}
	Logger.Info("Match uploaded", "path", path, "matchId", meta.MatchID)
}
