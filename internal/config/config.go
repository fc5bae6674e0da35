package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file read from the config directory.
const FileName = "arena.cfg.json"

// ServerConfig holds network and fan-out settings for the host.
type ServerConfig struct {
	ListenAddr      string        `json:"listenAddr" mapstructure:"listenAddr"`
	HostName        string        `json:"hostName" mapstructure:"hostName"`
	DeliveryTimeout time.Duration `json:"deliveryTimeout" mapstructure:"deliveryTimeout"`
	RateLimit       float64       `json:"rateLimit" mapstructure:"rateLimit"`
	RateBurst       int           `json:"rateBurst" mapstructure:"rateBurst"`
	ReadLimit       int64         `json:"readLimit" mapstructure:"readLimit"`
}

// GameConfig holds rule settings.
type GameConfig struct {
	// Seed for spawn positions. Zero seeds from the clock.
	Seed int64 `json:"seed" mapstructure:"seed"`
}

// WireConfig holds transport codec settings.
type WireConfig struct {
	ScrambleKey byte `json:"scrambleKey" mapstructure:"scrambleKey"`
}

// MemoryConfig holds in-memory/JSON journal settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite journal settings
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
}

// BoltConfig holds bbolt journal settings
type BoltConfig struct {
	Path    string        `json:"path" mapstructure:"path"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// RedisConfig holds redis publisher settings
type RedisConfig struct {
	Addr     string `json:"addr" mapstructure:"addr"`
	Password string `json:"password" mapstructure:"password"`
	DB       int    `json:"db" mapstructure:"db"`
	Prefix   string `json:"prefix" mapstructure:"prefix"`
}

// StorageConfig selects and configures the match journal.
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
	Bolt   BoltConfig   `json:"bolt" mapstructure:"bolt"`
	Redis  RedisConfig  `json:"redis" mapstructure:"redis"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// InfluxConfig holds InfluxDB connection settings
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
}

// GraylogConfig holds GELF output settings
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// SetDefaults registers every default value. Load calls it; callers that
// run without a config file call it directly.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./arenalogs")

	viper.SetDefault("server.listenAddr", ":8081")
	viper.SetDefault("server.hostName", "arena")
	viper.SetDefault("server.deliveryTimeout", "2s")
	viper.SetDefault("server.rateLimit", 20.0)
	viper.SetDefault("server.rateBurst", 40)
	viper.SetDefault("server.readLimit", 64*1024)

	viper.SetDefault("game.seed", 0)
	viper.SetDefault("wire.scrambleKey", 0x5A)

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")
	viper.SetDefault("api.upload", false)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "arena")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./matches")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.dumpPath", "")
	viper.SetDefault("storage.bolt.path", "./matches/arena.bolt")
	viper.SetDefault("storage.bolt.timeout", "1s")
	viper.SetDefault("storage.redis.addr", "localhost:6379")
	viper.SetDefault("storage.redis.password", "")
	viper.SetDefault("storage.redis.db", 0)
	viper.SetDefault("storage.redis.prefix", "arena")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "arena-metrics")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "arena-host")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("monitor.interval", "10s")
}

// GetServerConfig returns the server settings.
func GetServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:      viper.GetString("server.listenAddr"),
		HostName:        viper.GetString("server.hostName"),
		DeliveryTimeout: viper.GetDuration("server.deliveryTimeout"),
		RateLimit:       viper.GetFloat64("server.rateLimit"),
		RateBurst:       viper.GetInt("server.rateBurst"),
		ReadLimit:       viper.GetInt64("server.readLimit"),
	}
}

// GetGameConfig returns the rule settings.
func GetGameConfig() GameConfig {
	return GameConfig{Seed: viper.GetInt64("game.seed")}
}

// GetWireConfig returns the codec settings.
func GetWireConfig() WireConfig {
	return WireConfig{ScrambleKey: byte(viper.GetUint("wire.scrambleKey"))}
}

// GetStorageConfig returns the journal settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
		Bolt: BoltConfig{
			Path:    viper.GetString("storage.bolt.path"),
			Timeout: viper.GetDuration("storage.bolt.timeout"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("storage.redis.addr"),
			Password: viper.GetString("storage.redis.password"),
			DB:       viper.GetInt("storage.redis.db"),
			Prefix:   viper.GetString("storage.redis.prefix"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Protocol: viper.GetString("influx.protocol"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
	}
}

// GetGraylogConfig returns the GELF settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}
