package main

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Storage drivers supported by the book store.
const (
	MemoryDriver = "memory"
	BoltDriver   = "bolt"
	RedisDriver  = "redis"
	SQLiteDriver = "sqlite"
)

const (
	DefaultBackendURL  = "http://localhost:8000"
	DefaultStorePort   = "8000"
	DefaultWebPort     = "3000"
	DefaultLaunchDelay = 3 * time.Second
	DefaultSessionsMax = 1000
	DefaultSessionTTL  = 30 * time.Minute
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit               string         `yaml:"git_commit" envconfig:"BKS_GIT_COMMIT" json:"git_commit"`
	GitTag                  string         `yaml:"git_tag" envconfig:"BKS_GIT_TAG" json:"git_tag"`
	BuildTime               string         `yaml:"build_time" envconfig:"BKS_BUILD_TIME" json:"build_time"`
	IsProduction            bool           `yaml:"is_production" envconfig:"BKS_IS_PRODUCTION" json:"is_production"`
	LogLevel                zapcore.Level  `yaml:"log_level" envconfig:"BKS_LOG_LEVEL" json:"log_level"`
	LogFolder               string         `yaml:"log_folder" envconfig:"BKS_LOG_FOLDER" json:"log_folder"`
	LogMaxSize              int            `yaml:"log_max_size" envconfig:"BKS_LOG_MAX_SIZE" json:"log_max_size"`
	OpsEndpointsEnable      bool           `yaml:"ops_endpoints_enable" envconfig:"BKS_OPS_ENDPOINTS_ENABLE" json:"ops_endpoints_enable"`
	ProfilerEndpointsEnable bool           `yaml:"profiler_endpoints_enable" envconfig:"BKS_PROFILER_ENDPOINTS_ENABLE" json:"profiler_endpoints_enable"`
	Server                  ServerConfig   `yaml:"server" json:"server"`
	Web                     WebConfig      `yaml:"web" json:"web"`
	Storage                 StorageConfig  `yaml:"storage" json:"storage"`
	Redis                   RedisConfig    `yaml:"redis" json:"redis"`
	BoltDB                  BoltDBConfig   `yaml:"boltdb" json:"boltdb"`
	SQLite                  SQLiteConfig   `yaml:"sqlite" json:"sqlite"`
	Backup                  BackupConfig   `yaml:"backup" json:"backup"`
	Proxy                   ProxyConfig    `yaml:"proxy" json:"proxy"`
	Launcher                LauncherConfig `yaml:"launcher" json:"launcher"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"BKS_SERVER_HOST" json:"host"`
	Port            string        `yaml:"port" envconfig:"BKS_SERVER_PORT" json:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"BKS_SERVER_READ_TIMEOUT" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"BKS_SERVER_WRITE_TIMEOUT" json:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"BKS_SERVER_REQUEST_TIMEOUT" json:"request_timeout"` // Time to wait for a request to finish
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"BKS_SERVER_SHUTDOWN_TIMEOUT" json:"shutdown_timeout"`
	RateLimit       int           `yaml:"rate_limit" envconfig:"BKS_SERVER_RATE_LIMIT" json:"rate_limit"` // Requests per second, 0 disables it
	RateBurst       int           `yaml:"rate_burst" envconfig:"BKS_SERVER_RATE_BURST" json:"rate_burst"`
}

// WebConfig holds the listening address of the web process and the limits
// of its sessions. Timeouts are shared with the store server settings.
type WebConfig struct {
	Host        string        `yaml:"host" envconfig:"BKS_WEB_HOST" json:"host"`
	Port        string        `yaml:"port" envconfig:"BKS_WEB_PORT" json:"port"`
	SessionsMax int           `yaml:"sessions_max" envconfig:"BKS_WEB_SESSIONS_MAX" json:"sessions_max"`
	SessionTTL  time.Duration `yaml:"session_ttl" envconfig:"BKS_WEB_SESSION_TTL" json:"session_ttl"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"BKS_STORAGE_DRIVER" json:"driver"`
}

type RedisConfig struct {
	Host          string        `yaml:"host" envconfig:"BKS_REDIS_HOST" json:"host"`
	Port          string        `yaml:"port" envconfig:"BKS_REDIS_PORT" json:"port"`
	DialTimeout   time.Duration `yaml:"dial_timeout" envconfig:"BKS_REDIS_DIAL_TIMEOUT" json:"dial_timeout"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"BKS_REDIS_READ_TIMEOUT" json:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout" envconfig:"BKS_REDIS_WRITE_TIMEOUT" json:"write_timeout"`
	PoolSize      int           `yaml:"pool_size" envconfig:"BKS_REDIS_POOL_SIZE" json:"pool_size"`
	PoolTimeout   time.Duration `yaml:"pool_timeout" envconfig:"BKS_REDIS_POOL_TIMEOUT" json:"pool_timeout"`
	Username      string        `yaml:"username" envconfig:"BKS_REDIS_USERNAME" json:"-"`
	Password      string        `yaml:"password" envconfig:"BKS_REDIS_PASSWORD" json:"-"`
	DatabaseIndex int           `yaml:"db_index" envconfig:"BKS_REDIS_DATABASE_INDEX" json:"db_index"`
}

type BoltDBConfig struct {
	FilePath   string        `yaml:"filepath" envconfig:"BKS_BOLTDB_FILE_PATH" json:"filepath"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"BKS_BOLTDB_TIMEOUT" json:"timeout"`
	BucketName string        `yaml:"bucket_name" envconfig:"BKS_BOLTDB_BUCKET_NAME" json:"bucket_name"`
}

type SQLiteConfig struct {
	FilePath string `yaml:"filepath" envconfig:"BKS_SQLITE_FILE_PATH" json:"filepath"`
}

// BackupConfig enables the bolt replica fed from redis queues.
type BackupConfig struct {
	Enable   bool   `yaml:"enable" envconfig:"BKS_BACKUP_ENABLE" json:"enable"`
	FilePath string `yaml:"filepath" envconfig:"BKS_BACKUP_FILE_PATH" json:"filepath"`
}

type ProxyConfig struct {
	// BackendURL falls back to the unprefixed BACKEND_URL variable.
	BackendURL string        `yaml:"backend_url" envconfig:"BACKEND_URL" json:"backend_url"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"BKS_PROXY_TIMEOUT" json:"timeout"`
}

type LauncherConfig struct {
	Delay time.Duration `yaml:"delay" envconfig:"BKS_LAUNCHER_DELAY" json:"delay"`
}

// LoadConfigFile provides an instance of config structure for the all application.
// A missing file results in an empty configuration filled later with defaults.
func LoadConfigFile(configFile string) (*Config, error) {
	cfg := &Config{}
	file, err := os.Open(configFile)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	yd := yaml.NewDecoder(file)
	err = yd.Decode(cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables and provides an instance of the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig setup defaults values for non provided parameters
// and configures build tags values to be used if provided.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}

	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}

	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	setConfigDefaults(config)

	if len(config.Server.Host) == 0 || len(config.Server.Port) == 0 {
		return errors.New("make sure to set valid server address and port in configuration file")
	}

	switch config.Storage.Driver {
	case MemoryDriver, BoltDriver, SQLiteDriver:
	case RedisDriver:
		if len(config.Redis.Host) == 0 || len(config.Redis.Port) == 0 {
			return errors.New("make sure to set valid redis address and port in configuration file")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", config.Storage.Driver)
	}

	if config.Backup.Enable && (len(config.Redis.Host) == 0 || len(config.Redis.Port) == 0) {
		return errors.New("backup requires valid redis address and port in configuration file")
	}

	if config.Backup.Enable && config.Storage.Driver == BoltDriver && config.Backup.FilePath == config.BoltDB.FilePath {
		return errors.New("backup file must differ from the bolt storage file")
	}

	u, err := url.Parse(config.Proxy.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend url %q", config.Proxy.BackendURL)
	}
	config.Proxy.BackendURL = strings.TrimSuffix(config.Proxy.BackendURL, "/")
	return nil
}

func setConfigDefaults(config *Config) {
	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}
	if config.Server.Port == "" {
		config.Server.Port = DefaultStorePort
	}
	if config.Web.Host == "" {
		config.Web.Host = "0.0.0.0"
	}
	if config.Web.Port == "" {
		config.Web.Port = DefaultWebPort
	}
	if config.Web.SessionsMax <= 0 {
		config.Web.SessionsMax = DefaultSessionsMax
	}
	if config.Web.SessionTTL == 0 {
		config.Web.SessionTTL = DefaultSessionTTL
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 10 * time.Second
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = 15 * time.Second
	}
	if config.Server.RequestTimeout == 0 {
		config.Server.RequestTimeout = 10 * time.Second
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = 10 * time.Second
	}
	if config.Server.RateLimit > 0 && config.Server.RateBurst == 0 {
		config.Server.RateBurst = config.Server.RateLimit
	}
	if config.LogFolder == "" {
		config.LogFolder = "./logs"
	}
	if config.LogMaxSize == 0 {
		config.LogMaxSize = 10
	}
	if config.Storage.Driver == "" {
		config.Storage.Driver = MemoryDriver
	}
	if config.BoltDB.FilePath == "" {
		config.BoltDB.FilePath = "./data/books.bolt.db"
	}
	if config.BoltDB.BucketName == "" {
		config.BoltDB.BucketName = "books"
	}
	if config.BoltDB.Timeout == 0 {
		config.BoltDB.Timeout = 5 * time.Second
	}
	if config.Backup.FilePath == "" {
		config.Backup.FilePath = "./data/books.backup.db"
	}
	if config.SQLite.FilePath == "" {
		config.SQLite.FilePath = "./data/books.sqlite"
	}
	if config.Proxy.BackendURL == "" {
		config.Proxy.BackendURL = DefaultBackendURL
	}
	if config.Launcher.Delay == 0 {
		config.Launcher.Delay = DefaultLaunchDelay
	}
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data. The env file is optional.
func LoadAndInitConfigs(configFile, envFile, gitCommit, gitTag, buildTime string) (*Config, error) {
	// Setup the yaml configuration from file.
	config, err := LoadConfigFile(configFile)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %s", err)
	}

	// Set the environment configuration.
	err = godotenv.Load(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config, fmt.Errorf("failed to set environment configurations: %s", err)
	}

	// Use environment variables with prefix `BKS`.
	err = LoadConfigEnvs("BKS", config)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %s", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %s", err)
	}
	return config, nil
}
