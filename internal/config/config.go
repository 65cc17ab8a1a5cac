package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. LINKA_SERVER_PORT
const EnvPrefix = "LINKA"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Storage   StorageConfig   `yaml:"storage" envconfig:"STORAGE"`
	Upload    UploadConfig    `yaml:"upload" envconfig:"UPLOAD"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"60s"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/linka.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// PathsConfig contains file system paths configuration. Relative paths are
// resolved against BaseDir, which defaults to the executable's directory.
type PathsConfig struct {
	BaseDir string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	LogsDir string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
	WebDir  string `yaml:"web_dir" envconfig:"WEB_DIR" default:"web"`
}

// StorageConfig contains dashboard store configuration
type StorageConfig struct {
	// SQLitePath is relative to the data directory unless absolute, or
	// ":memory:".
	SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH" default:"linka.db"`
}

// UploadConfig contains dataset upload limits
type UploadConfig struct {
	MaxSizeBytes      int64    `yaml:"max_size_bytes" envconfig:"MAX_SIZE_BYTES" default:"52428800"`
	AllowedExtensions []string `yaml:"allowed_extensions" envconfig:"ALLOWED_EXTENSIONS" default:"csv,txt,json,xml,svg,xlsx"`
	KeepFiles         bool     `yaml:"keep_files" envconfig:"KEEP_FILES" default:"true"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"30s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
}

// TelemetryConfig controls the OpenTelemetry providers
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME" default:"linka"`
	MetricsEnabled bool    `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED" default:"true"`
	TracingEnabled bool    `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED" default:"false"`
	SampleRate     float64 `yaml:"sample_rate" envconfig:"SAMPLE_RATE" default:"1.0"`
}

// Load loads configuration from the optional config file, then environment
// variables. Environment values win.
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile is Load with an explicit config file. An empty path skips the
// file.
func LoadFile(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// envconfig applies `default` tags to unset variables, which would
	// clobber file values, so env is read into a separate struct and only
	// explicitly set variables are merged.
	var env Config
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	mergeEnv(cfg, &env)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// mergeEnv copies values whose environment variable is set
func mergeEnv(dst, env *Config) {
	set := func(key string) bool {
		_, ok := os.LookupEnv(EnvPrefix + "_" + key)
		return ok
	}

	if set("SERVER_PORT") {
		dst.Server.Port = env.Server.Port
	}
	if set("SERVER_READ_TIMEOUT") {
		dst.Server.ReadTimeout = env.Server.ReadTimeout
	}
	if set("SERVER_WRITE_TIMEOUT") {
		dst.Server.WriteTimeout = env.Server.WriteTimeout
	}
	if set("SERVER_IDLE_TIMEOUT") {
		dst.Server.IdleTimeout = env.Server.IdleTimeout
	}
	if set("SERVER_SHUTDOWN_TIMEOUT") {
		dst.Server.ShutdownTimeout = env.Server.ShutdownTimeout
	}
	if set("SERVER_REQUEST_TIMEOUT") {
		dst.Server.RequestTimeout = env.Server.RequestTimeout
	}
	if set("SECURITY_ALLOWED_ORIGINS") {
		dst.Security.AllowedOrigins = env.Security.AllowedOrigins
	}
	if set("SECURITY_ENABLE_CORS") {
		dst.Security.EnableCORS = env.Security.EnableCORS
	}
	if set("SECURITY_RATE_LIMIT_ENABLED") {
		dst.Security.RateLimit.Enabled = env.Security.RateLimit.Enabled
	}
	if set("SECURITY_RATE_LIMIT_RPS") {
		dst.Security.RateLimit.RPS = env.Security.RateLimit.RPS
	}
	if set("SECURITY_RATE_LIMIT_BURST") {
		dst.Security.RateLimit.Burst = env.Security.RateLimit.Burst
	}
	if set("LOGGING_LEVEL") {
		dst.Logging.Level = env.Logging.Level
	}
	if set("LOGGING_OUTPUT") {
		dst.Logging.Output = env.Logging.Output
	}
	if set("LOGGING_FILE_PATH") {
		dst.Logging.FilePath = env.Logging.FilePath
	}
	if set("LOGGING_DEVELOPMENT") {
		dst.Logging.Development = env.Logging.Development
	}
	if set("PATHS_BASE_DIR") {
		dst.Paths.BaseDir = env.Paths.BaseDir
	}
	if set("PATHS_DATA_DIR") {
		dst.Paths.DataDir = env.Paths.DataDir
	}
	if set("PATHS_LOGS_DIR") {
		dst.Paths.LogsDir = env.Paths.LogsDir
	}
	if set("PATHS_WEB_DIR") {
		dst.Paths.WebDir = env.Paths.WebDir
	}
	if set("STORAGE_SQLITE_PATH") {
		dst.Storage.SQLitePath = env.Storage.SQLitePath
	}
	if set("UPLOAD_MAX_SIZE_BYTES") {
		dst.Upload.MaxSizeBytes = env.Upload.MaxSizeBytes
	}
	if set("UPLOAD_ALLOWED_EXTENSIONS") {
		dst.Upload.AllowedExtensions = env.Upload.AllowedExtensions
	}
	if set("UPLOAD_KEEP_FILES") {
		dst.Upload.KeepFiles = env.Upload.KeepFiles
	}
	if set("WEBSOCKET_PING_PERIOD") {
		dst.WebSocket.PingPeriod = env.WebSocket.PingPeriod
	}
	if set("WEBSOCKET_PONG_WAIT") {
		dst.WebSocket.PongWait = env.WebSocket.PongWait
	}
	if set("TELEMETRY_SERVICE_NAME") {
		dst.Telemetry.ServiceName = env.Telemetry.ServiceName
	}
	if set("TELEMETRY_METRICS_ENABLED") {
		dst.Telemetry.MetricsEnabled = env.Telemetry.MetricsEnabled
	}
	if set("TELEMETRY_TRACING_ENABLED") {
		dst.Telemetry.TracingEnabled = env.Telemetry.TracingEnabled
	}
	if set("TELEMETRY_SAMPLE_RATE") {
		dst.Telemetry.SampleRate = env.Telemetry.SampleRate
	}
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}
	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate limit rps must be positive")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid log output: %q", c.Logging.Output)
	}
	// Logs are always JSON
	c.Logging.Format = "json"

	if c.Upload.MaxSizeBytes <= 0 {
		return fmt.Errorf("upload max size must be positive")
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		return fmt.Errorf("at least one upload extension must be allowed")
	}
	for i, ext := range c.Upload.AllowedExtensions {
		c.Upload.AllowedExtensions[i] = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	}

	if c.Storage.SQLitePath == "" {
		return fmt.Errorf("storage sqlite path must be set")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("telemetry sample rate must be between 0 and 1")
	}
	return nil
}

// getConfigFilePath returns the first config file found, or ""
func getConfigFilePath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		return path
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/linka.log",
		},
		Paths: PathsConfig{
			DataDir: DefaultDataDir,
			LogsDir: DefaultLogsDir,
			WebDir:  DefaultWebDir,
		},
		Storage: StorageConfig{
			SQLitePath: DefaultDatabaseFile,
		},
		Upload: UploadConfig{
			MaxSizeBytes:      DefaultMaxUploadSize,
			AllowedExtensions: []string{"csv", "txt", "json", "xml", "svg", "xlsx"},
			KeepFiles:         true,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			MetricsEnabled: true,
			SampleRate:     1.0,
		},
	}
}
